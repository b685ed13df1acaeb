// Package host provides the operating-system counter source adapter.
package host

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"

	"dbhealth/internal/config"
	"dbhealth/internal/model"
)

// Client samples CPU, memory, swap, disk and server process usage.
type Client struct {
	diskPath       string
	sampleInterval time.Duration
	processName    string
	logger         zerolog.Logger
}

// NewClient creates a host sampler from the system configuration.
func NewClient(cfg *config.SystemConfig, logger zerolog.Logger) *Client {
	diskPath := cfg.DiskPath
	if diskPath == "" {
		diskPath = "/"
	}
	return &Client{
		diskPath:       diskPath,
		sampleInterval: cfg.CPUSampleInterval,
		processName:    cfg.ProcessName,
		logger:         logger.With().Str("component", "host-client").Logger(),
	}
}

// sampler fills counters of one subsystem.
type sampler struct {
	name string
	run  func(ctx context.Context, snap *model.RawSnapshot) error
}

// Collect runs every configured sampler. A failing sampler leaves its keys absent;
// the snapshot fails only when no sampler succeeds.
func (c *Client) Collect(ctx context.Context) (*model.RawSnapshot, error) {
	return c.collect(ctx, c.samplers())
}

// samplers returns the samplers to run. The process sampler runs only when a
// server process name is configured.
func (c *Client) samplers() []sampler {
	samplers := []sampler{
		{"cpu", c.sampleCPU},
		{"load", c.sampleLoad},
		{"memory", c.sampleMemory},
		{"swap", c.sampleSwap},
		{"disk", c.sampleDisk},
	}
	if c.processName != "" {
		samplers = append(samplers, sampler{"processes", c.sampleProcesses})
	}
	return samplers
}

func (c *Client) collect(ctx context.Context, samplers []sampler) (*model.RawSnapshot, error) {
	snap := model.NewRawSnapshot(model.DomainSystem)
	snap.Counters["disk_path"] = c.diskPath

	var errs []error
	for _, p := range samplers {
		if err := p.run(ctx, snap); err != nil {
			c.logger.Warn().Err(err).Str("sampler", p.name).Msg("host sampler failed")
			errs = append(errs, fmt.Errorf("%s: %w", p.name, err))
		}
	}

	if len(errs) == len(samplers) {
		return nil, model.NewSourceError(model.DomainSystem, "host samplers", errors.Join(errs...))
	}

	c.logger.Debug().Int("counters", len(snap.Counters)).Int("failed_samplers", len(errs)).Msg("host counters collected")
	return snap, nil
}

func (c *Client) sampleCPU(ctx context.Context, snap *model.RawSnapshot) error {
	percents, err := cpu.PercentWithContext(ctx, c.sampleInterval, false)
	if err != nil {
		return err
	}
	if len(percents) > 0 {
		snap.Counters["cpu_percent"] = percents[0]
	}

	if cores, err := cpu.CountsWithContext(ctx, true); err == nil {
		snap.Counters["cpu_count"] = cores
	}
	if info, err := cpu.InfoWithContext(ctx); err == nil && len(info) > 0 {
		snap.Counters["cpu_freq_mhz"] = info[0].Mhz
	}
	return nil
}

func (c *Client) sampleLoad(ctx context.Context, snap *model.RawSnapshot) error {
	avg, err := load.AvgWithContext(ctx)
	if err != nil {
		return err
	}
	snap.Counters["load1"] = avg.Load1
	snap.Counters["load5"] = avg.Load5
	snap.Counters["load15"] = avg.Load15
	return nil
}

func (c *Client) sampleMemory(ctx context.Context, snap *model.RawSnapshot) error {
	v, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return err
	}
	snap.Counters["mem_total"] = v.Total
	snap.Counters["mem_available"] = v.Available
	snap.Counters["mem_used"] = v.Used
	snap.Counters["mem_percent"] = v.UsedPercent
	return nil
}

func (c *Client) sampleSwap(ctx context.Context, snap *model.RawSnapshot) error {
	s, err := mem.SwapMemoryWithContext(ctx)
	if err != nil {
		return err
	}
	snap.Counters["swap_total"] = s.Total
	snap.Counters["swap_used"] = s.Used
	snap.Counters["swap_percent"] = s.UsedPercent
	return nil
}

func (c *Client) sampleDisk(ctx context.Context, snap *model.RawSnapshot) error {
	u, err := disk.UsageWithContext(ctx, c.diskPath)
	if err != nil {
		return err
	}
	snap.Counters["disk_total"] = u.Total
	snap.Counters["disk_used"] = u.Used
	snap.Counters["disk_free"] = u.Free
	snap.Counters["disk_percent"] = u.UsedPercent
	return nil
}

// sampleProcesses lists processes whose name contains the configured server process name.
func (c *Client) sampleProcesses(ctx context.Context, snap *model.RawSnapshot) error {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return err
	}

	rows := make([]map[string]any, 0)
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil || !strings.Contains(strings.ToLower(name), strings.ToLower(c.processName)) {
			continue
		}

		row := map[string]any{
			"pid":  p.Pid,
			"name": name,
		}
		if cpuPct, err := p.CPUPercentWithContext(ctx); err == nil {
			row["cpu_percent"] = cpuPct
		}
		if memPct, err := p.MemoryPercentWithContext(ctx); err == nil {
			row["memory_percent"] = memPct
		}
		if info, err := p.MemoryInfoWithContext(ctx); err == nil && info != nil {
			row["memory_rss"] = info.RSS
		}
		rows = append(rows, row)
	}

	snap.Rows["processes"] = rows
	return nil
}
