package host

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbhealth/internal/config"
	"dbhealth/internal/model"
)

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(&config.SystemConfig{}, zerolog.Nop())
	assert.Equal(t, "/", c.diskPath)
	assert.Empty(t, c.processName)
}

func TestCollect_LocalHost(t *testing.T) {
	dir := t.TempDir()
	c := NewClient(&config.SystemConfig{DiskPath: dir, ProcessName: "definitely-not-running"}, zerolog.Nop())

	snap, err := c.Collect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, model.DomainSystem, snap.Domain)
	assert.Equal(t, dir, snap.Counters["disk_path"])

	total, ok := snap.Counters["mem_total"].(uint64)
	require.True(t, ok, "mem_total should be a byte count")
	assert.Greater(t, total, uint64(0))

	_, ok = snap.Counters["disk_total"]
	assert.True(t, ok)
	assert.Empty(t, snap.Rows["processes"])
}

func TestSamplers_ProcessOnlyWhenNamed(t *testing.T) {
	names := func(c *Client) []string {
		var out []string
		for _, p := range c.samplers() {
			out = append(out, p.name)
		}
		return out
	}

	unnamed := NewClient(&config.SystemConfig{}, zerolog.Nop())
	assert.NotContains(t, names(unnamed), "processes")

	named := NewClient(&config.SystemConfig{ProcessName: "mysqld"}, zerolog.Nop())
	assert.Contains(t, names(named), "processes")
}

func TestCollect_AllSamplersFail(t *testing.T) {
	c := NewClient(&config.SystemConfig{}, zerolog.Nop())

	failing := c.samplers()
	for i := range failing {
		failing[i].run = func(context.Context, *model.RawSnapshot) error { return errors.New("unavailable") }
	}

	snap, err := c.collect(context.Background(), failing)
	assert.Nil(t, snap)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrSourceUnavailable)
}

func TestCollect_OneSamplerSucceeds(t *testing.T) {
	c := NewClient(&config.SystemConfig{}, zerolog.Nop())

	ps := []sampler{
		{"cpu", func(context.Context, *model.RawSnapshot) error { return errors.New("unavailable") }},
		{"memory", func(_ context.Context, snap *model.RawSnapshot) error {
			snap.Counters["mem_total"] = uint64(1024)
			return nil
		}},
	}

	snap, err := c.collect(context.Background(), ps)
	require.NoError(t, err)
	assert.Equal(t, uint64(1024), snap.Counters["mem_total"])
}
