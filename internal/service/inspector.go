// Package service provides the collection, evaluation and reporting pipeline.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"dbhealth/internal/config"
	"dbhealth/internal/model"
	"dbhealth/internal/report"
	"dbhealth/internal/report/artifact"
)

// ReportSink persists the primary report artifact.
type ReportSink interface {
	Save(r *model.MonitoringReport) (string, error)
}

// RunResult is the outcome of one monitoring run.
type RunResult struct {
	Report       *model.MonitoringReport
	ArtifactPath string            // primary JSON artifact
	Extra        map[string]string // secondary format -> path, for the formats that succeeded
}

// Inspector orchestrates one monitoring run: collection, normalization,
// evaluation, assembly, the optional advisory step and persistence.
type Inspector struct {
	config     *config.Config
	collector  *Collector
	normalizer *Normalizer
	evaluator  *Evaluator
	assembler  *Assembler
	sink       ReportSink
	writers    []report.ReportWriter
	advisor    *Advisor
	approver   Approver
	timezone   *time.Location
	version    string
	logger     zerolog.Logger
}

// InspectorOption is a functional option for configuring an Inspector.
type InspectorOption func(*Inspector)

// NewInspector creates a new Inspector with the given dependencies.
func NewInspector(
	cfg *config.Config,
	collector *Collector,
	normalizer *Normalizer,
	evaluator *Evaluator,
	sink ReportSink,
	logger zerolog.Logger,
	opts ...InspectorOption,
) (*Inspector, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if collector == nil || normalizer == nil || evaluator == nil {
		return nil, fmt.Errorf("collector, normalizer and evaluator are required")
	}
	if sink == nil {
		return nil, fmt.Errorf("report sink is required")
	}

	i := &Inspector{
		config:     cfg,
		collector:  collector,
		normalizer: normalizer,
		evaluator:  evaluator,
		sink:       sink,
		approver:   NoopApprover{},
		timezone:   cfg.Report.Location(),
		version:    "dev",
		logger:     logger.With().Str("component", "inspector").Logger(),
	}

	for _, opt := range opts {
		opt(i)
	}

	if i.assembler == nil {
		i.assembler = NewAssembler(i.version, cfg.Monitoring.IncludeRaw)
	}

	return i, nil
}

// WithVersion sets the tool version written into reports.
func WithVersion(version string) InspectorOption {
	return func(i *Inspector) {
		i.version = version
	}
}

// WithAdvisor enables the advisory step. A nil approver approves nothing.
func WithAdvisor(advisor *Advisor, approver Approver) InspectorOption {
	return func(i *Inspector) {
		i.advisor = advisor
		if approver != nil {
			i.approver = approver
		}
	}
}

// WithWriters adds secondary report formats rendered after the primary artifact.
func WithWriters(writers ...report.ReportWriter) InspectorOption {
	return func(i *Inspector) {
		i.writers = append(i.writers, writers...)
	}
}

// WithAssembler shares an assembler, and with it the monotonic clock, across inspectors.
func WithAssembler(a *Assembler) InspectorOption {
	return func(i *Inspector) {
		i.assembler = a
	}
}

// Run executes one monitoring run. Domain failures are absorbed into the
// report and the advisory step is best-effort; only a failure to persist the
// primary artifact is returned as an error.
func (i *Inspector) Run(ctx context.Context) (*RunResult, error) {
	if timeout := i.config.Monitoring.RunTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	startTime := time.Now()
	ts := i.assembler.Timestamp().In(i.timezone)
	level := i.config.Monitoring.Level
	plan := Plan(level, i.config.Monitoring.EnableTables)

	i.logger.Info().
		Time("timestamp", ts).
		Int("level", level).
		Int("domains", len(plan)).
		Msg("starting monitoring run")

	// Step 1: collect
	snapshots := i.collector.Collect(ctx, plan)

	// Step 2: normalize and evaluate
	domains := make([]*model.DomainReport, 0, len(snapshots))
	for _, snap := range snapshots {
		metrics, rows := i.normalizer.Normalize(snap)
		domains = append(domains, i.evaluator.Evaluate(snap.Domain, metrics, rows, snap.Err))
	}

	// Step 3: assemble
	target := model.Target{
		Host:    i.config.Database.Host,
		Port:    i.config.Database.Port,
		Version: serverVersion(snapshots),
	}
	r := i.assembler.Assemble(ts, level, target, domains, snapshots)

	// Step 4: advisory
	if i.advisor != nil {
		r = r.WithAdvisory(i.advise(ctx, r))
	}

	// Step 5: persist
	path, err := i.sink.Save(r)
	if err != nil {
		i.logger.Error().Err(err).Msg("failed to save report artifact")
		return nil, fmt.Errorf("failed to save report: %w", err)
	}

	result := &RunResult{
		Report:       r,
		ArtifactPath: path,
		Extra:        i.writeSecondary(r, path),
	}

	i.logger.Info().
		Str("status", string(r.Summary.Status)).
		Int("warnings", r.Summary.Findings.Warnings).
		Int("critical", r.Summary.Findings.Critical).
		Int("recommendations", r.Summary.Findings.Recommendations).
		Str("artifact", path).
		Dur("duration", time.Since(startTime)).
		Msg("monitoring run completed")

	return result, nil
}

// advise builds the advisory section. Errors are recorded in the section, never returned.
func (i *Inspector) advise(ctx context.Context, r *model.MonitoringReport) *model.AdvisorySection {
	section := &model.AdvisorySection{
		Provider:   i.advisor.Provider(),
		Commands:   []model.AdvisoryCommand{},
		Executions: []model.ExecutionRecord{},
	}

	doc, err := artifact.Document(r)
	if err != nil {
		section.Error = err.Error()
		return section
	}

	commands, err := i.advisor.Advise(ctx, doc)
	if err != nil {
		i.logger.Warn().Err(err).Str("provider", section.Provider).Msg("advisory unavailable, continuing without it")
		section.Error = err.Error()
		return section
	}
	section.Commands = commands

	approved, err := i.approver.Approve(ctx, commands)
	if err != nil {
		i.logger.Warn().Err(err).Msg("approval interrupted")
	}
	section.Executions = RecordExecutions(commands, approved, time.Now().In(i.timezone))

	i.logger.Info().
		Int("commands", len(commands)).
		Int("approved", len(approved)).
		Msg("advisory decisions recorded")
	return section
}

// writeSecondary renders the extra formats next to the primary artifact.
// Failures are logged and skipped.
func (i *Inspector) writeSecondary(r *model.MonitoringReport, primaryPath string) map[string]string {
	extra := make(map[string]string)
	base := strings.TrimSuffix(primaryPath, ".json")

	for _, w := range i.writers {
		out := base + w.Extension()
		if err := w.Write(r, out); err != nil {
			i.logger.Error().Err(err).Str("format", w.Format()).Msg("failed to write secondary report")
			continue
		}
		extra[w.Format()] = out
		i.logger.Info().Str("format", w.Format()).Str("path", out).Msg("secondary report written")
	}
	return extra
}

// serverVersion returns the version reported by the server domain, if collected.
func serverVersion(snapshots []*model.RawSnapshot) string {
	for _, s := range snapshots {
		if s.Domain != model.DomainServer || s.Failed() {
			continue
		}
		if v, ok := s.Counters["version"].(string); ok {
			return v
		}
	}
	return ""
}
