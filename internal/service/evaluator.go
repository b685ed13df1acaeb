package service

import (
	"fmt"

	"github.com/rs/zerolog"

	"dbhealth/internal/config"
	"dbhealth/internal/model"
)

// RuleSourceUnavailable is the rule of the single warning carried by a domain whose source failed.
const RuleSourceUnavailable = "source.unavailable"

// Evaluator turns normalized metrics into per-domain reports.
type Evaluator struct {
	thresholds config.ThresholdsConfig
	logger     zerolog.Logger
}

// NewEvaluator creates an Evaluator with the given server and system thresholds.
func NewEvaluator(thresholds *config.ThresholdsConfig, logger zerolog.Logger) *Evaluator {
	return &Evaluator{
		thresholds: *thresholds,
		logger:     logger.With().Str("component", "evaluator").Logger(),
	}
}

// Evaluate builds the DomainReport of one domain from its normalized metrics.
// sourceErr is the adapter failure, if any; a failed domain gets no per-metric findings.
func (e *Evaluator) Evaluate(domain model.Domain, metrics model.MetricSet, rows []model.MetricRow, sourceErr error) *model.DomainReport {
	report := model.NewDomainReport(domain)
	report.Metrics = append(report.Metrics, metrics...)
	report.Rows = rows

	if sourceErr != nil {
		report.Status = model.StatusUnavailable
		report.Error = sourceErr.Error()
		report.Warnings = append(report.Warnings, model.NewWarning(RuleSourceUnavailable, model.SeverityWarning,
			fmt.Sprintf("%s data could not be collected; metrics are unavailable", domain)))
		e.logger.Debug().Str("domain", string(domain)).Err(sourceErr).Msg("skipping evaluation for unavailable domain")
		return report
	}

	a := e.assess(domain, metrics, rows)
	if a.Skipped {
		report.Status = model.StatusSkipped
		e.logger.Debug().Str("domain", string(domain)).Msg("domain evaluation skipped")
		return report
	}

	report.Metrics = append(report.Metrics, a.Derived...)
	report.Warnings = append(report.Warnings, a.Warnings...)
	report.Recommendations = append(report.Recommendations, a.Recommendations...)
	report.Status = determineStatus(report.Warnings)

	e.logger.Debug().
		Str("domain", string(domain)).
		Str("status", string(report.Status)).
		Int("warning_count", len(report.Warnings)).
		Int("recommendation_count", len(report.Recommendations)).
		Msg("domain evaluation completed")

	return report
}

func (e *Evaluator) assess(domain model.Domain, metrics model.MetricSet, rows []model.MetricRow) Assessment {
	switch domain {
	case model.DomainSystem:
		return EvaluateSystem(metrics, &e.thresholds)
	case model.DomainServer:
		return EvaluateServer(metrics, e.thresholds.ConnectionUsage)
	case model.DomainCache:
		return EvaluateCache(metrics)
	case model.DomainEngine:
		return EvaluateEngine(metrics)
	case model.DomainSlowQueries:
		return EvaluateSlowQueries(rows)
	case model.DomainTables:
		return EvaluateTables(rows)
	default:
		return Assessment{}
	}
}

// determineStatus returns the most severe status among the warnings.
func determineStatus(warnings []model.Finding) model.DomainStatus {
	status := model.StatusNormal
	for _, w := range warnings {
		switch w.Severity {
		case model.SeverityCritical:
			return model.StatusCritical
		case model.SeverityWarning:
			status = model.StatusWarning
		}
	}
	return status
}
