// Package model provides data models for the health-monitoring agent.
package model

// Severity represents how serious a finding is.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Rank orders severities: info < warning < critical.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 2
	case SeverityWarning:
		return 1
	default:
		return 0
	}
}

// FindingKind distinguishes warnings from recommendations.
type FindingKind string

const (
	KindWarning        FindingKind = "warning"
	KindRecommendation FindingKind = "recommendation"
)

// Finding is an immutable warning or recommendation produced by the evaluator.
type Finding struct {
	Kind     FindingKind `json:"kind"`
	Severity Severity    `json:"severity"`
	Rule     string      `json:"rule"`              // rule identifier, e.g. "cache.hit_ratio.low"
	Message  string      `json:"message"`           // human-readable text
	Metrics  []string    `json:"metrics"`           // metric names that triggered it
	Subject  string      `json:"subject,omitempty"` // row the finding is about (table, query)
}

// NewWarning creates a warning finding.
func NewWarning(rule string, severity Severity, message string, metrics ...string) Finding {
	return Finding{
		Kind:     KindWarning,
		Severity: severity,
		Rule:     rule,
		Message:  message,
		Metrics:  copyNames(metrics),
	}
}

// NewRecommendation creates an informational recommendation finding.
func NewRecommendation(rule, message string, metrics ...string) Finding {
	return Finding{
		Kind:     KindRecommendation,
		Severity: SeverityInfo,
		Rule:     rule,
		Message:  message,
		Metrics:  copyNames(metrics),
	}
}

// About returns a copy of the finding bound to a subject.
func (f Finding) About(subject string) Finding {
	f.Metrics = copyNames(f.Metrics)
	f.Subject = subject
	return f
}

func copyNames(names []string) []string {
	out := make([]string, len(names))
	copy(out, names)
	return out
}

// FindingSummary provides aggregated finding statistics.
type FindingSummary struct {
	Warnings        int `json:"warnings"`
	Critical        int `json:"critical"`
	Recommendations int `json:"recommendations"`
}

// NewFindingSummary counts the findings of the given domain reports.
func NewFindingSummary(domains []*DomainReport) FindingSummary {
	var s FindingSummary
	for _, d := range domains {
		if d == nil {
			continue
		}
		for _, w := range d.Warnings {
			s.Warnings++
			if w.Severity == SeverityCritical {
				s.Critical++
			}
		}
		s.Recommendations += len(d.Recommendations)
	}
	return s
}
