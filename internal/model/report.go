// Package model provides data models for the health-monitoring agent.
package model

import "time"

// SchemaVersion is the report format version written into every artifact.
const SchemaVersion = "1.0"

// Target identifies the monitored server.
type Target struct {
	Host    string `json:"host"`
	Port    int    `json:"port"`
	Version string `json:"version,omitempty"` // server version, when reachable
}

// ReportSummary aggregates domain statuses and findings.
type ReportSummary struct {
	Status   DomainStatus         `json:"status"` // most severe of normal/warning/critical
	Domains  map[DomainStatus]int `json:"domains"`
	Findings FindingSummary       `json:"findings"`
}

// MonitoringReport is the root aggregate of one monitoring run.
// It is built once by the assembler and treated as immutable afterwards.
type MonitoringReport struct {
	Timestamp     time.Time        `json:"timestamp"`
	SchemaVersion string           `json:"schema_version"`
	ToolVersion   string           `json:"tool_version"`
	Level         int              `json:"level"`
	Target        Target           `json:"target"`
	Domains       []*DomainReport  `json:"domains"`
	Summary       ReportSummary    `json:"summary"`
	Raw           []*RawSnapshot   `json:"raw,omitempty"`
	Advisory      *AdvisorySection `json:"advisory,omitempty"`
}

// Domain returns the report of the given domain, or nil.
func (r *MonitoringReport) Domain(d Domain) *DomainReport {
	for _, dr := range r.Domains {
		if dr != nil && dr.Domain == d {
			return dr
		}
	}
	return nil
}

// WithAdvisory returns a shallow copy of the report carrying the advisory section.
func (r *MonitoringReport) WithAdvisory(section *AdvisorySection) *MonitoringReport {
	cp := *r
	cp.Advisory = section
	return &cp
}

// NewReportSummary computes the summary of the given domain reports.
// An unavailable domain raises the overall status to at least warning;
// skipped domains do not raise it.
func NewReportSummary(domains []*DomainReport) ReportSummary {
	s := ReportSummary{
		Status:  StatusNormal,
		Domains: make(map[DomainStatus]int),
	}
	for _, d := range domains {
		if d == nil {
			continue
		}
		s.Domains[d.Status]++
		switch d.Status {
		case StatusCritical:
			s.Status = StatusCritical
		case StatusWarning, StatusUnavailable:
			if s.Status != StatusCritical {
				s.Status = StatusWarning
			}
		}
	}
	s.Findings = NewFindingSummary(domains)
	return s
}
