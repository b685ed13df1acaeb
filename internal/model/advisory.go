// Package model provides data models for the health-monitoring agent.
package model

import (
	"strings"
	"time"
)

// Priority is the urgency of an advisory command.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ParsePriority maps free-form priority text to a Priority.
// Unknown or empty input yields PriorityMedium.
func ParsePriority(s string) Priority {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high", "alta", "critical", "urgent", "1":
		return PriorityHigh
	case "low", "bassa", "minor", "3":
		return PriorityLow
	default:
		return PriorityMedium
	}
}

// Advisory command defaults applied when the external response omits a field.
const (
	DefaultAction        = "unknown"
	DefaultTargetService = "mysql"
	DefaultRationale     = "No rationale provided by the advisory service."
)

// AdvisoryCommand is a suggested action returned by the advisory service.
// Every field is populated; missing input fields are defaulted.
type AdvisoryCommand struct {
	ID            string         `json:"id"`
	Action        string         `json:"action"`
	Priority      Priority       `json:"priority"`
	TargetService string         `json:"target_service"`
	Parameters    map[string]any `json:"parameters"`
	Rationale     string         `json:"rationale"`
}

// ExecutionStatus is the outcome of the approval step for a command.
type ExecutionStatus string

const (
	ExecutionApproved ExecutionStatus = "approved"
	ExecutionSkipped  ExecutionStatus = "skipped"
)

// ExecutionRecord records the human decision taken on a command.
// Approved commands are recorded, not executed.
type ExecutionRecord struct {
	CommandID string          `json:"command_id"`
	Action    string          `json:"action"`
	Status    ExecutionStatus `json:"status"`
	DecidedAt time.Time       `json:"decided_at"`
}

// AdvisorySection is the advisory part of a report.
type AdvisorySection struct {
	Provider   string            `json:"provider"`
	Commands   []AdvisoryCommand `json:"commands"`
	Executions []ExecutionRecord `json:"executions"`
	Error      string            `json:"error,omitempty"`
}
