// Package model provides data models for the health-monitoring agent.
package model

import "time"

// RawSnapshot is the loosely typed output of one adapter call.
// Values may be missing or malformed; the normalizer resolves them.
type RawSnapshot struct {
	Domain      Domain                      `json:"domain"`
	Counters    map[string]any              `json:"counters"`
	Rows        map[string][]map[string]any `json:"rows,omitempty"`
	CollectedAt time.Time                   `json:"collected_at"`
	Err         error                       `json:"error,omitempty"`
}

// NewRawSnapshot creates an empty snapshot for the domain.
func NewRawSnapshot(domain Domain) *RawSnapshot {
	return &RawSnapshot{
		Domain:      domain,
		Counters:    make(map[string]any),
		Rows:        make(map[string][]map[string]any),
		CollectedAt: time.Now(),
	}
}

// Merge copies all counters into the snapshot. Later keys win.
func (s *RawSnapshot) Merge(counters map[string]any) {
	for k, v := range counters {
		s.Counters[k] = v
	}
}

// Failed reports whether the adapter could not reach its source.
func (s *RawSnapshot) Failed() bool {
	return s.Err != nil
}
