// Package model provides data models for the health-monitoring agent.
package model

import (
	"fmt"
	"math"
	"strings"
)

// Unit is the unit annotation carried by a normalized metric.
type Unit string

const (
	UnitBytes        Unit = "bytes"
	UnitPercent      Unit = "percent"
	UnitCount        Unit = "count"
	UnitMilliseconds Unit = "ms"
	UnitSeconds      Unit = "seconds"
	UnitFlag         Unit = "flag"
	UnitNone         Unit = "none"
)

// IsValid reports whether the unit is one of the known units.
func (u Unit) IsValid() bool {
	switch u {
	case UnitBytes, UnitPercent, UnitCount, UnitMilliseconds, UnitSeconds, UnitFlag, UnitNone:
		return true
	}
	return false
}

// Kind is the semantic type expected for a raw counter.
type Kind string

const (
	KindNumeric Kind = "numeric" // parsed to float64
	KindText    Kind = "text"    // kept as string
	KindFlag    Kind = "flag"    // ON/OFF style switch, stored as 1/0 plus original text
)

// IsValid reports whether the kind is one of the known kinds.
func (k Kind) IsValid() bool {
	switch k {
	case KindNumeric, KindText, KindFlag:
		return true
	}
	return false
}

// SourceDerived is the provenance tag of metrics computed by the evaluator.
const SourceDerived = "derived"

// Metric is a normalized, unit-annotated value.
// A numeric metric whose input was missing or malformed has Available=false
// and a nil Value; it never carries a silent zero.
type Metric struct {
	Name      string   `json:"name"`          // metric name
	Key       string   `json:"key,omitempty"` // raw counter key
	Kind      Kind     `json:"kind"`          // numeric / text / flag
	Unit      Unit     `json:"unit"`
	Source    string   `json:"source"`         // domain or "derived"
	Value     *float64 `json:"value"`          // nil when unavailable or text
	Text      string   `json:"text,omitempty"` // text value or original flag text
	Available bool     `json:"available"`
}

// NewNumeric creates an available numeric metric.
func NewNumeric(name string, unit Unit, source string, value float64) Metric {
	v := value
	return Metric{Name: name, Kind: KindNumeric, Unit: unit, Source: source, Value: &v, Available: true}
}

// NewText creates an available text metric.
func NewText(name, source, text string) Metric {
	return Metric{Name: name, Kind: KindText, Unit: UnitNone, Source: source, Text: text, Available: true}
}

// NewFlag creates an available flag metric.
func NewFlag(name, source, text string, on bool) Metric {
	v := 0.0
	if on {
		v = 1
	}
	return Metric{Name: name, Kind: KindFlag, Unit: UnitFlag, Source: source, Value: &v, Text: text, Available: true}
}

// Unavailable creates the explicit "no valid value" marker for a metric.
func Unavailable(name string, kind Kind, unit Unit, source string) Metric {
	return Metric{Name: name, Kind: kind, Unit: unit, Source: source}
}

// Float returns the numeric value and whether it is usable.
func (m Metric) Float() (float64, bool) {
	if !m.Available || m.Value == nil {
		return 0, false
	}
	return *m.Value, true
}

// Display renders the metric for human-facing reports.
func (m Metric) Display() string {
	if !m.Available {
		return "N/A"
	}
	if m.Kind == KindText || (m.Kind == KindFlag && m.Text != "") {
		return m.Text
	}
	v, _ := m.Float()
	switch m.Unit {
	case UnitBytes:
		return FormatBytes(v)
	case UnitPercent:
		return fmt.Sprintf("%.2f%%", v)
	case UnitMilliseconds:
		return fmt.Sprintf("%.1f ms", v)
	case UnitSeconds:
		return fmt.Sprintf("%.1f s", v)
	}
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.2f", v)
}

// FormatBytes converts a byte count to a human-readable size.
func FormatBytes(b float64) string {
	const unit = 1024.0
	if b < unit {
		return fmt.Sprintf("%.0f B", b)
	}
	div, exp := unit, 0
	for n := b / unit; n >= unit && exp < 4; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %ciB", b/div, "KMGTP"[exp])
}

// MetricSet is an ordered collection of metrics for one domain or row.
type MetricSet []Metric

// Get returns the metric with the given name.
func (s MetricSet) Get(name string) (Metric, bool) {
	for _, m := range s {
		if m.Name == name {
			return m, true
		}
	}
	return Metric{}, false
}

// Float returns the numeric value of the named metric when it is available.
func (s MetricSet) Float(name string) (float64, bool) {
	m, ok := s.Get(name)
	if !ok {
		return 0, false
	}
	return m.Float()
}

// Text returns the text of the named metric when it is available.
func (s MetricSet) Text(name string) (string, bool) {
	m, ok := s.Get(name)
	if !ok || !m.Available {
		return "", false
	}
	return m.Text, true
}

// Names returns the metric names in order.
func (s MetricSet) Names() []string {
	names := make([]string, len(s))
	for i, m := range s {
		names[i] = m.Name
	}
	return names
}

// MetricRow is one entry of a row-valued domain (a table, a slow query sample).
type MetricRow struct {
	Set     string    `json:"set"`     // row set name, e.g. "tables"
	Key     string    `json:"key"`     // row identity within the set
	Metrics MetricSet `json:"metrics"` // normalized row fields
}

// FieldSpec describes one expected raw counter.
type FieldSpec struct {
	Key  string `yaml:"key" json:"key"`   // raw counter key, case sensitive
	Name string `yaml:"name" json:"name"` // normalized metric name
	Kind Kind   `yaml:"kind" json:"kind"`
	Unit Unit   `yaml:"unit" json:"unit"`
}

// RowSchema describes a row set inside a raw snapshot.
type RowSchema struct {
	Set       string      `yaml:"set" json:"set"`               // row set name in RawSnapshot.Rows
	KeyFields []string    `yaml:"key_fields" json:"key_fields"` // raw keys forming the row identity
	Fields    []FieldSpec `yaml:"fields" json:"fields"`
}

// DomainSchema lists the counters a domain's adapter is expected to return.
type DomainSchema struct {
	Domain Domain      `yaml:"domain" json:"domain"`
	Fields []FieldSpec `yaml:"fields" json:"fields"`
	Rows   []RowSchema `yaml:"rows" json:"rows"`
}

// RowSet returns the row schema with the given set name.
func (d DomainSchema) RowSet(set string) (RowSchema, bool) {
	for _, r := range d.Rows {
		if r.Set == set {
			return r, true
		}
	}
	return RowSchema{}, false
}

// SchemasConfig is the top-level structure of the schema YAML file.
type SchemasConfig struct {
	Domains []DomainSchema `yaml:"domains"`
}

// JoinKey builds a row key from its parts.
func JoinKey(parts ...string) string {
	return strings.Join(parts, ".")
}
