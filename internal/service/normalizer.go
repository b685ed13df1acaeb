package service

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"dbhealth/internal/model"
)

// Normalizer converts raw adapter snapshots into typed, unit-annotated metrics.
type Normalizer struct {
	schemas map[model.Domain]model.DomainSchema
}

// NewNormalizer creates a Normalizer for the given domain schemas.
func NewNormalizer(schemas []model.DomainSchema) *Normalizer {
	byDomain := make(map[model.Domain]model.DomainSchema, len(schemas))
	for _, s := range schemas {
		byDomain[s.Domain] = s
	}
	return &Normalizer{schemas: byDomain}
}

// Schema returns the schema of a domain.
func (n *Normalizer) Schema(domain model.Domain) (model.DomainSchema, bool) {
	s, ok := n.schemas[domain]
	return s, ok
}

// Normalize resolves every expected field of the snapshot's domain.
// Missing or malformed values become unavailable metrics; unknown keys are ignored.
// A failed snapshot yields all-unavailable metrics and no rows.
func (n *Normalizer) Normalize(snap *model.RawSnapshot) (model.MetricSet, []model.MetricRow) {
	schema, ok := n.schemas[snap.Domain]
	if !ok {
		return model.MetricSet{}, nil
	}

	source := string(snap.Domain)
	var counters map[string]any
	if !snap.Failed() {
		counters = snap.Counters
	}
	metrics := normalizeFields(schema.Fields, counters, source)

	if snap.Failed() {
		return metrics, nil
	}

	var rows []model.MetricRow
	for _, rs := range schema.Rows {
		for i, raw := range snap.Rows[rs.Set] {
			rows = append(rows, model.MetricRow{
				Set:     rs.Set,
				Key:     rowKey(rs, raw, i),
				Metrics: normalizeFields(rs.Fields, raw, source),
			})
		}
	}
	return metrics, rows
}

func normalizeFields(fields []model.FieldSpec, raw map[string]any, source string) model.MetricSet {
	set := make(model.MetricSet, 0, len(fields))
	for _, f := range fields {
		m := normalizeValue(f, raw[f.Key], source)
		m.Key = f.Key
		set = append(set, m)
	}
	return set
}

func normalizeValue(f model.FieldSpec, v any, source string) model.Metric {
	switch f.Kind {
	case model.KindText:
		if v == nil {
			return model.Unavailable(f.Name, f.Kind, f.Unit, source)
		}
		m := model.NewText(f.Name, source, textOf(v))
		m.Unit = f.Unit
		return m
	case model.KindFlag:
		on, text, err := parseFlag(v)
		if err != nil {
			return model.Unavailable(f.Name, f.Kind, f.Unit, source)
		}
		return model.NewFlag(f.Name, source, text, on)
	default:
		x, err := parseNumber(v)
		if err != nil {
			return model.Unavailable(f.Name, model.KindNumeric, f.Unit, source)
		}
		return model.NewNumeric(f.Name, f.Unit, source, x)
	}
}

// parseNumber converts a loosely typed counter to float64.
func parseNumber(v any) (float64, error) {
	var x float64
	switch t := v.(type) {
	case nil:
		return 0, model.ErrMalformedInput
	case float64:
		x = t
	case float32:
		x = float64(t)
	case int:
		x = float64(t)
	case int8:
		x = float64(t)
	case int16:
		x = float64(t)
	case int32:
		x = float64(t)
	case int64:
		x = float64(t)
	case uint:
		x = float64(t)
	case uint8:
		x = float64(t)
	case uint16:
		x = float64(t)
	case uint32:
		x = float64(t)
	case uint64:
		x = float64(t)
	case bool:
		if t {
			x = 1
		}
	case []byte:
		return parseNumber(string(t))
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, model.ErrMalformedInput
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", model.ErrMalformedInput, t)
		}
		x = f
	default:
		return 0, fmt.Errorf("%w: unsupported type %T", model.ErrMalformedInput, v)
	}
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, model.ErrMalformedInput
	}
	return x, nil
}

// parseFlag reads ON/OFF style switches and keeps the original text.
func parseFlag(v any) (bool, string, error) {
	switch t := v.(type) {
	case nil:
		return false, "", model.ErrMalformedInput
	case bool:
		if t {
			return true, "ON", nil
		}
		return false, "OFF", nil
	}

	text := textOf(v)
	switch strings.ToUpper(strings.TrimSpace(text)) {
	case "ON", "YES", "TRUE", "1":
		return true, text, nil
	case "OFF", "NO", "FALSE", "0":
		return false, text, nil
	}
	return false, "", fmt.Errorf("%w: flag %q", model.ErrMalformedInput, text)
}

func textOf(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}

// rowKey joins the row's key fields; the row index is used when a key part is missing.
func rowKey(rs model.RowSchema, raw map[string]any, index int) string {
	if len(rs.KeyFields) == 0 {
		return strconv.Itoa(index)
	}
	parts := make([]string, 0, len(rs.KeyFields))
	for _, k := range rs.KeyFields {
		v, ok := raw[k]
		if !ok || v == nil {
			return strconv.Itoa(index)
		}
		parts = append(parts, textOf(v))
	}
	return model.JoinKey(parts...)
}
