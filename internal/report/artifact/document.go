package artifact

import (
	"fmt"
	"strings"
	"time"

	"dbhealth/internal/model"
)

// Document converts a report into the primitive artifact structure:
//
//	{"metadata": {"timestamp", "version", "tool_version"}, "data": {...}}
func Document(r *model.MonitoringReport) (map[string]any, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: nil report", model.ErrSerialization)
	}

	data, err := ToPrimitive(r)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"metadata": map[string]any{
			"timestamp":    r.Timestamp.Format(time.RFC3339Nano),
			"version":      r.SchemaVersion,
			"tool_version": r.ToolVersion,
		},
		"data": data,
	}, nil
}

// Filename expands a filename template for the given time.
// Supported placeholders are {{.Timestamp}} (20060102_150405) and {{.Date}} (2006-01-02).
func Filename(template string, ts time.Time) string {
	if template == "" {
		template = "status_{{.Timestamp}}"
	}
	name := strings.ReplaceAll(template, "{{.Timestamp}}", ts.Format("20060102_150405"))
	name = strings.ReplaceAll(name, "{{.Date}}", ts.Format("2006-01-02"))
	return name
}
