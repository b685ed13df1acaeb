// Package report provides report generation functionality for the monitoring agent.
// It defines the ReportWriter interface and provides implementations for
// the JSON artifact and the human-facing Excel and HTML formats.
package report

import (
	"dbhealth/internal/model"
)

// ReportWriter defines the interface for rendering monitoring reports.
type ReportWriter interface {
	// Write renders the report and saves it to outputPath. The path should
	// include the extension returned by Extension.
	Write(r *model.MonitoringReport, outputPath string) error

	// Format returns the format identifier for this writer.
	// Values are "json", "excel" and "html".
	Format() string

	// Extension returns the file extension, including the leading dot.
	Extension() string
}
