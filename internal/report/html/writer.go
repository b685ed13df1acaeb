// Package html provides HTML report generation for the monitoring agent.
// It implements the report.ReportWriter interface to generate .html files
// with the run summary, per-domain metrics, findings and advisory commands.
package html

import (
	"embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"dbhealth/internal/model"
)

//go:embed templates/*.html
var embeddedTemplates embed.FS

// Writer implements report.ReportWriter for HTML format.
type Writer struct {
	timezone     *time.Location
	templatePath string // User-defined template path (optional)
}

// TemplateData holds all data passed to the HTML template.
type TemplateData struct {
	Title       string
	Timestamp   string
	Target      string
	Version     string
	Level       int
	Status      string
	StatusClass string
	Summary     model.ReportSummary
	Domains     []*DomainData
	Findings    []*FindingData
	Advisory    *AdvisoryData
	ToolVersion string
	GeneratedAt string
}

// DomainData represents one domain formatted for template rendering.
type DomainData struct {
	Name            string
	Status          string
	StatusClass     string
	Error           string
	Metrics         []*MetricData
	Rows            []*RowData
	Warnings        int
	Recommendations int
}

// MetricData represents a metric formatted for template rendering.
type MetricData struct {
	Name   string
	Value  string
	Unit   string
	Source string
	IsNA   bool
}

// RowData represents one row of a row set.
type RowData struct {
	Set     string
	Key     string
	Metrics []*MetricData
}

// FindingData represents a warning or recommendation formatted for template rendering.
type FindingData struct {
	Domain        string
	Kind          string
	Severity      string
	SeverityClass string
	Rule          string
	Subject       string
	Message       string
}

// AdvisoryData represents the advisory section.
type AdvisoryData struct {
	Provider string
	Error    string
	Commands []*CommandData
}

// CommandData represents an advisory command and its decision.
type CommandData struct {
	ID            string
	Action        string
	Priority      string
	PriorityClass string
	TargetService string
	Parameters    map[string]any
	Rationale     string
	Decision      string
}

// NewWriter creates a new HTML report writer.
// If timezone is nil, it defaults to UTC.
// If templatePath is empty, the embedded default template will be used.
func NewWriter(timezone *time.Location, templatePath string) *Writer {
	if timezone == nil {
		timezone = time.UTC
	}
	return &Writer{
		timezone:     timezone,
		templatePath: templatePath,
	}
}

// Format returns the format identifier for this writer.
func (w *Writer) Format() string {
	return "html"
}

// Extension returns the file extension of the page.
func (w *Writer) Extension() string {
	return ".html"
}

// Write generates an HTML report from the monitoring report.
func (w *Writer) Write(r *model.MonitoringReport, outputPath string) error {
	if r == nil {
		return fmt.Errorf("monitoring report is nil")
	}

	if !strings.HasSuffix(strings.ToLower(outputPath), ".html") {
		outputPath = outputPath + ".html"
	}

	tmpl, err := w.loadTemplate()
	if err != nil {
		return fmt.Errorf("failed to load template: %w", err)
	}

	data := w.prepareTemplateData(r)

	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if err := tmpl.Execute(file, data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	return nil
}

// loadTemplate loads the HTML template.
// It first tries to load a user-defined template, then falls back to the embedded default.
func (w *Writer) loadTemplate() (*template.Template, error) {
	funcMap := template.FuncMap{
		"statusClass":   statusClass,
		"severityClass": severityClass,
		"upper":         strings.ToUpper,
		"join":          strings.Join,
	}

	if w.templatePath != "" {
		if _, err := os.Stat(w.templatePath); err == nil {
			tmpl, err := template.New(filepath.Base(w.templatePath)).Funcs(funcMap).ParseFiles(w.templatePath)
			if err != nil {
				return nil, fmt.Errorf("failed to parse user template: %w", err)
			}
			return tmpl, nil
		}
		// User template not found, fall through to default
	}

	tmpl, err := template.New("default.html").Funcs(funcMap).ParseFS(embeddedTemplates, "templates/default.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse embedded template: %w", err)
	}
	return tmpl, nil
}

// prepareTemplateData converts a MonitoringReport to TemplateData for template rendering.
func (w *Writer) prepareTemplateData(r *model.MonitoringReport) *TemplateData {
	target := r.Target.Host
	if r.Target.Port > 0 {
		target = fmt.Sprintf("%s:%d", r.Target.Host, r.Target.Port)
	}

	domains := make([]*DomainData, 0, len(r.Domains))
	for _, d := range r.Domains {
		domains = append(domains, w.convertDomain(d))
	}

	return &TemplateData{
		Title:       "MySQL Health Report",
		Timestamp:   r.Timestamp.In(w.timezone).Format("2006-01-02 15:04:05 MST"),
		Target:      target,
		Version:     r.Target.Version,
		Level:       r.Level,
		Status:      statusText(r.Summary.Status),
		StatusClass: statusClass(r.Summary.Status),
		Summary:     r.Summary,
		Domains:     domains,
		Findings:    w.convertFindings(r.Domains),
		Advisory:    w.convertAdvisory(r.Advisory),
		ToolVersion: r.ToolVersion,
		GeneratedAt: time.Now().In(w.timezone).Format("2006-01-02 15:04:05"),
	}
}

func (w *Writer) convertDomain(d *model.DomainReport) *DomainData {
	rows := make([]*RowData, 0, len(d.Rows))
	for _, row := range d.Rows {
		rows = append(rows, &RowData{
			Set:     row.Set,
			Key:     row.Key,
			Metrics: convertMetrics(row.Metrics),
		})
	}

	return &DomainData{
		Name:            string(d.Domain),
		Status:          statusText(d.Status),
		StatusClass:     statusClass(d.Status),
		Error:           d.Error,
		Metrics:         convertMetrics(d.Metrics),
		Rows:            rows,
		Warnings:        len(d.Warnings),
		Recommendations: len(d.Recommendations),
	}
}

func convertMetrics(set model.MetricSet) []*MetricData {
	out := make([]*MetricData, 0, len(set))
	for _, m := range set {
		out = append(out, &MetricData{
			Name:   m.Name,
			Value:  m.Display(),
			Unit:   string(m.Unit),
			Source: m.Source,
			IsNA:   !m.Available,
		})
	}
	return out
}

// convertFindings flattens findings across domains, critical warnings first
// and recommendations last.
func (w *Writer) convertFindings(domains []*model.DomainReport) []*FindingData {
	var warnings, recommendations []*FindingData
	for _, d := range domains {
		for _, f := range d.Warnings {
			warnings = append(warnings, newFindingData(d.Domain, f))
		}
		for _, f := range d.Recommendations {
			recommendations = append(recommendations, newFindingData(d.Domain, f))
		}
	}

	sort.SliceStable(warnings, func(i, j int) bool {
		return model.Severity(warnings[i].Severity).Rank() > model.Severity(warnings[j].Severity).Rank()
	})
	return append(warnings, recommendations...)
}

func newFindingData(domain model.Domain, f model.Finding) *FindingData {
	return &FindingData{
		Domain:        string(domain),
		Kind:          string(f.Kind),
		Severity:      string(f.Severity),
		SeverityClass: severityClass(f.Severity),
		Rule:          f.Rule,
		Subject:       f.Subject,
		Message:       f.Message,
	}
}

func (w *Writer) convertAdvisory(a *model.AdvisorySection) *AdvisoryData {
	if a == nil {
		return nil
	}

	decisions := make(map[string]model.ExecutionStatus, len(a.Executions))
	for _, e := range a.Executions {
		decisions[e.CommandID] = e.Status
	}

	commands := make([]*CommandData, 0, len(a.Commands))
	for _, c := range a.Commands {
		commands = append(commands, &CommandData{
			ID:            c.ID,
			Action:        c.Action,
			Priority:      string(c.Priority),
			PriorityClass: priorityClass(c.Priority),
			TargetService: c.TargetService,
			Parameters:    c.Parameters,
			Rationale:     c.Rationale,
			Decision:      string(decisions[c.ID]),
		})
	}

	return &AdvisoryData{
		Provider: a.Provider,
		Error:    a.Error,
		Commands: commands,
	}
}

// Helper functions

// statusText converts a domain status to display text.
func statusText(status model.DomainStatus) string {
	switch status {
	case model.StatusNormal:
		return "Normal"
	case model.StatusWarning:
		return "Warning"
	case model.StatusCritical:
		return "Critical"
	case model.StatusUnavailable:
		return "Unavailable"
	case model.StatusSkipped:
		return "Skipped"
	default:
		return "Unknown"
	}
}

// statusClass returns CSS class for a domain status.
func statusClass(status model.DomainStatus) string {
	switch status {
	case model.StatusNormal:
		return "status-normal"
	case model.StatusWarning:
		return "status-warning"
	case model.StatusCritical:
		return "status-critical"
	default:
		return "status-muted"
	}
}

// severityClass returns CSS class for a finding severity.
func severityClass(s model.Severity) string {
	switch s {
	case model.SeverityCritical:
		return "alert-critical"
	case model.SeverityWarning:
		return "alert-warning"
	default:
		return "alert-info"
	}
}

func priorityClass(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return "alert-critical"
	case model.PriorityMedium:
		return "alert-warning"
	default:
		return "alert-info"
	}
}
