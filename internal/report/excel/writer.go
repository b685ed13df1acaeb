// Package excel provides Excel report generation for the monitoring agent.
// It implements the report.ReportWriter interface to generate .xlsx files
// with the run summary, normalized metrics, findings and advisory commands.
package excel

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"dbhealth/internal/model"
)

const (
	// Sheet names
	sheetSummary  = "Summary"
	sheetMetrics  = "Metrics"
	sheetDetails  = "Details"
	sheetFindings = "Findings"
	sheetAdvisory = "Advisory"

	// Default sheet to remove
	defaultSheet = "Sheet1"

	// Colors for conditional formatting (RGB without #)
	colorWarningBg  = "FFEB9C" // Yellow background for warning
	colorWarningFg  = "9C6500" // Dark yellow text for warning
	colorCriticalBg = "FFC7CE" // Red background for critical
	colorCriticalFg = "9C0006" // Dark red text for critical
	colorHeaderBg   = "4472C4" // Blue background for header
	colorHeaderFg   = "FFFFFF" // White text for header
	colorNormalBg   = "C6EFCE" // Green background for normal
	colorNormalFg   = "006100" // Dark green text for normal
	colorMutedFg    = "808080" // Grey text for unavailable and skipped
)

// Writer implements report.ReportWriter for Excel format.
type Writer struct {
	timezone *time.Location
}

// NewWriter creates a new Excel report writer.
// If timezone is nil, it defaults to UTC.
func NewWriter(timezone *time.Location) *Writer {
	if timezone == nil {
		timezone = time.UTC
	}
	return &Writer{
		timezone: timezone,
	}
}

// Format returns the format identifier for this writer.
func (w *Writer) Format() string {
	return "excel"
}

// Extension returns the file extension of the workbook.
func (w *Writer) Extension() string {
	return ".xlsx"
}

// styles holds the style ids shared by all sheets of one workbook.
type styles struct {
	header   int
	warning  int
	critical int
	normal   int
	muted    int
}

// Write generates an Excel report from the monitoring report.
func (w *Writer) Write(r *model.MonitoringReport, outputPath string) error {
	if r == nil {
		return fmt.Errorf("monitoring report is nil")
	}

	if !strings.HasSuffix(strings.ToLower(outputPath), ".xlsx") {
		outputPath = outputPath + ".xlsx"
	}

	f := excelize.NewFile()
	defer f.Close()

	st, err := w.createStyles(f)
	if err != nil {
		return fmt.Errorf("failed to create styles: %w", err)
	}

	if err := w.createSummarySheet(f, r, st); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}
	if err := w.createMetricsSheet(f, r, st); err != nil {
		return fmt.Errorf("failed to create metrics sheet: %w", err)
	}
	if err := w.createDetailsSheet(f, r, st); err != nil {
		return fmt.Errorf("failed to create details sheet: %w", err)
	}
	if err := w.createFindingsSheet(f, r, st); err != nil {
		return fmt.Errorf("failed to create findings sheet: %w", err)
	}
	if r.Advisory != nil {
		if err := w.createAdvisorySheet(f, r.Advisory, st); err != nil {
			return fmt.Errorf("failed to create advisory sheet: %w", err)
		}
	}

	// Sheet1 may already be gone; the error is irrelevant.
	_ = f.DeleteSheet(defaultSheet)

	idx, _ := f.GetSheetIndex(sheetSummary)
	f.SetActiveSheet(idx)

	if err := f.SaveAs(outputPath); err != nil {
		return fmt.Errorf("failed to save Excel file: %w", err)
	}
	return nil
}

// createSummarySheet writes run metadata followed by the per-domain status table.
func (w *Writer) createSummarySheet(f *excelize.File, r *model.MonitoringReport, st styles) error {
	if _, err := f.NewSheet(sheetSummary); err != nil {
		return err
	}

	titleStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
			Size: 18,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return err
	}

	f.SetColWidth(sheetSummary, "A", "A", 22)
	f.SetColWidth(sheetSummary, "B", "B", 30)
	f.SetColWidth(sheetSummary, "C", "D", 16)
	f.SetColWidth(sheetSummary, "E", "E", 50)

	f.MergeCell(sheetSummary, "A1", "E1")
	f.SetCellValue(sheetSummary, "A1", "MySQL Health Report")
	f.SetCellStyle(sheetSummary, "A1", "E1", titleStyle)
	f.SetRowHeight(sheetSummary, 1, 30)

	target := r.Target.Host
	if r.Target.Port > 0 {
		target = fmt.Sprintf("%s:%d", r.Target.Host, r.Target.Port)
	}

	summaryData := []struct {
		label string
		value interface{}
	}{
		{"Timestamp", r.Timestamp.In(w.timezone).Format("2006-01-02 15:04:05 MST")},
		{"Target", target},
		{"Server Version", valueOrNA(r.Target.Version)},
		{"Monitoring Level", r.Level},
		{"Overall Status", statusText(r.Summary.Status)},
		{"Warnings", r.Summary.Findings.Warnings},
		{"Critical", r.Summary.Findings.Critical},
		{"Recommendations", r.Summary.Findings.Recommendations},
	}
	if r.ToolVersion != "" {
		summaryData = append(summaryData, struct {
			label string
			value interface{}
		}{"Tool Version", r.ToolVersion})
	}

	row := 3
	for _, item := range summaryData {
		label := fmt.Sprintf("A%d", row)
		value := fmt.Sprintf("B%d", row)
		f.SetCellValue(sheetSummary, label, item.label)
		f.SetCellValue(sheetSummary, value, item.value)
		f.SetCellStyle(sheetSummary, label, label, st.header)
		if item.label == "Overall Status" {
			if style := statusStyle(r.Summary.Status, st); style > 0 {
				f.SetCellStyle(sheetSummary, value, value, style)
			}
		}
		row++
	}

	row++
	headers := []string{"Domain", "Status", "Warnings", "Recommendations", "Error"}
	w.writeHeaderRow(f, sheetSummary, row, headers, st)
	row++

	for _, d := range r.Domains {
		rowStr := fmt.Sprintf("%d", row)
		f.SetCellValue(sheetSummary, "A"+rowStr, string(d.Domain))
		f.SetCellValue(sheetSummary, "B"+rowStr, statusText(d.Status))
		f.SetCellValue(sheetSummary, "C"+rowStr, len(d.Warnings))
		f.SetCellValue(sheetSummary, "D"+rowStr, len(d.Recommendations))
		f.SetCellValue(sheetSummary, "E"+rowStr, d.Error)
		if style := statusStyle(d.Status, st); style > 0 {
			f.SetCellStyle(sheetSummary, "B"+rowStr, "B"+rowStr, style)
		}
		row++
	}

	return nil
}

// createMetricsSheet lists every domain-level metric, derived ones included.
func (w *Writer) createMetricsSheet(f *excelize.File, r *model.MonitoringReport, st styles) error {
	if _, err := f.NewSheet(sheetMetrics); err != nil {
		return err
	}

	headers := []string{"Domain", "Metric", "Value", "Unit", "Source", "Key"}
	colWidths := []float64{14, 32, 20, 10, 14, 32}
	w.setColumnWidths(f, sheetMetrics, colWidths)
	w.writeHeaderRow(f, sheetMetrics, 1, headers, st)
	w.freezeHeader(f, sheetMetrics)

	row := 2
	for _, d := range r.Domains {
		for _, m := range d.Metrics {
			rowStr := fmt.Sprintf("%d", row)
			f.SetCellValue(sheetMetrics, "A"+rowStr, string(d.Domain))
			f.SetCellValue(sheetMetrics, "B"+rowStr, m.Name)
			w.setMetricCell(f, sheetMetrics, "C"+rowStr, m, st)
			f.SetCellValue(sheetMetrics, "D"+rowStr, string(m.Unit))
			f.SetCellValue(sheetMetrics, "E"+rowStr, m.Source)
			f.SetCellValue(sheetMetrics, "F"+rowStr, m.Key)
			row++
		}
	}
	return nil
}

// createDetailsSheet lists row sets (processes, top queries, tables) one row per entry.
func (w *Writer) createDetailsSheet(f *excelize.File, r *model.MonitoringReport, st styles) error {
	if _, err := f.NewSheet(sheetDetails); err != nil {
		return err
	}

	headers := []string{"Domain", "Set", "Key", "Values"}
	colWidths := []float64{14, 14, 40, 100}
	w.setColumnWidths(f, sheetDetails, colWidths)
	w.writeHeaderRow(f, sheetDetails, 1, headers, st)
	w.freezeHeader(f, sheetDetails)

	row := 2
	for _, d := range r.Domains {
		for _, mr := range d.Rows {
			rowStr := fmt.Sprintf("%d", row)
			f.SetCellValue(sheetDetails, "A"+rowStr, string(d.Domain))
			f.SetCellValue(sheetDetails, "B"+rowStr, mr.Set)
			f.SetCellValue(sheetDetails, "C"+rowStr, mr.Key)
			f.SetCellValue(sheetDetails, "D"+rowStr, joinMetrics(mr.Metrics))
			row++
		}
	}
	return nil
}

// createFindingsSheet lists warnings (critical first) followed by recommendations.
func (w *Writer) createFindingsSheet(f *excelize.File, r *model.MonitoringReport, st styles) error {
	if _, err := f.NewSheet(sheetFindings); err != nil {
		return err
	}

	headers := []string{"Domain", "Kind", "Severity", "Rule", "Subject", "Message", "Metrics"}
	colWidths := []float64{14, 16, 12, 34, 30, 70, 30}
	w.setColumnWidths(f, sheetFindings, colWidths)
	w.writeHeaderRow(f, sheetFindings, 1, headers, st)
	w.freezeHeader(f, sheetFindings)

	type entry struct {
		domain  model.Domain
		finding model.Finding
	}
	var warnings, recommendations []entry
	for _, d := range r.Domains {
		for _, fd := range d.Warnings {
			warnings = append(warnings, entry{d.Domain, fd})
		}
		for _, fd := range d.Recommendations {
			recommendations = append(recommendations, entry{d.Domain, fd})
		}
	}
	sort.SliceStable(warnings, func(i, j int) bool {
		return warnings[i].finding.Severity.Rank() > warnings[j].finding.Severity.Rank()
	})

	row := 2
	for _, e := range append(warnings, recommendations...) {
		rowStr := fmt.Sprintf("%d", row)
		f.SetCellValue(sheetFindings, "A"+rowStr, string(e.domain))
		f.SetCellValue(sheetFindings, "B"+rowStr, string(e.finding.Kind))
		f.SetCellValue(sheetFindings, "C"+rowStr, string(e.finding.Severity))
		f.SetCellValue(sheetFindings, "D"+rowStr, e.finding.Rule)
		f.SetCellValue(sheetFindings, "E"+rowStr, e.finding.Subject)
		f.SetCellValue(sheetFindings, "F"+rowStr, e.finding.Message)
		f.SetCellValue(sheetFindings, "G"+rowStr, strings.Join(e.finding.Metrics, ", "))

		var style int
		switch e.finding.Severity {
		case model.SeverityCritical:
			style = st.critical
		case model.SeverityWarning:
			style = st.warning
		}
		if style > 0 {
			f.SetCellStyle(sheetFindings, "C"+rowStr, "C"+rowStr, style)
		}
		row++
	}
	return nil
}

// createAdvisorySheet lists the suggested commands and the decision taken on each.
func (w *Writer) createAdvisorySheet(f *excelize.File, a *model.AdvisorySection, st styles) error {
	if _, err := f.NewSheet(sheetAdvisory); err != nil {
		return err
	}

	headers := []string{"ID", "Priority", "Action", "Target Service", "Parameters", "Rationale", "Decision"}
	colWidths := []float64{38, 10, 30, 14, 40, 70, 12}
	w.setColumnWidths(f, sheetAdvisory, colWidths)
	w.writeHeaderRow(f, sheetAdvisory, 1, headers, st)
	w.freezeHeader(f, sheetAdvisory)

	decisions := make(map[string]model.ExecutionStatus, len(a.Executions))
	for _, e := range a.Executions {
		decisions[e.CommandID] = e.Status
	}

	row := 2
	if a.Error != "" {
		f.MergeCell(sheetAdvisory, "A2", "G2")
		f.SetCellValue(sheetAdvisory, "A2", fmt.Sprintf("Advisory unavailable (%s): %s", a.Provider, a.Error))
		f.SetCellStyle(sheetAdvisory, "A2", "G2", st.warning)
		row++
	}

	for _, c := range a.Commands {
		rowStr := fmt.Sprintf("%d", row)
		f.SetCellValue(sheetAdvisory, "A"+rowStr, c.ID)
		f.SetCellValue(sheetAdvisory, "B"+rowStr, string(c.Priority))
		f.SetCellValue(sheetAdvisory, "C"+rowStr, c.Action)
		f.SetCellValue(sheetAdvisory, "D"+rowStr, c.TargetService)
		f.SetCellValue(sheetAdvisory, "E"+rowStr, formatParameters(c.Parameters))
		f.SetCellValue(sheetAdvisory, "F"+rowStr, c.Rationale)
		if status, ok := decisions[c.ID]; ok {
			f.SetCellValue(sheetAdvisory, "G"+rowStr, string(status))
			if status == model.ExecutionApproved {
				f.SetCellStyle(sheetAdvisory, "G"+rowStr, "G"+rowStr, st.normal)
			}
		}
		if c.Priority == model.PriorityHigh {
			f.SetCellStyle(sheetAdvisory, "B"+rowStr, "B"+rowStr, st.critical)
		}
		row++
	}
	return nil
}

// ============================================================================
// Helper functions
// ============================================================================

func (w *Writer) createStyles(f *excelize.File) (styles, error) {
	var st styles
	var err error

	if st.header, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold:  true,
			Size:  11,
			Color: colorHeaderFg,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{colorHeaderBg},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	}); err != nil {
		return st, err
	}
	if st.warning, err = fillStyle(f, colorWarningFg, colorWarningBg); err != nil {
		return st, err
	}
	if st.critical, err = fillStyle(f, colorCriticalFg, colorCriticalBg); err != nil {
		return st, err
	}
	if st.normal, err = fillStyle(f, colorNormalFg, colorNormalBg); err != nil {
		return st, err
	}
	if st.muted, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Italic: true,
			Color:  colorMutedFg,
		},
	}); err != nil {
		return st, err
	}
	return st, nil
}

func fillStyle(f *excelize.File, fg, bg string) (int, error) {
	return f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Color: fg,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{bg},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
}

func (w *Writer) writeHeaderRow(f *excelize.File, sheet string, row int, headers []string, st styles) {
	for i, header := range headers {
		cell := fmt.Sprintf("%s%d", columnName(i+1), row)
		f.SetCellValue(sheet, cell, header)
		f.SetCellStyle(sheet, cell, cell, st.header)
	}
	f.SetRowHeight(sheet, row, 25)
}

func (w *Writer) setColumnWidths(f *excelize.File, sheet string, widths []float64) {
	for i, width := range widths {
		col := columnName(i + 1)
		f.SetColWidth(sheet, col, col, width)
	}
}

func (w *Writer) freezeHeader(f *excelize.File, sheet string) {
	f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		Split:       false,
		XSplit:      0,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

// setMetricCell writes the display value; unavailable metrics are shown as N/A.
func (w *Writer) setMetricCell(f *excelize.File, sheet, cell string, m model.Metric, st styles) {
	if !m.Available {
		f.SetCellValue(sheet, cell, "N/A")
		f.SetCellStyle(sheet, cell, cell, st.muted)
		return
	}
	f.SetCellValue(sheet, cell, m.Display())
}

func statusStyle(status model.DomainStatus, st styles) int {
	switch status {
	case model.StatusCritical:
		return st.critical
	case model.StatusWarning:
		return st.warning
	case model.StatusNormal:
		return st.normal
	case model.StatusUnavailable, model.StatusSkipped:
		return st.muted
	default:
		return 0
	}
}

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

func joinMetrics(set model.MetricSet) string {
	parts := make([]string, 0, len(set))
	for _, m := range set {
		parts = append(parts, m.Name+"="+m.Display())
	}
	return strings.Join(parts, "; ")
}

func formatParameters(params map[string]any) string {
	if len(params) == 0 {
		return "{}"
	}
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Sprint(params)
	}
	return string(data)
}

func valueOrNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// columnName converts a 1-based column index to Excel column name (A, B, ..., Z, AA, AB, ...).
func columnName(index int) string {
	result := ""
	for index > 0 {
		index--
		result = string(rune('A'+index%26)) + result
		index /= 26
	}
	return result
}
