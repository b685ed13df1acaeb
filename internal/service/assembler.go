package service

import (
	"sort"
	"sync"
	"time"

	"dbhealth/internal/model"
)

// Assembler builds MonitoringReports and issues their timestamps.
type Assembler struct {
	toolVersion string
	includeRaw  bool
	now         func() time.Time

	mu   sync.Mutex
	last time.Time
}

// NewAssembler creates an Assembler. Raw snapshots are attached to reports only when includeRaw is set.
func NewAssembler(toolVersion string, includeRaw bool) *Assembler {
	return &Assembler{
		toolVersion: toolVersion,
		includeRaw:  includeRaw,
		now:         time.Now,
	}
}

// Timestamp returns a time strictly after every timestamp previously issued
// by this assembler, even when the wall clock stalls or steps back.
func (a *Assembler) Timestamp() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()

	ts := a.now().Round(0)
	if !a.last.IsZero() && !ts.After(a.last) {
		ts = a.last.Add(time.Microsecond)
	}
	a.last = ts
	return ts
}

// Assemble merges domain reports in report order and computes the summary.
func (a *Assembler) Assemble(ts time.Time, level int, target model.Target, domains []*model.DomainReport, raw []*model.RawSnapshot) *model.MonitoringReport {
	ordered := make([]*model.DomainReport, 0, len(domains))
	for _, d := range domains {
		if d != nil {
			ordered = append(ordered, d)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Domain.Order() < ordered[j].Domain.Order()
	})

	r := &model.MonitoringReport{
		Timestamp:     ts,
		SchemaVersion: model.SchemaVersion,
		ToolVersion:   a.toolVersion,
		Level:         level,
		Target:        target,
		Domains:       ordered,
		Summary:       model.NewReportSummary(ordered),
	}

	if a.includeRaw && len(raw) > 0 {
		r.Raw = make([]*model.RawSnapshot, len(raw))
		copy(r.Raw, raw)
		sort.SliceStable(r.Raw, func(i, j int) bool {
			return r.Raw[i].Domain.Order() < r.Raw[j].Domain.Order()
		})
	}

	return r
}
