// Package model provides data models for the health-monitoring agent.
package model

// Domain identifies one metric subsystem.
type Domain string

const (
	DomainSystem      Domain = "system"       // CPU, RAM, swap, disk
	DomainServer      Domain = "server"       // connections, process list, global status
	DomainCache       Domain = "cache"        // query cache
	DomainEngine      Domain = "engine"       // InnoDB buffer pool and I/O
	DomainSlowQueries Domain = "slow_queries" // slow log samples, digest top queries
	DomainTables      Domain = "tables"       // table and index statistics
)

// AllDomains lists every domain in report order.
var AllDomains = []Domain{
	DomainSystem,
	DomainServer,
	DomainCache,
	DomainEngine,
	DomainSlowQueries,
	DomainTables,
}

// IsValid reports whether d is a known domain.
func (d Domain) IsValid() bool {
	for _, known := range AllDomains {
		if d == known {
			return true
		}
	}
	return false
}

// Order returns the position of the domain in report order, or len(AllDomains) if unknown.
func (d Domain) Order() int {
	for i, known := range AllDomains {
		if d == known {
			return i
		}
	}
	return len(AllDomains)
}

// DomainStatus represents the overall health of a domain.
type DomainStatus string

const (
	StatusNormal      DomainStatus = "normal"
	StatusWarning     DomainStatus = "warning"
	StatusCritical    DomainStatus = "critical"
	StatusUnavailable DomainStatus = "unavailable" // the adapter could not reach its source
	StatusSkipped     DomainStatus = "skipped"     // evaluation precondition not met (e.g. cache disabled)
)

// DomainReport is the evaluated result of one domain.
// Findings are derived only from the domain's own metrics.
type DomainReport struct {
	Domain          Domain       `json:"domain"`
	Status          DomainStatus `json:"status"`
	Metrics         MetricSet    `json:"metrics"`
	Rows            []MetricRow  `json:"rows,omitempty"`
	Warnings        []Finding    `json:"warnings"`
	Recommendations []Finding    `json:"recommendations"`
	Error           string       `json:"error,omitempty"` // source failure, if any
}

// NewDomainReport creates an empty report for the domain with normal status.
func NewDomainReport(domain Domain) *DomainReport {
	return &DomainReport{
		Domain:          domain,
		Status:          StatusNormal,
		Metrics:         MetricSet{},
		Warnings:        []Finding{},
		Recommendations: []Finding{},
	}
}

// HasCritical returns true if any warning is critical.
func (r *DomainReport) HasCritical() bool {
	for _, w := range r.Warnings {
		if w.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// RowSet returns the rows belonging to the named set, in order.
func (r *DomainReport) RowSet(set string) []MetricRow {
	return FilterRows(r.Rows, set)
}

// FilterRows returns the rows belonging to the named set, in order.
func FilterRows(rows []MetricRow, set string) []MetricRow {
	var out []MetricRow
	for _, row := range rows {
		if row.Set == set {
			out = append(out, row)
		}
	}
	return out
}
