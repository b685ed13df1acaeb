package service

import (
	"fmt"

	"dbhealth/internal/model"
)

// Table health thresholds.
const (
	LargeTableBytes    = 1 << 30 // 1 GiB, exclusive
	TableFreeSpaceRate = 0.2     // free space above this share of data size
)

// Derived table metric names.
const (
	MetricTableCount = "table_count"
	MetricIndexCount = "index_column_count"
	tableSet         = "tables"
	indexSet         = "indexes"
)

// EvaluateTables runs three independent checks on every table.
// A check whose inputs are unavailable is skipped for that table only.
func EvaluateTables(rows []model.MetricRow) Assessment {
	var a Assessment

	tables := model.FilterRows(rows, tableSet)
	a.derive(derivedCount(MetricTableCount, len(tables)))
	a.derive(derivedCount(MetricIndexCount, len(model.FilterRows(rows, indexSet))))

	for _, row := range tables {
		name := tableName(row)

		if size, ok := row.Metrics.Float("index_size"); ok && size == 0 {
			a.warn(model.NewWarning("tables.index.missing", model.SeverityWarning,
				fmt.Sprintf("Table %s has no indexes", name), "index_size").About(name))
			a.recommend(model.NewRecommendation("tables.index.add",
				fmt.Sprintf("Consider adding appropriate indexes to %s", name), "index_size").About(name))
		}

		data, dataOK := row.Metrics.Float("data_size")
		if dataOK && data > LargeTableBytes {
			a.warn(model.NewWarning("tables.size.large", model.SeverityWarning,
				fmt.Sprintf("Table %s is larger than 1GB", name), "data_size").About(name))
			a.recommend(model.NewRecommendation("tables.partition",
				fmt.Sprintf("Consider partitioning %s", name), "data_size").About(name))
		}

		if free, ok := row.Metrics.Float("free_space"); ok && dataOK && free > data*TableFreeSpaceRate {
			a.warn(model.NewWarning("tables.free_space.high", model.SeverityWarning,
				fmt.Sprintf("Table %s has significant free space", name), "free_space", "data_size").About(name))
			a.recommend(model.NewRecommendation("tables.optimize",
				fmt.Sprintf("Consider running OPTIMIZE TABLE on %s", name), "free_space").About(name))
		}
	}

	return a
}

// tableName returns database.table, falling back to the row key.
func tableName(row model.MetricRow) string {
	db, ok1 := row.Metrics.Text("database")
	table, ok2 := row.Metrics.Text("table")
	if !ok1 || !ok2 {
		return row.Key
	}
	return db + "." + table
}
