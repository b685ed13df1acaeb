package service

import (
	"fmt"

	"dbhealth/internal/model"
)

// Slow query thresholds.
const (
	SlowQueryVolume    = 5      // samples
	HighLatencyQueryMs = 1000.0 // average latency per execution, ms
)

// Derived slow query metric names.
const (
	MetricSlowQuerySamples   = "slow_query_samples"
	MetricHighLatencyQueries = "high_latency_queries"
	slowQuerySampleSet       = "samples"
	slowQueryTopQuerySet     = "top_queries"
)

// EvaluateSlowQueries applies the slow-log volume and statement latency rules.
func EvaluateSlowQueries(rows []model.MetricRow) Assessment {
	var a Assessment

	samples := len(model.FilterRows(rows, slowQuerySampleSet))
	a.derive(derivedCount(MetricSlowQuerySamples, samples))
	if samples > SlowQueryVolume {
		a.warn(model.NewWarning("slow_queries.volume.high", model.SeverityWarning,
			fmt.Sprintf("High number of slow queries detected: %d", samples),
			MetricSlowQuerySamples))
		a.recommend(model.NewRecommendation("slow_queries.optimize",
			"Review and optimize slow queries",
			MetricSlowQuerySamples))
		a.recommend(model.NewRecommendation("slow_queries.long_query_time",
			"Consider increasing long_query_time if these queries are acceptable",
			MetricSlowQuerySamples, "long_query_time"))
	}

	flagged := 0
	for _, row := range model.FilterRows(rows, slowQueryTopQuerySet) {
		latency, ok := row.Metrics.Float("avg_latency")
		if !ok || latency <= HighLatencyQueryMs {
			continue
		}
		subject, ok := row.Metrics.Text("query")
		if !ok {
			subject = row.Key
		}
		flagged++
		a.warn(model.NewWarning("slow_queries.latency.high", model.SeverityWarning,
			fmt.Sprintf("Query with high average latency: %.1f ms", latency),
			"avg_latency").About(subject))
	}
	a.derive(derivedCount(MetricHighLatencyQueries, flagged))

	if flagged > 0 {
		a.recommend(model.NewRecommendation("slow_queries.latency.review",
			fmt.Sprintf("Review and optimize %d high latency queries", flagged),
			MetricHighLatencyQueries))
	}

	return a
}
