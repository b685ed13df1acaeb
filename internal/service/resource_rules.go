package service

import (
	"fmt"

	"dbhealth/internal/config"
	"dbhealth/internal/model"
)

// MetricConnectionUsage is the derived connection usage percentage.
const MetricConnectionUsage = "connection_usage"

// classify returns the severity of value against a threshold pair, or false when below warning.
func classify(value float64, pair config.ThresholdPair) (model.Severity, bool) {
	switch {
	case value >= pair.Critical:
		return model.SeverityCritical, true
	case value >= pair.Warning:
		return model.SeverityWarning, true
	default:
		return "", false
	}
}

// EvaluateServer checks connection usage against the configured thresholds.
func EvaluateServer(m model.MetricSet, pair config.ThresholdPair) Assessment {
	var a Assessment

	v, ok := floats(m, "threads_connected", "max_connections")
	if !ok || v[1] <= 0 {
		a.derive(derivedPercent(MetricConnectionUsage, 0, false))
		return a
	}

	usage := v[0] / v[1] * 100
	a.derive(derivedPercent(MetricConnectionUsage, usage, true))

	if severity, breached := classify(usage, pair); breached {
		a.warn(model.NewWarning("server.connections.high", severity,
			fmt.Sprintf("Connection usage is %.2f%% (%.0f of %.0f)", usage, v[0], v[1]),
			MetricConnectionUsage, "threads_connected", "max_connections"))
		a.recommend(model.NewRecommendation("server.connections.raise",
			"Consider raising max_connections or pooling client connections",
			MetricConnectionUsage, "max_connections"))
	}
	return a
}

// resourceCheck binds a usage metric to its thresholds.
type resourceCheck struct {
	metric    string
	label     string
	pair      config.ThresholdPair
	advice    string
	guardedBy string // metric that must be positive for the check to apply
}

// EvaluateSystem checks CPU, memory, swap and disk usage against the configured thresholds.
func EvaluateSystem(m model.MetricSet, t *config.ThresholdsConfig) Assessment {
	var a Assessment

	checks := []resourceCheck{
		{metric: "cpu_usage", label: "CPU", pair: t.CPUUsage,
			advice: "Investigate CPU-intensive queries or add CPU capacity"},
		{metric: "memory_usage", label: "Memory", pair: t.MemoryUsage,
			advice: "Review memory allocation of the database server and co-located processes"},
		{metric: "swap_usage", label: "Swap", pair: t.SwapUsage, guardedBy: "swap_total",
			advice: "Reduce memory pressure to avoid swapping the database server"},
		{metric: "disk_usage", label: "Disk", pair: t.DiskUsage,
			advice: "Free disk space or extend the volume holding the data directory"},
	}

	for _, c := range checks {
		value, ok := m.Float(c.metric)
		if !ok {
			continue
		}
		if c.guardedBy != "" {
			if g, ok := m.Float(c.guardedBy); !ok || g <= 0 {
				continue
			}
		}
		severity, breached := classify(value, c.pair)
		if !breached {
			continue
		}
		a.warn(model.NewWarning("system."+c.metric+".high", severity,
			fmt.Sprintf("%s usage is %.2f%%", c.label, value), c.metric))
		a.recommend(model.NewRecommendation("system."+c.metric+".reduce", c.advice, c.metric))
	}
	return a
}
