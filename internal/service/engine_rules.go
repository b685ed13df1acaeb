package service

import (
	"fmt"

	"dbhealth/internal/model"
)

// BufferPoolLowHitRatio is the InnoDB buffer pool hit ratio floor, in percent.
const BufferPoolLowHitRatio = 95.0

// Derived engine metric names.
const (
	MetricBufferPoolHitRatio = "buffer_pool_hit_ratio"
	MetricBufferPoolUsage    = "buffer_pool_usage"
)

// EvaluateEngine applies the InnoDB buffer pool rules.
func EvaluateEngine(m model.MetricSet) Assessment {
	var a Assessment

	// Only defined when there were logical read requests.
	v, ok := floats(m, "buffer_pool_read_requests", "buffer_pool_reads")
	if ok && v[0] > 0 {
		requests, reads := v[0], v[1]
		ratio := (requests - reads) / requests * 100
		a.derive(derivedPercent(MetricBufferPoolHitRatio, ratio, true))
		if ratio < BufferPoolLowHitRatio {
			a.warn(model.NewWarning("engine.buffer_pool.hit_ratio.low", model.SeverityWarning,
				fmt.Sprintf("Low buffer pool hit ratio: %.2f%%", ratio),
				MetricBufferPoolHitRatio, "buffer_pool_read_requests", "buffer_pool_reads"))
			a.recommend(model.NewRecommendation("engine.buffer_pool.increase",
				"Consider increasing innodb_buffer_pool_size",
				MetricBufferPoolHitRatio, "buffer_pool_size"))
		}
	} else {
		a.derive(derivedPercent(MetricBufferPoolHitRatio, 0, false))
	}

	pages, ok := floats(m, "buffer_pool_pages_total", "buffer_pool_pages_free")
	usageOK := ok && pages[0] > 0
	usage := 0.0
	if usageOK {
		usage = (pages[0] - pages[1]) / pages[0] * 100
	}
	a.derive(derivedPercent(MetricBufferPoolUsage, usage, usageOK))

	return a
}
