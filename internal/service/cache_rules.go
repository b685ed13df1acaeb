package service

import (
	"fmt"
	"strings"

	"dbhealth/internal/model"
)

// Query cache thresholds, in percent unless noted.
const (
	CacheLowHitRatio      = 30.0
	CacheGoodHitRatio     = 80.0    // inclusive
	CacheTrafficThreshold = 10000.0 // hits + inserts
	CacheFragmentation    = 20.0
	CacheMemoryHigh       = 95.0
	CacheMemoryLow        = 20.0
	CacheEvictionDivisor  = 3.0 // prunes above inserts/3 indicate eviction pressure
)

// Derived cache metric names.
const (
	MetricCacheHitRatio      = "cache_hit_ratio"
	MetricCacheFragmentation = "cache_fragmentation_ratio"
	MetricCacheMemoryUsage   = "cache_memory_usage"
)

// CacheEnabled reports whether the query cache is present and switched on.
func CacheEnabled(m model.MetricSet) bool {
	cacheType, ok := m.Text("cache_type")
	if !ok {
		return false
	}
	switch strings.ToUpper(strings.TrimSpace(cacheType)) {
	case "OFF", "0", "":
		return false
	}
	if have, ok := m.Text("have_query_cache"); ok && strings.EqualFold(strings.TrimSpace(have), "NO") {
		return false
	}
	return true
}

// EvaluateCache applies the query cache rules. The whole domain is skipped
// when the cache is disabled.
func EvaluateCache(m model.MetricSet) Assessment {
	var a Assessment
	if !CacheEnabled(m) {
		a.Skipped = true
		return a
	}

	// Hit ratio; zero traffic is a valid 0 %.
	if v, ok := floats(m, "cache_hits", "cache_inserts"); ok {
		hits, inserts := v[0], v[1]
		total := hits + inserts
		ratio := 0.0
		if total > 0 {
			ratio = hits / total * 100
		}
		a.derive(derivedPercent(MetricCacheHitRatio, ratio, true))

		switch {
		case ratio < CacheLowHitRatio:
			a.warn(model.NewWarning("cache.hit_ratio.low", model.SeverityWarning,
				fmt.Sprintf("Low query cache hit ratio (%.2f%% < %.0f%%)", ratio, CacheLowHitRatio),
				MetricCacheHitRatio, "cache_hits", "cache_inserts"))
			if total > CacheTrafficThreshold {
				a.recommend(model.NewRecommendation("cache.size.increase_for_traffic",
					"Consider increasing query_cache_size as there is significant query traffic",
					MetricCacheHitRatio, "cache_size"))
			}
		case ratio >= CacheGoodHitRatio:
			a.recommend(model.NewRecommendation("cache.hit_ratio.good",
				fmt.Sprintf("Query cache hit ratio is good (%.2f%%)", ratio),
				MetricCacheHitRatio))
		}
	} else {
		a.derive(derivedPercent(MetricCacheHitRatio, 0, false))
	}

	// Fragmentation; total blocks floored at 1.
	if v, ok := floats(m, "cache_free_blocks", "cache_total_blocks"); ok {
		ratio := v[0] / max(v[1], 1) * 100
		a.derive(derivedPercent(MetricCacheFragmentation, ratio, true))
		if ratio > CacheFragmentation {
			a.warn(model.NewWarning("cache.fragmentation.high", model.SeverityWarning,
				fmt.Sprintf("High query cache fragmentation (%.2f%% > %.0f%%)", ratio, CacheFragmentation),
				MetricCacheFragmentation, "cache_free_blocks", "cache_total_blocks"))
			a.recommend(model.NewRecommendation("cache.flush",
				"Consider running FLUSH QUERY CACHE to defragment the cache",
				MetricCacheFragmentation))
		}
	} else {
		a.derive(derivedPercent(MetricCacheFragmentation, 0, false))
	}

	// Memory usage; cache size floored at 1.
	if v, ok := floats(m, "cache_size", "cache_free_memory"); ok {
		size, free := v[0], v[1]
		ratio := (size - free) / max(size, 1) * 100
		a.derive(derivedPercent(MetricCacheMemoryUsage, ratio, true))
		switch {
		case ratio > CacheMemoryHigh:
			a.warn(model.NewWarning("cache.memory.high", model.SeverityWarning,
				fmt.Sprintf("Query cache memory usage is very high (%.2f%% > %.0f%%)", ratio, CacheMemoryHigh),
				MetricCacheMemoryUsage, "cache_size", "cache_free_memory"))
			a.recommend(model.NewRecommendation("cache.size.increase",
				"Consider increasing query_cache_size",
				MetricCacheMemoryUsage, "cache_size"))
		case ratio < CacheMemoryLow:
			a.warn(model.NewWarning("cache.memory.low", model.SeverityWarning,
				fmt.Sprintf("Query cache memory usage is very low (%.2f%% < %.0f%%)", ratio, CacheMemoryLow),
				MetricCacheMemoryUsage, "cache_size", "cache_free_memory"))
			a.recommend(model.NewRecommendation("cache.size.decrease",
				"Consider decreasing query_cache_size to free up memory",
				MetricCacheMemoryUsage, "cache_size"))
		}
	} else {
		a.derive(derivedPercent(MetricCacheMemoryUsage, 0, false))
	}

	// Eviction pressure, only defined when there were inserts.
	if v, ok := floats(m, "cache_inserts", "cache_lowmem_prunes"); ok {
		inserts, prunes := v[0], v[1]
		if inserts > 0 && prunes > inserts/CacheEvictionDivisor {
			a.warn(model.NewWarning("cache.evictions.high", model.SeverityWarning,
				fmt.Sprintf("High number of queries removed due to low memory (%.0f prunes for %.0f inserts)", prunes, inserts),
				"cache_lowmem_prunes", "cache_inserts"))
			a.recommend(model.NewRecommendation("cache.evictions.reduce",
				"Consider increasing query_cache_size or reducing query_cache_limit",
				"cache_lowmem_prunes", "cache_size", "cache_limit"))
		}
	}

	return a
}
