//go:build ignore
// +build ignore

// This script renders a sample health report in every format for manual verification.
// Run with: go run scripts/sample_report.go [output-dir]
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"dbhealth/internal/config"
	"dbhealth/internal/model"
	"dbhealth/internal/report"
	"dbhealth/internal/report/jsonfile"
	"dbhealth/internal/service"
)

func main() {
	dir := "."
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	schemas, err := config.LoadSchemas("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading schemas: %v\n", err)
		os.Exit(1)
	}

	logger := zerolog.Nop()
	normalizer := service.NewNormalizer(schemas)
	evaluator := service.NewEvaluator(&config.ThresholdsConfig{
		ConnectionUsage: config.ThresholdPair{Warning: 70, Critical: 90},
		CPUUsage:        config.ThresholdPair{Warning: 70, Critical: 90},
		MemoryUsage:     config.ThresholdPair{Warning: 70, Critical: 90},
		SwapUsage:       config.ThresholdPair{Warning: 50, Critical: 80},
		DiskUsage:       config.ThresholdPair{Warning: 80, Critical: 95},
	}, logger)

	snapshots := sampleSnapshots()
	domains := make([]*model.DomainReport, 0, len(snapshots))
	for _, snap := range snapshots {
		metrics, rows := normalizer.Normalize(snap)
		domains = append(domains, evaluator.Evaluate(snap.Domain, metrics, rows, snap.Err))
	}

	assembler := service.NewAssembler("1.0.0-sample", false)
	r := assembler.Assemble(assembler.Timestamp(), 2,
		model.Target{Host: "db-server-01", Port: 3306, Version: "5.7.44-log"}, domains, snapshots)

	path, err := jsonfile.NewSink(dir, "sample_{{.Timestamp}}", logger).Save(r)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error saving report: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✅ JSON report generated: %s\n", path)

	registry := report.NewRegistry(time.Local, "")
	for _, format := range []string{"excel", "html"} {
		w, _ := registry.Get(format)
		out := strings.TrimSuffix(path, ".json") + w.Extension()
		if err := w.Write(r, out); err != nil {
			fmt.Fprintf(os.Stderr, "Error generating %s report: %v\n", format, err)
			continue
		}
		fmt.Printf("✅ %s report generated: %s\n", format, out)
	}

	fmt.Println("\nPlease open the files to verify:")
	fmt.Println("  - system is critical (disk 96%), server is warning (connections 80%)")
	fmt.Println("  - the cache hit ratio recommendation is listed after the warnings")
	fmt.Println("  - the engine domain is unavailable with its error shown")
	fmt.Println("  - unavailable metrics read N/A")
}

func sampleSnapshots() []*model.RawSnapshot {
	system := model.NewRawSnapshot(model.DomainSystem)
	system.Merge(map[string]any{
		"cpu_percent":  35.5,
		"cpu_count":    8,
		"load1":        1.2,
		"mem_total":    17179869184,
		"mem_used":     9448928051,
		"mem_percent":  55.0,
		"swap_percent": 0.0,
		"disk_path":    "/var/lib/mysql",
		"disk_total":   536870912000,
		"disk_used":    515396075520,
		"disk_percent": 96.0,
	})

	server := model.NewRawSnapshot(model.DomainServer)
	server.Merge(map[string]any{
		"version":              "5.7.44-log",
		"Uptime":               "864000",
		"Threads_connected":    "120",
		"Threads_running":      "4",
		"max_connections":      "150",
		"Max_used_connections": "148",
	})

	cache := model.NewRawSnapshot(model.DomainCache)
	cache.Merge(map[string]any{
		"Qcache_hits":          "4000",
		"Qcache_inserts":       "6000",
		"Qcache_free_blocks":   "900",
		"Qcache_total_blocks":  "2000",
		"Qcache_free_memory":   "1048576",
		"Qcache_lowmem_prunes": "120",
		"query_cache_size":     "16777216",
		"query_cache_type":     "ON",
	})

	engine := model.NewRawSnapshot(model.DomainEngine)
	engine.Err = model.NewSourceError(model.DomainEngine, "query", fmt.Errorf("i/o timeout"))

	return []*model.RawSnapshot{system, server, cache, engine}
}
