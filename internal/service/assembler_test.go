package service

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbhealth/internal/model"
)

func TestAssembler_Timestamp_Monotonic(t *testing.T) {
	a := NewAssembler("test", false)
	fixed := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return fixed }

	first := a.Timestamp()
	second := a.Timestamp()
	third := a.Timestamp()

	assert.Equal(t, fixed, first)
	assert.True(t, second.After(first))
	assert.True(t, third.After(second))
}

func TestAssembler_Timestamp_ClockStepsBack(t *testing.T) {
	a := NewAssembler("test", false)
	times := []time.Time{
		time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}
	i := 0
	a.now = func() time.Time {
		ts := times[i]
		i++
		return ts
	}

	first := a.Timestamp()
	second := a.Timestamp()
	assert.True(t, second.After(first))
}

func TestAssembler_Timestamp_Concurrent(t *testing.T) {
	a := NewAssembler("test", false)

	const n = 50
	results := make([]time.Time, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = a.Timestamp()
		}(i)
	}
	wg.Wait()

	seen := make(map[time.Time]bool, n)
	for _, ts := range results {
		assert.False(t, seen[ts], "timestamps must be unique")
		seen[ts] = true
	}
}

func TestAssembler_Assemble_OrderAndSummary(t *testing.T) {
	a := NewAssembler("1.0.0", false)
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	tables := model.NewDomainReport(model.DomainTables)
	tables.Status = model.StatusWarning
	tables.Warnings = []model.Finding{model.NewWarning("tables.size.large", model.SeverityWarning, "large")}
	tables.Recommendations = []model.Finding{model.NewRecommendation("tables.partition", "partition")}

	system := model.NewDomainReport(model.DomainSystem)
	server := model.NewDomainReport(model.DomainServer)
	server.Status = model.StatusUnavailable

	r := a.Assemble(ts, 3, model.Target{Host: "db", Port: 3306}, []*model.DomainReport{tables, nil, server, system}, []*model.RawSnapshot{model.NewRawSnapshot(model.DomainServer)})

	require.Len(t, r.Domains, 3)
	assert.Equal(t, model.DomainSystem, r.Domains[0].Domain)
	assert.Equal(t, model.DomainServer, r.Domains[1].Domain)
	assert.Equal(t, model.DomainTables, r.Domains[2].Domain)

	assert.Equal(t, ts, r.Timestamp)
	assert.Equal(t, "1.0", r.SchemaVersion)
	assert.Equal(t, "1.0.0", r.ToolVersion)
	assert.Equal(t, 3, r.Level)
	assert.Equal(t, model.StatusWarning, r.Summary.Status)
	assert.Equal(t, 1, r.Summary.Domains[model.StatusUnavailable])
	assert.Equal(t, 1, r.Summary.Findings.Warnings)
	assert.Equal(t, 1, r.Summary.Findings.Recommendations)
	assert.Nil(t, r.Raw, "raw snapshots are excluded unless requested")
}

func TestAssembler_Assemble_IncludeRaw(t *testing.T) {
	a := NewAssembler("1.0.0", true)
	raw := []*model.RawSnapshot{
		model.NewRawSnapshot(model.DomainEngine),
		model.NewRawSnapshot(model.DomainSystem),
	}

	r := a.Assemble(a.Timestamp(), 2, model.Target{}, nil, raw)

	require.Len(t, r.Raw, 2)
	assert.Equal(t, model.DomainSystem, r.Raw[0].Domain)
	assert.Equal(t, model.DomainEngine, r.Raw[1].Domain)
	assert.Equal(t, model.DomainEngine, raw[0].Domain, "input slice is not reordered")
	assert.Equal(t, model.StatusNormal, r.Summary.Status)
}
