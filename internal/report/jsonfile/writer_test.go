package jsonfile

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbhealth/internal/model"
	"dbhealth/internal/report/artifact"
)

func newTestReport() *model.MonitoringReport {
	ts := time.Date(2024, 5, 1, 10, 4, 5, 0, time.UTC)

	cache := model.NewDomainReport(model.DomainCache)
	cache.Metrics = model.MetricSet{
		model.NewNumeric("cache_hits", model.UnitCount, "cache", 80),
		model.Unavailable("cache_inserts", model.KindNumeric, model.UnitCount, "cache"),
	}
	cache.Recommendations = append(cache.Recommendations,
		model.NewRecommendation("cache.hit_ratio.good", "Query cache hit ratio is good", "cache_hit_ratio"))

	domains := []*model.DomainReport{cache}
	return &model.MonitoringReport{
		Timestamp:     ts,
		SchemaVersion: model.SchemaVersion,
		ToolVersion:   "test",
		Level:         2,
		Target:        model.Target{Host: "db", Port: 3306, Version: "5.7.44"},
		Domains:       domains,
		Summary:       model.NewReportSummary(domains),
	}
}

func TestSink_SaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	sink := NewSink(dir, "status_{{.Timestamp}}", zerolog.Nop())
	r := newTestReport()

	path, err := sink.Save(r)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "status_20240501_100405.json"), path)

	loaded, err := Load(path)
	require.NoError(t, err)

	doc, err := artifact.Document(r)
	require.NoError(t, err)
	assert.Equal(t, doc, loaded)
}

func TestSink_Save_UniqueNames(t *testing.T) {
	dir := t.TempDir()
	sink := NewSink(dir, "", zerolog.Nop())
	r := newTestReport()

	var paths []string
	for i := 0; i < 3; i++ {
		p, err := sink.Save(r)
		require.NoError(t, err)
		paths = append(paths, filepath.Base(p))
	}

	assert.Equal(t, []string{
		"status_20240501_100405.json",
		"status_20240501_100405_1.json",
		"status_20240501_100405_2.json",
	}, paths)
}

func TestSink_Save_KeepsExistingArtifact(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "status_20240501_100405.json")
	require.NoError(t, os.WriteFile(existing, []byte("keep"), 0644))

	path, err := NewSink(dir, "", zerolog.Nop()).Save(newTestReport())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "status_20240501_100405_1.json"), path)

	data, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "keep", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "the temp file is removed once the artifact is linked")
}

func TestSink_Save_ConcurrentRunsGetDistinctNames(t *testing.T) {
	dir := t.TempDir()
	sink := NewSink(dir, "", zerolog.Nop())
	r := newTestReport()

	const runs = 8
	paths := make([]string, runs)
	errs := make([]error, runs)
	var wg sync.WaitGroup
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			paths[i], errs[i] = sink.Save(r)
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for i := range paths {
		require.NoError(t, errs[i])
		assert.False(t, seen[paths[i]], "duplicate artifact path %s", paths[i])
		seen[paths[i]] = true
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, runs)
}

func TestSink_Save_SerializationFailureWritesNothing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	sink := NewSink(dir, "", zerolog.Nop())

	cyclic := map[string]any{}
	cyclic["self"] = cyclic
	snap := model.NewRawSnapshot(model.DomainServer)
	snap.Counters["loop"] = cyclic

	r := newTestReport()
	r.Raw = []*model.RawSnapshot{snap}

	_, err := sink.Save(r)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrSerialization))

	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr), "no output is created when serialization fails")
}

func TestSink_Save_SinkFailure(t *testing.T) {
	base := t.TempDir()
	blocker := filepath.Join(base, "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	sink := NewSink(filepath.Join(blocker, "reports"), "", zerolog.Nop())
	_, err := sink.Save(newTestReport())
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrSinkFailure))
}

func TestWriter_Write_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter()
	assert.Equal(t, "json", w.Format())

	path := filepath.Join(dir, "report.json")
	require.NoError(t, w.Write(newTestReport(), path))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "report.json", entries[0].Name())
}

func TestWriteAtomic_FailureRemovesTemp(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "occupied")
	require.NoError(t, os.Mkdir(target, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(target, "keep"), []byte("x"), 0644))

	// Renaming a file over a non-empty directory fails.
	err := writeAtomic(target, []byte("{}"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrSinkFailure))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "occupied", entries[0].Name())
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0644))
	_, err = Load(bad)
	assert.Error(t, err)
}
