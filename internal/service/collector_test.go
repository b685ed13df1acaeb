package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbhealth/internal/model"
)

// fakeMySQL returns canned snapshots or a single error for every domain.
type fakeMySQL struct {
	err     error
	delay   time.Duration
	mu      sync.Mutex
	calls   []model.Domain
	running int32
	peak    int32
}

func (f *fakeMySQL) collect(ctx context.Context, domain model.Domain, counters map[string]any) (*model.RawSnapshot, error) {
	n := atomic.AddInt32(&f.running, 1)
	defer atomic.AddInt32(&f.running, -1)
	for {
		p := atomic.LoadInt32(&f.peak)
		if n <= p || atomic.CompareAndSwapInt32(&f.peak, p, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, domain)
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, model.NewSourceError(domain, "query", f.err)
	}
	snap := model.NewRawSnapshot(domain)
	snap.Merge(counters)
	return snap, nil
}

func (f *fakeMySQL) CollectServer(ctx context.Context) (*model.RawSnapshot, error) {
	return f.collect(ctx, model.DomainServer, map[string]any{
		"version": "8.0.36", "Threads_connected": "10", "max_connections": "100",
	})
}

func (f *fakeMySQL) CollectCache(ctx context.Context) (*model.RawSnapshot, error) {
	return f.collect(ctx, model.DomainCache, map[string]any{
		"query_cache_type": "ON", "Qcache_hits": "80", "Qcache_inserts": "20",
	})
}

func (f *fakeMySQL) CollectEngine(ctx context.Context) (*model.RawSnapshot, error) {
	return f.collect(ctx, model.DomainEngine, map[string]any{
		"Innodb_buffer_pool_read_requests": "1000", "Innodb_buffer_pool_reads": "10",
	})
}

func (f *fakeMySQL) CollectSlowQueries(ctx context.Context) (*model.RawSnapshot, error) {
	return f.collect(ctx, model.DomainSlowQueries, map[string]any{"slow_query_log": "OFF"})
}

func (f *fakeMySQL) CollectTables(ctx context.Context) (*model.RawSnapshot, error) {
	return f.collect(ctx, model.DomainTables, nil)
}

// fakeHost returns a fixed system snapshot.
type fakeHost struct {
	err error
}

func (f *fakeHost) Collect(ctx context.Context) (*model.RawSnapshot, error) {
	if f.err != nil {
		return nil, model.NewSourceError(model.DomainSystem, "host samplers", f.err)
	}
	snap := model.NewRawSnapshot(model.DomainSystem)
	snap.Merge(map[string]any{
		"cpu_percent":  12.5,
		"mem_percent":  40.0,
		"mem_total":    uint64(8 << 30),
		"disk_percent": 55.0,
		"disk_path":    "/",
	})
	return snap, nil
}

func TestPlan(t *testing.T) {
	tests := []struct {
		level        int
		enableTables bool
		want         []model.Domain
	}{
		{1, false, []model.Domain{model.DomainSystem, model.DomainServer}},
		{1, true, []model.Domain{model.DomainSystem, model.DomainServer, model.DomainTables}},
		{2, false, []model.Domain{model.DomainSystem, model.DomainServer, model.DomainCache, model.DomainEngine, model.DomainSlowQueries}},
		{3, false, model.AllDomains},
		{3, true, model.AllDomains},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Plan(tt.level, tt.enableTables), "level %d tables %v", tt.level, tt.enableTables)
	}
}

func TestNewCollector_RequiresSources(t *testing.T) {
	_, err := NewCollector(nil, &fakeHost{}, 1, zerolog.Nop())
	assert.Error(t, err)

	_, err = NewCollector(&fakeMySQL{}, nil, 1, zerolog.Nop())
	assert.Error(t, err)
}

func TestCollector_Collect_PlanOrder(t *testing.T) {
	c, err := NewCollector(&fakeMySQL{}, &fakeHost{}, 4, zerolog.Nop())
	require.NoError(t, err)

	snaps := c.Collect(context.Background(), model.AllDomains)
	require.Len(t, snaps, len(model.AllDomains))
	for i, d := range model.AllDomains {
		assert.Equal(t, d, snaps[i].Domain)
		assert.False(t, snaps[i].Failed())
	}
}

func TestCollector_Collect_DatabaseFailureIsIsolated(t *testing.T) {
	mysql := &fakeMySQL{err: errors.New("connection refused")}
	c, err := NewCollector(mysql, &fakeHost{}, 4, zerolog.Nop())
	require.NoError(t, err)

	snaps := c.Collect(context.Background(), Plan(2, false))
	require.Len(t, snaps, 5)

	assert.False(t, snaps[0].Failed(), "system snapshot must survive a database failure")
	assert.Equal(t, 12.5, snaps[0].Counters["cpu_percent"])

	for _, s := range snaps[1:] {
		require.True(t, s.Failed(), "domain %s", s.Domain)
		assert.True(t, errors.Is(s.Err, model.ErrSourceUnavailable))
	}
	assert.Len(t, mysql.calls, 4, "every adapter runs even after the first failure")
}

func TestCollector_Collect_BoundedAndJoined(t *testing.T) {
	mysql := &fakeMySQL{delay: 20 * time.Millisecond}
	c, err := NewCollector(mysql, &fakeHost{}, 2, zerolog.Nop())
	require.NoError(t, err)

	snaps := c.Collect(context.Background(), model.AllDomains)

	for _, s := range snaps {
		require.NotNil(t, s, "all tasks are joined before returning")
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&mysql.peak), int32(2))
}
