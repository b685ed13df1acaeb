package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"dbhealth/internal/model"
)

// MySQLSource is the database counter source.
type MySQLSource interface {
	CollectServer(ctx context.Context) (*model.RawSnapshot, error)
	CollectCache(ctx context.Context) (*model.RawSnapshot, error)
	CollectEngine(ctx context.Context) (*model.RawSnapshot, error)
	CollectSlowQueries(ctx context.Context) (*model.RawSnapshot, error)
	CollectTables(ctx context.Context) (*model.RawSnapshot, error)
}

// HostSource is the operating-system counter source.
type HostSource interface {
	Collect(ctx context.Context) (*model.RawSnapshot, error)
}

// Plan returns the domains collected at a monitoring level, in report order.
// Level 1 covers system and server, level 2 adds cache, engine and slow
// queries, level 3 adds tables. enableTables adds tables at any level.
func Plan(level int, enableTables bool) []model.Domain {
	plan := []model.Domain{model.DomainSystem, model.DomainServer}
	if level >= 2 {
		plan = append(plan, model.DomainCache, model.DomainEngine, model.DomainSlowQueries)
	}
	if level >= 3 || enableTables {
		plan = append(plan, model.DomainTables)
	}
	return plan
}

// Collector runs the adapters of a plan concurrently.
type Collector struct {
	mysql       MySQLSource
	host        HostSource
	concurrency int
	logger      zerolog.Logger
}

// NewCollector creates a Collector. concurrency bounds the number of adapters running at once.
func NewCollector(mysql MySQLSource, host HostSource, concurrency int, logger zerolog.Logger) (*Collector, error) {
	if mysql == nil {
		return nil, fmt.Errorf("mysql source is required")
	}
	if host == nil {
		return nil, fmt.Errorf("host source is required")
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Collector{
		mysql:       mysql,
		host:        host,
		concurrency: concurrency,
		logger:      logger.With().Str("component", "collector").Logger(),
	}, nil
}

// Collect runs one task per planned domain and waits for all of them.
// An adapter failure is carried in that domain's snapshot and never cancels
// the other tasks. Snapshots are returned in plan order.
func (c *Collector) Collect(ctx context.Context, plan []model.Domain) []*model.RawSnapshot {
	startTime := time.Now()
	snapshots := make([]*model.RawSnapshot, len(plan))

	// Tasks never return an error, so the group context is only cancelled by the parent.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for i, domain := range plan {
		i, domain := i, domain
		g.Go(func() error {
			snapshots[i] = c.collectDomain(gctx, domain)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, s := range snapshots {
		if s.Failed() {
			failed++
		}
	}

	c.logger.Info().
		Int("domains", len(plan)).
		Int("failed_domains", failed).
		Dur("duration", time.Since(startTime)).
		Msg("collection completed")

	return snapshots
}

func (c *Collector) collectDomain(ctx context.Context, domain model.Domain) *model.RawSnapshot {
	collect := c.sourceFor(domain)
	if collect == nil {
		return failedSnapshot(domain, fmt.Errorf("no source for domain %s", domain))
	}

	snap, err := collect(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Str("domain", string(domain)).Msg("domain collection failed")
		return failedSnapshot(domain, err)
	}
	if snap == nil {
		return failedSnapshot(domain, fmt.Errorf("%s source returned no data", domain))
	}
	snap.Domain = domain
	return snap
}

func (c *Collector) sourceFor(domain model.Domain) func(context.Context) (*model.RawSnapshot, error) {
	switch domain {
	case model.DomainSystem:
		return c.host.Collect
	case model.DomainServer:
		return c.mysql.CollectServer
	case model.DomainCache:
		return c.mysql.CollectCache
	case model.DomainEngine:
		return c.mysql.CollectEngine
	case model.DomainSlowQueries:
		return c.mysql.CollectSlowQueries
	case model.DomainTables:
		return c.mysql.CollectTables
	}
	return nil
}

func failedSnapshot(domain model.Domain, err error) *model.RawSnapshot {
	snap := model.NewRawSnapshot(domain)
	snap.Err = err
	return snap
}
