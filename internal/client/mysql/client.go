// Package mysql provides the MySQL counter source adapter.
// Each Collect method runs the statements of one domain and returns a raw,
// loosely typed snapshot; connection or query failures are reported as
// model.SourceError values scoped to that domain.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	driver "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"

	"dbhealth/internal/config"
	"dbhealth/internal/model"
)

const (
	// slowLogLimit caps the number of slow-log samples retrieved.
	slowLogLimit = 10
	// topQueryLimit caps the number of performance-schema digests retrieved.
	topQueryLimit = 10
)

// systemSchemas are excluded from table statistics.
var systemSchemas = []string{"information_schema", "mysql", "performance_schema", "sys"}

// Client is a read-only MySQL counter source.
type Client struct {
	db      *sql.DB
	address string
	logger  zerolog.Logger
}

// NewClient opens a connection handle for the configured server.
// No connection is made until the first query.
func NewClient(cfg *config.DatabaseConfig, logger zerolog.Logger) (*Client, error) {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	address := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))

	dsnCfg := driver.NewConfig()
	dsnCfg.User = cfg.User
	dsnCfg.Passwd = cfg.Password
	dsnCfg.Net = "tcp"
	dsnCfg.Addr = address
	dsnCfg.Timeout = timeout
	dsnCfg.ReadTimeout = timeout
	dsnCfg.AllowNativePasswords = true

	db, err := sql.Open("mysql", dsnCfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL handle: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(time.Minute)

	return newClient(db, address, logger), nil
}

// NewClientWithDB wraps an existing handle. Used by tests.
func NewClientWithDB(db *sql.DB, address string, logger zerolog.Logger) *Client {
	return newClient(db, address, logger)
}

func newClient(db *sql.DB, address string, logger zerolog.Logger) *Client {
	return &Client{
		db:      db,
		address: address,
		logger:  logger.With().Str("component", "mysql-client").Str("address", address).Logger(),
	}
}

// Address returns host:port of the monitored server.
func (c *Client) Address() string {
	return c.address
}

// Close releases the connection handle.
func (c *Client) Close() error {
	return c.db.Close()
}

// Ping checks that the server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return model.NewSourceError(model.DomainServer, "ping", err)
	}
	return nil
}

// =============================================================================
// Domain collectors
// =============================================================================

// CollectServer gathers version, global status, global variables and the process list.
func (c *Client) CollectServer(ctx context.Context) (*model.RawSnapshot, error) {
	snap := model.NewRawSnapshot(model.DomainServer)

	var version string
	if err := c.db.QueryRowContext(ctx, "SELECT VERSION()").Scan(&version); err != nil {
		return nil, model.NewSourceError(model.DomainServer, "SELECT VERSION()", err)
	}
	snap.Counters["version"] = version

	for _, stmt := range []string{"SHOW GLOBAL STATUS", "SHOW GLOBAL VARIABLES"} {
		kv, err := c.queryKeyValue(ctx, stmt)
		if err != nil {
			return nil, model.NewSourceError(model.DomainServer, stmt, err)
		}
		snap.Merge(kv)
	}

	processes, err := c.queryRows(ctx, "SHOW FULL PROCESSLIST")
	if err != nil {
		c.logger.Warn().Err(err).Msg("failed to read process list")
	} else {
		snap.Rows["processlist"] = processes
	}

	c.logger.Debug().Int("counters", len(snap.Counters)).Int("processes", len(processes)).Msg("server counters collected")
	return snap, nil
}

// CollectCache gathers query cache configuration and statistics.
func (c *Client) CollectCache(ctx context.Context) (*model.RawSnapshot, error) {
	return c.collectKeyValues(ctx, model.DomainCache,
		"SHOW GLOBAL VARIABLES LIKE 'query_cache%'",
		"SHOW GLOBAL VARIABLES LIKE 'have_query_cache'",
		"SHOW GLOBAL STATUS LIKE 'Qcache%'",
	)
}

// CollectEngine gathers InnoDB buffer pool, data I/O and row lock counters.
func (c *Client) CollectEngine(ctx context.Context) (*model.RawSnapshot, error) {
	return c.collectKeyValues(ctx, model.DomainEngine,
		"SHOW GLOBAL VARIABLES LIKE 'innodb_buffer_pool_size'",
		"SHOW GLOBAL STATUS LIKE 'Innodb_buffer_pool%'",
		"SHOW GLOBAL STATUS LIKE 'Innodb_data%'",
		"SHOW GLOBAL STATUS LIKE 'Innodb_row_lock%'",
	)
}

// CollectSlowQueries gathers slow-log settings and samples, the top statements
// by total latency and the number of owned metadata locks.
// Only the settings query is required; the others degrade to absent row sets.
func (c *Client) CollectSlowQueries(ctx context.Context) (*model.RawSnapshot, error) {
	snap, err := c.collectKeyValues(ctx, model.DomainSlowQueries,
		"SHOW GLOBAL VARIABLES LIKE 'slow_query_log'",
		"SHOW GLOBAL VARIABLES LIKE 'long_query_time'",
	)
	if err != nil {
		return nil, err
	}

	if isOn(snap.Counters["slow_query_log"]) {
		samples, err := c.queryRows(ctx, slowLogQuery)
		if err != nil {
			c.logger.Warn().Err(err).Msg("failed to read mysql.slow_log")
		} else {
			snap.Rows["samples"] = samples
		}
	} else {
		snap.Rows["samples"] = []map[string]any{}
	}

	top, err := c.queryRows(ctx, topQueriesQuery)
	if err != nil {
		c.logger.Warn().Err(err).Msg("performance_schema digests unavailable")
	} else {
		snap.Rows["top_queries"] = top
	}

	var locks int64
	if err := c.db.QueryRowContext(ctx, metadataLocksQuery).Scan(&locks); err != nil {
		c.logger.Warn().Err(err).Msg("performance_schema metadata locks unavailable")
	} else {
		snap.Counters["metadata_locks"] = locks
	}

	return snap, nil
}

// CollectTables gathers per-table size statistics and index definitions.
func (c *Client) CollectTables(ctx context.Context) (*model.RawSnapshot, error) {
	snap := model.NewRawSnapshot(model.DomainTables)

	tables, err := c.queryRows(ctx, tableStatsQuery)
	if err != nil {
		return nil, model.NewSourceError(model.DomainTables, "information_schema.tables", err)
	}
	snap.Rows["tables"] = tables

	indexes, err := c.queryRows(ctx, indexStatsQuery)
	if err != nil {
		c.logger.Warn().Err(err).Msg("failed to read information_schema.statistics")
	} else {
		snap.Rows["indexes"] = indexes
	}

	c.logger.Debug().Int("tables", len(tables)).Int("indexes", len(indexes)).Msg("table statistics collected")
	return snap, nil
}

// =============================================================================
// Queries
// =============================================================================

var (
	slowLogQuery = fmt.Sprintf(`SELECT start_time, thread_id, user_host,
	TIME_TO_SEC(query_time) * 1000 AS query_time_ms,
	TIME_TO_SEC(lock_time) * 1000 AS lock_time_ms,
	rows_sent, rows_examined, db,
	CONVERT(sql_text USING utf8mb4) AS sql_text
FROM mysql.slow_log
ORDER BY start_time DESC
LIMIT %d`, slowLogLimit)

	topQueriesQuery = fmt.Sprintf(`SELECT COALESCE(digest, '') AS digest,
	COALESCE(digest_text, 'Unknown') AS query,
	count_star AS executions,
	COALESCE(avg_timer_wait / 1000000000, 0) AS avg_latency_ms,
	COALESCE(sum_timer_wait / 1000000000, 0) AS total_latency_ms
FROM performance_schema.events_statements_summary_by_digest
ORDER BY sum_timer_wait DESC
LIMIT %d`, topQueryLimit)

	metadataLocksQuery = `SELECT COUNT(*) FROM performance_schema.metadata_locks WHERE OWNER_THREAD_ID IS NOT NULL`

	tableStatsQuery = `SELECT table_schema AS 'Database',
	table_name AS 'Table',
	engine AS 'Engine',
	row_format AS 'Row_Format',
	table_rows AS 'Rows',
	avg_row_length AS 'Avg_Row_Length',
	data_length AS 'Data_Size',
	index_length AS 'Index_Size',
	data_free AS 'Free_Space'
FROM information_schema.tables
WHERE table_type = 'BASE TABLE' AND table_schema NOT IN (` + quoteList(systemSchemas) + `)
ORDER BY table_schema, table_name`

	indexStatsQuery = `SELECT table_schema AS 'Database',
	table_name AS 'Table',
	index_name AS 'Index_Name',
	column_name AS 'Column',
	cardinality AS 'Cardinality',
	nullable AS 'Is_Nullable'
FROM information_schema.statistics
WHERE table_schema NOT IN (` + quoteList(systemSchemas) + `)
ORDER BY table_schema, table_name, index_name, seq_in_index`
)

// =============================================================================
// Helpers
// =============================================================================

// collectKeyValues runs SHOW-style statements and merges their name/value pairs.
func (c *Client) collectKeyValues(ctx context.Context, domain model.Domain, stmts ...string) (*model.RawSnapshot, error) {
	snap := model.NewRawSnapshot(domain)
	for _, stmt := range stmts {
		kv, err := c.queryKeyValue(ctx, stmt)
		if err != nil {
			return nil, model.NewSourceError(domain, stmt, err)
		}
		snap.Merge(kv)
	}
	c.logger.Debug().Str("domain", string(domain)).Int("counters", len(snap.Counters)).Msg("counters collected")
	return snap, nil
}

// queryKeyValue reads a two-column Variable_name/Value result into a map.
// NULL values are kept as nil so the normalizer can mark them unavailable.
func (c *Client) queryKeyValue(ctx context.Context, query string) (map[string]any, error) {
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]any)
	for rows.Next() {
		var name string
		var value sql.NullString
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		if value.Valid {
			result[name] = value.String
		} else {
			result[name] = nil
		}
	}
	return result, rows.Err()
}

// queryRows reads an arbitrary result set into column-keyed maps of strings.
func (c *Client) queryRows(ctx context.Context, query string) ([]map[string]any, error) {
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := make([]map[string]any, 0)
	values := make([]sql.RawBytes, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			if values[i] == nil {
				row[col] = nil
			} else {
				row[col] = string(values[i])
			}
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func isOn(v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ON", "1", "YES", "TRUE":
		return true
	}
	return false
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = "'" + item + "'"
	}
	return strings.Join(quoted, ", ")
}
