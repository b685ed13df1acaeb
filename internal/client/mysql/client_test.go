package mysql

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbhealth/internal/config"
	"dbhealth/internal/model"
)

// setupMock creates a Client backed by sqlmock.
func setupMock(t *testing.T) (*Client, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewClientWithDB(db, "127.0.0.1:3306", zerolog.Nop()), mock
}

func kvRows(pairs ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"Variable_name", "Value"})
	for i := 0; i+1 < len(pairs); i += 2 {
		rows.AddRow(pairs[i], pairs[i+1])
	}
	return rows
}

func q(s string) string {
	return regexp.QuoteMeta(s)
}

// =============================================================================
// Constructor Tests
// =============================================================================

func TestNewClient(t *testing.T) {
	cfg := &config.DatabaseConfig{Host: "db.local", Port: 3307, User: "monitor", Password: "pw"}

	c, err := NewClient(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, "db.local:3307", c.Address())
}

// =============================================================================
// Server Domain Tests
// =============================================================================

func TestCollectServer_Success(t *testing.T) {
	c, mock := setupMock(t)

	mock.ExpectQuery(q("SELECT VERSION()")).
		WillReturnRows(sqlmock.NewRows([]string{"VERSION()"}).AddRow("5.7.44-log"))
	mock.ExpectQuery(q("SHOW GLOBAL STATUS")).
		WillReturnRows(kvRows("Threads_connected", "12", "Uptime", "3600"))
	mock.ExpectQuery(q("SHOW GLOBAL VARIABLES")).
		WillReturnRows(kvRows("max_connections", "151"))
	mock.ExpectQuery(q("SHOW FULL PROCESSLIST")).
		WillReturnRows(sqlmock.NewRows([]string{"Id", "User", "Host", "db", "Command", "Time", "State", "Info"}).
			AddRow("7", "root", "localhost", nil, "Query", "0", "starting", "SHOW FULL PROCESSLIST"))

	snap, err := c.CollectServer(context.Background())
	require.NoError(t, err)

	assert.Equal(t, model.DomainServer, snap.Domain)
	assert.Equal(t, "5.7.44-log", snap.Counters["version"])
	assert.Equal(t, "12", snap.Counters["Threads_connected"])
	assert.Equal(t, "151", snap.Counters["max_connections"])
	require.Len(t, snap.Rows["processlist"], 1)
	assert.Equal(t, "root", snap.Rows["processlist"][0]["User"])
	assert.Nil(t, snap.Rows["processlist"][0]["db"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCollectServer_ConnectionRefused(t *testing.T) {
	c, mock := setupMock(t)

	mock.ExpectQuery(q("SELECT VERSION()")).WillReturnError(errors.New("dial tcp: connection refused"))

	snap, err := c.CollectServer(context.Background())
	assert.Nil(t, snap)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrSourceUnavailable))

	var srcErr *model.SourceError
	require.True(t, errors.As(err, &srcErr))
	assert.Equal(t, model.DomainServer, srcErr.Domain)
}

func TestCollectServer_ProcessListFailureIsTolerated(t *testing.T) {
	c, mock := setupMock(t)

	mock.ExpectQuery(q("SELECT VERSION()")).
		WillReturnRows(sqlmock.NewRows([]string{"VERSION()"}).AddRow("8.0.36"))
	mock.ExpectQuery(q("SHOW GLOBAL STATUS")).WillReturnRows(kvRows("Threads_connected", "1"))
	mock.ExpectQuery(q("SHOW GLOBAL VARIABLES")).WillReturnRows(kvRows("max_connections", "10"))
	mock.ExpectQuery(q("SHOW FULL PROCESSLIST")).WillReturnError(errors.New("access denied"))

	snap, err := c.CollectServer(context.Background())
	require.NoError(t, err)
	_, ok := snap.Rows["processlist"]
	assert.False(t, ok)
}

// =============================================================================
// Cache / Engine Domain Tests
// =============================================================================

func TestCollectCache(t *testing.T) {
	c, mock := setupMock(t)

	mock.ExpectQuery(q("SHOW GLOBAL VARIABLES LIKE 'query_cache%'")).
		WillReturnRows(kvRows("query_cache_type", "ON", "query_cache_size", "16777216"))
	mock.ExpectQuery(q("SHOW GLOBAL VARIABLES LIKE 'have_query_cache'")).
		WillReturnRows(kvRows("have_query_cache", "YES"))
	mock.ExpectQuery(q("SHOW GLOBAL STATUS LIKE 'Qcache%'")).
		WillReturnRows(kvRows("Qcache_hits", "80", "Qcache_inserts", "20"))

	snap, err := c.CollectCache(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.DomainCache, snap.Domain)
	assert.Equal(t, "ON", snap.Counters["query_cache_type"])
	assert.Equal(t, "80", snap.Counters["Qcache_hits"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCollectEngine_QueryFailure(t *testing.T) {
	c, mock := setupMock(t)

	mock.ExpectQuery(q("SHOW GLOBAL VARIABLES LIKE 'innodb_buffer_pool_size'")).
		WillReturnRows(kvRows("innodb_buffer_pool_size", "134217728"))
	mock.ExpectQuery(q("SHOW GLOBAL STATUS LIKE 'Innodb_buffer_pool%'")).
		WillReturnError(errors.New("lost connection"))

	_, err := c.CollectEngine(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrSourceUnavailable))
	assert.Contains(t, err.Error(), "engine")
}

// =============================================================================
// Slow Query Domain Tests
// =============================================================================

func TestCollectSlowQueries_LogEnabled(t *testing.T) {
	c, mock := setupMock(t)

	mock.ExpectQuery(q("SHOW GLOBAL VARIABLES LIKE 'slow_query_log'")).WillReturnRows(kvRows("slow_query_log", "ON"))
	mock.ExpectQuery(q("SHOW GLOBAL VARIABLES LIKE 'long_query_time'")).WillReturnRows(kvRows("long_query_time", "2.000000"))
	mock.ExpectQuery(q(slowLogQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"start_time", "thread_id", "user_host", "query_time_ms", "lock_time_ms", "rows_sent", "rows_examined", "db", "sql_text"}).
			AddRow("2024-05-01 10:00:00", "42", "app[app] @ 10.0.0.5", "3500", "0", "1", "200000", "shop", "SELECT * FROM orders"))
	mock.ExpectQuery(q(topQueriesQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"digest", "query", "executions", "avg_latency_ms", "total_latency_ms"}).
			AddRow("abc", "SELECT * FROM `orders` WHERE `id` = ?", "10", "1500.5", "15005"))
	mock.ExpectQuery(q(metadataLocksQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(int64(3)))

	snap, err := c.CollectSlowQueries(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "ON", snap.Counters["slow_query_log"])
	assert.Equal(t, int64(3), snap.Counters["metadata_locks"])
	require.Len(t, snap.Rows["samples"], 1)
	assert.Equal(t, "3500", snap.Rows["samples"][0]["query_time_ms"])
	require.Len(t, snap.Rows["top_queries"], 1)
	assert.Equal(t, "1500.5", snap.Rows["top_queries"][0]["avg_latency_ms"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCollectSlowQueries_LogDisabledAndNoPerformanceSchema(t *testing.T) {
	c, mock := setupMock(t)

	mock.ExpectQuery(q("SHOW GLOBAL VARIABLES LIKE 'slow_query_log'")).WillReturnRows(kvRows("slow_query_log", "OFF"))
	mock.ExpectQuery(q("SHOW GLOBAL VARIABLES LIKE 'long_query_time'")).WillReturnRows(kvRows("long_query_time", "10"))
	mock.ExpectQuery(q(topQueriesQuery)).WillReturnError(errors.New("performance_schema disabled"))
	mock.ExpectQuery(q(metadataLocksQuery)).WillReturnError(errors.New("performance_schema disabled"))

	snap, err := c.CollectSlowQueries(context.Background())
	require.NoError(t, err)

	assert.Empty(t, snap.Rows["samples"])
	_, ok := snap.Rows["top_queries"]
	assert.False(t, ok)
	_, ok = snap.Counters["metadata_locks"]
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// =============================================================================
// Table Domain Tests
// =============================================================================

func TestCollectTables(t *testing.T) {
	c, mock := setupMock(t)

	mock.ExpectQuery(q(tableStatsQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"Database", "Table", "Engine", "Row_Format", "Rows", "Avg_Row_Length", "Data_Size", "Index_Size", "Free_Space"}).
			AddRow("shop", "orders", "InnoDB", "Dynamic", "1000", "100", "100", "0", "30").
			AddRow("shop", "archive", "InnoDB", "Dynamic", nil, nil, "1073741825", "16384", "0"))
	mock.ExpectQuery(q(indexStatsQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"Database", "Table", "Index_Name", "Column", "Cardinality", "Is_Nullable"}).
			AddRow("shop", "archive", "PRIMARY", "id", "1000", ""))

	snap, err := c.CollectTables(context.Background())
	require.NoError(t, err)

	require.Len(t, snap.Rows["tables"], 2)
	assert.Equal(t, "orders", snap.Rows["tables"][0]["Table"])
	assert.Equal(t, "0", snap.Rows["tables"][0]["Index_Size"])
	assert.Nil(t, snap.Rows["tables"][1]["Rows"])
	require.Len(t, snap.Rows["indexes"], 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCollectTables_Failure(t *testing.T) {
	c, mock := setupMock(t)

	mock.ExpectQuery(q(tableStatsQuery)).WillReturnError(errors.New("timeout"))

	_, err := c.CollectTables(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrSourceUnavailable))
}

func TestQuoteList(t *testing.T) {
	assert.Equal(t, "'a', 'b'", quoteList([]string{"a", "b"}))
}
