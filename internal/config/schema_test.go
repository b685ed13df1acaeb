package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbhealth/internal/model"
)

func TestLoadSchemas_Embedded(t *testing.T) {
	schemas, err := LoadSchemas("")
	require.NoError(t, err)

	byDomain := make(map[model.Domain]model.DomainSchema)
	for _, s := range schemas {
		byDomain[s.Domain] = s
	}

	for _, d := range model.AllDomains {
		_, ok := byDomain[d]
		assert.True(t, ok, "embedded schemas should define domain %s", d)
	}

	cache := byDomain[model.DomainCache]
	keys := make(map[string]bool)
	for _, f := range cache.Fields {
		keys[f.Key] = true
	}
	for _, k := range []string{"Qcache_hits", "Qcache_inserts", "Qcache_free_blocks", "Qcache_total_blocks", "Qcache_free_memory", "Qcache_lowmem_prunes", "query_cache_size", "query_cache_type"} {
		assert.True(t, keys[k], "cache schema should expect %s", k)
	}

	tables, ok := byDomain[model.DomainTables].RowSet("tables")
	require.True(t, ok)
	assert.Equal(t, []string{"Database", "Table"}, tables.KeyFields)
}

func TestLoadSchemas_CustomFile(t *testing.T) {
	content := `
domains:
  - domain: engine
    fields:
      - {key: Innodb_buffer_pool_reads, name: buffer_pool_reads, kind: numeric, unit: count}
`
	path := filepath.Join(t.TempDir(), "schemas.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	schemas, err := LoadSchemas(path)
	require.NoError(t, err)
	require.Len(t, schemas, 1)
	assert.Equal(t, model.DomainEngine, schemas[0].Domain)
	assert.Equal(t, model.UnitCount, schemas[0].Fields[0].Unit)
}

func TestLoadSchemas_FileNotFound(t *testing.T) {
	_, err := LoadSchemas("/nonexistent/schemas.yaml")
	assert.Error(t, err)
}

func TestParseSchemas_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", "domains: []"},
		{"unknown domain", "domains:\n  - domain: redis\n"},
		{"duplicate domain", "domains:\n  - domain: cache\n  - domain: cache\n"},
		{"missing key", "domains:\n  - domain: cache\n    fields:\n      - {name: x, kind: numeric, unit: count}\n"},
		{"bad kind", "domains:\n  - domain: cache\n    fields:\n      - {key: a, name: x, kind: blob, unit: count}\n"},
		{"bad unit", "domains:\n  - domain: cache\n    fields:\n      - {key: a, name: x, kind: numeric, unit: furlongs}\n"},
		{"unnamed row set", "domains:\n  - domain: tables\n    rows:\n      - key_fields: [a]\n"},
		{"not yaml", "domains: [unterminated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSchemas([]byte(tt.content), "test")
			assert.Error(t, err)
		})
	}
}
