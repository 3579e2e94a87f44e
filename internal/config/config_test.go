package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cdpsession/pkg/model"
)

func TestNewConfig_DefaultCapacities(t *testing.T) {
	cfg := NewConfig()
	pages, assets, err := cfg.CacheCapacities()
	require.NoError(t, err)
	assert.Equal(t, 200, pages)  // 100MiB / 512KiB
	assert.Equal(t, 800, assets) // 50MiB / 64KiB
}

func TestCacheCapacities_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		cache CacheConfig
		field string
	}{
		{"bad budget", CacheConfig{Budget: "lots", PageSize: "1KiB", AssetSize: "1KiB"}, "session.cache.budget"},
		{"zero page size", CacheConfig{Budget: "1MiB", PageSize: "0", AssetSize: "1KiB"}, "session.cache.pageSize"},
		{"page larger than budget", CacheConfig{Budget: "1KiB", PageSize: "2KiB", AssetSize: "1B"}, "session.cache.pageSize"},
		{"asset larger than half budget", CacheConfig{Budget: "1KiB", PageSize: "1KiB", AssetSize: "1KiB"}, "session.cache.assetSize"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			cfg.Session.Cache = tt.cache
			_, _, err := cfg.CacheCapacities()
			var cfgErr *model.ConfigurationError
			require.True(t, errors.As(err, &cfgErr), "got %v", err)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestLoad_OverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
log:
  level: info
  writer: [console]
session:
  cache:
    budget: 10MiB
    pageSize: 1MiB
  concurrency: 2
  maxRecords: 3
  redactPaths: [password]
  filters:
    - name: api
      urlContains: /api/
      method: POST
      requiredHeaders: [Authorization]
    - urlContains: graphql
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "db.sqlite3", cfg.Sqlite.Dsn)
	assert.Equal(t, []string{"console"}, cfg.Log.Writer)

	sc, err := cfg.SessionConfig()
	require.NoError(t, err)
	assert.Equal(t, 10, sc.PageCapacity)
	assert.Equal(t, 80, sc.AssetCapacity) // 5MiB / 64KiB
	assert.Equal(t, 2, sc.Concurrency)
	assert.Equal(t, 3, sc.MaxRecords)
	assert.Equal(t, []string{"password"}, sc.RedactPaths)
	require.Len(t, sc.Filters, 2)
	assert.Equal(t, model.RequestFilter{
		Name:            "api",
		URLContains:     "/api/",
		Method:          "POST",
		RequiredHeaders: []string{"Authorization"},
	}, sc.Filters[0])
}

func TestLoad_RejectsInvalidSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("session:\n  concurrency: 0\n"), 0o600))

	_, err := Load(path)
	var cfgErr *model.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "session.concurrency", cfgErr.Field)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_ExampleConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config.example.yaml"))
	require.NoError(t, err)
	sc, err := cfg.SessionConfig()
	require.NoError(t, err)
	assert.Equal(t, 200, sc.PageCapacity)
	assert.Len(t, sc.Filters, 3)
}
