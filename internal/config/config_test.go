package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/geoindex/internal/index"
	"github.com/sells-group/geoindex/internal/search"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	def := search.DefaultConfig()
	assert.Equal(t, "data/index", cfg.Index.Dir)
	assert.Equal(t, 256, cfg.Index.HeapBudgetMB)
	assert.Equal(t, int64(256<<20), cfg.Index.HeapBudgetBytes())
	assert.Equal(t, def.TopK, cfg.Search.TopK)
	assert.InDelta(t, def.ExactThreshold, cfg.Search.ExactThreshold, 1e-9)
	assert.Equal(t, def.Boosts, cfg.Search.Boosts)
	assert.Equal(t, def.MaxEdits, cfg.Search.MaxEdits)
	assert.False(t, cfg.Search.ExactOnly)
	assert.Equal(t, 65536, cfg.Search.TermCacheSize)
	assert.Equal(t, "data/cache", cfg.Sources.CacheDir)
	assert.Contains(t, cfg.Sources.OSMURL, "geofabrik")
	assert.Equal(t, 4, cfg.Sources.DownloadWorkers)
	assert.InDelta(t, 0.01, cfg.Verify.Tolerance, 1e-9)
	assert.InDelta(t, 10.0, cfg.Geocode.CensusRateLimit, 1e-9)
	assert.Equal(t, 10, cfg.Geocode.TimeoutSecs)
	assert.Equal(t, 4, cfg.Compare.Concurrency)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	assert.Equal(t, def, cfg.Search.Engine())
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
index:
  dir: /srv/geoindex
search:
  top_k: 10
  boosts:
    exact_phrase: 20
  exact_only: true
  column_weights:
    street: 2.5
sources:
  openaddresses_urls:
    - https://data.openaddresses.io/runs/1/us/il/cook.zip
    - https://data.openaddresses.io/runs/2/us/ny/city_of_new_york.zip
  osm_state: DC
log:
  level: debug
  format: console
server:
  port: 9090
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/srv/geoindex", cfg.Index.Dir)
	assert.Equal(t, 10, cfg.Search.TopK)
	assert.InDelta(t, 20.0, cfg.Search.Boosts.ExactPhrase, 1e-9)
	assert.True(t, cfg.Search.ExactOnly)
	assert.Len(t, cfg.Sources.OpenAddressesURLs, 2)
	assert.Equal(t, "DC", cfg.Sources.OSMState)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.InDelta(t, 2.5, cfg.Search.Engine().Weights[index.FieldStreet], 1e-9)
	assert.Zero(t, cfg.Search.Engine().Weights[index.FieldCity])
	// Defaults still apply for unset values
	assert.InDelta(t, search.DefaultConfig().Boosts.Fuzzy, cfg.Search.Boosts.Fuzzy, 1e-9)
	assert.Equal(t, 256, cfg.Index.HeapBudgetMB)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
index:
  dir: /srv/geoindex
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("GEOINDEX_INDEX_DIR", "/mnt/index")
	t.Setenv("GEOINDEX_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "/mnt/index", cfg.Index.Dir)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("GEOINDEX_SERVER_PORT", "3000")
	t.Setenv("GEOINDEX_GEOCODE_GOOGLE_API_KEY", "test-key")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "test-key", cfg.Geocode.GoogleAPIKey)
}

func TestLoadMalformedFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("index: [unclosed"), 0o644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	def := search.DefaultConfig()
	cfg := &Config{}
	cfg.Index.Dir = "data/index"
	cfg.Index.HeapBudgetMB = 256
	cfg.Search.TopK = def.TopK
	cfg.Search.ExactThreshold = def.ExactThreshold
	cfg.Search.Boosts = def.Boosts
	cfg.Search.MaxEdits = def.MaxEdits
	cfg.Compare.Concurrency = 4
	cfg.Server.Port = 8080
	return cfg
}

func TestValidate_Defaults(t *testing.T) {
	cfg := validDefaults()
	for _, mode := range []string{"build", "search", "compare", "serve"} {
		assert.NoError(t, cfg.Validate(mode), mode)
	}
}

func TestValidateBuild(t *testing.T) {
	cfg := validDefaults()
	cfg.Index.Dir = ""
	cfg.Index.HeapBudgetMB = 0
	cfg.Sources.SkipOSM = true
	cfg.Sources.SkipOpenAddresses = true

	err := cfg.Validate("build")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index.dir is required")
	assert.Contains(t, err.Error(), "heap_budget_mb must be > 0")
	assert.Contains(t, err.Error(), "nothing to index")
}

func TestValidateSearch(t *testing.T) {
	cfg := validDefaults()
	cfg.Search.Boosts.Fuzzy = -1
	cfg.Search.MaxEdits = 3

	err := cfg.Validate("search")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search.boosts values must be >= 0")
	assert.Contains(t, err.Error(), "search.max_edits must be between 0 and 2")
}

func TestValidateSearch_ColumnWeights(t *testing.T) {
	cfg := validDefaults()
	cfg.Search.ColumnWeights = map[string]float64{"street": 2, "city": -1, "county": 1}

	err := cfg.Validate("search")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `search.column_weights: unknown field "county"`)
	assert.Contains(t, err.Error(), "search.column_weights.city must be >= 0")
	assert.NotContains(t, err.Error(), "column_weights.street")

	cfg.Search.ColumnWeights = map[string]float64{"full_address": 0.5}
	assert.NoError(t, cfg.Validate("search"))
}

func TestValidateCompareConcurrency(t *testing.T) {
	cfg := validDefaults()

	cfg.Compare.Concurrency = 0
	assert.ErrorContains(t, cfg.Validate("compare"), "compare.concurrency must be between 1 and 64")

	cfg.Compare.Concurrency = 65
	assert.Error(t, cfg.Validate("compare"))

	cfg.Compare.Concurrency = 64
	assert.NoError(t, cfg.Validate("compare"))
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
