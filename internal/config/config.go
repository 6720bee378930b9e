package config

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/geoindex/internal/index"
	"github.com/sells-group/geoindex/internal/search"
)

// Config holds the full application configuration.
type Config struct {
	Index   IndexConfig   `yaml:"index" mapstructure:"index"`
	Search  SearchConfig  `yaml:"search" mapstructure:"search"`
	Sources SourcesConfig `yaml:"sources" mapstructure:"sources"`
	Verify  VerifyConfig  `yaml:"verify" mapstructure:"verify"`
	Geocode GeocodeConfig `yaml:"geocode" mapstructure:"geocode"`
	Compare CompareConfig `yaml:"compare" mapstructure:"compare"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// IndexConfig locates the on-disk index and bounds the writer's memory.
type IndexConfig struct {
	Dir          string `yaml:"dir" mapstructure:"dir"`
	HeapBudgetMB int    `yaml:"heap_budget_mb" mapstructure:"heap_budget_mb"`
}

// HeapBudgetBytes converts HeapBudgetMB for index.WithHeapBudget.
func (c IndexConfig) HeapBudgetBytes() int64 {
	return int64(c.HeapBudgetMB) << 20
}

// SearchConfig tunes the query engine.
type SearchConfig struct {
	TopK           int           `yaml:"top_k" mapstructure:"top_k"`
	ExactThreshold float64       `yaml:"exact_threshold" mapstructure:"exact_threshold"`
	Boosts         search.Boosts `yaml:"boosts" mapstructure:"boosts"`
	MaxEdits       int           `yaml:"max_edits" mapstructure:"max_edits"`
	ExactOnly      bool          `yaml:"exact_only" mapstructure:"exact_only"`
	TermCacheSize  int           `yaml:"term_cache_size" mapstructure:"term_cache_size"`
	// ColumnWeights scales bm25 term frequency per indexed field, keyed by
	// field name. Unlisted fields weigh 1.
	ColumnWeights map[string]float64 `yaml:"column_weights" mapstructure:"column_weights"`
}

// Engine converts the section into a search.Config.
func (c SearchConfig) Engine() search.Config {
	cfg := search.Config{
		ExactThreshold: c.ExactThreshold,
		Boosts:         c.Boosts,
		MaxEdits:       c.MaxEdits,
		TopK:           c.TopK,
	}
	for name, w := range c.ColumnWeights {
		if f, err := index.ParseField(name); err == nil {
			cfg.Weights[f] = w
		}
	}
	return cfg
}

// SourcesConfig configures dataset download and ingestion.
type SourcesConfig struct {
	CacheDir          string   `yaml:"cache_dir" mapstructure:"cache_dir"`
	OSMURL            string   `yaml:"osm_url" mapstructure:"osm_url"`
	OpenAddressesURLs []string `yaml:"openaddresses_urls" mapstructure:"openaddresses_urls"`
	OSMState          string   `yaml:"osm_state" mapstructure:"osm_state"`
	SkipOSM           bool     `yaml:"skip_osm" mapstructure:"skip_osm"`
	SkipOpenAddresses bool     `yaml:"skip_openaddresses" mapstructure:"skip_openaddresses"`
	DownloadWorkers   int      `yaml:"download_workers" mapstructure:"download_workers"`
}

// VerifyConfig points at the smoke-test suite.
type VerifyConfig struct {
	File      string  `yaml:"file" mapstructure:"file"`
	Tolerance float64 `yaml:"tolerance" mapstructure:"tolerance"`
}

// GeocodeConfig configures the public fallback providers.
type GeocodeConfig struct {
	GoogleAPIKey    string  `yaml:"google_api_key" mapstructure:"google_api_key"`
	CensusRateLimit float64 `yaml:"census_rate_limit" mapstructure:"census_rate_limit"`
	TimeoutSecs     int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// CompareConfig configures provider comparison runs.
type CompareConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("GEOINDEX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	def := search.DefaultConfig()
	v.SetDefault("index.dir", "data/index")
	v.SetDefault("index.heap_budget_mb", 256)
	v.SetDefault("search.top_k", def.TopK)
	v.SetDefault("search.exact_threshold", def.ExactThreshold)
	v.SetDefault("search.boosts.exact_phrase", def.Boosts.ExactPhrase)
	v.SetDefault("search.boosts.street_terms", def.Boosts.StreetTerms)
	v.SetDefault("search.boosts.full_phrase", def.Boosts.FullPhrase)
	v.SetDefault("search.boosts.fuzzy", def.Boosts.Fuzzy)
	v.SetDefault("search.max_edits", def.MaxEdits)
	v.SetDefault("search.exact_only", false)
	v.SetDefault("search.term_cache_size", 65536)
	v.SetDefault("sources.cache_dir", "data/cache")
	v.SetDefault("sources.osm_url", "https://download.geofabrik.de/north-america/us-latest.osm.pbf")
	v.SetDefault("sources.openaddresses_urls", []string{})
	v.SetDefault("sources.download_workers", 4)
	v.SetDefault("verify.tolerance", 0.01)
	v.SetDefault("geocode.census_rate_limit", 10)
	v.SetDefault("geocode.timeout_secs", 10)
	v.SetDefault("compare.concurrency", 4)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command depends on. mode is one of "build",
// "search", "compare" or "serve".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "build":
		if c.Index.Dir == "" {
			errs = append(errs, "index.dir is required")
		}
		if c.Index.HeapBudgetMB <= 0 {
			errs = append(errs, "index.heap_budget_mb must be > 0")
		}
		if c.Sources.SkipOSM && c.Sources.SkipOpenAddresses {
			errs = append(errs, "sources: skip_osm and skip_openaddresses leave nothing to index")
		}
	case "search":
		errs = append(errs, c.searchErrors()...)
	case "compare":
		errs = append(errs, c.searchErrors()...)
		if c.Compare.Concurrency < 1 || c.Compare.Concurrency > 64 {
			errs = append(errs, fmt.Sprintf("compare.concurrency must be between 1 and 64, got %d", c.Compare.Concurrency))
		}
	case "serve":
		errs = append(errs, c.searchErrors()...)
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) searchErrors() []string {
	var errs []string
	if c.Index.Dir == "" {
		errs = append(errs, "index.dir is required")
	}
	if c.Search.ExactThreshold < 0 {
		errs = append(errs, "search.exact_threshold must be >= 0")
	}
	b := c.Search.Boosts
	if b.ExactPhrase < 0 || b.StreetTerms < 0 || b.FullPhrase < 0 || b.Fuzzy < 0 {
		errs = append(errs, "search.boosts values must be >= 0")
	}
	if c.Search.MaxEdits < 0 || c.Search.MaxEdits > 2 {
		errs = append(errs, "search.max_edits must be between 0 and 2")
	}
	for _, name := range slices.Sorted(maps.Keys(c.Search.ColumnWeights)) {
		if _, err := index.ParseField(name); err != nil {
			errs = append(errs, fmt.Sprintf("search.column_weights: unknown field %q", name))
		} else if c.Search.ColumnWeights[name] < 0 {
			errs = append(errs, fmt.Sprintf("search.column_weights.%s must be >= 0", name))
		}
	}
	return errs
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
