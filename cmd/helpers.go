package main

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/geoindex/internal/fetcher"
	"github.com/sells-group/geoindex/internal/index"
	"github.com/sells-group/geoindex/internal/search"
	"github.com/sells-group/geoindex/internal/source"
	"github.com/sells-group/geoindex/pkg/geocode"
)

// stringFlag returns the flag value when set, otherwise fallback.
func stringFlag(cmd *cobra.Command, name, fallback string) string {
	if v, _ := cmd.Flags().GetString(name); v != "" {
		return v
	}
	return fallback
}

// intFlag returns the flag value when positive, otherwise fallback.
func intFlag(cmd *cobra.Command, name string, fallback int) int {
	if v, _ := cmd.Flags().GetInt(name); v > 0 {
		return v
	}
	return fallback
}

// boolFlag returns the flag value when it was passed, otherwise fallback.
func boolFlag(cmd *cobra.Command, name string, fallback bool) bool {
	if !cmd.Flags().Changed(name) {
		return fallback
	}
	v, _ := cmd.Flags().GetBool(name)
	return v
}

func splitAndTrim(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// cachedPath maps a dataset URL to its file in the download cache.
func cachedPath(cacheDir, rawURL string) (string, error) {
	name, err := source.CacheName(rawURL)
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, name), nil
}

func newFetcher() *fetcher.HTTPFetcher {
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		RateLimits: fetcher.DefaultRateLimits(),
	})
}

// openEngine opens the index named by --index-dir or the config.
func openEngine(ctx context.Context, cmd *cobra.Command) (*search.Engine, error) {
	dir := stringFlag(cmd, "index-dir", cfg.Index.Dir)
	ix, err := index.Open(ctx, dir, index.WithTermCacheSize(cfg.Search.TermCacheSize))
	if err != nil {
		if errors.Is(err, index.ErrNotFound) {
			return nil, eris.Wrapf(err, "no index in %s; run `geoindex build` or `geoindex unpack` first", dir)
		}
		return nil, eris.Wrap(err, "open index")
	}
	zap.L().Debug("index opened",
		zap.String("dir", dir),
		zap.Int64("docs", ix.NumDocs()),
		zap.Int("segments", len(ix.Meta().Segments)),
	)
	return search.NewEngine(ix, cfg.Search.Engine()), nil
}

// providerOptions applies the geocode section to the public providers.
func providerOptions() []geocode.Option {
	var opts []geocode.Option
	if cfg.Geocode.TimeoutSecs > 0 {
		opts = append(opts, geocode.WithTimeout(time.Duration(cfg.Geocode.TimeoutSecs)*time.Second))
	}
	return opts
}

// publicProviders returns the Census and Google providers. Google reports
// itself unavailable without an API key.
func publicProviders() []geocode.Provider {
	census := providerOptions()
	if cfg.Geocode.CensusRateLimit > 0 {
		census = append(census, geocode.WithRateLimit(cfg.Geocode.CensusRateLimit))
	}
	return []geocode.Provider{
		geocode.NewCensusProvider(census...),
		geocode.NewGoogleProvider(cfg.Geocode.GoogleAPIKey, providerOptions()...),
	}
}
