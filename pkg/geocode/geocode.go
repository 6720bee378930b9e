// Package geocode resolves free-form US addresses to coordinates. The local
// provider answers from a committed geoindex; the Census and Google providers
// call the public services and exist for comparison and fallback.
package geocode

import (
	"context"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/sells-group/geoindex/internal/resilience"
)

// Provider is a single geocoding backend.
type Provider interface {
	Name() string
	Geocode(ctx context.Context, addr AddressInput) (*Result, error)
	// Available reports whether the provider can answer at all. It never has
	// side effects.
	Available() bool
}

// AddressInput is an address to geocode. Line, when set, is used verbatim;
// otherwise the parts are joined.
type AddressInput struct {
	ID      string
	Line    string
	Street  string
	City    string
	State   string
	ZipCode string
}

// Result holds the geocoding output for an address. An unmatched address is
// a Result with Matched false, not an error.
type Result struct {
	Latitude       float64 `json:"lat"`
	Longitude      float64 `json:"lon"`
	Source         string  `json:"source"`  // "local", "census" or "google"
	Quality        string  `json:"quality"` // "exact", "approximate", "rooftop", "range", "centroid"
	Matched        bool    `json:"matched"`
	MatchedAddress string  `json:"matched_address,omitempty"`
	Score          float64 `json:"score,omitempty"`
}

// Option configures the HTTP-backed providers.
type Option func(*httpClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.hc = hc
	}
}

// WithRateLimit sets the requests-per-second limit.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		if d > 0 {
			c.hc.Timeout = d
		}
	}
}

// WithRetry overrides the retry policy for transient failures.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

// formatOneLine formats an address as a single line.
func formatOneLine(addr AddressInput) string {
	if line := strings.TrimSpace(addr.Line); line != "" {
		return line
	}
	parts := []string{addr.Street, addr.City, addr.State, addr.ZipCode}
	var nonEmpty []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, ", ")
}
