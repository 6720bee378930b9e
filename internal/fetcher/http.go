package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/geoindex/internal/resilience"
)

// DefaultHostRate is the request rate, per second, for hosts without a
// configured limit.
const DefaultHostRate = 20

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent string
	// Timeout bounds the wait for response headers. Bodies of multi-gigabyte
	// extracts stream without a deadline.
	Timeout time.Duration
	// Retry governs retries of transient failures. Zero fields take the
	// resilience defaults.
	Retry resilience.RetryConfig
	// RateLimits maps host to requests per second.
	RateLimits map[string]float64
}

// DefaultRateLimits returns the request rates the dataset mirrors tolerate.
func DefaultRateLimits() map[string]float64 {
	return map[string]float64{
		"download.geofabrik.de":  2,
		"data.openaddresses.io":  5,
		"batch.openaddresses.io": 5,
	}
}

// hostLimiter paces requests to one host. Each success raises the rate by a
// fifth, up to twice the base; each 429 halves it, down to a quarter.
type hostLimiter struct {
	mu   sync.Mutex
	lim  *rate.Limiter
	base rate.Limit
}

func newHostLimiter(rps float64) *hostLimiter {
	return &hostLimiter{
		lim:  rate.NewLimiter(rate.Limit(rps), max(int(rps), 1)),
		base: rate.Limit(rps),
	}
}

func (h *hostLimiter) wait(ctx context.Context) error {
	return h.lim.Wait(ctx)
}

func (h *hostLimiter) succeeded() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lim.SetLimit(min(h.lim.Limit()*1.2, h.base*2))
}

func (h *hostLimiter) throttled() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lim.SetLimit(max(h.lim.Limit()*0.5, h.base/4))
}

func (h *hostLimiter) limit() rate.Limit {
	return h.lim.Limit()
}

// HTTPFetcher implements Fetcher over net/http with per-host pacing and
// retries.
type HTTPFetcher struct {
	client *http.Client
	opts   HTTPOptions

	mu    sync.Mutex
	hosts map[string]*hostLimiter
}

// NewHTTPFetcher creates a new HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "geoindex/1.0"
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConnsPerHost:   4,
		MaxConnsPerHost:       8,
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: opts.Timeout,
	}
	return &HTTPFetcher{
		client: &http.Client{Transport: transport},
		opts:   opts,
		hosts:  make(map[string]*hostLimiter),
	}
}

func (f *HTTPFetcher) limiter(host string) *hostLimiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	if h, ok := f.hosts[host]; ok {
		return h
	}
	rps, ok := f.opts.RateLimits[host]
	if !ok || rps <= 0 {
		rps = DefaultHostRate
	}
	h := newHostLimiter(rps)
	f.hosts[host] = h
	return h
}

// get issues a GET, retrying transient failures. A 304 is returned as a
// response; any other non-2xx status is an error.
func (f *HTTPFetcher) get(ctx context.Context, rawURL, etag string) (*http.Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrapf(err, "fetch: parse %s", rawURL)
	}
	lim := f.limiter(u.Host)

	retry := f.opts.Retry
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger("fetcher", u.Host)
	}
	return resilience.DoVal(ctx, retry, func(ctx context.Context) (*http.Response, error) {
		if err := lim.wait(ctx); err != nil {
			return nil, eris.Wrap(err, "fetch: rate limiter wait")
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, eris.Wrap(err, "fetch: create request")
		}
		req.Header.Set("User-Agent", f.opts.UserAgent)
		if etag != "" {
			req.Header.Set("If-None-Match", etag)
		}

		resp, err := f.client.Do(req)
		if err != nil {
			return nil, eris.Wrapf(err, "fetch %s", rawURL)
		}
		if resp.StatusCode == http.StatusNotModified {
			lim.succeeded()
			return resp, nil
		}
		if err := resilience.CheckResponse(resp, "fetch "+rawURL); err != nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusTooManyRequests {
				lim.throttled()
				zap.L().Warn("rate limited, slowing down",
					zap.String("host", u.Host),
					zap.Float64("rate", float64(lim.limit())),
				)
			}
			return nil, err
		}
		lim.succeeded()
		return resp, nil
	})
}

// Download fetches the URL and returns the response body.
func (f *HTTPFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	resp, err := f.get(ctx, rawURL, "")
	if err != nil {
		return nil, eris.Wrap(err, "download")
	}
	return resp.Body, nil
}

// DownloadIfChanged fetches the URL unless the server confirms etag is
// current.
func (f *HTTPFetcher) DownloadIfChanged(ctx context.Context, rawURL string, etag string) (io.ReadCloser, string, bool, error) {
	resp, err := f.get(ctx, rawURL, etag)
	if err != nil {
		return nil, "", false, eris.Wrap(err, "download if changed")
	}
	if resp.StatusCode == http.StatusNotModified {
		_ = resp.Body.Close()
		return nil, etag, false, nil
	}
	return resp.Body, resp.Header.Get("ETag"), true, nil
}
