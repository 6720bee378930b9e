package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/geoindex/internal/resilience"
)

func newTestFetcher() *HTTPFetcher {
	return NewHTTPFetcher(HTTPOptions{
		UserAgent: "test-agent",
		Timeout:   5 * time.Second,
		Retry: resilience.RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     10 * time.Millisecond,
		},
	})
}

func serve(t *testing.T, h http.HandlerFunc) string {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv.URL
}

func readAll(t *testing.T, rc io.ReadCloser) string {
	t.Helper()
	defer rc.Close() //nolint:errcheck
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(data)
}

func TestDownload(t *testing.T) {
	base := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		assert.Empty(t, r.Header.Get("If-None-Match"))
		w.Write([]byte("hello world")) //nolint:errcheck
	})

	body, err := newTestFetcher().Download(context.Background(), base+"/us-latest.osm.pbf")
	require.NoError(t, err)
	assert.Equal(t, "hello world", readAll(t, body))
}

func TestDownload_PermanentStatusNotRetried(t *testing.T) {
	var attempts atomic.Int32
	base := serve(t, func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := newTestFetcher().Download(context.Background(), base+"/forbidden")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 403")
	assert.Equal(t, int32(1), attempts.Load())
}

func TestDownload_ContextCancelled(t *testing.T) {
	base := serve(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok")) //nolint:errcheck
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestFetcher().Download(ctx, base+"/data")
	require.Error(t, err)
}

func TestDownload_BadURL(t *testing.T) {
	_, err := newTestFetcher().Download(context.Background(), "http://[::1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch: parse")
}

func TestDownloadIfChanged_NotModified(t *testing.T) {
	base := serve(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == `"etag1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Write([]byte("should not reach")) //nolint:errcheck
	})

	body, etag, changed, err := newTestFetcher().DownloadIfChanged(context.Background(), base+"/res", `"etag1"`)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Nil(t, body)
	assert.Equal(t, `"etag1"`, etag)
}

func TestDownloadIfChanged_Changed(t *testing.T) {
	base := serve(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("ETag", `"etag2"`)
		w.Write([]byte("new content")) //nolint:errcheck
	})

	body, etag, changed, err := newTestFetcher().DownloadIfChanged(context.Background(), base+"/res", `"etag1"`)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, `"etag2"`, etag)
	assert.Equal(t, "new content", readAll(t, body))
}

func TestDownloadIfChanged_Error(t *testing.T) {
	base := serve(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, _, _, err := newTestFetcher().DownloadIfChanged(context.Background(), base+"/res", `"etag1"`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 404")
}

func TestRetryOnServerError(t *testing.T) {
	var attempts atomic.Int32
	base := serve(t, func(w http.ResponseWriter, _ *http.Request) {
		if attempts.Add(1) < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("success")) //nolint:errcheck
	})

	body, err := newTestFetcher().Download(context.Background(), base+"/retry")
	require.NoError(t, err)
	assert.Equal(t, "success", readAll(t, body))
	assert.Equal(t, int32(2), attempts.Load())
}

func TestRetryExhausted(t *testing.T) {
	var attempts atomic.Int32
	base := serve(t, func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := newTestFetcher().Download(context.Background(), base+"/fail")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 500")
	assert.True(t, resilience.IsTransient(err))
	assert.Equal(t, int32(3), attempts.Load())
}

func TestNewHTTPFetcher_Defaults(t *testing.T) {
	f := NewHTTPFetcher(HTTPOptions{})
	assert.Equal(t, "geoindex/1.0", f.opts.UserAgent)
	assert.Equal(t, 30*time.Second, f.opts.Timeout)

	transport, ok := f.client.Transport.(*http.Transport)
	require.True(t, ok)
	assert.Equal(t, 30*time.Second, transport.ResponseHeaderTimeout)
	assert.Zero(t, f.client.Timeout, "bodies must stream without a deadline")
}

func TestLimiter_PerHostRates(t *testing.T) {
	f := NewHTTPFetcher(HTTPOptions{RateLimits: DefaultRateLimits()})
	assert.InDelta(t, 2.0, float64(f.limiter("download.geofabrik.de").limit()), 1e-9)
	assert.InDelta(t, 5.0, float64(f.limiter("data.openaddresses.io").limit()), 1e-9)
	assert.InDelta(t, DefaultHostRate, float64(f.limiter("unknown-host.com").limit()), 1e-9)
	assert.Same(t, f.limiter("unknown-host.com"), f.limiter("unknown-host.com"))
}

func TestHostLimiter_Bounds(t *testing.T) {
	h := newHostLimiter(10)
	h.succeeded()
	assert.InDelta(t, 12.0, float64(h.limit()), 0.1)

	for range 20 {
		h.succeeded()
	}
	assert.InDelta(t, 20.0, float64(h.limit()), 0.1)

	for range 10 {
		h.throttled()
	}
	assert.InDelta(t, 2.5, float64(h.limit()), 0.1)
}

func TestTooManyRequests_SlowsHost(t *testing.T) {
	var attempts atomic.Int32
	base := serve(t, func(w http.ResponseWriter, _ *http.Request) {
		if attempts.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("ok")) //nolint:errcheck
	})
	u, err := url.Parse(base)
	require.NoError(t, err)

	f := newTestFetcher()
	f.opts.RateLimits = map[string]float64{u.Host: 100}

	body, err := f.Download(context.Background(), base+"/data")
	require.NoError(t, err)
	assert.Equal(t, "ok", readAll(t, body))
	assert.Equal(t, int32(2), attempts.Load())
	assert.Less(t, float64(f.limiter(u.Host).limit()), 100.0)
}
