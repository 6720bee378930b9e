package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/geoindex/internal/resilience"
)

// httpClient is the transport shared by the public providers: a rate
// limiter in front of a retried GET returning JSON.
type httpClient struct {
	hc      *http.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

func newHTTPClient(name string, defaultRPS float64, opts []Option) httpClient {
	c := httpClient{
		hc:      &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(defaultRPS), max(int(defaultRPS), 1)),
		retry:   resilience.DefaultRetryConfig(),
	}
	c.retry.OnRetry = resilience.RetryLogger("geocode."+name, "get")
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// getJSON fetches reqURL and decodes the body into out. what names the call
// in errors.
func (c *httpClient) getJSON(ctx context.Context, what, reqURL string, out any) error {
	body, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrapf(err, "%s rate limit", what)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, eris.Wrapf(err, "%s build request", what)
		}
		resp, err := c.hc.Do(req)
		if err != nil {
			return nil, eris.Wrapf(err, "%s request", what)
		}
		defer resp.Body.Close() //nolint:errcheck

		if err := resilience.CheckResponse(resp, what); err != nil {
			return nil, err
		}
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, eris.Wrapf(err, "%s read body", what)
		}
		return b, nil
	})
	if err != nil {
		return err
	}
	return eris.Wrapf(json.Unmarshal(body, out), "%s parse response", what)
}
