package geocode

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func googleServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGoogleGeocode_Rooftop(t *testing.T) {
	srv := googleServer(t, `{
		"status": "OK",
		"results": [{
			"geometry": {
				"location": {"lat": 38.8977, "lng": -77.0365},
				"location_type": "ROOFTOP"
			},
			"formatted_address": "1600 Pennsylvania Avenue NW, Washington, DC 20500"
		}]
	}`)

	p := NewGoogleProvider("test-key", WithHTTPClient(clientFor(t, srv, googleGeocodeURL)))
	result, err := p.Geocode(context.Background(), AddressInput{
		Street: "1600 Pennsylvania Ave NW", City: "Washington", State: "DC", ZipCode: "20500",
	})
	require.NoError(t, err)
	assert.True(t, result.Matched)
	assert.InDelta(t, 38.8977, result.Latitude, 0.0001)
	assert.InDelta(t, -77.0365, result.Longitude, 0.0001)
	assert.Equal(t, "google", result.Source)
	assert.Equal(t, "rooftop", result.Quality)
	assert.Equal(t, "1600 Pennsylvania Avenue NW, Washington, DC 20500", result.MatchedAddress)
}

func TestGoogleGeocode_ZeroResults(t *testing.T) {
	srv := googleServer(t, `{"status": "ZERO_RESULTS", "results": []}`)

	p := NewGoogleProvider("test-key", WithHTTPClient(clientFor(t, srv, googleGeocodeURL)))
	result, err := p.Geocode(context.Background(), AddressInput{Line: "nowhere"})
	require.NoError(t, err)
	assert.False(t, result.Matched)
}

func TestGoogleGeocode_DeniedIsError(t *testing.T) {
	srv := googleServer(t, `{"status": "REQUEST_DENIED", "results": []}`)

	p := NewGoogleProvider("test-key", WithHTTPClient(clientFor(t, srv, googleGeocodeURL)))
	_, err := p.Geocode(context.Background(), AddressInput{Line: "1 Main St"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REQUEST_DENIED")
}

func TestGoogleProvider_NoKey(t *testing.T) {
	p := NewGoogleProvider("")
	assert.False(t, p.Available())
	_, err := p.Geocode(context.Background(), AddressInput{Line: "1 Main St"})
	require.Error(t, err)
}

func TestGoogleLocationTypeToQuality(t *testing.T) {
	assert.Equal(t, "rooftop", googleLocationTypeToQuality("rooftop"))
	assert.Equal(t, "range", googleLocationTypeToQuality("RANGE_INTERPOLATED"))
	assert.Equal(t, "centroid", googleLocationTypeToQuality("GEOMETRIC_CENTER"))
	assert.Equal(t, "approximate", googleLocationTypeToQuality("APPROXIMATE"))
	assert.Equal(t, "approximate", googleLocationTypeToQuality(""))
}
