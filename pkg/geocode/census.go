package geocode

import (
	"context"
	"net/url"

	"github.com/rotisserie/eris"
)

const (
	censusOneLineURL = "https://geocoding.geo.census.gov/geocoder/locations/onelineaddress"
	censusBenchmark  = "Public_AR_Current"
)

// censusOneLineResponse is the JSON response from the Census single-address API.
type censusOneLineResponse struct {
	Result struct {
		AddressMatches []censusAddressMatch `json:"addressMatches"`
	} `json:"result"`
}

type censusAddressMatch struct {
	Coordinates struct {
		X float64 `json:"x"` // longitude
		Y float64 `json:"y"` // latitude
	} `json:"coordinates"`
	MatchedAddress string `json:"matchedAddress"`
}

// CensusProvider geocodes through the US Census Bureau one-line geocoder.
// It needs no credentials.
type CensusProvider struct {
	client httpClient
}

// NewCensusProvider creates a Census provider. The default rate is 10 req/s.
func NewCensusProvider(opts ...Option) *CensusProvider {
	return &CensusProvider{client: newHTTPClient("census", 10, opts)}
}

// Name implements Provider.
func (p *CensusProvider) Name() string { return "census" }

// Available implements Provider.
func (p *CensusProvider) Available() bool { return true }

// Geocode implements Provider.
func (p *CensusProvider) Geocode(ctx context.Context, addr AddressInput) (*Result, error) {
	oneLine := formatOneLine(addr)
	if oneLine == "" {
		return &Result{Matched: false, Source: "census"}, nil
	}

	params := url.Values{
		"address":   {oneLine},
		"benchmark": {censusBenchmark},
		"format":    {"json"},
	}
	var resp censusOneLineResponse
	if err := p.client.getJSON(ctx, "geocode: census", censusOneLineURL+"?"+params.Encode(), &resp); err != nil {
		return nil, eris.Wrapf(err, "geocode: census %q", oneLine)
	}

	if len(resp.Result.AddressMatches) == 0 {
		return &Result{Matched: false, Source: "census"}, nil
	}

	match := resp.Result.AddressMatches[0]
	return &Result{
		Latitude:       match.Coordinates.Y,
		Longitude:      match.Coordinates.X,
		Source:         "census",
		Quality:        "range", // one-line matches are interpolated along TIGER address ranges
		Matched:        true,
		MatchedAddress: match.MatchedAddress,
	}, nil
}
