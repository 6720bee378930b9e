package model

import (
	"math"
	"strings"

	"github.com/rotisserie/eris"
)

// Source identifies the dataset a document was ingested from.
type Source string

const (
	SourceOpenAddresses Source = "openaddresses"
	SourceOSM           Source = "osm"
)

// Document is one geocodable address as stored in the index. Text fields are
// normalized; FullAddress is derived from the parts.
type Document struct {
	Street      string  `json:"street"`
	City        string  `json:"city"`
	State       string  `json:"state"`
	Postcode    string  `json:"postcode"`
	FullAddress string  `json:"full_address"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Source      Source  `json:"source"`
}

// FullAddress joins the non-empty parts as "street, city, state".
func FullAddress(street, city, state string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{street, city, state} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// Validate checks that the document can be indexed.
func (d Document) Validate() error {
	if d.Street == "" {
		return eris.New("model: document has no street")
	}
	if math.IsNaN(d.Lat) || math.IsNaN(d.Lon) {
		return eris.New("model: document has NaN coordinates")
	}
	if d.Lat < -90 || d.Lat > 90 || d.Lon < -180 || d.Lon > 180 {
		return eris.Errorf("model: coordinates out of range (%f, %f)", d.Lat, d.Lon)
	}
	if d.FullAddress != FullAddress(d.Street, d.City, d.State) {
		return eris.New("model: full address does not match its parts")
	}
	return nil
}
