package model

import "github.com/sells-group/geoindex/internal/normalize"

// NewDocument normalizes raw address parts into an indexable document. The
// state accepts a code or full name and the postcode is cut to five digits.
func NewDocument(street, city, state, postcode string, lat, lon float64, src Source) Document {
	d := Document{
		Street:   normalize.Normalize(street),
		City:     normalize.Normalize(city),
		State:    normalize.State(state),
		Postcode: normalize.Postcode(postcode),
		Lat:      lat,
		Lon:      lon,
		Source:   src,
	}
	d.FullAddress = FullAddress(d.Street, d.City, d.State)
	return d
}
