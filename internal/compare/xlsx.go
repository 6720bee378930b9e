package compare

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/geoindex/internal/verify"
)

// WriteXLSX saves the report as a workbook with a summary sheet and one row
// per address.
func WriteXLSX(r *Report, path string) error {
	f := xlsx.NewFile()

	summary, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "compare: add summary sheet")
	}
	addStrings(summary.AddRow(), "provider", "attempted", "matched", "hit_rate", "errors", "compared", "mean_km", "max_km")
	for _, s := range r.Providers {
		row := summary.AddRow()
		row.AddCell().SetString(s.Name)
		row.AddCell().SetInt(s.Attempted)
		row.AddCell().SetInt(s.Matched)
		row.AddCell().SetFloat(s.HitRate())
		row.AddCell().SetInt(s.Errors)
		row.AddCell().SetInt(s.Compared)
		row.AddCell().SetFloat(s.MeanDisagreementKm)
		row.AddCell().SetFloat(s.MaxDisagreementKm)
	}

	detail, err := f.AddSheet("Addresses")
	if err != nil {
		return eris.Wrap(err, "compare: add address sheet")
	}
	header := detail.AddRow()
	header.AddCell().SetString("address")
	for _, s := range r.Providers {
		addStrings(header, s.Name+"_matched", s.Name+"_lat", s.Name+"_lon", s.Name+"_address", s.Name+"_km")
	}
	for _, row := range r.Rows {
		x := detail.AddRow()
		x.AddCell().SetString(row.Address)
		ref := row.Results[0]
		for j, res := range row.Results {
			if res == nil || !res.Matched {
				status := "no"
				if row.Errors[j] != nil {
					status = "error"
				}
				addStrings(x, status, "", "", "", "")
				continue
			}
			x.AddCell().SetString("yes")
			x.AddCell().SetFloat(res.Latitude)
			x.AddCell().SetFloat(res.Longitude)
			x.AddCell().SetString(res.MatchedAddress)
			if j > 0 && ref != nil && ref.Matched {
				x.AddCell().SetFloat(verify.DistanceKm(ref.Latitude, ref.Longitude, res.Latitude, res.Longitude))
			} else {
				x.AddCell().SetString("")
			}
		}
	}

	return eris.Wrapf(f.Save(path), "compare: save %s", path)
}

func addStrings(row *xlsx.Row, values ...string) {
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}
