package source

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/geoindex/internal/fetcher"
	"github.com/sells-group/geoindex/internal/model"
	"github.com/sells-group/geoindex/internal/normalize"
)

// OpenAddresses streams documents from an OpenAddresses extract. path may be
// a directory of CSV files (walked recursively), a .zip or .tar.zst archive,
// or a single .csv file. Archives are read in place without extraction.
func OpenAddresses(ctx context.Context, path string, opts Options) Records {
	return func(yield func(model.Document, error) bool) {
		log := zap.L().With(zap.String("component", "source.openaddresses"), zap.String("path", path))

		info, err := os.Stat(path)
		if err != nil {
			yield(model.Document{}, eris.Wrapf(err, "openaddresses: stat %s", path))
			return
		}

		stopped := false
		visit := func(name string, r io.Reader) error {
			more, err := readOACSV(ctx, log, name, r, opts, yield)
			if err != nil {
				return err
			}
			if !more {
				stopped = true
				return fs.SkipAll
			}
			return nil
		}

		lower := strings.ToLower(path)
		switch {
		case info.IsDir():
			err = walkCSVDir(path, visit)
		case strings.HasSuffix(lower, ".zip"):
			err = fetcher.WalkZIP(path, isCSV, visit)
		case strings.HasSuffix(lower, ".tar.zst"), strings.HasSuffix(lower, ".tzst"):
			err = fetcher.WalkTarZst(path, isCSV, visit)
		case isCSV(lower):
			err = visitFile(path, filepath.ToSlash(path), visit)
		default:
			err = eris.Errorf("openaddresses: unsupported input %s", path)
		}
		if err != nil && !stopped {
			yield(model.Document{}, err)
		}
	}
}

func isCSV(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".csv")
}

func walkCSVDir(root string, visit fetcher.EntryFunc) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return eris.Wrapf(err, "openaddresses: walk %s", p)
		}
		if d.IsDir() || !isCSV(p) {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			rel = p
		}
		return visitFile(p, filepath.ToSlash(rel), visit)
	})
}

func visitFile(p, name string, visit fetcher.EntryFunc) error {
	f, err := os.Open(p)
	if err != nil {
		return eris.Wrapf(err, "openaddresses: open %s", p)
	}
	defer f.Close() //nolint:errcheck
	return visit(name, f)
}

// oaColumns holds header positions; -1 marks an absent column.
type oaColumns struct {
	lon, lat, number, street, unit, city, district, region, postcode int
}

func newOAColumns(header []string) (oaColumns, error) {
	col := func(names ...string) int { return fetcher.ColumnIndex(header, names...) }
	c := oaColumns{
		lon:      col("LON", "LONGITUDE", "X"),
		lat:      col("LAT", "LATITUDE", "Y"),
		number:   col("NUMBER", "HOUSENUMBER", "HOUSE_NUMBER"),
		street:   col("STREET"),
		unit:     col("UNIT"),
		city:     col("CITY"),
		district: col("DISTRICT"),
		region:   col("REGION", "STATE"),
		postcode: col("POSTCODE", "ZIP", "ZIPCODE"),
	}
	var missing []string
	for _, req := range []struct {
		name string
		pos  int
	}{{"LON", c.lon}, {"LAT", c.lat}, {"STREET", c.street}} {
		if req.pos < 0 {
			missing = append(missing, req.name)
		}
	}
	if len(missing) > 0 {
		return c, eris.Errorf("openaddresses: missing required columns %v", missing)
	}
	return c, nil
}

func field(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// document converts one CSV row. ok is false for rows that carry no usable
// address or position.
func (c oaColumns) document(row []string, pathState, defaultState string) (model.Document, bool) {
	lon, errLon := strconv.ParseFloat(field(row, c.lon), 64)
	lat, errLat := strconv.ParseFloat(field(row, c.lat), 64)
	if errLon != nil || errLat != nil || (lat == 0 && lon == 0) {
		return model.Document{}, false
	}

	number, street := field(row, c.number), field(row, c.street)
	if number == "" && street == "" {
		return model.Document{}, false
	}
	line := strings.Join(nonEmpty(number, street, field(row, c.unit)), " ")

	city := field(row, c.city)
	if city == "" {
		city = field(row, c.district)
	}
	postcode := field(row, c.postcode)
	state := firstState(field(row, c.region), pathState, normalize.StateForPostcode(postcode), defaultState)

	doc := model.NewDocument(line, city, state, postcode, lat, lon, model.SourceOpenAddresses)
	if doc.Validate() != nil {
		return model.Document{}, false
	}
	return doc, true
}

func nonEmpty(parts ...string) []string {
	out := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// stateFromPath reads the state from the OpenAddresses layout us/<st>/...
func stateFromPath(name string) string {
	parts := strings.Split(strings.ToLower(filepath.ToSlash(name)), "/")
	for i := 0; i+1 < len(parts); i++ {
		if parts[i] == "us" && normalize.IsStateCode(strings.ToUpper(parts[i+1])) {
			return strings.ToUpper(parts[i+1])
		}
	}
	return ""
}

// readOACSV yields every usable row of one CSV member. It returns false when
// the consumer stopped iterating.
func readOACSV(ctx context.Context, log *zap.Logger, name string, r io.Reader, opts Options, yield func(model.Document, error) bool) (bool, error) {
	pathState := stateFromPath(name)
	var cols *oaColumns
	var emitted, skipped int64
	for row, err := range fetcher.CSVRows(ctx, r, fetcher.CSVOptions{LazyQuotes: true, TrimSpace: true}) {
		if err != nil {
			return false, eris.Wrapf(err, "openaddresses: read %s", name)
		}
		if cols == nil {
			c, err := newOAColumns(row)
			if err != nil {
				return false, eris.Wrapf(err, "openaddresses: %s", name)
			}
			cols = &c
			continue
		}

		doc, ok := cols.document(row, pathState, opts.DefaultState)
		if !ok {
			skipped++
			opts.Stats.skipped()
			log.Debug("skipping row", zap.String("file", name), zap.Strings("row", row))
			continue
		}
		emitted++
		opts.Stats.emitted()
		if !yield(doc, nil) {
			return false, nil
		}
	}

	log.Info("file done",
		zap.String("file", name),
		zap.Int64("emitted", emitted),
		zap.Int64("skipped", skipped),
	)
	return true, nil
}
