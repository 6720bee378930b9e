// Package verify runs a smoke suite of known addresses against a search
// engine and reports every case whose top hit is missing or too far away.
package verify

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"math"
	"os"
	"text/tabwriter"

	"github.com/golang/geo/s2"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/geoindex/internal/model"
)

// DefaultTolerance is the planar distance, in degrees, a top hit may sit from
// the expected point.
const DefaultTolerance = 0.01

const earthRadiusKm = 6371.0088

//go:embed smoke.yaml
var defaultSuite []byte

// Case is one expected geocode.
type Case struct {
	Address   string   `yaml:"address"`
	Lat       float64  `yaml:"lat"`
	Lon       float64  `yaml:"lon"`
	Tolerance *float64 `yaml:"tolerance,omitempty"`
}

// Suite is a list of cases sharing a default tolerance.
type Suite struct {
	Tolerance float64 `yaml:"tolerance"`
	Cases     []Case  `yaml:"cases"`
}

// tolerance returns the case override or the suite default.
func (s *Suite) tolerance(c Case) float64 {
	if c.Tolerance != nil {
		return *c.Tolerance
	}
	return s.Tolerance
}

// ParseSuite decodes a YAML suite.
func ParseSuite(data []byte) (*Suite, error) {
	var s Suite
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, eris.Wrap(err, "verify: parse suite")
	}
	if s.Tolerance <= 0 {
		s.Tolerance = DefaultTolerance
	}
	for i, c := range s.Cases {
		if c.Address == "" {
			return nil, eris.Errorf("verify: case %d has no address", i)
		}
		if c.Tolerance != nil && *c.Tolerance < 0 {
			return nil, eris.Errorf("verify: case %q has negative tolerance", c.Address)
		}
	}
	return &s, nil
}

// LoadSuite reads a suite file. An empty path selects the built-in suite.
func LoadSuite(path string) (*Suite, error) {
	if path == "" {
		return DefaultSuite()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "verify: read %s", path)
	}
	return ParseSuite(data)
}

// DefaultSuite returns the built-in suite of well-known addresses.
func DefaultSuite() (*Suite, error) {
	return ParseSuite(defaultSuite)
}

// Searcher is the part of the query engine the verifier needs.
type Searcher interface {
	Search(ctx context.Context, raw string, topK int) ([]model.Hit, error)
}

const (
	ReasonNoMatch  = "no match found"
	ReasonDistance = "distance exceeds tolerance"
)

// Failure describes a case that did not pass.
type Failure struct {
	Address     string
	Reason      string
	ExpectedLat float64
	ExpectedLon float64
	Tolerance   float64

	// Set when a hit was returned.
	ActualLat      float64
	ActualLon      float64
	Matched        string
	Score          float64
	Classification model.Classification
	DistanceDeg    float64
	DistanceKm     float64
}

// Report is the outcome of a suite run.
type Report struct {
	Total    int
	Passed   int
	Failures []Failure
}

// OK reports whether every case passed.
func (r *Report) OK() bool { return len(r.Failures) == 0 }

// Run searches every case with top_k 1 and compares the top hit's position.
// All cases run; only search errors abort.
func Run(ctx context.Context, s Searcher, suite *Suite) (*Report, error) {
	log := zap.L().With(zap.String("component", "verify"))
	r := &Report{Total: len(suite.Cases)}

	for _, c := range suite.Cases {
		tol := suite.tolerance(c)
		hits, err := s.Search(ctx, c.Address, 1)
		if err != nil {
			return nil, eris.Wrapf(err, "verify: search %q", c.Address)
		}

		f := Failure{
			Address:     c.Address,
			ExpectedLat: c.Lat,
			ExpectedLon: c.Lon,
			Tolerance:   tol,
		}
		if len(hits) == 0 {
			f.Reason = ReasonNoMatch
			r.Failures = append(r.Failures, f)
			log.Warn("case failed", zap.String("address", c.Address), zap.String("reason", f.Reason))
			continue
		}

		top := hits[0]
		deg := math.Hypot(top.Lat-c.Lat, top.Lon-c.Lon)
		if deg <= tol {
			r.Passed++
			log.Debug("case passed", zap.String("address", c.Address), zap.Float64("distance_deg", deg))
			continue
		}

		f.Reason = ReasonDistance
		f.ActualLat, f.ActualLon = top.Lat, top.Lon
		f.Matched = top.Address
		f.Score = top.Score
		f.Classification = top.Classification
		f.DistanceDeg = deg
		f.DistanceKm = DistanceKm(c.Lat, c.Lon, top.Lat, top.Lon)
		r.Failures = append(r.Failures, f)
		log.Warn("case failed",
			zap.String("address", c.Address),
			zap.String("reason", f.Reason),
			zap.String("matched", f.Matched),
			zap.Float64("distance_km", f.DistanceKm),
		)
	}
	return r, nil
}

// DistanceKm is the great-circle distance between two points.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	a := s2.LatLngFromDegrees(lat1, lon1)
	b := s2.LatLngFromDegrees(lat2, lon2)
	return a.Distance(b).Radians() * earthRadiusKm
}

// Write prints a human-readable summary followed by one block per failure.
func (r *Report) Write(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "verified %d/%d cases\n", r.Passed, r.Total)
	for _, f := range r.Failures {
		_, _ = fmt.Fprintf(tw, "FAIL\t%s\t%s\n", f.Address, f.Reason)
		_, _ = fmt.Fprintf(tw, "\texpected\t%.6f, %.6f (tolerance %.4f°)\n", f.ExpectedLat, f.ExpectedLon, f.Tolerance)
		if f.Reason == ReasonDistance {
			_, _ = fmt.Fprintf(tw, "\tactual\t%.6f, %.6f\n", f.ActualLat, f.ActualLon)
			_, _ = fmt.Fprintf(tw, "\tmatched\t%s (score %.2f, %s)\n", f.Matched, f.Score, f.Classification)
			_, _ = fmt.Fprintf(tw, "\tdistance\t%.4f° / %.2f km\n", f.DistanceDeg, f.DistanceKm)
		}
	}
	return eris.Wrap(tw.Flush(), "verify: write report")
}
