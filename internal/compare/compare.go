// Package compare geocodes a sample of addresses with several providers and
// reports hit rates and how far each provider lands from the reference.
package compare

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/geoindex/internal/verify"
	"github.com/sells-group/geoindex/pkg/geocode"
)

// Row holds every provider's answer for one address, in provider order.
type Row struct {
	Address string
	Results []*geocode.Result
	Errors  []error
}

// ProviderStats summarizes one provider over the sample.
type ProviderStats struct {
	Name      string
	Attempted int
	Matched   int
	Errors    int
	// Compared counts addresses both this provider and the reference matched.
	Compared           int
	MeanDisagreementKm float64
	MaxDisagreementKm  float64
}

// HitRate is the share of attempted addresses that matched.
func (s ProviderStats) HitRate() float64 {
	if s.Attempted == 0 {
		return 0
	}
	return float64(s.Matched) / float64(s.Attempted)
}

// Report is the outcome of a comparison run. Providers[0] is the reference.
type Report struct {
	Providers []ProviderStats
	Rows      []Row
}

// Run geocodes every address with every available provider, at most
// concurrency addresses at a time. The first provider is the reference that
// disagreement distances are measured against. Provider errors are counted,
// not returned.
func Run(ctx context.Context, providers []geocode.Provider, sample []string, concurrency int) (*Report, error) {
	if len(providers) == 0 {
		return nil, eris.New("compare: no providers")
	}
	log := zap.L().With(zap.String("component", "compare"))

	rows := make([]Row, len(sample))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))
	for i, addr := range sample {
		g.Go(func() error {
			row := Row{
				Address: addr,
				Results: make([]*geocode.Result, len(providers)),
				Errors:  make([]error, len(providers)),
			}
			for j, p := range providers {
				if !p.Available() {
					continue
				}
				res, err := p.Geocode(gctx, geocode.AddressInput{ID: fmt.Sprint(i), Line: addr})
				if err != nil {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					log.Debug("provider error", zap.String("provider", p.Name()), zap.String("address", addr), zap.Error(err))
					row.Errors[j] = err
					continue
				}
				row.Results[j] = res
			}
			rows[i] = row
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "compare: run")
	}

	r := &Report{Rows: rows, Providers: make([]ProviderStats, len(providers))}
	for j, p := range providers {
		st := ProviderStats{Name: p.Name()}
		var sumKm float64
		for _, row := range rows {
			if !p.Available() {
				break
			}
			st.Attempted++
			if row.Errors[j] != nil {
				st.Errors++
				continue
			}
			res := row.Results[j]
			if res == nil || !res.Matched {
				continue
			}
			st.Matched++
			ref := row.Results[0]
			if j == 0 || ref == nil || !ref.Matched {
				continue
			}
			km := verify.DistanceKm(ref.Latitude, ref.Longitude, res.Latitude, res.Longitude)
			st.Compared++
			sumKm += km
			st.MaxDisagreementKm = max(st.MaxDisagreementKm, km)
		}
		if st.Compared > 0 {
			st.MeanDisagreementKm = sumKm / float64(st.Compared)
		}
		r.Providers[j] = st
		log.Info("provider summary",
			zap.String("provider", st.Name),
			zap.Int("attempted", st.Attempted),
			zap.Int("matched", st.Matched),
			zap.Float64("mean_disagreement_km", st.MeanDisagreementKm),
		)
	}
	return r, nil
}

// Write prints the per-provider summary as a table.
func (r *Report) Write(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "PROVIDER\tATTEMPTED\tMATCHED\tHIT RATE\tERRORS\tCOMPARED\tMEAN KM\tMAX KM")
	for _, s := range r.Providers {
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%d\t%.1f%%\t%d\t%d\t%.3f\t%.3f\n",
			s.Name, s.Attempted, s.Matched, 100*s.HitRate(), s.Errors, s.Compared, s.MeanDisagreementKm, s.MaxDisagreementKm)
	}
	return eris.Wrap(tw.Flush(), "compare: write report")
}
