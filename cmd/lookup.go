package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/geoindex/internal/model"
	"github.com/sells-group/geoindex/pkg/geocode"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup ADDRESS...",
	Short: "Resolve addresses against the local index",
	Long: `Prints the ranked hits for each address with the cascade stage that matched
and whether the score clears the exact threshold. With --fallback, addresses
the index cannot resolve are sent to the Census and Google geocoders.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		engine, err := openEngine(ctx, cmd)
		if err != nil {
			return err
		}
		defer engine.Index().Close() //nolint:errcheck

		topK, _ := cmd.Flags().GetInt("top-k")
		asJSON, _ := cmd.Flags().GetBool("json")
		out := cmd.OutOrStdout()

		if fallback, _ := cmd.Flags().GetBool("fallback"); fallback {
			local := geocode.NewLocalProvider(engine.Index().Dir(),
				geocode.WithEngine(engine),
				geocode.WithExactOnly(boolFlag(cmd, "exact-only", cfg.Search.ExactOnly)),
			)
			providers := append([]geocode.Provider{local}, publicProviders()...)
			cascade := geocode.NewCascade(providers...)
			for _, addr := range args {
				res, err := cascade.Geocode(ctx, geocode.AddressInput{Line: addr})
				if err != nil {
					return eris.Wrapf(err, "lookup %q", addr)
				}
				if err := writeResult(out, addr, res, asJSON); err != nil {
					return err
				}
			}
			return nil
		}

		for _, addr := range args {
			hits, err := engine.Search(ctx, addr, topK)
			if err != nil {
				return eris.Wrapf(err, "lookup %q", addr)
			}
			if err := writeHits(out, addr, hits, asJSON); err != nil {
				return err
			}
		}
		return nil
	},
}

func writeHits(w io.Writer, query string, hits []model.Hit, asJSON bool) error {
	if asJSON {
		if hits == nil {
			hits = []model.Hit{}
		}
		return json.NewEncoder(w).Encode(map[string]any{"query": query, "hits": hits})
	}

	_, _ = fmt.Fprintf(w, "%s\n", query)
	if len(hits) == 0 {
		_, _ = fmt.Fprintln(w, "  no match")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "  #\tSCORE\tSTAGE\tCLASS\tLAT\tLON\tADDRESS")
	for i, h := range hits {
		_, _ = fmt.Fprintf(tw, "  %d\t%.3f\t%s\t%s\t%.6f\t%.6f\t%s\n",
			i+1, h.Score, h.Stage, h.Classification, h.Lat, h.Lon, h.Address)
	}
	return tw.Flush()
}

func writeResult(w io.Writer, query string, res *geocode.Result, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(w).Encode(map[string]any{"query": query, "result": res})
	}
	if !res.Matched {
		_, _ = fmt.Fprintf(w, "%s\n  no match\n", query)
		return nil
	}
	_, _ = fmt.Fprintf(w, "%s\n  %s (%s) %.6f, %.6f  %s\n",
		query, res.Source, res.Quality, res.Latitude, res.Longitude, strings.TrimSpace(res.MatchedAddress))
	return nil
}

func init() {
	lookupCmd.Flags().Int("top-k", 0, "hits per address (default: from config)")
	lookupCmd.Flags().Bool("json", false, "print JSON lines instead of a table")
	lookupCmd.Flags().Bool("fallback", false, "fall back to public geocoders when the index has no match")
	lookupCmd.Flags().Bool("exact-only", false, "with --fallback, treat approximate local hits as unmatched")
	lookupCmd.Flags().String("index-dir", "", "index directory (default: from config)")
	rootCmd.AddCommand(lookupCmd)
}
