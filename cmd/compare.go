package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/geoindex/internal/compare"
	"github.com/sells-group/geoindex/pkg/geocode"
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare the local index with public geocoders on a sample",
	Long: `Geocodes every address in the sample with the local index and each available
public provider, then reports hit rates and the distance between each
provider's answer and the local one.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		log := zap.L().With(zap.String("command", "compare"))

		samplePath, _ := cmd.Flags().GetString("sample")
		sample, err := compare.LoadSample(samplePath)
		if err != nil {
			return err
		}
		if len(sample) == 0 {
			return eris.Errorf("compare: sample %s has no addresses", samplePath)
		}

		engine, err := openEngine(ctx, cmd)
		if err != nil {
			return err
		}
		defer engine.Index().Close() //nolint:errcheck

		local := geocode.NewLocalProvider(engine.Index().Dir(),
			geocode.WithEngine(engine),
			geocode.WithExactOnly(boolFlag(cmd, "exact-only", cfg.Search.ExactOnly)),
		)
		providers := []geocode.Provider{local}
		for _, p := range publicProviders() {
			if !p.Available() {
				log.Info("provider unavailable, skipping", zap.String("provider", p.Name()))
				continue
			}
			providers = append(providers, p)
		}

		concurrency := intFlag(cmd, "concurrency", cfg.Compare.Concurrency)
		log.Info("comparing providers",
			zap.Int("addresses", len(sample)),
			zap.Int("providers", len(providers)),
			zap.Int("concurrency", concurrency),
		)

		report, err := compare.Run(ctx, providers, sample, concurrency)
		if err != nil {
			return err
		}
		if err := report.Write(cmd.OutOrStdout()); err != nil {
			return eris.Wrap(err, "compare: write report")
		}

		if xlsxPath, _ := cmd.Flags().GetString("xlsx"); xlsxPath != "" {
			if err := compare.WriteXLSX(report, xlsxPath); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", xlsxPath)
		}
		return nil
	},
}

func init() {
	compareCmd.Flags().String("sample", "", "address sample (.txt, .csv or .xlsx)")
	compareCmd.Flags().String("xlsx", "", "also write the report to this .xlsx file")
	compareCmd.Flags().Int("concurrency", 0, "addresses geocoded in parallel (default: from config)")
	compareCmd.Flags().Bool("exact-only", false, "count approximate local hits as unmatched")
	compareCmd.Flags().String("index-dir", "", "index directory (default: from config)")
	_ = compareCmd.MarkFlagRequired("sample")
	rootCmd.AddCommand(compareCmd)
}
