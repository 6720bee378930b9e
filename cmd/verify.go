package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/geoindex/internal/verify"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Run the smoke suite against the index",
	Long: `Searches every case in the smoke suite and compares the top hit with the
expected coordinates. Prints every failure and exits non-zero if any case
fails. Without --file the built-in suite of well-known addresses is used.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		log := zap.L().With(zap.String("command", "verify"))

		file := stringFlag(cmd, "file", cfg.Verify.File)
		suite, err := verify.LoadSuite(file)
		if err != nil {
			return err
		}
		if file == "" && cfg.Verify.Tolerance > 0 {
			suite.Tolerance = cfg.Verify.Tolerance
		}
		if cmd.Flags().Changed("tolerance") {
			suite.Tolerance, _ = cmd.Flags().GetFloat64("tolerance")
		}

		engine, err := openEngine(ctx, cmd)
		if err != nil {
			return err
		}
		defer engine.Index().Close() //nolint:errcheck

		report, err := verify.Run(ctx, engine, suite)
		if err != nil {
			return eris.Wrap(err, "verify")
		}
		if err := report.Write(cmd.OutOrStdout()); err != nil {
			return eris.Wrap(err, "verify: write report")
		}

		log.Info("verify complete",
			zap.Int("total", report.Total),
			zap.Int("passed", report.Passed),
			zap.Int("failed", len(report.Failures)),
		)
		if !report.OK() {
			return eris.Errorf("verify: %d of %d cases failed", len(report.Failures), report.Total)
		}
		return nil
	},
}

func init() {
	verifyCmd.Flags().String("file", "", "YAML smoke suite (default: from config, else built-in)")
	verifyCmd.Flags().Float64("tolerance", verify.DefaultTolerance, "override the suite tolerance in degrees")
	verifyCmd.Flags().String("index-dir", "", "index directory (default: from config)")
	rootCmd.AddCommand(verifyCmd)
}
