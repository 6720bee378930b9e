package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/geoindex/internal/archive"
)

var packCmd = &cobra.Command{
	Use:   "pack",
	Short: "Pack a committed index into a .tar.zst artifact",
	RunE: func(cmd *cobra.Command, _ []string) error {
		dir := stringFlag(cmd, "index-dir", cfg.Index.Dir)
		out, _ := cmd.Flags().GetString("out")

		if err := archive.PackFile(dir, out); err != nil {
			return eris.Wrap(err, "pack")
		}
		fi, err := os.Stat(out)
		if err != nil {
			return eris.Wrap(err, "pack: stat artifact")
		}
		zap.L().Info("index packed",
			zap.String("command", "pack"),
			zap.String("dir", dir),
			zap.String("out", out),
			zap.Int64("bytes", fi.Size()),
		)
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "packed %s into %s (%d bytes)\n", dir, out, fi.Size())
		return nil
	},
}

var unpackCmd = &cobra.Command{
	Use:   "unpack",
	Short: "Install an index artifact, replacing the current index",
	Long: `Extracts a packed index next to the target directory, validates its manifest,
and swaps it into place. A truncated or corrupt artifact leaves the current
index untouched and exits non-zero.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		in, _ := cmd.Flags().GetString("in")
		dir := stringFlag(cmd, "index-dir", cfg.Index.Dir)

		if err := archive.UnpackFile(in, dir); err != nil {
			return eris.Wrap(err, "unpack")
		}
		zap.L().Info("index unpacked",
			zap.String("command", "unpack"),
			zap.String("in", in),
			zap.String("dir", dir),
		)
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "installed %s into %s\n", in, dir)
		return nil
	},
}

func init() {
	packCmd.Flags().String("index-dir", "", "index directory (default: from config)")
	packCmd.Flags().String("out", "", "artifact path to write")
	_ = packCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(packCmd)

	unpackCmd.Flags().String("in", "", "artifact path to read")
	unpackCmd.Flags().String("index-dir", "", "index directory to replace (default: from config)")
	_ = unpackCmd.MarkFlagRequired("in")
	rootCmd.AddCommand(unpackCmd)
}
