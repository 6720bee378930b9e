package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/geoindex/internal/source"
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Fetch source datasets into the local cache",
	Long: `Downloads the OpenStreetMap extract and the OpenAddresses archives into the
cache directory. Files that carry an ETag are revalidated and only fetched
again when the server reports a change.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		log := zap.L().With(zap.String("command", "download"))

		cacheDir := stringFlag(cmd, "cache-dir", cfg.Sources.CacheDir)
		workers := intFlag(cmd, "concurrency", cfg.Sources.DownloadWorkers)

		var urls []string
		if !boolFlag(cmd, "skip-osm", cfg.Sources.SkipOSM) {
			if u := stringFlag(cmd, "osm-url", cfg.Sources.OSMURL); u != "" {
				urls = append(urls, u)
			}
		}
		if !boolFlag(cmd, "skip-openaddresses", cfg.Sources.SkipOpenAddresses) {
			oa, _ := cmd.Flags().GetStringSlice("oa-url")
			if len(oa) == 0 {
				oa = cfg.Sources.OpenAddressesURLs
			}
			urls = append(urls, oa...)
		}
		if len(urls) == 0 {
			return eris.New("download: no source URLs configured")
		}

		log.Info("downloading sources",
			zap.Strings("urls", urls),
			zap.String("cache_dir", cacheDir),
			zap.Int("concurrency", workers),
		)

		paths, err := source.Download(ctx, newFetcher(), urls, cacheDir, workers)
		if err != nil {
			return eris.Wrap(err, "download")
		}
		for _, p := range paths {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
		return nil
	},
}

func init() {
	downloadCmd.Flags().String("cache-dir", "", "download cache directory (default: from config)")
	downloadCmd.Flags().String("osm-url", "", "OSM PBF extract URL (default: from config)")
	downloadCmd.Flags().StringSlice("oa-url", nil, "OpenAddresses archive URL, repeatable (default: from config)")
	downloadCmd.Flags().Int("concurrency", 0, "parallel downloads (default: from config)")
	downloadCmd.Flags().Bool("skip-osm", false, "do not fetch the OSM extract")
	downloadCmd.Flags().Bool("skip-openaddresses", false, "do not fetch OpenAddresses archives")
	rootCmd.AddCommand(downloadCmd)
}
