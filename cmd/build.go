package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/geoindex/internal/index"
	"github.com/sells-group/geoindex/internal/metrics"
	"github.com/sells-group/geoindex/internal/model"
	"github.com/sells-group/geoindex/internal/source"
)

const progressEvery = 1_000_000

// buildInput is one source file queued for indexing.
type buildInput struct {
	kind  model.Source
	path  string
	stats *source.Stats
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the address index from cached source files",
	Long: `Streams OpenAddresses and OpenStreetMap records into a fresh index. The
previous index in the target directory is replaced; an interrupted build leaves
the directory without a committed manifest.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		log := zap.L().With(zap.String("command", "build"))

		inputs, err := resolveBuildInputs(cmd)
		if err != nil {
			return err
		}
		if len(inputs) == 0 {
			return eris.New("build: no source inputs; pass --oa/--osm or run `geoindex download`")
		}

		dir := stringFlag(cmd, "index-dir", cfg.Index.Dir)
		heap := int64(intFlag(cmd, "heap-mb", cfg.Index.HeapBudgetMB)) << 20
		osmState := stringFlag(cmd, "osm-state", cfg.Sources.OSMState)

		streams := make([]source.Records, 0, len(inputs))
		for _, in := range inputs {
			var recs source.Records
			switch in.kind {
			case model.SourceOSM:
				recs = source.OSM(ctx, in.path, source.Options{
					DefaultState: osmState,
					Procs:        runtime.GOMAXPROCS(0),
					Stats:        in.stats,
				})
			default:
				recs = source.OpenAddresses(ctx, in.path, source.Options{Stats: in.stats})
			}
			log.Info("queued source", zap.String("source", string(in.kind)), zap.String("path", in.path))
			streams = append(streams, instrument(recs, log))
		}

		start := time.Now()
		var segments int
		meta, err := index.Build(ctx, dir, streams,
			index.WithHeapBudget(heap),
			index.WithFlushHook(func(sm index.SegmentMeta) {
				segments++
				metrics.SegmentFlushed()
				log.Info("segment flushed", zap.String("file", sm.File), zap.Int64("docs", sm.Docs))
			}),
		)
		if err != nil {
			return eris.Wrap(err, "build")
		}

		out := cmd.OutOrStdout()
		for _, in := range inputs {
			_, _ = fmt.Fprintf(out, "%-14s %-40s emitted=%d skipped=%d\n",
				in.kind, in.path, in.stats.Emitted.Load(), in.stats.Skipped.Load())
		}
		_, _ = fmt.Fprintf(out, "indexed %d documents in %d segments into %s (%s)\n",
			meta.NumDocs(), len(meta.Segments), dir, time.Since(start).Round(time.Millisecond))
		log.Info("build complete",
			zap.Int64("docs", meta.NumDocs()),
			zap.Int("segments", segments),
			zap.Duration("elapsed", time.Since(start)),
		)
		return nil
	},
}

// resolveBuildInputs picks explicit --oa/--osm files, or else the cached
// downloads of the configured URLs.
func resolveBuildInputs(cmd *cobra.Command) ([]buildInput, error) {
	cacheDir := stringFlag(cmd, "cache-dir", cfg.Sources.CacheDir)
	var inputs []buildInput

	if !boolFlag(cmd, "skip-openaddresses", cfg.Sources.SkipOpenAddresses) {
		oa, _ := cmd.Flags().GetStringSlice("oa")
		if len(oa) == 0 {
			for _, u := range cfg.Sources.OpenAddressesURLs {
				p, err := cachedPath(cacheDir, u)
				if err != nil {
					return nil, err
				}
				oa = append(oa, p)
			}
		}
		for _, p := range oa {
			inputs = append(inputs, buildInput{kind: model.SourceOpenAddresses, path: p, stats: &source.Stats{}})
		}
	}

	if !boolFlag(cmd, "skip-osm", cfg.Sources.SkipOSM) {
		osmPath, _ := cmd.Flags().GetString("osm")
		if osmPath == "" && cfg.Sources.OSMURL != "" {
			p, err := cachedPath(cacheDir, cfg.Sources.OSMURL)
			if err != nil {
				return nil, err
			}
			osmPath = p
		}
		if osmPath != "" {
			inputs = append(inputs, buildInput{kind: model.SourceOSM, path: osmPath, stats: &source.Stats{}})
		}
	}

	for _, in := range inputs {
		if _, err := os.Stat(in.path); err != nil {
			return nil, eris.Wrapf(err, "build: %s input", in.kind)
		}
	}
	return inputs, nil
}

// instrument counts indexed documents and logs progress.
func instrument(recs source.Records, log *zap.Logger) source.Records {
	return func(yield func(model.Document, error) bool) {
		var n int64
		for doc, err := range recs {
			if err == nil {
				metrics.DocumentIndexed(doc.Source)
				if n++; n%progressEvery == 0 {
					log.Info("indexing", zap.String("source", string(doc.Source)), zap.Int64("docs", n))
				}
			}
			if !yield(doc, err) {
				return
			}
		}
	}
}

func init() {
	buildCmd.Flags().String("index-dir", "", "index directory (default: from config)")
	buildCmd.Flags().String("cache-dir", "", "download cache directory (default: from config)")
	buildCmd.Flags().StringSlice("oa", nil, "OpenAddresses input (.zip, .tar.zst, .csv or directory), repeatable")
	buildCmd.Flags().String("osm", "", "OSM PBF input (default: cached download of sources.osm_url)")
	buildCmd.Flags().Int("heap-mb", 0, "writer memory budget in MB before a segment flush (default: from config)")
	buildCmd.Flags().String("osm-state", "", "state assigned to OSM addresses with no derivable state")
	buildCmd.Flags().Bool("skip-osm", false, "do not index OpenStreetMap")
	buildCmd.Flags().Bool("skip-openaddresses", false, "do not index OpenAddresses")
	rootCmd.AddCommand(buildCmd)
}
