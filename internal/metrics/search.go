// Package metrics exposes Prometheus collectors for lookups, builds and the
// HTTP server.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sells-group/geoindex/internal/model"
)

const namespace = "geoindex"

var (
	searchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Address search latency in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	searchResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_results_total",
			Help:      "Searches by top hit stage and classification",
		},
		[]string{"stage", "classification"},
	)

	indexedDocumentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "indexed_documents_total",
			Help:      "Documents written to the index by source",
		},
		[]string{"source"},
	)

	segmentsFlushedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_flushed_total",
			Help:      "Index segments written to disk",
		},
	)
)

func init() {
	prometheus.MustRegister(searchDuration)
	prometheus.MustRegister(searchResultsTotal)
	prometheus.MustRegister(indexedDocumentsTotal)
	prometheus.MustRegister(segmentsFlushedTotal)
}

// ObserveSearch records one search and the stage of its top hit.
func ObserveSearch(elapsed time.Duration, hits []model.Hit) {
	searchDuration.Observe(elapsed.Seconds())
	if len(hits) == 0 {
		searchResultsTotal.WithLabelValues("none", "none").Inc()
		return
	}
	searchResultsTotal.WithLabelValues(hits[0].Stage.String(), string(hits[0].Classification)).Inc()
}

// DocumentIndexed counts a document written by the builder.
func DocumentIndexed(src model.Source) {
	indexedDocumentsTotal.WithLabelValues(string(src)).Inc()
}

// SegmentFlushed counts a segment written by the builder.
func SegmentFlushed() {
	segmentsFlushedTotal.Inc()
}
