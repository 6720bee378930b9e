// Package source turns raw address datasets (OpenAddresses CSV extracts and
// OpenStreetMap PBF files) into normalized documents for the index builder.
package source

import (
	"iter"
	"sync/atomic"

	"github.com/sells-group/geoindex/internal/model"
	"github.com/sells-group/geoindex/internal/normalize"
)

// Records is a lazy, finite, single-use stream of documents. A non-nil error
// ends the stream.
type Records = iter.Seq2[model.Document, error]

// Options configures the source adapters.
type Options struct {
	// DefaultState fills documents whose state can't be derived from the row,
	// the file path or the postcode.
	DefaultState string

	// Procs is the number of OSM decoder goroutines. Default: 1.
	Procs int

	// Stats, when set, accumulates emitted and skipped counts.
	Stats *Stats
}

// Stats counts records seen by an adapter. Safe for concurrent use.
type Stats struct {
	Emitted atomic.Int64
	Skipped atomic.Int64
}

func (s *Stats) emitted() {
	if s != nil {
		s.Emitted.Add(1)
	}
}

func (s *Stats) skipped() {
	if s != nil {
		s.Skipped.Add(1)
	}
}

// Concat chains streams in order. It stops at the first error.
func Concat(streams ...Records) Records {
	return func(yield func(model.Document, error) bool) {
		for _, s := range streams {
			for doc, err := range s {
				if !yield(doc, err) || err != nil {
					return
				}
			}
		}
	}
}

// firstState returns the first value that names a state, as a USPS code.
func firstState(values ...string) string {
	for _, v := range values {
		if st := normalize.State(v); st != "" {
			return st
		}
	}
	return ""
}
