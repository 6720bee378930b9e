package fetcher

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"iter"
	"strings"

	"github.com/rotisserie/eris"
)

// Rows is a lazily read table. Each row is a fresh slice the consumer may
// keep. Iteration ends after the first error.
type Rows = iter.Seq2[[]string, error]

// CSVOptions configures CSVRows.
type CSVOptions struct {
	Delimiter  rune // default ','
	Comment    rune // 0 = none
	LazyQuotes bool
	TrimSpace  bool
}

// CSVRows reads r one record at a time, header included. Rows may have
// differing field counts.
func CSVRows(ctx context.Context, r io.Reader, opts CSVOptions) Rows {
	return func(yield func([]string, error) bool) {
		reader := csv.NewReader(r)
		if opts.Delimiter != 0 {
			reader.Comma = opts.Delimiter
		}
		if opts.Comment != 0 {
			reader.Comment = opts.Comment
		}
		reader.LazyQuotes = opts.LazyQuotes
		reader.FieldsPerRecord = -1

		for {
			if err := ctx.Err(); err != nil {
				yield(nil, eris.Wrap(err, "csv: context cancelled"))
				return
			}
			record, err := reader.Read()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(nil, eris.Wrap(err, "csv: read row"))
				return
			}
			if opts.TrimSpace {
				for i, f := range record {
					record[i] = strings.TrimSpace(f)
				}
			}
			if !yield(record, nil) {
				return
			}
		}
	}
}

// ColumnIndex returns the position of the first header cell equal to one of
// names, ignoring case, surrounding space and a leading byte-order mark. It
// returns -1 when none match.
func ColumnIndex(header []string, names ...string) int {
	for _, name := range names {
		for i, h := range header {
			h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
			if strings.EqualFold(h, name) {
				return i
			}
		}
	}
	return -1
}
