package index

import (
	"context"
	"iter"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/geoindex/internal/model"
)

func doc(street, city, state string) model.Document {
	return model.NewDocument(street, city, state, "", 41.0, -87.0, model.SourceOpenAddresses)
}

func docSeq(docs ...model.Document) iter.Seq2[model.Document, error] {
	return func(yield func(model.Document, error) bool) {
		for _, d := range docs {
			if !yield(d, nil) {
				return
			}
		}
	}
}

func streams(docs ...model.Document) []iter.Seq2[model.Document, error] {
	return []iter.Seq2[model.Document, error]{docSeq(docs...)}
}

// buildIndex commits docs into a temp directory and opens it.
func buildIndex(t *testing.T, opts []WriterOption, docs ...model.Document) *Index {
	t.Helper()
	dir := t.TempDir()
	_, err := Build(context.Background(), dir, streams(docs...), opts...)
	require.NoError(t, err)
	ix, err := Open(context.Background(), dir)
	require.NoError(t, err)
	t.Cleanup(func() { ix.Close() }) //nolint:errcheck
	return ix
}

func search(t *testing.T, ix *Index, q Query) []Match {
	t.Helper()
	ms, err := ix.Search(context.Background(), Request{Query: q})
	require.NoError(t, err)
	return ms
}

// scores indexes matches by id.
func scores(ms []Match) map[DocID]float64 {
	out := make(map[DocID]float64, len(ms))
	for _, m := range ms {
		out[m.ID] = m.Score
	}
	return out
}

func streets(t *testing.T, ix *Index, ms []Match) []string {
	t.Helper()
	var out []string
	for _, m := range ms {
		d, err := ix.Document(context.Background(), m.ID)
		require.NoError(t, err)
		out = append(out, d.Street)
	}
	slices.Sort(out)
	return out
}
