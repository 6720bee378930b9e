package index

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/geoindex/internal/model"
)

// DefaultTermCacheSize bounds the number of cached global document
// frequencies.
const DefaultTermCacheSize = 65536

// Index is an open, read-only committed index. It is safe for concurrent use.
type Index struct {
	dir      string
	meta     *Meta
	segments []*segment
	numDocs  int64

	cacheSize int
	dfCache   *lru.Cache[termKey, int64]

	vocabOnce [numFields]sync.Once
	vocab     [numFields]map[int][]string
	vocabErr  [numFields]error

	log *zap.Logger
}

// OpenOption configures Open.
type OpenOption func(*Index)

type termKey struct {
	field Field
	term  string
}

// WithTermCacheSize sets the document-frequency cache capacity.
func WithTermCacheSize(n int) OpenOption {
	return func(ix *Index) {
		if n > 0 {
			ix.cacheSize = n
		}
	}
}

// Open loads the committed index in dir. It returns ErrNotFound when dir
// holds no meta.json and ErrCorrupt when a listed segment is missing or has
// an incompatible schema.
func Open(ctx context.Context, dir string, opts ...OpenOption) (*Index, error) {
	meta, err := ReadMeta(dir)
	if err != nil {
		return nil, err
	}
	ix := &Index{
		dir:       dir,
		meta:      meta,
		numDocs:   meta.NumDocs(),
		cacheSize: DefaultTermCacheSize,
		log:       zap.L().With(zap.String("component", "index"), zap.String("dir", dir)),
	}
	for _, opt := range opts {
		opt(ix)
	}
	ix.dfCache, err = lru.New[termKey, int64](ix.cacheSize)
	if err != nil {
		return nil, eris.Wrap(err, "index: create term cache")
	}

	for _, sm := range meta.Segments {
		seg, err := openSegment(ctx, dir, sm)
		if err != nil {
			ix.Close() //nolint:errcheck
			return nil, err
		}
		ix.segments = append(ix.segments, seg)
	}
	ix.log.Debug("index opened", zap.Int("segments", len(ix.segments)), zap.Int64("docs", ix.numDocs))
	return ix, nil
}

// Close releases every segment handle.
func (ix *Index) Close() error {
	var first error
	for _, s := range ix.segments {
		if err := s.close(); err != nil && first == nil {
			first = eris.Wrapf(err, "index: close segment %s", s.id)
		}
	}
	ix.segments = nil
	return first
}

// Dir returns the index directory.
func (ix *Index) Dir() string { return ix.dir }

// Meta returns a copy of the committed manifest.
func (ix *Index) Meta() Meta { return *ix.meta }

// NumDocs returns the total number of indexed documents.
func (ix *Index) NumDocs() int64 { return ix.numDocs }

// Search runs req against every segment and merges the matches by
// descending score, then by id. bm25 statistics are per segment, as each
// segment is an independent FTS5 table.
func (ix *Index) Search(ctx context.Context, req Request) ([]Match, error) {
	if req.Query.IsZero() || ix.numDocs == 0 {
		return nil, nil
	}
	var out []Match
	for i, s := range ix.segments {
		ms, err := s.search(ctx, req.Query.expr, req.Weights, req.Limit)
		if err != nil {
			return nil, eris.Wrapf(err, "index: search segment %s", s.id)
		}
		for _, m := range ms {
			out = append(out, Match{ID: DocID{Segment: i, Doc: m.doc}, Score: m.score})
		}
	}
	SortMatches(out)
	if req.Limit > 0 && len(out) > req.Limit {
		out = out[:req.Limit]
	}
	return out, nil
}

// SortMatches orders matches best first, breaking ties by id.
func SortMatches(ms []Match) {
	slices.SortFunc(ms, func(a, b Match) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return a.ID.Compare(b.ID)
	})
}

// Document loads a stored document by id.
func (ix *Index) Document(ctx context.Context, id DocID) (model.Document, error) {
	if id.Segment < 0 || id.Segment >= len(ix.segments) {
		return model.Document{}, eris.Errorf("index: segment %d out of range", id.Segment)
	}
	return ix.segments[id.Segment].document(ctx, id.Doc)
}

// DocFreq returns the number of documents containing term in f across all
// segments.
func (ix *Index) DocFreq(ctx context.Context, f Field, term string) (int64, error) {
	key := termKey{field: f, term: term}
	if df, ok := ix.dfCache.Get(key); ok {
		return df, nil
	}
	var total int64
	for _, s := range ix.segments {
		df, err := s.docFreq(ctx, f, term)
		if err != nil {
			return 0, err
		}
		total += df
	}
	ix.dfCache.Add(key, total)
	return total, nil
}

// Expansion is an indexed term within an edit distance of a query term.
type Expansion struct {
	Term       string
	Distance   int
	Similarity float64
}

// Expand returns the vocabulary terms of f within maxEdits of term, ordered by
// distance then term. Similarity is 1 - distance/length.
func (ix *Index) Expand(ctx context.Context, f Field, term string, maxEdits int) ([]Expansion, error) {
	if maxEdits <= 0 {
		df, err := ix.DocFreq(ctx, f, term)
		if err != nil || df == 0 {
			return nil, err
		}
		return []Expansion{{Term: term, Similarity: 1}}, nil
	}

	vocab, err := ix.vocabulary(ctx, f)
	if err != nil {
		return nil, err
	}
	n := utf8.RuneCountInString(term)
	var out []Expansion
	for l := max(1, n-maxEdits); l <= n+maxEdits; l++ {
		for _, cand := range vocab[l] {
			d := levenshtein.ComputeDistance(term, cand)
			if d > maxEdits {
				continue
			}
			out = append(out, Expansion{
				Term:       cand,
				Distance:   d,
				Similarity: 1 - float64(d)/float64(max(n, l)),
			})
		}
	}
	slices.SortFunc(out, func(a, b Expansion) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return strings.Compare(a.Term, b.Term)
	})
	return out, nil
}

// vocabulary loads the distinct terms of f once, bucketed by rune length.
func (ix *Index) vocabulary(ctx context.Context, f Field) (map[int][]string, error) {
	ix.vocabOnce[f].Do(func() {
		ctx := context.WithoutCancel(ctx)
		seen := make(map[string]struct{})
		buckets := make(map[int][]string)
		for _, s := range ix.segments {
			terms, err := s.terms(ctx, f)
			if err != nil {
				ix.vocabErr[f] = err
				return
			}
			for _, t := range terms {
				if _, ok := seen[t]; ok {
					continue
				}
				seen[t] = struct{}{}
				l := utf8.RuneCountInString(t)
				buckets[l] = append(buckets[l], t)
			}
		}
		ix.vocab[f] = buckets
		ix.log.Debug("vocabulary loaded", zap.Stringer("field", f), zap.Int("terms", len(seen)))
	})
	return ix.vocab[f], ix.vocabErr[f]
}
