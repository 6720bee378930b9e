package index

import (
	"cmp"
	"strings"
)

// DocID addresses a document within an open index.
type DocID struct {
	Segment int
	Doc     int64
}

// Compare orders ids by segment then document.
func (id DocID) Compare(other DocID) int {
	if c := cmp.Compare(id.Segment, other.Segment); c != 0 {
		return c
	}
	return cmp.Compare(id.Doc, other.Doc)
}

// Match is a document satisfying a query with its bm25 relevance. Larger
// scores are better.
type Match struct {
	ID    DocID
	Score float64
}

// Weights are per-field bm25 column weights. Zero or negative entries count
// as 1.
type Weights [numFields]float64

func (w Weights) args() []any {
	out := make([]any, numFields)
	for i, v := range w {
		if v <= 0 {
			v = 1
		}
		out[i] = v
	}
	return out
}

// Query is an FTS5 match expression. bm25 sums the contribution of every
// phrase in it.
type Query struct {
	expr string
}

// Phrase matches terms contiguously and in order within field.
func Phrase(field Field, terms ...string) Query {
	var quoted []string
	for _, t := range terms {
		if t != "" {
			quoted = append(quoted, strings.ReplaceAll(t, `"`, `""`))
		}
	}
	if len(quoted) == 0 {
		return Query{}
	}
	return Query{expr: field.String() + ` : "` + strings.Join(quoted, " ") + `"`}
}

// Term matches a single term within field.
func Term(field Field, term string) Query {
	return Phrase(field, term)
}

// And matches documents satisfying every non-empty query.
func And(queries ...Query) Query {
	return join(" AND ", queries)
}

// Or matches documents satisfying any non-empty query.
func Or(queries ...Query) Query {
	return join(" OR ", queries)
}

func join(op string, queries []Query) Query {
	parts := make([]string, 0, len(queries))
	for _, q := range queries {
		if !q.IsZero() {
			parts = append(parts, "("+q.expr+")")
		}
	}
	switch len(parts) {
	case 0:
		return Query{}
	case 1:
		return Query{expr: parts[0]}
	}
	return Query{expr: strings.Join(parts, op)}
}

// IsZero reports whether q matches nothing.
func (q Query) IsZero() bool { return q.expr == "" }

func (q Query) String() string { return q.expr }

// Request is one query against every segment.
type Request struct {
	Query   Query
	Weights Weights
	// Limit caps the matches returned; <= 0 returns all of them.
	Limit int
}
