package index

import "github.com/sells-group/geoindex/internal/model"

// Approximate heap costs used to decide when to flush a segment. Tokens are
// charged for the FTS5 pending-terms hash built while the segment is written.
const (
	docOverhead   = 160
	tokenOverhead = 48
)

// batch holds the documents of the next segment.
type batch struct {
	docs   []model.Document
	tokens int
	bytes  int64
}

func (b *batch) add(doc model.Document) {
	b.docs = append(b.docs, doc)
	n := len(Tokenize(doc.Street)) + len(Tokenize(doc.City)) + len(Tokenize(doc.FullAddress)) + 2
	b.tokens += n
	b.bytes += docOverhead + tokenOverhead*int64(n) +
		int64(len(doc.Street)+len(doc.City)+len(doc.State)+len(doc.Postcode)+len(doc.FullAddress))
}

func (b *batch) empty() bool {
	return len(b.docs) == 0
}
