// Package index implements the on-disk address index: immutable SQLite
// segments, each an FTS5 table over the document fields backed by a docs
// table, and a JSON manifest that commits a build.
package index

import (
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
)

// SchemaVersion is stamped into every segment as PRAGMA user_version and into
// meta.json. Readers refuse any other value.
const SchemaVersion = 2

// Field identifies an indexed document field. The order matches the FTS5
// column order and therefore the bm25 weight arguments.
type Field uint8

const (
	FieldStreet Field = iota
	FieldCity
	FieldState
	FieldPostcode
	FieldFullAddress
	numFields
)

var fieldNames = [numFields]string{"street", "city", "state", "postcode", "full_address"}

func (f Field) String() string {
	if f >= numFields {
		return "unknown"
	}
	return fieldNames[f]
}

// ParseField resolves a field by name.
func ParseField(name string) (Field, error) {
	for i, n := range fieldNames {
		if n == name {
			return Field(i), nil
		}
	}
	return 0, eris.Errorf("index: unknown field %q", name)
}

// FieldNames lists the indexed fields in column order.
func FieldNames() []string {
	return append([]string(nil), fieldNames[:]...)
}

// Tokenize splits normalized text on whitespace and commas, matching how the
// segment tokenizer splits indexed text.
func Tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
}

// The addr table indexes the docs table as external content. unicode61 keeps
// '-' inside tokens so unit and hyphenated house numbers stay whole, and
// diacritics are already folded by the normalizer.
const segmentDDL = `
CREATE TABLE docs (
	doc          INTEGER PRIMARY KEY,
	street       TEXT NOT NULL,
	city         TEXT NOT NULL,
	state        TEXT NOT NULL,
	postcode     TEXT NOT NULL,
	full_address TEXT NOT NULL,
	lat          REAL NOT NULL,
	lon          REAL NOT NULL,
	source       TEXT NOT NULL
);

CREATE VIRTUAL TABLE addr USING fts5(
	street, city, state, postcode, full_address,
	content = 'docs',
	content_rowid = 'doc',
	tokenize = "unicode61 remove_diacritics 0 tokenchars '-'"
);

CREATE VIRTUAL TABLE addr_vocab USING fts5vocab(addr, 'col');
`
