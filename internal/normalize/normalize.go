// Package normalize canonicalizes US address text so that documents and
// queries produce identical tokens for equivalent spellings.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize folds case and diacritics, strips punctuation and expands known
// abbreviations. It is deterministic and idempotent.
func Normalize(s string) string {
	return strings.Join(Expand(strings.Fields(Clean(s))), " ")
}

// Tokens returns the normalized tokens of s.
func Tokens(s string) []string {
	return Expand(strings.Fields(Clean(s)))
}

// Clean performs the character-level steps of Normalize without abbreviation
// expansion. State codes and postcodes are parsed from cleaned text so that
// "CT" stays a state rather than becoming COURT.
func Clean(s string) string {
	if s == "" {
		return ""
	}
	folded, _, err := transform.String(foldMarks(), s)
	if err != nil {
		folded = s
	}
	rs := []rune(strings.ToUpper(folded))

	var b strings.Builder
	b.Grow(len(rs))
	var prev rune
	for i := 0; i < len(rs); i++ {
		r := rs[i]
		switch {
		case isAlnum(r):
			b.WriteRune(r)
			prev = r
		case r == '\'' || r == '’' || r == '.':
			// Dropped without a separator: O'BRIEN -> OBRIEN, N.E. -> NE.
		case r == '&':
			b.WriteString(" AND ")
			prev = ' '
		case r == '-':
			j := i
			for j+1 < len(rs) && rs[j+1] == '-' {
				j++
			}
			if isAlnum(prev) && j+1 < len(rs) && isAlnum(rs[j+1]) {
				b.WriteRune('-')
			} else {
				b.WriteRune(' ')
			}
			prev = ' '
			i = j
		default:
			b.WriteRune(' ')
			prev = ' '
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Expand replaces abbreviation tokens with their full form. Hyphenated tokens
// are left untouched. The input slice is modified in place and returned.
func Expand(tokens []string) []string {
	for i, t := range tokens {
		if full, ok := synonyms[t]; ok {
			tokens[i] = full
		}
	}
	return tokens
}

// IsAbbreviation reports whether tok is expanded by Normalize.
func IsAbbreviation(tok string) bool {
	_, ok := synonyms[tok]
	return ok
}

// foldMarks decomposes, drops combining marks and recomposes. A transformer
// chain carries state, so each call gets its own.
func foldMarks() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

func isAlnum(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
