package search

import (
	"regexp"
	"strings"

	"github.com/sells-group/geoindex/internal/index"
	"github.com/sells-group/geoindex/internal/model"
	"github.com/sells-group/geoindex/internal/normalize"
)

var postcodeRe = regexp.MustCompile(`^\d{5}(-?\d{4})?$`)

// ParsedQuery is a free-text address split into normalized components.
type ParsedQuery struct {
	Raw      string
	Street   string
	City     string
	State    string
	Postcode string
	// Tokens are the normalized full-address tokens, postcode excluded.
	Tokens []string
}

// Structured reports whether the query carries a street plus a city, state
// or postcode, enabling the field-level stages.
func (q ParsedQuery) Structured() bool {
	return q.Street != "" && (q.City != "" || q.State != "" || q.Postcode != "")
}

// Empty reports whether the query has nothing to search for.
func (q ParsedQuery) Empty() bool {
	return len(q.Tokens) == 0
}

// ParseQuery splits a query on commas. From the last part it lifts a trailing
// ZIP and a state; what remains of that part is the city, or the preceding part
// is when nothing remains. A spelled-out state name is only taken from a part
// of its own when at least three parts are present, since "Washington" or
// "New York" alone are more often cities. Leading parts form the street. A query without
// commas is only searched as a whole address.
func ParseQuery(raw string) ParsedQuery {
	q := ParsedQuery{Raw: raw}

	var parts []string
	for _, p := range strings.Split(raw, ",") {
		if c := normalize.Clean(p); c != "" {
			parts = append(parts, c)
		}
	}
	if len(parts) == 0 {
		return q
	}

	last := strings.Fields(parts[len(parts)-1])
	if n := len(last); n > 0 && postcodeRe.MatchString(last[n-1]) {
		q.Postcode = normalize.Postcode(last[n-1])
		last = last[:n-1]
	}

	if len(parts) == 1 {
		// Without commas only a trailing state code is recognized, and it is
		// kept out of abbreviation expansion. Codes that double as street
		// abbreviations (CT, NE, MT) need a ZIP after them to count.
		if n := len(last); n > 1 && normalize.IsStateCode(last[n-1]) &&
			(q.Postcode != "" || !normalize.IsAbbreviation(last[n-1])) {
			q.State = last[n-1]
			last = last[:n-1]
		}
		q.Tokens = append(normalize.Expand(last), stateTokens(q.State)...)
		return q
	}

	if n := len(last); n > 0 && normalize.IsStateCode(last[n-1]) {
		q.State = last[n-1]
		last = last[:n-1]
	} else if code := normalize.State(strings.Join(last, " ")); code != "" && len(parts) > 2 {
		q.State = code
		last = nil
	}

	rest := parts[:len(parts)-1]
	var city string
	switch {
	case len(last) > 0:
		city = strings.Join(last, " ")
	case len(rest) > 1:
		city = rest[len(rest)-1]
		rest = rest[:len(rest)-1]
	}

	q.Street = normalize.Normalize(strings.Join(rest, " "))
	q.City = normalize.Normalize(city)
	q.Tokens = index.Tokenize(model.FullAddress(q.Street, q.City, q.State))
	return q
}

func stateTokens(state string) []string {
	if state == "" {
		return nil
	}
	return []string{state}
}
