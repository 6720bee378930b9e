package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseQuery(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		want  ParsedQuery
		strct bool
	}{
		{
			name: "street city state zip",
			raw:  "233 S Wacker Dr, Chicago, IL 60606",
			want: ParsedQuery{
				Street: "233 SOUTH WACKER DRIVE", City: "CHICAGO", State: "IL", Postcode: "60606",
				Tokens: []string{"233", "SOUTH", "WACKER", "DRIVE", "CHICAGO", "IL"},
			},
			strct: true,
		},
		{
			name: "city and state share a part",
			raw:  "1 Main St, Springfield IL",
			want: ParsedQuery{
				Street: "1 MAIN STREET", City: "SPRINGFIELD", State: "IL",
				Tokens: []string{"1", "MAIN", "STREET", "SPRINGFIELD", "IL"},
			},
			strct: true,
		},
		{
			name: "state code not expanded",
			raw:  "10 Elm St, Hartford, CT",
			want: ParsedQuery{
				Street: "10 ELM STREET", City: "HARTFORD", State: "CT",
				Tokens: []string{"10", "ELM", "STREET", "HARTFORD", "CT"},
			},
			strct: true,
		},
		{
			name: "state name in its own part",
			raw:  "350 5th Ave, New York, New York",
			want: ParsedQuery{
				Street: "350 5TH AVENUE", City: "NEW YORK", State: "NY",
				Tokens: []string{"350", "5TH", "AVENUE", "NEW", "YORK", "NY"},
			},
			strct: true,
		},
		{
			name: "two parts keep city names",
			raw:  "1600 Pennsylvania Ave NW, Washington",
			want: ParsedQuery{
				Street: "1600 PENNSYLVANIA AVENUE NORTHWEST", City: "WASHINGTON",
				Tokens: []string{"1600", "PENNSYLVANIA", "AVENUE", "NORTHWEST", "WASHINGTON"},
			},
			strct: true,
		},
		{
			name: "no commas",
			raw:  "233 S Wacker Dr Chicago IL 60606",
			want: ParsedQuery{
				State: "IL", Postcode: "60606",
				Tokens: []string{"233", "SOUTH", "WACKER", "DRIVE", "CHICAGO", "IL"},
			},
		},
		{
			name: "no commas trailing court",
			raw:  "12 Oak Ct",
			want: ParsedQuery{Tokens: []string{"12", "OAK", "COURT"}},
		},
		{
			name: "blank",
			raw:  " , ,",
			want: ParsedQuery{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseQuery(tt.raw)
			tt.want.Raw = tt.raw
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.strct, got.Structured())
		})
	}
}

func TestParsedQuery_StructuredByPostcode(t *testing.T) {
	assert.True(t, ParsedQuery{Street: "1 MAIN STREET", Postcode: "62701"}.Structured())
	assert.False(t, ParsedQuery{Postcode: "62701"}.Structured())
}

func TestParseQuery_Empty(t *testing.T) {
	assert.True(t, ParseQuery("").Empty())
	assert.True(t, ParseQuery("60601").Empty())
	assert.False(t, ParseQuery("main").Empty())
}

func TestEditBudget(t *testing.T) {
	assert.Equal(t, 0, editBudget("350", 2))
	assert.Equal(t, 0, editBudget("NW", 2))
	assert.Equal(t, 1, editBudget("5TH", 2))
	assert.Equal(t, 1, editBudget("AVENU", 2))
	assert.Equal(t, 2, editBudget("PENNSYLVANIA", 2))
	assert.Equal(t, 1, editBudget("PENNSYLVANIA", 1))
	assert.Equal(t, 0, editBudget("AVENU", 0))
}

func TestParseQuery_AmbiguousStateNeedsZip(t *testing.T) {
	q := ParseQuery("100 Main St Hartford CT 06103")
	assert.Equal(t, "CT", q.State)
	assert.Equal(t, []string{"100", "MAIN", "STREET", "HARTFORD", "CT"}, q.Tokens)

	q = ParseQuery("100 Main St Lexington KY")
	assert.Equal(t, "KY", q.State)
}
