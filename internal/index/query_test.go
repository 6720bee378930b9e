package index

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/geoindex/internal/model"
)

// corpus pads fixtures so terms under test are rare enough for a positive
// idf.
func corpus(docs ...model.Document) []model.Document {
	return append(docs,
		doc("10 Elm Rd", "Peoria", "IL"),
		doc("20 Pine Ln", "Dayton", "OH"),
		doc("30 Birch Ct", "Tulsa", "OK"),
		doc("40 Cedar Way", "Fresno", "CA"),
		doc("50 Maple Dr", "Boise", "ID"),
	)
}

func TestQuery_Expressions(t *testing.T) {
	assert.Equal(t, `street : "MAIN OAK"`, Phrase(FieldStreet, "MAIN", "OAK").String())
	assert.Equal(t, `city : "O""NEIL"`, Term(FieldCity, `O"NEIL`).String())
	assert.Equal(t, `(state : "IL") AND (postcode : "62701")`,
		And(Term(FieldState, "IL"), Query{}, Term(FieldPostcode, "62701")).String())
	assert.Equal(t, `state : "IL"`, Or(Term(FieldState, "IL")).String())
	assert.True(t, And().IsZero())
	assert.True(t, Phrase(FieldStreet).IsZero())
	assert.True(t, Phrase(FieldStreet, "", "").IsZero())
}

func TestTerm_MatchesField(t *testing.T) {
	ix := buildIndex(t, nil, corpus(doc("233 S Wacker Dr", "Chicago", "IL"))...)

	ms := search(t, ix, Term(FieldCity, "CHICAGO"))
	require.Len(t, ms, 1)
	assert.Greater(t, ms[0].Score, 0.0)
	assert.Equal(t, []string{"233 SOUTH WACKER DRIVE"}, streets(t, ix, ms))

	assert.Empty(t, search(t, ix, Term(FieldStreet, "CHICAGO")))
}

func TestPhrase_RequiresOrder(t *testing.T) {
	ix := buildIndex(t, nil,
		doc("10 Main Oak St", "A", "IL"),
		doc("10 Oak Main St", "A", "IL"),
	)

	got := streets(t, ix, search(t, ix, Phrase(FieldStreet, "MAIN", "OAK")))
	assert.Equal(t, []string{"10 MAIN OAK STREET"}, got)

	got = streets(t, ix, search(t, ix, Phrase(FieldStreet, "OAK", "MAIN")))
	assert.Equal(t, []string{"10 OAK MAIN STREET"}, got)

	assert.Empty(t, search(t, ix, Phrase(FieldStreet, "MAIN", "MISSING")))
}

func TestPhrase_SpansCommaInFullAddress(t *testing.T) {
	ix := buildIndex(t, nil, doc("1 Main St", "Oak Park", "IL"))

	s := search(t, ix, Phrase(FieldFullAddress, "STREET", "OAK", "PARK", "IL"))
	assert.Len(t, s, 1)
}

func TestPhrase_HyphenatedNumber(t *testing.T) {
	ix := buildIndex(t, nil, doc("12-34 Main St", "A", "NY"), doc("12 Main St", "A", "NY"))

	got := streets(t, ix, search(t, ix, Phrase(FieldStreet, "12-34", "MAIN")))
	assert.Equal(t, []string{"12-34 MAIN STREET"}, got)
}

func TestAnd_Intersects(t *testing.T) {
	ix := buildIndex(t, nil,
		doc("1 Main St", "Springfield", "IL"),
		doc("1 Main St", "Springfield", "MO"),
		doc("2 Oak St", "Springfield", "IL"),
	)

	got := streets(t, ix, search(t, ix, And(Term(FieldStreet, "MAIN"), Term(FieldState, "IL"))))
	assert.Equal(t, []string{"1 MAIN STREET"}, got)

	assert.Empty(t, search(t, ix, And()))
	assert.Empty(t, search(t, ix, And(Term(FieldStreet, "MAIN"), Term(FieldState, "TX"))))
}

func TestAnd_RestrictsAcrossSegments(t *testing.T) {
	ix := buildIndex(t, []WriterOption{WithHeapBudget(1)},
		doc("1 Main St", "Springfield", "IL"),
		doc("2 Main St", "Peoria", "IL"),
		doc("3 Main St", "Springfield", "MO"),
	)
	require.Len(t, ix.Meta().Segments, 3)

	q := And(Term(FieldStreet, "MAIN"), Term(FieldCity, "SPRINGFIELD"), Term(FieldState, "IL"))
	assert.Equal(t, []string{"1 MAIN STREET"}, streets(t, ix, search(t, ix, q)))
}

func TestOr_Unions(t *testing.T) {
	ix := buildIndex(t, nil,
		doc("1 Main St", "A", "IL"),
		doc("2 Oak St", "A", "IL"),
		doc("3 Elm St", "A", "IL"),
	)
	got := streets(t, ix, search(t, ix, Or(Term(FieldStreet, "MAIN"), Term(FieldStreet, "OAK"))))
	assert.Equal(t, []string{"1 MAIN STREET", "2 OAK STREET"}, got)
}

func TestSearch_AdditionalTermsRaiseScore(t *testing.T) {
	ix := buildIndex(t, nil, corpus(
		doc("1 Main St", "Springfield", "IL"),
		doc("2 Main St", "Springfield", "IL"),
	)...)

	phrase := scores(search(t, ix, Phrase(FieldStreet, "1", "MAIN")))
	withTerms := scores(search(t, ix, And(Phrase(FieldStreet, "1", "MAIN"), Term(FieldStreet, "MAIN"))))
	require.Len(t, phrase, 1)
	for id, v := range withTerms {
		assert.Greater(t, v, phrase[id])
	}
}

func TestSearch_WeightsScaleColumns(t *testing.T) {
	ix := buildIndex(t, nil, corpus(doc("1 Main St", "Springfield", "IL"))...)
	ctx := context.Background()
	q := Term(FieldStreet, "MAIN")

	base, err := ix.Search(ctx, Request{Query: q})
	require.NoError(t, err)
	var w Weights
	w[FieldStreet] = 5
	heavy, err := ix.Search(ctx, Request{Query: q, Weights: w})
	require.NoError(t, err)

	require.Len(t, base, 1)
	require.Len(t, heavy, 1)
	assert.Greater(t, heavy[0].Score, base[0].Score)
}

func TestSearch_OrdersAndLimits(t *testing.T) {
	ix := buildIndex(t, []WriterOption{WithHeapBudget(1)}, corpus(
		doc("1 Main St", "Springfield", "IL"),
		doc("2 Main Main St", "Springfield", "IL"),
	)...)
	ctx := context.Background()

	all, err := ix.Search(ctx, Request{Query: Term(FieldFullAddress, "SPRINGFIELD")})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.GreaterOrEqual(t, all[0].Score, all[1].Score)

	one, err := ix.Search(ctx, Request{Query: Term(FieldFullAddress, "SPRINGFIELD"), Limit: 1})
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, all[0], one[0])

	none, err := ix.Search(ctx, Request{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSortMatches_TiesByID(t *testing.T) {
	ms := []Match{
		{ID: DocID{Segment: 1, Doc: 0}, Score: 1},
		{ID: DocID{Segment: 0, Doc: 4}, Score: 1},
		{ID: DocID{Segment: 0, Doc: 2}, Score: 2},
	}
	SortMatches(ms)
	assert.Equal(t, []DocID{{0, 2}, {0, 4}, {1, 0}}, []DocID{ms[0].ID, ms[1].ID, ms[2].ID})
}

func TestExpand(t *testing.T) {
	ix := buildIndex(t, nil,
		doc("350 5th Ave", "New York", "NY"),
		doc("1 Avenue Rd", "Boston", "MA"),
	)
	ctx := context.Background()

	exps, err := ix.Expand(ctx, FieldFullAddress, "AVENU", 1)
	require.NoError(t, err)
	require.Len(t, exps, 1)
	assert.Equal(t, "AVENUE", exps[0].Term)
	assert.Equal(t, 1, exps[0].Distance)
	assert.InDelta(t, 1-1.0/6, exps[0].Similarity, 1e-9)

	exps, err = ix.Expand(ctx, FieldFullAddress, "350", 0)
	require.NoError(t, err)
	require.Len(t, exps, 1)
	assert.InDelta(t, 1.0, exps[0].Similarity, 1e-9)

	exps, err = ix.Expand(ctx, FieldFullAddress, "351", 0)
	require.NoError(t, err)
	assert.Empty(t, exps)

	exps, err = ix.Expand(ctx, FieldFullAddress, "BOSTN", 1)
	require.NoError(t, err)
	require.NotEmpty(t, exps)
	assert.Equal(t, "BOSTON", exps[0].Term)
}

func TestDocFreq_CaseInsensitive(t *testing.T) {
	ix := buildIndex(t, nil, doc("1 Main St", "A", "IL"), doc("2 Main St", "B", "IL"))
	ctx := context.Background()

	df, err := ix.DocFreq(ctx, FieldStreet, "MAIN")
	require.NoError(t, err)
	assert.Equal(t, int64(2), df)

	df, err = ix.DocFreq(ctx, FieldCity, "MAIN")
	require.NoError(t, err)
	assert.Equal(t, int64(0), df)
}

func TestParseField(t *testing.T) {
	f, err := ParseField("full_address")
	require.NoError(t, err)
	assert.Equal(t, FieldFullAddress, f)
	_, err = ParseField("nope")
	assert.Error(t, err)
}
