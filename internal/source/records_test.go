package source

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/geoindex/internal/model"
)

func seqOf(docs []model.Document, tail error) Records {
	return func(yield func(model.Document, error) bool) {
		for _, d := range docs {
			if !yield(d, nil) {
				return
			}
		}
		if tail != nil {
			yield(model.Document{}, tail)
		}
	}
}

func streetsOf(t *testing.T, r Records) ([]string, error) {
	t.Helper()
	var out []string
	for doc, err := range r {
		if err != nil {
			return out, err
		}
		out = append(out, doc.Street)
	}
	return out, nil
}

func TestConcat(t *testing.T) {
	a := seqOf([]model.Document{{Street: "1 MAIN STREET"}, {Street: "2 MAIN STREET"}}, nil)
	b := seqOf([]model.Document{{Street: "3 OAK AVENUE"}}, nil)

	got, err := streetsOf(t, Concat(a, b))
	require.NoError(t, err)
	assert.Equal(t, []string{"1 MAIN STREET", "2 MAIN STREET", "3 OAK AVENUE"}, got)
}

func TestConcat_StopsAtError(t *testing.T) {
	boom := errors.New("boom")
	a := seqOf([]model.Document{{Street: "1 MAIN STREET"}}, boom)
	b := seqOf([]model.Document{{Street: "3 OAK AVENUE"}}, nil)

	got, err := streetsOf(t, Concat(a, b))
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"1 MAIN STREET"}, got)
}

func TestConcat_EarlyBreak(t *testing.T) {
	a := seqOf([]model.Document{{Street: "1"}, {Street: "2"}}, nil)
	b := seqOf([]model.Document{{Street: "3"}}, nil)

	var got []string
	for doc := range Concat(a, b) {
		got = append(got, doc.Street)
		break
	}
	assert.Equal(t, []string{"1"}, got)
}

func TestFirstState(t *testing.T) {
	assert.Equal(t, "IL", firstState("", "Illinois", "NY"))
	assert.Equal(t, "NY", firstState("bogus", "", "ny"))
	assert.Empty(t, firstState("", "XX"))
}

func TestStats_NilSafe(t *testing.T) {
	var s *Stats
	s.emitted()
	s.skipped()

	s = &Stats{}
	s.emitted()
	s.skipped()
	s.skipped()
	assert.Equal(t, int64(1), s.Emitted.Load())
	assert.Equal(t, int64(2), s.Skipped.Load())
}
