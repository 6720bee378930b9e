// Package search runs the multi-stage relevance cascade over an index and
// ranks, classifies and materializes the hits.
package search

import (
	"cmp"
	"context"
	"slices"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/geoindex/internal/index"
	"github.com/sells-group/geoindex/internal/metrics"
	"github.com/sells-group/geoindex/internal/model"
)

// Boosts weights each cascade stage.
type Boosts struct {
	ExactPhrase float64 `mapstructure:"exact_phrase" yaml:"exact_phrase"`
	StreetTerms float64 `mapstructure:"street_terms" yaml:"street_terms"`
	FullPhrase  float64 `mapstructure:"full_phrase" yaml:"full_phrase"`
	Fuzzy       float64 `mapstructure:"fuzzy" yaml:"fuzzy"`
}

// Config tunes the engine. Weights are the bm25 column weights applied in
// every stage.
type Config struct {
	ExactThreshold float64
	Boosts         Boosts
	Weights        index.Weights
	MaxEdits       int
	TopK           int
}

// maxExpansions caps the fuzzy alternatives kept per query token.
const maxExpansions = 32

// DefaultConfig returns the stock boosts and the threshold they were
// calibrated against.
func DefaultConfig() Config {
	return Config{
		ExactThreshold: 8.0,
		Boosts:         Boosts{ExactPhrase: 10, StreetTerms: 6, FullPhrase: 3, Fuzzy: 1},
		MaxEdits:       2,
		TopK:           5,
	}
}

// Engine answers address queries against an open index. It is safe for
// concurrent use.
type Engine struct {
	ix  *index.Index
	cfg Config
	log *zap.Logger
}

// NewEngine wraps ix. Zero-valued config fields fall back to defaults.
func NewEngine(ix *index.Index, cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.ExactThreshold <= 0 {
		cfg.ExactThreshold = def.ExactThreshold
	}
	if cfg.Boosts == (Boosts{}) {
		cfg.Boosts = def.Boosts
	}
	if cfg.MaxEdits < 0 {
		cfg.MaxEdits = 0
	}
	if cfg.TopK <= 0 {
		cfg.TopK = def.TopK
	}
	return &Engine{
		ix:  ix,
		cfg: cfg,
		log: zap.L().With(zap.String("component", "search")),
	}
}

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.cfg }

// Index returns the underlying index.
func (e *Engine) Index() *index.Index { return e.ix }

type stage struct {
	stage model.Stage
	boost float64
	query index.Query
}

type scored struct {
	id    index.DocID
	score float64
	stage model.Stage
}

// Search runs every applicable stage, keeps each document's best stage score,
// and returns up to topK hits by descending score. topK <= 0 uses the
// configured default. An empty query yields no hits.
func (e *Engine) Search(ctx context.Context, raw string, topK int) ([]model.Hit, error) {
	start := time.Now()
	if topK <= 0 {
		topK = e.cfg.TopK
	}
	q := ParseQuery(raw)
	if q.Empty() {
		return nil, nil
	}

	stages, err := e.plan(ctx, q)
	if err != nil {
		return nil, err
	}

	// Each stage returns at most topK documents: a document outside a
	// stage's own top K cannot reach the merged top K through that stage.
	best := make(map[index.DocID]scored)
	for _, st := range stages {
		matches, err := e.ix.Search(ctx, index.Request{Query: st.query, Weights: e.cfg.Weights, Limit: topK})
		if err != nil {
			return nil, eris.Wrapf(err, "search: stage %s", st.stage)
		}
		for _, m := range matches {
			s := m.Score * st.boost
			if cur, ok := best[m.ID]; !ok || s > cur.score {
				best[m.ID] = scored{id: m.ID, score: s, stage: st.stage}
			}
		}
	}

	ranked := make([]scored, 0, len(best))
	for _, s := range best {
		ranked = append(ranked, s)
	}
	slices.SortFunc(ranked, func(a, b scored) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		return a.id.Compare(b.id)
	})
	if len(ranked) > topK {
		ranked = ranked[:topK]
	}

	hits := make([]model.Hit, 0, len(ranked))
	for _, r := range ranked {
		doc, err := e.ix.Document(ctx, r.id)
		if err != nil {
			return nil, eris.Wrap(err, "search: load hit")
		}
		hits = append(hits, model.NewHit(doc, r.score, r.stage, e.cfg.ExactThreshold))
	}

	metrics.ObserveSearch(time.Since(start), hits)
	e.log.Debug("search",
		zap.String("query", raw),
		zap.Int("stages", len(stages)),
		zap.Int("candidates", len(best)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return hits, nil
}

func (e *Engine) plan(ctx context.Context, q ParsedQuery) ([]stage, error) {
	b := e.cfg.Boosts
	var stages []stage

	if q.Structured() {
		streetToks := index.Tokenize(q.Street)
		var filters []index.Query
		if q.City != "" {
			filters = append(filters, index.Phrase(index.FieldCity, index.Tokenize(q.City)...))
		}
		if q.State != "" {
			filters = append(filters, index.Term(index.FieldState, q.State))
		}
		if q.Postcode != "" {
			filters = append(filters, index.Term(index.FieldPostcode, q.Postcode))
		}

		exact := append([]index.Query{phraseWithTerms(index.FieldStreet, streetToks)}, filters...)
		stages = append(stages, stage{model.StageExactPhrase, b.ExactPhrase, index.And(exact...)})

		terms := append(termQueries(index.FieldStreet, streetToks), filters...)
		stages = append(stages, stage{model.StageStreetTerms, b.StreetTerms, index.And(terms...)})
	}

	stages = append(stages, stage{model.StageFullPhrase, b.FullPhrase, phraseWithTerms(index.FieldFullAddress, q.Tokens)})

	fuzzy, err := e.fuzzyQuery(ctx, q.Tokens)
	if err != nil {
		return nil, err
	}
	if !fuzzy.IsZero() {
		stages = append(stages, stage{model.StageFuzzy, b.Fuzzy, fuzzy})
	}
	return stages, nil
}

// phraseWithTerms matches tokens as a phrase and also scores each token, so a
// phrase stage never ranks a document below the looser stage after it.
func phraseWithTerms(f index.Field, tokens []string) index.Query {
	uniq := dedupe(tokens)
	if len(uniq) < 2 {
		return index.Phrase(f, tokens...)
	}
	return index.And(append([]index.Query{index.Phrase(f, tokens...)}, termQueries(f, uniq)...)...)
}

func termQueries(f index.Field, tokens []string) []index.Query {
	uniq := dedupe(tokens)
	out := make([]index.Query, 0, len(uniq))
	for _, t := range uniq {
		out = append(out, index.Term(f, t))
	}
	return out
}

// fuzzyQuery requires every token with at least one expansion, matching any
// of its nearest expansions. Tokens with no indexed neighbor are dropped
// rather than failing the match.
func (e *Engine) fuzzyQuery(ctx context.Context, tokens []string) (index.Query, error) {
	var clauses []index.Query
	for _, tok := range dedupe(tokens) {
		exps, err := e.ix.Expand(ctx, index.FieldFullAddress, tok, editBudget(tok, e.cfg.MaxEdits))
		if err != nil {
			return index.Query{}, eris.Wrapf(err, "search: expand %s", tok)
		}
		if len(exps) == 0 {
			continue
		}
		if len(exps) > maxExpansions {
			exps = exps[:maxExpansions]
		}
		alts := make([]index.Query, len(exps))
		for i, x := range exps {
			alts[i] = index.Term(index.FieldFullAddress, x.Term)
		}
		clauses = append(clauses, index.Or(alts...))
	}
	return index.And(clauses...), nil
}

// editBudget scales the allowed edit distance with token length. Numbers
// must match exactly.
func editBudget(tok string, maxEdits int) int {
	if isNumeric(tok) {
		return 0
	}
	n := utf8.RuneCountInString(tok)
	switch {
	case n < 3:
		return 0
	case n <= 5:
		return min(1, maxEdits)
	default:
		return maxEdits
	}
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}

func dedupe(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
