package geocode

import (
	"context"
	"errors"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/geoindex/internal/index"
	"github.com/sells-group/geoindex/internal/model"
	"github.com/sells-group/geoindex/internal/search"
)

// Match is the local provider's answer for one address.
type Match struct {
	Lat            float64
	Lon            float64
	Address        string
	Score          float64
	Classification model.Classification
	Stage          model.Stage
}

// LocalOption configures a LocalProvider.
type LocalOption func(*LocalProvider)

// WithEngine injects an open engine; the provider then never opens or
// closes an index itself.
func WithEngine(e *search.Engine) LocalOption {
	return func(p *LocalProvider) {
		p.engine = e
		p.injected = true
	}
}

// WithExactOnly rejects approximate top hits.
func WithExactOnly(exactOnly bool) LocalOption {
	return func(p *LocalProvider) {
		p.exactOnly = exactOnly
	}
}

// WithSearchConfig sets the engine configuration used when the provider
// opens the index itself.
func WithSearchConfig(cfg search.Config) LocalOption {
	return func(p *LocalProvider) {
		p.cfg = cfg
	}
}

// WithIndexOptions passes options to index.Open.
func WithIndexOptions(opts ...index.OpenOption) LocalOption {
	return func(p *LocalProvider) {
		p.openOpts = opts
	}
}

// LocalProvider geocodes from a committed index directory.
type LocalProvider struct {
	dir       string
	cfg       search.Config
	exactOnly bool
	openOpts  []index.OpenOption

	mu       sync.Mutex
	engine   *search.Engine
	injected bool
}

// NewLocalProvider creates a provider over the index in dir. The index is
// opened on first use.
func NewLocalProvider(dir string, opts ...LocalOption) *LocalProvider {
	p := &LocalProvider{dir: dir, cfg: search.DefaultConfig()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements Provider.
func (p *LocalProvider) Name() string { return "local" }

// Available implements Provider. It only checks for a committed manifest.
func (p *LocalProvider) Available() bool {
	if p.injected {
		return true
	}
	return index.Exists(p.dir)
}

func (p *LocalProvider) open(ctx context.Context) (*search.Engine, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.engine != nil {
		return p.engine, nil
	}
	ix, err := index.Open(ctx, p.dir, p.openOpts...)
	if err != nil {
		return nil, err
	}
	p.engine = search.NewEngine(ix, p.cfg)
	zap.L().Info("local geocoder opened index",
		zap.String("component", "geocode.local"),
		zap.String("dir", p.dir),
		zap.Int64("docs", ix.NumDocs()),
	)
	return p.engine, nil
}

// Resolve returns the best match for address. ok is false when nothing
// matched, when the index is absent, or in exact-only mode when the best hit
// is approximate.
func (p *LocalProvider) Resolve(ctx context.Context, address string) (*Match, bool, error) {
	e, err := p.open(ctx)
	if errors.Is(err, index.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "geocode: local open")
	}

	hits, err := e.Search(ctx, address, 1)
	if err != nil {
		return nil, false, eris.Wrap(err, "geocode: local search")
	}
	if len(hits) == 0 {
		return nil, false, nil
	}
	top := hits[0]
	if p.exactOnly && top.Classification != model.Exact {
		return nil, false, nil
	}
	return &Match{
		Lat:            top.Lat,
		Lon:            top.Lon,
		Address:        top.Address,
		Score:          top.Score,
		Classification: top.Classification,
		Stage:          top.Stage,
	}, true, nil
}

// Geocode implements Provider.
func (p *LocalProvider) Geocode(ctx context.Context, addr AddressInput) (*Result, error) {
	m, ok, err := p.Resolve(ctx, formatOneLine(addr))
	if err != nil {
		return nil, err
	}
	if !ok {
		return &Result{Matched: false, Source: "local"}, nil
	}
	return &Result{
		Latitude:       m.Lat,
		Longitude:      m.Lon,
		Source:         "local",
		Quality:        string(m.Classification),
		Matched:        true,
		MatchedAddress: m.Address,
		Score:          m.Score,
	}, nil
}

// Close releases an index the provider opened itself.
func (p *LocalProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.engine == nil || p.injected {
		return nil
	}
	err := p.engine.Index().Close()
	p.engine = nil
	return err
}
