package index

import (
	"context"
	"iter"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/geoindex/internal/model"
)

// DefaultHeapBudget is the in-memory size at which a segment is flushed.
const DefaultHeapBudget int64 = 256 << 20

// Writer builds a new index into a directory. Documents accumulate in memory
// and are flushed to immutable segment files; Commit writes meta.json last so
// readers never see a partial build.
type Writer struct {
	dir      string
	budget   int64
	mem      *batch
	segments []SegmentMeta
	lock     *os.File
	done     bool
	log      *zap.Logger

	onFlush func(SegmentMeta)
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithHeapBudget sets the flush threshold in bytes. Non-positive values keep
// the default.
func WithHeapBudget(bytes int64) WriterOption {
	return func(w *Writer) {
		if bytes > 0 {
			w.budget = bytes
		}
	}
}

// WithFlushHook registers a callback invoked after each segment is written.
func WithFlushHook(fn func(SegmentMeta)) WriterOption {
	return func(w *Writer) { w.onFlush = fn }
}

// NewWriter locks dir and clears any previous index in it. The old meta.json
// is removed first, so an interrupted build leaves the directory uncommitted.
func NewWriter(dir string, opts ...WriterOption) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "index: create %s", dir)
	}
	log := zap.L().With(zap.String("component", "index.writer"), zap.String("dir", dir))
	lock, err := acquireLock(dir, log)
	if err != nil {
		return nil, err
	}

	w := &Writer{
		dir:    dir,
		budget: DefaultHeapBudget,
		mem:    &batch{},
		lock:   lock,
		log:    log,
	}
	for _, opt := range opts {
		opt(w)
	}

	if err := w.clearPrevious(); err != nil {
		w.releaseLock() //nolint:errcheck
		return nil, err
	}
	return w, nil
}

func (w *Writer) clearPrevious() error {
	for _, name := range []string{MetaFile, MetaFile + ".tmp"} {
		if err := os.Remove(filepath.Join(w.dir, name)); err != nil && !os.IsNotExist(err) {
			return eris.Wrapf(err, "index: remove %s", name)
		}
	}
	return w.removeSegments()
}

func (w *Writer) removeSegments() error {
	matches, err := filepath.Glob(filepath.Join(w.dir, segmentPrefix+"*"))
	if err != nil {
		return eris.Wrap(err, "index: glob segments")
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
			return eris.Wrapf(err, "index: remove %s", filepath.Base(m))
		}
	}
	return nil
}

// Add buffers one document, flushing a segment once the heap budget is
// exceeded.
func (w *Writer) Add(ctx context.Context, doc model.Document) error {
	if w.done {
		return eris.New("index: writer is closed")
	}
	if err := doc.Validate(); err != nil {
		return eris.Wrap(err, "index: add")
	}
	w.mem.add(doc)
	if w.mem.bytes >= w.budget {
		return w.flush(ctx)
	}
	return nil
}

// AddAll drains a document stream. The first stream error aborts the build.
func (w *Writer) AddAll(ctx context.Context, docs iter.Seq2[model.Document, error]) (int64, error) {
	var n int64
	for doc, err := range docs {
		if err != nil {
			return n, err
		}
		if err := ctx.Err(); err != nil {
			return n, eris.Wrap(err, "index: build interrupted")
		}
		if err := w.Add(ctx, doc); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (w *Writer) flush(ctx context.Context) error {
	if w.mem.empty() {
		return nil
	}
	id := uuid.New().String()
	sm := SegmentMeta{
		ID:   id,
		File: segmentPrefix + id + segmentExt,
		Docs: int64(len(w.mem.docs)),
	}
	start := time.Now()
	if err := writeSegment(ctx, filepath.Join(w.dir, sm.File), w.mem.docs); err != nil {
		return err
	}
	w.log.Info("segment flushed",
		zap.String("segment", sm.File),
		zap.Int64("docs", sm.Docs),
		zap.Int("tokens", w.mem.tokens),
		zap.Duration("elapsed", time.Since(start)),
	)
	w.segments = append(w.segments, sm)
	w.mem = &batch{}
	if w.onFlush != nil {
		w.onFlush(sm)
	}
	return nil
}

// NumDocs returns the number of documents added so far.
func (w *Writer) NumDocs() int64 {
	n := int64(len(w.mem.docs))
	for _, s := range w.segments {
		n += s.Docs
	}
	return n
}

// Commit flushes the remaining documents and publishes meta.json. An empty
// build commits a valid index with no segments.
func (w *Writer) Commit(ctx context.Context) (*Meta, error) {
	if w.done {
		return nil, eris.New("index: writer is closed")
	}
	if err := w.flush(ctx); err != nil {
		return nil, err
	}
	m := &Meta{
		SchemaVersion: SchemaVersion,
		Fields:        FieldNames(),
		Segments:      w.segments,
		CommittedAt:   time.Now().UTC(),
	}
	if m.Segments == nil {
		m.Segments = []SegmentMeta{}
	}
	if err := writeMeta(w.dir, m); err != nil {
		return nil, err
	}
	w.done = true
	w.log.Info("index committed", zap.Int("segments", len(m.Segments)), zap.Int64("docs", m.NumDocs()))
	return m, w.releaseLock()
}

// Rollback abandons the build, removing written segments and the lock.
// Calling it after Commit is a no-op.
func (w *Writer) Rollback() error {
	if w.done {
		return nil
	}
	w.done = true
	err := w.removeSegments()
	if lerr := w.releaseLock(); err == nil {
		err = lerr
	}
	return err
}

func (w *Writer) releaseLock() error {
	if w.lock == nil {
		return nil
	}
	w.lock.Close() //nolint:errcheck
	w.lock = nil
	if err := os.Remove(filepath.Join(w.dir, LockFile)); err != nil && !os.IsNotExist(err) {
		return eris.Wrap(err, "index: release lock")
	}
	return nil
}

// Build writes every stream into a fresh index at dir, rolling back on
// failure.
func Build(ctx context.Context, dir string, streams []iter.Seq2[model.Document, error], opts ...WriterOption) (*Meta, error) {
	w, err := NewWriter(dir, opts...)
	if err != nil {
		return nil, err
	}
	for _, s := range streams {
		if _, err := w.AddAll(ctx, s); err != nil {
			w.Rollback() //nolint:errcheck
			return nil, err
		}
	}
	m, err := w.Commit(ctx)
	if err != nil {
		w.Rollback() //nolint:errcheck
		return nil, err
	}
	return m, nil
}
