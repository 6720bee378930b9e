package index

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/geoindex/internal/model"
)

func TestBuild_EmptyIndex(t *testing.T) {
	dir := t.TempDir()
	m, err := Build(context.Background(), dir, nil)
	require.NoError(t, err)
	assert.Empty(t, m.Segments)
	assert.True(t, Exists(dir))
	assert.NoFileExists(t, filepath.Join(dir, LockFile))

	ix, err := Open(context.Background(), dir)
	require.NoError(t, err)
	defer ix.Close() //nolint:errcheck
	assert.Equal(t, int64(0), ix.NumDocs())

	s, err := ix.Search(context.Background(), Request{Query: Term(FieldStreet, "MAIN")})
	require.NoError(t, err)
	assert.Empty(t, s)
}

func TestBuild_MultipleSegments(t *testing.T) {
	var docs []model.Document
	for _, s := range []string{"1 Main St", "2 Main St", "3 Oak Ave", "4 Main St", "5 Elm Rd", "6 Main St"} {
		docs = append(docs, doc(s, "Springfield", "IL"))
	}
	var flushed []SegmentMeta
	ix := buildIndex(t, []WriterOption{WithHeapBudget(1), WithFlushHook(func(sm SegmentMeta) { flushed = append(flushed, sm) })}, docs...)

	assert.Len(t, ix.Meta().Segments, len(docs))
	assert.Len(t, flushed, len(docs))
	assert.Equal(t, int64(len(docs)), ix.NumDocs())

	df, err := ix.DocFreq(context.Background(), FieldStreet, "MAIN")
	require.NoError(t, err)
	assert.Equal(t, int64(4), df)

	got := streets(t, ix, search(t, ix, Term(FieldStreet, "MAIN")))
	assert.Equal(t, []string{"1 MAIN STREET", "2 MAIN STREET", "4 MAIN STREET", "6 MAIN STREET"}, got)
}

func TestBuild_ReplacesPreviousIndex(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	_, err := Build(ctx, dir, streams(doc("1 Main St", "A", "IL")))
	require.NoError(t, err)
	_, err = Build(ctx, dir, streams(doc("9 Oak Ave", "B", "IL"), doc("8 Oak Ave", "B", "IL")))
	require.NoError(t, err)

	matches, err := filepath.Glob(filepath.Join(dir, "seg_*"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	ix, err := Open(ctx, dir)
	require.NoError(t, err)
	defer ix.Close() //nolint:errcheck
	assert.Equal(t, int64(2), ix.NumDocs())
}

func TestBuild_StreamErrorRollsBack(t *testing.T) {
	dir := t.TempDir()
	boom := errors.New("bad archive")
	stream := func(yield func(model.Document, error) bool) {
		if !yield(doc("1 Main St", "A", "IL"), nil) {
			return
		}
		yield(model.Document{}, boom)
	}
	_, err := Build(context.Background(), dir, []iter.Seq2[model.Document, error]{stream}, WithHeapBudget(1))
	require.ErrorIs(t, err, boom)
	assert.False(t, Exists(dir))
	assert.NoFileExists(t, filepath.Join(dir, LockFile))
	matches, _ := filepath.Glob(filepath.Join(dir, "seg_*"))
	assert.Empty(t, matches)
}

func TestWriter_Locked(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	require.NoError(t, err)

	_, err = NewWriter(dir)
	require.ErrorIs(t, err, ErrLocked)

	require.NoError(t, w.Rollback())
	w2, err := NewWriter(dir)
	require.NoError(t, err)
	require.NoError(t, w2.Rollback())
}

func TestWriter_StaleLockFromDeadProcess(t *testing.T) {
	dir := t.TempDir()
	// Larger than any pid_max, so no process can own it.
	require.NoError(t, os.WriteFile(filepath.Join(dir, LockFile), []byte("2147483646\n"), 0o644))

	w, err := NewWriter(dir)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, LockFile))
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("%d\n", os.Getpid()), string(data))
	require.NoError(t, w.Rollback())
	assert.NoFileExists(t, filepath.Join(dir, LockFile))
}

func TestWriter_UnreadableLockStaysLocked(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, LockFile), []byte("not a pid"), 0o644))

	_, err := NewWriter(dir)
	require.ErrorIs(t, err, ErrLocked)
	assert.FileExists(t, filepath.Join(dir, LockFile))
}

func TestWriter_InterruptedBuildIsUncommitted(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	_, err := Build(ctx, dir, streams(doc("1 Main St", "A", "IL")))
	require.NoError(t, err)

	w, err := NewWriter(dir, WithHeapBudget(1))
	require.NoError(t, err)
	require.NoError(t, w.Add(ctx, doc("2 Main St", "A", "IL")))
	assert.False(t, Exists(dir), "old meta must be gone while a build is running")

	_, err = Open(ctx, dir)
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, w.Rollback())
}

func TestWriter_RejectsInvalidDocument(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	require.NoError(t, err)
	defer w.Rollback() //nolint:errcheck

	err = w.Add(context.Background(), model.Document{})
	assert.Error(t, err)
	assert.Equal(t, int64(0), w.NumDocs())
}

func TestOpen_NotFound(t *testing.T) {
	_, err := Open(context.Background(), t.TempDir())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestOpen_MissingSegment(t *testing.T) {
	dir := t.TempDir()
	m, err := Build(context.Background(), dir, streams(doc("1 Main St", "A", "IL")))
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(dir, m.Segments[0].File)))

	_, err = Open(context.Background(), dir)
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestOpen_SchemaMismatch(t *testing.T) {
	dir := t.TempDir()
	m, err := Build(context.Background(), dir, streams(doc("1 Main St", "A", "IL")))
	require.NoError(t, err)

	db, err := sql.Open("sqlite", filepath.Join(dir, m.Segments[0].File))
	require.NoError(t, err)
	_, err = db.Exec("PRAGMA user_version=99")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = Open(context.Background(), dir)
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestOpen_GarbageSegment(t *testing.T) {
	dir := t.TempDir()
	m, err := Build(context.Background(), dir, streams(doc("1 Main St", "A", "IL")))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, m.Segments[0].File), bytes.Repeat([]byte("not a database "), 128), 0o644))

	_, err = Open(context.Background(), dir)
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestReadMeta_BadJSON(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, MetaFile), []byte("{"), 0o644))
	_, err := ReadMeta(dir)
	require.ErrorIs(t, err, ErrCorrupt)
}
