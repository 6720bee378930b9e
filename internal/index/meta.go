package index

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
)

const (
	// MetaFile is written last by a build; its presence marks a committed index.
	MetaFile = "meta.json"
	// LockFile guards a directory against concurrent builds.
	LockFile = ".build.lock"

	segmentPrefix = "seg_"
	segmentExt    = ".db"
)

// Meta is the committed manifest of an index directory.
type Meta struct {
	SchemaVersion int           `json:"schema_version"`
	Fields        []string      `json:"fields"`
	Segments      []SegmentMeta `json:"segments"`
	CommittedAt   time.Time     `json:"committed_at"`
}

// SegmentMeta describes one immutable segment file.
type SegmentMeta struct {
	ID   string `json:"id"`
	File string `json:"file"`
	Docs int64  `json:"docs"`
}

// NumDocs returns the total document count across segments.
func (m *Meta) NumDocs() int64 {
	var n int64
	for _, s := range m.Segments {
		n += s.Docs
	}
	return n
}

// Exists reports whether dir holds a committed index.
func Exists(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, MetaFile))
	return err == nil && info.Mode().IsRegular()
}

// ReadMeta loads and validates the manifest of dir.
func ReadMeta(dir string) (*Meta, error) {
	data, err := os.ReadFile(filepath.Join(dir, MetaFile))
	if os.IsNotExist(err) {
		return nil, eris.Wrapf(ErrNotFound, "index: no %s in %s", MetaFile, dir)
	}
	if err != nil {
		return nil, eris.Wrap(err, "index: read meta")
	}
	var m Meta
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrapf(ErrCorrupt, "index: decode meta: %v", err)
	}
	if m.SchemaVersion != SchemaVersion {
		return nil, eris.Wrapf(ErrCorrupt, "index: schema version %d, want %d", m.SchemaVersion, SchemaVersion)
	}
	for _, s := range m.Segments {
		if s.File == "" || filepath.Base(s.File) != s.File {
			return nil, eris.Wrapf(ErrCorrupt, "index: bad segment file %q", s.File)
		}
	}
	return &m, nil
}

// writeMeta replaces the manifest atomically.
func writeMeta(dir string, m *Meta) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return eris.Wrap(err, "index: encode meta")
	}
	tmp := filepath.Join(dir, MetaFile+".tmp")
	f, err := os.Create(tmp)
	if err != nil {
		return eris.Wrap(err, "index: create meta")
	}
	if _, err := f.Write(data); err != nil {
		f.Close() //nolint:errcheck
		return eris.Wrap(err, "index: write meta")
	}
	if err := f.Sync(); err != nil {
		f.Close() //nolint:errcheck
		return eris.Wrap(err, "index: sync meta")
	}
	if err := f.Close(); err != nil {
		return eris.Wrap(err, "index: close meta")
	}
	return eris.Wrap(os.Rename(tmp, filepath.Join(dir, MetaFile)), "index: commit meta")
}
