package index

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/geoindex/internal/model"
)

// readerPragmas are applied to every pooled connection of an open segment.
const readerPragmas = "?_pragma=query_only(1)&_pragma=mmap_size(268435456)&_pragma=cache_size(-16384)"

// searchSQL ranks by bm25, which FTS5 reports as a negative number where
// smaller is better; the sign is flipped so larger scores rank first.
const searchSQL = `
SELECT rowid, -bm25(addr, ?, ?, ?, ?, ?) AS score
FROM addr
WHERE addr MATCH ?
ORDER BY score DESC, rowid
LIMIT ?`

// writeSegment persists docs as a new SQLite file at path and builds its
// full-text index.
func writeSegment(ctx context.Context, path string, docs []model.Document) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return eris.Wrap(err, "segment: open")
	}
	defer db.Close() //nolint:errcheck
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=OFF",
		"PRAGMA synchronous=OFF",
		fmt.Sprintf("PRAGMA user_version=%d", SchemaVersion),
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return eris.Wrapf(err, "segment: exec %s", pragma)
		}
	}
	if _, err := db.ExecContext(ctx, segmentDDL); err != nil {
		return eris.Wrap(err, "segment: create schema")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "segment: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO docs (doc, street, city, state, postcode, full_address, lat, lon, source) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "segment: prepare docs")
	}
	defer stmt.Close() //nolint:errcheck
	for i, d := range docs {
		if _, err := stmt.ExecContext(ctx, i, d.Street, d.City, d.State, d.Postcode, d.FullAddress, d.Lat, d.Lon, string(d.Source)); err != nil {
			return eris.Wrapf(err, "segment: insert doc %d", i)
		}
	}

	// rebuild reads the content table in one pass; optimize merges the
	// resulting b-trees so readers see a single level.
	for _, cmd := range []string{"rebuild", "optimize"} {
		if _, err := tx.ExecContext(ctx, `INSERT INTO addr(addr) VALUES (?)`, cmd); err != nil {
			return eris.Wrapf(err, "segment: fts %s", cmd)
		}
	}
	return eris.Wrap(tx.Commit(), "segment: commit")
}

// segment is an open, read-only segment file.
type segment struct {
	id   string
	docs int64
	db   *sql.DB
}

type segmentMatch struct {
	doc   int64
	score float64
}

func openSegment(ctx context.Context, dir string, sm SegmentMeta) (*segment, error) {
	path := filepath.Join(dir, sm.File)
	if info, err := os.Stat(path); err != nil || !info.Mode().IsRegular() {
		return nil, eris.Wrapf(ErrCorrupt, "segment: %s missing", sm.File)
	}
	db, err := sql.Open("sqlite", path+readerPragmas)
	if err != nil {
		return nil, eris.Wrapf(err, "segment: open %s", sm.File)
	}

	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		db.Close() //nolint:errcheck
		return nil, eris.Wrapf(ErrCorrupt, "segment: %s unreadable: %v", sm.File, err)
	}
	if version != SchemaVersion {
		db.Close() //nolint:errcheck
		return nil, eris.Wrapf(ErrCorrupt, "segment: %s has schema version %d, want %d", sm.File, version, SchemaVersion)
	}

	var maxDoc int64
	if err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(doc), -1) FROM docs").Scan(&maxDoc); err != nil {
		db.Close() //nolint:errcheck
		return nil, eris.Wrapf(ErrCorrupt, "segment: %s unreadable: %v", sm.File, err)
	}
	if maxDoc+1 != sm.Docs {
		db.Close() //nolint:errcheck
		return nil, eris.Wrapf(ErrCorrupt, "segment: %s holds %d docs, manifest says %d", sm.File, maxDoc+1, sm.Docs)
	}
	return &segment{id: sm.ID, docs: sm.Docs, db: db}, nil
}

func (s *segment) close() error {
	return s.db.Close()
}

// search runs an FTS5 match expression. limit <= 0 returns every match.
func (s *segment) search(ctx context.Context, expr string, w Weights, limit int) ([]segmentMatch, error) {
	if limit <= 0 {
		limit = -1
	}
	args := append(w.args(), expr, limit)
	rows, err := s.db.QueryContext(ctx, searchSQL, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "segment: match %s", expr)
	}
	defer rows.Close() //nolint:errcheck

	var out []segmentMatch
	for rows.Next() {
		var m segmentMatch
		if err := rows.Scan(&m.doc, &m.score); err != nil {
			return nil, eris.Wrap(err, "segment: scan match")
		}
		out = append(out, m)
	}
	return out, eris.Wrap(rows.Err(), "segment: iterate matches")
}

// docFreq counts the documents holding term in f.
func (s *segment) docFreq(ctx context.Context, f Field, term string) (int64, error) {
	var df int64
	err := s.db.QueryRowContext(ctx,
		`SELECT doc FROM addr_vocab WHERE term = ? AND col = ?`, strings.ToLower(term), f.String()).Scan(&df)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, eris.Wrapf(err, "segment: doc freq %s:%s", f, term)
	}
	return df, nil
}

// terms lists the distinct terms of f. The tokenizer folds case, so terms
// are returned upper-cased to match normalized text.
func (s *segment) terms(ctx context.Context, f Field) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT term FROM addr_vocab WHERE col = ?`, f.String())
	if err != nil {
		return nil, eris.Wrap(err, "segment: query terms")
	}
	defer rows.Close() //nolint:errcheck

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, eris.Wrap(err, "segment: scan term")
		}
		out = append(out, strings.ToUpper(t))
	}
	return out, eris.Wrap(rows.Err(), "segment: iterate terms")
}

func (s *segment) document(ctx context.Context, doc int64) (model.Document, error) {
	var d model.Document
	var src string
	err := s.db.QueryRowContext(ctx,
		`SELECT street, city, state, postcode, full_address, lat, lon, source FROM docs WHERE doc = ?`, doc,
	).Scan(&d.Street, &d.City, &d.State, &d.Postcode, &d.FullAddress, &d.Lat, &d.Lon, &src)
	if err == sql.ErrNoRows {
		return d, eris.Wrapf(ErrCorrupt, "segment: %s has no doc %d", s.id, doc)
	}
	if err != nil {
		return d, eris.Wrapf(err, "segment: load doc %d", doc)
	}
	d.Source = model.Source(src)
	return d, nil
}
