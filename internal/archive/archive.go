// Package archive packs a committed index directory into a single
// zstd-compressed tarball and restores it on another host.
package archive

import (
	"archive/tar"
	"errors"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/geoindex/internal/index"
)

// ErrCorrupt is returned when an artifact is truncated, fails its checksum or
// does not contain a committed index.
var ErrCorrupt = eris.New("archive: corrupt artifact")

// skipped names are build scratch files, never part of a committed index.
var skipped = map[string]bool{
	index.LockFile:           true,
	index.MetaFile + ".tmp": true,
}

// Pack writes the committed index in dir to w as tar+zstd. Files are stored
// in lexical order with their mode and modification time.
func Pack(dir string, w io.Writer) error {
	if !index.Exists(dir) {
		return eris.Wrapf(index.ErrNotFound, "archive: %s has no committed index", dir)
	}

	enc, err := zstd.NewWriter(w, zstd.WithEncoderCRC(true), zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return eris.Wrap(err, "archive: create encoder")
	}
	tw := tar.NewWriter(enc)

	var files int
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || skipped[d.Name()] || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		files++
		return addFile(tw, p, filepath.ToSlash(rel))
	})
	if err != nil {
		enc.Close() //nolint:errcheck
		return eris.Wrap(err, "archive: pack")
	}
	if err := tw.Close(); err != nil {
		enc.Close() //nolint:errcheck
		return eris.Wrap(err, "archive: close tar")
	}
	if err := enc.Close(); err != nil {
		return eris.Wrap(err, "archive: close encoder")
	}
	zap.L().Info("index packed", zap.String("component", "archive"), zap.String("dir", dir), zap.Int("files", files))
	return nil
}

func addFile(tw *tar.Writer, p, name string) error {
	f, err := os.Open(p)
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck

	info, err := f.Stat()
	if err != nil {
		return err
	}
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = name
	hdr.Uid, hdr.Gid, hdr.Uname, hdr.Gname = 0, 0, "", ""
	hdr.AccessTime, hdr.ChangeTime = time.Time{}, time.Time{}
	hdr.Format = tar.FormatPAX

	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err = io.Copy(tw, f)
	return err
}

// PackFile packs dir into the file at out, replacing it only when packing
// succeeds.
func PackFile(dir, out string) error {
	tmp := out + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return eris.Wrapf(err, "archive: create %s", tmp)
	}
	if err := Pack(dir, f); err != nil {
		f.Close()      //nolint:errcheck
		os.Remove(tmp) //nolint:errcheck
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()      //nolint:errcheck
		os.Remove(tmp) //nolint:errcheck
		return eris.Wrap(err, "archive: sync")
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp) //nolint:errcheck
		return eris.Wrap(err, "archive: close")
	}
	return eris.Wrap(os.Rename(tmp, out), "archive: rename artifact")
}

// Unpack restores an artifact into target. Extraction happens in a sibling
// staging directory; target is replaced only after the whole stream has been
// read, checksummed and found to hold a committed index. On error target is
// left as it was.
func Unpack(r io.Reader, target string) error {
	target = filepath.Clean(target)
	parent := filepath.Dir(target)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return eris.Wrapf(err, "archive: create %s", parent)
	}
	staging, err := os.MkdirTemp(parent, "."+filepath.Base(target)+".unpack-")
	if err != nil {
		return eris.Wrap(err, "archive: create staging dir")
	}
	defer os.RemoveAll(staging) //nolint:errcheck

	if err := extract(r, staging); err != nil {
		return err
	}

	m, err := index.ReadMeta(staging)
	if err != nil {
		return eris.Wrapf(ErrCorrupt, "archive: %v", err)
	}
	for _, s := range m.Segments {
		if _, err := os.Stat(filepath.Join(staging, s.File)); err != nil {
			return eris.Wrapf(ErrCorrupt, "archive: segment %s missing", s.File)
		}
	}

	// MkdirTemp creates 0700; installed index dirs are world-readable.
	if err := os.Chmod(staging, 0o755); err != nil {
		return eris.Wrap(err, "archive: chmod staging dir")
	}
	if err := swap(staging, target); err != nil {
		return err
	}
	zap.L().Info("index unpacked",
		zap.String("component", "archive"),
		zap.String("dir", target),
		zap.Int("segments", len(m.Segments)),
		zap.Int64("docs", m.NumDocs()),
	)
	return nil
}

func extract(r io.Reader, dir string) error {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return eris.Wrapf(ErrCorrupt, "archive: open decoder: %v", err)
	}
	defer dec.Close()

	tr := tar.NewReader(dec)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return eris.Wrapf(ErrCorrupt, "archive: read entry: %v", err)
		}
		switch hdr.Typeflag {
		case tar.TypeReg:
		case tar.TypeDir:
			continue
		default:
			return eris.Wrapf(ErrCorrupt, "archive: unexpected entry type for %q", hdr.Name)
		}
		name, err := sanitize(hdr.Name)
		if err != nil {
			return err
		}
		if err := writeEntry(tr, hdr, filepath.Join(dir, filepath.FromSlash(name))); err != nil {
			return err
		}
	}

	// Reading to the end verifies the trailing frame checksum.
	if _, err := io.Copy(io.Discard, dec); err != nil {
		return eris.Wrapf(ErrCorrupt, "archive: trailing data: %v", err)
	}
	return nil
}

func writeEntry(tr *tar.Reader, hdr *tar.Header, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return eris.Wrap(err, "archive: create dir")
	}
	f, err := os.OpenFile(dest, os.O_CREATE|os.O_EXCL|os.O_WRONLY, hdr.FileInfo().Mode().Perm()|0o200)
	if err != nil {
		return eris.Wrapf(err, "archive: create %s", hdr.Name)
	}
	n, err := io.Copy(f, tr)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		if isLocalIOError(err) {
			return eris.Wrapf(err, "archive: write %s", hdr.Name)
		}
		return eris.Wrapf(ErrCorrupt, "archive: read %s: %v", hdr.Name, err)
	}
	if n != hdr.Size {
		return eris.Wrapf(ErrCorrupt, "archive: %s is %d bytes, header says %d", hdr.Name, n, hdr.Size)
	}
	if err := os.Chmod(dest, hdr.FileInfo().Mode().Perm()); err != nil {
		return eris.Wrap(err, "archive: chmod")
	}
	return eris.Wrap(os.Chtimes(dest, hdr.ModTime, hdr.ModTime), "archive: set mtime")
}

// isLocalIOError reports whether err came from the filesystem rather than
// the decoder.
func isLocalIOError(err error) bool {
	var pe *fs.PathError
	return errors.As(err, &pe)
}

func sanitize(name string) (string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	clean := path.Clean(name)
	if path.IsAbs(clean) || clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", eris.Wrapf(ErrCorrupt, "archive: illegal path %q", name)
	}
	return clean, nil
}

// swap moves staging into place at target, keeping the old target until the
// new one is in place.
func swap(staging, target string) error {
	old := ""
	if _, err := os.Lstat(target); err == nil {
		old = staging + ".old"
		if err := os.Rename(target, old); err != nil {
			return eris.Wrapf(err, "archive: move aside %s", target)
		}
	}
	if err := os.Rename(staging, target); err != nil {
		if old != "" {
			os.Rename(old, target) //nolint:errcheck
		}
		return eris.Wrapf(err, "archive: install %s", target)
	}
	if old != "" {
		if err := os.RemoveAll(old); err != nil {
			zap.L().Warn("archive: remove previous index", zap.String("dir", old), zap.Error(err))
		}
	}
	return nil
}

// UnpackFile restores the artifact at in into target.
func UnpackFile(in, target string) error {
	f, err := os.Open(in)
	if err != nil {
		return eris.Wrapf(err, "archive: open %s", in)
	}
	defer f.Close() //nolint:errcheck
	return Unpack(f, target)
}
