package fetcher

import (
	"archive/zip"
	"errors"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/rotisserie/eris"
)

// EntryFunc receives one archive member. Returning fs.SkipAll stops the walk
// without error.
type EntryFunc func(name string, r io.Reader) error

// WalkZIP streams every regular file in a ZIP archive whose name matches, in
// archive order.
func WalkZIP(zipPath string, match func(name string) bool, fn EntryFunc) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return eris.Wrap(err, "zip: open archive")
	}
	defer r.Close() //nolint:errcheck

	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name, err := cleanEntryName(f.Name)
		if err != nil {
			return err
		}
		if match != nil && !match(name) {
			continue
		}
		if err := walkZIPEntry(f, name, fn); err != nil {
			if errors.Is(err, fs.SkipAll) {
				return nil
			}
			return err
		}
	}
	return nil
}

func walkZIPEntry(f *zip.File, name string, fn EntryFunc) error {
	rc, err := f.Open()
	if err != nil {
		return eris.Wrapf(err, "zip: open entry %s", name)
	}
	defer rc.Close() //nolint:errcheck
	return fn(name, rc)
}

// cleanEntryName rejects absolute and parent-relative member names.
func cleanEntryName(name string) (string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	clean := path.Clean(name)
	if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", eris.Errorf("archive: illegal path %q (zip slip attempt)", name)
	}
	return clean, nil
}
