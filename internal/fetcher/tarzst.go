package fetcher

import (
	"archive/tar"
	"errors"
	"io"
	"io/fs"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/rotisserie/eris"
)

// WalkTarZst streams every regular file in a zstd-compressed tarball whose
// name matches, in archive order.
func WalkTarZst(archivePath string, match func(name string) bool, fn EntryFunc) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return eris.Wrap(err, "tar.zst: open archive")
	}
	defer f.Close() //nolint:errcheck

	dec, err := zstd.NewReader(f)
	if err != nil {
		return eris.Wrap(err, "tar.zst: create decoder")
	}
	defer dec.Close()

	tr := tar.NewReader(dec)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return eris.Wrap(err, "tar.zst: read entry")
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		name, err := cleanEntryName(hdr.Name)
		if err != nil {
			return err
		}
		if match != nil && !match(name) {
			continue
		}
		if err := fn(name, tr); err != nil {
			if errors.Is(err, fs.SkipAll) {
				return nil
			}
			return err
		}
	}
}
