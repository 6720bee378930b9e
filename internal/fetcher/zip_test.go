package fetcher

import (
	"archive/tar"
	"archive/zip"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	name    string
	content string
}

func createTestZIP(t *testing.T, entries ...entry) string {
	t.Helper()
	zipPath := filepath.Join(t.TempDir(), "test.zip")
	f, err := os.Create(zipPath)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	w := zip.NewWriter(f)
	for _, e := range entries {
		fw, err := w.Create(e.name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(e.content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return zipPath
}

func createTestTarZst(t *testing.T, entries ...entry) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.tar.zst")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	enc, err := zstd.NewWriter(f)
	require.NoError(t, err)
	tw := tar.NewWriter(enc)
	for _, e := range entries {
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: e.name, Mode: 0o644, Size: int64(len(e.content)), Typeflag: tar.TypeReg}))
		_, err := tw.Write([]byte(e.content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, enc.Close())
	return path
}

func isCSV(name string) bool { return strings.HasSuffix(name, ".csv") }

func collectEntries(t *testing.T) (map[string]string, EntryFunc) {
	t.Helper()
	got := map[string]string{}
	return got, func(name string, r io.Reader) error {
		b, err := io.ReadAll(r)
		require.NoError(t, err)
		got[name] = string(b)
		return nil
	}
}

func TestWalkZIP_FiltersAndStreams(t *testing.T) {
	path := createTestZIP(t,
		entry{"us/il/cook.csv", "a,b"},
		entry{"us/il/cook.vrt", "<xml/>"},
		entry{"us/ny/city_of_new_york.csv", "c,d"},
	)
	got, fn := collectEntries(t)
	require.NoError(t, WalkZIP(path, isCSV, fn))
	assert.Equal(t, map[string]string{"us/il/cook.csv": "a,b", "us/ny/city_of_new_york.csv": "c,d"}, got)
}

func TestWalkZIP_SkipAll(t *testing.T) {
	path := createTestZIP(t, entry{"a.csv", "1"}, entry{"b.csv", "2"})
	var seen []string
	err := WalkZIP(path, nil, func(name string, _ io.Reader) error {
		seen = append(seen, name)
		return fs.SkipAll
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.csv"}, seen)
}

func TestWalkZIP_RejectsZipSlip(t *testing.T) {
	path := createTestZIP(t, entry{"../../etc/evil.csv", "x"})
	called := false
	err := WalkZIP(path, nil, func(string, io.Reader) error { called = true; return nil })
	require.Error(t, err)
	assert.False(t, called)
}

func TestWalkZIP_BadArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.zip")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0o644))
	err := WalkZIP(path, nil, func(string, io.Reader) error { return nil })
	require.Error(t, err)
}

func TestWalkTarZst(t *testing.T) {
	path := createTestTarZst(t,
		entry{"us/ca/san_francisco.csv", "x,y"},
		entry{"README.txt", "hi"},
	)
	got, fn := collectEntries(t)
	require.NoError(t, WalkTarZst(path, isCSV, fn))
	assert.Equal(t, map[string]string{"us/ca/san_francisco.csv": "x,y"}, got)
}

func TestWalkTarZst_Truncated(t *testing.T) {
	path := createTestTarZst(t, entry{"a.csv", strings.Repeat("1,2,3\n", 4096)})
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data[:len(data)/2], 0o644))

	err = WalkTarZst(path, nil, func(_ string, r io.Reader) error {
		_, err := io.Copy(io.Discard, r)
		return err
	})
	require.Error(t, err)
}
