package compare

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/geoindex/internal/fetcher"
)

// LoadSample reads the addresses to compare. .txt files hold one address per
// line; .csv and .xlsx files use the column headed "address" or, failing
// that, the first column. Blank entries and duplicates are dropped.
func LoadSample(path string) ([]string, error) {
	var rows fetcher.Rows
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		rows = fetcher.XLSXRows(path, "")
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "compare: load sample %s", path)
		}
		defer f.Close() //nolint:errcheck
		rows = fetcher.CSVRows(context.Background(), f, fetcher.CSVOptions{LazyQuotes: true, TrimSpace: true})
	default:
		lines, err := readLines(path)
		if err != nil {
			return nil, eris.Wrapf(err, "compare: load sample %s", path)
		}
		return dedupe(lines), nil
	}

	var out []string
	col, first := 0, true
	for row, err := range rows {
		if err != nil {
			return nil, eris.Wrapf(err, "compare: load sample %s", path)
		}
		if first {
			first = false
			if i := fetcher.ColumnIndex(row, "address"); i >= 0 {
				col = i
				continue
			}
		}
		if col < len(row) {
			out = append(out, strings.TrimSpace(row[col]))
		}
	}
	return dedupe(out), nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines, sc.Err()
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
