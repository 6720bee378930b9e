package fetcher

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// XLSXRows returns the rows of one worksheet as text. An empty sheet name
// selects the first sheet. The workbook is opened before iteration starts, so
// a missing file or sheet is reported by the first step.
func XLSXRows(path, sheet string) Rows {
	return func(yield func([]string, error) bool) {
		f, err := xlsx.OpenFile(path)
		if err != nil {
			yield(nil, eris.Wrap(err, "xlsx: open file"))
			return
		}
		s, err := pickSheet(f, sheet)
		if err != nil {
			yield(nil, err)
			return
		}
		for _, row := range s.Rows {
			if row == nil {
				continue
			}
			cells := make([]string, len(row.Cells))
			for i, c := range row.Cells {
				cells[i] = c.String()
			}
			if !yield(cells, nil) {
				return
			}
		}
	}
}

func pickSheet(f *xlsx.File, name string) (*xlsx.Sheet, error) {
	if name != "" {
		s, ok := f.Sheet[name]
		if !ok {
			return nil, eris.Errorf("xlsx: sheet %q not found", name)
		}
		return s, nil
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("xlsx: workbook has no sheets")
	}
	return f.Sheets[0], nil
}
