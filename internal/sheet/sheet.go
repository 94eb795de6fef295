// Package sheet reads and writes rate card spreadsheets.
package sheet

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/invoice-agent/internal/apperr"
)

// Options selects the sheet to read.
type Options struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
	SkipRows   int    // number of header rows to skip
}

// CheckExtension rejects files the backend will not accept as rate cards.
func CheckExtension(path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xls":
		return nil
	default:
		return apperr.Newf(apperr.KindValidation, "%s is not an Excel file (.xlsx or .xls)", filepath.Base(path))
	}
}

// ReadRows returns the rows of the selected sheet as strings.
func ReadRows(path string, opts Options) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "sheet: open file")
	}

	sh, err := pick(f, opts)
	if err != nil {
		return nil, err
	}

	var rows [][]string
	for i, row := range sh.Rows {
		if i < opts.SkipRows {
			continue
		}
		rows = append(rows, rowToStrings(row))
	}
	return rows, nil
}

// PreviewResult is the head of a spreadsheet.
type PreviewResult struct {
	Sheet     string
	Header    []string
	Rows      [][]string
	TotalRows int
}

// Preview reads the first sheet of path and returns its header and up to
// maxRows data rows.
func Preview(path string, maxRows int) (*PreviewResult, error) {
	if err := CheckExtension(path); err != nil {
		return nil, err
	}

	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "sheet: open file")
	}
	sh, err := pick(f, Options{})
	if err != nil {
		return nil, err
	}

	res := &PreviewResult{Sheet: sh.Name}
	for i, row := range sh.Rows {
		cells := rowToStrings(row)
		if i == 0 {
			res.Header = cells
			continue
		}
		if isBlank(cells) {
			continue
		}
		res.TotalRows++
		if maxRows <= 0 || len(res.Rows) < maxRows {
			res.Rows = append(res.Rows, cells)
		}
	}
	return res, nil
}

func pick(f *xlsx.File, opts Options) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sh, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("sheet: %q not found", opts.SheetName)
		}
		return sh, nil
	}

	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("sheet: index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}
	return f.Sheets[opts.SheetIndex], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = strings.TrimSpace(cell.String())
	}
	return cells
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}
