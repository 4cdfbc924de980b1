package testutil

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

// SheetSpec describes one worksheet of a fixture workbook.
// Rows[0] is the header row; nil values leave the cell unset.
type SheetSpec struct {
	Name string
	Rows [][]any
}

// Sheet builds a SheetSpec
func Sheet(name string, rows ...[]any) SheetSpec {
	return SheetSpec{Name: name, Rows: rows}
}

// Row is shorthand for a fixture row
func Row(values ...any) []any {
	return values
}

// NewWorkbook builds an in-memory workbook with the given sheets in order
func NewWorkbook(t *testing.T, sheets ...SheetSpec) *excelize.File {
	t.Helper()

	f := excelize.NewFile()
	defaultSheet := f.GetSheetName(0)

	for i, spec := range sheets {
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, spec.Name); err != nil {
				t.Fatalf("rename sheet %q: %v", spec.Name, err)
			}
		} else if _, err := f.NewSheet(spec.Name); err != nil {
			t.Fatalf("create sheet %q: %v", spec.Name, err)
		}

		for r, row := range spec.Rows {
			for c, val := range row {
				if val == nil {
					continue
				}
				cell, err := excelize.CoordinatesToCellName(c+1, r+1)
				if err != nil {
					t.Fatalf("cell name: %v", err)
				}
				if err := f.SetCellValue(spec.Name, cell, val); err != nil {
					t.Fatalf("set %s!%s: %v", spec.Name, cell, err)
				}
			}
		}
	}

	return f
}

// WriteWorkbook saves a fixture workbook under dir and returns its path
func WriteWorkbook(t *testing.T, dir, name string, sheets ...SheetSpec) string {
	t.Helper()

	f := NewWorkbook(t, sheets...)
	defer f.Close()

	path := filepath.Join(dir, name)
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook %s: %v", path, err)
	}
	return path
}

// WorkbookBytes returns the encoded fixture workbook, for upload tests
func WorkbookBytes(t *testing.T, sheets ...SheetSpec) []byte {
	t.Helper()

	f := NewWorkbook(t, sheets...)
	defer f.Close()

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("encode workbook: %v", err)
	}
	return buf.Bytes()
}
