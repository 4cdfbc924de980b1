package dataprocessing

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "stocktake/internal/errors"
	"stocktake/pkg/contracts/domain"
)

// WorkbookExt is the only workbook format accepted for stock take uploads
const WorkbookExt = ".xlsx"

// Source is one uploaded workbook. Name is reported as the record source file
// and is what the depot is derived from.
type Source struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// FileSource reads a workbook from disk
func FileSource(path string) Source {
	return Source{
		Name: filepath.ToSlash(path),
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}
}

// BytesSource wraps an in-memory workbook, such as a multipart upload
func BytesSource(name string, data []byte) Source {
	return Source{
		Name: name,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// RawSheet is one worksheet as read from a workbook, before normalization.
// Header holds one unique name per column; every row has len(Header) cells.
type RawSheet struct {
	SourceFile string
	SheetName  string
	Header     []string
	Rows       [][]domain.Cell
}

// LoadWorkbook reads every sheet of a workbook in workbook order.
// Sheets without data rows below the header are skipped.
// Any failure to read the workbook is returned as an ingest error for the whole file.
func LoadWorkbook(ctx context.Context, src Source) ([]RawSheet, error) {
	if !strings.EqualFold(filepath.Ext(src.Name), WorkbookExt) {
		return nil, apperrors.NewIngestError(src.Name,
			fmt.Errorf("unsupported file type %q, expected %s", filepath.Ext(src.Name), WorkbookExt))
	}
	if src.Open == nil {
		return nil, apperrors.NewIngestError(src.Name, fmt.Errorf("no reader for source"))
	}

	rc, err := src.Open()
	if err != nil {
		return nil, apperrors.NewIngestError(src.Name, err)
	}
	defer rc.Close()

	f, err := excelize.OpenReader(rc)
	if err != nil {
		return nil, apperrors.NewIngestError(src.Name, err)
	}
	defer f.Close()

	var sheets []RawSheet
	for _, name := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		sheet, ok, err := readSheet(f, src.Name, name)
		if err != nil {
			return nil, apperrors.NewIngestError(src.Name, err).WithContext("sheet", name)
		}
		if ok {
			sheets = append(sheets, sheet)
		}
	}

	return sheets, nil
}

// readSheet returns ok=false for a sheet with no data rows
func readSheet(f *excelize.File, sourceFile, name string) (RawSheet, bool, error) {
	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return RawSheet{}, false, fmt.Errorf("read sheet %q: %w", name, err)
	}
	if len(rows) < 2 {
		return RawSheet{}, false, nil
	}

	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	sheet := RawSheet{
		SourceFile: sourceFile,
		SheetName:  name,
		Header:     headerNames(rows[0], width),
		Rows:       make([][]domain.Cell, 0, len(rows)-1),
	}

	for r, row := range rows[1:] {
		cells := make([]domain.Cell, width)
		for c := range cells {
			if c >= len(row) || row[c] == "" {
				cells[c] = domain.EmptyCell()
				continue
			}
			// rows[1:] starts at sheet row 2
			ref, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return RawSheet{}, false, err
			}
			typ, err := f.GetCellType(name, ref)
			if err != nil {
				return RawSheet{}, false, fmt.Errorf("cell %s!%s: %w", name, ref, err)
			}
			cells[c] = toCell(row[c], typ)
		}
		sheet.Rows = append(sheet.Rows, cells)
	}

	return sheet, true, nil
}

// toCell keeps numbers and booleans typed so the canonicalizer can format them
func toCell(value string, typ excelize.CellType) domain.Cell {
	switch typ {
	case excelize.CellTypeBool:
		return domain.BoolCell(value == "1" || strings.EqualFold(value, "true"))
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return domain.NumberCell(f)
		}
	}
	return domain.TextCell(value)
}

// headerNames takes the first row verbatim, naming blank headers "Unnamed: <index>"
// and suffixing repeated names with ".1", ".2" and so on.
func headerNames(row []string, width int) []string {
	names := make([]string, width)
	used := make(map[string]bool, width)
	suffix := make(map[string]int)

	for i := range names {
		name := ""
		if i < len(row) {
			name = row[i]
		}
		if strings.TrimSpace(name) == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}

		if used[name] {
			base := name
			for used[name] {
				suffix[base]++
				name = base + "." + strconv.Itoa(suffix[base])
			}
		}
		used[name] = true
		names[i] = name
	}

	return names
}
