package exporter

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"stocktake/internal/config"
	apperrors "stocktake/internal/errors"
	"stocktake/pkg/contracts/domain"
)

func sampleResult() *domain.Result {
	records := []domain.ScanRecord{
		{SourceFile: "D1.xlsx", SheetName: "Full Cylinders", Depot: "D1", Status: domain.StatusAvailable, Sentinel: true},
		{Code: "A1", HasCode: true, SourceFile: "D1.xlsx", SheetName: "Full Cylinders", Depot: "D1",
			Status: domain.StatusAvailable, Attributes: map[string]domain.Cell{"Serial": domain.NumberCell(7)}},
		{Code: "A1", HasCode: true, SourceFile: "D2.xlsx", SheetName: "Half Cylinders", Depot: "D2",
			Status: domain.StatusNotReady, Attributes: map[string]domain.Cell{"Note": domain.TextCell("dent, minor")}},
	}
	pivot := &domain.Pivot{
		Statuses: []domain.Status{domain.StatusAvailable, domain.StatusNotReady},
		Rows: []domain.PivotRow{
			{Depot: "D1", Counts: map[domain.Status]int{domain.StatusAvailable: 1, domain.StatusNotReady: 0}, Total: 1},
			{Depot: "D2", Counts: map[domain.Status]int{domain.StatusAvailable: 0, domain.StatusNotReady: 1}, Total: 1},
		},
	}
	return &domain.Result{
		RunID:   "run-1",
		Dataset: domain.Dataset{Columns: []string{"Serial", "Note"}, Records: records},
		Pivot:   pivot,
		Duplicates: []domain.DuplicateEntry{
			{Code: "A1", Depot: "D1", Status: domain.StatusAvailable},
			{Code: "A1", Depot: "D2", Status: domain.StatusNotReady},
		},
		DuplicateGroups: []domain.DuplicateGroup{{Code: "A1", Occurrences: 2, Depots: []string{"D1", "D2"}, CrossDepot: true}},
		DuplicatePivot:  pivot,
		Files:           2,
		Fragments:       2,
	}
}

func TestDatasetTable(t *testing.T) {
	table := DatasetTable(sampleResult().Dataset)

	assert.Equal(t, []string{"QR", "Serial", "Note", "file_path", "sheet_name", "state", "depot"}, table.Headers)
	assert.Equal(t, [][]string{
		{"", "", "", "D1.xlsx", "Full Cylinders", "Available", "D1"},
		{"A1", "7", "", "D1.xlsx", "Full Cylinders", "Available", "D1"},
		{"A1", "", "dent, minor", "D2.xlsx", "Half Cylinders", "Not Ready", "D2"},
	}, table.StringRows())
}

func TestPivotTable(t *testing.T) {
	table := PivotTable(TablePivot, "Pivot", "Pivot", sampleResult().Pivot)

	assert.Equal(t, []string{"depot", "Available", "Not Ready", "Total"}, table.Headers)
	assert.Equal(t, [][]string{
		{"D1", "1", "0", "1"},
		{"D2", "0", "1", "1"},
	}, table.StringRows())

	empty := PivotTable(TablePivot, "Pivot", "Pivot", nil)
	assert.Equal(t, []string{"depot", "Total"}, empty.Headers)
	assert.Empty(t, empty.Rows)
}

func TestTables(t *testing.T) {
	tables := Tables(sampleResult())
	require.Len(t, tables, 4)

	names := make([]string, len(tables))
	for i, tb := range tables {
		names[i] = tb.Name
		assert.LessOrEqual(t, len(tb.Sheet), 31, "excel sheet names are limited to 31 characters")
	}
	assert.Equal(t, []string{TableDataset, TablePivot, TableDuplicates, TableDuplicatesPivot}, names)

	dups, ok := TableByName(sampleResult(), TableDuplicates)
	require.True(t, ok)
	assert.Equal(t, [][]string{{"A1", "D1", "Available"}, {"A1", "D2", "Not Ready"}}, dups.StringRows())

	_, ok = TableByName(sampleResult(), "nope")
	assert.False(t, ok)

	assert.Nil(t, Tables(&domain.Result{}))
	assert.Nil(t, Tables(nil))
}

func TestEncodeTable(t *testing.T) {
	table, _ := TableByName(sampleResult(), TableDuplicates)

	var withBOM bytes.Buffer
	require.NoError(t, EncodeTable(&withBOM, table, true))
	assert.Equal(t, utf8BOM, withBOM.Bytes()[:3])

	var plain bytes.Buffer
	require.NoError(t, EncodeTable(&plain, table, false))
	assert.Equal(t, "QR,depot,state\nA1,D1,Available\nA1,D2,Not Ready\n", plain.String())
}

func TestEncodeCSVQuotesSpecialCharacters(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeCSV(&buf, WriteOptions{
		Headers: []string{"QR", "Note"},
		Records: [][]string{{"A1", "dent, minor"}, {"A2", "say \"hi\""}, {"A3", "two\nlines"}},
	}))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"QR", "Note"},
		{"A1", "dent, minor"},
		{"A2", "say \"hi\""},
		{"A3", "two\nlines"},
	}, records)
}

func TestExportCSV(t *testing.T) {
	dir := t.TempDir()
	exp := NewExporter(config.ExportConfig{OutputDir: dir, BOMPrefix: true}, nil)

	paths, err := exp.Export(context.Background(), sampleResult(), FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, config.DatasetCSVName),
		filepath.Join(dir, config.PivotCSVName),
		filepath.Join(dir, config.DuplicatesCSVName),
		filepath.Join(dir, config.DuplicatesPivotCSVName),
	}, paths)

	data, err := os.ReadFile(filepath.Join(dir, config.PivotCSVName))
	require.NoError(t, err)
	assert.Equal(t, "\xEF\xBB\xBFdepot,Available,Not Ready,Total\nD1,1,0,1\nD2,0,1,1\n", string(data))
}

func TestExportXLSX(t *testing.T) {
	dir := t.TempDir()
	exp := NewExporter(config.ExportConfig{OutputDir: dir}, nil)

	paths, err := exp.Export(context.Background(), sampleResult(), FormatXLSX)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, config.ReportWorkbookName)}, paths)

	f, err := excelize.OpenFile(paths[0])
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"All Depots", "Pivot", "Duplicates", "Duplicates Pivot"}, f.GetSheetList())

	rows, err := f.GetRows("Pivot")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"depot", "Available", "Not Ready", "Total"},
		{"D1", "1", "0", "1"},
		{"D2", "0", "1", "1"},
	}, rows)

	typ, err := f.GetCellType("Pivot", "D2")
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeSharedString, typ, "counts are stored as numbers")

	serial, err := f.GetCellValue("All Depots", "B3")
	require.NoError(t, err)
	assert.Equal(t, "7", serial)
}

func TestExportBoth(t *testing.T) {
	dir := t.TempDir()
	paths, err := NewExporter(config.ExportConfig{OutputDir: filepath.Join(dir, "nested")}, nil).
		Export(context.Background(), sampleResult(), FormatBoth)
	require.NoError(t, err)
	assert.Len(t, paths, 5)
	for _, p := range paths {
		assert.FileExists(t, p)
	}
}

func TestExportErrors(t *testing.T) {
	exp := NewExporter(config.ExportConfig{OutputDir: t.TempDir()}, nil)

	_, err := exp.Export(context.Background(), &domain.Result{Files: 1}, FormatCSV)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeEmptyInput))

	_, err = exp.Export(context.Background(), sampleResult(), "pdf")
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = exp.Export(ctx, sampleResult(), FormatCSV)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEncodeWorkbookNoTables(t *testing.T) {
	assert.Error(t, EncodeWorkbook(&bytes.Buffer{}, nil))
}
