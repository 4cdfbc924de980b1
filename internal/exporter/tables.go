package exporter

import (
	"stocktake/internal/config"
	"stocktake/pkg/contracts/domain"
)

// Table names accepted by TableByName and the upload endpoint
const (
	TableDataset         = "dataset"
	TablePivot           = "pivot"
	TableDuplicates      = "duplicates"
	TableDuplicatesPivot = "duplicates_pivot"
)

// TotalColumn heads the row-sum column of a pivot
const TotalColumn = "Total"

// Table is a rendered result table. Cells keep their kind so the XLSX
// report can store numbers as numbers.
type Table struct {
	Name    string
	Title   string
	Sheet   string
	Headers []string
	Rows    [][]domain.Cell
}

// StringRows flattens the table cells to text
func (t Table) StringRows() [][]string {
	out := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = make([]string, len(row))
		for j, c := range row {
			out[i][j] = c.String()
		}
	}
	return out
}

// DatasetTable renders the unified dataset: the code column, the pass-through
// columns, then the provenance and derived columns.
func DatasetTable(ds domain.Dataset) Table {
	headers := make([]string, 0, len(ds.Columns)+5)
	headers = append(headers, domain.ColumnCode)
	headers = append(headers, ds.Columns...)
	headers = append(headers, domain.ColumnSourceFile, domain.ColumnSheetName, domain.ColumnStatus, domain.ColumnDepot)

	rows := make([][]domain.Cell, len(ds.Records))
	for i, rec := range ds.Records {
		row := make([]domain.Cell, 0, len(headers))
		code := domain.EmptyCell()
		if rec.HasCode {
			code = domain.TextCell(rec.Code)
		}
		row = append(row, code)
		for _, col := range ds.Columns {
			row = append(row, rec.Attribute(col))
		}
		row = append(row,
			domain.TextCell(rec.SourceFile),
			domain.TextCell(rec.SheetName),
			domain.TextCell(string(rec.Status)),
			domain.TextCell(rec.Depot),
		)
		rows[i] = row
	}

	return Table{
		Name:    TableDataset,
		Title:   "ALL DEPOTS STOCK-processed",
		Sheet:   "All Depots",
		Headers: headers,
		Rows:    rows,
	}
}

// PivotTable renders a depot by status pivot with its Total column
func PivotTable(name, title, sheet string, p *domain.Pivot) Table {
	t := Table{Name: name, Title: title, Sheet: sheet, Headers: []string{domain.ColumnDepot}}
	if p == nil {
		t.Headers = append(t.Headers, TotalColumn)
		return t
	}

	for _, status := range p.Statuses {
		t.Headers = append(t.Headers, string(status))
	}
	t.Headers = append(t.Headers, TotalColumn)

	for _, r := range p.Rows {
		row := make([]domain.Cell, 0, len(t.Headers))
		row = append(row, domain.TextCell(r.Depot))
		for _, status := range p.Statuses {
			row = append(row, domain.NumberCell(float64(r.Counts[status])))
		}
		row = append(row, domain.NumberCell(float64(r.Total)))
		t.Rows = append(t.Rows, row)
	}
	return t
}

// DuplicatesTable renders the duplicate list as (QR, depot, state)
func DuplicatesTable(entries []domain.DuplicateEntry) Table {
	t := Table{
		Name:    TableDuplicates,
		Title:   "LIST 1 - Duplicates",
		Sheet:   "Duplicates",
		Headers: []string{domain.ColumnCode, domain.ColumnDepot, domain.ColumnStatus},
		Rows:    make([][]domain.Cell, len(entries)),
	}
	for i, e := range entries {
		t.Rows[i] = []domain.Cell{
			domain.TextCell(e.Code),
			domain.TextCell(e.Depot),
			domain.TextCell(string(e.Status)),
		}
	}
	return t
}

// Tables renders every table of a result in report order.
// A result without tables renders nothing.
func Tables(result *domain.Result) []Table {
	if !result.HasTables() {
		return nil
	}
	return []Table{
		DatasetTable(result.Dataset),
		PivotTable(TablePivot, "Pivot Table (QR Count per State per Depot)", "Pivot", result.Pivot),
		DuplicatesTable(result.Duplicates),
		PivotTable(TableDuplicatesPivot, "Summary Table (Duplicate QR Count per Depot with State)",
			"Duplicates Pivot", result.DuplicatePivot),
	}
}

// TableByName returns one table of a result
func TableByName(result *domain.Result, name string) (Table, bool) {
	for _, t := range Tables(result) {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

// FileName returns the CSV file name of a table
func FileName(name string) string {
	switch name {
	case TableDataset:
		return config.DatasetCSVName
	case TablePivot:
		return config.PivotCSVName
	case TableDuplicates:
		return config.DuplicatesCSVName
	case TableDuplicatesPivot:
		return config.DuplicatesPivotCSVName
	}
	return "stocktake_" + name + ".csv"
}
