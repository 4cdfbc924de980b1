package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCellConstructors(t *testing.T) {
	tests := []struct {
		name string
		cell Cell
		kind CellKind
		text string
	}{
		{"text", TextCell("A1"), CellText, "A1"},
		{"empty text is absent", TextCell(""), CellEmpty, ""},
		{"integral number", NumberCell(42), CellNumber, "42"},
		{"negative number", NumberCell(-7), CellNumber, "-7"},
		{"decimal number", NumberCell(42.5), CellNumber, "42.5"},
		{"large number", NumberCell(123456789012), CellNumber, "123456789012"},
		{"true", BoolCell(true), CellBool, "True"},
		{"false", BoolCell(false), CellBool, "False"},
		{"empty", EmptyCell(), CellEmpty, ""},
		{"zero value", Cell{}, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.cell.Kind)
			assert.Equal(t, tt.text, tt.cell.String())
			assert.Equal(t, tt.text == "", tt.cell.IsEmpty())
		})
	}
}

func TestScanRecordAttribute(t *testing.T) {
	rec := ScanRecord{Attributes: map[string]Cell{"Serial": NumberCell(7)}}

	assert.Equal(t, "7", rec.Attribute("Serial").String())
	assert.True(t, rec.Attribute("Remarks").IsEmpty())
	assert.True(t, ScanRecord{}.Attribute("Serial").IsEmpty())
}

func TestIsDerivedColumn(t *testing.T) {
	for _, name := range []string{"QR", "file_path", "sheet_name", "state", "depot"} {
		assert.True(t, IsDerivedColumn(name), name)
	}
	for _, name := range []string{"Serial", "qr", "Depot", ""} {
		assert.False(t, IsDerivedColumn(name), name)
	}
}

func TestDatasetHelpers(t *testing.T) {
	ds := Dataset{Records: []ScanRecord{
		{Sentinel: true},
		{Code: "A1", HasCode: true},
		{Code: "A2", HasCode: true},
	}}

	assert.Equal(t, 3, ds.Len())
	assert.Equal(t, 2, ds.CodedRecords())
	assert.Len(t, ds.Head(2), 2)
	assert.Len(t, ds.Head(10), 3)
	assert.Empty(t, ds.Head(-1))
}

func TestPivotHelpers(t *testing.T) {
	p := &Pivot{
		Statuses: []Status{StatusAvailable, StatusNotReady},
		Rows: []PivotRow{
			{Depot: "D1", Counts: map[Status]int{StatusAvailable: 2, StatusNotReady: 1}, Total: 3},
			{Depot: "D2", Counts: map[Status]int{StatusAvailable: 0, StatusNotReady: 4}, Total: 4},
		},
	}

	assert.Equal(t, 2, p.Count("D1", StatusAvailable))
	assert.Equal(t, 0, p.Count("D1", StatusDefective))
	assert.Equal(t, 0, p.Count("D3", StatusAvailable))
	assert.Equal(t, 4, p.Total("D2"))
	assert.Equal(t, 7, p.GrandTotal())

	var nilPivot *Pivot
	_, ok := nilPivot.Row("D1")
	assert.False(t, ok)
	assert.Equal(t, 0, nilPivot.GrandTotal())
}

func TestResultHelpers(t *testing.T) {
	r := &Result{
		Dataset: Dataset{Records: []ScanRecord{
			{Sentinel: true},
			{Code: "A1", HasCode: true, Depot: "D1"},
			{Code: "B1", HasCode: true, Depot: "D1"},
			{Code: "A1", HasCode: true, Depot: "D2"},
		}},
		Pivot:           &Pivot{},
		DuplicateGroups: []DuplicateGroup{{Code: "A1", Occurrences: 2, Depots: []string{"D1", "D2"}, CrossDepot: true}},
	}

	assert.True(t, r.HasTables())
	dups := r.DuplicateRecords()
	require.Len(t, dups, 2)
	assert.Equal(t, "D1", dups[0].Depot)
	assert.Equal(t, "D2", dups[1].Depot)

	var empty *Result
	assert.False(t, empty.HasTables())
	assert.Nil(t, empty.DuplicateRecords())
}

func TestStatusJSON(t *testing.T) {
	data, err := json.Marshal(DuplicateEntry{Code: "A1", Depot: "D1", Status: StatusNotReady})
	require.NoError(t, err)
	assert.JSONEq(t, `{"code":"A1","depot":"D1","status":"Not Ready"}`, string(data))
}
