package domain

import (
	"math"
	"strconv"
)

// CellKind describes how a spreadsheet cell value was stored
type CellKind string

const (
	CellEmpty  CellKind = "empty"
	CellText   CellKind = "text"
	CellNumber CellKind = "number"
	CellBool   CellKind = "bool"
)

// Cell is a single spreadsheet value carried through the pipeline untouched
type Cell struct {
	Kind  CellKind `json:"kind"`
	Value string   `json:"value,omitempty"`
}

// EmptyCell returns the absent value
func EmptyCell() Cell {
	return Cell{Kind: CellEmpty}
}

// TextCell wraps a string value. An empty string is treated as absent.
func TextCell(s string) Cell {
	if s == "" {
		return EmptyCell()
	}
	return Cell{Kind: CellText, Value: s}
}

// NumberCell wraps a numeric value using its shortest textual form.
// Integral values are rendered without a decimal point.
func NumberCell(f float64) Cell {
	return Cell{Kind: CellNumber, Value: FormatNumber(f)}
}

// BoolCell wraps a boolean value
func BoolCell(b bool) Cell {
	if b {
		return Cell{Kind: CellBool, Value: "True"}
	}
	return Cell{Kind: CellBool, Value: "False"}
}

// IsEmpty reports whether the cell holds no value
func (c Cell) IsEmpty() bool {
	return c.Kind == CellEmpty || c.Kind == ""
}

// String returns the textual form of the cell, empty for absent values
func (c Cell) String() string {
	if c.IsEmpty() {
		return ""
	}
	return c.Value
}

// FormatNumber renders a float the way a stock sheet shows it: 42 rather than 42.0
func FormatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatFloat(f, 'f', 0, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
