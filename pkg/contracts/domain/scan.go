package domain

// Status is the stock state of a scanned cylinder, derived from the sheet it was scanned into
type Status string

const (
	StatusAvailable Status = "Available"
	StatusNotReady  Status = "Not Ready"
	StatusDefective Status = "Defective"
	StatusUnknown   Status = "Unknown"
)

// AllStatuses returns every status in pivot column order
func AllStatuses() []Status {
	return []Status{StatusAvailable, StatusDefective, StatusNotReady, StatusUnknown}
}

// Derived column names shared by the normalizer and the exporters
const (
	ColumnCode       = "QR"
	ColumnSourceFile = "file_path"
	ColumnSheetName  = "sheet_name"
	ColumnStatus     = "state"
	ColumnDepot      = "depot"
)

// IsDerivedColumn reports whether a column name is owned by the pipeline
// rather than passed through from the source sheet.
func IsDerivedColumn(name string) bool {
	switch name {
	case ColumnCode, ColumnSourceFile, ColumnSheetName, ColumnStatus, ColumnDepot:
		return true
	}
	return false
}

// ScanRecord is one row of the unified stock take dataset
type ScanRecord struct {
	RawCode    Cell            `json:"-"`
	Code       string          `json:"code,omitempty"`
	HasCode    bool            `json:"has_code"`
	SourceFile string          `json:"source_file,omitempty"`
	SheetName  string          `json:"sheet_name,omitempty"`
	Depot      string          `json:"depot,omitempty"`
	Status     Status          `json:"status"`
	Sentinel   bool            `json:"sentinel,omitempty"`
	Attributes map[string]Cell `json:"attributes,omitempty"`
}

// Attribute returns a pass-through value, absent if the column was not present in the record
func (r ScanRecord) Attribute(name string) Cell {
	if r.Attributes == nil {
		return EmptyCell()
	}
	if c, ok := r.Attributes[name]; ok {
		return c
	}
	return EmptyCell()
}

// Fragment holds the normalized records of one (file, sheet) pair
type Fragment struct {
	SourceFile string       `json:"source_file"`
	SheetName  string       `json:"sheet_name"`
	Columns    []string     `json:"columns"`
	Records    []ScanRecord `json:"records"`
}

// Dataset is the merged table across all fragments
type Dataset struct {
	// Columns lists pass-through columns in first-appearance order
	Columns []string     `json:"columns"`
	Records []ScanRecord `json:"records"`
}

// Len returns the number of records, sentinels included
func (d Dataset) Len() int {
	return len(d.Records)
}

// CodedRecords returns the number of records that carry a code
func (d Dataset) CodedRecords() int {
	n := 0
	for _, r := range d.Records {
		if r.HasCode {
			n++
		}
	}
	return n
}

// Head returns up to n leading records
func (d Dataset) Head(n int) []ScanRecord {
	if n < 0 {
		n = 0
	}
	if n > len(d.Records) {
		n = len(d.Records)
	}
	return d.Records[:n]
}
