package dataprocessing

import (
	apperrors "stocktake/internal/errors"
	"stocktake/pkg/contracts/domain"
)

// NormalizeOptions controls fragment construction
type NormalizeOptions struct {
	// IncludeSentinel prepends one blank record marking the fragment boundary
	IncludeSentinel bool
}

// DefaultNormalizeOptions keeps the sentinel row
func DefaultNormalizeOptions() NormalizeOptions {
	return NormalizeOptions{IncludeSentinel: true}
}

// Normalize turns a raw sheet into a fragment. The first column becomes the code
// column; the remaining columns are carried as attributes. Columns sharing a name
// with a derived column are replaced by the derived value.
// A sheet without columns is a schema error.
func Normalize(sheet RawSheet, opts NormalizeOptions) (domain.Fragment, error) {
	if len(sheet.Header) == 0 {
		return domain.Fragment{}, apperrors.NewSchemaError(sheet.SourceFile, sheet.SheetName)
	}

	type passThrough struct {
		index int
		name  string
	}
	var columns []passThrough
	for i, name := range sheet.Header[1:] {
		if domain.IsDerivedColumn(name) {
			continue
		}
		columns = append(columns, passThrough{index: i + 1, name: name})
	}

	frag := domain.Fragment{
		SourceFile: sheet.SourceFile,
		SheetName:  sheet.SheetName,
		Columns:    make([]string, len(columns)),
		Records:    make([]domain.ScanRecord, 0, len(sheet.Rows)+1),
	}
	for i, col := range columns {
		frag.Columns[i] = col.name
	}

	if opts.IncludeSentinel {
		frag.Records = append(frag.Records, domain.ScanRecord{
			RawCode:    domain.EmptyCell(),
			SourceFile: sheet.SourceFile,
			SheetName:  sheet.SheetName,
			Sentinel:   true,
		})
	}

	for _, row := range sheet.Rows {
		rec := domain.ScanRecord{
			RawCode:    domain.EmptyCell(),
			SourceFile: sheet.SourceFile,
			SheetName:  sheet.SheetName,
		}
		if len(row) > 0 {
			rec.RawCode = row[0]
		}
		for _, col := range columns {
			if col.index >= len(row) || row[col.index].IsEmpty() {
				continue
			}
			if rec.Attributes == nil {
				rec.Attributes = make(map[string]domain.Cell, len(columns))
			}
			rec.Attributes[col.name] = row[col.index]
		}
		frag.Records = append(frag.Records, rec)
	}

	return frag, nil
}

// Enrich derives status, depot and canonical code for every record of a fragment
func Enrich(frag *domain.Fragment, classifier *Classifier) {
	status := classifier.Classify(frag.SheetName)
	depot := ResolveDepot(frag.SourceFile)

	for i := range frag.Records {
		rec := &frag.Records[i]
		rec.Status = status
		rec.Depot = depot
		rec.Code, rec.HasCode = CanonicalizeCode(rec.RawCode)
	}
}
