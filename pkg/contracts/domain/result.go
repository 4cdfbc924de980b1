package domain

// DuplicateEntry is one occurrence of a code that was scanned more than once
type DuplicateEntry struct {
	Code   string `json:"code"`
	Depot  string `json:"depot"`
	Status Status `json:"status"`
}

// DuplicateGroup summarises every occurrence of one duplicated code
type DuplicateGroup struct {
	Code        string   `json:"code"`
	Occurrences int      `json:"occurrences"`
	Depots      []string `json:"depots"`
	CrossDepot  bool     `json:"cross_depot"`
}

// Result carries every artifact of one stock take run
type Result struct {
	RunID           string           `json:"run_id"`
	Dataset         Dataset          `json:"dataset"`
	Pivot           *Pivot           `json:"pivot,omitempty"`
	Duplicates      []DuplicateEntry `json:"duplicates"`
	DuplicateGroups []DuplicateGroup `json:"duplicate_groups"`
	DuplicatePivot  *Pivot           `json:"duplicate_pivot,omitempty"`
	Files           int              `json:"files"`
	Fragments       int              `json:"fragments"`

	// Diagnostics collects per-file and per-sheet failures that did not abort the run
	Diagnostics []error `json:"-"`
	// Warnings collects non-fatal conditions such as an upload with no data
	Warnings []error `json:"-"`
}

// HasTables reports whether pivots and duplicate lists were produced
func (r *Result) HasTables() bool {
	return r != nil && r.Pivot != nil
}

// DuplicateRecords returns the records of the dataset whose code is duplicated
func (r *Result) DuplicateRecords() []ScanRecord {
	if r == nil || len(r.DuplicateGroups) == 0 {
		return nil
	}
	dup := make(map[string]struct{}, len(r.DuplicateGroups))
	for _, g := range r.DuplicateGroups {
		dup[g.Code] = struct{}{}
	}
	var out []ScanRecord
	for _, rec := range r.Dataset.Records {
		if !rec.HasCode {
			continue
		}
		if _, ok := dup[rec.Code]; ok {
			out = append(out, rec)
		}
	}
	return out
}
