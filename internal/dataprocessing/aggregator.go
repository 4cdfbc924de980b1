package dataprocessing

import (
	"context"
	"sort"

	"stocktake/pkg/contracts/domain"
)

// Merge concatenates fragments in arrival order, keeping row order within each.
// Dataset columns are the union of pass-through columns in first-appearance order.
func Merge(fragments []domain.Fragment) domain.Dataset {
	total := 0
	for _, frag := range fragments {
		total += len(frag.Records)
	}

	ds := domain.Dataset{Records: make([]domain.ScanRecord, 0, total)}
	seen := make(map[string]struct{})
	for _, frag := range fragments {
		for _, col := range frag.Columns {
			if _, ok := seen[col]; ok {
				continue
			}
			seen[col] = struct{}{}
			ds.Columns = append(ds.Columns, col)
		}
		ds.Records = append(ds.Records, frag.Records...)
	}
	return ds
}

// BuildPivot cross-tabulates records by depot and status. Every depot and status
// seen in records gets a row or column, but only records with a code are counted.
// Rows are sorted by depot; columns follow domain.AllStatuses order.
func BuildPivot(records []domain.ScanRecord) *domain.Pivot {
	counts := make(map[string]map[domain.Status]int)
	present := make(map[domain.Status]bool)

	for _, rec := range records {
		row, ok := counts[rec.Depot]
		if !ok {
			row = make(map[domain.Status]int)
			counts[rec.Depot] = row
		}
		present[rec.Status] = true
		if rec.HasCode {
			row[rec.Status]++
		}
	}

	pivot := &domain.Pivot{}
	for _, status := range domain.AllStatuses() {
		if present[status] {
			pivot.Statuses = append(pivot.Statuses, status)
		}
	}

	depots := make([]string, 0, len(counts))
	for depot := range counts {
		depots = append(depots, depot)
	}
	sort.Strings(depots)

	for _, depot := range depots {
		row := domain.PivotRow{
			Depot:  depot,
			Counts: make(map[domain.Status]int, len(pivot.Statuses)),
		}
		for _, status := range pivot.Statuses {
			n := counts[depot][status]
			row.Counts[status] = n
			row.Total += n
		}
		pivot.Rows = append(pivot.Rows, row)
	}

	return pivot
}

// FindDuplicates returns, in dataset order, every record whose canonical code
// occurs at least twice anywhere in records. Records without a code never match.
func FindDuplicates(records []domain.ScanRecord) []domain.ScanRecord {
	occurrences := make(map[string]int)
	for _, rec := range records {
		if rec.HasCode {
			occurrences[rec.Code]++
		}
	}

	var dups []domain.ScanRecord
	for _, rec := range records {
		if rec.HasCode && occurrences[rec.Code] > 1 {
			dups = append(dups, rec)
		}
	}
	return dups
}

// DuplicateEntries projects duplicate records to (code, depot, status)
func DuplicateEntries(dups []domain.ScanRecord) []domain.DuplicateEntry {
	entries := make([]domain.DuplicateEntry, len(dups))
	for i, rec := range dups {
		entries[i] = domain.DuplicateEntry{Code: rec.Code, Depot: rec.Depot, Status: rec.Status}
	}
	return entries
}

// GroupDuplicates summarises duplicate records per code, ordered by first occurrence
func GroupDuplicates(dups []domain.ScanRecord) []domain.DuplicateGroup {
	index := make(map[string]int)
	groups := make([]domain.DuplicateGroup, 0)

	for _, rec := range dups {
		i, ok := index[rec.Code]
		if !ok {
			i = len(groups)
			index[rec.Code] = i
			groups = append(groups, domain.DuplicateGroup{Code: rec.Code})
		}
		g := &groups[i]
		g.Occurrences++
		if !containsString(g.Depots, rec.Depot) {
			g.Depots = append(g.Depots, rec.Depot)
		}
		g.CrossDepot = len(g.Depots) > 1
	}
	return groups
}

// Aggregate merges fragments and builds the pivots and duplicate lists.
// ctx is checked between steps so a run can be abandoned mid-way.
func Aggregate(ctx context.Context, fragments []domain.Fragment) (*domain.Result, error) {
	result := &domain.Result{Fragments: len(fragments)}

	result.Dataset = Merge(fragments)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result.Pivot = BuildPivot(result.Dataset.Records)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dups := FindDuplicates(result.Dataset.Records)
	result.Duplicates = DuplicateEntries(dups)
	result.DuplicateGroups = GroupDuplicates(dups)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result.DuplicatePivot = BuildPivot(dups)
	return result, nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
