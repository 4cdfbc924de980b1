package domain

// PivotRow holds the per-status counts of one depot
type PivotRow struct {
	Depot  string         `json:"depot"`
	Counts map[Status]int `json:"counts"`
	Total  int            `json:"total"`
}

// Pivot is a depot by status cross-tabulation of code counts
type Pivot struct {
	Statuses []Status   `json:"statuses"`
	Rows     []PivotRow `json:"rows"`
}

// Row returns the row of a depot
func (p *Pivot) Row(depot string) (PivotRow, bool) {
	if p == nil {
		return PivotRow{}, false
	}
	for _, row := range p.Rows {
		if row.Depot == depot {
			return row, true
		}
	}
	return PivotRow{}, false
}

// Count returns the number of codes for a depot and status, 0 when absent
func (p *Pivot) Count(depot string, status Status) int {
	row, ok := p.Row(depot)
	if !ok {
		return 0
	}
	return row.Counts[status]
}

// Total returns the row total of a depot
func (p *Pivot) Total(depot string) int {
	row, _ := p.Row(depot)
	return row.Total
}

// GrandTotal sums every row total
func (p *Pivot) GrandTotal() int {
	if p == nil {
		return 0
	}
	total := 0
	for _, row := range p.Rows {
		total += row.Total
	}
	return total
}
