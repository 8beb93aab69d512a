package normalizer

import (
	"freightprep/internal/table"
)

// ColumnStatus is the outcome of normalizing one input column.
type ColumnStatus string

// Column statuses.
const (
	StatusMapped      ColumnStatus = "mapped"
	StatusPassThrough ColumnStatus = "pass-through"
	StatusFailed      ColumnStatus = "failed"
)

// ColumnResult describes what happened to one input column.
type ColumnResult struct {
	Err    error
	Raw    string
	Target string
	Table  string
	Status ColumnStatus
	Counts
}

// Result is the output of one normalization.
type Result struct {
	Cleaned  *table.Table
	Enriched *table.Table
	Family   string
	Columns  []ColumnResult
	// Collisions lists input columns whose values overwrote an earlier
	// column after renaming.
	Collisions []string
	// Dropped lists input columns that collapsed onto an earlier column
	// when canonicalizing names for the enriched output.
	Dropped []string
	// KnownFamily is false when no rename table exists for Family.
	KnownFamily bool
}

// Failed returns the columns whose lookup could not be applied.
func (r *Result) Failed() []ColumnResult {
	var out []ColumnResult

	for _, c := range r.Columns {
		if c.Status == StatusFailed {
			out = append(out, c)
		}
	}

	return out
}

// Totals sums the cell counts over all mapped columns.
func (r *Result) Totals() Counts {
	var total Counts

	for _, c := range r.Columns {
		total.Hits += c.Hits
		total.Nulls += c.Nulls
		total.Unmapped += c.Unmapped
	}

	return total
}
