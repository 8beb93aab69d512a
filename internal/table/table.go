// Package table provides the in-memory record table shared by the aggregation
// and normalization stages. Every cell is text.
package table

import (
	"errors"
	"fmt"
	"strings"
)

// Table errors.
var (
	ErrDuplicateColumn = errors.New("duplicate column name")
	ErrRowTooWide      = errors.New("row has more cells than columns")
	ErrLengthMismatch  = errors.New("column length does not match row count")
)

// Table is an ordered set of uniquely named columns over ordered rows.
// A missing cell is represented by the empty string.
type Table struct {
	index   map[string]int
	columns []string
	rows    [][]string
}

// New creates an empty table with the given columns.
func New(columns ...string) (*Table, error) {
	t := &Table{index: make(map[string]int, len(columns))}

	for _, c := range columns {
		if _, exists := t.index[c]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, c)
		}

		t.index[c] = len(t.columns)
		t.columns = append(t.columns, c)
	}

	return t, nil
}

// Empty returns a table with no rows and no columns.
func Empty() *Table {
	return &Table{index: map[string]int{}}
}

// CanonicalName trims surrounding whitespace and uppercases a column name.
func CanonicalName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// Columns returns a copy of the column names in order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Width returns the number of columns.
func (t *Table) Width() int {
	return len(t.columns)
}

// HasColumn reports whether the table has a column with the exact name.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// AppendRow adds a row. Short rows are padded with empty cells.
func (t *Table) AppendRow(values []string) error {
	if len(values) > len(t.columns) {
		return fmt.Errorf("%w: got %d, want at most %d", ErrRowTooWide, len(values), len(t.columns))
	}

	row := make([]string, len(t.columns))
	copy(row, values)
	t.rows = append(t.rows, row)

	return nil
}

// Column returns a copy of the values of the named column.
func (t *Table) Column(name string) ([]string, bool) {
	idx, ok := t.index[name]
	if !ok {
		return nil, false
	}

	values := make([]string, len(t.rows))
	for i, row := range t.rows {
		values[i] = row[idx]
	}

	return values, true
}

// Records returns a copy of all rows in column order.
func (t *Table) Records() [][]string {
	out := make([][]string, len(t.rows))
	for i, row := range t.rows {
		out[i] = append([]string(nil), row...)
	}

	return out
}

// SetColumn replaces the values of an existing column or appends a new one.
// The number of values must equal the number of rows.
func (t *Table) SetColumn(name string, values []string) error {
	if len(values) != len(t.rows) {
		return fmt.Errorf("%w: column %q has %d values, table has %d rows",
			ErrLengthMismatch, name, len(values), len(t.rows))
	}

	idx, ok := t.index[name]
	if !ok {
		idx = len(t.columns)
		t.index[name] = idx
		t.columns = append(t.columns, name)

		for i := range t.rows {
			t.rows[i] = append(t.rows[i], "")
		}
	}

	for i, v := range values {
		t.rows[i][idx] = v
	}

	return nil
}

// Canonical returns a copy whose column names are canonicalized. When two
// columns collapse onto the same canonical name the first one is kept and
// the original names of the dropped ones are returned.
func (t *Table) Canonical() (*Table, []string) {
	var (
		keep    []int
		names   []string
		dropped []string
	)

	seen := make(map[string]bool, len(t.columns))

	for i, c := range t.columns {
		name := CanonicalName(c)
		if seen[name] {
			dropped = append(dropped, c)
			continue
		}

		seen[name] = true

		keep = append(keep, i)
		names = append(names, name)
	}

	out, _ := New(names...)
	for _, row := range t.rows {
		r := make([]string, len(keep))
		for j, idx := range keep {
			r[j] = row[idx]
		}

		out.rows = append(out.rows, r)
	}

	return out, dropped
}

// Concat appends the rows of other. Columns are unioned in first-seen order
// and cells for columns a side lacks are left empty.
func (t *Table) Concat(other *Table) {
	for _, c := range other.columns {
		if _, ok := t.index[c]; ok {
			continue
		}

		t.index[c] = len(t.columns)
		t.columns = append(t.columns, c)

		for i := range t.rows {
			t.rows[i] = append(t.rows[i], "")
		}
	}

	for _, src := range other.rows {
		row := make([]string, len(t.columns))
		for j, c := range other.columns {
			row[t.index[c]] = src[j]
		}

		t.rows = append(t.rows, row)
	}
}

// Renamed returns a copy with every column renamed by fn. When two columns
// land on the same name the later column's values replace the earlier ones
// in place; the source names that collided are returned.
func (t *Table) Renamed(fn func(string) string) (*Table, []string) {
	out := &Table{index: make(map[string]int, len(t.columns))}

	var collided []string

	target := make([]int, len(t.columns))

	for i, c := range t.columns {
		name := fn(c)
		if idx, ok := out.index[name]; ok {
			target[i] = idx
			collided = append(collided, c)

			continue
		}

		target[i] = len(out.columns)
		out.index[name] = target[i]
		out.columns = append(out.columns, name)
	}

	for _, row := range t.rows {
		r := make([]string, len(out.columns))
		for i, v := range row {
			r[target[i]] = v
		}

		out.rows = append(out.rows, r)
	}

	return out, collided
}
