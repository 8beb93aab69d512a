package normalizer

import (
	"freightprep/internal/lookup"
)

// DefaultUnknownLabel replaces null-like values.
const DefaultUnknownLabel = "Unknown"

// DefaultNullTokens are the text forms of missing data. "nan" is what a
// missing numeric cell looks like once written out by spreadsheet tooling.
var DefaultNullTokens = []string{"nan", "None", "NULL", "null", "", " ", "NaN", "N/A"}

// CellOutcome classifies how a single value was mapped.
type CellOutcome int

// Cell outcomes.
const (
	// CellHit means the code was found in the lookup table.
	CellHit CellOutcome = iota
	// CellNull means the value was null-like. The label comes from the
	// lookup table when it defines the token, otherwise it is the unknown label.
	CellNull
	// CellPassThrough means an unmapped code was kept unchanged.
	CellPassThrough
)

// Counts tallies cell outcomes for one column.
type Counts struct {
	Hits     int
	Nulls    int
	Unmapped int
}

// Transformer applies the safe-map policy to raw values.
type Transformer struct {
	nullTokens   map[string]struct{}
	unknownLabel string
}

// NewTransformer creates a transformer. An empty unknown label selects
// DefaultUnknownLabel and a nil token list selects DefaultNullTokens.
func NewTransformer(unknownLabel string, nullTokens []string) *Transformer {
	if unknownLabel == "" {
		unknownLabel = DefaultUnknownLabel
	}

	if nullTokens == nil {
		nullTokens = DefaultNullTokens
	}

	set := make(map[string]struct{}, len(nullTokens))
	for _, tok := range nullTokens {
		set[tok] = struct{}{}
	}

	return &Transformer{
		nullTokens:   set,
		unknownLabel: unknownLabel,
	}
}

// UnknownLabel returns the label used for missing values.
func (t *Transformer) UnknownLabel() string {
	return t.unknownLabel
}

// IsNull reports whether value is one of the null-like tokens.
func (t *Transformer) IsNull(value string) bool {
	_, ok := t.nullTokens[value]
	return ok
}

// SafeMap maps one raw value. Table hits win, then null-like values become
// the unknown label, and anything else passes through unchanged.
func (t *Transformer) SafeMap(value string, tbl lookup.Table) (string, CellOutcome) {
	null := t.IsNull(value)

	if label, ok := tbl.Lookup(value); ok {
		if null {
			return label, CellNull
		}

		return label, CellHit
	}

	if null {
		return t.unknownLabel, CellNull
	}

	return value, CellPassThrough
}

// MapColumn applies SafeMap to every value and returns the mapped values
// with the outcome counts. The input slice is not modified.
func (t *Transformer) MapColumn(values []string, tbl lookup.Table) ([]string, Counts) {
	var counts Counts

	out := make([]string, len(values))

	for i, v := range values {
		mapped, outcome := t.SafeMap(v, tbl)
		out[i] = mapped

		switch outcome {
		case CellHit:
			counts.Hits++
		case CellNull:
			counts.Nulls++
		case CellPassThrough:
			counts.Unmapped++
		}
	}

	return out, counts
}
