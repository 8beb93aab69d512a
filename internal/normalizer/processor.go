// Package normalizer turns combined raw tables into labelled output by
// renaming columns and mapping coded values through lookup tables.
package normalizer

import (
	"errors"
	"fmt"

	"freightprep/internal/logger"
	"freightprep/internal/lookup"
	"freightprep/internal/table"
)

// MappedSuffix is appended to display names for the enriched output columns.
const MappedSuffix = "_MAPPED"

// Normalizer errors.
var (
	ErrNilTable          = errors.New("input table is nil")
	ErrNilCatalog        = errors.New("lookup catalog is nil")
	ErrUnknownFamily     = errors.New("no rename table for family")
	ErrLookupUnavailable = errors.New("lookup table is not defined")
)

// DefaultCategoricalColumns are the output columns whose empty cells are
// filled with the unknown label after mapping.
var DefaultCategoricalColumns = []string{
	"Trade_Type",
	"US_State",
	"Port_District",
	"Mode_of_Transport",
	"Mexico_State",
	"Canada_Province",
	"Country",
	"Direction_Flag",
	"Container_Code",
	"Month",
	"Commodity_Code",
}

// Options tunes the safe-map policy.
type Options struct {
	UnknownLabel       string
	NullTokens         []string
	CategoricalColumns []string
}

// DefaultOptions returns the standard policy.
func DefaultOptions() Options {
	return Options{
		UnknownLabel:       DefaultUnknownLabel,
		NullTokens:         append([]string(nil), DefaultNullTokens...),
		CategoricalColumns: append([]string(nil), DefaultCategoricalColumns...),
	}
}

// Processor handles renaming and value mapping for one catalog.
type Processor struct {
	catalog     *lookup.Catalog
	transformer *Transformer
	log         *logger.Logger
	categorical []string
}

// NewProcessor creates a new processor instance. A nil logger discards output.
func NewProcessor(catalog *lookup.Catalog, opts Options, log *logger.Logger) *Processor {
	if log == nil {
		log = logger.Discard()
	}

	categorical := opts.CategoricalColumns
	if categorical == nil {
		categorical = DefaultCategoricalColumns
	}

	return &Processor{
		catalog:     catalog,
		transformer: NewTransformer(opts.UnknownLabel, opts.NullTokens),
		log:         log.With("component", "normalizer"),
		categorical: append([]string(nil), categorical...),
	}
}

// Normalize produces the cleaned and enriched variants of t for the given
// family. The input table is not modified. Problems with individual columns
// or an unknown family are reported in the result and logged; the only
// errors returned are for missing inputs.
func (p *Processor) Normalize(t *table.Table, family string) (*Result, error) {
	if t == nil {
		return nil, ErrNilTable
	}

	if p.catalog == nil {
		return nil, ErrNilCatalog
	}

	log := p.log.With("family", family)

	fam, known := p.catalog.Family(family)
	if !known {
		log.Warn("no rename table, keeping column names", "error", ErrUnknownFamily)
	}

	targetOf := func(raw string) string {
		if name, ok := fam.Target(raw); ok {
			return name
		}

		return raw
	}

	mapped, collided := t.Renamed(targetOf)
	for _, c := range collided {
		log.Warn("renamed column collides with an earlier column, later values kept",
			"column", c, "target", targetOf(c))
	}

	byRaw := make(map[string]ColumnResult)

	for _, a := range p.catalog.Associations() {
		values, ok := t.Column(a.Raw)
		if !ok {
			continue
		}

		cr := ColumnResult{Raw: a.Raw, Target: targetOf(a.Raw), Table: a.Table}

		tbl, ok := p.catalog.Table(a.Table)
		if !ok {
			cr.Status = StatusFailed
			cr.Err = fmt.Errorf("%w: %s", ErrLookupUnavailable, a.Table)
			log.Warn("could not map column, passing raw values through",
				"column", a.Raw, "table", a.Table, "error", cr.Err)
		} else {
			values, cr.Counts = p.transformer.MapColumn(values, tbl)
			cr.Status = StatusMapped
		}

		if err := mapped.SetColumn(cr.Target, values); err != nil {
			return nil, fmt.Errorf("failed to write column %s: %w", cr.Target, err)
		}

		byRaw[a.Raw] = cr
	}

	if err := p.fillUnknown(mapped); err != nil {
		return nil, err
	}

	enriched, dropped := t.Canonical()
	for _, c := range dropped {
		log.Warn("duplicate column after canonicalizing names, dropped from enriched output", "column", c)
	}

	for _, r := range fam.Renames {
		if !enriched.HasColumn(r.Raw) {
			continue
		}

		values, ok := mapped.Column(r.Name)
		if !ok {
			continue
		}

		if err := enriched.SetColumn(r.Name+MappedSuffix, values); err != nil {
			return nil, fmt.Errorf("failed to write column %s%s: %w", r.Name, MappedSuffix, err)
		}
	}

	res := &Result{
		Cleaned:     mapped,
		Enriched:    enriched,
		Family:      family,
		Collisions:  collided,
		Dropped:     dropped,
		KnownFamily: known,
	}

	for _, c := range t.Columns() {
		if cr, ok := byRaw[c]; ok {
			res.Columns = append(res.Columns, cr)
			continue
		}

		res.Columns = append(res.Columns, ColumnResult{
			Raw:    c,
			Target: targetOf(c),
			Status: StatusPassThrough,
		})
	}

	log.Debug("normalized table",
		"rows", t.Len(),
		"cleaned_columns", mapped.Width(),
		"enriched_columns", enriched.Width(),
		"failed_columns", len(res.Failed()))

	return res, nil
}

func (p *Processor) fillUnknown(t *table.Table) error {
	label := p.transformer.UnknownLabel()

	for _, c := range p.categorical {
		values, ok := t.Column(c)
		if !ok {
			continue
		}

		for i, v := range values {
			if v == "" {
				values[i] = label
			}
		}

		if err := t.SetColumn(c, values); err != nil {
			return fmt.Errorf("failed to fill column %s: %w", c, err)
		}
	}

	return nil
}
