// Package lookup holds the static code-to-label tables, the raw column to
// table associations and the per-family rename tables. A Catalog is built
// once at start-up and is read-only afterwards.
package lookup

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed data/catalog.yaml
var defaultCatalog []byte

// Catalog validation errors.
var (
	ErrNoTables            = errors.New("catalog defines no lookup tables")
	ErrNoFamilies          = errors.New("catalog defines no families")
	ErrFamilyMissingName   = errors.New("family name is required")
	ErrFamilyMissingGlob   = errors.New("family pattern is required")
	ErrDuplicateFamily     = errors.New("duplicate family")
	ErrAssociationNoColumn = errors.New("column association is missing the raw column")
	ErrDuplicateColumn     = errors.New("raw column associated more than once")
	ErrRenameIncomplete    = errors.New("rename entry needs both raw and name")
	ErrDuplicateRename     = errors.New("raw column renamed more than once")
)

// Table is an immutable code-to-label mapping for one semantic field.
type Table struct {
	entries map[string]string
	name    string
}

// NewTable copies entries into a new lookup table.
func NewTable(name string, entries map[string]string) Table {
	m := make(map[string]string, len(entries))
	for k, v := range entries {
		m[k] = v
	}

	return Table{name: name, entries: m}
}

// Name returns the table identifier, e.g. "mode_map".
func (t Table) Name() string { return t.name }

// Len returns the number of codes in the table.
func (t Table) Len() int { return len(t.entries) }

// Lookup returns the label for an exact code match.
func (t Table) Lookup(code string) (string, bool) {
	label, ok := t.entries[code]
	return label, ok
}

// Association binds a raw column to the lookup table used for its values.
type Association struct {
	Raw   string `yaml:"raw"`
	Table string `yaml:"table"`
}

// Rename maps a raw column to its display name.
type Rename struct {
	Raw  string `yaml:"raw"`
	Name string `yaml:"name"`
}

// Family is a group of input files sharing one schema and rename policy.
type Family struct {
	Name    string   `yaml:"name"`
	Pattern string   `yaml:"pattern"`
	Renames []Rename `yaml:"renames"`
}

// Target returns the display name for a raw column, if renamed.
func (f Family) Target(raw string) (string, bool) {
	for _, r := range f.Renames {
		if r.Raw == raw {
			return r.Name, true
		}
	}

	return "", false
}

func (f Family) clone() Family {
	f.Renames = append([]Rename(nil), f.Renames...)
	return f
}

type catalogFile struct {
	Tables   map[string]map[string]string `yaml:"tables"`
	Columns  []Association                `yaml:"columns"`
	Families []Family                     `yaml:"families"`
}

// Catalog is the full set of lookup data.
type Catalog struct {
	tables   map[string]Table
	columns  []Association
	families []Family
}

// Default parses the catalog embedded in the binary.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog file. An empty path selects the embedded catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	return Parse(data)
}

// Parse decodes and validates catalog YAML.
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog YAML: %w", err)
	}

	tables := make(map[string]Table, len(f.Tables))
	for name, entries := range f.Tables {
		tables[name] = NewTable(name, entries)
	}

	c := &Catalog{tables: tables, columns: f.Columns, families: f.Families}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("catalog validation failed: %w", err)
	}

	return c, nil
}

// New assembles a catalog from already-built parts. It is mainly useful for
// tests and for callers that keep lookup data elsewhere.
func New(tables []Table, columns []Association, families []Family) *Catalog {
	c := &Catalog{tables: make(map[string]Table, len(tables))}
	for _, t := range tables {
		c.tables[t.Name()] = t
	}

	c.columns = append(c.columns, columns...)
	c.families = append(c.families, families...)

	return c
}

// Validate checks the structure of the catalog. Associations that point at
// tables the catalog does not define are allowed and reported by
// DanglingTables; normalization passes those columns through unchanged.
func (c *Catalog) Validate() error {
	if len(c.tables) == 0 {
		return ErrNoTables
	}

	if len(c.families) == 0 {
		return ErrNoFamilies
	}

	seenCols := make(map[string]bool, len(c.columns))

	for i, a := range c.columns {
		if a.Raw == "" {
			return fmt.Errorf("%w: columns[%d]", ErrAssociationNoColumn, i)
		}

		if seenCols[a.Raw] {
			return fmt.Errorf("%w: %s", ErrDuplicateColumn, a.Raw)
		}

		seenCols[a.Raw] = true
	}

	seenFamilies := make(map[string]bool, len(c.families))

	for i, fam := range c.families {
		if fam.Name == "" {
			return fmt.Errorf("%w: families[%d]", ErrFamilyMissingName, i)
		}

		if fam.Pattern == "" {
			return fmt.Errorf("%w: family %s", ErrFamilyMissingGlob, fam.Name)
		}

		if seenFamilies[fam.Name] {
			return fmt.Errorf("%w: %s", ErrDuplicateFamily, fam.Name)
		}

		seenFamilies[fam.Name] = true

		seenRaw := make(map[string]bool, len(fam.Renames))
		for _, r := range fam.Renames {
			if r.Raw == "" || r.Name == "" {
				return fmt.Errorf("%w: family %s", ErrRenameIncomplete, fam.Name)
			}

			if seenRaw[r.Raw] {
				return fmt.Errorf("%w: family %s column %s", ErrDuplicateRename, fam.Name, r.Raw)
			}

			seenRaw[r.Raw] = true
		}
	}

	return nil
}

// DanglingTables lists table names referenced by associations but not
// defined in the catalog.
func (c *Catalog) DanglingTables() []string {
	var missing []string

	for _, a := range c.columns {
		if _, ok := c.tables[a.Table]; !ok {
			missing = append(missing, a.Table)
		}
	}

	return missing
}

// Table returns a lookup table by name.
func (c *Catalog) Table(name string) (Table, bool) {
	t, ok := c.tables[name]
	return t, ok
}

// Associations returns the raw column associations in declared order.
func (c *Catalog) Associations() []Association {
	return append([]Association(nil), c.columns...)
}

// Family returns the family definition by name.
func (c *Catalog) Family(name string) (Family, bool) {
	for _, f := range c.families {
		if f.Name == name {
			return f.clone(), true
		}
	}

	return Family{}, false
}

// Families returns all family definitions in declared order.
func (c *Catalog) Families() []Family {
	out := make([]Family, len(c.families))
	for i, f := range c.families {
		out[i] = f.clone()
	}

	return out
}

// FamilyNames returns the family names in declared order.
func (c *Catalog) FamilyNames() []string {
	names := make([]string, len(c.families))
	for i, f := range c.families {
		names[i] = f.Name
	}

	return names
}
