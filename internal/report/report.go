// Package report renders the Markdown summary of a preprocessing run.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"freightprep/internal/aggregator"
	"freightprep/internal/formatter"
	"freightprep/internal/normalizer"
)

// Output describes one written file.
type Output struct {
	Kind    string `yaml:"kind"`
	Path    string `yaml:"path"`
	Rows    int    `yaml:"rows"`
	Columns int    `yaml:"columns"`
}

// Family collects everything that happened to one family during a run.
type Family struct {
	Combine   *aggregator.Stats
	Normalize *normalizer.Result
	Err       error
	Name      string
	Outputs   []Output
}

// Failed reports whether any stage failed for the family.
func (f *Family) Failed() bool {
	return f.Err != nil
}

// Summary is the outcome of a run.
type Summary struct {
	Started  time.Time
	Finished time.Time
	RunID    string
	Families []*Family
}

// Family returns the named family, adding it if needed.
func (s *Summary) Family(name string) *Family {
	for _, f := range s.Families {
		if f.Name == name {
			return f
		}
	}

	f := &Family{Name: name}
	s.Families = append(s.Families, f)

	return f
}

// Outputs returns every written file across families.
func (s *Summary) Outputs() []Output {
	var out []Output
	for _, f := range s.Families {
		out = append(out, f.Outputs...)
	}

	return out
}

// FailedFamilies returns the names of families with an error.
func (s *Summary) FailedFamilies() []string {
	var names []string

	for _, f := range s.Families {
		if f.Failed() {
			names = append(names, f.Name)
		}
	}

	return names
}

// Render produces the Markdown report.
func Render(s *Summary) string {
	var b strings.Builder

	b.WriteString("# Freight preprocessing run\n\n")
	fmt.Fprintf(&b, "- Run ID: `%s`\n", s.RunID)
	fmt.Fprintf(&b, "- Started: %s\n", s.Started.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "- Finished: %s\n", s.Finished.UTC().Format(time.RFC3339))

	if failed := s.FailedFamilies(); len(failed) > 0 {
		fmt.Fprintf(&b, "- Failed families: %s\n", strings.Join(failed, ", "))
	}

	for _, f := range s.Families {
		b.WriteString("\n")
		renderFamily(&b, f)
	}

	return b.String()
}

func renderFamily(b *strings.Builder, f *Family) {
	fmt.Fprintf(b, "## %s\n\n", f.Name)

	if f.Err != nil {
		fmt.Fprintf(b, "**Failed:** %s\n\n", formatter.EscapeCell(f.Err.Error()))
	}

	if st := f.Combine; st != nil {
		fmt.Fprintf(b, "Pattern `%s`: %d files matched, %d read, %d skipped, %d rows.\n\n",
			st.Pattern, st.Matched, st.Read, len(st.Skipped), st.Rows)

		if len(st.Skipped) > 0 {
			rows := make([][]string, len(st.Skipped))
			for i, sk := range st.Skipped {
				rows[i] = []string{sk.Path, errString(sk.Err)}
			}

			b.WriteString("### Skipped files\n\n")
			b.WriteString(formatter.Table([]string{"File", "Reason"}, rows))
			b.WriteString("\n\n")
		}
	}

	if len(f.Outputs) > 0 {
		rows := make([][]string, len(f.Outputs))
		for i, o := range f.Outputs {
			rows[i] = []string{o.Kind, filepath.Base(o.Path), strconv.Itoa(o.Rows), strconv.Itoa(o.Columns)}
		}

		b.WriteString("### Outputs\n\n")
		b.WriteString(formatter.Table([]string{"Kind", "File", "Rows", "Columns"}, rows))
		b.WriteString("\n\n")
	}

	if res := f.Normalize; res != nil {
		if !res.KnownFamily {
			b.WriteString("No rename table for this family; column names were kept.\n\n")
		}

		if len(res.Collisions) > 0 {
			fmt.Fprintf(b, "Renamed columns that overwrote earlier ones: %s\n\n", strings.Join(res.Collisions, ", "))
		}

		tot := res.Totals()
		fmt.Fprintf(b, "Cells: %d mapped, %d unmapped, %d null, %d failed columns.\n\n",
			tot.Hits, tot.Unmapped, tot.Nulls, len(res.Failed()))

		rows := make([][]string, 0, len(res.Columns))
		for _, c := range res.Columns {
			rows = append(rows, []string{
				c.Raw,
				c.Target,
				c.Table,
				string(c.Status),
				strconv.Itoa(c.Hits),
				strconv.Itoa(c.Unmapped),
				strconv.Itoa(c.Nulls),
			})
		}

		b.WriteString("### Column mapping\n\n")
		b.WriteString(formatter.Table(
			[]string{"Raw", "Target", "Table", "Status", "Hits", "Unmapped", "Nulls"}, rows))
		b.WriteString("\n\n")
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}

	return err.Error()
}

// Write renders the report to path, creating the directory.
func Write(path string, s *Summary) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(Render(s)), 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	return nil
}
