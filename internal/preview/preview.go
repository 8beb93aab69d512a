// Package preview prints the head of a produced table as Markdown.
package preview

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"freightprep/internal/files"
	"freightprep/internal/formatter"
	"freightprep/internal/tableio"
	"freightprep/pkg/manifest"
)

// DefaultRows is the number of data rows shown when none is given.
const DefaultRows = 10

// ErrNoColumns is returned for files without a header row.
var ErrNoColumns = errors.New("file has no columns")

// Preview is the rendered head of one file.
type Preview struct {
	Path     string
	Markdown string
	Rows     int
	Columns  int
	Shown    int
}

// File renders the first n rows of a CSV or XLSX file as an aligned
// Markdown table. A Markdown file is realigned and returned whole. n <= 0
// selects DefaultRows.
func File(path string, n int) (*Preview, error) {
	if n <= 0 {
		n = DefaultRows
	}

	if files.HasExt(path, ".md") {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}

		return &Preview{Path: path, Markdown: formatter.FormatMarkdown(string(data))}, nil
	}

	t, err := tableio.ReadFile(path)
	if errors.Is(err, tableio.ErrEmptyFile) {
		return nil, fmt.Errorf("%w: %s", ErrNoColumns, path)
	}

	if err != nil {
		return nil, err
	}

	if t.Width() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoColumns, path)
	}

	records := t.Records()
	if len(records) > n {
		records = records[:n]
	}

	return &Preview{
		Path:     path,
		Markdown: formatter.Table(t.Columns(), records),
		Rows:     t.Len(),
		Columns:  t.Width(),
		Shown:    len(records),
	}, nil
}

// Verify checks path against the manifest at manifestPath. An empty
// manifestPath looks for manifest.yaml next to the file.
func Verify(path, manifestPath string) error {
	if manifestPath == "" {
		manifestPath = filepath.Join(filepath.Dir(path), "manifest.yaml")
	}

	m, err := manifest.Load(manifestPath)
	if err != nil {
		return err
	}

	return m.VerifyFile(path)
}

// VerifyAll re-hashes every file listed in the manifest and returns the ones
// that changed or disappeared, with the number of files checked.
func VerifyAll(manifestPath string) ([]manifest.Problem, int, error) {
	m, err := manifest.Load(manifestPath)
	if err != nil {
		return nil, 0, err
	}

	return m.Verify(), len(m.Files), nil
}
