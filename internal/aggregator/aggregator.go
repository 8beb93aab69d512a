// Package aggregator combines every input file of a family into one table.
package aggregator

import (
	"errors"
	"fmt"

	"freightprep/internal/files"
	"freightprep/internal/logger"
	"freightprep/internal/table"
	"freightprep/internal/tableio"
)

// SourceColumn holds the base name of the file each row came from.
const SourceColumn = "SOURCE_FILE"

// ErrDuplicateHeader is reported for files whose column names collide after
// canonicalization.
var ErrDuplicateHeader = errors.New("duplicate column after canonicalizing names")

// Finder locates input files.
type Finder interface {
	FindRecursive(pattern string) ([]files.FileInfo, error)
}

// ReadFunc loads one file as a table.
type ReadFunc func(path string) (*table.Table, error)

// Recorder receives per-file counts. *metrics.Recorder satisfies it.
type Recorder interface {
	FilesMatched(family string, n int)
	FileSkipped(family string)
}

// Skipped describes an input file that was left out.
type Skipped struct {
	Err  error
	Path string
}

// Stats summarizes one Combine call.
type Stats struct {
	Skipped []Skipped
	Pattern string
	Matched int
	Read    int
	Rows    int
}

// Aggregator discovers and concatenates input files.
type Aggregator struct {
	finder  Finder
	read    ReadFunc
	log     *logger.Logger
	metrics Recorder
}

// Option customizes an Aggregator.
type Option func(*Aggregator)

// WithReader replaces the file reader.
func WithReader(read ReadFunc) Option {
	return func(a *Aggregator) { a.read = read }
}

// WithRecorder reports file counts to r.
func WithRecorder(r Recorder) Option {
	return func(a *Aggregator) { a.metrics = r }
}

// New creates an aggregator over finder. Files are read with
// tableio.ReadFile unless WithReader is given.
func New(finder Finder, log *logger.Logger, opts ...Option) *Aggregator {
	if log == nil {
		log = logger.Discard()
	}

	a := &Aggregator{
		finder: finder,
		read:   tableio.ReadFile,
		log:    log.With("component", "aggregator"),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Combine reads every file matching pattern into one table. Columns are
// canonicalized and unioned in first-seen order, and SOURCE_FILE is set on
// every row. Files that cannot be read are skipped. A failed search yields
// an empty table. Combine never returns an error.
func (a *Aggregator) Combine(family, pattern string) (*table.Table, Stats) {
	stats := Stats{Pattern: pattern}
	combined := table.Empty()
	log := a.log.With("family", family, "pattern", pattern)

	found, err := a.finder.FindRecursive(pattern)
	if err != nil {
		log.Error("file search failed", "error", err)
		return combined, stats
	}

	stats.Matched = len(found)
	a.recordMatched(family, len(found))

	if len(found) == 0 {
		log.Warn("no files matched")
		return combined, stats
	}

	for _, f := range found {
		t, err := a.load(f)
		if err != nil {
			log.Warn("skipping file", "path", f.Path, "error", err)
			stats.Skipped = append(stats.Skipped, Skipped{Path: f.Path, Err: err})
			a.recordSkipped(family)

			continue
		}

		combined.Concat(t)
		stats.Read++
		stats.Rows += t.Len()

		log.Debug("read file", "path", f.Path, "rows", t.Len(), "columns", t.Width())
	}

	log.Info("combined files",
		"matched", stats.Matched,
		"read", stats.Read,
		"skipped", len(stats.Skipped),
		"rows", stats.Rows,
		"columns", combined.Width())

	return combined, stats
}

func (a *Aggregator) load(f files.FileInfo) (*table.Table, error) {
	raw, err := a.read(f.Path)
	if err != nil {
		return nil, err
	}

	t, dropped := raw.Canonical()
	if len(dropped) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrDuplicateHeader, dropped)
	}

	source := make([]string, t.Len())
	for i := range source {
		source[i] = f.Name
	}

	if err := t.SetColumn(SourceColumn, source); err != nil {
		return nil, fmt.Errorf("failed to tag rows: %w", err)
	}

	return t, nil
}

func (a *Aggregator) recordMatched(family string, n int) {
	if a.metrics != nil {
		a.metrics.FilesMatched(family, n)
	}
}

func (a *Aggregator) recordSkipped(family string) {
	if a.metrics != nil {
		a.metrics.FileSkipped(family)
	}
}
