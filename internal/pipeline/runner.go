// Package pipeline runs the combine and normalize stages over the configured
// families and writes every output of a run.
package pipeline

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"freightprep/internal/aggregator"
	"freightprep/internal/config"
	"freightprep/internal/files"
	"freightprep/internal/logger"
	"freightprep/internal/lookup"
	"freightprep/internal/metrics"
	"freightprep/internal/normalizer"
	"freightprep/internal/report"
	"freightprep/internal/table"
	"freightprep/internal/tableio"
	"freightprep/pkg/manifest"
)

// Output kinds as they appear in the report, manifest and metrics.
const (
	KindCombined = "combined"
	KindCleaned  = "cleaned"
	KindEnriched = "enriched"
	KindReport   = "report"
)

// Stage selects which parts of the pipeline run.
type Stage int

// Stages.
const (
	StageCombine Stage = 1 << iota
	StageNormalize

	StageAll = StageCombine | StageNormalize
)

// String returns the stage name used in logs and metrics.
func (s Stage) String() string {
	switch s {
	case StageCombine:
		return "combine"
	case StageNormalize:
		return "normalize"
	case StageAll:
		return "all"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Pipeline errors.
var (
	ErrNilConfig       = errors.New("config is nil")
	ErrNilCatalog      = errors.New("catalog is nil")
	ErrUnknownFamily   = errors.New("family is not defined in the catalog")
	ErrMissingCombined = errors.New("combined file not found")
	ErrCombineFailed   = errors.New("combine stage failed")
)

// Runner wires the stages together for one configuration.
type Runner struct {
	cfg        *config.Config
	catalog    *lookup.Catalog
	aggregator *aggregator.Aggregator
	processor  *normalizer.Processor
	writer     *tableio.Writer
	metrics    *metrics.Recorder
	log        *logger.Logger
	now        func() time.Time
	runID      string
}

// Option customizes a Runner.
type Option func(*Runner)

// WithMetrics records run metrics to rec.
func WithMetrics(rec *metrics.Recorder) Option {
	return func(r *Runner) { r.metrics = rec }
}

// WithRunID overrides the generated run ID.
func WithRunID(id string) Option {
	return func(r *Runner) { r.runID = id }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// New creates a runner. The configuration must already be validated and
// its paths resolved.
func New(cfg *config.Config, catalog *lookup.Catalog, log *logger.Logger, opts ...Option) (*Runner, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}

	if catalog == nil {
		return nil, ErrNilCatalog
	}

	if log == nil {
		log = logger.Discard()
	}

	writer, err := tableio.NewWriter(cfg.Output.Format, cfg.Output.BOM)
	if err != nil {
		return nil, fmt.Errorf("failed to create writer: %w", err)
	}

	r := &Runner{
		cfg:     cfg,
		catalog: catalog,
		writer:  writer,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.runID == "" {
		r.runID = uuid.New().String()
	}

	r.log = log.With("run_id", r.runID)

	var aggOpts []aggregator.Option
	if r.metrics != nil {
		aggOpts = append(aggOpts, aggregator.WithRecorder(r.metrics))
	}

	r.aggregator = aggregator.New(files.NewDiscovery(cfg.Paths.DataRoot), r.log, aggOpts...)
	r.processor = normalizer.NewProcessor(catalog, normalizer.Options{
		UnknownLabel:       cfg.Normalization.UnknownLabel,
		NullTokens:         cfg.Normalization.NullTokens,
		CategoricalColumns: cfg.Normalization.CategoricalColumns,
	}, r.log)

	for _, name := range catalog.DanglingTables() {
		r.log.Warn("column association refers to an undefined lookup table", "table", name)
	}

	return r, nil
}

// RunID returns the identifier attached to logs, the report and the manifest.
func (r *Runner) RunID() string {
	return r.runID
}

// Families returns the families to process: the configured subset or every
// catalog family. Configured names the catalog lacks are logged and dropped.
func (r *Runner) Families() []string {
	selected, unknown := r.cfg.SelectFamilies(r.catalog.FamilyNames())
	for _, name := range unknown {
		r.log.Warn("configured family not in catalog, ignoring", "family", name)
	}

	return selected
}

// Run executes the selected stages for every family: all combines first,
// then all normalizations. A failing family does not stop the others.
// The returned error covers only the run-level artifacts (report,
// manifest, metrics); family failures are recorded in the summary.
func (r *Runner) Run(families []string, stages Stage) (*report.Summary, error) {
	sum := &report.Summary{RunID: r.runID, Started: r.now()}

	r.log.Info("run started", "families", families, "stage", stages.String())

	if stages&StageCombine != 0 {
		for _, name := range families {
			fam := sum.Family(name)
			if err := r.Combine(fam); err != nil {
				r.fail(fam, "combine", err)
			}
		}
	}

	if stages&StageNormalize != 0 {
		for _, name := range families {
			fam := sum.Family(name)
			if fam.Failed() {
				r.log.Warn("skipping normalization after failed combine", "family", name)
				continue
			}

			if err := r.Normalize(fam); err != nil {
				r.fail(fam, "normalize", err)
			}
		}
	}

	sum.Finished = r.now()
	r.metrics.RunFinished(sum.Started, sum.Finished)

	err := r.finish(sum)

	r.log.Info("run finished",
		"families", len(sum.Families),
		"failed", len(sum.FailedFamilies()),
		"duration", sum.Finished.Sub(sum.Started).String())

	return sum, err
}

func (r *Runner) fail(fam *report.Family, stage string, err error) {
	fam.Err = err
	r.metrics.FamilyError(fam.Name, stage)
	r.log.Error("family failed", "family", fam.Name, "stage", stage, "error", err)
}

// Combine aggregates the family's input files and writes the combined CSV
// to the work directory, even when no file matched.
func (r *Runner) Combine(fam *report.Family) error {
	def, ok := r.catalog.Family(fam.Name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFamily, fam.Name)
	}

	combined, stats := r.aggregator.Combine(def.Name, def.Pattern)
	fam.Combine = &stats

	path := r.cfg.CombinedPath(fam.Name)

	err := tableio.WriteCSV(path, tableio.WriteOptions{
		Headers:   combined.Columns(),
		Records:   combined.Records(),
		BOMPrefix: r.cfg.Output.BOM,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCombineFailed, err)
	}

	r.record(fam, KindCombined, path, combined)

	return nil
}

// Normalize reads the family's combined CSV from the work directory and
// writes the cleaned and enriched tables to the output directory.
func (r *Runner) Normalize(fam *report.Family) error {
	path := r.cfg.CombinedPath(fam.Name)
	log := r.log.With("family", fam.Name)

	raw, err := tableio.ReadFile(path)

	switch {
	case errors.Is(err, tableio.ErrEmptyFile):
		log.Warn("combined file is empty", "path", path)

		raw = table.Empty()
	case errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("%w: %s", ErrMissingCombined, path)
	case err != nil:
		return fmt.Errorf("failed to read combined file: %w", err)
	}

	res, err := r.processor.Normalize(raw, fam.Name)
	if err != nil {
		return fmt.Errorf("failed to normalize: %w", err)
	}

	fam.Normalize = res

	for _, c := range res.Columns {
		switch c.Status {
		case normalizer.StatusMapped:
			r.metrics.Cells(fam.Name, c.Raw, c.Hits, c.Nulls, c.Unmapped)
		case normalizer.StatusFailed:
			r.metrics.ColumnFailed(fam.Name)
		case normalizer.StatusPassThrough:
		}
	}

	outputs := []struct {
		kind   string
		suffix string
		t      *table.Table
	}{
		{KindCleaned, config.SuffixCleaned, res.Cleaned},
		{KindEnriched, config.SuffixEnriched, res.Enriched},
	}

	for _, o := range outputs {
		out := r.cfg.OutputPath(fam.Name, o.suffix)
		if err := r.writer.Write(out, o.t); err != nil {
			return fmt.Errorf("failed to write %s output: %w", o.kind, err)
		}

		r.record(fam, o.kind, out, o.t)
	}

	log.Info("normalized family",
		"rows", raw.Len(),
		"cleaned_columns", res.Cleaned.Width(),
		"enriched_columns", res.Enriched.Width(),
		"failed_columns", len(res.Failed()))

	return nil
}

func (r *Runner) record(fam *report.Family, kind, path string, t *table.Table) {
	fam.Outputs = append(fam.Outputs, report.Output{
		Kind:    kind,
		Path:    path,
		Rows:    t.Len(),
		Columns: t.Width(),
	})

	r.metrics.Rows(fam.Name, kind, t.Len())
	r.log.Info("wrote table", "family", fam.Name, "kind", kind, "path", path, "rows", t.Len())
}

func (r *Runner) finish(sum *report.Summary) error {
	var errs []error

	outputs := sum.Outputs()

	if r.cfg.Output.Report {
		path := r.cfg.ReportPath()
		if err := report.Write(path, sum); err != nil {
			errs = append(errs, err)
		} else {
			outputs = append(outputs, report.Output{Kind: KindReport, Path: path})
			r.log.Info("wrote run report", "path", path)
		}
	}

	if r.cfg.Output.Manifest {
		if err := r.writeManifest(sum, outputs); err != nil {
			errs = append(errs, err)
		}
	}

	if path := r.cfg.Metrics.Textfile; path != "" {
		if err := r.metrics.WriteTextfile(path); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (r *Runner) writeManifest(sum *report.Summary, outputs []report.Output) error {
	m := manifest.New(r.runID, sum.Finished)

	families := make(map[string]string, len(outputs))
	for _, f := range sum.Families {
		for _, o := range f.Outputs {
			families[o.Path] = f.Name
		}
	}

	for _, o := range outputs {
		if err := m.Add(o.Path, families[o.Path], o.Kind, o.Rows, o.Columns); err != nil {
			return fmt.Errorf("failed to add %s to manifest: %w", o.Path, err)
		}
	}

	path := r.cfg.ManifestPath()

	// files from earlier runs stay listed until they disappear
	prev, err := manifest.Load(path)

	switch {
	case err == nil:
		if n := m.Merge(prev); n > 0 {
			r.log.Debug("kept manifest entries from earlier runs", "count", n)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		r.log.Warn("replacing unreadable manifest", "path", path, "error", err)
	}

	if err := m.Save(path); err != nil {
		return err
	}

	r.log.Info("wrote manifest", "path", path, "files", len(m.Files))

	return nil
}
