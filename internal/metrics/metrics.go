// Package metrics records run counters in a private Prometheus registry and
// writes them out in the node_exporter textfile format.
package metrics

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"freightprep/internal/files"
)

const namespace = "freightprep"

// Recorder collects metrics for one process. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	registry      *prometheus.Registry
	filesMatched  *prometheus.CounterVec
	filesSkipped  *prometheus.CounterVec
	rows          *prometheus.GaugeVec
	cells         *prometheus.CounterVec
	columnsFailed *prometheus.CounterVec
	familyErrors  *prometheus.CounterVec
	lastRun       prometheus.Gauge
	runDuration   prometheus.Gauge
}

// New creates a recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		filesMatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_matched_total",
			Help:      "Input files matching a family pattern.",
		}, []string{"family"}),
		filesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_skipped_total",
			Help:      "Input files skipped because they could not be read.",
		}, []string{"family"}),
		rows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "output_rows",
			Help:      "Rows written per family and output kind.",
		}, []string{"family", "kind"}),
		cells: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cells_mapped_total",
			Help:      "Cells passed through the lookup tables, by outcome.",
		}, []string{"family", "column", "outcome"}),
		columnsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "columns_failed_total",
			Help:      "Columns whose lookup table was unavailable.",
		}, []string{"family"}),
		familyErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "family_errors_total",
			Help:      "Families that failed a stage.",
		}, []string{"family", "stage"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
	}

	r.registry.MustRegister(
		r.filesMatched,
		r.filesSkipped,
		r.rows,
		r.cells,
		r.columnsFailed,
		r.familyErrors,
		r.lastRun,
		r.runDuration,
	)

	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}

	return r.registry
}

// FilesMatched adds matched input files for a family.
func (r *Recorder) FilesMatched(family string, n int) {
	if r == nil {
		return
	}

	r.filesMatched.WithLabelValues(family).Add(float64(n))
}

// FileSkipped counts one skipped input file.
func (r *Recorder) FileSkipped(family string) {
	if r == nil {
		return
	}

	r.filesSkipped.WithLabelValues(family).Inc()
}

// Rows sets the row count of one output kind.
func (r *Recorder) Rows(family, kind string, n int) {
	if r == nil {
		return
	}

	r.rows.WithLabelValues(family, kind).Set(float64(n))
}

// Cells adds per-outcome cell counts for a column.
func (r *Recorder) Cells(family, column string, hits, nulls, unmapped int) {
	if r == nil {
		return
	}

	r.cells.WithLabelValues(family, column, "hit").Add(float64(hits))
	r.cells.WithLabelValues(family, column, "null").Add(float64(nulls))
	r.cells.WithLabelValues(family, column, "unmapped").Add(float64(unmapped))
}

// ColumnFailed counts a column whose lookup could not be applied.
func (r *Recorder) ColumnFailed(family string) {
	if r == nil {
		return
	}

	r.columnsFailed.WithLabelValues(family).Inc()
}

// FamilyError counts a family that failed the given stage.
func (r *Recorder) FamilyError(family, stage string) {
	if r == nil {
		return
	}

	r.familyErrors.WithLabelValues(family, stage).Inc()
}

// RunFinished records the end time and duration of a run.
func (r *Recorder) RunFinished(start, end time.Time) {
	if r == nil {
		return
	}

	r.lastRun.Set(float64(end.Unix()))
	r.runDuration.Set(end.Sub(start).Seconds())
}

// WriteTextfile writes all metrics to path, creating the directory.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}

	if err := files.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}

	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}

	return nil
}
