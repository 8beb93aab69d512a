// Package cli holds the flag handling and startup shared by the pipeline
// commands.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"freightprep/internal/config"
	"freightprep/internal/logger"
	"freightprep/internal/lookup"
	"freightprep/internal/metrics"
	"freightprep/internal/pipeline"
	"freightprep/internal/report"
)

// DefaultConfigPath is used when -config is not given and the file exists.
const DefaultConfigPath = "configs/freightprep.yaml"

// Exit codes.
const (
	ExitOK     = 0
	ExitFailed = 1
	ExitUsage  = 2
)

// Options are the flags shared by the pipeline commands.
type Options struct {
	ConfigPath string
	Families   string
	Strict     bool
	Help       bool
}

// ParseFlags parses args into Options using fs.
func ParseFlags(fs *flag.FlagSet, args []string) (Options, error) {
	var opts Options

	fs.StringVar(&opts.ConfigPath, "config", "", "Path to YAML configuration file (default: "+DefaultConfigPath+" if present)")
	fs.StringVar(&opts.Families, "families", "", "Comma-separated families to process (default: all catalog families)")
	fs.BoolVar(&opts.Strict, "strict", false, "Exit non-zero when any family fails")
	fs.BoolVar(&opts.Help, "help", false, "Show usage information")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	return opts, nil
}

// SplitList splits a comma-separated flag value, dropping blanks.
func SplitList(s string) []string {
	var out []string

	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}

	return out
}

// ResolveConfigPath returns path, or DefaultConfigPath when path is empty
// and that file exists, or "" to use built-in defaults.
func ResolveConfigPath(path string) string {
	if path != "" {
		return path
	}

	if _, err := os.Stat(DefaultConfigPath); err == nil {
		return DefaultConfigPath
	}

	return ""
}

// Env is everything a command needs after startup.
type Env struct {
	Config  *config.Config
	Catalog *lookup.Catalog
	Log     *logger.Logger
	Metrics *metrics.Recorder
}

// Setup loads the configuration and catalog and builds the logger. Any
// error is fatal for the command.
func Setup(opts Options, logOut io.Writer) (*Env, error) {
	cfg, err := config.LoadConfig(ResolveConfigPath(opts.ConfigPath))
	if err != nil {
		return nil, err
	}

	if families := SplitList(opts.Families); len(families) > 0 {
		cfg.Families = families
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid -families: %w", err)
		}
	}

	log := logger.New(logger.Options{
		Output: logOut,
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	catalog, err := lookup.Load(cfg.Paths.CatalogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	env := &Env{Config: cfg, Catalog: catalog, Log: log}
	if cfg.Metrics.Textfile != "" {
		env.Metrics = metrics.New()
	}

	return env, nil
}

// Execute runs the given stages and prints a summary to stdout. It returns
// the process exit code.
func Execute(name string, opts Options, stages pipeline.Stage, stdout, stderr io.Writer) int {
	start := time.Now()

	env, err := Setup(opts, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "❌ %s: %v\n", name, err)
		return ExitFailed
	}

	log := env.Log
	log.Info("🚀 Starting "+name, "config", env.Config.String())

	runner, err := pipeline.New(env.Config, env.Catalog, log, pipeline.WithMetrics(env.Metrics))
	if err != nil {
		log.Error("❌ failed to create pipeline", "error", err)
		return ExitFailed
	}

	families := runner.Families()
	if len(families) == 0 {
		log.Error("❌ no families to process")
		return ExitFailed
	}

	sum, runErr := runner.Run(families, stages)

	PrintSummary(stdout, sum, time.Since(start))

	if runErr != nil {
		log.Error("❌ failed to write run artifacts", "error", runErr)
		return ExitFailed
	}

	if opts.Strict && len(sum.FailedFamilies()) > 0 {
		return ExitFailed
	}

	return ExitOK
}

// PrintSummary writes a short human-readable account of the run.
func PrintSummary(w io.Writer, sum *report.Summary, elapsed time.Duration) {
	fmt.Fprintln(w, "------------------------------------------------")
	fmt.Fprintln(w, "📊 Summary Report")
	fmt.Fprintln(w, "------------------------------------------------")
	fmt.Fprintf(w, "Run ID: %s\n", sum.RunID)

	for _, f := range sum.Families {
		if f.Failed() {
			fmt.Fprintf(w, "❌ %s: %v\n", f.Name, f.Err)
			continue
		}

		fmt.Fprintf(w, "✅ %s\n", f.Name)

		for _, o := range f.Outputs {
			fmt.Fprintf(w, "   %-9s %6d rows %3d cols  %s\n", o.Kind, o.Rows, o.Columns, o.Path)
		}
	}

	fmt.Fprintf(w, "Total Duration: %v\n", elapsed.Round(time.Millisecond))
	fmt.Fprintln(w, "------------------------------------------------")
}

// Main parses args and runs the command. Usage errors return ExitUsage.
func Main(name, usage string, stages pipeline.Stage, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)

	opts, err := ParseFlags(fs, args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitOK
		}

		return ExitUsage
	}

	if opts.Help {
		fmt.Fprintf(stdout, "Usage: %s [OPTIONS]\n\n%s\n\nOptions:\n", name, usage)
		fs.SetOutput(stdout)
		fs.PrintDefaults()

		return ExitOK
	}

	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "unexpected arguments: %v\n", fs.Args())
		return ExitUsage
	}

	return Execute(name, opts, stages, stdout, stderr)
}
