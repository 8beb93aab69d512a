// Package config provides configuration management for the preprocessing tools.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. FREIGHTPREP_PATHS_DATA_ROOT.
const EnvPrefix = "FREIGHTPREP"

// File name suffixes of the per-family tables.
const (
	SuffixCombined = "all"
	SuffixCleaned  = "all_cleaned"
	SuffixEnriched = "all_enriched"
)

// Fixed output file names.
const (
	ReportFile   = "run_report.md"
	ManifestFile = "manifest.yaml"
)

// Configuration validation errors.
var (
	ErrMissingDataRoot        = errors.New("paths.data_root is required")
	ErrMissingWorkDir         = errors.New("paths.work_dir is required")
	ErrMissingOutputDir       = errors.New("paths.output_dir is required")
	ErrInvalidOutputFormat    = errors.New("output.format must be 'csv' or 'xlsx'")
	ErrMissingUnknownLabel    = errors.New("normalization.unknown_label is required")
	ErrEmptyCategoricalColumn = errors.New("normalization.categorical_columns entries must not be empty")
	ErrEmptyFamilyName        = errors.New("families entries must not be empty")
	ErrDuplicateFamily        = errors.New("families entries must be unique")
	ErrInvalidLogLevel        = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat       = errors.New("logging.format must be 'text' or 'json'")
)

// fieldErrors maps a struct namespace, optionally suffixed with the failing
// tag, to its sentinel error.
var fieldErrors = map[string]error{
	"Paths.DataRoot":                   ErrMissingDataRoot,
	"Paths.WorkDir":                    ErrMissingWorkDir,
	"Paths.OutputDir":                  ErrMissingOutputDir,
	"Output.Format":                    ErrInvalidOutputFormat,
	"Normalization.UnknownLabel":       ErrMissingUnknownLabel,
	"Normalization.CategoricalColumns": ErrEmptyCategoricalColumn,
	"Families.unique":                  ErrDuplicateFamily,
	"Families":                         ErrEmptyFamilyName,
	"Logging.Level":                    ErrInvalidLogLevel,
	"Logging.Format":                   ErrInvalidLogFormat,
}

// Config represents the complete preprocessing configuration.
type Config struct {
	Paths         PathsConfig         `yaml:"paths" envconfig:"PATHS"`
	Output        OutputConfig        `yaml:"output" envconfig:"OUTPUT"`
	Logging       LoggingConfig       `yaml:"logging" envconfig:"LOGGING"`
	Metrics       MetricsConfig       `yaml:"metrics" envconfig:"METRICS"`
	Families      []string            `yaml:"families" split_words:"true" validate:"unique,dive,required"`
	Normalization NormalizationConfig `yaml:"normalization" envconfig:"NORMALIZATION"`
}

// PathsConfig locates inputs and outputs. Relative paths resolve against
// BaseDir, or the executable's directory when BaseDir is empty.
type PathsConfig struct {
	BaseDir     string `yaml:"base_dir" split_words:"true"`
	DataRoot    string `yaml:"data_root" split_words:"true" validate:"required"`
	WorkDir     string `yaml:"work_dir" split_words:"true" validate:"required"`
	OutputDir   string `yaml:"output_dir" split_words:"true" validate:"required"`
	CatalogFile string `yaml:"catalog_file" split_words:"true"`
}

// OutputConfig defines output behavior.
type OutputConfig struct {
	Format   string `yaml:"format" split_words:"true" validate:"oneof=csv xlsx"`
	BOM      bool   `yaml:"bom" split_words:"true"`
	Report   bool   `yaml:"report" split_words:"true"`
	Manifest bool   `yaml:"manifest" split_words:"true"`
}

// NormalizationConfig tunes the value mapping policy.
type NormalizationConfig struct {
	UnknownLabel       string   `yaml:"unknown_label" split_words:"true" validate:"required"`
	NullTokens         []string `yaml:"null_tokens" split_words:"true"`
	CategoricalColumns []string `yaml:"categorical_columns" split_words:"true" validate:"dive,required"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level" split_words:"true" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" split_words:"true" validate:"oneof=text json"`
}

// MetricsConfig enables the Prometheus textfile. Empty disables it.
type MetricsConfig struct {
	Textfile string `yaml:"textfile" split_words:"true"`
}

// DefaultConfig returns a complete working configuration.
func DefaultConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			DataRoot:  "data",
			WorkDir:   "worked_data",
			OutputDir: "notebooks/worked_data",
		},
		Output: OutputConfig{
			Format: "csv",
			Report: true,
		},
		Normalization: NormalizationConfig{
			UnknownLabel: "Unknown",
			NullTokens:   []string{"nan", "None", "NULL", "null", "", " ", "NaN", "N/A"},
			CategoricalColumns: []string{
				"Trade_Type", "US_State", "Port_District", "Mode_of_Transport",
				"Mexico_State", "Canada_Province", "Country", "Direction_Flag",
				"Container_Code", "Month", "Commodity_Code",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig builds the configuration from defaults, the YAML file at path
// (skipped when path is empty) and FREIGHTPREP_* environment variables, in
// that order. The result is validated and its paths resolved.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	if err := cfg.ResolvePaths(); err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves configuration to YAML file.
func (c *Config) SaveConfig(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration and returns the first problem found.
func (c *Config) Validate() error {
	err := newValidator().Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("failed to validate config: %w", err)
	}

	fe := verrs[0]
	field := strings.TrimPrefix(fe.StructNamespace(), "Config.")

	if i := strings.IndexByte(field, '['); i >= 0 {
		field = field[:i]
	}

	if sentinel, ok := fieldErrors[field+"."+fe.Tag()]; ok {
		return fmt.Errorf("%w: %s", sentinel, fe.Namespace())
	}

	if sentinel, ok := fieldErrors[field]; ok {
		return fmt.Errorf("%w: %s", sentinel, fe.Namespace())
	}

	return fmt.Errorf("invalid %s: failed %q check", fe.Namespace(), fe.Tag())
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// report YAML names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}

		return name
	})

	return v
}

// ResolvePaths makes every configured path absolute.
func (c *Config) ResolvePaths() error {
	base := c.Paths.BaseDir
	if base == "" {
		dir, err := ExecutableDir()
		if err != nil {
			return err
		}

		base = dir
	}

	base, err := filepath.Abs(base)
	if err != nil {
		return fmt.Errorf("failed to resolve base_dir: %w", err)
	}

	c.Paths.BaseDir = base

	for _, p := range []*string{
		&c.Paths.DataRoot,
		&c.Paths.WorkDir,
		&c.Paths.OutputDir,
		&c.Paths.CatalogFile,
		&c.Metrics.Textfile,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}

	return nil
}

// ExecutableDir returns the directory of the running binary with symlinks resolved.
func ExecutableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %w", err)
	}

	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("failed to resolve executable symlinks: %w", err)
	}

	return filepath.Dir(exe), nil
}

// CombinedPath is where the aggregation stage writes a family's table.
// It is always CSV.
func (c *Config) CombinedPath(family string) string {
	return filepath.Join(c.Paths.WorkDir, fmt.Sprintf("%s_%s.csv", family, SuffixCombined))
}

// OutputPath follows the structure {output_dir}/{family}_{suffix}.{format}.
func (c *Config) OutputPath(family, suffix string) string {
	return filepath.Join(c.Paths.OutputDir, fmt.Sprintf("%s_%s.%s", family, suffix, c.Output.Format))
}

// ReportPath returns the run report location.
func (c *Config) ReportPath() string {
	return filepath.Join(c.Paths.OutputDir, ReportFile)
}

// ManifestPath returns the manifest location.
func (c *Config) ManifestPath() string {
	return filepath.Join(c.Paths.OutputDir, ManifestFile)
}

// SelectFamilies returns the configured families in order, or available
// when none are configured. Configured names missing from available are
// returned in unknown.
func (c *Config) SelectFamilies(available []string) (selected, unknown []string) {
	if len(c.Families) == 0 {
		return append([]string(nil), available...), nil
	}

	known := make(map[string]bool, len(available))
	for _, name := range available {
		known[name] = true
	}

	for _, name := range c.Families {
		if known[name] {
			selected = append(selected, name)
		} else {
			unknown = append(unknown, name)
		}
	}

	return selected, unknown
}

// String returns a string representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{DataRoot: %s, WorkDir: %s, OutputDir: %s, Format: %s}",
		c.Paths.DataRoot,
		c.Paths.WorkDir,
		c.Paths.OutputDir,
		c.Output.Format,
	)
}
