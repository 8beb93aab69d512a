// Package main provides the normalizer command, the normalization stage
// alone. It expects the combiner's output in the work directory.
package main

import (
	"os"

	"freightprep/internal/cli"
	"freightprep/internal/pipeline"
)

const usage = `Reads <work_dir>/<family>_all.csv, maps codes to labels and renames
columns, and writes <family>_all_cleaned and <family>_all_enriched.

Examples:
  ./bin/normalizer
  ./bin/normalizer -families dot1 -strict`

func main() {
	os.Exit(cli.Main("normalizer", usage, pipeline.StageNormalize, os.Args[1:], os.Stdout, os.Stderr))
}
