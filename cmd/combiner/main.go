// Package main provides the combiner command, the aggregation stage alone.
package main

import (
	"os"

	"freightprep/internal/cli"
	"freightprep/internal/pipeline"
)

const usage = `Finds every file matching a family's pattern under the data root and
writes the concatenated table to <work_dir>/<family>_all.csv.

Examples:
  ./bin/combiner
  ./bin/combiner -families dot3`

func main() {
	os.Exit(cli.Main("combiner", usage, pipeline.StageCombine, os.Args[1:], os.Stdout, os.Stderr))
}
