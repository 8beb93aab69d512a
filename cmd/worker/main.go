// Package main provides the worker command that runs the full preprocessing
// pipeline: combine every family's raw files, then normalize them.
package main

import (
	"os"

	"freightprep/internal/cli"
	"freightprep/internal/pipeline"
)

const usage = `Combines the raw files of each family into <family>_all.csv and writes the
cleaned and enriched tables, the run report and the manifest.

Examples:
  ./bin/worker
  ./bin/worker -config configs/freightprep.yaml -families dot1,dot2 -strict`

func main() {
	os.Exit(cli.Main("worker", usage, pipeline.StageAll, os.Args[1:], os.Stdout, os.Stderr))
}
