// Package main provides the preview command-line tool for inspecting
// produced tables.
package main

import (
	"flag"
	"fmt"
	"os"

	"freightprep/internal/preview"
)

func main() {
	// Define command-line flags
	path := flag.String("path", "", "CSV, XLSX or Markdown file to preview")
	rows := flag.Int("rows", preview.DefaultRows, "Number of data rows to show")
	verify := flag.Bool("verify", false, "Check the file against the run manifest")
	verifyAll := flag.Bool("verify-all", false, "Check every file listed in the manifest given by -manifest or FILE")
	manifestPath := flag.String("manifest", "", "Manifest to verify against (default: manifest.yaml next to the file)")
	help := flag.Bool("help", false, "Show usage information")

	flag.Parse()

	if *help {
		printUsage()
		os.Exit(0)
	}

	if *verifyAll {
		os.Exit(runVerifyAll(*manifestPath, *path))
	}

	if *path == "" {
		if flag.NArg() != 1 {
			printUsage()
			os.Exit(2)
		}

		*path = flag.Arg(0)
	}

	if *verify {
		if err := preview.Verify(*path, *manifestPath); err != nil {
			fmt.Fprintf(os.Stderr, "❌ Verification failed for %s: %v\n", *path, err)
			os.Exit(1)
		}

		fmt.Printf("🔏 Verified: %s\n", *path)
	}

	p, err := preview.File(*path, *rows)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to preview %s: %v\n", *path, err)
		os.Exit(1)
	}

	fmt.Println(p.Markdown)

	if p.Columns > 0 {
		fmt.Printf("\n📈 Showing %d of %d rows, %d columns\n", p.Shown, p.Rows, p.Columns)
	}
}

func runVerifyAll(manifestPath, path string) int {
	if manifestPath == "" {
		manifestPath = path
	}

	if manifestPath == "" && flag.NArg() == 1 {
		manifestPath = flag.Arg(0)
	}

	if manifestPath == "" {
		printUsage()
		return 2
	}

	problems, checked, err := preview.VerifyAll(manifestPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to load manifest %s: %v\n", manifestPath, err)
		return 1
	}

	for _, p := range problems {
		fmt.Printf("❌ %s: %v\n", p.Path, p.Err)
	}

	fmt.Printf("\n🔏 Checked %d files, %d problems\n", checked, len(problems))

	if len(problems) > 0 {
		return 1
	}

	return 0
}

func printUsage() {
	fmt.Println("Usage: ./bin/preview [OPTIONS] [FILE]")
	fmt.Println()
	fmt.Println("Options:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  ./bin/preview notebooks/worked_data/dot1_all_cleaned.csv")
	fmt.Println("  ./bin/preview -rows 25 -verify -path notebooks/worked_data/dot2_all_enriched.xlsx")
	fmt.Println("  ./bin/preview notebooks/worked_data/run_report.md")
	fmt.Println("  ./bin/preview -verify-all notebooks/worked_data/manifest.yaml")
	fmt.Println()
	fmt.Println("The manifest lists every output still on disk; each entry records the run that wrote it.")
}
