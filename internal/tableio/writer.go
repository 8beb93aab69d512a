package tableio

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"freightprep/internal/table"
)

// DefaultSheet is the sheet name used for XLSX output.
const DefaultSheet = "data"

// WriteOptions configures CSV writing behavior.
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // UTF-8 BOM for spreadsheet tools
}

// Writer writes tables in one configured format.
type Writer struct {
	format string
	bom    bool
}

// NewWriter creates a writer for the given format. BOM applies to CSV only.
func NewWriter(format string, bom bool) (*Writer, error) {
	if format != FormatCSV && format != FormatXLSX {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	return &Writer{format: format, bom: bom}, nil
}

// Ext returns the file extension for the writer's format, without the dot.
func (w *Writer) Ext() string {
	return w.format
}

// Write stores t at path in the writer's format, creating parent directories.
func (w *Writer) Write(path string, t *table.Table) error {
	opts := WriteOptions{
		Headers:   t.Columns(),
		Records:   t.Records(),
		BOMPrefix: w.bom,
	}

	if w.format == FormatXLSX {
		return WriteXLSX(path, DefaultSheet, opts)
	}

	return WriteCSV(path, opts)
}

// WriteCSV writes a CSV file. The file is truncated if it exists.
func WriteCSV(path string, opts WriteOptions) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if opts.BOMPrefix {
		if _, err := file.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(file)

	if len(opts.Headers) > 0 {
		if err := writer.Write(opts.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}

	for i, record := range opts.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()

	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}

	return file.Close()
}

// WriteXLSX writes a single-sheet workbook. Cells are stored as text so codes
// keep their leading zeros.
func WriteXLSX(path, sheet string, opts WriteOptions) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("failed to open sheet writer: %w", err)
	}

	rowNum := 1

	writeRow := func(values []string) error {
		cell, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return err
		}

		row := make([]interface{}, len(values))
		for i, v := range values {
			row[i] = v
		}

		rowNum++

		return sw.SetRow(cell, row)
	}

	if len(opts.Headers) > 0 {
		if err := writeRow(opts.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}

	for i, record := range opts.Records {
		if err := writeRow(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}

	return nil
}
