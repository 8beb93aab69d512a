// Package tableio reads and writes record tables as CSV or XLSX files.
package tableio

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"freightprep/internal/table"
)

// Supported file formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Reader errors.
var (
	ErrEmptyFile         = errors.New("file has no header row")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrNoSheets          = errors.New("workbook has no sheets")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// FormatOf returns the format implied by the file extension.
func FormatOf(path string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// ReadFile reads a CSV or XLSX file into a table. Every cell is kept as
// text. Short rows are padded; rows wider than the header are an error.
func ReadFile(path string) (*table.Table, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}

	if format == FormatXLSX {
		return readXLSX(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	t, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return t, nil
}

// ReadCSV parses CSV text with a header row. A leading UTF-8 BOM is ignored.
func ReadCSV(r io.Reader) (*table.Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	cr := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyFile
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	t, err := table.New(header...)
	if err != nil {
		return nil, fmt.Errorf("invalid header: %w", err)
	}

	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("failed to read record: %w", err)
		}

		if err := t.AppendRow(record); err != nil {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}

	return t, nil
}

func readXLSX(path string) (*table.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoSheets)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s of %s: %w", sheets[0], path, err)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyFile)
	}

	t, err := table.New(rows[0]...)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid header: %w", path, err)
	}

	for i, row := range rows[1:] {
		if err := t.AppendRow(row); err != nil {
			return nil, fmt.Errorf("%s: row %d: %w", path, i+2, err)
		}
	}

	return t, nil
}
