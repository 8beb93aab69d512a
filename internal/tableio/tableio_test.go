package tableio

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freightprep/internal/table"
)

func sampleTable(t *testing.T) *table.Table {
	t.Helper()

	tbl, err := table.New("DEPE", "USASTATE", "Mexico_State")
	require.NoError(t, err)
	require.NoError(t, tbl.AppendRow([]string{"01XX", "CA", "Michoacán"}))
	require.NoError(t, tbl.AppendRow([]string{"0101", "", "Jalisco, MX"}))

	return tbl
}

func TestFormatOf(t *testing.T) {
	tests := []struct {
		path    string
		want    string
		wantErr bool
	}{
		{"a/dot1_0120.csv", FormatCSV, false},
		{"a/dot1_0120.CSV", FormatCSV, false},
		{"out.xlsx", FormatXLSX, false},
		{"notes.txt", "", true},
		{"noext", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := FormatOf(tt.path)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadCSV(t *testing.T) {
	in := "\xEF\xBB\xBFDEPE,USASTATE,VALUE\n0101,CA,100\n01XX,TX\n\n2304,\"New York, NY\",7\n"

	tbl, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, []string{"DEPE", "USASTATE", "VALUE"}, tbl.Columns())
	assert.Equal(t, [][]string{
		{"0101", "CA", "100"},
		{"01XX", "TX", ""},
		{"2304", "New York, NY", "7"},
	}, tbl.Records())
}

func TestReadCSV_HeaderOnly(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader("A,B\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, tbl.Columns())
	assert.Equal(t, 0, tbl.Len())
}

func TestReadCSV_Errors(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr error
	}{
		{"empty", "", ErrEmptyFile},
		{"bom only", "\xEF\xBB\xBF", ErrEmptyFile},
		{"row too wide", "A,B\n1,2,3\n", table.ErrRowTooWide},
		{"duplicate header", "A,B,A\n1,2,3\n", table.ErrDuplicateColumn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.in))
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dot1_all.csv")

	w, err := NewWriter(FormatCSV, true)
	require.NoError(t, err)
	assert.Equal(t, "csv", w.Ext())

	src := sampleTable(t)
	require.NoError(t, w.Write(path, src))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "\xEF\xBB\xBF"), "BOM missing")

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, src.Columns(), got.Columns())
	assert.Equal(t, src.Records(), got.Records())
}

func TestWriteCSV_EmptyTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dot3_all.csv")

	require.NoError(t, WriteCSV(path, WriteOptions{}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(0), info.Size())

	_, err = ReadFile(path)
	require.ErrorIs(t, err, ErrEmptyFile)
}

func TestWriteXLSX_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dot2_all_cleaned.xlsx")

	w, err := NewWriter(FormatXLSX, false)
	require.NoError(t, err)

	src := sampleTable(t)
	require.NoError(t, w.Write(path, src))

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, src.Columns(), got.Columns())
	assert.Equal(t, src.Records(), got.Records())
}

func TestNewWriter_UnsupportedFormat(t *testing.T) {
	_, err := NewWriter("parquet", false)
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestReadFile_Missing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "missing.csv"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
