package aggregator

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freightprep/internal/files"
	"freightprep/internal/table"
	"freightprep/internal/tableio"
)

func writeCSV(t *testing.T, path, content string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

type countingRecorder struct {
	matched map[string]int
	skipped map[string]int
}

func (c *countingRecorder) FilesMatched(family string, n int) { c.matched[family] += n }
func (c *countingRecorder) FileSkipped(family string)         { c.skipped[family]++ }

func TestCombine(t *testing.T) {
	root := t.TempDir()
	writeCSV(t, filepath.Join(root, "2020", "dot1_0120.csv"), "trdtype, usastate ,VALUE\n1,CA,100\n2,TX,200\n")
	writeCSV(t, filepath.Join(root, "2021", "dot1_0121.csv"), "TRDTYPE,DISAGMOT\n1,5\n")
	writeCSV(t, filepath.Join(root, "2021", "dot2_0121.csv"), "TRDTYPE\n9\n")

	rec := &countingRecorder{matched: map[string]int{}, skipped: map[string]int{}}
	agg := New(files.NewDiscovery(root), nil, WithRecorder(rec))

	combined, stats := agg.Combine("dot1", "dot1_*.csv")

	assert.Equal(t, []string{"TRDTYPE", "USASTATE", "VALUE", "SOURCE_FILE", "DISAGMOT"}, combined.Columns())
	assert.Equal(t, [][]string{
		{"1", "CA", "100", "dot1_0120.csv", ""},
		{"2", "TX", "200", "dot1_0120.csv", ""},
		{"1", "", "", "dot1_0121.csv", "5"},
	}, combined.Records())

	assert.Equal(t, 2, stats.Matched)
	assert.Equal(t, 2, stats.Read)
	assert.Equal(t, 3, stats.Rows)
	assert.Empty(t, stats.Skipped)
	assert.Equal(t, 2, rec.matched["dot1"])
}

func TestCombine_RowCountIsSumOfFiles(t *testing.T) {
	root := t.TempDir()
	writeCSV(t, filepath.Join(root, "dot3_a.csv"), "A\n1\n2\n3\n")
	writeCSV(t, filepath.Join(root, "x", "dot3_b.csv"), "B\n4\n")
	writeCSV(t, filepath.Join(root, "x", "y", "dot3_c.csv"), "A,B\n")

	combined, stats := New(files.NewDiscovery(root), nil).Combine("dot3", "dot3_*.csv")

	assert.Equal(t, 4, combined.Len())
	assert.Equal(t, 4, stats.Rows)
	assert.Equal(t, 3, stats.Read)

	source, ok := combined.Column(SourceColumn)
	require.True(t, ok)
	assert.Equal(t, []string{"dot3_a.csv", "dot3_a.csv", "dot3_a.csv", "dot3_b.csv"}, source)
}

func TestCombine_NoMatches(t *testing.T) {
	combined, stats := New(files.NewDiscovery(t.TempDir()), nil).Combine("dot2", "dot2_*.csv")

	assert.Equal(t, 0, combined.Len())
	assert.Equal(t, 0, combined.Width())
	assert.Equal(t, 0, stats.Matched)
}

func TestCombine_SearchFailure(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing")

	combined, stats := New(files.NewDiscovery(missing), nil).Combine("dot1", "dot1_*.csv")

	assert.Equal(t, 0, combined.Width())
	assert.Equal(t, 0, stats.Matched)
}

func TestCombine_SkipsBadFiles(t *testing.T) {
	root := t.TempDir()
	writeCSV(t, filepath.Join(root, "dot1_a.csv"), "A,B\n1,2\n")
	writeCSV(t, filepath.Join(root, "dot1_b.csv"), "")
	writeCSV(t, filepath.Join(root, "dot1_c.csv"), "A,B\n1,2,3\n")
	writeCSV(t, filepath.Join(root, "dot1_d.csv"), "A,a\n1,2\n")
	writeCSV(t, filepath.Join(root, "dot1_e.csv"), "A,B\n3,4\n")

	rec := &countingRecorder{matched: map[string]int{}, skipped: map[string]int{}}
	combined, stats := New(files.NewDiscovery(root), nil, WithRecorder(rec)).Combine("dot1", "dot1_*.csv")

	assert.Equal(t, [][]string{{"1", "2", "dot1_a.csv"}, {"3", "4", "dot1_e.csv"}}, combined.Records())
	assert.Equal(t, 5, stats.Matched)
	assert.Equal(t, 2, stats.Read)
	require.Len(t, stats.Skipped, 3)

	assert.ErrorIs(t, stats.Skipped[0].Err, tableio.ErrEmptyFile)
	assert.ErrorIs(t, stats.Skipped[1].Err, table.ErrRowTooWide)
	assert.ErrorIs(t, stats.Skipped[2].Err, ErrDuplicateHeader)
	assert.Equal(t, 3, rec.skipped["dot1"])
}

func TestCombine_ExistingSourceColumnIsOverwritten(t *testing.T) {
	root := t.TempDir()
	writeCSV(t, filepath.Join(root, "dot1_a.csv"), "A,source_file\n1,elsewhere.csv\n")

	combined, _ := New(files.NewDiscovery(root), nil).Combine("dot1", "dot1_*.csv")

	assert.Equal(t, []string{"A", "SOURCE_FILE"}, combined.Columns())
	assert.Equal(t, [][]string{{"1", "dot1_a.csv"}}, combined.Records())
}

func TestCombine_CustomReader(t *testing.T) {
	root := t.TempDir()
	writeCSV(t, filepath.Join(root, "dot1_a.csv"), "ignored")

	errBoom := errors.New("boom")
	agg := New(files.NewDiscovery(root), nil, WithReader(func(string) (*table.Table, error) {
		return nil, errBoom
	}))

	_, stats := agg.Combine("dot1", "dot1_*.csv")
	require.Len(t, stats.Skipped, 1)
	assert.ErrorIs(t, stats.Skipped[0].Err, errBoom)
}
