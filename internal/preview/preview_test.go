package preview

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freightprep/internal/tableio"
	"freightprep/pkg/manifest"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestFile_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dot1_all_cleaned.csv")
	writeFile(t, path, "Trade_Type,Mexico_State\nExport,Michoacán\nImport,Jalisco\nExport,Sonora\n")

	p, err := File(path, 2)
	require.NoError(t, err)

	assert.Equal(t, 3, p.Rows)
	assert.Equal(t, 2, p.Columns)
	assert.Equal(t, 2, p.Shown)

	lines := strings.Split(p.Markdown, "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "| Trade_Type | Mexico_State |", lines[0])
	assert.Equal(t, "| Export     | Michoacán    |", lines[2])
	assert.NotContains(t, p.Markdown, "Sonora")
}

func TestFile_DefaultRows(t *testing.T) {
	var b strings.Builder

	b.WriteString("MONTH\n")

	for i := 0; i < 15; i++ {
		b.WriteString("1\n")
	}

	path := filepath.Join(t.TempDir(), "x.csv")
	writeFile(t, path, b.String())

	p, err := File(path, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultRows, p.Shown)
	assert.Equal(t, 15, p.Rows)
}

func TestFile_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, tableio.WriteXLSX(path, tableio.DefaultSheet, tableio.WriteOptions{
		Headers: []string{"Commodity_Code"},
		Records: [][]string{{"Live Animals"}},
	}))

	p, err := File(path, 5)
	require.NoError(t, err)
	assert.Contains(t, p.Markdown, "Live Animals")
	assert.Equal(t, 1, p.Shown)
}

func TestFile_Markdown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run_report.md")
	writeFile(t, path, "# Run\n\n| A | B |\n|---|---|\n| long value | x |\n")

	p, err := File(path, 0)
	require.NoError(t, err)
	assert.Contains(t, p.Markdown, "| A          | B   |")

	upper := filepath.Join(filepath.Dir(path), "NOTES.MD")
	writeFile(t, upper, "| x |\n|---|\n")

	p, err = File(upper, 0)
	require.NoError(t, err)
	assert.Equal(t, "| x   |\n| --- |\n", p.Markdown)
}

func TestFile_Errors(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.csv")
	writeFile(t, empty, "")

	_, err := File(empty, 1)
	require.ErrorIs(t, err, ErrNoColumns)

	_, err = File(filepath.Join(dir, "missing.csv"), 1)
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = File(filepath.Join(dir, "x.parquet"), 1)
	require.ErrorIs(t, err, tableio.ErrUnsupportedFormat)
}

func TestVerify(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dot1_all_cleaned.csv")
	writeFile(t, path, "Trade_Type\nExport\n")

	m := manifest.New("run-1", time.Now())
	require.NoError(t, m.Add(path, "dot1", "cleaned", 1, 1))
	require.NoError(t, m.Save(filepath.Join(dir, "manifest.yaml")))

	require.NoError(t, Verify(path, ""))

	writeFile(t, path, "Trade_Type\nImport\n")
	require.ErrorIs(t, Verify(path, ""), manifest.ErrHashMismatch)

	other := filepath.Join(dir, "other.csv")
	writeFile(t, other, "A\n")
	require.ErrorIs(t, Verify(other, filepath.Join(dir, "manifest.yaml")), manifest.ErrNoEntry)
}

func TestVerifyAll(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "dot1_all.csv")
	b := filepath.Join(dir, "dot2_all.csv")
	writeFile(t, a, "A\n1\n")
	writeFile(t, b, "B\n2\n")

	m := manifest.New("run-1", time.Now())
	require.NoError(t, m.Add(a, "dot1", "combined", 1, 1))
	require.NoError(t, m.Add(b, "dot2", "combined", 1, 1))

	manifestPath := filepath.Join(dir, "manifest.yaml")
	require.NoError(t, m.Save(manifestPath))

	problems, checked, err := VerifyAll(manifestPath)
	require.NoError(t, err)
	assert.Equal(t, 2, checked)
	assert.Empty(t, problems)

	require.NoError(t, os.Remove(b))

	problems, _, err = VerifyAll(manifestPath)
	require.NoError(t, err)
	require.Len(t, problems, 1)
	assert.Equal(t, b, problems[0].Path)
	assert.ErrorIs(t, problems[0].Err, os.ErrNotExist)

	_, _, err = VerifyAll(filepath.Join(dir, "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
