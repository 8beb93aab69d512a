package report

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freightprep/internal/aggregator"
	"freightprep/internal/normalizer"
)

func sampleSummary() *Summary {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := &Summary{RunID: "0b7c", Started: start, Finished: start.Add(2 * time.Second)}

	dot1 := s.Family("dot1")
	dot1.Combine = &aggregator.Stats{
		Pattern: "dot1_*.csv",
		Matched: 2,
		Read:    1,
		Rows:    10,
		Skipped: []aggregator.Skipped{{Path: "data/dot1_bad.csv", Err: errors.New("file has no header row")}},
	}
	dot1.Outputs = []Output{
		{Kind: "combined", Path: "/w/dot1_all.csv", Rows: 10, Columns: 4},
		{Kind: "cleaned", Path: "/o/dot1_all_cleaned.csv", Rows: 10, Columns: 4},
	}
	dot1.Normalize = &normalizer.Result{
		Family:      "dot1",
		KnownFamily: true,
		Columns: []normalizer.ColumnResult{
			{Raw: "MEXSTATE", Target: "Mexico_State", Table: "mex_state_map", Status: normalizer.StatusMapped,
				Counts: normalizer.Counts{Hits: 8, Nulls: 2}},
			{Raw: "VALUE", Target: "Trade_Value", Status: normalizer.StatusPassThrough},
		},
	}

	dot2 := s.Family("dot2")
	dot2.Err = errors.New("combined file missing")

	return s
}

func TestSummary_Family(t *testing.T) {
	s := &Summary{}
	a := s.Family("dot1")
	b := s.Family("dot1")

	assert.Same(t, a, b)
	assert.Len(t, s.Families, 1)
}

func TestSummary_Helpers(t *testing.T) {
	s := sampleSummary()

	assert.Equal(t, []string{"dot2"}, s.FailedFamilies())
	assert.Len(t, s.Outputs(), 2)
}

func TestRender(t *testing.T) {
	out := Render(sampleSummary())

	for _, want := range []string{
		"# Freight preprocessing run",
		"- Run ID: `0b7c`",
		"- Started: 2026-03-01T12:00:00Z",
		"- Failed families: dot2",
		"## dot1",
		"Pattern `dot1_*.csv`: 2 files matched, 1 read, 1 skipped, 10 rows.",
		"| data/dot1_bad.csv | file has no header row |",
		"| combined | dot1_all.csv         | 10   | 4       |",
		"| MEXSTATE | Mexico_State | mex_state_map | mapped       | 8    | 0        | 2     |",
		"| VALUE    | Trade_Value  |               | pass-through | 0    | 0        | 0     |",
		"Cells: 8 mapped, 0 unmapped, 2 null, 0 failed columns.",
		"## dot2",
		"**Failed:** combined file missing",
	} {
		assert.Contains(t, out, want)
	}

	assert.NotContains(t, out, "No rename table")
}

func TestRender_AlignsColumns(t *testing.T) {
	s := &Summary{RunID: "x"}
	f := s.Family("dot1")
	f.Normalize = &normalizer.Result{
		KnownFamily: true,
		Columns: []normalizer.ColumnResult{
			{Raw: "MEXSTATE", Target: "Michoacán", Status: normalizer.StatusMapped},
			{Raw: "DF", Target: "Direction_Flag", Status: normalizer.StatusMapped},
		},
	}

	out := Render(s)

	var widths []int

	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "| MEXSTATE") || strings.HasPrefix(line, "| DF ") {
			widths = append(widths, len([]rune(line)))
		}
	}

	require.Len(t, widths, 2)
	assert.Equal(t, widths[0], widths[1])
}

func TestRender_UnknownFamilyAndCollisions(t *testing.T) {
	s := &Summary{RunID: "x"}
	s.Family("dot9").Normalize = &normalizer.Result{Collisions: []string{"B"}}

	out := Render(s)
	assert.Contains(t, out, "No rename table for this family")
	assert.Contains(t, out, "overwrote earlier ones: B")
}

func TestWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "run_report.md")
	require.NoError(t, Write(path, sampleSummary()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# Freight preprocessing run"))
}
