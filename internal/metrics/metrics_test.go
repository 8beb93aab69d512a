package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_WriteTextfile(t *testing.T) {
	r := New()
	r.FilesMatched("dot1", 3)
	r.FileSkipped("dot1")
	r.Rows("dot1", "combined", 42)
	r.Cells("dot1", "DISAGMOT", 40, 1, 1)
	r.ColumnFailed("dot2")
	r.FamilyError("dot3", "normalize")

	start := time.Unix(1700000000, 0)
	r.RunFinished(start, start.Add(1500*time.Millisecond))

	path := filepath.Join(t.TempDir(), "textfile", "freightprep.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	out := string(data)
	for _, want := range []string{
		`freightprep_files_matched_total{family="dot1"} 3`,
		`freightprep_files_skipped_total{family="dot1"} 1`,
		`freightprep_output_rows{family="dot1",kind="combined"} 42`,
		`freightprep_cells_mapped_total{column="DISAGMOT",family="dot1",outcome="hit"} 40`,
		`freightprep_cells_mapped_total{column="DISAGMOT",family="dot1",outcome="unmapped"} 1`,
		`freightprep_columns_failed_total{family="dot2"} 1`,
		`freightprep_family_errors_total{family="dot3",stage="normalize"} 1`,
		`freightprep_last_run_timestamp_seconds 1.700000001e+09`,
		`freightprep_last_run_duration_seconds 1.5`,
	} {
		assert.Contains(t, out, want)
	}
}

func TestRecorder_Nil(t *testing.T) {
	var r *Recorder

	r.FilesMatched("dot1", 1)
	r.Cells("dot1", "DF", 1, 1, 1)
	r.RunFinished(time.Now(), time.Now())

	assert.Nil(t, r.Registry())
	assert.NoError(t, r.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")))
}
