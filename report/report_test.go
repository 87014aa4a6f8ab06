package report

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() *RunReport {
	rep := NewRunReport("2024-03-05", 42, "local")
	rep.Add(DatasetResult{
		Dataset:         "customer",
		RowsGenerated:   120,
		WatermarkBefore: "2024-01-01",
		WatermarkAfter:  "2024-03-05",
	})
	rep.Add(DatasetResult{
		Dataset: "order_lines",
		Skipped: true,
	})
	rep.Add(DatasetResult{
		Dataset: "returns",
		Error:   "write failed",
	})
	rep.Finish()
	return rep
}

func TestRunReportAggregates(t *testing.T) {
	rep := sampleReport()
	assert.NotEmpty(t, rep.RunID)
	assert.Equal(t, 120, rep.TotalRows())
	assert.True(t, rep.Failed())
}

func TestRunReportFileRoundtrip(t *testing.T) {
	rep := sampleReport()
	path := filepath.Join(t.TempDir(), "run.json")
	require.NoError(t, rep.SaveToFile(path))

	got, err := FromFile(path)
	require.NoError(t, err)
	assert.Equal(t, rep.RunID, got.RunID)
	assert.Len(t, got.Datasets, 3)
	assert.Equal(t, 120, got.Datasets[0].RowsGenerated)
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	sampleReport().WriteSummary(&buf)

	out := buf.String()
	assert.Contains(t, out, "customer")
	assert.Contains(t, out, "120 rows")
	assert.Contains(t, out, "skipped")
	assert.Contains(t, out, "FAILED: write failed")
	assert.Contains(t, out, "total: 120 rows")
}
