// Package report collects per-dataset results of a generation run and renders
// them as JSON or a text summary.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
)

// DatasetResult records the outcome of one dataset within a run.
type DatasetResult struct {
	Dataset         string `json:"dataset"`
	RowsGenerated   int    `json:"rows_generated"`
	WatermarkBefore string `json:"watermark_before"`
	WatermarkAfter  string `json:"watermark_after"`
	Skipped         bool   `json:"skipped,omitempty"`
	Error           string `json:"error,omitempty"`
}

// RunReport aggregates the results of one generation run.
type RunReport struct {
	RunID     string          `json:"run_id"`
	Today     string          `json:"today"`
	Seed      int64           `json:"seed"`
	Backend   string          `json:"backend"`
	StartTime time.Time       `json:"start_time"`
	EndTime   time.Time       `json:"end_time"`
	Datasets  []DatasetResult `json:"datasets"`
}

// NewRunReport starts a report for a run dated today.
func NewRunReport(today string, seed int64, backend string) *RunReport {
	return &RunReport{
		RunID:     uuid.NewString(),
		Today:     today,
		Seed:      seed,
		Backend:   backend,
		StartTime: time.Now().UTC(),
	}
}

// Add appends a dataset result.
func (r *RunReport) Add(result DatasetResult) {
	r.Datasets = append(r.Datasets, result)
}

// Finish stamps the end time.
func (r *RunReport) Finish() {
	r.EndTime = time.Now().UTC()
}

// TotalRows returns the number of rows generated across all datasets.
func (r *RunReport) TotalRows() int {
	total := 0
	for _, d := range r.Datasets {
		total += d.RowsGenerated
	}
	return total
}

// Failed reports whether any dataset surfaced an error.
func (r *RunReport) Failed() bool {
	for _, d := range r.Datasets {
		if d.Error != "" {
			return true
		}
	}
	return false
}

// JSON renders the report as indented JSON.
func (r *RunReport) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// SaveToFile writes the JSON report to the given path.
func (r *RunReport) SaveToFile(path string) error {
	data, err := r.JSON()
	if err != nil {
		return fmt.Errorf("failed to marshal run report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to save run report: %w", err)
	}
	return nil
}

// FromFile loads a previously saved report.
func FromFile(path string) (*RunReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read run report: %w", err)
	}
	var r RunReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse run report: %w", err)
	}
	return &r, nil
}

// WriteSummary prints a human-readable summary of the run.
func (r *RunReport) WriteSummary(w io.Writer) {
	fmt.Fprintf(w, "\nRun %s (%s backend, today=%s)\n", r.RunID, r.Backend, r.Today)
	for _, d := range r.Datasets {
		switch {
		case d.Error != "":
			fmt.Fprintf(w, "  %-18s FAILED: %s\n", d.Dataset, d.Error)
		case d.Skipped:
			fmt.Fprintf(w, "  %-18s skipped (missing dependency)\n", d.Dataset)
		default:
			fmt.Fprintf(w, "  %-18s %d rows (%s -> %s)\n",
				d.Dataset, d.RowsGenerated, d.WatermarkBefore, d.WatermarkAfter)
		}
	}
	fmt.Fprintf(w, "  total: %d rows in %s\n",
		r.TotalRows(), r.EndTime.Sub(r.StartTime).Round(time.Millisecond))
}
