package api

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/TFMV/fabrica/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthEndpoint(t *testing.T) {
	server := NewServer(ServerOptions{})
	resp, err := server.App().Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 200, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "OK", string(body))
}

func TestVersionEndpoint(t *testing.T) {
	server := NewServer(ServerOptions{})
	resp, err := server.App().Test(httptest.NewRequest("GET", "/version", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 200, resp.StatusCode)
	var payload map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, "Fabrica API", payload["service"])
}

func TestReportEndpoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.json")
	rep := report.NewRunReport("2024-03-05", 42, "local")
	rep.Add(report.DatasetResult{Dataset: "customer", RowsGenerated: 10})
	rep.Finish()
	require.NoError(t, rep.SaveToFile(path))

	server := NewServer(ServerOptions{ReportPath: path})
	resp, err := server.App().Test(httptest.NewRequest("GET", "/report", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 200, resp.StatusCode)
	var got report.RunReport
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, rep.RunID, got.RunID)
}

func TestReportEndpointMissingFile(t *testing.T) {
	server := NewServer(ServerOptions{ReportPath: filepath.Join(t.TempDir(), "nope.json")})
	resp, err := server.App().Test(httptest.NewRequest("GET", "/report", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 404, resp.StatusCode)
}

func TestWatermarksEndpoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.json")
	rep := report.NewRunReport("2024-03-05", 42, "local")
	rep.Add(report.DatasetResult{
		Dataset:         "customer",
		RowsGenerated:   10,
		WatermarkBefore: "2024-01-01",
		WatermarkAfter:  "2024-03-05",
	})
	rep.Add(report.DatasetResult{
		Dataset:         "orders",
		RowsGenerated:   95,
		WatermarkBefore: "2024-03-04",
		WatermarkAfter:  "2024-03-05",
	})
	rep.Finish()
	require.NoError(t, rep.SaveToFile(path))

	server := NewServer(ServerOptions{ReportPath: path})
	resp, err := server.App().Test(httptest.NewRequest("GET", "/watermarks", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 200, resp.StatusCode)
	var got map[string]map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Len(t, got, 2)
	assert.Equal(t, "2024-01-01", got["customer"]["before"])
	assert.Equal(t, "2024-03-05", got["customer"]["after"])
	assert.Equal(t, "2024-03-04", got["orders"]["before"])
}

func TestWatermarksEndpointMissingReport(t *testing.T) {
	server := NewServer(ServerOptions{})
	resp, err := server.App().Test(httptest.NewRequest("GET", "/watermarks", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 404, resp.StatusCode)
}
