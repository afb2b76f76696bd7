package storage

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := New(filepath.Join(dir, "result"), filepath.Join(dir, "models"), zerolog.Nop())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return s.WithClock(func() time.Time { return fixed })
}

func readCSVFile(t *testing.T, path string) ([]string, [][]string) {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()
	all, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(all) == 0 {
		t.Fatal("empty csv")
	}
	return all[0], all[1:]
}

func columnIndex(t *testing.T, header []string, name string) int {
	t.Helper()
	for i, h := range header {
		if h == name {
			return i
		}
	}
	t.Fatalf("column %q missing from header %v", name, header)
	return -1
}

func TestSaveResultJSONEnvelope(t *testing.T) {
	s := newTestStore(t)
	path, err := s.SaveResult("bed_snapshot", map[string]any{"total_beds": 42}, FormatJSON)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := s.LoadResult("bed_snapshot")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded["analysis_id"] != "bed_snapshot" {
		t.Errorf("analysis_id = %v", loaded["analysis_id"])
	}
	if _, ok := loaded["generated_at"].(string); !ok {
		t.Error("generated_at missing from envelope")
	}
	data, ok := loaded["data"].(map[string]any)
	if !ok || data["total_beds"] != float64(42) {
		t.Errorf("data = %v", loaded["data"])
	}
	if filepath.Base(path) != "bed_snapshot_result.json" {
		t.Errorf("unexpected filename %s", path)
	}
}

func TestSaveResultCSVKnownListKey(t *testing.T) {
	s := newTestStore(t)
	result := map[string]any{
		"wards": []map[string]any{
			{"ward": "ICU", "occupied": 1, "total": 2},
			{"ward": "Emergency", "occupied": 4, "total": 11},
		},
		"summary": map[string]any{"total_beds": 13},
	}
	path, err := s.SaveResult("bed_snapshot", result, FormatCSV)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	header, rows := readCSVFile(t, path)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	wardIdx := columnIndex(t, header, "ward")
	if rows[0][wardIdx] != "ICU" {
		t.Errorf("first ward = %s", rows[0][wardIdx])
	}
	// Metadata columns must always be present.
	idIdx := columnIndex(t, header, "analysis_id")
	genIdx := columnIndex(t, header, "generated_at")
	for _, row := range rows {
		if row[idIdx] != "bed_snapshot" || row[genIdx] == "" {
			t.Errorf("metadata missing from row %v", row)
		}
	}
}

func TestSaveResultCSVNestedData(t *testing.T) {
	s := newTestStore(t)
	result := map[string]any{
		"data": map[string]any{
			"forecast": []map[string]any{
				{"date": "2025-06-02", "predicted": 40.0},
			},
		},
	}
	path, err := s.SaveResult("census_forecast", result, FormatCSV)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	header, rows := readCSVFile(t, path)
	columnIndex(t, header, "predicted")
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
}

func TestSaveResultCSVFlatScalars(t *testing.T) {
	s := newTestStore(t)
	path, err := s.SaveResult("custom", map[string]any{"a": 1, "b": "x"}, FormatCSV)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	header, rows := readCSVFile(t, path)
	columnIndex(t, header, "a")
	columnIndex(t, header, "b")
	if len(rows) != 1 {
		t.Fatalf("expected single row, got %d", len(rows))
	}
}

func TestSaveResultCSVSummaryFallback(t *testing.T) {
	s := newTestStore(t)
	// Deeply nested map with no recognised table anywhere.
	result := map[string]any{
		"diagnostics": map[string]any{
			"inner": map[string]any{"score": 0.93},
			"runs":  []map[string]any{{"n": 1}, {"n": 2}},
		},
	}
	path, err := s.SaveResult("strange", result, FormatCSV)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	header, rows := readCSVFile(t, path)
	metricIdx := columnIndex(t, header, "metric")
	valueIdx := columnIndex(t, header, "value")

	got := map[string]string{}
	for _, row := range rows {
		got[row[metricIdx]] = row[valueIdx]
	}
	if got["diagnostics_inner_score"] != "0.93" {
		t.Errorf("flattened score = %q", got["diagnostics_inner_score"])
	}
	if got["diagnostics_runs_count"] != "2" {
		t.Errorf("list count = %q", got["diagnostics_runs_count"])
	}
	// Cascade guarantee: analysis_id and generated_at rows always land.
	if got["analysis_id"] != "strange" {
		t.Errorf("analysis_id row = %q", got["analysis_id"])
	}
	if got["generated_at"] == "" {
		t.Error("generated_at row missing")
	}
}

func TestLoadResultCSVFallback(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.SaveResult("tool_utilisation", map[string]any{
		"top_tools": []map[string]any{{"tool": "Ventilator", "utilisation": 70.0}},
	}, FormatCSV); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := s.LoadResult("tool_utilisation")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded == nil {
		t.Fatal("expected CSV-backed result")
	}
	if loaded["timestamp"] != "unknown" {
		t.Errorf("timestamp = %v", loaded["timestamp"])
	}
	records, ok := loaded["data"].([]map[string]string)
	if !ok || len(records) != 1 || records[0]["tool"] != "Ventilator" {
		t.Errorf("records = %v", loaded["data"])
	}
}

func TestLoadResultMissing(t *testing.T) {
	s := newTestStore(t)
	loaded, err := s.LoadResult("never_ran")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded != nil {
		t.Errorf("expected nil for missing result, got %v", loaded)
	}
}

func TestModelDataRoundTrip(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.SaveModelData("staffing", map[string]any{"weekend_factor": 0.85}); err != nil {
		t.Fatalf("save model: %v", err)
	}
	loaded, err := s.LoadModelData("staffing")
	if err != nil {
		t.Fatalf("load model: %v", err)
	}
	md, ok := loaded["model_data"].(map[string]any)
	if !ok || md["weekend_factor"] != 0.85 {
		t.Errorf("model_data = %v", loaded["model_data"])
	}

	models, err := s.ListModels()
	if err != nil {
		t.Fatalf("list models: %v", err)
	}
	if _, ok := models["staffing"]; !ok {
		t.Errorf("staffing missing from listing: %v", models)
	}
}

func TestListResults(t *testing.T) {
	s := newTestStore(t)
	s.SaveResult("a", map[string]any{"x": 1}, FormatJSON)
	s.SaveResult("b", map[string]any{"x": 1}, FormatCSV)

	results, err := s.ListResults()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if results["a"].Format != FormatJSON || results["b"].Format != FormatCSV {
		t.Errorf("listing = %v", results)
	}
}
