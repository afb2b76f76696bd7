package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"
)

// frame is a small tabular shape: ordered columns plus row maps.
type frame struct {
	columns []string
	rows    []map[string]any
}

// extractor attempts to pull a tabular frame out of a normalized result.
// Returning false passes control to the next extractor in the cascade.
type extractor func(analysisID string, data map[string]any) (*frame, bool)

// The cascade runs in order; later stages are progressively more permissive
// and the final summary stage is total, so extraction never fails.
var extractors = []extractor{
	extractKnownListKeys,
	extractNestedData,
	extractPerAnalysis,
	extractFlatScalars,
}

// Keys checked for top-level list data, in priority order.
var knownListKeys = []string{
	"ward_data", "wards", "top_tools", "tools_data", "expiring_items",
	"top_staff", "staff_data", "items", "forecast", "ward_statistics",
	"daily_breakdown", "overall_split", "daily_forecast",
	"current_staff_breakdown",
}

// extractFrame normalizes the result via a JSON round-trip and runs the
// cascade. A summary frame is the guaranteed fallback.
func (s *Store) extractFrame(analysisID string, data any) *frame {
	m := normalize(data)

	if m != nil {
		for _, ex := range extractors {
			if f, ok := runExtractor(ex, analysisID, m); ok {
				s.appendMetadata(analysisID, f)
				return f
			}
		}
	} else if list := normalizeList(data); len(list) > 0 {
		if f, ok := frameFromList(list); ok {
			s.appendMetadata(analysisID, f)
			return f
		}
	}

	s.log.Warn().Str("analysis_id", analysisID).Msg("no tabular data found, writing summary frame")
	return s.summaryFrame(analysisID, m)
}

// runExtractor shields the cascade from a panicking stage.
func runExtractor(ex extractor, analysisID string, m map[string]any) (f *frame, ok bool) {
	defer func() {
		if recover() != nil {
			f, ok = nil, false
		}
	}()
	return ex(analysisID, m)
}

func normalize(data any) map[string]any {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}

func normalizeList(data any) []any {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil
	}
	var list []any
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil
	}
	return list
}

func extractKnownListKeys(_ string, data map[string]any) (*frame, bool) {
	for _, key := range knownListKeys {
		if list, ok := data[key].([]any); ok && len(list) > 0 {
			if f, ok := frameFromList(list); ok {
				return f, true
			}
		}
	}
	return nil, false
}

func extractNestedData(_ string, data map[string]any) (*frame, bool) {
	switch nested := data["data"].(type) {
	case map[string]any:
		for _, key := range knownListKeys {
			if list, ok := nested[key].([]any); ok && len(list) > 0 {
				if f, ok := frameFromList(list); ok {
					return f, true
				}
			}
		}
	case []any:
		if len(nested) > 0 {
			return frameFromList(nested)
		}
	}
	return nil, false
}

// extractPerAnalysis applies per-analysis rules for results whose main table
// lives under an analysis-specific key.
func extractPerAnalysis(analysisID string, data map[string]any) (*frame, bool) {
	listOrMetrics := func(listKey, metricKey string) (*frame, bool) {
		if list, ok := data[listKey].([]any); ok && len(list) > 0 {
			return frameFromList(list)
		}
		if m, ok := data[metricKey].(map[string]any); ok {
			return metricFrame(m), true
		}
		return nil, false
	}

	switch analysisID {
	case "bed_snapshot":
		return listOrMetrics("wards", "summary")
	case "census_forecast":
		return listOrMetrics("forecast", "model_info")
	case "admission_split":
		if f, ok := listOrMetrics("daily_breakdown", ""); ok {
			return f, true
		}
		if f, ok := listOrMetrics("overall_split", "analysis_period"); ok {
			return f, true
		}
	case "los_prediction":
		return listOrMetrics("ward_statistics", "overall_statistics")
	case "staffing":
		return listOrMetrics("daily_forecast", "current_staff")
	case "staff_load":
		return listOrMetrics("top_staff", "summary_statistics")
	}
	return nil, false
}

func extractFlatScalars(_ string, data map[string]any) (*frame, bool) {
	if len(data) == 0 {
		return nil, false
	}
	for _, v := range data {
		switch v.(type) {
		case map[string]any, []any:
			return nil, false
		}
	}
	cols := sortedKeys(data)
	return &frame{columns: cols, rows: []map[string]any{data}}, true
}

// summaryFrame recursively flattens the result into metric/value/type rows.
// Lists of objects are counted rather than expanded.
func (s *Store) summaryFrame(analysisID string, data map[string]any) *frame {
	rows := flattenRows(data, "")
	rows = append(rows,
		map[string]any{"metric": "analysis_id", "value": analysisID, "type": "str"},
		map[string]any{"metric": "generated_at", "value": s.now().Format(time.RFC3339), "type": "timestamp"},
	)
	return &frame{columns: []string{"metric", "value", "type"}, rows: rows}
}

func flattenRows(obj map[string]any, prefix string) []map[string]any {
	var rows []map[string]any
	for _, k := range sortedKeys(obj) {
		v := obj[k]
		switch vv := v.(type) {
		case map[string]any:
			rows = append(rows, flattenRows(vv, prefix+k+"_")...)
		case []any:
			rows = append(rows, map[string]any{
				"metric": prefix + k + "_count",
				"value":  len(vv),
				"type":   "count",
			})
		default:
			rows = append(rows, map[string]any{
				"metric": prefix + k,
				"value":  v,
				"type":   fmt.Sprintf("%T", v),
			})
		}
	}
	return rows
}

func metricFrame(m map[string]any) *frame {
	rows := make([]map[string]any, 0, len(m))
	for _, k := range sortedKeys(m) {
		rows = append(rows, map[string]any{"metric": k, "value": m[k]})
	}
	return &frame{columns: []string{"metric", "value"}, rows: rows}
}

// frameFromList builds a frame from a list of homogeneous row objects. Column
// order follows the first row's sorted keys; stragglers from later rows are
// appended.
func frameFromList(list []any) (*frame, bool) {
	var rows []map[string]any
	var columns []string
	seen := map[string]bool{}
	for _, item := range list {
		row, ok := item.(map[string]any)
		if !ok {
			return nil, false
		}
		for _, k := range sortedKeys(row) {
			if !seen[k] {
				seen[k] = true
				columns = append(columns, k)
			}
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, false
	}
	return &frame{columns: columns, rows: rows}, true
}

func (s *Store) appendMetadata(analysisID string, f *frame) {
	f.columns = append(f.columns, "analysis_id", "generated_at")
	gen := s.now().Format(time.RFC3339)
	for _, row := range f.rows {
		row["analysis_id"] = analysisID
		row["generated_at"] = gen
	}
}

func writeCSV(path string, f *frame) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(f.columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range f.rows {
		record := make([]string, len(f.columns))
		for i, col := range f.columns {
			record[i] = cellString(row[col])
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

func cellString(v any) string {
	switch vv := v.(type) {
	case nil:
		return ""
	case string:
		return vv
	case float64:
		return strconv.FormatFloat(vv, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(vv)
	case int:
		return strconv.Itoa(vv)
	default:
		raw, err := json.Marshal(vv)
		if err != nil {
			return fmt.Sprintf("%v", vv)
		}
		return string(raw)
	}
}

func readCSV(path string) ([]map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	all, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(all) == 0 {
		return nil, nil
	}
	header := all[0]
	records := make([]map[string]string, 0, len(all)-1)
	for _, rec := range all[1:] {
		row := map[string]string{}
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		records = append(records, row)
	}
	return records, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
