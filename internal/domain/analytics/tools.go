package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/wardops/wardops/internal/domain/hospital"
)

// utilisationMethod picks the calculation method for the whole fleet with a
// three-tier fallback: any recorded in-use counts make quantity_in_use
// authoritative for every row, else derive from totals, else assume a flat
// 50% baseline. Returns the method and its reliability.
func utilisationMethod(tools []hospital.Tool) (string, string) {
	for _, t := range tools {
		if t.QuantityInUse > 0 {
			return "quantity_in_use", "high"
		}
	}
	for _, t := range tools {
		if t.QuantityTotal > 0 {
			return "total_minus_available", "medium"
		}
	}
	return "default_baseline", "low"
}

// utilisationPct computes one tool's utilisation under the fleet method,
// clipped to [0, 100]. An idle tool reports 0% under the preferred method
// instead of falling through to a weaker one.
func utilisationPct(t hospital.Tool, method string) float64 {
	switch method {
	case "quantity_in_use":
		if t.QuantityAvailable <= 0 {
			if t.QuantityInUse > 0 {
				return 100.0
			}
			return 0.0
		}
		pct := float64(t.QuantityInUse) / float64(t.QuantityAvailable)
		if pct > 1 {
			pct = 1
		}
		return round1(pct * 100)
	case "total_minus_available":
		if t.QuantityTotal <= 0 {
			return 0.0
		}
		pct := float64(t.QuantityTotal-t.QuantityAvailable) / float64(t.QuantityTotal)
		if pct < 0 {
			pct = 0
		}
		if pct > 1 {
			pct = 1
		}
		return round1(pct * 100)
	default:
		return 50.0
	}
}

func utilisationStatus(pct float64) string {
	switch {
	case pct >= 90:
		return "critical"
	case pct >= 80:
		return "high"
	case pct >= 40:
		return "medium"
	default:
		return "low"
	}
}

// ToolUtilisation ranks tool utilisation and buckets the fleet into status
// bands. The calculation method is decided once for the whole fleet; each
// row carries it alongside its reliability.
func (a *Analyzer) ToolUtilisation(ctx context.Context, topN int) (Result, error) {
	tools, err := a.src.Tools(ctx)
	if err != nil {
		return nil, fmt.Errorf("load tools: %w", err)
	}

	now := a.now()
	if len(tools) == 0 {
		result := Result{
			"top_tools":          []map[string]any{},
			"summary_statistics": map[string]any{"total_tools": 0},
			"error":              "no tool data available",
			"analysis_timestamp": now.Format(time.RFC3339),
		}
		a.persist("tool_utilisation", result, nil)
		return result, nil
	}

	method, reliability := utilisationMethod(tools)

	type scored struct {
		row map[string]any
		pct float64
	}
	rows := make([]scored, 0, len(tools))
	var pcts []float64
	for _, t := range tools {
		pct := utilisationPct(t, method)
		pcts = append(pcts, pct)
		rows = append(rows, scored{
			pct: pct,
			row: map[string]any{
				"tool_name":          t.ToolName,
				"util_pct":           pct,
				"quantity_available": t.QuantityAvailable,
				"quantity_in_use":    t.QuantityInUse,
				"quantity_total":     t.QuantityTotal,
				"status":             utilisationStatus(pct),
				"calculation_method": method,
				"reliability":        reliability,
			},
		})
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].pct > rows[j].pct })
	if topN > len(rows) {
		topN = len(rows)
	}
	top := make([]map[string]any, topN)
	for i := 0; i < topN; i++ {
		top[i] = rows[i].row
	}

	high, med, low := 0, 0, 0
	for _, p := range pcts {
		switch {
		case p > 80:
			high++
		case p >= 40:
			med++
		default:
			low++
		}
	}
	lo, hi := minMax(pcts)

	distribution := []map[string]any{}
	for _, band := range []struct {
		name     string
		min, max float64
	}{
		{"Critical (90-100%)", 90, 100},
		{"High (80-90%)", 80, 90},
		{"Medium (40-80%)", 40, 80},
		{"Low (0-40%)", 0, 40},
	} {
		count := 0
		for _, p := range pcts {
			if p >= band.min && p <= band.max {
				count++
			}
		}
		distribution = append(distribution, map[string]any{
			"range":      band.name,
			"count":      count,
			"percentage": round1(float64(count) / float64(len(pcts)) * 100),
		})
	}

	result := Result{
		"top_tools": top,
		"summary_statistics": map[string]any{
			"total_tools":        len(tools),
			"avg_utilisation":    round1(mean(pcts)),
			"median_utilisation": round1(median(pcts)),
			"max_utilisation":    round1(hi),
			"min_utilisation":    round1(lo),
			"high_util_tools":    high,
			"medium_util_tools":  med,
			"low_util_tools":     low,
		},
		"utilisation_distribution": distribution,
		"calculation_method":       method,
		"analysis_timestamp":       now.Format(time.RFC3339),
	}

	a.persist("tool_utilisation", result, map[string]any{
		"analysis_type":      "tool_utilisation",
		"calculation_method": method,
		"reliability":        reliability,
		"top_n_analyzed":     topN,
		"status_thresholds": map[string]any{
			"critical": ">= 90%", "high": ">= 80%", "medium": ">= 40%", "low": "otherwise",
		},
	})
	return result, nil
}
