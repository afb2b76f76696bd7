package analytics

import (
	"context"
	"testing"

	"github.com/wardops/wardops/internal/domain/hospital"
)

func TestUtilisationMethod_FallbackChain(t *testing.T) {
	cases := []struct {
		name       string
		tools      []hospital.Tool
		wantMethod string
		wantRelia  string
	}{
		{
			name: "any in-use count wins for the fleet",
			tools: []hospital.Tool{
				{QuantityAvailable: 3},
				{QuantityInUse: 5, QuantityAvailable: 10, QuantityTotal: 15},
			},
			wantMethod: "quantity_in_use",
			wantRelia:  "high",
		},
		{
			name: "totals only",
			tools: []hospital.Tool{
				{QuantityTotal: 10, QuantityAvailable: 4},
				{QuantityAvailable: 5},
			},
			wantMethod: "total_minus_available",
			wantRelia:  "medium",
		},
		{
			name:       "no usable counters",
			tools:      []hospital.Tool{{QuantityAvailable: 5}},
			wantMethod: "default_baseline",
			wantRelia:  "low",
		},
	}
	for _, tc := range cases {
		method, reliability := utilisationMethod(tc.tools)
		if method != tc.wantMethod || reliability != tc.wantRelia {
			t.Errorf("%s: got (%s, %s), want (%s, %s)",
				tc.name, method, reliability, tc.wantMethod, tc.wantRelia)
		}
	}
}

func TestUtilisationPct(t *testing.T) {
	cases := []struct {
		name   string
		tool   hospital.Tool
		method string
		want   float64
	}{
		{"half in use", hospital.Tool{QuantityInUse: 5, QuantityAvailable: 10}, "quantity_in_use", 50.0},
		{"idle tool is 0", hospital.Tool{QuantityAvailable: 3}, "quantity_in_use", 0.0},
		{"in-use capped at 100", hospital.Tool{QuantityInUse: 20, QuantityAvailable: 10}, "quantity_in_use", 100.0},
		{"derived from total", hospital.Tool{QuantityTotal: 10, QuantityAvailable: 4}, "total_minus_available", 60.0},
		{"baseline", hospital.Tool{QuantityAvailable: 5}, "default_baseline", 50.0},
	}
	for _, tc := range cases {
		if got := utilisationPct(tc.tool, tc.method); got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestUtilisationStatus(t *testing.T) {
	cases := []struct {
		pct  float64
		want string
	}{
		{95, "critical"},
		{90, "critical"},
		{85, "high"},
		{80, "high"},
		{50, "medium"},
		{40, "medium"},
		{10, "low"},
	}
	for _, tc := range cases {
		if got := utilisationStatus(tc.pct); got != tc.want {
			t.Errorf("status(%v) = %s, want %s", tc.pct, got, tc.want)
		}
	}
}

func TestToolUtilisation_IdleToolPreferredMethod(t *testing.T) {
	// One busy tool makes quantity_in_use the fleet method; an idle tool then
	// reports 0% under it rather than dropping to a weaker method.
	src := &fixtureSource{
		tools: []hospital.Tool{
			{ID: 1, ToolName: "Ventilator", QuantityInUse: 5, QuantityAvailable: 10},
			{ID: 2, ToolName: "Defibrillator", QuantityAvailable: 3, QuantityTotal: 3},
		},
	}
	a := newTestAnalyzer(t, src)

	result, err := a.ToolUtilisation(context.Background(), 10)
	if err != nil {
		t.Fatalf("ToolUtilisation: %v", err)
	}
	if got := result["calculation_method"]; got != "quantity_in_use" {
		t.Errorf("calculation_method = %v, want quantity_in_use", got)
	}

	top := resultList(t, result, "top_tools")
	var idle map[string]any
	for _, row := range top {
		if row["tool_name"] == "Defibrillator" {
			idle = row
		}
	}
	if idle == nil {
		t.Fatal("Defibrillator missing from top_tools")
	}
	if idle["util_pct"] != 0.0 {
		t.Errorf("idle util_pct = %v, want 0.0", idle["util_pct"])
	}
	if idle["calculation_method"] != "quantity_in_use" || idle["reliability"] != "high" {
		t.Errorf("idle row method/reliability = %v/%v, want quantity_in_use/high",
			idle["calculation_method"], idle["reliability"])
	}
	if idle["status"] != "low" {
		t.Errorf("idle status = %v, want low", idle["status"])
	}
}

func TestToolUtilisation_AllBaseline(t *testing.T) {
	// Tools with neither in-use nor total counters all land on the flat
	// baseline method.
	src := &fixtureSource{
		tools: []hospital.Tool{
			{ID: 1, ToolName: "Ventilator", QuantityAvailable: 3},
			{ID: 2, ToolName: "Infusion Pump", QuantityAvailable: 8},
		},
	}
	a := newTestAnalyzer(t, src)

	result, err := a.ToolUtilisation(context.Background(), 10)
	if err != nil {
		t.Fatalf("ToolUtilisation: %v", err)
	}
	if got := result["calculation_method"]; got != "default_baseline" {
		t.Errorf("calculation_method = %v, want default_baseline", got)
	}
	top := resultList(t, result, "top_tools")
	if len(top) != 2 {
		t.Fatalf("expected 2 tools, got %d", len(top))
	}
	for _, row := range top {
		if row["util_pct"] != 50.0 {
			t.Errorf("%v util = %v, want 50.0", row["tool_name"], row["util_pct"])
		}
		if row["reliability"] != "low" {
			t.Errorf("%v reliability = %v, want low", row["tool_name"], row["reliability"])
		}
	}
}

func TestToolUtilisation_TopNOrdering(t *testing.T) {
	src := &fixtureSource{
		tools: []hospital.Tool{
			{ID: 1, ToolName: "Low", QuantityInUse: 1, QuantityAvailable: 10},
			{ID: 2, ToolName: "High", QuantityInUse: 9, QuantityAvailable: 10},
			{ID: 3, ToolName: "Mid", QuantityInUse: 5, QuantityAvailable: 10},
		},
	}
	a := newTestAnalyzer(t, src)

	result, err := a.ToolUtilisation(context.Background(), 2)
	if err != nil {
		t.Fatalf("ToolUtilisation: %v", err)
	}
	top := resultList(t, result, "top_tools")
	if len(top) != 2 {
		t.Fatalf("top_n = 2, got %d rows", len(top))
	}
	if top[0]["tool_name"] != "High" || top[1]["tool_name"] != "Mid" {
		t.Errorf("unexpected ordering: %v, %v", top[0]["tool_name"], top[1]["tool_name"])
	}

	stats := resultMap(t, result, "summary_statistics")
	if got := stats["total_tools"]; got != 3 {
		t.Errorf("total_tools = %v, want 3 (statistics cover the whole fleet)", got)
	}
}

func TestToolUtilisation_NoTools(t *testing.T) {
	a := newTestAnalyzer(t, &fixtureSource{})

	result, err := a.ToolUtilisation(context.Background(), 10)
	if err != nil {
		t.Fatalf("ToolUtilisation: %v", err)
	}
	if _, ok := result["error"]; !ok {
		t.Error("expected error key for empty tools table")
	}
}
