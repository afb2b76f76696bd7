package analytics

import (
	"context"
	"testing"

	"github.com/wardops/wardops/internal/domain/hospital"
)

func TestCensusForecast_HoltWinters(t *testing.T) {
	src := &fixtureSource{
		rooms: []hospital.Room{{ID: 1, RoomType: "ICU", BedCapacity: 10}},
	}
	// Two weeks of overlapping stays gives the smoother a usable series.
	for d := 20; d >= 1; d-- {
		src.occupancy = append(src.occupancy, hospital.Occupancy{
			ID:           int64(d),
			RoomID:       1,
			AssignedAt:   daysAgo(d),
			DischargedAt: timePtr(daysAgo(d - 3)),
		})
	}
	a := newTestAnalyzer(t, src)

	result, err := a.CensusForecast(context.Background(), 3)
	if err != nil {
		t.Fatalf("CensusForecast: %v", err)
	}

	if got := result["model"]; got != "holt_winters" {
		t.Errorf("model = %v, want holt_winters", got)
	}
	forecast := resultList(t, result, "forecast")
	if len(forecast) != 3 {
		t.Fatalf("forecast length = %d, want 3", len(forecast))
	}
	for i, row := range forecast {
		lower, _ := row["confidence_lower"].(float64)
		upper, _ := row["confidence_upper"].(float64)
		if lower < 0 {
			t.Errorf("day %d: confidence_lower %v below zero", i, lower)
		}
		if lower > upper {
			t.Errorf("day %d: confidence band inverted: %v > %v", i, lower, upper)
		}
		if _, ok := row["predicted"].(float64); !ok {
			t.Errorf("day %d: predicted is %T, want float64", i, row["predicted"])
		}
	}
}

func TestCensusForecast_ShortSeriesPadded(t *testing.T) {
	// A single open stay admitted today yields one census point; the series
	// is padded backward with zeros so a forecast is still produced.
	src := &fixtureSource{
		rooms: []hospital.Room{{ID: 1, RoomType: "ICU", BedCapacity: 4}},
		occupancy: []hospital.Occupancy{
			{ID: 1, RoomID: 1, AssignedAt: testNow},
		},
	}
	a := newTestAnalyzer(t, src)

	result, err := a.CensusForecast(context.Background(), 3)
	if err != nil {
		t.Fatalf("CensusForecast: %v", err)
	}

	model, _ := result["model"].(string)
	if model != "holt_winters" && model != "fallback_average" {
		t.Errorf("model = %q, want a named forecasting method", model)
	}
	history := resultList(t, result, "data")
	if len(history) != 3 {
		t.Fatalf("history length = %d, want 3 after padding", len(history))
	}
	if history[0]["actual"] != 0 || history[1]["actual"] != 0 {
		t.Errorf("padded days should be zero, got %v, %v",
			history[0]["actual"], history[1]["actual"])
	}
	if history[2]["actual"] != 1 {
		t.Errorf("today's census = %v, want 1", history[2]["actual"])
	}
	forecast := resultList(t, result, "forecast")
	if len(forecast) != 3 {
		t.Errorf("forecast length = %d, want 3", len(forecast))
	}
}

func TestCensusForecast_NoData(t *testing.T) {
	a := newTestAnalyzer(t, &fixtureSource{})

	result, err := a.CensusForecast(context.Background(), 3)
	if err != nil {
		t.Fatalf("CensusForecast: %v", err)
	}
	if got := result["model"]; got != "none" {
		t.Errorf("model = %v, want none", got)
	}
	if _, ok := result["error"]; !ok {
		t.Error("expected error key for empty occupancy")
	}
}
