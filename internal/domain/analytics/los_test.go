package analytics

import (
	"context"
	"errors"
	"testing"

	"github.com/wardops/wardops/internal/domain/hospital"
)

// faultySource serves the occupancy table once and then fails, like a live
// connection dropping between queries.
type faultySource struct {
	*fixtureSource
	occupancyCalls int
}

func (f *faultySource) Occupancy(ctx context.Context, daysBack int) ([]hospital.Occupancy, error) {
	f.occupancyCalls++
	if f.occupancyCalls > 1 {
		return nil, errors.New("connection reset by peer")
	}
	return f.fixtureSource.occupancy, nil
}

func losFixture() *fixtureSource {
	return &fixtureSource{
		rooms: []hospital.Room{
			{ID: 1, RoomType: "ICU", BedCapacity: 2},
			{ID: 2, RoomType: "General Ward", BedCapacity: 4},
		},
		occupancy: []hospital.Occupancy{
			// ICU: 2 and 4 day stays.
			{ID: 1, RoomID: 1, AssignedAt: daysAgo(10), DischargedAt: timePtr(daysAgo(8))},
			{ID: 2, RoomID: 1, AssignedAt: daysAgo(9), DischargedAt: timePtr(daysAgo(5))},
			// General Ward: 6 day stay.
			{ID: 3, RoomID: 2, AssignedAt: daysAgo(12), DischargedAt: timePtr(daysAgo(6))},
			// Open stay, excluded.
			{ID: 4, RoomID: 1, AssignedAt: daysAgo(3)},
			// Out-of-range stay, excluded.
			{ID: 5, RoomID: 2, AssignedAt: daysAgo(500), DischargedAt: timePtr(daysAgo(50))},
		},
	}
}

func TestAverageLOS_WardStatistics(t *testing.T) {
	a := newTestAnalyzer(t, losFixture())

	result, err := a.AverageLOS(context.Background())
	if err != nil {
		t.Fatalf("AverageLOS: %v", err)
	}

	wards := resultList(t, result, "ward_statistics")
	if len(wards) != 2 {
		t.Fatalf("expected 2 wards, got %d", len(wards))
	}
	icu := wards[0]
	if icu["ward_type"] != "ICU" {
		t.Fatalf("expected ICU first, got %v", icu["ward_type"])
	}
	if got := icu["avg_los_days"]; got != 3.0 {
		t.Errorf("ICU avg LOS = %v, want 3.0", got)
	}
	if got := icu["median_los_days"]; got != 3.0 {
		t.Errorf("ICU median LOS = %v, want 3.0", got)
	}
	if got := icu["total_discharges"]; got != 2 {
		t.Errorf("ICU discharges = %v, want 2", got)
	}

	overall := resultMap(t, result, "overall_statistics")
	if got := overall["total_completed_stays"]; got != 3 {
		t.Errorf("total_completed_stays = %v, want 3 (open and out-of-range excluded)", got)
	}
	if got := overall["overall_avg_los"]; got != 4.0 {
		t.Errorf("overall avg LOS = %v, want 4.0", got)
	}
}

func TestAverageLOS_Deterministic(t *testing.T) {
	a := newTestAnalyzer(t, losFixture())
	ctx := context.Background()

	first, err := a.AverageLOS(ctx)
	if err != nil {
		t.Fatalf("AverageLOS: %v", err)
	}
	second, err := a.AverageLOS(ctx)
	if err != nil {
		t.Fatalf("AverageLOS: %v", err)
	}

	fo := resultMap(t, first, "overall_statistics")
	so := resultMap(t, second, "overall_statistics")
	if fo["overall_avg_los"] != so["overall_avg_los"] {
		t.Errorf("repeated runs disagree: %v vs %v", fo["overall_avg_los"], so["overall_avg_los"])
	}
}

func TestAverageLOS_SingleOccupancyFetch(t *testing.T) {
	src := &faultySource{fixtureSource: losFixture()}
	a := newTestAnalyzer(t, src)

	result, err := a.AverageLOS(context.Background())
	if err != nil {
		t.Fatalf("AverageLOS: %v", err)
	}
	if src.occupancyCalls != 1 {
		t.Errorf("occupancy fetched %d times, want 1", src.occupancyCalls)
	}

	overall := resultMap(t, result, "overall_statistics")
	if got := overall["total_completed_stays"]; got != 3 {
		t.Errorf("total_completed_stays = %v, want 3", got)
	}
	// Earliest admission daysAgo(12) to latest discharge daysAgo(5).
	if got := overall["analysis_period_days"]; got != 7 {
		t.Errorf("analysis_period_days = %v, want 7", got)
	}
}

func TestAverageLOS_NoCompletedStays(t *testing.T) {
	src := &fixtureSource{
		rooms: []hospital.Room{{ID: 1, RoomType: "ICU", BedCapacity: 2}},
		occupancy: []hospital.Occupancy{
			{ID: 1, RoomID: 1, AssignedAt: daysAgo(2)},
		},
	}
	a := newTestAnalyzer(t, src)

	result, err := a.AverageLOS(context.Background())
	if err != nil {
		t.Fatalf("AverageLOS: %v", err)
	}
	if _, ok := result["error"]; !ok {
		t.Error("expected error key when no stays are completed")
	}
}
