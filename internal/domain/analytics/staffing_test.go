package analytics

import (
	"context"
	"testing"

	"github.com/wardops/wardops/internal/domain/hospital"
)

func TestRequiredStaff(t *testing.T) {
	cases := []struct {
		patients float64
		ratio    float64
		want     int
	}{
		{10, 2, 5},
		{9, 2, 4},
		{1, 5, 1},
		{0, 3, 1},
	}
	for _, tc := range cases {
		if got := requiredStaff(tc.patients, tc.ratio); got != tc.want {
			t.Errorf("requiredStaff(%v, %v) = %d, want %d", tc.patients, tc.ratio, got, tc.want)
		}
	}
}

func staffingFixture() *fixtureSource {
	src := &fixtureSource{
		rooms: []hospital.Room{
			{ID: 1, RoomType: "ICU", BedCapacity: 6},
		},
		staff: []hospital.Staff{
			{ID: 1, FullName: "Dr. Smith", StaffType: "doctors"},
			{ID: 2, FullName: "Nurse Amy", StaffType: "nurses"},
			{ID: 3, FullName: "Nurse Bob", StaffType: "nurses"},
			{ID: 4, FullName: "Pat Jones", StaffType: "support"},
		},
	}
	for i := 1; i <= 4; i++ {
		src.occupancy = append(src.occupancy, hospital.Occupancy{
			ID: int64(i), RoomID: 1, AssignedAt: daysAgo(i),
		})
	}
	return src
}

func TestStaffingForecast_Shape(t *testing.T) {
	a := newTestAnalyzer(t, staffingFixture())

	result, err := a.StaffingForecast(context.Background(), 3)
	if err != nil {
		t.Fatalf("StaffingForecast: %v", err)
	}

	forecast := resultList(t, result, "forecast")
	if len(forecast) != 3 {
		t.Fatalf("forecast length = %d, want 3", len(forecast))
	}
	for i, day := range forecast {
		mult, _ := day["occupancy_multiplier"].(float64)
		if mult < 0.7 || mult > 1.3 {
			t.Errorf("day %d: multiplier %v outside [0.7, 1.3]", i, mult)
		}
		reqs, ok := day["total_requirements"].(map[string]any)
		if !ok {
			t.Fatalf("day %d: total_requirements is %T", i, day["total_requirements"])
		}
		for _, key := range []string{"nurses_day", "nurses_night", "doctors", "support"} {
			n, _ := reqs[key].(int)
			if n < 1 {
				t.Errorf("day %d: %s = %d, want at least 1", i, key, n)
			}
		}
	}

	summary := resultMap(t, result, "summary")
	if got := summary["current_total_occupancy"]; got != 4 {
		t.Errorf("current_total_occupancy = %v, want 4", got)
	}

	recs, ok := summary["recommendations"].([]map[string]any)
	if !ok {
		t.Fatalf("recommendations is %T", summary["recommendations"])
	}
	seen := map[string]bool{}
	for _, rec := range recs {
		st, _ := rec["staff_type"].(string)
		seen[st] = true
		status, _ := rec["status"].(string)
		switch status {
		case "shortage", "surplus", "adequate":
		default:
			t.Errorf("unexpected status %q", status)
		}
	}
	for _, st := range []string{"nurses", "doctors", "support"} {
		if !seen[st] {
			t.Errorf("missing recommendation for %s", st)
		}
	}
}

func TestStaffingForecast_InsufficientData(t *testing.T) {
	a := newTestAnalyzer(t, &fixtureSource{})

	result, err := a.StaffingForecast(context.Background(), 3)
	if err != nil {
		t.Fatalf("StaffingForecast: %v", err)
	}
	if _, ok := result["error"]; !ok {
		t.Error("expected error key for missing inputs")
	}
}
