package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/wardops/wardops/internal/domain/hospital"
)

// Admissions during business hours are treated as elective; everything else
// is emergency intake. Policy knobs with no clinical derivation, kept as
// named constants.
const (
	ElectiveHourStart = 8
	ElectiveHourEnd   = 17
)

// ClassifyAdmission labels a stay Elective when the admission hour falls in
// [ElectiveHourStart, ElectiveHourEnd] inclusive, else Emergency.
func ClassifyAdmission(assignedAt time.Time) string {
	h := assignedAt.Hour()
	if h >= ElectiveHourStart && h <= ElectiveHourEnd {
		return "Elective"
	}
	return "Emergency"
}

// AdmissionSplit analyses elective vs emergency admission patterns over the
// trailing window. Percentages are exactly 0 when no admissions exist.
func (a *Analyzer) AdmissionSplit(ctx context.Context, daysBack int) (Result, error) {
	occupancy, err := a.src.Occupancy(ctx, daysBack)
	if err != nil {
		return nil, fmt.Errorf("load occupancy: %w", err)
	}

	now := a.now()
	cutoff := now.AddDate(0, 0, -daysBack)

	var recent []hospital.Occupancy
	for _, o := range occupancy {
		if !o.AssignedAt.Before(cutoff) {
			recent = append(recent, o)
		}
	}
	total := len(recent)

	typeCounts := map[string]int{}
	dailyCounts := map[string]map[string]int{}
	weekdayCounts := map[time.Weekday]map[string]int{}
	hourlyCounts := map[int]map[string]int{}
	for _, o := range recent {
		kind := ClassifyAdmission(o.AssignedAt)
		typeCounts[kind]++

		day := o.AssignedAt.Format("2006-01-02")
		if dailyCounts[day] == nil {
			dailyCounts[day] = map[string]int{}
		}
		dailyCounts[day][kind]++

		wd := o.AssignedAt.Weekday()
		if weekdayCounts[wd] == nil {
			weekdayCounts[wd] = map[string]int{}
		}
		weekdayCounts[wd][kind]++

		h := o.AssignedAt.Hour()
		if hourlyCounts[h] == nil {
			hourlyCounts[h] = map[string]int{}
		}
		hourlyCounts[h][kind]++
	}

	pct := func(count, total int) float64 {
		if total == 0 {
			return 0
		}
		return round1(float64(count) / float64(total) * 100)
	}

	overall := []map[string]any{}
	for _, kind := range []string{"Elective", "Emergency"} {
		if c, ok := typeCounts[kind]; ok {
			overall = append(overall, map[string]any{
				"admission_type": kind,
				"count":          c,
				"percentage":     pct(c, total),
			})
		}
	}

	days := make([]string, 0, len(dailyCounts))
	for d := range dailyCounts {
		days = append(days, d)
	}
	sort.Strings(days)
	daily := make([]map[string]any, 0, len(days))
	for _, d := range days {
		el, em := dailyCounts[d]["Elective"], dailyCounts[d]["Emergency"]
		dayTotal := el + em
		daily = append(daily, map[string]any{
			"date":             d,
			"elective_count":   el,
			"emergency_count":  em,
			"total_admissions": dayTotal,
			"elective_pct":     pct(el, dayTotal),
			"emergency_pct":    pct(em, dayTotal),
		})
	}

	weekly := make([]map[string]any, 0, 7)
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		counts := weekdayCounts[wd]
		if counts == nil {
			continue
		}
		weekly = append(weekly, map[string]any{
			"weekday":         wd.String(),
			"elective_count":  counts["Elective"],
			"emergency_count": counts["Emergency"],
		})
	}

	hourly := make([]map[string]any, 0, 24)
	peakElectiveHour, peakEmergencyHour := 9, 0
	peakElective, peakEmergency := -1, -1
	for h := 0; h < 24; h++ {
		counts := hourlyCounts[h]
		if counts == nil {
			continue
		}
		hourly = append(hourly, map[string]any{
			"hour":            h,
			"hour_label":      fmt.Sprintf("%02d:00", h),
			"elective_count":  counts["Elective"],
			"emergency_count": counts["Emergency"],
		})
		if counts["Elective"] > peakElective {
			peakElective, peakElectiveHour = counts["Elective"], h
		}
		if counts["Emergency"] > peakEmergency {
			peakEmergency, peakEmergencyHour = counts["Emergency"], h
		}
	}

	result := Result{
		"analysis_period": map[string]any{
			"days_analyzed":    daysBack,
			"start_date":       cutoff.Format("2006-01-02"),
			"end_date":         now.Format("2006-01-02"),
			"total_admissions": total,
		},
		"overall_split":   overall,
		"daily_breakdown": daily,
		"weekly_pattern":  weekly,
		"hourly_pattern":  hourly,
		"summary_stats": map[string]any{
			"avg_daily_elective":  round1(float64(typeCounts["Elective"]) / float64(daysBack)),
			"avg_daily_emergency": round1(float64(typeCounts["Emergency"]) / float64(daysBack)),
			"peak_elective_hour":  peakElectiveHour,
			"peak_emergency_hour": peakEmergencyHour,
		},
		"timestamp": now.Format(time.RFC3339),
	}
	if total == 0 {
		result["error"] = "no admissions in the analysis window"
	}

	a.persist("admission_split", result, map[string]any{
		"analysis_type": "admission_split",
		"classification_rules": map[string]any{
			"elective_hours":  map[string]any{"start": ElectiveHourStart, "end": ElectiveHourEnd},
			"emergency_hours": "all hours outside the elective window",
		},
		"analysis_parameters": map[string]any{
			"days_back":                 daysBack,
			"total_admissions_analyzed": total,
		},
		"pattern_insights": map[string]any{
			"elective_percentage":  pct(typeCounts["Elective"], total),
			"emergency_percentage": pct(typeCounts["Emergency"], total),
		},
	})
	return result, nil
}
