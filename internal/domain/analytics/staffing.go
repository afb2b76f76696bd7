package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// shiftRatios are patients-per-staff-member; required staff is
// max(1, int(patients/ratio)). Nurses have distinct day and night ratios.
type shiftRatios struct {
	NurseDay   float64
	NurseNight float64
	Doctor     float64
	Support    float64
}

var wardStaffRatios = map[string]shiftRatios{
	"ICU":          {NurseDay: 2, NurseNight: 3, Doctor: 8, Support: 10},
	"Emergency":    {NurseDay: 3, NurseNight: 4, Doctor: 6, Support: 8},
	"General Ward": {NurseDay: 5, NurseNight: 8, Doctor: 12, Support: 15},
	"Surgical":     {NurseDay: 4, NurseNight: 6, Doctor: 10, Support: 12},
	"Pediatric":    {NurseDay: 4, NurseNight: 5, Doctor: 10, Support: 12},
	"Maternity":    {NurseDay: 3, NurseNight: 5, Doctor: 10, Support: 12},
}

var defaultStaffRatios = shiftRatios{NurseDay: 5, NurseNight: 8, Doctor: 12, Support: 15}

// weekendDemandFactor scales down expected occupancy on Saturdays/Sundays.
const weekendDemandFactor = 0.85

func requiredStaff(patients, ratio float64) int {
	n := int(patients / ratio)
	if n < 1 {
		n = 1
	}
	return n
}

// StaffingForecast derives per-ward staff requirements for the next `days`
// days from current occupancy. Each day gets an occupancy multiplier:
// weekend factor times bounded random noise (±5%), clamped to [0.7, 1.3]
// overall. Peak requirements across the horizon are compared to the current
// staff tally to emit shortage/surplus/adequate recommendations.
func (a *Analyzer) StaffingForecast(ctx context.Context, days int) (Result, error) {
	occupancy, err := a.src.Occupancy(ctx, 30)
	if err != nil {
		return nil, fmt.Errorf("load occupancy: %w", err)
	}
	rooms, err := a.src.Rooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("load rooms: %w", err)
	}
	staff, err := a.src.Users(ctx)
	if err != nil {
		return nil, fmt.Errorf("load staff: %w", err)
	}

	now := a.now()

	if len(occupancy) == 0 || len(rooms) == 0 || len(staff) == 0 {
		result := Result{
			"forecast":  []map[string]any{},
			"summary":   map[string]any{},
			"error":     "insufficient data for staffing forecast",
			"timestamp": now.Format(time.RFC3339),
		}
		a.persist("staffing", result, nil)
		return result, nil
	}

	typeMap := roomTypeMap(rooms)
	currentByWard := map[string]int{}
	for _, o := range occupancy {
		if !o.Active(now) {
			continue
		}
		if ward, ok := typeMap[o.RoomID]; ok {
			currentByWard[ward]++
		}
	}
	wards := make([]string, 0, len(currentByWard))
	for w := range currentByWard {
		wards = append(wards, w)
	}
	sort.Strings(wards)

	staffCounts := map[string]int{}
	for _, s := range staff {
		staffCounts[s.StaffType]++
	}

	forecastRows := make([]map[string]any, 0, days)
	peakTotals := map[string]int{"nurses_day": 0, "nurses_night": 0, "doctors": 0, "support": 0}

	for d := 1; d <= days; d++ {
		date := now.AddDate(0, 0, d)

		// Occupancy multiplier: weekend reduction plus small bounded noise.
		multiplier := 1.0
		if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
			multiplier = weekendDemandFactor
		}
		multiplier *= 1 + (a.rng.Float64()*0.1 - 0.05)
		if multiplier < 0.7 {
			multiplier = 0.7
		}
		if multiplier > 1.3 {
			multiplier = 1.3
		}

		wardRows := make([]map[string]any, 0, len(wards))
		dayTotals := map[string]int{"nurses_day": 0, "nurses_night": 0, "doctors": 0, "support": 0}
		totalPatients := 0.0
		for _, w := range wards {
			patients := float64(currentByWard[w]) * multiplier
			totalPatients += patients

			ratios, ok := wardStaffRatios[w]
			if !ok {
				ratios = defaultStaffRatios
			}
			req := map[string]int{
				"nurses_day":   requiredStaff(patients, ratios.NurseDay),
				"nurses_night": requiredStaff(patients, ratios.NurseNight),
				"doctors":      requiredStaff(patients, ratios.Doctor),
				"support":      requiredStaff(patients, ratios.Support),
			}
			for k, v := range req {
				dayTotals[k] += v
			}
			wardRows = append(wardRows, map[string]any{
				"ward":               w,
				"estimated_patients": round1(patients),
				"required": map[string]any{
					"nurses_day":   req["nurses_day"],
					"nurses_night": req["nurses_night"],
					"doctors":      req["doctors"],
					"support":      req["support"],
				},
			})
		}
		for k, v := range dayTotals {
			if v > peakTotals[k] {
				peakTotals[k] = v
			}
		}

		forecastRows = append(forecastRows, map[string]any{
			"date":                 date.Format("2006-01-02"),
			"occupancy_multiplier": round2(multiplier),
			"estimated_patients":   round1(totalPatients),
			"ward_requirements":    wardRows,
			"total_requirements": map[string]any{
				"nurses_day":   dayTotals["nurses_day"],
				"nurses_night": dayTotals["nurses_night"],
				"doctors":      dayTotals["doctors"],
				"support":      dayTotals["support"],
			},
		})
	}

	// Peak requirement vs current headcount. Nurses cover both shifts out of
	// one pool, so peak nurse demand is the sum of the shift peaks.
	recommendations := []map[string]any{}
	assess := func(staffType string, required int) {
		available := staffCounts[staffType]
		gap := required - available
		status, priority := "adequate", "low"
		switch {
		case gap > 0:
			status = "shortage"
			priority = "high"
			if gap <= 2 {
				priority = "medium"
			}
		case gap < -2:
			status = "surplus"
		}
		recommendations = append(recommendations, map[string]any{
			"staff_type":    staffType,
			"peak_required": required,
			"available":     available,
			"gap":           gap,
			"status":        status,
			"priority":      priority,
		})
	}
	assess("nurses", peakTotals["nurses_day"]+peakTotals["nurses_night"])
	assess("doctors", peakTotals["doctors"])
	assess("support", peakTotals["support"])

	result := Result{
		"forecast": forecastRows,
		"summary": map[string]any{
			"current_total_occupancy": sumMapValues(currentByWard),
			"current_staff_count":     staffCounts,
			"peak_requirements":       peakTotals,
			"recommendations":         recommendations,
			"forecast_period":         fmt.Sprintf("%d days", days),
		},
		"timestamp": now.Format(time.RFC3339),
	}

	a.persist("staffing", result, map[string]any{
		"analysis_type": "staffing",
		"forecast_parameters": map[string]any{
			"forecast_days":         days,
			"weekend_demand_factor": weekendDemandFactor,
			"noise_pct":             5,
			"multiplier_bounds":     []float64{0.7, 1.3},
		},
		"ratio_model": map[string]any{
			"semantics":    "patients per staff member, required = max(1, int(patients/ratio))",
			"ward_ratios":  describeRatios(),
			"default_ward": "General Ward ratios",
		},
	})
	return result, nil
}

func describeRatios() map[string]any {
	out := map[string]any{}
	for ward, r := range wardStaffRatios {
		out[ward] = map[string]float64{
			"nurse_day":   r.NurseDay,
			"nurse_night": r.NurseNight,
			"doctor":      r.Doctor,
			"support":     r.Support,
		}
	}
	return out
}

func sumMapValues(m map[string]int) int {
	total := 0
	for _, v := range m {
		total += v
	}
	return total
}
