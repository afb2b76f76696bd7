package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Stays outside this range are treated as data errors and excluded.
const (
	losMinDays = 0.0
	losMaxDays = 365.0
)

type losRow struct {
	wardType     string
	losDays      float64
	assignedAt   time.Time
	dischargedAt time.Time
	gender       string
	ageAtAdm     int
}

// losRows extracts completed stays with sane lengths, mapped to ward type.
// Rows whose room has no ward mapping carry an empty wardType; they are
// excluded from ward grouping but included in overall stats. Everything the
// downstream statistics and the predictor need is carried on the row, so the
// occupancy table is fetched exactly once per analysis.
func (a *Analyzer) losRows(ctx context.Context) ([]losRow, error) {
	occupancy, err := a.src.Occupancy(ctx, 365)
	if err != nil {
		return nil, fmt.Errorf("load occupancy: %w", err)
	}
	rooms, err := a.src.Rooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("load rooms: %w", err)
	}
	typeMap := roomTypeMap(rooms)

	var rows []losRow
	for _, o := range occupancy {
		los, ok := o.LengthOfStayDays()
		if !ok || los < losMinDays || los > losMaxDays {
			continue
		}
		rows = append(rows, losRow{
			wardType:     typeMap[o.RoomID],
			losDays:      los,
			assignedAt:   o.AssignedAt,
			dischargedAt: *o.DischargedAt,
			gender:       o.Gender,
			ageAtAdm:     o.AgeAtAdm,
		})
	}
	return rows, nil
}

// AverageLOS reports length-of-stay statistics per ward and overall, for
// completed stays only.
func (a *Analyzer) AverageLOS(ctx context.Context) (Result, error) {
	rows, err := a.losRows(ctx)
	if err != nil {
		return nil, err
	}

	byWard := map[string][]float64{}
	var all []float64
	for _, r := range rows {
		all = append(all, r.losDays)
		if r.wardType != "" {
			byWard[r.wardType] = append(byWard[r.wardType], r.losDays)
		}
	}

	wards := make([]string, 0, len(byWard))
	for w := range byWard {
		wards = append(wards, w)
	}
	sort.Strings(wards)

	wardData := make([]map[string]any, 0, len(wards))
	for _, w := range wards {
		vals := byWard[w]
		lo, hi := minMax(vals)
		wardData = append(wardData, map[string]any{
			"ward_type":        w,
			"avg_los_days":     round2(mean(vals)),
			"median_los_days":  round2(median(vals)),
			"std_los_days":     round2(sampleStd(vals)),
			"min_los_days":     round2(lo),
			"max_los_days":     round2(hi),
			"total_discharges": len(vals),
		})
	}

	periodDays := 0
	if len(rows) > 0 {
		// Span from earliest admission to latest discharge among kept rows.
		var earliest, latest time.Time
		for _, r := range rows {
			if earliest.IsZero() || r.assignedAt.Before(earliest) {
				earliest = r.assignedAt
			}
			if latest.IsZero() || r.dischargedAt.After(latest) {
				latest = r.dischargedAt
			}
		}
		periodDays = int(latest.Sub(earliest).Hours() / 24)
	}

	result := Result{
		"ward_statistics": wardData,
		"overall_statistics": map[string]any{
			"overall_avg_los":       round2(mean(all)),
			"overall_median_los":    round2(median(all)),
			"overall_std_los":       round2(sampleStd(all)),
			"total_completed_stays": len(all),
			"analysis_period_days":  periodDays,
		},
		"analysis_timestamp": a.now().Format(time.RFC3339),
	}
	if len(all) == 0 {
		result["error"] = "no completed stays available"
	}

	wardNames := make([]string, len(wardData))
	for i, w := range wardData {
		wardNames[i] = w["ward_type"].(string)
	}
	a.persist("average_los", result, map[string]any{
		"analysis_type":       "average_los",
		"calculation_method":  "completed_stays_only",
		"los_range_filter":    "0-365 days",
		"statistics_computed": []string{"mean", "median", "std", "count", "min", "max"},
		"ward_breakdown": map[string]any{
			"total_wards":    len(wardData),
			"wards_analyzed": wardNames,
		},
	})
	return result, nil
}
