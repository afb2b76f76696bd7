package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/wardops/wardops/internal/platform/forecast"
)

const censusHistoryDays = 60

// CensusForecast predicts daily bed census for the next `days` days. Each
// occupancy interval is expanded to calendar days and counted, gaps are
// zero-filled, then a Holt-Winters smoother is fitted over the series. Series
// shorter than 3 points are padded backward with zeros; a failed fit falls
// back to a 7-day trailing moving average. The output always names the
// method used.
func (a *Analyzer) CensusForecast(ctx context.Context, days int) (Result, error) {
	occupancy, err := a.src.Occupancy(ctx, censusHistoryDays)
	if err != nil {
		return nil, fmt.Errorf("load occupancy: %w", err)
	}
	rooms, err := a.src.Rooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("load rooms: %w", err)
	}

	now := a.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	// Expand each stay into per-day census counts.
	counts := map[time.Time]int{}
	var first, last time.Time
	for _, o := range occupancy {
		start := o.AssignedAt
		start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
		end := today
		if o.DischargedAt != nil {
			d := *o.DischargedAt
			end = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
		}
		if end.Before(start) {
			continue
		}
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			counts[d]++
		}
		if first.IsZero() || start.Before(first) {
			first = start
		}
		if last.IsZero() || end.After(last) {
			last = end
		}
	}

	if len(counts) == 0 {
		result := Result{
			"data":      []map[string]any{},
			"forecast":  []map[string]any{},
			"model":     "none",
			"error":     "no valid occupancy data found for forecasting",
			"timestamp": now.Format(time.RFC3339),
		}
		a.persist("census_forecast", result, map[string]any{
			"analysis_type": "census_forecast",
			"error":         "no valid occupancy data",
		})
		return result, nil
	}

	// Contiguous daily series with zero-filled gaps.
	var series []float64
	var dates []time.Time
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		series = append(series, float64(counts[d]))
		dates = append(dates, d)
	}

	// Pad backward with zeros until the smoother has 3 points to work with.
	for len(series) < 3 {
		series = append([]float64{0}, series...)
		dates = append([]time.Time{dates[0].AddDate(0, 0, -1)}, dates...)
	}

	method := "holt_winters"
	var fitError string
	hw := forecast.DefaultHoltWinters()
	predicted, sigma, err := hw.Fit(series, days)
	if err != nil {
		method = "fallback_average"
		fitError = err.Error()
		predicted = forecast.MovingAverage(series, 7, days)
		sigma = forecast.Std(series)
	}

	totalCapacity := 0
	for _, r := range rooms {
		totalCapacity += r.BedCapacity
	}

	historyStart := len(series) - 14
	if historyStart < 0 {
		historyStart = 0
	}
	history := make([]map[string]any, 0, len(series)-historyStart)
	for i := historyStart; i < len(series); i++ {
		history = append(history, map[string]any{
			"date":   dates[i].Format("2006-01-02"),
			"actual": int(series[i]),
		})
	}

	forecastRows := make([]map[string]any, 0, days)
	for i, p := range predicted {
		pred := round1(p)
		lower := pred - 1.96*sigma
		if lower < 0 {
			lower = 0
		}
		row := map[string]any{
			"date":             now.AddDate(0, 0, i+1).Format("2006-01-02"),
			"predicted":        pred,
			"confidence_lower": round1(lower),
			"confidence_upper": round1(pred + 1.96*sigma),
		}
		if totalCapacity > 0 {
			util := pred / float64(totalCapacity) * 100
			if util < 0 {
				util = 0
			}
			row["utilisation_pct"] = round1(util)
		}
		forecastRows = append(forecastRows, row)
	}

	result := Result{
		"data":            history,
		"forecast":        forecastRows,
		"model":           method,
		"forecast_period": fmt.Sprintf("%d days", days),
		"timestamp":       now.Format(time.RFC3339),
	}
	if fitError != "" {
		result["error"] = fitError
	}

	a.persist("census_forecast", result, map[string]any{
		"analysis_type": "census_forecast",
		"method":        method,
		"forecast_days": days,
		"series_length": len(series),
		"residual_std":  round2(sigma),
		"smoothing": map[string]any{
			"alpha": hw.Alpha, "beta": hw.Beta, "gamma": hw.Gamma, "season": hw.Season,
		},
		"total_capacity": totalCapacity,
	})
	return result, nil
}
