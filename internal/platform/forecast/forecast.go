// Package forecast provides small time-series models for daily hospital
// series: an additive Holt-Winters smoother and a trailing moving average
// used as its fallback.
package forecast

import (
	"fmt"
	"math"
)

// HoltWinters fits an additive exponential smoother with level and trend,
// adding a seasonal component of period `season` when the series contains at
// least two full seasons. Returns `horizon` forecast points.
type HoltWinters struct {
	Alpha  float64
	Beta   float64
	Gamma  float64
	Season int
}

// DefaultHoltWinters mirrors the smoothing constants used for census series.
func DefaultHoltWinters() HoltWinters {
	return HoltWinters{Alpha: 0.4, Beta: 0.15, Gamma: 0.25, Season: 7}
}

// Fit produces forecasts plus the in-sample residual standard deviation,
// which callers use for confidence bands.
func (hw HoltWinters) Fit(series []float64, horizon int) ([]float64, float64, error) {
	if len(series) < 3 {
		return nil, 0, fmt.Errorf("holt-winters needs at least 3 points, got %d", len(series))
	}
	if horizon <= 0 {
		return nil, 0, fmt.Errorf("horizon must be positive, got %d", horizon)
	}

	seasonal := hw.Season > 1 && len(series) >= 2*hw.Season

	var seasonals []float64
	if seasonal {
		seasonals = initialSeasonals(series, hw.Season)
	}

	level := series[0]
	trend := initialTrend(series, hw.Season, seasonal)

	var residSq float64
	n := 0
	for i := 1; i < len(series); i++ {
		var s float64
		if seasonal {
			s = seasonals[i%hw.Season]
		}
		pred := level + trend + s
		resid := series[i] - pred
		residSq += resid * resid
		n++

		prevLevel := level
		level = hw.Alpha*(series[i]-s) + (1-hw.Alpha)*(level+trend)
		trend = hw.Beta*(level-prevLevel) + (1-hw.Beta)*trend
		if seasonal {
			seasonals[i%hw.Season] = hw.Gamma*(series[i]-level) + (1-hw.Gamma)*s
		}
	}

	sigma := 0.0
	if n > 0 {
		sigma = math.Sqrt(residSq / float64(n))
	}

	out := make([]float64, horizon)
	for h := 1; h <= horizon; h++ {
		var s float64
		if seasonal {
			s = seasonals[(len(series)+h-1)%hw.Season]
		}
		out[h-1] = level + float64(h)*trend + s
	}
	return out, sigma, nil
}

func initialTrend(series []float64, season int, seasonal bool) float64 {
	if seasonal {
		var sum float64
		for i := 0; i < season; i++ {
			sum += (series[season+i] - series[i]) / float64(season)
		}
		return sum / float64(season)
	}
	return series[1] - series[0]
}

func initialSeasonals(series []float64, season int) []float64 {
	nSeasons := len(series) / season
	seasonAvgs := make([]float64, nSeasons)
	for j := 0; j < nSeasons; j++ {
		var sum float64
		for i := 0; i < season; i++ {
			sum += series[j*season+i]
		}
		seasonAvgs[j] = sum / float64(season)
	}

	out := make([]float64, season)
	for i := 0; i < season; i++ {
		var sum float64
		for j := 0; j < nSeasons; j++ {
			sum += series[j*season+i] - seasonAvgs[j]
		}
		out[i] = sum / float64(nSeasons)
	}
	return out
}

// MovingAverage forecasts a flat continuation of the trailing mean over the
// last `window` points (or the whole series when shorter).
func MovingAverage(series []float64, window, horizon int) []float64 {
	if len(series) == 0 || horizon <= 0 {
		return nil
	}
	if window <= 0 || window > len(series) {
		window = len(series)
	}
	var sum float64
	for _, v := range series[len(series)-window:] {
		sum += v
	}
	mean := sum / float64(window)

	out := make([]float64, horizon)
	for i := range out {
		out[i] = mean
	}
	return out
}

// Std computes the population standard deviation.
func Std(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	var sum float64
	for _, v := range series {
		sum += v
	}
	mean := sum / float64(len(series))
	var sq float64
	for _, v := range series {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(series)))
}
