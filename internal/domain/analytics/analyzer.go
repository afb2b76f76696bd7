// Package analytics implements the hospital operations analyses: occupancy,
// forecasting, admissions, length of stay, consumables, staffing, tools,
// inventory expiry and staff workload. Every analysis returns a nested
// result map with a timestamp and persists JSON, CSV and model-data
// artifacts before returning.
package analytics

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/wardops/wardops/internal/domain/hospital"
	"github.com/wardops/wardops/internal/platform/storage"
)

// Result is the nested output shape shared by all analyses.
type Result = map[string]any

// Analyzer executes analyses against a data source. The clock and random
// source are injectable so simulation branches are exact under test.
type Analyzer struct {
	src   hospital.Source
	store *storage.Store
	log   zerolog.Logger
	rng   *rand.Rand
	now   func() time.Time
}

func New(src hospital.Source, store *storage.Store, logger zerolog.Logger) *Analyzer {
	return &Analyzer{
		src:   src,
		store: store,
		log:   logger,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		now:   time.Now,
	}
}

// WithRand replaces the random source used by simulation branches.
func (a *Analyzer) WithRand(rng *rand.Rand) *Analyzer {
	a.rng = rng
	return a
}

// WithClock replaces the timestamp source.
func (a *Analyzer) WithClock(now func() time.Time) *Analyzer {
	a.now = now
	return a
}

// persist writes the JSON result, the best-effort CSV view and the model
// sidecar. Persistence failures are logged, never propagated: an analysis
// that computed successfully still returns its result.
func (a *Analyzer) persist(analysisID string, result Result, modelData map[string]any) {
	if a.store == nil {
		return
	}
	if _, err := a.store.SaveResult(analysisID, result, storage.FormatJSON); err != nil {
		a.log.Error().Err(err).Str("analysis_id", analysisID).Msg("failed to save JSON result")
	}
	if _, err := a.store.SaveResult(analysisID, result, storage.FormatCSV); err != nil {
		a.log.Error().Err(err).Str("analysis_id", analysisID).Msg("failed to save CSV result")
	}
	if modelData != nil {
		if _, err := a.store.SaveModelData(analysisID, modelData); err != nil {
			a.log.Error().Err(err).Str("analysis_id", analysisID).Msg("failed to save model data")
		}
	}
}

// roomTypeMap indexes room id to ward type.
func roomTypeMap(rooms []hospital.Room) map[int64]string {
	m := make(map[int64]string, len(rooms))
	for _, r := range rooms {
		m[r.ID] = r.RoomType
	}
	return m
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func median(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// sampleStd is the n-1 standard deviation; 0 for fewer than two values.
func sampleStd(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	m := mean(vals)
	var sq float64
	for _, v := range vals {
		d := v - m
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(vals)-1))
}

func minMax(vals []float64) (float64, float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	lo, hi := vals[0], vals[0]
	for _, v := range vals[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}
