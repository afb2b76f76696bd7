package analytics

import (
	"context"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

const (
	losModelFile    = "los_predictor.gob"
	losMinTrainRows = 10
	ridgeLambda     = 1.0
)

// PredictionFeatures are the inputs to a length-of-stay prediction. Missing
// fields fall back to population defaults.
type PredictionFeatures struct {
	AdmissionType string  `json:"admission_type"`
	RoomType      string  `json:"room_type"`
	Gender        string  `json:"gender"`
	AgeAtAdm      float64 `json:"age_at_adm"`
}

func (f PredictionFeatures) withDefaults() PredictionFeatures {
	if f.AdmissionType == "" {
		f.AdmissionType = "Emergency"
	}
	if f.RoomType == "" {
		f.RoomType = "General Ward"
	}
	if f.Gender == "" {
		f.Gender = "M"
	}
	if f.AgeAtAdm <= 0 {
		f.AgeAtAdm = 50
	}
	return f
}

// losModel is the persisted regression state: a ridge linear model over
// one-hot encoded categorical features plus numeric age.
type losModel struct {
	Levels    map[string][]string // feature name -> known category levels
	Weights   []float64           // one per encoded column, plus intercept last
	TrainedAt time.Time
	TrainRows int
	MeanLOS   float64
}

// LOSPredictor trains, persists and serves the length-of-stay model. The
// model is lazy-loaded from disk; a cold predictor retrains on demand, so
// the first prediction after a restart is slow. State() exposes warm/cold.
type LOSPredictor struct {
	a        *Analyzer
	modelDir string

	mu    sync.Mutex
	model *losModel
}

func NewLOSPredictor(a *Analyzer, modelDir string) *LOSPredictor {
	return &LOSPredictor{a: a, modelDir: modelDir}
}

// State reports "warm" when a model is loaded in memory, else "cold".
func (p *LOSPredictor) State() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.model != nil {
		return "warm"
	}
	return "cold"
}

func (p *LOSPredictor) modelPath() string {
	return filepath.Join(p.modelDir, losModelFile)
}

// Train fits the regression on completed stays and persists the model,
// overwriting any previous one. Fewer than losMinTrainRows completed stays
// is an insufficiency error and no training is attempted.
func (p *LOSPredictor) Train(ctx context.Context) (Result, error) {
	rows, err := p.a.losRows(ctx)
	if err != nil {
		return nil, err
	}

	type sample struct {
		f   PredictionFeatures
		los float64
	}
	var samples []sample
	for _, r := range rows {
		if r.wardType == "" {
			continue
		}
		samples = append(samples, sample{
			f: PredictionFeatures{
				AdmissionType: ClassifyAdmission(r.assignedAt),
				RoomType:      r.wardType,
				Gender:        r.gender,
				AgeAtAdm:      float64(r.ageAtAdm),
			},
			los: r.losDays,
		})
	}

	if len(samples) < losMinTrainRows {
		result := Result{
			"training_complete": false,
			"error":             fmt.Sprintf("insufficient training data: %d completed stays, need at least %d", len(samples), losMinTrainRows),
			"training_samples":  len(samples),
		}
		p.a.persist("los_prediction_training", result, nil)
		return result, nil
	}

	levels := map[string][]string{
		"admission_type": collectLevels(samples, func(s sample) string { return s.f.AdmissionType }),
		"room_type":      collectLevels(samples, func(s sample) string { return s.f.RoomType }),
		"gender":         collectLevels(samples, func(s sample) string { return s.f.Gender }),
	}

	model := &losModel{Levels: levels, TrainedAt: p.a.now(), TrainRows: len(samples)}

	dim := model.featureDim()
	X := make([][]float64, len(samples))
	y := make([]float64, len(samples))
	var losSum float64
	for i, s := range samples {
		X[i] = model.encode(s.f)
		y[i] = s.los
		losSum += s.los
	}
	model.MeanLOS = losSum / float64(len(samples))

	weights, err := ridgeFit(X, y, dim, ridgeLambda)
	if err != nil {
		return nil, fmt.Errorf("fit regression: %w", err)
	}
	model.Weights = weights

	// In-sample fit quality.
	var ssRes, ssTot float64
	for i := range samples {
		pred := dot(weights, X[i])
		ssRes += (y[i] - pred) * (y[i] - pred)
		ssTot += (y[i] - model.MeanLOS) * (y[i] - model.MeanLOS)
	}
	r2 := 0.0
	if ssTot > 0 {
		r2 = 1 - ssRes/ssTot
	}

	if err := p.save(model); err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.model = model
	p.mu.Unlock()

	result := Result{
		"training_complete": true,
		"training_samples":  len(samples),
		"train_score":       round2(r2),
		"mean_los_days":     round2(model.MeanLOS),
		"feature_columns":   []string{"admission_type", "room_type", "gender", "age_at_adm"},
		"model_parameters": map[string]any{
			"method": "ridge_least_squares",
			"lambda": ridgeLambda,
		},
		"trained_at": model.TrainedAt.Format(time.RFC3339),
	}
	p.a.persist("los_prediction_training", result, result)
	return result, nil
}

// Predict returns a length-of-stay estimate in days rounded to 1 decimal
// plus a qualitative confidence label. A cold predictor loads the persisted
// model; if none exists it retrains first.
func (p *LOSPredictor) Predict(ctx context.Context, features PredictionFeatures) (Result, error) {
	p.mu.Lock()
	model := p.model
	p.mu.Unlock()

	wasCold := model == nil
	if model == nil {
		loaded, err := p.load()
		if err == nil && loaded != nil {
			model = loaded
			p.mu.Lock()
			p.model = model
			p.mu.Unlock()
		}
	}
	if model == nil {
		if _, err := p.Train(ctx); err != nil {
			return nil, err
		}
		p.mu.Lock()
		model = p.model
		p.mu.Unlock()
		if model == nil {
			return Result{
				"error": "no trained model available and training data is insufficient",
			}, nil
		}
	}

	f := features.withDefaults()
	pred := dot(model.Weights, model.encode(f))
	if pred < 0.1 {
		pred = 0.1
	}

	confidence := "low"
	switch {
	case model.TrainRows >= 100:
		confidence = "high"
	case model.TrainRows >= 30:
		confidence = "medium"
	}

	return Result{
		"predicted_los_days": round1(pred),
		"confidence":         confidence,
		"model_state":        map[bool]string{true: "cold", false: "warm"}[wasCold],
		"features_used": map[string]any{
			"admission_type": f.AdmissionType,
			"room_type":      f.RoomType,
			"gender":         f.Gender,
			"age_at_adm":     f.AgeAtAdm,
		},
		"trained_at":       model.TrainedAt.Format(time.RFC3339),
		"training_samples": model.TrainRows,
	}, nil
}

// LOSSummary is the registry-facing analysis: ward statistics plus model
// availability.
func (p *LOSPredictor) LOSSummary(ctx context.Context) (Result, error) {
	rows, err := p.a.losRows(ctx)
	if err != nil {
		result := Result{
			"ward_statistics": []map[string]any{},
			"overall_statistics": map[string]any{
				"overall_avg_los":       0.0,
				"overall_median_los":    0.0,
				"total_completed_stays": 0,
			},
			"model_available": false,
			"error":           err.Error(),
		}
		p.a.persist("los_prediction", result, nil)
		return result, nil
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

	_, statErr := os.Stat(p.modelPath())
	modelAvailable := statErr == nil

	result := Result{
		"ward_statistics": wardData,
		"overall_statistics": map[string]any{
			"overall_avg_los":       round2(mean(all)),
			"overall_median_los":    round2(median(all)),
			"total_completed_stays": len(all),
		},
		"model_available": modelAvailable,
		"model_state":     p.State(),
		"timestamp":       p.a.now().Format(time.RFC3339),
	}
	if len(all) == 0 {
		result["error"] = "no completed stays available"
	}

	p.a.persist("los_prediction", result, map[string]any{
		"analysis_type": "los_prediction",
		"model_info": map[string]any{
			"model_available": modelAvailable,
			"model_path":      p.modelPath(),
			"feature_columns": []string{"admission_type", "room_type", "gender", "age_at_adm"},
		},
		"data_quality": map[string]any{
			"total_records_analyzed": len(all),
			"valid_los_range":        "0-365 days",
		},
	})
	return result, nil
}

func (p *LOSPredictor) save(model *losModel) error {
	if err := os.MkdirAll(p.modelDir, 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}
	f, err := os.Create(p.modelPath())
	if err != nil {
		return fmt.Errorf("create model file: %w", err)
	}
	defer f.Close()
	if err := gob.NewEncoder(f).Encode(model); err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	return nil
}

func (p *LOSPredictor) load() (*losModel, error) {
	f, err := os.Open(p.modelPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()
	var model losModel
	if err := gob.NewDecoder(f).Decode(&model); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	return &model, nil
}

// featureDim is the encoded width: one column per categorical level, one for
// age, one for the intercept.
func (m *losModel) featureDim() int {
	dim := 2 // age + intercept
	for _, levels := range m.Levels {
		dim += len(levels)
	}
	return dim
}

// encode one-hot encodes the categoricals in a fixed order; unknown levels
// encode as all zeros.
func (m *losModel) encode(f PredictionFeatures) []float64 {
	x := make([]float64, 0, m.featureDim())
	for _, pair := range []struct {
		name  string
		value string
	}{
		{"admission_type", f.AdmissionType},
		{"room_type", f.RoomType},
		{"gender", f.Gender},
	} {
		for _, level := range m.Levels[pair.name] {
			if level == pair.value {
				x = append(x, 1)
			} else {
				x = append(x, 0)
			}
		}
	}
	x = append(x, f.AgeAtAdm/100) // scale age into unit-ish range
	x = append(x, 1)              // intercept
	return x
}

func collectLevels[T any](items []T, get func(T) string) []string {
	set := map[string]bool{}
	for _, it := range items {
		set[get(it)] = true
	}
	levels := make([]string, 0, len(set))
	for l := range set {
		levels = append(levels, l)
	}
	sort.Strings(levels)
	return levels
}

// ridgeFit solves (X'X + lambda*I) w = X'y by Gaussian elimination with
// partial pivoting. The intercept column is regularized too; with small
// lambda the bias is negligible for this use.
func ridgeFit(X [][]float64, y []float64, dim int, lambda float64) ([]float64, error) {
	A := make([][]float64, dim)
	for i := range A {
		A[i] = make([]float64, dim+1)
	}
	for r := range X {
		for i := 0; i < dim; i++ {
			for j := 0; j < dim; j++ {
				A[i][j] += X[r][i] * X[r][j]
			}
			A[i][dim] += X[r][i] * y[r]
		}
	}
	for i := 0; i < dim; i++ {
		A[i][i] += lambda
	}

	for col := 0; col < dim; col++ {
		pivot := col
		for r := col + 1; r < dim; r++ {
			if math.Abs(A[r][col]) > math.Abs(A[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(A[pivot][col]) < 1e-12 {
			return nil, fmt.Errorf("singular normal matrix at column %d", col)
		}
		A[col], A[pivot] = A[pivot], A[col]
		for r := 0; r < dim; r++ {
			if r == col {
				continue
			}
			factor := A[r][col] / A[col][col]
			for c := col; c <= dim; c++ {
				A[r][c] -= factor * A[col][c]
			}
		}
	}

	w := make([]float64, dim)
	for i := 0; i < dim; i++ {
		w[i] = A[i][dim] / A[i][i]
	}
	return w, nil
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
