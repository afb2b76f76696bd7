package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/wardops/wardops/internal/platform/metrics"
)

// Kind identifies one analysis in the closed catalogue. Adding an analysis
// means adding a Kind, a catalogue entry, and a dispatch arm.
type Kind string

const (
	KindBedSnapshot     Kind = "bed_snapshot"
	KindCensusForecast  Kind = "census_forecast"
	KindAdmissionSplit  Kind = "admission_split"
	KindLOSPrediction   Kind = "los_prediction"
	KindBurnRate        Kind = "burn_rate"
	KindStaffing        Kind = "staffing"
	KindAverageLOS      Kind = "average_los"
	KindToolUtilisation Kind = "tool_utilisation"
	KindInventoryExpiry Kind = "inventory_expiry"
	KindStaffLoad       Kind = "staff_load"
)

// ParamSpec bounds one integer parameter. Out-of-range values are clamped,
// missing values take the default.
type ParamSpec struct {
	Name    string `json:"name"`
	Min     int    `json:"min"`
	Max     int    `json:"max"`
	Default int    `json:"default"`
}

// Metadata describes an analysis for dashboard clients: how to chart it, how
// often to refresh it, and which parameters it accepts.
type Metadata struct {
	Label           string      `json:"label"`
	Description     string      `json:"description"`
	Category        string      `json:"category"`
	DefaultChart    string      `json:"default_chart"`
	ExtraCharts     []string    `json:"extra_charts"`
	RefreshInterval int         `json:"refresh_interval_seconds"`
	Parameters      []ParamSpec `json:"parameters,omitempty"`
}

const (
	categoryOperational = "operational"
	categoryPredictive  = "predictive"
)

var catalogue = map[Kind]Metadata{
	KindBedSnapshot: {
		Label:           "Bed Occupancy Snapshot",
		Description:     "Current bed occupancy and availability per ward",
		Category:        categoryOperational,
		DefaultChart:    "stacked_bar",
		ExtraCharts:     []string{"100pct_area", "pie"},
		RefreshInterval: 300,
	},
	KindCensusForecast: {
		Label:           "Census Forecast",
		Description:     "Short-term patient census forecast with confidence bands",
		Category:        categoryPredictive,
		DefaultChart:    "line",
		ExtraCharts:     []string{"line_conf_band", "area"},
		RefreshInterval: 3600,
		Parameters:      []ParamSpec{{Name: "days", Min: 1, Max: 7, Default: 3}},
	},
	KindAdmissionSplit: {
		Label:           "Admission Split",
		Description:     "Elective versus emergency admission breakdown over time",
		Category:        categoryOperational,
		DefaultChart:    "stacked_bar",
		ExtraCharts:     []string{"pie", "line", "stacked_area"},
		RefreshInterval: 1800,
		Parameters:      []ParamSpec{{Name: "days_back", Min: 1, Max: 90, Default: 14}},
	},
	KindLOSPrediction: {
		Label:           "Length of Stay Prediction",
		Description:     "Ward-level length of stay statistics and model state",
		Category:        categoryPredictive,
		DefaultChart:    "bar_h",
		ExtraCharts:     []string{"box", "violin"},
		RefreshInterval: 7200,
	},
	KindBurnRate: {
		Label:           "Inventory Burn Rate",
		Description:     "Consumable depletion forecast from occupied-bed demand",
		Category:        categoryOperational,
		DefaultChart:    "stacked_area",
		ExtraCharts:     []string{"bar", "table"},
		RefreshInterval: 3600,
		Parameters:      []ParamSpec{{Name: "days", Min: 1, Max: 30, Default: 7}},
	},
	KindStaffing: {
		Label:           "Staffing Forecast",
		Description:     "Per-ward staff requirements versus current headcount",
		Category:        categoryOperational,
		DefaultChart:    "grouped_bar",
		ExtraCharts:     []string{"dual_axis_line", "stacked_bar"},
		RefreshInterval: 1800,
		Parameters:      []ParamSpec{{Name: "days", Min: 1, Max: 7, Default: 3}},
	},
	KindAverageLOS: {
		Label:           "Average Length of Stay",
		Description:     "Completed-stay length of stay statistics per ward",
		Category:        categoryOperational,
		DefaultChart:    "bar_h",
		ExtraCharts:     []string{"box", "table"},
		RefreshInterval: 3600,
	},
	KindToolUtilisation: {
		Label:           "Tool Utilisation",
		Description:     "Equipment utilisation ranking with status bands",
		Category:        categoryOperational,
		DefaultChart:    "bar_h",
		ExtraCharts:     []string{"gauge", "table"},
		RefreshInterval: 1800,
		Parameters:      []ParamSpec{{Name: "top_n", Min: 5, Max: 50, Default: 10}},
	},
	KindInventoryExpiry: {
		Label:           "Inventory Expiry",
		Description:     "Stock expiry buckets and value at risk",
		Category:        categoryOperational,
		DefaultChart:    "bar",
		ExtraCharts:     []string{"treemap", "table"},
		RefreshInterval: 3600,
		Parameters:      []ParamSpec{{Name: "days_threshold", Min: 7, Max: 365, Default: 90}},
	},
	KindStaffLoad: {
		Label:           "Staff Load",
		Description:     "Active patient assignments per staff member",
		Category:        categoryOperational,
		DefaultChart:    "bar_h",
		ExtraCharts:     []string{"heatmap", "table"},
		RefreshInterval: 900,
		Parameters:      []ParamSpec{{Name: "top_n", Min: 5, Max: 50, Default: 10}},
	},
}

// Params carries raw integer parameters keyed by name, typically straight
// from query-string parsing. Clamping against the catalogue happens in Run.
type Params map[string]int

// Registry dispatches analyses by id, wraps results in a uniform envelope,
// and records run metrics. It is the only entry point handlers use.
type Registry struct {
	analyzer  *Analyzer
	predictor *LOSPredictor
	metrics   *metrics.Metrics
	log       zerolog.Logger
}

func NewRegistry(a *Analyzer, p *LOSPredictor, m *metrics.Metrics, log zerolog.Logger) *Registry {
	return &Registry{
		analyzer:  a,
		predictor: p,
		metrics:   m,
		log:       log.With().Str("component", "analytics_registry").Logger(),
	}
}

// Known reports whether id names a catalogued analysis.
func Known(id string) bool {
	_, ok := catalogue[Kind(id)]
	return ok
}

// AvailableAnalyses returns the sorted ids of every catalogued analysis.
func AvailableAnalyses() []string {
	ids := make([]string, 0, len(catalogue))
	for k := range catalogue {
		ids = append(ids, string(k))
	}
	sort.Strings(ids)
	return ids
}

// MetadataFor returns the catalogue entry for id.
func MetadataFor(id string) (Metadata, bool) {
	md, ok := catalogue[Kind(id)]
	return md, ok
}

func metadataPayload(md Metadata) map[string]any {
	extra := md.ExtraCharts
	if extra == nil {
		extra = []string{}
	}
	return map[string]any{
		"label":         md.Label,
		"description":   md.Description,
		"category":      md.Category,
		"default_chart": md.DefaultChart,
		"extra_charts":  extra,
	}
}

// List returns catalogue entries for every analysis, sorted by id.
func (r *Registry) List() []map[string]any {
	out := make([]map[string]any, 0, len(catalogue))
	for _, id := range AvailableAnalyses() {
		md := catalogue[Kind(id)]
		entry := metadataPayload(md)
		entry["analysis_id"] = id
		entry["refresh_interval_seconds"] = md.RefreshInterval
		params := md.Parameters
		if params == nil {
			params = []ParamSpec{}
		}
		entry["parameters"] = params
		out = append(out, entry)
	}
	return out
}

// ChartOptions returns the default and alternative chart types for id.
func (r *Registry) ChartOptions(id string) (map[string]any, bool) {
	md, ok := catalogue[Kind(id)]
	if !ok {
		return nil, false
	}
	extra := md.ExtraCharts
	if extra == nil {
		extra = []string{}
	}
	return map[string]any{
		"analysis_id":   id,
		"default_chart": md.DefaultChart,
		"extra_charts":  extra,
	}, true
}

func clampParams(md Metadata, params Params) map[string]any {
	used := map[string]any{}
	for _, spec := range md.Parameters {
		v, ok := params[spec.Name]
		if !ok {
			v = spec.Default
		}
		if v < spec.Min {
			v = spec.Min
		}
		if v > spec.Max {
			v = spec.Max
		}
		used[spec.Name] = v
	}
	return used
}

// Run executes one analysis and returns the response envelope. Unknown ids
// get an error payload listing the catalogue; a panicking analysis is
// converted into a failure envelope rather than crashing the server.
func (r *Registry) Run(ctx context.Context, id string, params Params) Result {
	return r.run(ctx, id, params, time.Time{})
}

// RunAt is Run with an explicit as-of time, for point-in-time analyses such
// as the bed snapshot. A zero time means now.
func (r *Registry) RunAt(ctx context.Context, id string, params Params, at time.Time) Result {
	return r.run(ctx, id, params, at)
}

func (r *Registry) run(ctx context.Context, id string, params Params, at time.Time) Result {
	md, ok := catalogue[Kind(id)]
	if !ok {
		return Result{
			"error":              fmt.Sprintf("unknown analysis: %s", id),
			"available_analyses": AvailableAnalyses(),
		}
	}

	used := clampParams(md, params)
	if id == string(KindBedSnapshot) && !at.IsZero() {
		used["date"] = at.Format("2006-01-02")
	}
	timestamp := r.analyzer.now().Format(time.RFC3339)

	envelope := func(data Result) Result {
		return Result{
			"analysis_id":       id,
			"analysis_metadata": metadataPayload(md),
			"parameters_used":   used,
			"data":              data,
			"success":           true,
			"timestamp":         timestamp,
		}
	}
	failure := func(msg string) Result {
		r.metrics.AnalysisFailures.With(prometheus.Labels{"analysis_id": id}).Inc()
		return Result{
			"analysis_id": id,
			"label":       md.Label,
			"success":     false,
			"error":       msg,
			"timestamp":   timestamp,
		}
	}

	var out Result
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				r.log.Error().Str("analysis_id", id).Interface("panic", rec).
					Msg("analysis panicked")
				out = failure(fmt.Sprintf("analysis failed: %v", rec))
			}
		}()

		r.metrics.AnalysisRuns.With(prometheus.Labels{"analysis_id": id}).Inc()
		timer := prometheus.NewTimer(r.metrics.AnalysisDuration.With(prometheus.Labels{"analysis_id": id}))
		defer timer.ObserveDuration()

		data, err := r.dispatch(ctx, Kind(id), used, at)
		if err != nil {
			r.log.Error().Err(err).Str("analysis_id", id).Msg("analysis failed")
			out = failure(err.Error())
			return
		}
		out = envelope(data)
	}()
	return out
}

func (r *Registry) dispatch(ctx context.Context, kind Kind, used map[string]any, at time.Time) (Result, error) {
	intOf := func(name string) int {
		v, _ := used[name].(int)
		return v
	}
	switch kind {
	case KindBedSnapshot:
		return r.analyzer.BedSnapshot(ctx, at)
	case KindCensusForecast:
		return r.analyzer.CensusForecast(ctx, intOf("days"))
	case KindAdmissionSplit:
		return r.analyzer.AdmissionSplit(ctx, intOf("days_back"))
	case KindLOSPrediction:
		return r.predictor.LOSSummary(ctx)
	case KindBurnRate:
		return r.analyzer.BurnRate(ctx, intOf("days"))
	case KindStaffing:
		return r.analyzer.StaffingForecast(ctx, intOf("days"))
	case KindAverageLOS:
		return r.analyzer.AverageLOS(ctx)
	case KindToolUtilisation:
		return r.analyzer.ToolUtilisation(ctx, intOf("top_n"))
	case KindInventoryExpiry:
		return r.analyzer.InventoryExpiry(ctx, intOf("days_threshold"))
	case KindStaffLoad:
		return r.analyzer.StaffLoad(ctx, intOf("top_n"))
	default:
		return nil, fmt.Errorf("unhandled analysis kind: %s", kind)
	}
}
