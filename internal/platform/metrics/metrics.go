// Package metrics exposes prometheus instrumentation for analysis runs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	AnalysisRuns     *prometheus.CounterVec
	AnalysisFailures *prometheus.CounterVec
	AnalysisDuration *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		AnalysisRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "analysis_runs_total",
			Help: "Total analysis executions by analysis id.",
		}, []string{"analysis_id"}),
		AnalysisFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "analysis_failures_total",
			Help: "Total failed analysis executions by analysis id.",
		}, []string{"analysis_id"}),
		AnalysisDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "analysis_duration_seconds",
			Help:    "Analysis execution latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"analysis_id"}),
	}

	reg.MustRegister(m.AnalysisRuns, m.AnalysisFailures, m.AnalysisDuration)
	return m
}

// Handler returns the HTTP handler serving the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
