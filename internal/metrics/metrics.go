package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forecastsentinel_pipeline_runs_total",
			Help: "Pipeline runs by provenance and outcome",
		},
		[]string{"provenance", "status"},
	)

	PipelineRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "forecastsentinel_pipeline_run_duration_seconds",
			Help:    "Duration of one instrument pipeline run",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provenance"},
	)

	SignalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forecastsentinel_signals_total",
			Help: "Evaluated band signals",
		},
		[]string{"symbol", "signal"},
	)

	DispatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forecastsentinel_dispatches_total",
			Help: "Autotrade webhook attempts",
		},
		[]string{"action", "status"},
	)

	CacheInvalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forecastsentinel_cache_invalidations_total",
			Help: "Result cache invalidations by trigger",
		},
		[]string{"trigger"},
	)
)
