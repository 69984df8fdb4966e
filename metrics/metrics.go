package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "videopipe_runs_total",
		Help: "Total number of pipeline runs, by result",
	}, []string{"result"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "videopipe_stage_duration_seconds",
		Help:    "Duration of each pipeline stage",
		Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"stage"})

	FallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "videopipe_fallbacks_total",
		Help: "Provider failures that fell through to the next tier",
	}, []string{"component", "provider"})

	ScenesSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "videopipe_scenes_skipped_total",
		Help: "Scenes dropped during assembly because their clip could not be loaded",
	})

	ActiveRuns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "videopipe_active_runs",
		Help: "Number of pipeline runs currently executing",
	})
)
