package engine

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds the Prometheus metrics for the journey engine.
type Metrics struct {
	TouchpointsTracked *prometheus.CounterVec
	JourneysCreated    prometheus.Counter
	JourneysUpdated    prometheus.Counter
	TrackingErrors     *prometheus.CounterVec
	JourneysTracked    prometheus.Gauge

	AnalysisRuns     *prometheus.CounterVec
	AnalysisDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers the engine metrics.
//
// Registration is guarded by sync.Once so repeated engine construction (e.g.
// in tests sharing a process) cannot panic with a duplicate collector.
// All metrics are prefixed with "journeyd_".
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			TouchpointsTracked: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "journeyd_touchpoints_tracked_total",
					Help: "Total number of touchpoints tracked",
				},
				[]string{"type"},
			),

			JourneysCreated: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "journeyd_journeys_created_total",
					Help: "Total number of journeys created",
				},
			),

			JourneysUpdated: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "journeyd_journeys_updated_total",
					Help: "Total number of journey extensions",
				},
			),

			TrackingErrors: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "journeyd_tracking_errors_total",
					Help: "Total number of failed track calls",
				},
				[]string{"reason"}, // "validation" or "stitch"
			),

			JourneysTracked: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "journeyd_journeys",
					Help: "Current number of journeys in the store",
				},
			),

			AnalysisRuns: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "journeyd_analysis_runs_total",
					Help: "Total number of analysis cycles by job and outcome",
				},
				[]string{"job", "status"},
			),

			AnalysisDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "journeyd_analysis_duration_seconds",
					Help:    "Duration of analysis cycles in seconds",
					Buckets: prometheus.ExponentialBuckets(0.001, 4, 8), // 1ms to ~16s
				},
				[]string{"job"},
			),
		}
	})

	return globalMetrics
}
