package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// safety monitor.
type Metrics struct {
	MonitorRunning      prometheus.Gauge
	TrackedEntities     prometheus.Gauge
	EntitiesInDanger    prometheus.Gauge
	ActiveSubscriptions prometheus.Gauge

	ReconcilePasses   prometheus.Counter
	ReconcileDuration prometheus.Histogram
	Evaluations       prometheus.Counter

	// Hazard set metrics.
	HazardPoints        prometheus.Gauge
	HazardPointsDropped prometheus.Counter
	HazardFetchErrors   prometheus.Counter
	HazardFetchDuration prometheus.Histogram

	// Verdict store metrics.
	VerdictWrites           prometheus.Counter
	VerdictWriteErrors      prometheus.Counter
	VerdictWritesSuppressed prometheus.Counter
}

// NewMetrics creates and registers all monitor metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.MonitorRunning,
		m.TrackedEntities,
		m.EntitiesInDanger,
		m.ActiveSubscriptions,
		m.ReconcilePasses,
		m.ReconcileDuration,
		m.Evaluations,
		m.HazardPoints,
		m.HazardPointsDropped,
		m.HazardFetchErrors,
		m.HazardFetchDuration,
		m.VerdictWrites,
		m.VerdictWriteErrors,
		m.VerdictWritesSuppressed,
	)

	return m
}

// NewMetricsForTesting creates Metrics without touching the default
// registry, avoiding "already registered" panics across tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		MonitorRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wildfire_monitor",
			Name:      "running",
			Help:      "1 while monitoring is active, 0 when stopped.",
		}),
		TrackedEntities: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wildfire_monitor",
			Name:      "tracked_entities",
			Help:      "Entities currently online and evaluated each pass.",
		}),
		EntitiesInDanger: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wildfire_monitor",
			Name:      "entities_in_danger",
			Help:      "Entities whose latest verdict is unsafe.",
		}),
		ActiveSubscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wildfire_monitor",
			Name:      "active_subscriptions",
			Help:      "Live feed subscriptions currently held.",
		}),
		ReconcilePasses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wildfire_monitor",
			Name:      "reconcile_passes_total",
			Help:      "Full re-evaluations of all entities against the hazard set.",
		}),
		ReconcileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "wildfire_monitor",
			Name:      "reconcile_duration_seconds",
			Help:      "Duration of one reconciliation pass.",
			Buckets:   []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		Evaluations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wildfire_monitor",
			Name:      "evaluations_total",
			Help:      "Per-entity safety evaluations performed.",
		}),
		HazardPoints: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wildfire_monitor",
			Name:      "hazard_points",
			Help:      "Points in the currently loaded hazard set.",
		}),
		HazardPointsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wildfire_monitor",
			Name:      "hazard_points_dropped_total",
			Help:      "Scenario points dropped during numeric normalization.",
		}),
		HazardFetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wildfire_monitor",
			Name:      "hazard_fetch_errors_total",
			Help:      "Failed hazard scenario fetches; the last-good set is retained.",
		}),
		HazardFetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "wildfire_monitor",
			Name:      "hazard_fetch_duration_seconds",
			Help:      "Duration of hazard scenario fetches.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		VerdictWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wildfire_monitor",
			Name:      "verdict_writes_total",
			Help:      "Verdict documents merge-written to the store.",
		}),
		VerdictWriteErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wildfire_monitor",
			Name:      "verdict_write_errors_total",
			Help:      "Verdict writes that failed; retried on the next pass.",
		}),
		VerdictWritesSuppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wildfire_monitor",
			Name:      "verdict_writes_suppressed_total",
			Help:      "Writes skipped because the verdict was unchanged.",
		}),
	}
}
