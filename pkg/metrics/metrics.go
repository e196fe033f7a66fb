// Package metrics holds the prometheus collectors for the twin engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Tick kinds and statuses used as label values.
const (
	KindSample  = "sample"
	KindPredict = "predict"

	StatusOK           = "ok"
	StatusError        = "error"
	StatusSkipped      = "skipped"
	StatusInsufficient = "insufficient_data"
)

// Engine metrics. Collectors are registered on the registerer passed to New
// so tests and embedded engines do not collide on the default registry.
type Engine struct {
	TicksTotal     *prometheus.CounterVec
	TickDuration   *prometheus.HistogramVec
	Twins          *prometheus.GaugeVec
	AnomaliesTotal *prometheus.CounterVec
	AlertsTotal    *prometheus.CounterVec
	EventsDropped  *prometheus.CounterVec
}

// New creates and registers the engine collectors on reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) *Engine {
	f := promauto.With(reg)
	return &Engine{
		TicksTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cloudguard_engine_ticks_total",
				Help: "Total number of twin ticks by kind and outcome",
			},
			[]string{"kind", "status"},
		),
		TickDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cloudguard_engine_tick_duration_seconds",
				Help:    "Twin tick duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
			},
			[]string{"kind"},
		),
		Twins: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cloudguard_engine_twins",
				Help: "Number of registered twins by monitoring state",
			},
			[]string{"state"},
		),
		AnomaliesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cloudguard_engine_anomalies_total",
				Help: "Total number of anomalies detected",
			},
			[]string{"metric", "severity"},
		),
		AlertsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cloudguard_engine_alerts_total",
				Help: "Total number of alerts published",
			},
			[]string{"metric", "level"},
		),
		EventsDropped: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cloudguard_engine_events_dropped_total",
				Help: "Events not delivered because a subscriber was full",
			},
			[]string{"type"},
		),
	}
}
