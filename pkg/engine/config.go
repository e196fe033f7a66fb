package engine

import (
	"time"

	"go.uber.org/zap"

	"github.com/aleka07/cloudguard/pkg/alert"
	"github.com/aleka07/cloudguard/pkg/anomaly"
	"github.com/aleka07/cloudguard/pkg/cost"
	"github.com/aleka07/cloudguard/pkg/forecast"
	"github.com/aleka07/cloudguard/pkg/metrics"
	"github.com/aleka07/cloudguard/pkg/model"
	"github.com/aleka07/cloudguard/pkg/recommend"
)

// MaxHistoryCapacity bounds the samples retained per twin.
const MaxHistoryCapacity = 1000

// Config holds the engine's scheduling and policy settings. Zero fields take
// the value from DefaultConfig.
type Config struct {
	SampleInterval     time.Duration
	PredictionInterval time.Duration
	HistoryCapacity    int
	TelemetryTimeout   time.Duration
	EventBuffer        int

	AlertDebounce alert.Mode
	Thresholds    []model.AlertThreshold

	FailureBackoff BackoffConfig
}

// BackoffConfig controls skipping of scheduled sample ticks after repeated
// telemetry failures.
type BackoffConfig struct {
	Enabled         bool
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultConfig returns the reference cadence: samples every 2s, predictions
// every 30s, 1000 retained samples.
func DefaultConfig() Config {
	return Config{
		SampleInterval:     2 * time.Second,
		PredictionInterval: 30 * time.Second,
		HistoryCapacity:    MaxHistoryCapacity,
		TelemetryTimeout:   time.Second,
		EventBuffer:        256,
		AlertDebounce:      alert.ModeTransition,
		Thresholds:         alert.DefaultThresholds(),
		FailureBackoff: BackoffConfig{
			InitialInterval: 4 * time.Second,
			MaxInterval:     2 * time.Minute,
		},
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.SampleInterval <= 0 {
		c.SampleInterval = d.SampleInterval
	}
	if c.PredictionInterval <= 0 {
		c.PredictionInterval = d.PredictionInterval
	}
	if c.HistoryCapacity <= 0 {
		c.HistoryCapacity = d.HistoryCapacity
	}
	c.HistoryCapacity = min(c.HistoryCapacity, MaxHistoryCapacity)
	if c.TelemetryTimeout <= 0 {
		c.TelemetryTimeout = d.TelemetryTimeout
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = d.EventBuffer
	}
	if c.AlertDebounce == "" {
		c.AlertDebounce = d.AlertDebounce
	}
	if c.Thresholds == nil {
		c.Thresholds = d.Thresholds
	}
	if c.FailureBackoff.InitialInterval <= 0 {
		c.FailureBackoff.InitialInterval = d.FailureBackoff.InitialInterval
	}
	if c.FailureBackoff.MaxInterval <= 0 {
		c.FailureBackoff.MaxInterval = d.FailureBackoff.MaxInterval
	}
	return c
}

// Option customizes an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithMetrics sets the prometheus collectors.
func WithMetrics(m *metrics.Engine) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithClock replaces time.Now for every timestamp the engine produces.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithDetector replaces the anomaly detector.
func WithDetector(d *anomaly.Detector) Option {
	return func(e *Engine) { e.detector = d }
}

// WithPredictor replaces the trend predictor.
func WithPredictor(p *forecast.Predictor) Option {
	return func(e *Engine) { e.predictor = p }
}

// WithRecommender replaces the recommendation generator.
func WithRecommender(g *recommend.Generator) Option {
	return func(e *Engine) { e.recommender = g }
}

// WithEstimator replaces the cost estimator.
func WithEstimator(est cost.Estimator) Option {
	return func(e *Engine) { e.estimator = est }
}

// CreateOption customizes a single CreateTwin call.
type CreateOption func(*createOptions)

type createOptions struct {
	organizationID string
	realTime       bool
	predictions    bool
}

// DefaultOrganization owns twins created without InOrganization.
const DefaultOrganization = "default"

// InOrganization sets the owning organization.
func InOrganization(orgID string) CreateOption {
	return func(o *createOptions) { o.organizationID = orgID }
}

// WithRealTime controls whether monitoring starts immediately. Default true.
func WithRealTime(enabled bool) CreateOption {
	return func(o *createOptions) { o.realTime = enabled }
}

// WithPredictions controls whether the prediction timer runs. Default true.
func WithPredictions(enabled bool) CreateOption {
	return func(o *createOptions) { o.predictions = enabled }
}
