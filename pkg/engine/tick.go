package engine

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/aleka07/cloudguard/pkg/alert"
	"github.com/aleka07/cloudguard/pkg/cost"
	"github.com/aleka07/cloudguard/pkg/events"
	"github.com/aleka07/cloudguard/pkg/health"
	"github.com/aleka07/cloudguard/pkg/metrics"
	"github.com/aleka07/cloudguard/pkg/model"
	"github.com/aleka07/cloudguard/pkg/telemetry"
)

// Model accuracy blends the previous value with each forecast's confidence.
const (
	accuracyDecay = 0.8
	minAccuracy   = 70
	maxAccuracy   = 99
)

// SampleNow runs one sample tick for the twin outside its schedule. It works
// whether or not the twin is being monitored and ignores failure backoff.
func (e *Engine) SampleNow(ctx context.Context, twinID string) error {
	rt, err := e.lookup(twinID)
	if err != nil {
		return err
	}
	return e.sampleTick(ctx, rt, false)
}

// PredictNow runs one prediction cycle for the twin outside its schedule. It
// returns an InsufficientDataError while the history is too short.
func (e *Engine) PredictNow(ctx context.Context, twinID string) error {
	rt, err := e.lookup(twinID)
	if err != nil {
		return err
	}
	return e.predictTick(ctx, rt)
}

// sampleTick collects one sample and derives anomalies, health and alerts
// from it. A telemetry failure leaves the twin exactly as it was.
func (e *Engine) sampleTick(ctx context.Context, rt *twinRuntime, scheduled bool) error {
	rt.tickMu.Lock()
	defer rt.tickMu.Unlock()
	if rt.removed {
		return model.UnknownTwinError(rt.id)
	}

	start := time.Now()
	defer func() {
		e.metrics.TickDuration.WithLabelValues(metrics.KindSample).Observe(time.Since(start).Seconds())
	}()
	log := e.log.With(zap.String("twin_id", rt.id), zap.String("resource_id", rt.resourceID))

	now := e.now()
	if scheduled && now.Before(rt.skipUntil) {
		e.metrics.TicksTotal.WithLabelValues(metrics.KindSample, metrics.StatusSkipped).Inc()
		log.Debug("Sample tick skipped during backoff", zap.Time("until", rt.skipUntil))
		return nil
	}

	sample, err := telemetry.Collect(ctx, e.source, rt.resourceID, e.cfg.TelemetryTimeout)
	if err != nil {
		if scheduled && ctx.Err() != nil {
			// Paused mid-collect.
			return nil
		}
		rt.failures++
		if rt.backoff != nil {
			rt.skipUntil = now.Add(rt.backoff.NextBackOff())
		}
		e.metrics.TicksTotal.WithLabelValues(metrics.KindSample, metrics.StatusError).Inc()
		log.Warn("Telemetry collection failed", zap.Error(err), zap.Int("consecutive_failures", rt.failures))
		e.publish(events.TwinError, rt.id, events.TickError{
			Kind:                metrics.KindSample,
			Error:               err.Error(),
			ConsecutiveFailures: rt.failures,
		})
		return err
	}
	if rt.failures > 0 {
		log.Info("Telemetry recovered", zap.Int("failures", rt.failures))
	}
	rt.failures = 0
	rt.skipUntil = time.Time{}
	if rt.backoff != nil {
		rt.backoff.Reset()
	}
	if sample.Timestamp.IsZero() {
		sample.Timestamp = now
	}

	rt.mu.RLock()
	prior := rt.hist.samples(e.detector.Window)
	rt.mu.RUnlock()

	anomalies, err := e.detector.Detect(prior, sample)
	if err != nil && !model.IsInsufficientData(err) {
		log.Warn("Anomaly detection failed", zap.Error(err))
	}
	score := health.Score(sample)

	raised := alert.Evaluate(sample, e.Thresholds())
	for i := range raised {
		raised[i].TwinID = rt.id
	}
	published := rt.debouncer.Filter(raised)

	rt.mu.Lock()
	rt.twin.CurrentState = sample
	rt.twin.HealthScore = score
	rt.twin.Anomalies = anomalies
	rt.twin.Alerts = raised
	rt.twin.LastSyncTime = now
	rt.twin.UpdatedAt = now
	rt.hist.push(model.HistoryPoint{Timestamp: now, Sample: sample})
	rt.mu.Unlock()

	e.metrics.TicksTotal.WithLabelValues(metrics.KindSample, metrics.StatusOK).Inc()
	e.publish(events.MetricsUpdated, rt.id, events.MetricsUpdate{Sample: sample, HealthScore: score})
	for _, a := range anomalies {
		e.metrics.AnomaliesTotal.WithLabelValues(string(a.Metric), string(a.Severity)).Inc()
		log.Info("Anomaly detected",
			zap.String("metric", string(a.Metric)),
			zap.String("severity", string(a.Severity)),
			zap.Float64("value", a.Value),
			zap.Float64("expected", a.Expected))
		e.publish(events.AnomalyDetected, rt.id, a)
	}
	for _, ev := range published {
		e.metrics.AlertsTotal.WithLabelValues(string(ev.Metric), string(ev.Level)).Inc()
		typ := events.AlertWarning
		if ev.Level == model.AlertCritical {
			typ = events.AlertCritical
		}
		log.Info("Alert raised", zap.String("metric", string(ev.Metric)), zap.String("level", string(ev.Level)), zap.Float64("value", ev.Value))
		e.publish(typ, rt.id, ev)
	}
	return nil
}

// predictTick forecasts from the retained history, attaches a cost projection
// and recommendations, and updates model accuracy.
func (e *Engine) predictTick(ctx context.Context, rt *twinRuntime) error {
	rt.tickMu.Lock()
	defer rt.tickMu.Unlock()
	if rt.removed {
		return model.UnknownTwinError(rt.id)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	defer func() {
		e.metrics.TickDuration.WithLabelValues(metrics.KindPredict).Observe(time.Since(start).Seconds())
	}()
	log := e.log.With(zap.String("twin_id", rt.id), zap.String("resource_id", rt.resourceID))

	rt.mu.RLock()
	window := rt.hist.samples(e.predictor.Window)
	snapshot := rt.twin
	rt.mu.RUnlock()

	bundle, err := e.predictor.Predict(window)
	if err != nil {
		if model.IsInsufficientData(err) {
			e.metrics.TicksTotal.WithLabelValues(metrics.KindPredict, metrics.StatusInsufficient).Inc()
			log.Debug("Prediction skipped", zap.Error(err))
		} else {
			e.metrics.TicksTotal.WithLabelValues(metrics.KindPredict, metrics.StatusError).Inc()
			log.Warn("Prediction failed", zap.Error(err))
			e.publish(events.TwinError, rt.id, events.TickError{Kind: metrics.KindPredict, Error: err.Error()})
		}
		return err
	}
	bundle.Cost = cost.Project(e.estimator, rt.resourceType, window)

	recs := e.recommender.Recommend(&snapshot, bundle)

	previous := snapshot.ModelAccuracy
	accuracy := model.Clamp(accuracyDecay*previous+(1-accuracyDecay)*bundle.Confidence, minAccuracy, maxAccuracy)
	now := e.now()

	rt.mu.Lock()
	rt.twin.PredictedState = bundle
	rt.twin.Recommendations = recs
	rt.twin.ModelAccuracy = accuracy
	rt.twin.UpdatedAt = now
	rt.mu.Unlock()

	e.metrics.TicksTotal.WithLabelValues(metrics.KindPredict, metrics.StatusOK).Inc()
	log.Debug("Predictions generated",
		zap.Float64("confidence", bundle.Confidence),
		zap.Int("recommendations", len(recs)))

	forecastCopy := *bundle
	if bundle.Cost != nil {
		c := *bundle.Cost
		forecastCopy.Cost = &c
	}
	e.publish(events.PredictionsGenerated, rt.id, events.PredictionUpdate{
		Forecast:        forecastCopy,
		Recommendations: append([]model.Recommendation(nil), recs...),
	})
	if math.Round(accuracy) != math.Round(previous) {
		e.publish(events.ModelUpdated, rt.id, events.ModelUpdate{Accuracy: accuracy})
	}
	return nil
}
