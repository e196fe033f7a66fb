// Package engine keeps a live, continuously updated model of each monitored
// resource. Every twin runs its own sampling and prediction schedule; a slow
// or failing telemetry source for one twin never delays another.
package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aleka07/cloudguard/pkg/alert"
	"github.com/aleka07/cloudguard/pkg/anomaly"
	"github.com/aleka07/cloudguard/pkg/cost"
	"github.com/aleka07/cloudguard/pkg/events"
	"github.com/aleka07/cloudguard/pkg/forecast"
	"github.com/aleka07/cloudguard/pkg/health"
	"github.com/aleka07/cloudguard/pkg/metrics"
	"github.com/aleka07/cloudguard/pkg/model"
	"github.com/aleka07/cloudguard/pkg/recommend"
	"github.com/aleka07/cloudguard/pkg/telemetry"
)

// initialModelAccuracy seeds ModelAccuracy at creation.
const initialModelAccuracy = 85

type resourceKey struct {
	organizationID string
	resourceID     string
}

// Engine owns the twin registry. It is safe for concurrent use and must not
// be reused after Shutdown.
type Engine struct {
	cfg    Config
	source telemetry.Source

	detector    *anomaly.Detector
	predictor   *forecast.Predictor
	recommender *recommend.Generator
	estimator   cost.Estimator

	bus     *events.Bus
	metrics *metrics.Engine
	log     *zap.Logger
	now     func() time.Time

	mu         sync.RWMutex
	twins      map[string]*twinRuntime
	byResource map[resourceKey]string
	closed     bool

	thresholdsMu sync.RWMutex
	thresholds   []model.AlertThreshold
}

// twinRuntime is the live state of one twin. tickMu serializes writers
// (scheduled and manual ticks); mu guards the fields readers copy.
type twinRuntime struct {
	id           string
	resourceID   string
	resourceType model.ResourceType

	tickMu    sync.Mutex
	debouncer *alert.Debouncer
	backoff   *backoff.ExponentialBackOff
	failures  int
	skipUntil time.Time
	removed   bool

	mu      sync.RWMutex
	twin    model.Twin // History is kept in hist, not here
	hist    *history
	monitor sync.Mutex // guards cancel, done and stopped
	cancel  context.CancelFunc
	done    chan struct{}
	stopped bool
}

// New creates an engine that samples from source.
func New(cfg Config, source telemetry.Source, opts ...Option) *Engine {
	e := &Engine{
		cfg:        cfg.withDefaults(),
		source:     source,
		twins:      make(map[string]*twinRuntime),
		byResource: make(map[resourceKey]string),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	if e.metrics == nil {
		e.metrics = metrics.New(nil)
	}
	if e.detector == nil {
		e.detector = anomaly.NewDetector()
		e.detector.Now = e.now
	}
	if e.predictor == nil {
		e.predictor = forecast.NewPredictor()
		e.predictor.Step = e.cfg.SampleInterval
		e.predictor.Now = e.now
	}
	if e.recommender == nil {
		e.recommender = recommend.NewGenerator(nil)
		e.recommender.Now = e.now
	}
	if e.estimator == nil {
		e.estimator = cost.DefaultEstimator
	}
	e.thresholds = append([]model.AlertThreshold(nil), e.cfg.Thresholds...)

	e.bus = events.NewBus(e.cfg.EventBuffer)
	e.bus.OnDrop = func(ev events.Event) {
		e.metrics.EventsDropped.WithLabelValues(string(ev.Type)).Inc()
	}
	e.publish(events.EngineStarted, "", nil)
	e.log.Info("Engine started",
		zap.Duration("sample_interval", e.cfg.SampleInterval),
		zap.Duration("prediction_interval", e.cfg.PredictionInterval),
		zap.Int("history_capacity", e.cfg.HistoryCapacity))
	return e
}

// Subscribe registers for engine events; see events.Bus.Subscribe.
func (e *Engine) Subscribe(patterns ...events.Type) (<-chan events.Event, func()) {
	return e.bus.Subscribe(patterns...)
}

// Thresholds returns a copy of the alert threshold table in use.
func (e *Engine) Thresholds() []model.AlertThreshold {
	e.thresholdsMu.RLock()
	defer e.thresholdsMu.RUnlock()
	return append([]model.AlertThreshold(nil), e.thresholds...)
}

// SetThresholds replaces the alert threshold table. It takes effect from the
// next sample tick of every twin.
func (e *Engine) SetThresholds(ts []model.AlertThreshold) error {
	if err := alert.ValidateThresholds(ts); err != nil {
		return err
	}
	e.thresholdsMu.Lock()
	e.thresholds = append([]model.AlertThreshold(nil), ts...)
	e.thresholdsMu.Unlock()
	e.log.Info("Alert thresholds updated", zap.Int("count", len(ts)))
	return nil
}

// CreateTwin registers a twin for resourceID seeded with initial, which
// becomes the first history point. Monitoring starts immediately unless
// WithRealTime(false) is given. Only one twin may exist per organization and
// resource; the caller must remove the old one first.
func (e *Engine) CreateTwin(resourceID string, initial model.MetricSample, opts ...CreateOption) (*model.Twin, error) {
	resourceID = strings.TrimSpace(resourceID)
	if resourceID == "" {
		return nil, fmt.Errorf("%w: resource id is required", model.ErrInvalidRequest)
	}
	if err := initial.Validate(); err != nil {
		return nil, err
	}
	o := createOptions{organizationID: DefaultOrganization, realTime: true, predictions: true}
	for _, opt := range opts {
		opt(&o)
	}
	if o.organizationID == "" {
		o.organizationID = DefaultOrganization
	}

	now := e.now()
	if initial.Timestamp.IsZero() {
		initial.Timestamp = now
	}
	rt := &twinRuntime{
		id:           "twin-" + uuid.NewString(),
		resourceID:   resourceID,
		resourceType: model.InferResourceType(resourceID),
		debouncer:    alert.NewDebouncer(e.cfg.AlertDebounce),
		hist:         newHistory(e.cfg.HistoryCapacity),
	}
	if e.cfg.FailureBackoff.Enabled {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = e.cfg.FailureBackoff.InitialInterval
		b.MaxInterval = e.cfg.FailureBackoff.MaxInterval
		b.MaxElapsedTime = 0
		b.Reset()
		rt.backoff = b
	}
	rt.twin = model.Twin{
		ID:                 rt.id,
		OrganizationID:     o.organizationID,
		ResourceID:         resourceID,
		ResourceType:       rt.resourceType,
		State:              model.StatePaused,
		PredictionsEnabled: o.predictions,
		CurrentState:       initial,
		HealthScore:        health.Score(initial),
		ModelAccuracy:      initialModelAccuracy,
		LastSyncTime:       now,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	rt.hist.push(model.HistoryPoint{Timestamp: initial.Timestamp, Sample: initial})

	key := resourceKey{o.organizationID, resourceID}
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, model.ErrEngineClosed
	}
	if existing, ok := e.byResource[key]; ok {
		e.mu.Unlock()
		return nil, model.DuplicateTwinError(o.organizationID, resourceID, existing)
	}
	e.twins[rt.id] = rt
	e.byResource[key] = rt.id
	e.mu.Unlock()

	e.metrics.Twins.WithLabelValues(string(model.StatePaused)).Inc()
	e.log.Info("Twin created",
		zap.String("twin_id", rt.id),
		zap.String("organization_id", o.organizationID),
		zap.String("resource_id", resourceID),
		zap.String("resource_type", string(rt.resourceType)))
	e.publish(events.TwinCreated, rt.id, *rt.snapshot())

	if o.realTime {
		if err := e.start(rt); err != nil {
			return nil, err
		}
	}
	return rt.snapshot(), nil
}

// StartMonitoring resumes the twin's schedule. Starting an active twin is a
// no-op.
func (e *Engine) StartMonitoring(twinID string) error {
	rt, err := e.lookup(twinID)
	if err != nil {
		return err
	}
	return e.start(rt)
}

// PauseMonitoring stops the twin's schedule. When it returns no further
// scheduled tick will run. Pausing a paused twin is a no-op.
func (e *Engine) PauseMonitoring(twinID string) error {
	rt, err := e.lookup(twinID)
	if err != nil {
		return err
	}
	e.stop(rt, false)
	return nil
}

// RunSimulation previews scenario applied to the twin's current state. The
// live twin is not touched.
func (e *Engine) RunSimulation(twinID string, scenario model.Scenario) (model.MetricSample, error) {
	rt, err := e.lookup(twinID)
	if err != nil {
		return model.MetricSample{}, err
	}
	rt.mu.RLock()
	current := rt.twin.CurrentState
	rt.mu.RUnlock()
	return scenario.Apply(current), nil
}

// GetTwin returns a snapshot of the twin including its history.
func (e *Engine) GetTwin(twinID string) (*model.Twin, error) {
	rt, err := e.lookup(twinID)
	if err != nil {
		return nil, err
	}
	return rt.snapshot(), nil
}

// ListTwins returns snapshots of every twin, oldest first.
func (e *Engine) ListTwins() []*model.Twin {
	e.mu.RLock()
	rts := make([]*twinRuntime, 0, len(e.twins))
	for _, rt := range e.twins {
		rts = append(rts, rt)
	}
	e.mu.RUnlock()

	out := make([]*model.Twin, 0, len(rts))
	for _, rt := range rts {
		out = append(out, rt.snapshot())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// GetHistory returns the newest limit history points in arrival order, or
// all of them when limit <= 0.
func (e *Engine) GetHistory(twinID string, limit int) ([]model.HistoryPoint, error) {
	rt, err := e.lookup(twinID)
	if err != nil {
		return nil, err
	}
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.hist.last(limit), nil
}

// RemoveTwin stops and deregisters the twin and returns its final snapshot.
// The (organization, resource) pair becomes free for a new twin.
func (e *Engine) RemoveTwin(twinID string) (*model.Twin, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, model.ErrEngineClosed
	}
	rt, ok := e.twins[twinID]
	if !ok {
		e.mu.Unlock()
		return nil, model.UnknownTwinError(twinID)
	}
	delete(e.twins, twinID)
	rt.mu.RLock()
	key := resourceKey{rt.twin.OrganizationID, rt.resourceID}
	rt.mu.RUnlock()
	delete(e.byResource, key)
	e.mu.Unlock()

	e.stop(rt, true)

	// Wait out any manual tick that looked the twin up before removal.
	rt.tickMu.Lock()
	rt.removed = true
	rt.tickMu.Unlock()

	final := rt.snapshot()
	e.metrics.Twins.WithLabelValues(string(final.State)).Dec()
	e.log.Info("Twin removed", zap.String("twin_id", twinID), zap.String("resource_id", rt.resourceID))
	e.publish(events.TwinRemoved, twinID, *final)
	return final, nil
}

// Shutdown stops every schedule and closes the event bus. The engine rejects
// all further operations.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	rts := make([]*twinRuntime, 0, len(e.twins))
	for _, rt := range e.twins {
		rts = append(rts, rt)
	}
	e.mu.Unlock()

	var wg sync.WaitGroup
	for _, rt := range rts {
		wg.Add(1)
		go func(rt *twinRuntime) {
			defer wg.Done()
			e.stop(rt, true)
		}(rt)
	}
	wg.Wait()

	e.publish(events.EngineStopped, "", nil)
	e.bus.Close()
	e.log.Info("Engine stopped", zap.Int("twins", len(rts)))
}

func (e *Engine) lookup(twinID string) (*twinRuntime, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return nil, model.ErrEngineClosed
	}
	rt, ok := e.twins[twinID]
	if !ok {
		return nil, model.UnknownTwinError(twinID)
	}
	return rt, nil
}

// start launches the twin's scheduler goroutine unless it is already running
// or the twin has been stopped for good.
func (e *Engine) start(rt *twinRuntime) error {
	rt.monitor.Lock()
	defer rt.monitor.Unlock()
	if rt.stopped {
		return model.ErrEngineClosed
	}
	if rt.cancel != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	rt.cancel = cancel
	rt.done = done

	rt.mu.Lock()
	rt.twin.State = model.StateActive
	rt.twin.Active = true
	predictions := rt.twin.PredictionsEnabled
	rt.mu.Unlock()

	go e.run(ctx, rt, predictions, done)

	e.metrics.Twins.WithLabelValues(string(model.StatePaused)).Dec()
	e.metrics.Twins.WithLabelValues(string(model.StateActive)).Inc()
	e.log.Info("Monitoring started", zap.String("twin_id", rt.id))
	e.publish(events.MonitoringStarted, rt.id, model.StateActive)
	return nil
}

// stop cancels the scheduler and waits for it to exit. With final set the
// twin can never be started again.
func (e *Engine) stop(rt *twinRuntime, final bool) {
	rt.monitor.Lock()
	defer rt.monitor.Unlock()
	if final {
		rt.stopped = true
	}
	if rt.cancel == nil {
		return
	}
	rt.cancel()
	<-rt.done
	rt.cancel = nil
	rt.done = nil

	rt.mu.Lock()
	rt.twin.State = model.StatePaused
	rt.twin.Active = false
	rt.mu.Unlock()

	e.metrics.Twins.WithLabelValues(string(model.StateActive)).Dec()
	e.metrics.Twins.WithLabelValues(string(model.StatePaused)).Inc()
	e.log.Info("Monitoring paused", zap.String("twin_id", rt.id))
	e.publish(events.MonitoringPaused, rt.id, model.StatePaused)
}

// run is the per-twin scheduler loop.
func (e *Engine) run(ctx context.Context, rt *twinRuntime, predictions bool, done chan struct{}) {
	defer close(done)

	sample := time.NewTicker(e.cfg.SampleInterval)
	defer sample.Stop()

	var predict <-chan time.Time
	if predictions {
		t := time.NewTicker(e.cfg.PredictionInterval)
		defer t.Stop()
		predict = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-sample.C:
			e.guard(rt, metrics.KindSample, func() { _ = e.sampleTick(ctx, rt, true) })
		case <-predict:
			e.guard(rt, metrics.KindPredict, func() { _ = e.predictTick(ctx, rt) })
		}
	}
}

// guard keeps a panicking component from killing the scheduler loop.
func (e *Engine) guard(rt *twinRuntime, kind string, tick func()) {
	defer func() {
		if r := recover(); r != nil {
			e.metrics.TicksTotal.WithLabelValues(kind, metrics.StatusError).Inc()
			e.log.Error("Tick panicked", zap.String("twin_id", rt.id), zap.String("kind", kind), zap.Any("panic", r))
			e.publish(events.TwinError, rt.id, events.TickError{Kind: kind, Error: fmt.Sprint(r)})
		}
	}()
	tick()
}

func (e *Engine) publish(t events.Type, twinID string, payload any) {
	e.bus.Publish(events.Event{Type: t, TwinID: twinID, Payload: payload, Timestamp: e.now()})
}

// snapshot returns a deep copy of the twin with its history attached.
func (rt *twinRuntime) snapshot() *model.Twin {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	t := rt.twin.Clone()
	t.History = rt.hist.last(0)
	return t
}
