package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/aleka07/cloudguard/pkg/events"
	"github.com/aleka07/cloudguard/pkg/model"
)

// RecordedEvents are the bus patterns a Recorder subscribes to.
var RecordedEvents = []events.Type{events.MetricsUpdated, "alert.*", events.PredictionsGenerated}

// Recorder writes engine events to an EventStore. Failed writes are retried
// with exponential backoff and then dropped; the engine is never blocked.
type Recorder struct {
	store EventStore
	log   *zap.Logger

	MaxRetries      uint64
	InitialInterval time.Duration
	WriteTimeout    time.Duration
}

func NewRecorder(store EventStore, log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{
		store:           store,
		log:             log.Named("recorder"),
		MaxRetries:      3,
		InitialInterval: 200 * time.Millisecond,
		WriteTimeout:    5 * time.Second,
	}
}

// Run records events from ch until ctx is done or ch is closed.
func (r *Recorder) Run(ctx context.Context, ch <-chan events.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := r.Record(ctx, ev); err != nil && !errors.Is(err, context.Canceled) {
				r.log.Warn("Failed to record event",
					zap.String("type", string(ev.Type)),
					zap.String("twin_id", ev.TwinID),
					zap.Error(err))
			}
		}
	}
}

// Record writes one event. Events of other types are ignored.
func (r *Recorder) Record(ctx context.Context, ev events.Event) error {
	switch p := ev.Payload.(type) {
	case events.MetricsUpdate:
		records := TelemetryRecords(ev.TwinID, p)
		return r.write(ctx, "telemetry", func(ctx context.Context) error {
			return r.store.WriteTelemetry(ctx, records)
		})
	case model.AlertEvent:
		if p.TwinID == "" {
			p.TwinID = ev.TwinID
		}
		err := r.write(ctx, "alert", func(ctx context.Context) error {
			return r.store.WriteAlert(ctx, p)
		})
		if errors.Is(err, ErrConflict) {
			return nil
		}
		return err
	case events.PredictionUpdate:
		rec := PredictionRecord{
			TwinID:          ev.TwinID,
			GeneratedAt:     p.Forecast.GeneratedAt,
			Confidence:      p.Forecast.Confidence,
			Forecast:        p.Forecast,
			Recommendations: p.Recommendations,
		}
		return r.write(ctx, "prediction", func(ctx context.Context) error {
			return r.store.WritePrediction(ctx, rec)
		})
	}
	return nil
}

func (r *Recorder) write(ctx context.Context, what string, op func(context.Context) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.InitialInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(b, r.MaxRetries), ctx)

	operation := func() error {
		wctx, cancel := context.WithTimeout(ctx, r.WriteTimeout)
		defer cancel()
		err := op(wctx)
		if errors.Is(err, ErrConflict) || errors.Is(err, ErrEmpty) {
			return backoff.Permanent(err)
		}
		return err
	}
	err := backoff.RetryNotify(operation, policy, func(err error, d time.Duration) {
		r.log.Debug("Retrying write", zap.String("record", what), zap.Duration("in", d), zap.Error(err))
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", what, err)
	}
	return nil
}

// TelemetryRecords flattens a metrics update into one record per metric plus
// the health score.
func TelemetryRecords(twinID string, u events.MetricsUpdate) []TelemetryRecord {
	records := make([]TelemetryRecord, 0, len(model.AllMetrics)+1)
	for _, m := range model.AllMetrics {
		v, _ := u.Sample.Value(m)
		records = append(records, TelemetryRecord{Timestamp: u.Sample.Timestamp, TwinID: twinID, Name: string(m), Value: v})
	}
	return append(records, TelemetryRecord{Timestamp: u.Sample.Timestamp, TwinID: twinID, Name: "health", Value: u.HealthScore})
}
