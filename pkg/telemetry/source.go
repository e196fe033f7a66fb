// Package telemetry defines where twins get their samples from.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/aleka07/cloudguard/pkg/model"
)

// Source produces the next observation for a cloud resource. Implementations
// must honour ctx cancellation and be safe for concurrent use.
type Source interface {
	Collect(ctx context.Context, resourceID string) (model.MetricSample, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, resourceID string) (model.MetricSample, error)

// Collect calls f.
func (f SourceFunc) Collect(ctx context.Context, resourceID string) (model.MetricSample, error) {
	return f(ctx, resourceID)
}

// Collect calls src with a deadline of timeout (none if timeout <= 0). A
// source that ignores its context is abandoned when the deadline passes. Any
// failure, including a panic or an out-of-range sample, comes back as a
// *model.TelemetrySourceError.
func Collect(ctx context.Context, src Source, resourceID string, timeout time.Duration) (model.MetricSample, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan collectResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- collectResult{err: fmt.Errorf("telemetry source panicked: %v", r)}
			}
		}()
		s, err := src.Collect(ctx, resourceID)
		done <- collectResult{s, err}
	}()

	r := await(ctx, done)
	if r.err != nil {
		return model.MetricSample{}, model.NewTelemetrySourceError(resourceID, r.err)
	}
	if err := r.sample.Validate(); err != nil {
		return model.MetricSample{}, model.NewTelemetrySourceError(resourceID, err)
	}
	return r.sample, nil
}

type collectResult struct {
	sample model.MetricSample
	err    error
}

// await waits for the source or the context. A result that is already
// available wins over an expired context.
func await(ctx context.Context, done <-chan collectResult) collectResult {
	select {
	case r := <-done:
		return r
	case <-ctx.Done():
		select {
		case r := <-done:
			return r
		default:
			return collectResult{err: ctx.Err()}
		}
	}
}
