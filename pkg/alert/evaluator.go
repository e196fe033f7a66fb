// Package alert compares samples against per-metric thresholds.
package alert

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/aleka07/cloudguard/pkg/model"
)

// DefaultThresholds is the table seeded at startup.
func DefaultThresholds() []model.AlertThreshold {
	return []model.AlertThreshold{
		{Metric: model.MetricCPU, Warning: 80, Critical: 90},
		{Metric: model.MetricMemory, Warning: 85, Critical: 95},
		{Metric: model.MetricErrors, Warning: 5, Critical: 20},
	}
}

// ValidateThresholds reports the first malformed entry in ts.
func ValidateThresholds(ts []model.AlertThreshold) error {
	seen := make(map[model.Metric]bool, len(ts))
	for _, t := range ts {
		if _, ok := (model.MetricSample{}).Value(t.Metric); !ok {
			return fmt.Errorf("alert threshold: unknown metric '%s'", t.Metric)
		}
		if seen[t.Metric] {
			return fmt.Errorf("alert threshold: duplicate metric '%s'", t.Metric)
		}
		seen[t.Metric] = true
		if t.Warning > t.Critical {
			return fmt.Errorf("alert threshold '%s': warning %.2f above critical %.2f", t.Metric, t.Warning, t.Critical)
		}
	}
	return nil
}

// Evaluate raises at most one event per threshold entry: critical when the
// value reaches Critical, otherwise warning when it reaches Warning. TwinID is
// left for the caller to fill in.
func Evaluate(latest model.MetricSample, thresholds []model.AlertThreshold) []model.AlertEvent {
	var out []model.AlertEvent
	for _, t := range thresholds {
		v, ok := latest.Value(t.Metric)
		if !ok {
			continue
		}
		level, limit := Level(v, t)
		if level == model.AlertNone {
			continue
		}
		out = append(out, model.AlertEvent{
			ID:        "alert-" + uuid.NewString(),
			Metric:    t.Metric,
			Level:     level,
			Value:     v,
			Threshold: limit,
			Message:   fmt.Sprintf("%s at %.1f reached %s threshold %.1f", t.Metric, v, level, limit),
			Timestamp: latest.Timestamp,
		})
	}
	return out
}

// Level classifies v against t and returns the limit that was reached.
func Level(v float64, t model.AlertThreshold) (model.AlertLevel, float64) {
	switch {
	case v >= t.Critical:
		return model.AlertCritical, t.Critical
	case v >= t.Warning:
		return model.AlertWarning, t.Warning
	}
	return model.AlertNone, 0
}
