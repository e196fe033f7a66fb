package alert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleka07/cloudguard/pkg/model"
)

func TestEvaluate(t *testing.T) {
	at := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	tests := []struct {
		name   string
		sample model.MetricSample
		want   map[model.Metric]model.AlertLevel
	}{
		{"quiet", model.MetricSample{CPU: 50, Memory: 50, Errors: 1}, map[model.Metric]model.AlertLevel{}},
		{"cpu warning at boundary", model.MetricSample{CPU: 80}, map[model.Metric]model.AlertLevel{model.MetricCPU: model.AlertWarning}},
		{"cpu critical at boundary", model.MetricSample{CPU: 90}, map[model.Metric]model.AlertLevel{model.MetricCPU: model.AlertCritical}},
		{"memory warning", model.MetricSample{Memory: 88}, map[model.Metric]model.AlertLevel{model.MetricMemory: model.AlertWarning}},
		{"errors critical", model.MetricSample{Errors: 25}, map[model.Metric]model.AlertLevel{model.MetricErrors: model.AlertCritical}},
		{
			"several at once",
			model.MetricSample{CPU: 95, Memory: 86, Errors: 6},
			map[model.Metric]model.AlertLevel{
				model.MetricCPU:    model.AlertCritical,
				model.MetricMemory: model.AlertWarning,
				model.MetricErrors: model.AlertWarning,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.sample.Timestamp = at
			got := Evaluate(tt.sample, DefaultThresholds())
			require.Len(t, got, len(tt.want))
			for _, ev := range got {
				assert.Equal(t, tt.want[ev.Metric], ev.Level, ev.Metric)
				assert.Equal(t, at, ev.Timestamp)
				assert.NotEmpty(t, ev.ID)
				assert.NotEmpty(t, ev.Message)
			}
		})
	}
}

func TestEvaluateReportsReachedLimit(t *testing.T) {
	got := Evaluate(model.MetricSample{CPU: 93}, DefaultThresholds())
	require.Len(t, got, 1)
	assert.Equal(t, 93.0, got[0].Value)
	assert.Equal(t, 90.0, got[0].Threshold)
}

func TestEvaluateCustomThresholds(t *testing.T) {
	ts := []model.AlertThreshold{{Metric: model.MetricLatency, Warning: 200, Critical: 500}}
	got := Evaluate(model.MetricSample{CPU: 99, Latency: 250}, ts)
	require.Len(t, got, 1)
	assert.Equal(t, model.MetricLatency, got[0].Metric)
	assert.Equal(t, model.AlertWarning, got[0].Level)
}

func TestValidateThresholds(t *testing.T) {
	assert.NoError(t, ValidateThresholds(DefaultThresholds()))
	assert.Error(t, ValidateThresholds([]model.AlertThreshold{{Metric: "temperature", Warning: 1, Critical: 2}}))
	assert.Error(t, ValidateThresholds([]model.AlertThreshold{{Metric: model.MetricCPU, Warning: 95, Critical: 90}}))
	assert.Error(t, ValidateThresholds([]model.AlertThreshold{
		{Metric: model.MetricCPU, Warning: 80, Critical: 90},
		{Metric: model.MetricCPU, Warning: 70, Critical: 90},
	}))
}

func TestDebouncerTransition(t *testing.T) {
	d := NewDebouncer(ModeTransition)
	ts := DefaultThresholds()
	step := func(cpu float64) []model.AlertEvent {
		return d.Filter(Evaluate(model.MetricSample{CPU: cpu}, ts))
	}

	assert.Len(t, step(85), 1, "normal to warning")
	assert.Empty(t, step(86), "sustained warning")
	got := step(95)
	require.Len(t, got, 1, "warning to critical")
	assert.Equal(t, model.AlertCritical, got[0].Level)
	assert.Empty(t, step(96), "sustained critical")
	assert.Empty(t, step(85), "critical down to warning")
	assert.Len(t, step(92), 1, "warning back up to critical")
	assert.Empty(t, step(40), "normal")
	assert.Len(t, step(81), 1, "re-armed after normal")
}

func TestDebouncerTracksMetricsIndependently(t *testing.T) {
	d := NewDebouncer(ModeTransition)
	ts := DefaultThresholds()

	first := d.Filter(Evaluate(model.MetricSample{CPU: 85}, ts))
	require.Len(t, first, 1)

	second := d.Filter(Evaluate(model.MetricSample{CPU: 85, Memory: 90}, ts))
	require.Len(t, second, 1)
	assert.Equal(t, model.MetricMemory, second[0].Metric)
}

func TestDebouncerAlways(t *testing.T) {
	d := NewDebouncer(ModeAlways)
	ts := DefaultThresholds()
	for i := 0; i < 3; i++ {
		assert.Len(t, d.Filter(Evaluate(model.MetricSample{CPU: 95}, ts)), 1)
	}
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeTransition, m)

	m, err = ParseMode("always")
	require.NoError(t, err)
	assert.Equal(t, ModeAlways, m)

	_, err = ParseMode("sometimes")
	assert.Error(t, err)
}
