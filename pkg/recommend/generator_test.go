package recommend

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleka07/cloudguard/pkg/model"
)

func newTestGenerator() *Generator {
	g := NewGenerator(nil)
	at := time.Date(2026, 5, 4, 3, 2, 1, 0, time.UTC)
	g.Now = func() time.Time { return at }
	return g
}

func forecastOf(s model.MetricSample) *model.ForecastBundle {
	return &model.ForecastBundle{NextShortTerm: s}
}

func titles(recs []model.Recommendation) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Title
	}
	return out
}

func TestRecommendPriorities(t *testing.T) {
	tests := []struct {
		name     string
		current  model.MetricSample
		forecast model.MetricSample
		title    string
		priority model.Priority
	}{
		{"cpu high", model.MetricSample{}, model.MetricSample{CPU: 85}, "Scale Up CPU Resources", model.PriorityHigh},
		{"cpu critical", model.MetricSample{}, model.MetricSample{CPU: 91}, "Scale Up CPU Resources", model.PriorityCritical},
		{"cpu at escalation boundary", model.MetricSample{}, model.MetricSample{CPU: 90}, "Scale Up CPU Resources", model.PriorityHigh},
		{"memory high", model.MetricSample{}, model.MetricSample{Memory: 90}, "Memory Optimization Required", model.PriorityHigh},
		{"memory critical", model.MetricSample{}, model.MetricSample{Memory: 96}, "Memory Optimization Required", model.PriorityCritical},
		{"errors medium", model.MetricSample{Errors: 6}, model.MetricSample{}, "Investigate Error Sources", model.PriorityMedium},
		{"errors critical", model.MetricSample{Errors: 21}, model.MetricSample{}, "Investigate Error Sources", model.PriorityCritical},
		{"latency", model.MetricSample{}, model.MetricSample{Latency: 150}, "Latency Optimization", model.PriorityMedium},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := newTestGenerator().Recommend(&model.Twin{CurrentState: tt.current}, forecastOf(tt.forecast))
			require.Len(t, got, 1)
			assert.Equal(t, tt.title, got[0].Title)
			assert.Equal(t, tt.priority, got[0].Priority)
			assert.True(t, strings.HasPrefix(got[0].ID, "rec-"))
		})
	}
}

func TestRecommendThresholdsAreStrict(t *testing.T) {
	twin := &model.Twin{CurrentState: model.MetricSample{Errors: 5}}
	got := newTestGenerator().Recommend(twin, forecastOf(model.MetricSample{CPU: 80, Memory: 85, Latency: 100}))
	assert.Empty(t, got)
}

func TestRecommendImpactConstants(t *testing.T) {
	twin := &model.Twin{CurrentState: model.MetricSample{Errors: 30}}
	got := newTestGenerator().Recommend(twin, forecastOf(model.MetricSample{CPU: 95, Memory: 99, Latency: 200}))
	require.Len(t, got, 4)

	byTitle := map[string]model.Recommendation{}
	for _, r := range got {
		byTitle[r.Title] = r
	}

	cpu := byTitle["Scale Up CPU Resources"]
	assert.Equal(t, model.RecommendationScaling, cpu.Type)
	assert.Equal(t, model.Impact{Cost: 25, Performance: 40, Reliability: 30}, cpu.EstimatedImpact)
	assert.True(t, cpu.ActionRequired)
	assert.True(t, cpu.AutomationAvailable)

	mem := byTitle["Memory Optimization Required"]
	assert.Equal(t, model.RecommendationOptimization, mem.Type)
	assert.Equal(t, model.Impact{Cost: 15, Performance: 35, Reliability: 25}, mem.EstimatedImpact)
	assert.True(t, mem.ActionRequired)
	assert.False(t, mem.AutomationAvailable)

	errs := byTitle["Investigate Error Sources"]
	assert.Equal(t, model.RecommendationMaintenance, errs.Type)
	assert.Equal(t, model.Impact{Cost: 0, Performance: 20, Reliability: 50}, errs.EstimatedImpact)
	assert.Contains(t, errs.Description, "30.0")

	lat := byTitle["Latency Optimization"]
	assert.Equal(t, model.Impact{Cost: 10, Performance: 45, Reliability: 15}, lat.EstimatedImpact)
	assert.False(t, lat.ActionRequired)
	assert.True(t, lat.AutomationAvailable)
}

func TestRecommendOrdersByPriority(t *testing.T) {
	twin := &model.Twin{CurrentState: model.MetricSample{Errors: 8}}
	got := newTestGenerator().Recommend(twin, forecastOf(model.MetricSample{CPU: 85, Memory: 97, Latency: 120}))

	assert.Equal(t, []string{
		"Memory Optimization Required",
		"Scale Up CPU Resources",
		"Investigate Error Sources",
		"Latency Optimization",
	}, titles(got))
}

func TestRecommendWithoutForecast(t *testing.T) {
	twin := &model.Twin{CurrentState: model.MetricSample{CPU: 99, Errors: 7}}
	got := newTestGenerator().Recommend(twin, nil)
	assert.Equal(t, []string{"Investigate Error Sources"}, titles(got))

	assert.Nil(t, newTestGenerator().Recommend(nil, nil))
}

func TestCustomRuleTable(t *testing.T) {
	g := NewGenerator([]Rule{{
		Name:     "disk-pressure",
		Type:     model.RecommendationMaintenance,
		Input:    InputCurrent,
		Metric:   model.MetricDisk,
		Above:    70,
		Priority: model.PriorityLow,
		Title:    "Expand Disk",
	}})
	got := g.Recommend(&model.Twin{CurrentState: model.MetricSample{Disk: 75}}, nil)
	require.Len(t, got, 1)
	assert.Equal(t, "disk-pressure", got[0].Rule)
	assert.Equal(t, model.PriorityLow, got[0].Priority)
}

func TestRuleValidate(t *testing.T) {
	for _, r := range DefaultRules() {
		assert.NoError(t, r.Validate(), r.Name)
	}

	valid := DefaultRules()[0]
	tests := []struct {
		name   string
		mutate func(*Rule)
	}{
		{"no name", func(r *Rule) { r.Name = "" }},
		{"no title", func(r *Rule) { r.Title = "" }},
		{"bad input", func(r *Rule) { r.Input = "yesterday" }},
		{"bad priority", func(r *Rule) { r.Priority = "urgent" }},
		{"bad metric", func(r *Rule) { r.Metric = "temperature" }},
		{"escalation without priority", func(r *Rule) { r.EscalatePriority = "" }},
		{"bad escalation priority", func(r *Rule) { r.EscalatePriority = "urgent" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			tt.mutate(&r)
			assert.Error(t, r.Validate())
		})
	}
}
