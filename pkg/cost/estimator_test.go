package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aleka07/cloudguard/pkg/model"
)

func TestDefaultEstimatorScalesWithUtilization(t *testing.T) {
	idle := DefaultEstimator(model.ResourceCompute, model.MetricSample{})
	busy := DefaultEstimator(model.ResourceCompute, model.MetricSample{CPU: 100, Memory: 100})

	assert.InDelta(t, 0.048, idle, 1e-9)
	assert.InDelta(t, 0.096, busy, 1e-9)
	assert.Equal(t, DefaultEstimator(model.ResourceCompute, model.MetricSample{}),
		DefaultEstimator(model.ResourceType("mainframe"), model.MetricSample{}))
}

func TestProject(t *testing.T) {
	flat := func(hourly float64) Estimator {
		return func(model.ResourceType, model.MetricSample) float64 { return hourly }
	}

	t.Run("stable", func(t *testing.T) {
		window := []model.MetricSample{{CPU: 40}, {CPU: 60}}
		got := Project(flat(1), model.ResourceCompute, window)
		assert.Equal(t, 1.0, got.Hourly)
		assert.Equal(t, 24.0, got.ProjectedDaily)
		assert.Equal(t, 720.0, got.ProjectedMonthly)
		assert.Equal(t, model.CostTrendStable, got.Trend)
		assert.InDelta(t, 12.0, got.OptimizationPotential, 1e-9)
	})

	t.Run("increasing", func(t *testing.T) {
		window := []model.MetricSample{{CPU: 80}, {CPU: 90}}
		got := Project(flat(2), model.ResourceDatabase, window)
		assert.Equal(t, model.CostTrendIncreasing, got.Trend)
		assert.InDelta(t, 7.2, got.OptimizationPotential, 1e-9)
	})

	t.Run("empty window", func(t *testing.T) {
		got := Project(nil, model.ResourceStorage, nil)
		assert.Equal(t, 0.0, got.Hourly)
		assert.Equal(t, model.CostTrendStable, got.Trend)
	})

	t.Run("nil estimator uses default", func(t *testing.T) {
		got := Project(nil, model.ResourceCompute, []model.MetricSample{{CPU: 100, Memory: 100}})
		assert.InDelta(t, 0.096, got.Hourly, 1e-9)
	})
}
