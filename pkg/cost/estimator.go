// Package cost estimates spend for a twin from its utilization.
package cost

import (
	"math"

	"github.com/aleka07/cloudguard/pkg/model"
)

// Estimator returns the hourly cost of a resource at the given utilization.
type Estimator func(rt model.ResourceType, s model.MetricSample) float64

// Hourly base rates by resource type, in currency units.
var BaseRates = map[model.ResourceType]float64{
	model.ResourceCompute:    0.096,
	model.ResourceDatabase:   0.17,
	model.ResourceStorage:    0.023,
	model.ResourceNetwork:    0.025,
	model.ResourceContainer:  0.04,
	model.ResourceServerless: 0.0125,
}

// increasingCPU marks the average CPU above which spend is labelled increasing.
const increasingCPU = 70

// DefaultEstimator scales the base rate between 50% (idle) and 100% (fully
// utilized) of list price.
func DefaultEstimator(rt model.ResourceType, s model.MetricSample) float64 {
	rate, ok := BaseRates[rt]
	if !ok {
		rate = BaseRates[model.ResourceCompute]
	}
	utilization := model.Clamp((s.CPU+s.Memory)/200, 0, 1)
	return rate * (0.5 + 0.5*utilization)
}

// Project turns a utilization window into a cost forecast. The hourly figure
// is the estimate at the window's average utilization.
func Project(est Estimator, rt model.ResourceType, window []model.MetricSample) *model.CostForecast {
	if est == nil {
		est = DefaultEstimator
	}
	if len(window) == 0 {
		return &model.CostForecast{Trend: model.CostTrendStable}
	}

	var avg model.MetricSample
	for _, s := range window {
		avg.CPU += s.CPU
		avg.Memory += s.Memory
		avg.Disk += s.Disk
	}
	n := float64(len(window))
	avg.CPU /= n
	avg.Memory /= n
	avg.Disk /= n

	hourly := est(rt, avg)
	daily := hourly * 24
	trend := model.CostTrendStable
	if avg.CPU > increasingCPU {
		trend = model.CostTrendIncreasing
	}
	return &model.CostForecast{
		Hourly:                hourly,
		ProjectedDaily:        daily,
		ProjectedMonthly:      daily * 30,
		Trend:                 trend,
		OptimizationPotential: math.Max(0, (100-avg.CPU)*0.01*daily),
	}
}
