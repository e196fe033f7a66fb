// Package health computes the composite 0-100 health score of a twin.
package health

import (
	"math"

	"github.com/aleka07/cloudguard/pkg/model"
)

// Weights for the health components. They sum to 1.
const (
	WeightCPU     = 0.25
	WeightMemory  = 0.25
	WeightErrors  = 0.20
	WeightUptime  = 0.20
	WeightLatency = 0.10
)

// Breakdown exposes the per-component scores behind a health score.
type Breakdown struct {
	CPU     float64 `json:"cpu"`
	Memory  float64 `json:"memory"`
	Errors  float64 `json:"errors"`
	Uptime  float64 `json:"uptime"`
	Latency float64 `json:"latency"`
	Score   float64 `json:"score"`
}

// Score returns the weighted health of a sample, rounded to the nearest
// integer and clamped to [0,100].
func Score(s model.MetricSample) float64 {
	return Explain(s).Score
}

// Explain returns the component scores along with the final score.
func Explain(s model.MetricSample) Breakdown {
	b := Breakdown{
		CPU:     math.Max(0, 100-s.CPU*0.8),
		Memory:  math.Max(0, 100-s.Memory*0.9),
		Errors:  math.Max(0, 100-s.Errors*10),
		Uptime:  s.Uptime,
		Latency: math.Max(0, 100-s.Latency*0.5),
	}
	raw := b.CPU*WeightCPU +
		b.Memory*WeightMemory +
		b.Errors*WeightErrors +
		b.Uptime*WeightUptime +
		b.Latency*WeightLatency
	if math.IsNaN(raw) {
		raw = 0
	}
	b.Score = model.Clamp(math.Round(raw), 0, 100)
	return b
}
