package health

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aleka07/cloudguard/pkg/model"
)

func TestScoreReferenceSample(t *testing.T) {
	s := model.MetricSample{
		CPU: 45, Memory: 60, Disk: 35,
		Network:  model.NetworkThroughput{Incoming: 100, Outgoing: 80},
		Requests: 1000, Latency: 50, Errors: 2, Uptime: 99.5,
	}
	// 64*.25 + 46*.25 + 80*.20 + 99.5*.20 + 75*.10 = 70.9
	assert.Equal(t, 71.0, Score(s))

	b := Explain(s)
	assert.InDelta(t, 64.0, b.CPU, 1e-9)
	assert.InDelta(t, 46.0, b.Memory, 1e-9)
	assert.InDelta(t, 80.0, b.Errors, 1e-9)
	assert.InDelta(t, 75.0, b.Latency, 1e-9)
}

func TestScoreExtremes(t *testing.T) {
	perfect := model.MetricSample{Uptime: 100}
	assert.Equal(t, 100.0, Score(perfect))

	worst := model.MetricSample{CPU: 100, Memory: 100, Errors: 500, Latency: 5000, Uptime: 0}
	assert.Equal(t, 8.0, Score(worst))
}

func TestScoreAlwaysBounded(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 5000; i++ {
		s := model.MetricSample{
			CPU:      rng.Float64() * 100,
			Memory:   rng.Float64() * 100,
			Disk:     rng.Float64() * 100,
			Requests: rng.Float64() * 1e5,
			Latency:  rng.Float64() * 1e4,
			Errors:   rng.Float64() * 1e3,
			Uptime:   rng.Float64() * 100,
		}
		score := Score(s)
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 100.0)
	}
}

func TestScoreClampsOutOfRangeInput(t *testing.T) {
	assert.Equal(t, 0.0, Score(model.MetricSample{CPU: 100, Memory: 100, Errors: 100, Latency: 1000, Uptime: -500}))
	assert.Equal(t, 100.0, Score(model.MetricSample{Uptime: 1000}))
}
