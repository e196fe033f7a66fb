package forecast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleka07/cloudguard/pkg/model"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestPredictor() *Predictor {
	p := NewPredictor()
	p.Now = func() time.Time { return fixedNow }
	return p
}

func steady(n int) []model.MetricSample {
	h := make([]model.MetricSample, n)
	for i := range h {
		h[i] = model.MetricSample{
			CPU: 40, Memory: 60, Disk: 35,
			Network:  model.NetworkThroughput{Incoming: 100, Outgoing: 80},
			Requests: 1000, Latency: 50, Errors: 2, Uptime: 99.5,
		}
	}
	return h
}

func TestPredictRequiresMinimumHistory(t *testing.T) {
	p := newTestPredictor()
	for n := 0; n < 5; n++ {
		got, err := p.Predict(steady(n))
		assert.Nil(t, got, "history length %d", n)
		require.Error(t, err)
		assert.True(t, model.IsInsufficientData(err))
	}

	got, err := p.Predict(steady(5))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 5, got.DataPoints)
}

func TestPredictRisingMemoryExceedsLatest(t *testing.T) {
	history := steady(20)
	for i := range history {
		history[i].Memory = 50 + 20*float64(i)/19
	}

	got, err := newTestPredictor().Predict(history)
	require.NoError(t, err)
	assert.Greater(t, got.NextShortTerm.Memory, history[19].Memory)
	assert.GreaterOrEqual(t, got.NextLongTerm.Memory, got.NextShortTerm.Memory)
	assert.LessOrEqual(t, got.NextLongTerm.Memory, 100.0)
}

func TestPredictTrendArithmetic(t *testing.T) {
	// Older half averages 30, recent half averages 31: trend 0.1 per point.
	history := steady(20)
	for i := range history {
		if i < 10 {
			history[i].CPU = 30
		} else {
			history[i].CPU = 31
		}
	}
	p := newTestPredictor()
	p.ShortMultiplier = 10

	got, err := p.Predict(history)
	require.NoError(t, err)
	assert.InDelta(t, 32.0, got.NextShortTerm.CPU, 1e-9)
	assert.InDelta(t, 31+0.1*10*24, got.NextLongTerm.CPU, 1e-9)
}

func TestPredictSteadyStateIsFlat(t *testing.T) {
	history := steady(20)
	got, err := newTestPredictor().Predict(history)
	require.NoError(t, err)

	assert.InDelta(t, 40.0, got.NextShortTerm.CPU, 1e-9)
	assert.InDelta(t, 60.0, got.NextLongTerm.Memory, 1e-9)
	assert.Equal(t, 95.0, got.Confidence)
	assert.Equal(t, fixedNow, got.GeneratedAt)
	assert.Equal(t, fixedNow.Add(200*time.Second), got.NextShortTerm.Timestamp)
	assert.Equal(t, fixedNow.Add(4800*time.Second), got.NextLongTerm.Timestamp)
}

func TestPredictClampsToDomains(t *testing.T) {
	history := steady(20)
	for i := range history {
		history[i].CPU = float64(50 + i*2)
		history[i].Uptime = 100 - float64(i)*0.2
		history[i].Errors = 20 - float64(i)
	}

	got, err := newTestPredictor().Predict(history)
	require.NoError(t, err)
	for _, s := range []model.MetricSample{got.NextShortTerm, got.NextLongTerm} {
		assert.Equal(t, 100.0, s.CPU)
		assert.Equal(t, 95.0, s.Uptime)
		assert.Equal(t, 0.0, s.Errors)
	}
}

func TestConfidenceBounds(t *testing.T) {
	assert.Equal(t, 95.0, Confidence(steady(10)))

	noisy := steady(10)
	for i := range noisy {
		if i%2 == 0 {
			noisy[i].CPU, noisy[i].Memory, noisy[i].Disk = 0, 0, 0
		} else {
			noisy[i].CPU, noisy[i].Memory, noisy[i].Disk = 100, 100, 100
		}
	}
	assert.Equal(t, 70.0, Confidence(noisy))
	assert.Equal(t, 70.0, Confidence(nil))
}

func TestConfidenceMidBand(t *testing.T) {
	// cpu alternates 40/42 (variance 1), memory and disk flat: mean variance
	// 1/3, so 95 - 20/3.
	window := steady(10)
	for i := range window {
		if i%2 == 1 {
			window[i].CPU = 42
		}
	}
	assert.Equal(t, 88.0, Confidence(window))

	// Variance 4 on cpu alone already drops below the floor.
	for i := range window {
		if i%2 == 1 {
			window[i].CPU = 44
		}
	}
	assert.Equal(t, 70.0, Confidence(window))
}

func TestPredictPartialOlderHalf(t *testing.T) {
	history := steady(15)
	for i := range history {
		history[i].Disk = float64(10 + i)
	}
	// recent = 15..24 (avg 19.5), older = 10..14 (avg 12), trend 0.75.
	p := newTestPredictor()
	p.ShortMultiplier = 10

	got, err := p.Predict(history)
	require.NoError(t, err)
	assert.InDelta(t, 27.0, got.NextShortTerm.Disk, 1e-9)
	assert.Equal(t, 100.0, got.NextLongTerm.Disk)

	got, err = newTestPredictor().Predict(history)
	require.NoError(t, err)
	assert.InDelta(t, 94.5, got.NextShortTerm.Disk, 1e-9)
}

func TestPredictWithoutOlderPointsIsFlat(t *testing.T) {
	history := steady(6)
	for i := range history {
		history[i].Disk = float64(10 + i)
	}
	p := newTestPredictor()
	p.ShortMultiplier = 5

	got, err := p.Predict(history)
	require.NoError(t, err)
	assert.InDelta(t, 12.5, got.NextShortTerm.Disk, 1e-9)
	assert.InDelta(t, 12.5, got.NextLongTerm.Disk, 1e-9)
	assert.Equal(t, 6, got.DataPoints)
}
