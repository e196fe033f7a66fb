// Package forecast extrapolates the recent history of a twin into short- and
// long-horizon projections.
//
// The projection is a two-point linear trend: the average of the most recent
// points against the average of the points before them. It is not a trained
// model.
package forecast

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/aleka07/cloudguard/pkg/model"
)

// Predictor holds the trend extrapolation parameters.
type Predictor struct {
	Window     int // trailing history points considered
	HalfWindow int // size of the recent half; also the trend divisor
	MinHistory int

	// Short-horizon forecast is recentAvg + trend*ShortMultiplier; the long
	// horizon multiplies that reach by LongFactor.
	ShortMultiplier float64
	LongFactor      float64

	// Step is the spacing between history points, used to timestamp the
	// projected samples.
	Step time.Duration

	UptimeFloor float64

	Now func() time.Time
}

// NewPredictor returns a predictor with the reference parameters.
func NewPredictor() *Predictor {
	return &Predictor{
		Window:          20,
		HalfWindow:      10,
		MinHistory:      5,
		ShortMultiplier: 100,
		LongFactor:      24,
		Step:            2 * time.Second,
		UptimeFloor:     95,
		Now:             time.Now,
	}
}

// Confidence bounds.
const (
	baseConfidence = 95
	varianceWeight = 20
	minConfidence  = 70
	maxConfidence  = 99
)

// Predict projects history forward. It refuses to produce a forecast from
// fewer than MinHistory points and returns an InsufficientDataError instead.
func (p *Predictor) Predict(history []model.MetricSample) (*model.ForecastBundle, error) {
	if len(history) < p.MinHistory || len(history) < 2 {
		need := p.MinHistory
		if need < 2 {
			need = 2
		}
		return nil, model.NewInsufficientDataError("prediction", len(history), need)
	}

	window := history
	if p.Window > 0 && len(window) > p.Window {
		window = window[len(window)-p.Window:]
	}
	half := p.HalfWindow
	if half <= 0 {
		half = 10
	}
	recentN := min(half, len(window))
	older := window[:len(window)-recentN]
	recent := window[len(window)-recentN:]

	now := p.now()
	short := model.MetricSample{Timestamp: now.Add(time.Duration(p.ShortMultiplier) * p.Step)}
	long := model.MetricSample{Timestamp: now.Add(time.Duration(p.ShortMultiplier*p.LongFactor) * p.Step)}

	for _, m := range model.AllMetrics {
		recentAvg := average(recent, m)
		// No older points yet: project the recent average flat.
		var trend float64
		if len(older) > 0 {
			trend = (recentAvg - average(older, m)) / float64(half)
		}
		short = short.WithValue(m, recentAvg+trend*p.ShortMultiplier)
		long = long.WithValue(m, recentAvg+trend*p.ShortMultiplier*p.LongFactor)
	}

	return &model.ForecastBundle{
		NextShortTerm: p.bound(short),
		NextLongTerm:  p.bound(long),
		Confidence:    Confidence(recent),
		DataPoints:    len(window),
		GeneratedAt:   now,
	}, nil
}

// Confidence is 95 minus twenty times the mean population variance of cpu,
// memory and disk over the window, clamped to 70-99.
func Confidence(window []model.MetricSample) float64 {
	if len(window) == 0 {
		return minConfidence
	}
	var sum float64
	metrics := []model.Metric{model.MetricCPU, model.MetricMemory, model.MetricDisk}
	for _, m := range metrics {
		_, v := stat.PopMeanVariance(values(window, m), nil)
		sum += v
	}
	variance := sum / float64(len(metrics))
	return math.Round(model.Clamp(baseConfidence-varianceWeight*variance, minConfidence, maxConfidence))
}

func (p *Predictor) bound(s model.MetricSample) model.MetricSample {
	s = s.Clamped()
	s.Uptime = model.Clamp(s.Uptime, p.UptimeFloor, 100)
	return s
}

func (p *Predictor) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func values(window []model.MetricSample, m model.Metric) []float64 {
	out := make([]float64, len(window))
	for i, s := range window {
		out[i], _ = s.Value(m)
	}
	return out
}

func average(window []model.MetricSample, m model.Metric) float64 {
	if len(window) == 0 {
		return 0
	}
	return stat.Mean(values(window, m), nil)
}
