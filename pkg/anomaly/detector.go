// Package anomaly flags statistically unusual samples.
//
// The method is a plain control chart: a sample is anomalous when it lies
// more than Sigma standard deviations from the mean of the recent window.
// There is no learned model behind it.
package anomaly

import (
	"fmt"
	"math"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/aleka07/cloudguard/pkg/model"
)

// Detector holds the control-chart parameters. The zero value is not usable;
// start from NewDetector.
type Detector struct {
	Window     int     // trailing history points used for mean/stddev
	MinHistory int     // below this, Detect reports insufficient data
	Sigma      float64 // deviation multiplier

	// Metrics checked with the z-score rule.
	Metrics []model.Metric

	ErrorThreshold         float64 // errors above this raise "High Error Rate"
	CriticalErrorThreshold float64 // ...with critical severity above this

	Now func() time.Time
}

// NewDetector returns a detector with the reference parameters.
func NewDetector() *Detector {
	return &Detector{
		Window:                 20,
		MinHistory:             10,
		Sigma:                  2,
		Metrics:                []model.Metric{model.MetricCPU, model.MetricMemory},
		ErrorThreshold:         10,
		CriticalErrorThreshold: 50,
		Now:                    time.Now,
	}
}

// Confidence band for z-score anomalies.
const (
	minConfidence       = 80
	maxConfidence       = 99
	errorRateConfidence = 95

	// absorbs float noise in the mean of a flat window
	epsilon = 1e-9
)

// Detect compares latest against the trailing window of history. With fewer
// than MinHistory points it returns no detections and an
// InsufficientDataError, whatever the input looks like.
func (d *Detector) Detect(history []model.MetricSample, latest model.MetricSample) ([]model.AnomalyDetection, error) {
	if len(history) < d.MinHistory {
		return nil, model.NewInsufficientDataError("anomaly detection", len(history), d.MinHistory)
	}

	window := history
	if d.Window > 0 && len(window) > d.Window {
		window = window[len(window)-d.Window:]
	}
	now := d.now()

	var out []model.AnomalyDetection
	values := make([]float64, len(window))
	for _, m := range d.Metrics {
		for i, s := range window {
			values[i], _ = s.Value(m)
		}
		v, ok := latest.Value(m)
		if !ok {
			continue
		}
		if a, found := d.zScore(m, values, v, now); found {
			out = append(out, a)
		}
	}

	if latest.Errors > d.ErrorThreshold {
		sev := model.SeverityHigh
		if latest.Errors > d.CriticalErrorThreshold {
			sev = model.SeverityCritical
		}
		out = append(out, model.AnomalyDetection{
			Metric:      model.MetricErrors,
			IsAnomalous: true,
			Confidence:  errorRateConfidence,
			Severity:    sev,
			Title:       "High Error Rate",
			Description: fmt.Sprintf("Error count %.0f exceeds %.0f", latest.Errors, d.ErrorThreshold),
			Value:       latest.Errors,
			Expected:    d.ErrorThreshold,
			DetectedAt:  now,
		})
	}
	return out, nil
}

func (d *Detector) zScore(m model.Metric, window []float64, v float64, now time.Time) (model.AnomalyDetection, bool) {
	mean, std := stat.PopMeanStdDev(window, nil)
	deviation := math.Abs(v - mean)
	limit := d.Sigma * std
	if deviation <= limit+epsilon {
		return model.AnomalyDetection{}, false
	}

	sev := model.SeverityMedium
	if v > mean+limit {
		sev = model.SeverityHigh
	}

	return model.AnomalyDetection{
		Metric:      m,
		IsAnomalous: true,
		Confidence:  d.confidence(deviation, std),
		Severity:    sev,
		Title:       fmt.Sprintf("Unusual %s Usage", label(m)),
		Description: fmt.Sprintf("%s at %.1f deviates from recent mean %.1f (stddev %.2f)", m, v, mean, std),
		Value:       v,
		Expected:    mean,
		DetectedAt:  now,
	}, true
}

// confidence grows from 80 at exactly Sigma deviations towards 99.
func (d *Detector) confidence(deviation, std float64) float64 {
	if std == 0 {
		return maxConfidence
	}
	z := deviation / std
	c := minConfidence + (maxConfidence-minConfidence)*(1-d.Sigma/z)
	return math.Round(model.Clamp(c, minConfidence, maxConfidence))
}

func (d *Detector) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func label(m model.Metric) string {
	if m == model.MetricCPU {
		return "CPU"
	}
	name := string(m)
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
