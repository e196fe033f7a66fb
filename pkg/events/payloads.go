package events

import "github.com/aleka07/cloudguard/pkg/model"

// Payloads carried by engine events. twin.created and twin.removed carry a
// model.Twin, anomaly.detected a model.AnomalyDetection, alert.* a
// model.AlertEvent and monitoring.* the new model.MonitoringState.

// MetricsUpdate is the payload of metrics.updated.
type MetricsUpdate struct {
	Sample      model.MetricSample `json:"sample"`
	HealthScore float64            `json:"healthScore"`
}

// PredictionUpdate is the payload of predictions.generated.
type PredictionUpdate struct {
	Forecast        model.ForecastBundle   `json:"forecast"`
	Recommendations []model.Recommendation `json:"recommendations"`
}

// ModelUpdate is the payload of model.updated.
type ModelUpdate struct {
	Accuracy float64 `json:"accuracy"`
}

// TickError is the payload of twin.error.
type TickError struct {
	Kind                string `json:"kind"` // sample or predict
	Error               string `json:"error"`
	ConsecutiveFailures int    `json:"consecutiveFailures"`
}
