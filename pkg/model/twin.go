// pkg/model/twin.go
package model

import "time"

// MonitoringState is the scheduling state of a twin.
type MonitoringState string

const (
	StateActive MonitoringState = "active" // Sampling (and optionally prediction) timers are running
	StatePaused MonitoringState = "paused" // Timers stopped, state and history retained
)

// Twin is the engine's in-memory model of one monitored cloud resource.
// Values handed out by the engine are snapshots; mutating them has no effect
// on the live twin.
type Twin struct {
	ID             string       `json:"id" yaml:"id"`                         // Engine-assigned identifier ("twin-<uuid>")
	OrganizationID string       `json:"organizationId" yaml:"organizationId"` // Owning organization
	ResourceID     string       `json:"resourceId" yaml:"resourceId"`         // Backing cloud resource, immutable
	ResourceType   ResourceType `json:"resourceType" yaml:"resourceType"`     // Inferred once from ResourceID

	State              MonitoringState `json:"state" yaml:"state"`
	Active             bool            `json:"active" yaml:"active"`
	PredictionsEnabled bool            `json:"predictionsEnabled" yaml:"predictionsEnabled"`

	CurrentState   MetricSample    `json:"currentState" yaml:"currentState"`
	PredictedState *ForecastBundle `json:"predictedState,omitempty" yaml:"predictedState,omitempty"` // nil before the first prediction cycle
	History        []HistoryPoint  `json:"history,omitempty" yaml:"history,omitempty"`

	HealthScore   float64 `json:"healthScore" yaml:"healthScore"`     // 0-100
	ModelAccuracy float64 `json:"modelAccuracy" yaml:"modelAccuracy"` // 70-99

	// Results of the most recent sampling / prediction ticks.
	Anomalies       []AnomalyDetection `json:"anomalies,omitempty" yaml:"anomalies,omitempty"`
	Alerts          []AlertEvent       `json:"alerts,omitempty" yaml:"alerts,omitempty"`
	Recommendations []Recommendation   `json:"recommendations,omitempty" yaml:"recommendations,omitempty"`

	LastSyncTime time.Time `json:"lastSyncTime" yaml:"lastSyncTime"`
	CreatedAt    time.Time `json:"createdAt" yaml:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt" yaml:"updatedAt"`
}

// HistoryPoint is one retained sample in a twin's bounded history.
type HistoryPoint struct {
	Timestamp time.Time    `json:"ts" yaml:"ts"`
	Sample    MetricSample `json:"sample" yaml:"sample"`
}

// Samples extracts the metric samples from a history slice, preserving order.
func Samples(points []HistoryPoint) []MetricSample {
	out := make([]MetricSample, len(points))
	for i, p := range points {
		out[i] = p.Sample
	}
	return out
}

// Clone returns a deep copy of the twin.
func (t *Twin) Clone() *Twin {
	if t == nil {
		return nil
	}
	c := *t
	if t.PredictedState != nil {
		ps := *t.PredictedState
		if t.PredictedState.Cost != nil {
			cost := *t.PredictedState.Cost
			ps.Cost = &cost
		}
		c.PredictedState = &ps
	}
	c.History = append([]HistoryPoint(nil), t.History...)
	c.Anomalies = append([]AnomalyDetection(nil), t.Anomalies...)
	c.Alerts = append([]AlertEvent(nil), t.Alerts...)
	c.Recommendations = append([]Recommendation(nil), t.Recommendations...)
	return &c
}
