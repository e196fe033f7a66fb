// pkg/persistence/store.go
package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/aleka07/cloudguard/pkg/model"
)

var (
	ErrConflict = errors.New("record already exists")
	ErrEmpty    = errors.New("nothing to write")
)

// TelemetryRecord is one metric value of one sample.
type TelemetryRecord struct {
	Timestamp time.Time `json:"ts"`
	TwinID    string    `json:"-"`
	Name      string    `json:"name"` // metric name, or "health" for the score
	Value     float64   `json:"value"`
}

// PredictionRecord is the result of one prediction cycle as it is stored.
type PredictionRecord struct {
	TwinID          string                 `json:"twinId"`
	GeneratedAt     time.Time              `json:"generatedAt"`
	Confidence      float64                `json:"confidence"`
	Forecast        model.ForecastBundle   `json:"forecast"`
	Recommendations []model.Recommendation `json:"recommendations"`
}

// EventStore is the write side of the engine's event history. The engine
// itself never reads it back.
type EventStore interface {
	// WriteTelemetry stores a batch of records in one statement.
	WriteTelemetry(ctx context.Context, records []TelemetryRecord) error

	// WriteAlert stores a raised alert. Returns ErrConflict if the alert ID
	// was already written.
	WriteAlert(ctx context.Context, alert model.AlertEvent) error

	WritePrediction(ctx context.Context, prediction PredictionRecord) error

	Close()
}
