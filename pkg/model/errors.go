// pkg/model/errors.go
package model

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateTwin is returned when a live twin already exists for an
	// (organization, resource) pair.
	ErrDuplicateTwin = errors.New("twin already exists for resource")

	// ErrUnknownTwin is returned for operations on a twin id the engine does not hold.
	ErrUnknownTwin = errors.New("twin not found")

	// ErrEngineClosed is returned by every operation after Shutdown.
	ErrEngineClosed = errors.New("engine is shut down")

	// ErrInvalidSample marks a MetricSample with out-of-range values.
	ErrInvalidSample = errors.New("invalid metric sample")

	// ErrInvalidRequest marks a malformed caller request, such as an empty resource id.
	ErrInvalidRequest = errors.New("invalid request")
)

// DuplicateTwinError returns a wrapped ErrDuplicateTwin with context.
func DuplicateTwinError(orgID, resourceID, existingID string) error {
	return fmt.Errorf("%w: organization '%s' resource '%s' (twin %s)", ErrDuplicateTwin, orgID, resourceID, existingID)
}

// UnknownTwinError returns a wrapped ErrUnknownTwin with context.
func UnknownTwinError(twinID string) error {
	return fmt.Errorf("%w: '%s'", ErrUnknownTwin, twinID)
}

// InsufficientDataError reports that a statistical operation was skipped
// because the history window is below its minimum size.
type InsufficientDataError struct {
	Operation string
	Have      int
	Need      int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for %s: %d/%d samples", e.Operation, e.Have, e.Need)
}

// NewInsufficientDataError creates a new insufficient data error.
func NewInsufficientDataError(operation string, have, need int) error {
	return &InsufficientDataError{Operation: operation, Have: have, Need: need}
}

// IsInsufficientData checks if err is or wraps an InsufficientDataError.
func IsInsufficientData(err error) bool {
	var target *InsufficientDataError
	return errors.As(err, &target)
}

// TelemetrySourceError wraps a failure from the telemetry boundary.
type TelemetrySourceError struct {
	ResourceID string
	Err        error
}

func (e *TelemetrySourceError) Error() string {
	return fmt.Sprintf("telemetry source failed for resource %s: %v", e.ResourceID, e.Err)
}

func (e *TelemetrySourceError) Unwrap() error {
	return e.Err
}

// NewTelemetrySourceError wraps err for resourceID.
func NewTelemetrySourceError(resourceID string, err error) error {
	return &TelemetrySourceError{ResourceID: resourceID, Err: err}
}

// IsTelemetrySource checks if err is or wraps a TelemetrySourceError.
func IsTelemetrySource(err error) bool {
	var target *TelemetrySourceError
	return errors.As(err, &target)
}
