// pkg/api/response.go
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/aleka07/cloudguard/pkg/model"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (a *API) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		a.log.Error("Failed to encode response", zap.Error(err))
	}
}

func (a *API) respondError(w http.ResponseWriter, status int, message string) {
	a.respondJSON(w, status, ErrorResponse{Error: message})
}

// respondEngineError maps engine errors onto HTTP status codes.
func (a *API) respondEngineError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.log.Error("Engine operation failed", zap.Error(err))
	} else {
		a.log.Debug("Engine operation rejected", zap.Int("status", status), zap.Error(err))
	}
	a.respondError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrUnknownTwin):
		return http.StatusNotFound
	case errors.Is(err, model.ErrDuplicateTwin):
		return http.StatusConflict
	case errors.Is(err, model.ErrInvalidRequest), errors.Is(err, model.ErrInvalidSample):
		return http.StatusBadRequest
	case model.IsInsufficientData(err):
		return http.StatusUnprocessableEntity
	case model.IsTelemetrySource(err):
		return http.StatusBadGateway
	case errors.Is(err, model.ErrEngineClosed):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
