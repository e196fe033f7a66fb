// pkg/api/handlers.go
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/aleka07/cloudguard/pkg/engine"
	"github.com/aleka07/cloudguard/pkg/events"
	"github.com/aleka07/cloudguard/pkg/model"
)

// TwinEngine is the engine surface served over HTTP.
type TwinEngine interface {
	CreateTwin(resourceID string, initial model.MetricSample, opts ...engine.CreateOption) (*model.Twin, error)
	GetTwin(twinID string) (*model.Twin, error)
	ListTwins() []*model.Twin
	GetHistory(twinID string, limit int) ([]model.HistoryPoint, error)
	RemoveTwin(twinID string) (*model.Twin, error)
	StartMonitoring(twinID string) error
	PauseMonitoring(twinID string) error
	RunSimulation(twinID string, scenario model.Scenario) (model.MetricSample, error)
	SampleNow(ctx context.Context, twinID string) error
	PredictNow(ctx context.Context, twinID string) error
	Thresholds() []model.AlertThreshold
	SetThresholds(ts []model.AlertThreshold) error
	Subscribe(patterns ...events.Type) (<-chan events.Event, func())
}

// Seeder provides the initial sample of a twin created without one.
type Seeder func(ctx context.Context, resourceID string) (model.MetricSample, error)

// API holds handler dependencies.
type API struct {
	Engine TwinEngine
	Seed   Seeder // optional
	log    *zap.Logger
	now    func() time.Time
}

// NewAPI creates the handler set for eng.
func NewAPI(eng TwinEngine, seed Seeder, log *zap.Logger) *API {
	if log == nil {
		log = zap.NewNop()
	}
	return &API{Engine: eng, Seed: seed, log: log.Named("api"), now: time.Now}
}

// CreateTwinRequest is the body of POST /api/v1/twins.
type CreateTwinRequest struct {
	ResourceID     string              `json:"resourceId"`
	OrganizationID string              `json:"organizationId,omitempty"`
	RealTime       *bool               `json:"realTime,omitempty"`    // default true
	Predictions    *bool               `json:"predictions,omitempty"` // default true
	Initial        *model.MetricSample `json:"initial,omitempty"`     // collected from the telemetry source when omitted
}

// SimulationResponse is the body returned by POST /api/v1/twins/{twinId}/simulate.
type SimulationResponse struct {
	TwinID    string             `json:"twinId"`
	Scenario  model.Scenario     `json:"scenario"`
	Projected model.MetricSample `json:"projected"`
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request payload: %w", err)
	}
	return nil
}

// CreateTwin handles POST /api/v1/twins
func (a *API) CreateTwin(w http.ResponseWriter, r *http.Request) {
	var req CreateTwinRequest
	if err := decode(r, &req); err != nil {
		a.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer r.Body.Close()

	if req.ResourceID == "" {
		a.respondError(w, http.StatusBadRequest, "missing required field: resourceId")
		return
	}

	var initial model.MetricSample
	switch {
	case req.Initial != nil:
		initial = *req.Initial
	case a.Seed != nil:
		s, err := a.Seed(r.Context(), req.ResourceID)
		if err != nil {
			a.respondEngineError(w, err)
			return
		}
		initial = s
	default:
		a.respondError(w, http.StatusBadRequest, "missing required field: initial")
		return
	}

	opts := []engine.CreateOption{engine.InOrganization(req.OrganizationID)}
	if req.RealTime != nil {
		opts = append(opts, engine.WithRealTime(*req.RealTime))
	}
	if req.Predictions != nil {
		opts = append(opts, engine.WithPredictions(*req.Predictions))
	}

	twin, err := a.Engine.CreateTwin(req.ResourceID, initial, opts...)
	if err != nil {
		a.respondEngineError(w, err)
		return
	}
	a.respondJSON(w, http.StatusCreated, twin)
}

// ListTwins handles GET /api/v1/twins. History is left out of the listing;
// use the history route for it.
func (a *API) ListTwins(w http.ResponseWriter, r *http.Request) {
	twins := a.Engine.ListTwins()
	for _, t := range twins {
		t.History = nil
	}
	a.respondJSON(w, http.StatusOK, twins)
}

// GetTwin handles GET /api/v1/twins/{twinId}
func (a *API) GetTwin(w http.ResponseWriter, r *http.Request) {
	twin, err := a.Engine.GetTwin(chi.URLParam(r, "twinId"))
	if err != nil {
		a.respondEngineError(w, err)
		return
	}
	a.respondJSON(w, http.StatusOK, twin)
}

// DeleteTwin handles DELETE /api/v1/twins/{twinId}
func (a *API) DeleteTwin(w http.ResponseWriter, r *http.Request) {
	twin, err := a.Engine.RemoveTwin(chi.URLParam(r, "twinId"))
	if err != nil {
		a.respondEngineError(w, err)
		return
	}
	a.respondJSON(w, http.StatusOK, twin)
}

// GetHistory handles GET /api/v1/twins/{twinId}/history?limit=N
func (a *API) GetHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			a.respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	history, err := a.Engine.GetHistory(chi.URLParam(r, "twinId"), limit)
	if err != nil {
		a.respondEngineError(w, err)
		return
	}
	a.respondJSON(w, http.StatusOK, history)
}

// StartMonitoring handles POST /api/v1/twins/{twinId}/start
func (a *API) StartMonitoring(w http.ResponseWriter, r *http.Request) {
	a.transition(w, r, a.Engine.StartMonitoring)
}

// PauseMonitoring handles POST /api/v1/twins/{twinId}/pause
func (a *API) PauseMonitoring(w http.ResponseWriter, r *http.Request) {
	a.transition(w, r, a.Engine.PauseMonitoring)
}

func (a *API) transition(w http.ResponseWriter, r *http.Request, op func(string) error) {
	twinID := chi.URLParam(r, "twinId")
	if err := op(twinID); err != nil {
		a.respondEngineError(w, err)
		return
	}
	twin, err := a.Engine.GetTwin(twinID)
	if err != nil {
		a.respondEngineError(w, err)
		return
	}
	a.respondJSON(w, http.StatusOK, twin)
}

// SampleNow handles POST /api/v1/twins/{twinId}/sample
func (a *API) SampleNow(w http.ResponseWriter, r *http.Request) {
	a.tick(w, r, a.Engine.SampleNow)
}

// PredictNow handles POST /api/v1/twins/{twinId}/predict
func (a *API) PredictNow(w http.ResponseWriter, r *http.Request) {
	a.tick(w, r, a.Engine.PredictNow)
}

func (a *API) tick(w http.ResponseWriter, r *http.Request, op func(context.Context, string) error) {
	twinID := chi.URLParam(r, "twinId")
	if err := op(r.Context(), twinID); err != nil {
		a.respondEngineError(w, err)
		return
	}
	twin, err := a.Engine.GetTwin(twinID)
	if err != nil {
		a.respondEngineError(w, err)
		return
	}
	twin.History = nil
	a.respondJSON(w, http.StatusOK, twin)
}

// Simulate handles POST /api/v1/twins/{twinId}/simulate
func (a *API) Simulate(w http.ResponseWriter, r *http.Request) {
	var scenario model.Scenario
	if err := decode(r, &scenario); err != nil {
		a.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer r.Body.Close()

	twinID := chi.URLParam(r, "twinId")
	projected, err := a.Engine.RunSimulation(twinID, scenario)
	if err != nil {
		a.respondEngineError(w, err)
		return
	}
	a.respondJSON(w, http.StatusOK, SimulationResponse{TwinID: twinID, Scenario: scenario, Projected: projected})
}

// GetThresholds handles GET /api/v1/thresholds
func (a *API) GetThresholds(w http.ResponseWriter, r *http.Request) {
	a.respondJSON(w, http.StatusOK, a.Engine.Thresholds())
}

// PutThresholds handles PUT /api/v1/thresholds
func (a *API) PutThresholds(w http.ResponseWriter, r *http.Request) {
	var ts []model.AlertThreshold
	if err := decode(r, &ts); err != nil {
		a.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer r.Body.Close()

	if err := a.Engine.SetThresholds(ts); err != nil {
		a.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	a.respondJSON(w, http.StatusOK, a.Engine.Thresholds())
}

// HealthCheck handles GET /healthz
func (a *API) HealthCheck(w http.ResponseWriter, r *http.Request) {
	a.respondJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"twins":     len(a.Engine.ListTwins()),
		"timestamp": a.now().UTC().Format(time.RFC3339),
	})
}
