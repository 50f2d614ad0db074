// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/okian/recicla/internal/app"
	"github.com/okian/recicla/internal/domain/errs"
	"github.com/okian/recicla/internal/domain/material"
	"github.com/okian/recicla/internal/domain/model"
	"github.com/okian/recicla/internal/views"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	AddTeam(ctx context.Context, name string) (model.Team, error)
	ListTeams(ctx context.Context) ([]model.Team, error)
	DeleteAllTeams(ctx context.Context) error
	ResetAllPoints(ctx context.Context) error

	// RecordEventOnce records an event; a repeated requestID returns the
	// first result with duplicate set.
	RecordEventOnce(ctx context.Context, requestID, teamID, materialName string) (model.RecyclingEvent, bool, error)
	RecentEvents(ctx context.Context, limit int) ([]model.RecyclingEvent, error)
	Materials() []material.Definition
}

// Screens exposes the rendered state of the active views and drives the
// recycling-entry selection.
type Screens interface {
	HomeState() views.HomeState
	RankingState() views.RankingState
	RecycleState() views.RecycleState

	SelectTeam(id string) error
	SelectMaterial(name string) error
	// RegisterSelection records the selected material for the selected team.
	RegisterSelection(ctx context.Context) (model.RecyclingEvent, error)
}

// Limits bound list endpoints.
type Limits struct {
	RecentDefault int
	RecentMax     int
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	teamsHandler   *TeamsHandler
	eventsHandler  *EventsHandler
	screensHandler *ScreensHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, screens Screens, statsProvider StatsProvider, limits Limits) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		teamsHandler:   NewTeamsHandler(deps),
		eventsHandler:  NewEventsHandler(deps, limits),
		screensHandler: NewScreensHandler(deps, screens),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/teams/reset", MetricsMiddleware(s.teamsHandler.HandleReset, "teams_reset"))
	mux.HandleFunc("/teams", MetricsMiddleware(s.teamsHandler.HandleTeams, "teams"))
	mux.HandleFunc("/events/recent", MetricsMiddleware(s.eventsHandler.HandleRecent, "events_recent"))
	mux.HandleFunc("/events", MetricsMiddleware(s.eventsHandler.HandlePostEvent, "events"))
	mux.HandleFunc("/materials", MetricsMiddleware(s.screensHandler.HandleMaterials, "materials"))
	mux.HandleFunc("/home", MetricsMiddleware(s.screensHandler.HandleHome, "home"))
	mux.HandleFunc("/ranking", MetricsMiddleware(s.screensHandler.HandleRanking, "ranking"))
	mux.HandleFunc("/recycle/select", MetricsMiddleware(s.screensHandler.HandleRecycleSelect, "recycle_select"))
	mux.HandleFunc("/recycle/register", MetricsMiddleware(s.screensHandler.HandleRecycleRegister, "recycle_register"))
	mux.HandleFunc("/recycle", MetricsMiddleware(s.screensHandler.HandleRecycle, "recycle"))
	mux.HandleFunc("/info", MetricsMiddleware(s.screensHandler.HandleInfo, "info"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps an error kind to a status and code.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errs.ErrInvalidMaterial):
		writeError(w, http.StatusBadRequest, "invalid_material", err)
	case errors.Is(err, errs.ErrValidation), errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, errs.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, service.ErrBackpressure):
		writeError(w, http.StatusTooManyRequests, "backpressure", err)
	case errors.Is(err, service.ErrNotStarted), errors.Is(err, service.ErrStopped):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	case errs.IsStorage(err):
		writeError(w, http.StatusInternalServerError, "storage_error", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
}
