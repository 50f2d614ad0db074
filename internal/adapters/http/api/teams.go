package api

import (
	"context"
	"net/http"

	"github.com/okian/recicla/internal/domain/model"
)

// TeamDependencies is the team registry as seen by the HTTP layer.
type TeamDependencies interface {
	AddTeam(ctx context.Context, name string) (model.Team, error)
	ListTeams(ctx context.Context) ([]model.Team, error)
	DeleteAllTeams(ctx context.Context) error
	ResetAllPoints(ctx context.Context) error
}

// TeamsHandler handles /teams requests.
type TeamsHandler struct {
	deps TeamDependencies
}

// NewTeamsHandler creates a new teams handler.
func NewTeamsHandler(deps TeamDependencies) *TeamsHandler {
	return &TeamsHandler{deps: deps}
}

type teamRequest struct {
	Name string `json:"name"`
}

// HandleTeams dispatches GET, POST and DELETE /teams.
func (h *TeamsHandler) HandleTeams(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	case http.MethodDelete:
		h.deleteAll(w, r)
	default:
		methodNotAllowed(w, "GET, POST, DELETE")
	}
}

// list answers with every team ordered by points.
func (h *TeamsHandler) list(w http.ResponseWriter, r *http.Request) {
	teams, err := h.deps.ListTeams(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, teams)
}

func (h *TeamsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req teamRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	team, err := h.deps.AddTeam(r.Context(), req.Name)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, team)
}

func (h *TeamsHandler) deleteAll(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.DeleteAllTeams(r.Context()); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleReset handles POST /teams/reset requests.
func (h *TeamsHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	if err := h.deps.ResetAllPoints(r.Context()); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
