package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/recicla/internal/domain/model"
)

// EventDependencies defines the interface for event processing dependencies.
type EventDependencies interface {
	RecordEventOnce(ctx context.Context, requestID, teamID, materialName string) (model.RecyclingEvent, bool, error)
	RecentEvents(ctx context.Context, limit int) ([]model.RecyclingEvent, error)
}

// EventsHandler handles event requests.
type EventsHandler struct {
	deps   EventDependencies
	limits Limits
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventDependencies, limits Limits) *EventsHandler {
	if limits.RecentDefault < 1 {
		limits.RecentDefault = 5
	}
	if limits.RecentMax < limits.RecentDefault {
		limits.RecentMax = limits.RecentDefault
	}
	return &EventsHandler{deps: deps, limits: limits}
}

// eventRequest is the body of POST /events.
type eventRequest struct {
	RequestID string `json:"request_id,omitempty"`
	TeamID    string `json:"team_id"`
	Material  string `json:"material"`
}

type eventResponse struct {
	Event     model.RecyclingEvent `json:"event"`
	Duplicate bool                 `json:"duplicate"`
}

// HandlePostEvent handles POST /events requests.
func (h *EventsHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var req eventRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	ev, dup, err := h.deps.RecordEventOnce(r.Context(), strings.TrimSpace(req.RequestID), req.TeamID, req.Material)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	status := http.StatusCreated
	if dup {
		status = http.StatusOK
	}
	writeJSON(w, status, eventResponse{Event: ev, Duplicate: dup})
}

// HandleRecent handles GET /events/recent?limit=N requests.
func (h *EventsHandler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	n := h.limits.RecentDefault
	if s := r.URL.Query().Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 0 {
			writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
			return
		}
		n = min(v, h.limits.RecentMax)
	}
	events, err := h.deps.RecentEvents(r.Context(), n)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}
