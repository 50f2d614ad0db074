package api

import (
	"fmt"
	"net/http"

	"github.com/okian/recicla/internal/domain/material"
)

// MaterialSource lists the selectable materials.
type MaterialSource interface {
	Materials() []material.Definition
}

// ScreensHandler serves the rendered state of the screen views.
type ScreensHandler struct {
	materials MaterialSource
	screens   Screens
}

// NewScreensHandler creates a new screens handler.
func NewScreensHandler(materials MaterialSource, screens Screens) *ScreensHandler {
	return &ScreensHandler{materials: materials, screens: screens}
}

// HandleHome handles GET /home requests.
func (h *ScreensHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, h.screens.HomeState())
}

// HandleRanking handles GET /ranking requests.
func (h *ScreensHandler) HandleRanking(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, h.screens.RankingState())
}

// HandleRecycle handles GET /recycle requests.
func (h *ScreensHandler) HandleRecycle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, h.screens.RecycleState())
}

// selectRequest is the body of POST /recycle/select. Omitted fields keep the
// current choice.
type selectRequest struct {
	TeamID   *string `json:"team_id,omitempty"`
	Material *string `json:"material,omitempty"`
}

// HandleRecycleSelect handles POST /recycle/select requests and answers with
// the updated recycling-entry state.
func (h *ScreensHandler) HandleRecycleSelect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var req selectRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	if req.TeamID == nil && req.Material == nil {
		writeServiceError(w, fmt.Errorf("%w: team_id or material required", ErrBadRequest))
		return
	}
	if req.TeamID != nil {
		if err := h.screens.SelectTeam(*req.TeamID); err != nil {
			writeServiceError(w, err)
			return
		}
	}
	if req.Material != nil {
		if err := h.screens.SelectMaterial(*req.Material); err != nil {
			writeServiceError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, h.screens.RecycleState())
}

// HandleRecycleRegister handles POST /recycle/register requests.
func (h *ScreensHandler) HandleRecycleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	ev, err := h.screens.RegisterSelection(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

// HandleMaterials handles GET /materials requests.
func (h *ScreensHandler) HandleMaterials(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, h.materials.Materials())
}

// HandleInfo handles GET /info requests with the usage rules and recycling tips.
func (h *ScreensHandler) HandleInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sections": material.Guide()})
}
