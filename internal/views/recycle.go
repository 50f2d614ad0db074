package views

import (
	"context"
	"errors"

	"github.com/okian/recicla/internal/domain/bus"
	"github.com/okian/recicla/internal/domain/errs"
	"github.com/okian/recicla/internal/domain/material"
	"github.com/okian/recicla/internal/domain/model"
	"github.com/okian/recicla/pkg/logger"
)

// ErrNoSelection is returned by Register when a team or material is missing.
var ErrNoSelection = errors.New("team and material must be selected")

// RecycleSource is what the recycling-entry view reads and writes.
type RecycleSource interface {
	bus.Subscriber
	ListTeams(ctx context.Context) ([]model.Team, error)
	Materials() []material.Definition
	RecordEvent(ctx context.Context, teamID, materialName string) (model.RecyclingEvent, error)
}

// RecycleState is the rendered content of the recycling-entry screen.
type RecycleState struct {
	Teams            []model.Team          `json:"teams"`
	Materials        []material.Definition `json:"materials"`
	SelectedTeam     string                `json:"selected_team,omitempty"`
	SelectedMaterial string                `json:"selected_material,omitempty"`
	Error            string                `json:"error,omitempty"`
	Loaded           bool                  `json:"loaded"`
}

// Recycle lets the user pick a team and a material and register the event.
type Recycle struct {
	src    RecycleSource
	logger logger.Logger
	lc     lifecycle
	state  RecycleState
}

// NewRecycle creates an inactive recycling-entry view.
func NewRecycle(src RecycleSource, l logger.Logger) *Recycle {
	if l == nil {
		l = logger.Named(NameRecycle)
	}
	return &Recycle{
		src:    src,
		logger: l,
		lc:     lifecycle{name: NameRecycle},
		state:  RecycleState{Teams: []model.Team{}, Materials: src.Materials()},
	}
}

// Activate subscribes to store changes and loads once.
func (v *Recycle) Activate(ctx context.Context) error {
	v.lc.activate(v.src, handler(v.Reload))
	return v.Reload(ctx)
}

// Deactivate stops listening. Loads in flight are discarded.
func (v *Recycle) Deactivate() { v.lc.deactivate() }

// Active reports whether the view is listening.
func (v *Recycle) Active() bool { return v.lc.isActive() }

// Reload refreshes the team choices. A selected team that no longer exists
// is cleared.
func (v *Recycle) Reload(ctx context.Context) error {
	epoch, ok := v.lc.begin()
	if !ok {
		return nil
	}

	teams, err := v.src.ListTeams(ctx)
	if err != nil {
		v.logger.Warn(ctx, "team choices load failed", logger.Error(err))
	}

	v.lc.commit(epoch, func() {
		v.state.Loaded = true
		if err != nil {
			v.state.Error = err.Error()
			return
		}
		v.state.Error = ""
		v.state.Teams = teams
		if v.state.SelectedTeam != "" && !containsTeam(teams, v.state.SelectedTeam) {
			v.state.SelectedTeam = ""
		}
	})
	return err
}

func containsTeam(teams []model.Team, id string) bool {
	for _, t := range teams {
		if t.ID == id {
			return true
		}
	}
	return false
}

// SelectTeam chooses the team to credit. Unknown ids are not found.
func (v *Recycle) SelectTeam(id string) error {
	v.lc.mu.Lock()
	defer v.lc.mu.Unlock()
	if !containsTeam(v.state.Teams, id) {
		return errs.NewKind("recycle.select_team", errs.ErrNotFound)
	}
	v.state.SelectedTeam = id
	return nil
}

// SelectMaterial chooses the material to register.
func (v *Recycle) SelectMaterial(name string) error {
	def, ok := material.Lookup(name)
	if !ok {
		return errs.NewKind("recycle.select_material", errs.ErrInvalidMaterial)
	}
	v.lc.mu.Lock()
	defer v.lc.mu.Unlock()
	v.state.SelectedMaterial = def.Name
	return nil
}

// Register records the selected material for the selected team. The
// selection is kept so repeated taps register again.
func (v *Recycle) Register(ctx context.Context) (model.RecyclingEvent, error) {
	v.lc.mu.Lock()
	teamID, mat := v.state.SelectedTeam, v.state.SelectedMaterial
	v.lc.mu.Unlock()

	if teamID == "" || mat == "" {
		return model.RecyclingEvent{}, errs.WrapKind("recycle.register", errs.ErrValidation, ErrNoSelection)
	}
	return v.src.RecordEvent(ctx, teamID, mat)
}

// State returns a copy of the current state.
func (v *Recycle) State() RecycleState {
	v.lc.mu.Lock()
	defer v.lc.mu.Unlock()
	return v.state
}
