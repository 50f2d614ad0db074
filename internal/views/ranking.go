package views

import (
	"context"

	"github.com/okian/recicla/internal/domain/bus"
	"github.com/okian/recicla/internal/domain/model"
	"github.com/okian/recicla/internal/domain/ranking"
	"github.com/okian/recicla/pkg/logger"
)

// RecentActivityLimit is how many history rows the ranking view shows.
const RecentActivityLimit = 5

// RankingSource is what the ranking view reads.
type RankingSource interface {
	bus.Subscriber
	ListTeams(ctx context.Context) ([]model.Team, error)
	RecentActivity(ctx context.Context, limit int) ([]model.Activity, error)
}

// RankingState is the rendered content of the ranking screen.
type RankingState struct {
	Placements []ranking.Placement `json:"placements"`
	Recent     []model.Activity    `json:"recent"`
	Error      string              `json:"error,omitempty"`
	Loaded     bool                `json:"loaded"`
}

// Ranking shows teams by points and the latest recycling activity.
type Ranking struct {
	src    RankingSource
	logger logger.Logger
	lc     lifecycle
	state  RankingState
}

// NewRanking creates an inactive ranking view.
func NewRanking(src RankingSource, l logger.Logger) *Ranking {
	if l == nil {
		l = logger.Named(NameRanking)
	}
	return &Ranking{
		src:    src,
		logger: l,
		lc:     lifecycle{name: NameRanking},
		state:  RankingState{Placements: []ranking.Placement{}, Recent: []model.Activity{}},
	}
}

// Activate subscribes to store changes and loads once.
func (r *Ranking) Activate(ctx context.Context) error {
	r.lc.activate(r.src, handler(r.Reload))
	return r.Reload(ctx)
}

// Deactivate stops listening. Loads in flight are discarded.
func (r *Ranking) Deactivate() { r.lc.deactivate() }

// Active reports whether the view is listening.
func (r *Ranking) Active() bool { return r.lc.isActive() }

// Reload reads teams and recent activity and recomputes the placements.
func (r *Ranking) Reload(ctx context.Context) error {
	epoch, ok := r.lc.begin()
	if !ok {
		return nil
	}

	next := RankingState{Placements: []ranking.Placement{}, Recent: []model.Activity{}, Loaded: true}
	teams, err := r.src.ListTeams(ctx)
	if err == nil {
		next.Placements = ranking.Rank(teams)
		var recent []model.Activity
		if recent, err = r.src.RecentActivity(ctx, RecentActivityLimit); err == nil {
			next.Recent = recent
		}
	}
	if err != nil {
		next.Error = err.Error()
		r.logger.Warn(ctx, "ranking load failed", logger.Error(err))
	}

	r.lc.commit(epoch, func() { r.state = next })
	return err
}

// State returns a copy of the current state.
func (r *Ranking) State() RankingState {
	r.lc.mu.Lock()
	defer r.lc.mu.Unlock()
	return r.state
}
