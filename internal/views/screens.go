package views

import (
	"context"
	"errors"

	"github.com/okian/recicla/internal/domain/model"
	"github.com/okian/recicla/pkg/logger"
)

// Source is everything the three screens read from.
type Source interface {
	HomeSource
	RankingSource
	RecycleSource
}

// Screens owns one instance of each view over a shared source.
type Screens struct {
	home    *Home
	ranking *Ranking
	recycle *Recycle
}

// NewScreens creates inactive views over src.
func NewScreens(src Source, l logger.Logger) *Screens {
	if l == nil {
		l = logger.Named("views")
	}
	return &Screens{
		home:    NewHome(src, l.Named(NameHome)),
		ranking: NewRanking(src, l.Named(NameRanking)),
		recycle: NewRecycle(src, l.Named(NameRecycle)),
	}
}

// Activate activates every view. Load failures are joined and returned, but
// the views stay active and recover on the next broadcast.
func (s *Screens) Activate(ctx context.Context) error {
	return errors.Join(
		s.home.Activate(ctx),
		s.ranking.Activate(ctx),
		s.recycle.Activate(ctx),
	)
}

// Deactivate stops every view.
func (s *Screens) Deactivate() {
	s.home.Deactivate()
	s.ranking.Deactivate()
	s.recycle.Deactivate()
}

// Home returns the home view.
func (s *Screens) Home() *Home { return s.home }

// Ranking returns the ranking view.
func (s *Screens) Ranking() *Ranking { return s.ranking }

// Recycle returns the recycling-entry view.
func (s *Screens) Recycle() *Recycle { return s.recycle }

// HomeState returns the home view state.
func (s *Screens) HomeState() HomeState { return s.home.State() }

// RankingState returns the ranking view state.
func (s *Screens) RankingState() RankingState { return s.ranking.State() }

// RecycleState returns the recycling-entry view state.
func (s *Screens) RecycleState() RecycleState { return s.recycle.State() }

// SelectTeam picks the team on the recycling-entry screen.
func (s *Screens) SelectTeam(id string) error { return s.recycle.SelectTeam(id) }

// SelectMaterial picks the material on the recycling-entry screen.
func (s *Screens) SelectMaterial(name string) error { return s.recycle.SelectMaterial(name) }

// RegisterSelection records the current recycling-entry selection.
func (s *Screens) RegisterSelection(ctx context.Context) (model.RecyclingEvent, error) {
	return s.recycle.Register(ctx)
}
