package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/okian/recicla/internal/adapters/repository"
	"github.com/okian/recicla/internal/domain/errs"
	"github.com/okian/recicla/internal/domain/model"
	"github.com/okian/recicla/internal/domain/ranking"
	"github.com/okian/recicla/pkg/logger"
	"github.com/okian/recicla/pkg/metrics"
)

// MaxTeamNameLength is the longest accepted team name, in runes.
const MaxTeamNameLength = 64

// AddTeam registers a new team with zero points.
func (s *Service) AddTeam(ctx context.Context, name string) (model.Team, error) {
	const op = "registry.add_team"

	name = strings.TrimSpace(name)
	if name == "" {
		return model.Team{}, errs.Validation(op, "team name is required")
	}
	if n := utf8.RuneCountInString(name); n > MaxTeamNameLength {
		return model.Team{}, errs.Validation(op, fmt.Sprintf("team name has %d characters, limit is %d", n, MaxTeamNameLength))
	}

	var team model.Team
	err := s.submit(ctx, "add_team", func(ctx context.Context) error {
		teams, err := s.repo.LoadTeams(ctx)
		if err != nil {
			return errs.Wrap(op, err)
		}
		id, err := s.newID()
		if err != nil {
			return errs.WrapKind(op, errs.ErrStorage, fmt.Errorf("generate id: %w", err))
		}

		team = model.Team{ID: id, Name: name}
		teams = append(teams, team)
		if err := s.repo.Commit(ctx, repository.Mutation{
			Teams:      teams,
			WriteTeams: true,
			LastUpdate: s.stamp(),
		}); err != nil {
			return errs.Wrap(op, err)
		}

		metrics.RecordTeamCreated()
		metrics.UpdateTeamCount(len(teams))
		s.logger.Info(ctx, "team added", logger.String("team", id), logger.String("name", name))
		s.emit(ctx)
		return nil
	})
	if err != nil {
		return model.Team{}, err
	}
	return team, nil
}

// ResetAllPoints zeroes every team's points and clears both histories.
// Teams keep their ids and order.
func (s *Service) ResetAllPoints(ctx context.Context) error {
	const op = "registry.reset_all_points"

	return s.submit(ctx, "reset_all_points", func(ctx context.Context) error {
		teams, err := s.repo.LoadTeams(ctx)
		if err != nil {
			return errs.Wrap(op, err)
		}
		for i := range teams {
			teams[i].Points = 0
		}
		if err := s.repo.Commit(ctx, repository.Mutation{
			Teams:        teams,
			WriteTeams:   true,
			ClearHistory: true,
			LastUpdate:   s.stamp(),
		}); err != nil {
			return errs.Wrap(op, err)
		}

		s.deduper.Clear(ctx)
		metrics.RecordReset()
		s.logger.Info(ctx, "all points reset", logger.Int("teams", len(teams)))
		s.emit(ctx)
		return nil
	})
}

// DeleteAllTeams removes every team and both histories.
func (s *Service) DeleteAllTeams(ctx context.Context) error {
	const op = "registry.delete_all_teams"

	return s.submit(ctx, "delete_all_teams", func(ctx context.Context) error {
		if err := s.repo.Commit(ctx, repository.Mutation{
			ClearTeams:   true,
			ClearHistory: true,
			LastUpdate:   s.stamp(),
		}); err != nil {
			return errs.Wrap(op, err)
		}

		s.deduper.Clear(ctx)
		metrics.RecordDeleteAll()
		metrics.UpdateTeamCount(0)
		s.logger.Info(ctx, "all teams deleted")
		s.emit(ctx)
		return nil
	})
}

// ListTeams returns teams by points descending, ties in insertion order.
func (s *Service) ListTeams(ctx context.Context) ([]model.Team, error) {
	teams, err := s.repo.LoadTeams(ctx)
	if err != nil {
		return nil, errs.Wrap("registry.list_teams", err)
	}
	return ranking.Sort(teams), nil
}

// Team returns the team with id.
func (s *Service) Team(ctx context.Context, id string) (model.Team, error) {
	const op = "registry.team"
	teams, err := s.repo.LoadTeams(ctx)
	if err != nil {
		return model.Team{}, errs.Wrap(op, err)
	}
	for _, t := range teams {
		if t.ID == id {
			return t, nil
		}
	}
	return model.Team{}, errs.WrapKind(op, errs.ErrNotFound, fmt.Errorf("team %q", id))
}
