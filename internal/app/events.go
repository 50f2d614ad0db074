package service

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/recicla/internal/adapters/repository"
	"github.com/okian/recicla/internal/adapters/storage"
	"github.com/okian/recicla/internal/domain/aggregate"
	"github.com/okian/recicla/internal/domain/errs"
	"github.com/okian/recicla/internal/domain/material"
	"github.com/okian/recicla/internal/domain/model"
	"github.com/okian/recicla/pkg/logger"
	"github.com/okian/recicla/pkg/metrics"
)

// RecordEvent credits teamID with the points of materialName and prepends the
// event to both histories.
func (s *Service) RecordEvent(ctx context.Context, teamID, materialName string) (model.RecyclingEvent, error) {
	ev, _, err := s.RecordEventOnce(ctx, "", teamID, materialName)
	return ev, err
}

// RecordEventOnce is RecordEvent guarded by a request id. A request id already
// answered inside the dedupe window returns the original event and
// duplicate=true without recording anything. An empty request id disables the
// guard.
func (s *Service) RecordEventOnce(ctx context.Context, requestID, teamID, materialName string) (ev model.RecyclingEvent, duplicate bool, err error) {
	const op = "eventlog.record_event"

	def, ok := material.Lookup(materialName)
	if !ok {
		return model.RecyclingEvent{}, false, errs.WrapKind(op, errs.ErrInvalidMaterial, fmt.Errorf("material %q", materialName))
	}

	err = s.submit(ctx, "record_event", func(ctx context.Context) error {
		if prev, seen := s.deduper.Lookup(ctx, requestID); seen {
			ev, duplicate = prev, true
			metrics.RecordDuplicateSubmission()
			return nil
		}

		st, err := s.repo.LoadState(ctx)
		if err != nil {
			return errs.Wrap(op, err)
		}
		teams := st.Teams
		idx := -1
		for i := range teams {
			if teams[i].ID == teamID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return errs.WrapKind(op, errs.ErrNotFound, fmt.Errorf("team %q", teamID))
		}

		now := s.stamp()
		ev = model.RecyclingEvent{TeamID: teamID, Material: def.Name, Points: def.Points, Timestamp: now}
		teams[idx].Points += def.Points

		if err := s.repo.Commit(ctx, repository.Mutation{
			Teams:        teams,
			WriteTeams:   true,
			History:      prepend(ev, st.History),
			RecyclingLog: prepend(ev, st.RecyclingLog),
			WriteHistory: true,
			LastUpdate:   now,
		}); err != nil {
			return errs.Wrap(op, err)
		}

		s.deduper.Record(ctx, requestID, ev)
		metrics.RecordRecyclingEvent(def.Name, def.Points)
		s.logger.Info(ctx, "recycling recorded",
			logger.String("team", teamID),
			logger.String("material", def.Name),
			logger.Int("points", def.Points),
			logger.Int("total", teams[idx].Points),
		)
		s.emit(ctx)
		return nil
	})
	if err != nil {
		return model.RecyclingEvent{}, false, err
	}
	return ev, duplicate, nil
}

func prepend(ev model.RecyclingEvent, events []model.RecyclingEvent) []model.RecyclingEvent {
	out := make([]model.RecyclingEvent, 0, len(events)+1)
	out = append(out, ev)
	return append(out, events...)
}

// RecentEvents returns up to limit events, newest first.
func (s *Service) RecentEvents(ctx context.Context, limit int) ([]model.RecyclingEvent, error) {
	const op = "eventlog.recent_events"
	if limit < 0 {
		return nil, errs.Validation(op, fmt.Sprintf("limit must not be negative, got %d", limit))
	}
	events, err := s.repo.LoadHistory(ctx, storage.KeyHistory)
	if err != nil {
		return nil, errs.Wrap(op, err)
	}
	return events[:min(limit, len(events))], nil
}

// RecentActivity returns up to limit recent events joined to team names.
// Events whose team is gone carry model.OrphanTeamName.
func (s *Service) RecentActivity(ctx context.Context, limit int) ([]model.Activity, error) {
	const op = "eventlog.recent_activity"
	events, err := s.RecentEvents(ctx, limit)
	if err != nil {
		return nil, err
	}
	teams, err := s.repo.LoadTeams(ctx)
	if err != nil {
		return nil, errs.Wrap(op, err)
	}
	return model.JoinActivity(events, teams), nil
}

// LoadSnapshot aggregates the recycling log. On a storage failure it returns
// the zero snapshot together with the error so callers can render zeros and
// offer a retry.
func (s *Service) LoadSnapshot(ctx context.Context) (aggregate.Snapshot, error) {
	events, err := s.repo.LoadHistory(ctx, storage.KeyRecyclingLog)
	if err != nil {
		s.logger.Warn(ctx, "snapshot load failed; serving zeros", logger.Error(err))
		return aggregate.Empty(), errs.Wrap("aggregate.load_snapshot", err)
	}
	return aggregate.ComputeSnapshot(events), nil
}

// LastUpdate returns the instant of the last mutation, or the zero time.
func (s *Service) LastUpdate(ctx context.Context) (time.Time, error) {
	t, err := s.repo.LoadLastUpdate(ctx)
	return t, errs.Wrap("eventlog.last_update", err)
}

// Materials returns the selectable material table.
func (s *Service) Materials() []material.Definition {
	return material.Selectable()
}
