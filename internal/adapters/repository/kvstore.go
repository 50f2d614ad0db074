package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/recicla/internal/adapters/storage"
	"github.com/okian/recicla/internal/domain/errs"
	"github.com/okian/recicla/internal/domain/model"
	"github.com/okian/recicla/pkg/logger"
)

// KVStore implements Store on top of a storage.Store.
type KVStore struct {
	kv     storage.Store
	logger logger.Logger
}

var _ Store = (*KVStore)(nil)

// NewKVStore wraps kv with typed accessors.
func NewKVStore(kv storage.Store, opts ...Option) *KVStore {
	s := &KVStore{kv: kv}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Named("repository")
	}
	return s
}

// malformed logs and classifies a decode failure as a storage error.
func (s *KVStore) malformed(ctx context.Context, op, key string, err error) error {
	s.logger.Warn(ctx, "malformed persisted value", logger.String("key", key), logger.Error(err))
	return errs.WrapKind(op, errs.ErrStorage, fmt.Errorf("%w: %s: %w", ErrMalformed, key, err))
}

// LoadTeams returns the team list in insertion order. An absent key is an
// empty list.
func (s *KVStore) LoadTeams(ctx context.Context) ([]model.Team, error) {
	const op = "repository.load_teams"
	raw, ok, err := s.kv.Get(ctx, storage.KeyTeams)
	if err != nil {
		return nil, errs.Wrap(op, err)
	}
	if !ok {
		return []model.Team{}, nil
	}
	teams, err := decodeTeams(raw)
	if err != nil {
		return nil, s.malformed(ctx, op, storage.KeyTeams, err)
	}
	return teams, nil
}

// LoadHistory returns the events under key, newest first.
func (s *KVStore) LoadHistory(ctx context.Context, key string) ([]model.RecyclingEvent, error) {
	const op = "repository.load_history"
	if key != storage.KeyHistory && key != storage.KeyRecyclingLog {
		return nil, errs.Validation(op, fmt.Sprintf("unknown history key %q", key))
	}
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return nil, errs.Wrap(op, err)
	}
	if !ok {
		return []model.RecyclingEvent{}, nil
	}
	events, err := decodeEvents(raw)
	if err != nil {
		return nil, s.malformed(ctx, op, key, err)
	}
	return events, nil
}

// LoadLastUpdate returns the last mutation instant, or the zero time.
func (s *KVStore) LoadLastUpdate(ctx context.Context) (time.Time, error) {
	const op = "repository.load_last_update"
	raw, ok, err := s.kv.Get(ctx, storage.KeyLastUpdate)
	if err != nil {
		return time.Time{}, errs.Wrap(op, err)
	}
	if !ok {
		return time.Time{}, nil
	}
	t, err := decodeLastUpdate(raw)
	if err != nil {
		return time.Time{}, s.malformed(ctx, op, storage.KeyLastUpdate, err)
	}
	return t, nil
}

// LoadState reads every key in one MultiGet.
func (s *KVStore) LoadState(ctx context.Context) (State, error) {
	const op = "repository.load_state"
	vals, err := s.kv.MultiGet(ctx, storage.KeyTeams, storage.KeyHistory, storage.KeyRecyclingLog, storage.KeyLastUpdate)
	if err != nil {
		return State{}, errs.Wrap(op, err)
	}

	st := State{
		Teams:        []model.Team{},
		History:      []model.RecyclingEvent{},
		RecyclingLog: []model.RecyclingEvent{},
	}
	if raw, ok := vals[storage.KeyTeams]; ok {
		if st.Teams, err = decodeTeams(raw); err != nil {
			return State{}, s.malformed(ctx, op, storage.KeyTeams, err)
		}
	}
	if raw, ok := vals[storage.KeyHistory]; ok {
		if st.History, err = decodeEvents(raw); err != nil {
			return State{}, s.malformed(ctx, op, storage.KeyHistory, err)
		}
	}
	if raw, ok := vals[storage.KeyRecyclingLog]; ok {
		if st.RecyclingLog, err = decodeEvents(raw); err != nil {
			return State{}, s.malformed(ctx, op, storage.KeyRecyclingLog, err)
		}
	}
	if raw, ok := vals[storage.KeyLastUpdate]; ok {
		if st.LastUpdate, err = decodeLastUpdate(raw); err != nil {
			return State{}, s.malformed(ctx, op, storage.KeyLastUpdate, err)
		}
	}
	return st, nil
}

// Commit writes the keys named by m in one MultiSet, then removes cleared
// keys in one MultiRemove. A failure between the two calls leaves the
// writes applied.
func (s *KVStore) Commit(ctx context.Context, m Mutation) error {
	const op = "repository.commit"

	pairs := make(map[string]string, 4)
	if m.WriteTeams && !m.ClearTeams {
		raw, err := encodeTeams(m.Teams)
		if err != nil {
			return errs.WrapKind(op, errs.ErrStorage, err)
		}
		pairs[storage.KeyTeams] = raw
	}
	if m.WriteHistory && !m.ClearHistory {
		history, err := encodeEvents(m.History)
		if err != nil {
			return errs.WrapKind(op, errs.ErrStorage, err)
		}
		recycling, err := encodeEvents(m.RecyclingLog)
		if err != nil {
			return errs.WrapKind(op, errs.ErrStorage, err)
		}
		pairs[storage.KeyHistory] = history
		pairs[storage.KeyRecyclingLog] = recycling
	}
	if !m.LastUpdate.IsZero() {
		pairs[storage.KeyLastUpdate] = encodeLastUpdate(m.LastUpdate)
	}

	if len(pairs) > 0 {
		if err := s.kv.MultiSet(ctx, pairs); err != nil {
			return errs.Wrap(op, err)
		}
	}
	var removed []string
	if m.ClearTeams {
		removed = append(removed, storage.KeyTeams)
	}
	if m.ClearHistory {
		removed = append(removed, storage.KeyHistory, storage.KeyRecyclingLog)
	}
	if len(removed) > 0 {
		if err := s.kv.MultiRemove(ctx, removed...); err != nil {
			s.logger.Error(ctx, "key removal failed after writes applied", logger.Error(err))
			return errs.Wrap(op, err)
		}
	}
	return nil
}
