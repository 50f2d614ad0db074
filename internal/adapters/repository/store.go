// Package repository gives typed access to the teams, history and
// last-update keys held by the key/value store.
//
// Values are decoded strictly: unknown fields, trailing data or out-of-range
// values fail closed as errs.ErrStorage instead of being coerced.
package repository

import (
	"context"
	"time"

	"github.com/okian/recicla/internal/domain/model"
)

// State is a consistent read of every persisted key.
type State struct {
	Teams        []model.Team
	History      []model.RecyclingEvent // newest first, "historico"
	RecyclingLog []model.RecyclingEvent // newest first, "historicoReciclagem"
	LastUpdate   time.Time              // zero when never written
}

// Mutation is the set of keys one logical operation changes.
//
// Fields not flagged for writing are left untouched. ClearTeams and
// ClearHistory remove their keys after the writes land.
type Mutation struct {
	Teams      []model.Team
	WriteTeams bool
	ClearTeams bool

	History      []model.RecyclingEvent
	RecyclingLog []model.RecyclingEvent
	WriteHistory bool
	ClearHistory bool

	LastUpdate time.Time
}

// Store provides typed read/write access to persisted state.
type Store interface {
	LoadTeams(ctx context.Context) ([]model.Team, error)
	// LoadHistory decodes one of the two history keys.
	LoadHistory(ctx context.Context, key string) ([]model.RecyclingEvent, error)
	LoadLastUpdate(ctx context.Context) (time.Time, error)
	LoadState(ctx context.Context) (State, error)
	// Commit writes every key named by m with as few store calls as possible.
	Commit(ctx context.Context, m Mutation) error
}
