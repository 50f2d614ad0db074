// Package storage provides the string-keyed key/value store that is the single
// source of truth for teams, history and the last-update marker.
//
// Backends make no transactional promise across separate calls. Every failure
// is classified as errs.ErrStorage.
package storage

import (
	"context"
	"time"

	"github.com/okian/recicla/pkg/metrics"
)

// Persisted keys.
const (
	KeyTeams        = "times"
	KeyHistory      = "historico"
	KeyRecyclingLog = "historicoReciclagem"
	KeyLastUpdate   = "lastUpdate"
)

const (
	backendMemory   = "memory"
	backendSQLite   = "sqlite"
	opGet           = "get"
	opSet           = "set"
	opRemove        = "remove"
	opMultiGet      = "multi_get"
	opMultiSet      = "multi_set"
	opMultiRemove   = "multi_remove"
	storageOpPrefix = "storage."
	msPerDuration   = float64(time.Millisecond)
)

// Store is a string-keyed, string-valued persistent store.
type Store interface {
	// Get returns the value under key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	// MultiGet omits absent keys from the result.
	MultiGet(ctx context.Context, keys ...string) (map[string]string, error)
	MultiSet(ctx context.Context, pairs map[string]string) error
	MultiRemove(ctx context.Context, keys ...string) error
	Close() error
}

// observe records latency and, on failure, an error count for one call.
func observe(backend, op string, start time.Time, err error) {
	metrics.RecordStoreOperation(backend, op, float64(time.Since(start))/msPerDuration)
	if err != nil {
		metrics.RecordStoreError(backend, op)
	}
}
