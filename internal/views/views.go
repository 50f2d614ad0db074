// Package views holds the view models behind the home, ranking and
// recycling-entry screens.
//
// A view is active between Activate and Deactivate. While active it listens to
// the invalidation bus and reloads from the store on every broadcast. Each
// activation bumps an epoch; a load that finishes after the epoch moved on is
// dropped without touching the view state.
package views

import (
	"context"
	"sync"

	"github.com/okian/recicla/internal/domain/bus"
	"github.com/okian/recicla/pkg/metrics"
)

// View names used in logs and metrics.
const (
	NameHome    = "home"
	NameRanking = "ranking"
	NameRecycle = "recycle"
)

// lifecycle tracks activation and the epoch used to drop stale loads.
type lifecycle struct {
	name string

	mu          sync.Mutex
	epoch       uint64
	active      bool
	unsubscribe func()
}

// activate starts a new epoch and subscribes reload to sub.
func (l *lifecycle) activate(sub bus.Subscriber, reload bus.Handler) uint64 {
	l.mu.Lock()
	previous := l.unsubscribe
	l.unsubscribe = nil
	l.epoch++
	l.active = true
	epoch := l.epoch
	l.mu.Unlock()

	if previous != nil {
		previous()
	}

	// Subscribe outside the lock: a broadcast may already be running reload.
	unsubscribe := sub.Subscribe(reload)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.epoch != epoch {
		unsubscribe()
		return epoch
	}
	l.unsubscribe = unsubscribe
	return epoch
}

// deactivate ends the current epoch and drops the subscription.
func (l *lifecycle) deactivate() {
	l.mu.Lock()
	unsubscribe := l.unsubscribe
	l.unsubscribe = nil
	l.active = false
	l.epoch++
	l.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// begin captures the epoch a load runs under. ok is false when inactive.
func (l *lifecycle) begin() (epoch uint64, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.epoch, l.active
}

// commit runs apply under the lock if epoch is still current, and reports
// whether it did.
func (l *lifecycle) commit(epoch uint64, apply func()) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.active || l.epoch != epoch {
		metrics.RecordViewDiscard(l.name)
		return false
	}
	apply()
	metrics.RecordViewReload(l.name)
	return true
}

// isActive reports whether the view is between Activate and Deactivate.
func (l *lifecycle) isActive() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// handler adapts a reload method to a bus handler that ignores its error; the
// error is kept in the view state.
func handler(reload func(ctx context.Context) error) bus.Handler {
	return func(ctx context.Context) { _ = reload(ctx) }
}
