package views

import (
	"context"
	"time"

	"github.com/okian/recicla/internal/domain/aggregate"
	"github.com/okian/recicla/internal/domain/bus"
	"github.com/okian/recicla/pkg/logger"
)

// HomeSource is what the home view reads.
type HomeSource interface {
	bus.Subscriber
	LoadSnapshot(ctx context.Context) (aggregate.Snapshot, error)
	LastUpdate(ctx context.Context) (time.Time, error)
}

// HomeState is the rendered content of the home screen.
type HomeState struct {
	Snapshot   aggregate.Snapshot `json:"snapshot"`
	Impact     aggregate.Impact   `json:"impact"`
	LastUpdate *time.Time         `json:"last_update,omitempty"`
	// Error is set when the last load failed; totals are zero and the load
	// can be retried.
	Error  string `json:"error,omitempty"`
	Loaded bool   `json:"loaded"`
}

// Home shows recycling totals and impact estimates.
type Home struct {
	src    HomeSource
	logger logger.Logger
	lc     lifecycle
	state  HomeState
}

// NewHome creates an inactive home view.
func NewHome(src HomeSource, l logger.Logger) *Home {
	if l == nil {
		l = logger.Named(NameHome)
	}
	empty := aggregate.Empty()
	return &Home{
		src:    src,
		logger: l,
		lc:     lifecycle{name: NameHome},
		state:  HomeState{Snapshot: empty, Impact: aggregate.ComputeImpactMetrics(0)},
	}
}

// Activate subscribes to store changes and loads once.
func (h *Home) Activate(ctx context.Context) error {
	h.lc.activate(h.src, handler(h.Reload))
	return h.Reload(ctx)
}

// Deactivate stops listening. Loads in flight are discarded.
func (h *Home) Deactivate() { h.lc.deactivate() }

// Active reports whether the view is listening.
func (h *Home) Active() bool { return h.lc.isActive() }

// Reload reads the store and recomputes the state.
func (h *Home) Reload(ctx context.Context) error {
	epoch, ok := h.lc.begin()
	if !ok {
		return nil
	}

	snap, loadErr := h.src.LoadSnapshot(ctx)
	last, lastErr := h.src.LastUpdate(ctx)

	next := HomeState{
		Snapshot: snap,
		Impact:   aggregate.ComputeImpactMetrics(snap.TotalItems),
		Loaded:   true,
	}
	if lastErr == nil && !last.IsZero() {
		next.LastUpdate = &last
	}
	err := loadErr
	if err == nil {
		err = lastErr
	}
	if err != nil {
		next.Error = err.Error()
		h.logger.Warn(ctx, "home load failed", logger.Error(err))
	}

	h.lc.commit(epoch, func() { h.state = next })
	return err
}

// State returns a copy of the current state.
func (h *Home) State() HomeState {
	h.lc.mu.Lock()
	defer h.lc.mu.Unlock()
	return h.state
}
