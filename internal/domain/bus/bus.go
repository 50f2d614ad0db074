// Package bus implements the cross-view invalidation signal: a single
// "store changed" channel that tells active views to reload from the store.
//
// The bus carries no payload. Listeners always reload full state.
package bus

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/recicla/pkg/logger"
	"github.com/okian/recicla/pkg/metrics"
)

// Handler reacts to a store change.
type Handler func(ctx context.Context)

// Signaler is the emit side of the bus, as seen by writers.
type Signaler interface {
	Emit(ctx context.Context)
}

// Subscriber is the listen side of the bus, as seen by views.
type Subscriber interface {
	Subscribe(h Handler) (unsubscribe func())
}

type subscription struct {
	id uint64
	h  Handler
}

// Bus is a synchronous, ordered observer registry.
//
// Emit runs every handler registered at the moment Emit is called, in
// registration order, on the caller's goroutine, before returning.
type Bus struct {
	mu     sync.Mutex
	subs   []subscription
	nextID uint64
	closed bool

	logger logger.Logger
}

// Option applies a configuration option to the Bus.
type Option func(*Bus)

// WithLogger sets the logger used to report recovered handler panics.
func WithLogger(l logger.Logger) Option {
	return func(b *Bus) {
		if l != nil {
			b.logger = l
		}
	}
}

// New creates an open bus.
func New(opts ...Option) *Bus {
	b := &Bus{}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = logger.Named("bus")
	}
	return b
}

// Subscribe registers h and returns a function that removes it. The returned
// function is safe to call more than once. Subscribing to a closed bus
// registers nothing.
func (b *Bus) Subscribe(h Handler) func() {
	if h == nil {
		return func() {}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return func() {}
	}
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, h: h})
	metrics.UpdateBusListeners(len(b.subs))

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			break
		}
	}
	metrics.UpdateBusListeners(len(b.subs))
}

// Emit dispatches the change signal. Handlers may subscribe or unsubscribe
// while being dispatched; such changes take effect on the next Emit.
func (b *Bus) Emit(ctx context.Context) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	snapshot := make([]subscription, len(b.subs))
	copy(snapshot, b.subs)
	b.mu.Unlock()

	metrics.RecordBusEmit()
	for _, s := range snapshot {
		b.dispatch(ctx, s)
	}
}

func (b *Bus) dispatch(ctx context.Context, s subscription) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordErrorByComponent("bus", "handler_panic")
			b.logger.Error(ctx, "listener panicked",
				logger.Any("subscription", s.id),
				logger.String("panic", fmt.Sprint(r)),
			)
		}
	}()
	s.h(ctx)
}

// Len returns the number of registered listeners.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close drops every listener. Later Emit calls are no-ops.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.subs = nil
	metrics.UpdateBusListeners(0)
}
