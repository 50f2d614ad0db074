// Package dedupe remembers recently answered register requests so a repeated
// request id returns the original event instead of recording a second one.
package dedupe

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"

	"github.com/okian/recicla/internal/domain/model"
)

const defaultMaxSize = 1024

// Deduper maps request ids to the event they produced.
type Deduper interface {
	// Lookup returns the event recorded for id, if it is still remembered.
	Lookup(ctx context.Context, id string) (model.RecyclingEvent, bool)

	// Record remembers ev as the answer for id, evicting the oldest entry
	// when the window is full.
	Record(ctx context.Context, id string, ev model.RecyclingEvent)

	// Clear forgets every id. Used when history is wiped.
	Clear(ctx context.Context)

	Size() int64
}

type entry struct {
	id string
	ev model.RecyclingEvent
}

// inMemoryDeduper keeps a bounded FIFO window of request ids.
// maxSize <= 0 disables the window: nothing is remembered.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List // front is the most recently recorded
	maxSize int
	size    atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]*list.Element)
	d.order = list.New()
	return d
}

func (d *inMemoryDeduper) Lookup(_ context.Context, id string) (model.RecyclingEvent, bool) {
	if id == "" {
		return model.RecyclingEvent{}, false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	el, ok := d.seen[id]
	if !ok {
		return model.RecyclingEvent{}, false
	}
	return el.Value.(*entry).ev, true
}

func (d *inMemoryDeduper) Record(_ context.Context, id string, ev model.RecyclingEvent) {
	if id == "" || d.maxSize <= 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[id]; ok {
		el.Value.(*entry).ev = ev
		return
	}
	for d.order.Len() >= d.maxSize {
		d.evictOldest()
	}
	d.seen[id] = d.order.PushFront(&entry{id: id, ev: ev})
	d.size.Add(1)
}

// evictOldest drops the back of the window. Caller holds d.mu.
func (d *inMemoryDeduper) evictOldest() {
	el := d.order.Back()
	if el == nil {
		return
	}
	d.order.Remove(el)
	delete(d.seen, el.Value.(*entry).id)
	d.size.Add(-1)
}

func (d *inMemoryDeduper) Clear(_ context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen = make(map[string]*list.Element)
	d.order.Init()
	d.size.Store(0)
}

// Size returns the current number of remembered ids.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
