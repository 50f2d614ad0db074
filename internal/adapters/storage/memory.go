package storage

import (
	"context"
	"sync"
	"time"

	"github.com/okian/recicla/internal/domain/errs"
)

// MemoryStore keeps values in a map. Its contents die with the process.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string]string
	closed bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

func (m *MemoryStore) check(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return errs.WrapKind(storageOpPrefix+op, errs.ErrStorage, err)
	}
	if m.closed {
		return errs.WrapKind(storageOpPrefix+op, errs.ErrStorage, ErrClosed)
	}
	return nil
}

// Get implements Store.
func (m *MemoryStore) Get(ctx context.Context, key string) (v string, ok bool, err error) {
	defer func(start time.Time) { observe(backendMemory, opGet, start, err) }(time.Now())
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err = m.check(ctx, opGet); err != nil {
		return "", false, err
	}
	v, ok = m.data[key]
	return v, ok, nil
}

// Set implements Store.
func (m *MemoryStore) Set(ctx context.Context, key, value string) (err error) {
	defer func(start time.Time) { observe(backendMemory, opSet, start, err) }(time.Now())
	m.mu.Lock()
	defer m.mu.Unlock()
	if err = m.check(ctx, opSet); err != nil {
		return err
	}
	m.data[key] = value
	return nil
}

// Remove implements Store. Removing an absent key is not an error.
func (m *MemoryStore) Remove(ctx context.Context, key string) (err error) {
	defer func(start time.Time) { observe(backendMemory, opRemove, start, err) }(time.Now())
	m.mu.Lock()
	defer m.mu.Unlock()
	if err = m.check(ctx, opRemove); err != nil {
		return err
	}
	delete(m.data, key)
	return nil
}

// MultiGet implements Store.
func (m *MemoryStore) MultiGet(ctx context.Context, keys ...string) (out map[string]string, err error) {
	defer func(start time.Time) { observe(backendMemory, opMultiGet, start, err) }(time.Now())
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err = m.check(ctx, opMultiGet); err != nil {
		return nil, err
	}
	out = make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := m.data[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

// MultiSet implements Store.
func (m *MemoryStore) MultiSet(ctx context.Context, pairs map[string]string) (err error) {
	defer func(start time.Time) { observe(backendMemory, opMultiSet, start, err) }(time.Now())
	m.mu.Lock()
	defer m.mu.Unlock()
	if err = m.check(ctx, opMultiSet); err != nil {
		return err
	}
	for k, v := range pairs {
		m.data[k] = v
	}
	return nil
}

// MultiRemove implements Store.
func (m *MemoryStore) MultiRemove(ctx context.Context, keys ...string) (err error) {
	defer func(start time.Time) { observe(backendMemory, opMultiRemove, start, err) }(time.Now())
	m.mu.Lock()
	defer m.mu.Unlock()
	if err = m.check(ctx, opMultiRemove); err != nil {
		return err
	}
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

// Close marks the store closed. Later calls fail with ErrClosed.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
