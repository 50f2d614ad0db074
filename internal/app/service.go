// Package service owns the team registry, the event log and the single writer
// that serializes every mutation of the persisted state.
//
// Reads go straight to the repository. Mutations are queued, applied one at a
// time by the writer goroutine, and followed by a store-changed broadcast on
// the invalidation bus once the write has landed.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	eventqueue "github.com/okian/recicla/internal/adapters/mq/queue"
	"github.com/okian/recicla/internal/adapters/mq/worker"
	"github.com/okian/recicla/internal/adapters/repository"
	"github.com/okian/recicla/internal/domain/bus"
	"github.com/okian/recicla/internal/domain/dedupe"
	"github.com/okian/recicla/pkg/logger"
	"github.com/okian/recicla/pkg/metrics"
)

const (
	defaultQueueSize  = 256
	defaultDedupeSize = 1024
	stopTimeout       = 5 * time.Second
)

// Service implements the registry and event log operations.
type Service struct {
	mu sync.RWMutex

	// Core components
	repo    repository.Store
	bus     *bus.Bus
	deduper dedupe.Deduper
	queue   eventqueue.Queue
	writer  *worker.Writer
	cancel  context.CancelFunc

	// Configuration
	queueSize  int
	dedupeSize int
	now        func() time.Time
	newID      func() (string, error)

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithQueueSize sets the capacity of the mutation queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many register request ids are remembered.
// Zero disables request deduplication.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size >= 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock replaces time.Now for event timestamps and lastUpdate.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator replaces the UUIDv7 team id generator.
func WithIDGenerator(gen func() (string, error)) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

func newUUIDv7() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// New constructs a Service over repo.
func New(repo repository.Store, opts ...Option) *Service {
	s := &Service{
		repo:       repo,
		queueSize:  defaultQueueSize,
		dedupeSize: defaultDedupeSize,
		now:        time.Now,
		newID:      newUUIDv7,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start creates the bus, the queue and the writer goroutine.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Named("service")
	}

	s.logger.Info(ctx, "starting recycling service...")

	s.bus = bus.New(bus.WithLogger(s.logger.Named("bus")))
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	q := eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.queue = q
	s.writer = worker.New(q, worker.WithLogger(s.logger.Named("writer")))

	// The writer outlives the Start call; only Stop ends it.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	go s.writer.Run(runCtx)

	if teams, err := s.repo.LoadTeams(ctx); err == nil {
		metrics.UpdateTeamCount(len(teams))
	} else {
		s.logger.Warn(ctx, "initial team load failed", logger.Error(err))
	}

	s.started = true
	s.logger.Info(ctx, "recycling service started",
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

// Stop runs every accepted mutation, stops the writer and closes the bus.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping recycling service...")

	_ = s.queue.Close()
	shutdownCtx, cancel := context.WithTimeout(ctx, stopTimeout)
	defer cancel()
	if err := s.writer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error(ctx, "writer shutdown failed", logger.Error(err))
	}
	s.cancel()
	s.bus.Close()

	s.started = false
	s.logger.Info(ctx, "recycling service stopped")
}

// Subscribe registers h for store-changed broadcasts. Before Start or after
// Stop it returns a no-op unsubscribe.
func (s *Service) Subscribe(h bus.Handler) func() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return func() {}
	}
	return s.bus.Subscribe(h)
}

// submit runs fn on the writer and waits for it.
func (s *Service) submit(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	s.mu.RLock()
	if !s.started {
		s.mu.RUnlock()
		return ErrNotStarted
	}
	q := s.queue
	s.mu.RUnlock()

	return eventqueue.Do(ctx, q, op, fn)
}

// emit broadcasts a store change. It runs on the writer goroutine after a
// committed write, so listeners reload even if the caller has gone away.
func (s *Service) emit(ctx context.Context) {
	s.bus.Emit(context.WithoutCancel(ctx))
}

// stamp returns the current instant at the precision the store keeps.
func (s *Service) stamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":    s.started,
		"queueSize":  s.queueSize,
		"dedupeSize": s.dedupeSize,
	}
	if !s.started {
		return stats
	}

	queueLen := s.queue.Len()
	stats["queueLength"] = queueLen
	stats["listeners"] = s.bus.Len()
	stats["dedupeEntries"] = s.deduper.Size()
	metrics.UpdateQueueSize(queueLen)

	if teams, err := s.repo.LoadTeams(ctx); err == nil {
		stats["totalTeams"] = len(teams)
		metrics.UpdateTeamCount(len(teams))
	} else {
		stats["storeError"] = err.Error()
	}
	if last, err := s.repo.LoadLastUpdate(ctx); err == nil && !last.IsZero() {
		stats["lastUpdate"] = last.UnixMilli()
	}
	return stats
}
