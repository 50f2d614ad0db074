package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/recicla/internal/adapters/mq/queue"
	"github.com/okian/recicla/pkg/logger"
	"github.com/okian/recicla/pkg/metrics"
)

// Source is where the writer reads jobs from.
type Source interface {
	Dequeue() <-chan queue.Job
	Len() int
}

// Worker applies queued mutations one at a time.
type Worker interface {
	// Run processes jobs until the source closes, ctx ends, or Shutdown.
	Run(ctx context.Context)

	// Shutdown stops the worker after it has run every job already queued.
	Shutdown(ctx context.Context) error
}

// Writer is the only goroutine allowed to mutate persisted state.
type Writer struct {
	source Source
	name   string
	logger logger.Logger

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}
}

var _ Worker = (*Writer)(nil)

// New creates a writer draining source.
func New(source Source, opts ...Option) *Writer {
	w := &Writer{
		source:   source,
		name:     "writer",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop on the calling goroutine.
func (w *Writer) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.source.Dequeue()
	for {
		if ctx.Err() != nil {
			w.failPending(queue.ErrStopped)
			return
		}
		select {
		case <-ctx.Done():
			w.failPending(queue.ErrStopped)
			return
		case <-w.shutdown:
			w.drain()
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			w.process(j)
		}
	}
}

// Shutdown signals the loop and waits for it to finish.
func (w *Writer) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed once Run has returned.
func (w *Writer) Done() <-chan struct{} { return w.done }

func (w *Writer) process(j queue.Job) {
	start := time.Now()
	err := j.Run()
	metrics.RecordMutationLatency(j.Op(), float64(time.Since(start))/float64(time.Millisecond))
	metrics.UpdateQueueSize(w.source.Len())
	if err != nil {
		metrics.RecordErrorByComponent("writer", j.Op())
		w.logger.Debug(context.Background(), "mutation failed",
			logger.String("op", j.Op()),
			logger.Error(err),
		)
	}
}

// drain runs jobs that were accepted before shutdown.
func (w *Writer) drain() {
	jobs := w.source.Dequeue()
	for {
		select {
		case j, ok := <-jobs:
			if !ok {
				return
			}
			w.process(j)
		default:
			return
		}
	}
}

// failPending answers every buffered job with err so no caller waits forever.
func (w *Writer) failPending(err error) {
	jobs := w.source.Dequeue()
	for {
		select {
		case j, ok := <-jobs:
			if !ok {
				return
			}
			j.Fail(err)
		default:
			return
		}
	}
}
