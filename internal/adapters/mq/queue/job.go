package queue

import (
	"context"
	"sync/atomic"
)

// Job states. A job is claimed exactly once: by the writer when it starts
// running it, or by the caller when it stops waiting first.
const (
	statePending int32 = iota
	stateStarted
	stateAbandoned
)

// Job is one mutation waiting for the writer. The submitting goroutine keeps
// a copy and waits on it; the writer runs it and reports the result.
type Job struct {
	op     string
	ctx    context.Context //nolint:containedctx // the caller's context travels with the job
	apply  func(ctx context.Context) error
	result chan error
	state  *atomic.Int32
}

// NewJob wraps fn. fn sees ctx values but not its cancellation.
func NewJob(ctx context.Context, op string, fn func(ctx context.Context) error) Job {
	return Job{op: op, ctx: ctx, apply: fn, result: make(chan error, 1), state: new(atomic.Int32)}
}

// Op names the mutation for logs and metrics.
func (j Job) Op() string { return j.op }

// Run executes the job unless its caller already gave up, and reports the
// outcome to the waiting caller. Once started, fn runs to completion: the
// caller's cancellation no longer reaches it, so a committed mutation is
// never reported as canceled.
func (j Job) Run() error {
	if err := j.ctx.Err(); err != nil {
		j.state.CompareAndSwap(statePending, stateAbandoned)
		j.result <- err
		return err
	}
	if !j.state.CompareAndSwap(statePending, stateStarted) {
		// The caller stopped waiting first.
		err := j.ctx.Err()
		if err == nil {
			err = context.Canceled
		}
		j.result <- err
		return err
	}
	err := j.apply(context.WithoutCancel(j.ctx))
	j.result <- err
	return err
}

// Fail reports err without running the job.
func (j Job) Fail(err error) {
	j.state.CompareAndSwap(statePending, stateAbandoned)
	j.result <- err
}

// Wait blocks until the job has run. If ctx ends before the writer picked
// the job up, the job is abandoned and ctx's error returned; if the writer
// already started it, Wait still returns the job's own result.
func (j Job) Wait(ctx context.Context) error {
	select {
	case err := <-j.result:
		return err
	case <-ctx.Done():
	}
	if j.state.CompareAndSwap(statePending, stateAbandoned) {
		return ctx.Err()
	}
	return <-j.result
}

// Do enqueues fn on q and waits for the writer to run it.
func Do(ctx context.Context, q Queue, op string, fn func(ctx context.Context) error) error {
	j := NewJob(ctx, op, fn)
	if err := q.Enqueue(ctx, j); err != nil {
		return err
	}
	return j.Wait(ctx)
}
