// Package tasks runs fire-and-forget background work that must be allowed to
// finish after a response has been returned, but before the process shuts
// down. Cache stores, revalidations, analytics export and trend increments
// all go through a Runner.
package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/go-kratos/kratos/v2/log"
)

// DefaultTaskTimeout bounds a single background task.
const DefaultTaskTimeout = 30 * time.Second

// Runner tracks background goroutines so Shutdown can drain them.
// A nil *Runner is valid: Go then runs the task inline, which is the
// synchronous fallback mode for hosts without background execution.
type Runner struct {
	wg      sync.WaitGroup
	timeout time.Duration
	logger  *log.Helper

	mu     sync.Mutex
	closed bool
}

// NewRunner creates a Runner with the given per-task timeout.
// A non-positive timeout falls back to DefaultTaskTimeout.
func NewRunner(timeout time.Duration, logger log.Logger) *Runner {
	if timeout <= 0 {
		timeout = DefaultTaskTimeout
	}
	return &Runner{
		timeout: timeout,
		logger:  log.NewHelper(logger),
	}
}

// Go schedules fn on a tracked goroutine. The task receives its own context
// detached from the request (the request may already have completed) with the
// runner's timeout applied. Panics are recovered and logged; a background
// task must never take the process down.
//
// After Shutdown has begun, or on a nil Runner, fn runs inline instead.
func (r *Runner) Go(name string, fn func(ctx context.Context)) {
	if r == nil {
		r.runInline(name, fn)
		return
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.runInline(name, fn)
		return
	}
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Errorw("background task panicked",
					"task", name,
					"panic", rec)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		fn(ctx)
	}()
}

// runInline executes fn synchronously with the default timeout.
func (r *Runner) runInline(name string, fn func(ctx context.Context)) {
	defer func() {
		if rec := recover(); rec != nil && r != nil {
			r.logger.Errorw("inline task panicked", "task", name, "panic", rec)
		}
	}()

	timeout := DefaultTaskTimeout
	if r != nil {
		timeout = r.timeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	fn(ctx)
}

// Shutdown stops accepting new background tasks and waits for in-flight ones
// to finish, or for ctx to expire, whichever comes first.
func (r *Runner) Shutdown(ctx context.Context) error {
	if r == nil {
		return nil
	}

	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		r.logger.Warnw("shutdown deadline reached with background tasks still running")
		return ctx.Err()
	}
}
