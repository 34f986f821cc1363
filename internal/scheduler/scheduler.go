// Package scheduler runs named deferred tasks in-process. Handlers
// re-submit follow-up tasks to continue multi-page work, so long sweeps
// never hold an HTTP request open.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Task is one unit of deferred work. Cursor is opaque to the scheduler;
// handlers use it to carry pagination state between runs.
type Task struct {
	Name   string
	Cursor string
}

// Handler processes one task. Returning an error ends the chain; the
// scheduler logs it and does not retry.
type Handler func(ctx context.Context, t Task) error

// Dispatcher executes tasks on background goroutines.
type Dispatcher struct {
	logger *zap.Logger

	mu       sync.RWMutex
	handlers map[string]Handler
	closed   bool

	wg     sync.WaitGroup
	base   context.Context
	cancel context.CancelFunc
}

// New creates a dispatcher with no registered handlers.
func New(logger *zap.Logger) *Dispatcher {
	base, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		logger:   logger,
		handlers: make(map[string]Handler),
		base:     base,
		cancel:   cancel,
	}
}

// Register installs the handler for a task name, replacing any previous one.
func (d *Dispatcher) Register(name string, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[name] = h
}

// Submit queues the task for asynchronous execution. Tasks run with the
// dispatcher's base context, not the caller's, so an HTTP trigger
// returning does not cancel the work.
func (d *Dispatcher) Submit(t Task) error {
	d.mu.RLock()
	h, ok := d.handlers[t.Name]
	closed := d.closed
	d.mu.RUnlock()

	if closed {
		return fmt.Errorf("scheduler is shut down")
	}
	if !ok {
		return fmt.Errorf("no handler registered for task %q", t.Name)
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := h(d.base, t); err != nil {
			d.logger.Error("Task failed",
				zap.String("task", t.Name),
				zap.String("cursor", t.Cursor),
				zap.Error(err),
			)
		}
	}()
	return nil
}

// Shutdown stops accepting tasks, cancels running ones, and waits for
// them to finish or ctx to expire.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.cancel()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler shutdown: %w", ctx.Err())
	}
}
