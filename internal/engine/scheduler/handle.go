package scheduler

import (
	"context"
	"sync"
)

// TaskStatus represents the status of a task within one execution.
type TaskStatus string

const (
	// StatusPending indicates the task is waiting for its dependencies.
	StatusPending TaskStatus = "Pending"
	// StatusRunning indicates the task is currently executing.
	StatusRunning TaskStatus = "Running"
	// StatusCompleted indicates the task has finished successfully.
	StatusCompleted TaskStatus = "Completed"
	// StatusFailed indicates the task's transform failed.
	StatusFailed TaskStatus = "Failed"
	// StatusSkipped indicates a dependency failed so the task never ran.
	StatusSkipped TaskStatus = "Skipped"
	// StatusCanceled indicates the execution was canceled before the task ran.
	StatusCanceled TaskStatus = "Canceled"
)

// Settled reports whether the status is final.
func (s TaskStatus) Settled() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusSkipped, StatusCanceled:
		return true
	default:
		return false
	}
}

// Handle is an awaitable view of one scheduled task.
type Handle struct {
	name string
	done chan struct{}

	mu     sync.RWMutex
	status TaskStatus
	err    error
}

func newHandle(name string) *Handle {
	return &Handle{name: name, done: make(chan struct{}), status: StatusPending}
}

// Name returns the task name.
func (h *Handle) Name() string {
	return h.name
}

// Done is closed once the task has settled.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the task settles or ctx is done and returns the task error.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status returns the current status.
func (h *Handle) Status() TaskStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status
}

// Err returns the error the task settled with, if any.
func (h *Handle) Err() error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.err
}

func (h *Handle) setRunning() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.status = StatusRunning
}

func (h *Handle) settle(status TaskStatus, err error) {
	h.mu.Lock()
	if h.status.Settled() {
		h.mu.Unlock()
		return
	}
	h.status = status
	h.err = err
	h.mu.Unlock()
	close(h.done)
}

// Execution tracks one scheduler invocation.
type Execution struct {
	order   []string
	targets []string
	handles map[string]*Handle
	done    chan struct{}
	err     error
}

// Tasks returns the scheduled task names in dependency order.
func (e *Execution) Tasks() []string {
	return e.order
}

// Targets returns the requested task names.
func (e *Execution) Targets() []string {
	return e.targets
}

// Handle returns the handle of a scheduled task.
func (e *Execution) Handle(name string) (*Handle, bool) {
	h, ok := e.handles[name]
	return h, ok
}

// Done is closed when every scheduled task has settled.
func (e *Execution) Done() <-chan struct{} {
	return e.done
}

// Wait blocks until the execution finishes and returns the first task failure.
// When the context was canceled the cancellation cause is joined in.
func (e *Execution) Wait() error {
	<-e.done
	return e.err
}
