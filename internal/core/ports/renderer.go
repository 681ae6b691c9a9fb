package ports

import (
	"context"
	"time"
)

// Renderer presents task progress. The same span stream drives the interactive
// TUI during builds and the linear log in CI and dev sessions.
//
//go:generate mockgen -source=renderer.go -destination=mocks/mock_renderer.go -package=mocks
type Renderer interface {
	// Start begins the renderer lifecycle. Asynchronous renderers start their loop here.
	Start(ctx context.Context) error

	// Stop flushes buffered output and stops accepting events.
	Stop() error

	// Wait blocks until the renderer has terminated.
	Wait() error

	// OnPlanEmit receives the planned tasks in dependency order, each task's
	// dependencies and the requested targets.
	OnPlanEmit(tasks []string, deps map[string][]string, targets []string)

	// OnTaskStart is called when a task span starts. parentID is empty for top-level tasks.
	OnTaskStart(spanID, parentID, name string, startTime time.Time)

	// OnTaskLog receives raw task output. data may hold partial lines and ANSI sequences.
	OnTaskLog(spanID string, data []byte)

	// OnTaskComplete is called when a task span ends. err is nil on success.
	OnTaskComplete(spanID string, endTime time.Time, err error)
}
