package telemetry_test

import (
	"context"
	"sync"
	"time"
)

// event is one renderer callback, recorded in arrival order.
type event struct {
	kind   string
	spanID string
	name   string
	data   string
	err    error
}

// recordingRenderer is a test double for ports.Renderer.
type recordingRenderer struct {
	mu     sync.Mutex
	events []event
	plans  [][]string
}

func (r *recordingRenderer) Start(_ context.Context) error { return nil }
func (r *recordingRenderer) Stop() error                   { return nil }
func (r *recordingRenderer) Wait() error                   { return nil }

func (r *recordingRenderer) OnPlanEmit(tasks []string, _ map[string][]string, _ []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plans = append(r.plans, tasks)
}

func (r *recordingRenderer) OnTaskStart(spanID, _, name string, _ time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{kind: "start", spanID: spanID, name: name})
}

func (r *recordingRenderer) OnTaskLog(spanID string, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{kind: "log", spanID: spanID, data: string(data)})
}

func (r *recordingRenderer) OnTaskComplete(spanID string, _ time.Time, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{kind: "complete", spanID: spanID, err: err})
}

func (r *recordingRenderer) snapshot() []event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event(nil), r.events...)
}
