package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.trai.ch/kiln/internal/core/ports"
)

var _ ports.Renderer = (*Renderer)(nil)

// Renderer drives the interactive task view. Scheduler callbacks arrive on
// arbitrary goroutines and are turned into tea messages for the model.
type Renderer struct {
	program *tea.Program
	model   *Model
	exited  chan error
}

// NewRenderer binds model to a tea program built with opts.
func NewRenderer(model *Model, opts ...tea.ProgramOption) *Renderer {
	return &Renderer{
		program: tea.NewProgram(model, opts...),
		model:   model,
		exited:  make(chan error, 1),
	}
}

// Start runs the program until it quits, either through Stop or a user keypress.
func (r *Renderer) Start(_ context.Context) error {
	go func() {
		_, err := r.program.Run()
		r.exited <- err
	}()
	return nil
}

// Stop asks the program to quit once the run is over.
func (r *Renderer) Stop() error {
	r.program.Quit()
	return nil
}

// Wait returns the program's exit error.
func (r *Renderer) Wait() error {
	return <-r.exited
}

// OnPlanEmit resets the task list to the planned tasks.
func (r *Renderer) OnPlanEmit(tasks []string, deps map[string][]string, targets []string) {
	r.program.Send(msgInitTasks{Tasks: tasks, Dependencies: deps, Targets: targets})
}

// OnTaskStart marks the task running and maps spanID to it.
func (r *Renderer) OnTaskStart(spanID, parentID, name string, startTime time.Time) {
	r.program.Send(msgTaskStart{SpanID: spanID, ParentID: parentID, Name: name, StartTime: startTime})
}

// OnTaskLog appends output to the task's log pane. The batcher reuses its
// buffer, so data is copied before it crosses into the program.
func (r *Renderer) OnTaskLog(spanID string, data []byte) {
	r.program.Send(msgTaskLog{SpanID: spanID, Data: append([]byte(nil), data...)})
}

// OnTaskComplete records the task's duration and outcome.
func (r *Renderer) OnTaskComplete(spanID string, endTime time.Time, err error) {
	r.program.Send(msgTaskComplete{SpanID: spanID, EndTime: endTime, Err: err})
}
