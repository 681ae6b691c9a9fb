// Package scheduler implements the task execution scheduler.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

// Options configure one scheduler invocation.
type Options struct {
	Layout  domain.Layout
	Profile domain.Profile
	Tools   domain.Tools
	Sink    ports.OutputSink
	// Parallelism bounds concurrently running transforms. Zero means runtime.NumCPU().
	Parallelism int
	// Only runs the targets themselves, ordered among each other, without their dependencies.
	Only bool
}

// Scheduler manages the execution of tasks in the dependency graph.
type Scheduler struct {
	registry ports.TransformRegistry
	resolver ports.InputResolver
	tracer   ports.Tracer
}

// NewScheduler creates a new Scheduler with the given dependencies.
func NewScheduler(
	registry ports.TransformRegistry,
	resolver ports.InputResolver,
	tracer ports.Tracer,
) *Scheduler {
	return &Scheduler{
		registry: registry,
		resolver: resolver,
		tracer:   tracer,
	}
}

// Run executes the targets and their dependencies and waits for the result.
func (s *Scheduler) Run(ctx context.Context, graph *domain.Graph, targets []string, opts Options) error {
	exec, err := s.Start(ctx, graph, targets, opts)
	if err != nil {
		return err
	}
	return exec.Wait()
}

// Start resolves the targets and begins executing them in the background.
// Resolution errors are returned before any transform runs.
func (s *Scheduler) Start(
	ctx context.Context,
	graph *domain.Graph,
	targets []string,
	opts Options,
) (*Execution, error) {
	if len(targets) == 0 {
		return nil, domain.ErrNoTargetsSpecified
	}

	order, err := graph.Resolve(targets)
	if err != nil {
		return nil, err
	}
	if opts.Only {
		order = onlyTargets(order, targets)
	}

	if opts.Parallelism <= 0 {
		opts.Parallelism = runtime.NumCPU()
	}

	state := newRunState(ctx, s, graph, order, opts)
	exec := &Execution{
		order:   order,
		targets: targets,
		handles: state.handles,
		done:    make(chan struct{}),
	}

	s.tracer.EmitPlan(ctx, order, state.planDeps(), targets)

	go func() {
		defer close(exec.done)
		exec.err = state.runExecutionLoop()
	}()

	return exec, nil
}

func onlyTargets(order, targets []string) []string {
	want := make(map[string]bool, len(targets))
	for _, t := range targets {
		want[t] = true
	}
	out := make([]string, 0, len(targets))
	for _, name := range order {
		if want[name] {
			out = append(out, name)
		}
	}
	return out
}

type result struct {
	task string
	err  error
}

type schedulerRunState struct {
	graph     *domain.Graph
	inDegree  map[string]int
	tasks     map[string]domain.Task
	handles   map[string]*Handle
	ready     []string
	active    int
	resultsCh chan result
	first     error
	ctx       context.Context
	opts      Options
	s         *Scheduler
}

func newRunState(
	ctx context.Context,
	s *Scheduler,
	graph *domain.Graph,
	order []string,
	opts Options,
) *schedulerRunState {
	inDegree := make(map[string]int, len(order))
	tasks := make(map[string]domain.Task, len(order))
	handles := make(map[string]*Handle, len(order))

	for _, name := range order {
		task, _ := graph.GetTask(name)
		tasks[name] = task
		handles[name] = newHandle(name)
	}

	var ready []string
	for _, name := range order {
		// Only dependencies that are part of this execution hold a task back.
		degree := 0
		for _, dep := range tasks[name].Dependencies {
			if _, ok := tasks[dep]; ok {
				degree++
			}
		}
		inDegree[name] = degree
		if degree == 0 {
			ready = append(ready, name)
		}
	}

	return &schedulerRunState{
		graph:     graph,
		inDegree:  inDegree,
		tasks:     tasks,
		handles:   handles,
		ready:     ready,
		resultsCh: make(chan result, opts.Parallelism),
		ctx:       ctx,
		opts:      opts,
		s:         s,
	}
}

func (state *schedulerRunState) planDeps() map[string][]string {
	deps := make(map[string][]string, len(state.tasks))
	for name, task := range state.tasks {
		in := make([]string, 0, len(task.Dependencies))
		for _, dep := range task.Dependencies {
			if _, ok := state.tasks[dep]; ok {
				in = append(in, dep)
			}
		}
		deps[name] = in
	}
	return deps
}

func (state *schedulerRunState) runExecutionLoop() error {
	done := state.ctx.Done()
	for !state.isDone() {
		state.schedule()

		if state.isDone() {
			break
		}

		if state.ctx.Err() != nil && state.active == 0 {
			break
		}

		select {
		case res := <-state.resultsCh:
			state.handleResult(res)
		case <-done:
			// In-flight transforms observe the canceled context; keep collecting their results.
			done = nil
		}
	}

	return state.finish()
}

func (state *schedulerRunState) isDone() bool {
	return state.active == 0 && len(state.ready) == 0
}

func (state *schedulerRunState) schedule() {
	for len(state.ready) > 0 && state.active < state.opts.Parallelism && state.ctx.Err() == nil {
		taskName := state.ready[0]
		state.ready = state.ready[1:]

		state.active++
		state.handles[taskName].setRunning()

		t := state.tasks[taskName]
		go state.executeTask(&t)
	}
}

func (state *schedulerRunState) executeTask(t *domain.Task) {
	// The span must end before the result is sent so renderers see completion first.
	res := func() result {
		ctx, span := state.s.tracer.Start(
			state.ctx,
			t.Name,
			ports.WithAttribute("kiln.transform", string(t.Transform)),
		)
		defer span.End()

		err := state.apply(ctx, t, span)
		if err != nil {
			err = annotate(t.Name, err)
			span.RecordError(err)
		}
		return result{task: t.Name, err: err}
	}()

	state.resultsCh <- res
}

func (state *schedulerRunState) apply(ctx context.Context, t *domain.Task, span ports.Span) error {
	if t.IsGroup() {
		return nil
	}

	transform, err := state.s.registry.Lookup(t.Transform)
	if err != nil {
		return err
	}

	var inputs []string
	if len(t.Inputs) > 0 {
		inputs, err = state.s.resolver.ResolveInputs(t.Inputs, t.Excludes, state.opts.Layout.SourceDir())
		if err != nil {
			return zerr.Wrap(err, domain.ErrInputResolutionFailed.Error())
		}
		span.SetAttribute("kiln.inputs", len(inputs))
		if len(inputs) == 0 {
			_, _ = fmt.Fprintf(span, "warning: no files matched %s\n", strings.Join(t.Inputs, ", "))
			return nil
		}
	}

	return transform.Apply(ctx, &ports.Request{
		Task:    t,
		Profile: state.opts.Profile,
		Layout:  state.opts.Layout,
		Tools:   state.opts.Tools,
		Inputs:  inputs,
		Sink:    state.opts.Sink,
		Log:     span,
	})
}

func (state *schedulerRunState) handleResult(res result) {
	state.active--

	if res.err != nil && state.ctx.Err() != nil && errors.Is(res.err, state.ctx.Err()) {
		state.handles[res.task].settle(StatusCanceled, res.err)
		return
	}

	if res.err != nil {
		err := annotate(res.task, res.err)
		if state.first == nil {
			state.first = err
		}
		state.handles[res.task].settle(StatusFailed, err)
		return
	}

	state.handles[res.task].settle(StatusCompleted, nil)
	for _, dep := range state.graph.Dependents(res.task) {
		// Only consider dependents that are part of the current execution
		if _, ok := state.tasks[dep]; ok {
			state.inDegree[dep]--
			if state.inDegree[dep] == 0 {
				state.ready = append(state.ready, dep)
			}
		}
	}
}

// finish settles every task that never ran and computes the execution error.
func (state *schedulerRunState) finish() error {
	canceled := state.ctx.Err()
	for name, h := range state.handles {
		if h.Status().Settled() {
			continue
		}
		if canceled != nil {
			h.settle(StatusCanceled, canceled)
			continue
		}
		h.settle(StatusSkipped, zerr.With(domain.ErrDependencyFailed, "task", name))
	}

	if canceled != nil {
		return errors.Join(state.first, canceled)
	}
	return state.first
}

// annotate ensures every task failure is a TransformError naming the task.
func annotate(task string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var te *domain.TransformError
	if errors.As(err, &te) {
		if te.Task == "" {
			te.Task = task
		}
		return err
	}
	return &domain.TransformError{Task: task, Err: err}
}
