// Package domain contains the core domain models and business logic for the asset task graph.
package domain

import (
	"iter"
	"slices"
	"strings"

	"go.trai.ch/zerr"
)

// Graph represents a dependency graph of build tasks.
type Graph struct {
	tasks          map[string]Task
	dependents     map[string][]string
	executionOrder []string
	root           string
}

// NewGraph creates a new empty Graph.
func NewGraph() *Graph {
	return &Graph{
		tasks:      make(map[string]Task),
		dependents: make(map[string][]string),
	}
}

// SetRoot sets the project root directory of the graph.
func (g *Graph) SetRoot(path string) {
	g.root = path
}

// Root returns the project root directory of the graph.
func (g *Graph) Root() string {
	return g.root
}

// AddTask registers a task. Registration is atomic: on error the graph is unchanged.
func (g *Graph) AddTask(t *Task) error {
	if err := validateTaskName(t.Name); err != nil {
		return err
	}
	if _, exists := g.tasks[t.Name]; exists {
		return &DuplicateTaskError{Name: t.Name}
	}
	for _, dep := range t.Dependencies {
		if dep == t.Name {
			return &CyclicDependencyError{Path: []string{t.Name, t.Name}}
		}
	}

	g.tasks[t.Name] = t.clone()
	for _, dep := range t.Dependencies {
		g.dependents[dep] = append(g.dependents[dep], t.Name)
	}
	g.executionOrder = nil
	return nil
}

func validateTaskName(name string) error {
	if name == "" {
		return zerr.With(ErrInvalidTaskName, "task_name", name)
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == ':', r == '.':
		default:
			return zerr.With(ErrInvalidTaskName, "task_name", name)
		}
	}
	return nil
}

// GetTask returns a copy of the named task.
func (g *Graph) GetTask(name string) (Task, bool) {
	t, ok := g.tasks[name]
	if !ok {
		return Task{}, false
	}
	return t.clone(), true
}

// TaskCount returns the number of registered tasks.
func (g *Graph) TaskCount() int {
	return len(g.tasks)
}

// Names returns all task names in lexical order.
func (g *Graph) Names() []string {
	names := make([]string, 0, len(g.tasks))
	for name := range g.tasks {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Dependents returns the names of tasks that directly depend on name.
func (g *Graph) Dependents(name string) []string {
	return g.dependents[name]
}

// Validate checks that every dependency is declared and that the graph has no cycles.
// It populates the execution order used by Walk.
func (g *Graph) Validate() error {
	order, err := g.topoSort(g.Names())
	if err != nil {
		return err
	}
	g.executionOrder = order
	return nil
}

// Resolve returns the targets and their transitive dependencies in dependency order.
// Unknown targets fail with UnknownTaskError, cycles with CyclicDependencyError.
func (g *Graph) Resolve(targets []string) ([]string, error) {
	for _, name := range targets {
		if _, ok := g.tasks[name]; !ok {
			return nil, &UnknownTaskError{Name: name}
		}
	}
	return g.topoSort(targets)
}

// topoSort visits the given roots depth-first in lexical order of their dependencies.
func (g *Graph) topoSort(roots []string) ([]string, error) {
	const (
		unvisited = iota
		visiting
		visited
	)

	order := make([]string, 0, len(g.tasks))
	state := make(map[string]int, len(g.tasks))
	var path []string

	var visit func(name string) error
	visit = func(name string) error {
		task, ok := g.tasks[name]
		if !ok {
			parent := ""
			if len(path) > 0 {
				parent = path[len(path)-1]
			}
			return zerr.With(zerr.With(ErrMissingDependency, "dependency", name), "task", parent)
		}

		state[name] = visiting
		path = append(path, name)

		deps := slices.Clone(task.Dependencies)
		slices.Sort(deps)
		for _, dep := range deps {
			switch state[dep] {
			case visiting:
				return &CyclicDependencyError{Path: cyclePath(path, dep)}
			case unvisited:
				if err := visit(dep); err != nil {
					return err
				}
			}
		}

		state[name] = visited
		path = path[:len(path)-1]
		order = append(order, name)
		return nil
	}

	for _, name := range roots {
		if state[name] == unvisited {
			if err := visit(name); err != nil {
				return nil, err
			}
		}
	}
	return order, nil
}

func cyclePath(path []string, dep string) []string {
	start := slices.Index(path, dep)
	cycle := slices.Clone(path[start:])
	return append(cycle, dep)
}

// Walk returns an iterator that yields tasks in execution order.
// It assumes Validate() has been called and returned nil.
func (g *Graph) Walk() iter.Seq[Task] {
	return func(yield func(Task) bool) {
		for _, name := range g.executionOrder {
			t := g.tasks[name]
			if !yield(t.clone()) {
				return
			}
		}
	}
}

// ForProfile returns a new graph holding only the tasks active in p.
// Dependencies on tasks that are inactive in p are dropped.
func (g *Graph) ForProfile(p Profile) *Graph {
	out := NewGraph()
	out.root = g.root
	for _, name := range g.Names() {
		t := g.tasks[name]
		if !t.ActiveIn(p) {
			continue
		}
		c := t.clone()
		c.Dependencies = slices.DeleteFunc(c.Dependencies, func(dep string) bool {
			d, ok := g.tasks[dep]
			return ok && !d.ActiveIn(p)
		})
		out.tasks[name] = c
	}
	for _, name := range out.Names() {
		for _, dep := range out.tasks[name].Dependencies {
			out.dependents[dep] = append(out.dependents[dep], name)
		}
	}
	return out
}

// Describe renders the dependencies of a task for listings, e.g. "styles <- clean".
func (g *Graph) Describe(name string) string {
	t, ok := g.tasks[name]
	if !ok || len(t.Dependencies) == 0 {
		return name
	}
	return name + " <- " + strings.Join(t.Dependencies, ", ")
}
