package scheduler_test

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.trai.ch/kiln/internal/adapters/telemetry"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports/mocks"
	"go.trai.ch/kiln/internal/engine/scheduler"
	"go.uber.org/mock/gomock"
)

// randomDAG builds n tasks where task i may depend on any task j < i.
func randomDAG(n int, seed int64) (*domain.Graph, error) {
	rng := rand.New(rand.NewSource(seed))
	g := domain.NewGraph()
	for i := range n {
		var deps []string
		for j := range i {
			if rng.Intn(3) == 0 {
				deps = append(deps, fmt.Sprintf("t%d", j))
			}
		}
		if err := g.AddTask(&domain.Task{
			Name:         fmt.Sprintf("t%d", i),
			Transform:    domain.TransformCommand,
			Dependencies: deps,
		}); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func TestSchedulerProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(1234)
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	properties.Property("dependencies run exactly once and before the target", prop.ForAll(
		func(n int, seed int64, parallelism int) bool {
			g, err := randomDAG(n, seed)
			if err != nil {
				return false
			}
			target := fmt.Sprintf("t%d", n-1)
			closure, err := g.Resolve([]string{target})
			if err != nil {
				return false
			}

			rec := newRecorder()
			resolver := mocks.NewMockInputResolver(gomock.NewController(t))
			s := scheduler.NewScheduler(registry{t: rec}, resolver, telemetry.NewNoOpTracer())
			err = s.Run(context.Background(), g, []string{target}, scheduler.Options{Parallelism: parallelism})
			if err != nil {
				return false
			}

			inClosure := make(map[string]bool, len(closure))
			for _, name := range closure {
				inClosure[name] = true
				if rec.callCount(name) != 1 {
					return false
				}
			}
			for i := range n {
				name := fmt.Sprintf("t%d", i)
				if !inClosure[name] && rec.callCount(name) != 0 {
					return false
				}
			}

			for _, name := range closure {
				task, _ := g.GetTask(name)
				for _, dep := range task.Dependencies {
					if rec.ends[dep] >= rec.starts[name] {
						return false
					}
				}
				if name != target && rec.ends[name] >= rec.starts[target] {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 12),
		gen.Int64(),
		gen.IntRange(1, 4),
	))

	properties.TestingRun(t)
}
