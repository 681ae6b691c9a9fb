// Package watch re-runs bound tasks when source files change.
package watch

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// RunFunc runs tasks once, without their dependencies.
type RunFunc func(ctx context.Context, tasks []string) error

// Session maps watcher events to task re-runs. Runs never overlap; changes that
// arrive while a run is in progress are merged into a single follow-up run.
type Session struct {
	watcher  ports.Watcher
	logger   ports.Logger
	reloader ports.Reloader
	run      RunFunc
	settle   time.Duration

	mu      sync.Mutex
	pending *batch
	signal  chan struct{}
}

// Option configures a Session.
type Option func(*Session)

// WithSettleInterval sets how long changes must pause before a run starts.
func WithSettleInterval(d time.Duration) Option {
	return func(s *Session) {
		s.settle = d
	}
}

// NewSession creates a watch session. reloader may be nil when no browsers are served.
func NewSession(
	watcher ports.Watcher,
	logger ports.Logger,
	reloader ports.Reloader,
	run RunFunc,
	opts ...Option,
) *Session {
	s := &Session{
		watcher:  watcher,
		logger:   logger,
		reloader: reloader,
		run:      run,
		settle:   domain.DefaultSettleInterval,
		signal:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type batch struct {
	tasks  []string
	seen   map[string]struct{}
	reload domain.ReloadMode
}

func (b *batch) add(tasks []string, reload domain.ReloadMode) {
	for _, name := range tasks {
		if _, ok := b.seen[name]; ok {
			continue
		}
		b.seen[name] = struct{}{}
		b.tasks = append(b.tasks, name)
	}
	b.reload = b.reload.Strongest(reload)
}

// Validate checks bindings against graph without touching the file system.
func Validate(graph *domain.Graph, bindings []domain.WatchBinding) error {
	for _, b := range bindings {
		if !doublestar.ValidatePattern(b.Pattern) {
			return &domain.WatchSetupError{Pattern: b.Pattern, Reason: "malformed pattern"}
		}
		if len(b.Tasks) == 0 {
			return &domain.WatchSetupError{Pattern: b.Pattern, Reason: "no tasks bound"}
		}
		for _, name := range b.Tasks {
			if _, ok := graph.GetTask(name); !ok {
				return &domain.WatchSetupError{Pattern: b.Pattern, Reason: "unknown task " + name}
			}
		}
	}
	return nil
}

// Watch blocks until ctx is canceled, re-running bound tasks as files below sourceRoot change.
func (s *Session) Watch(
	ctx context.Context,
	sourceRoot string,
	graph *domain.Graph,
	bindings []domain.WatchBinding,
) error {
	if err := Validate(graph, bindings); err != nil {
		return err
	}
	if err := s.watcher.Start(ctx, sourceRoot); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrWatcherStartFailed.Error()), "root", sourceRoot)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	debouncer := NewDebouncer(s.settle, func(paths []string) {
		s.enqueue(sourceRoot, bindings, paths)
	})
	defer debouncer.Stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		for event := range s.watcher.Events() {
			debouncer.Add(event.Path)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		return s.watcher.Stop()
	})
	g.Go(func() error {
		s.runLoop(ctx)
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// enqueue merges the tasks bound to paths into the pending batch.
func (s *Session) enqueue(sourceRoot string, bindings []domain.WatchBinding, paths []string) {
	next := &batch{seen: make(map[string]struct{})}
	for _, path := range paths {
		rel, err := filepath.Rel(sourceRoot, path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		rel = filepath.ToSlash(rel)
		for _, b := range bindings {
			if ok, _ := doublestar.Match(b.Pattern, rel); ok {
				next.add(b.Tasks, b.Reload)
			}
		}
	}
	if len(next.tasks) == 0 {
		return
	}

	s.mu.Lock()
	if s.pending == nil {
		s.pending = next
	} else {
		s.pending.add(next.tasks, next.reload)
	}
	s.mu.Unlock()

	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *Session) take() *batch {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.pending
	s.pending = nil
	return b
}

func (s *Session) runLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.signal:
		}

		b := s.take()
		if b == nil {
			continue
		}
		s.logger.Info("rebuilding " + strings.Join(b.tasks, ", "))

		if err := s.run(ctx, b.tasks); err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Error(err)
			if s.reloader != nil {
				s.reloader.NotifyError(err)
			}
			continue
		}
		if s.reloader != nil && b.reload != domain.ReloadNone {
			s.reloader.Reload(b.reload)
		}
	}
}
