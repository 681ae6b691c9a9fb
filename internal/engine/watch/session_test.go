package watch_test

import (
	"context"
	"errors"
	"iter"
	"path/filepath"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/kiln/internal/core/ports/mocks"
	"go.trai.ch/kiln/internal/engine/watch"
	"go.uber.org/mock/gomock"
)

const sourceRoot = "/project/source"

type fakeWatcher struct {
	events   chan ports.WatchEvent
	stopOnce sync.Once
	started  string
	startErr error
}

func newFakeWatcher() *fakeWatcher {
	return &fakeWatcher{events: make(chan ports.WatchEvent, 16)}
}

func (w *fakeWatcher) Start(_ context.Context, root string) error {
	w.started = root
	return w.startErr
}

func (w *fakeWatcher) Stop() error {
	w.stopOnce.Do(func() { close(w.events) })
	return nil
}

func (w *fakeWatcher) Events() iter.Seq[ports.WatchEvent] {
	return func(yield func(ports.WatchEvent) bool) {
		for ev := range w.events {
			if !yield(ev) {
				return
			}
		}
	}
}

func (w *fakeWatcher) emit(rel string) {
	w.events <- ports.WatchEvent{Path: filepath.Join(sourceRoot, filepath.FromSlash(rel)), Operation: ports.OpWrite}
}

type runs struct {
	mu    sync.Mutex
	calls [][]string
	fail  error
	gate  chan struct{}
}

func (r *runs) run(ctx context.Context, tasks []string) error {
	r.mu.Lock()
	r.calls = append(r.calls, tasks)
	gate, fail := r.gate, r.fail
	r.fail = nil
	r.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fail
}

// hold makes runs block until the returned channel is closed.
func (r *runs) hold() chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gate = make(chan struct{})
	return r.gate
}

func (r *runs) failNext(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail = err
}

func (r *runs) snapshot() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.calls...)
}

func newGraph(t *testing.T) *domain.Graph {
	t.Helper()
	g := domain.NewGraph()
	for _, name := range []string{"styles", "scripts", "html"} {
		require.NoError(t, g.AddTask(&domain.Task{Name: name, Transform: domain.TransformCopy}))
	}
	return g
}

var bindings = []domain.WatchBinding{
	{Pattern: "styles/**/*.scss", Tasks: []string{"styles"}, Reload: domain.ReloadStyles},
	{Pattern: "js/**/*.js", Tasks: []string{"scripts"}, Reload: domain.ReloadPage},
	{Pattern: "*.html", Tasks: []string{"html"}, Reload: domain.ReloadPage},
}

type harness struct {
	watcher  *fakeWatcher
	logger   *mocks.MockLogger
	reloader *mocks.MockReloader
	runs     *runs
	cancel   context.CancelFunc
	done     chan error
}

func startSession(t *testing.T) *harness {
	t.Helper()
	ctrl := gomock.NewController(t)
	h := &harness{
		watcher:  newFakeWatcher(),
		logger:   mocks.NewMockLogger(ctrl),
		reloader: mocks.NewMockReloader(ctrl),
		runs:     &runs{},
		done:     make(chan error, 1),
	}
	h.logger.EXPECT().Info(gomock.Any()).AnyTimes()

	session := watch.NewSession(h.watcher, h.logger, h.reloader, h.runs.run,
		watch.WithSettleInterval(100*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.done <- session.Watch(ctx, sourceRoot, newGraph(t), bindings) }()
	synctest.Wait()
	return h
}

func (h *harness) stop(t *testing.T) {
	t.Helper()
	h.cancel()
	require.NoError(t, <-h.done)
}

func TestSession_RapidChangesRunOnce(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := startSession(t)
		h.reloader.EXPECT().Reload(domain.ReloadStyles).Times(1)

		for range 5 {
			h.watcher.emit("styles/style.scss")
			time.Sleep(20 * time.Millisecond)
		}
		time.Sleep(200 * time.Millisecond)
		synctest.Wait()

		assert.Equal(t, [][]string{{"styles"}}, h.runs.snapshot())
		assert.Equal(t, sourceRoot, h.watcher.started)
		h.stop(t)
	})
}

func TestSession_UnionOfBoundTasks(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := startSession(t)
		h.reloader.EXPECT().Reload(domain.ReloadPage).Times(1)

		h.watcher.emit("styles/blocks/header.scss")
		h.watcher.emit("js/main.js")
		h.watcher.emit("images/logo.png")
		time.Sleep(200 * time.Millisecond)
		synctest.Wait()

		assert.Equal(t, [][]string{{"scripts", "styles"}}, h.runs.snapshot())
		h.stop(t)
	})
}

func TestSession_UnboundChangesIgnored(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := startSession(t)

		h.watcher.emit("images/logo.png")
		h.watcher.emit("partials/nav.pug")
		time.Sleep(200 * time.Millisecond)
		synctest.Wait()

		assert.Empty(t, h.runs.snapshot())
		h.stop(t)
	})
}

func TestSession_SerializesRuns(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := startSession(t)
		gate := h.runs.hold()
		gomock.InOrder(
			h.reloader.EXPECT().Reload(domain.ReloadStyles),
			h.reloader.EXPECT().Reload(domain.ReloadPage),
		)

		h.watcher.emit("styles/style.scss")
		time.Sleep(200 * time.Millisecond)
		synctest.Wait()
		require.Len(t, h.runs.snapshot(), 1)

		// Two settled batches while the first run is still in progress.
		h.watcher.emit("js/main.js")
		time.Sleep(200 * time.Millisecond)
		h.watcher.emit("index.html")
		time.Sleep(200 * time.Millisecond)
		synctest.Wait()
		require.Len(t, h.runs.snapshot(), 1)

		close(gate)
		synctest.Wait()

		assert.Equal(t, [][]string{{"styles"}, {"scripts", "html"}}, h.runs.snapshot())
		h.stop(t)
	})
}

func TestSession_FailureIsReportedAndWatchingContinues(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := startSession(t)
		failure := &domain.TransformError{Task: "styles", Input: "styles/style.scss", Err: errors.New("syntax error")}
		h.runs.failNext(failure)

		gomock.InOrder(
			h.logger.EXPECT().Error(failure),
			h.reloader.EXPECT().NotifyError(failure),
			h.reloader.EXPECT().Reload(domain.ReloadStyles),
		)

		h.watcher.emit("styles/style.scss")
		time.Sleep(200 * time.Millisecond)
		synctest.Wait()

		h.watcher.emit("styles/style.scss")
		time.Sleep(200 * time.Millisecond)
		synctest.Wait()

		assert.Len(t, h.runs.snapshot(), 2)
		h.stop(t)
	})
}

func TestSession_NilReloader(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctrl := gomock.NewController(t)
		logger := mocks.NewMockLogger(ctrl)
		logger.EXPECT().Info(gomock.Any()).AnyTimes()
		w := newFakeWatcher()
		r := &runs{}

		session := watch.NewSession(w, logger, nil, r.run, watch.WithSettleInterval(50*time.Millisecond))
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- session.Watch(ctx, sourceRoot, newGraph(t), bindings) }()

		w.emit("index.html")
		time.Sleep(100 * time.Millisecond)
		synctest.Wait()
		assert.Equal(t, [][]string{{"html"}}, r.snapshot())

		cancel()
		require.NoError(t, <-done)
	})
}

func TestSession_SetupErrors(t *testing.T) {
	tests := []struct {
		name     string
		bindings []domain.WatchBinding
		reason   string
	}{
		{
			name:     "malformed pattern",
			bindings: []domain.WatchBinding{{Pattern: "styles/[", Tasks: []string{"styles"}}},
			reason:   "malformed pattern",
		},
		{
			name:     "no tasks",
			bindings: []domain.WatchBinding{{Pattern: "*.html"}},
			reason:   "no tasks bound",
		},
		{
			name:     "unknown task",
			bindings: []domain.WatchBinding{{Pattern: "*.html", Tasks: []string{"pages"}}},
			reason:   "unknown task pages",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			w := newFakeWatcher()
			session := watch.NewSession(w, mocks.NewMockLogger(ctrl), mocks.NewMockReloader(ctrl),
				func(context.Context, []string) error { return nil })

			err := session.Watch(context.Background(), sourceRoot, newGraph(t), tt.bindings)

			var setupErr *domain.WatchSetupError
			require.ErrorAs(t, err, &setupErr)
			assert.Equal(t, tt.bindings[0].Pattern, setupErr.Pattern)
			assert.Equal(t, tt.reason, setupErr.Reason)
			require.ErrorIs(t, err, domain.ErrWatchSetup)
			assert.Empty(t, w.started, "watcher must not start")
		})
	}
}

func TestSession_StartFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	w := newFakeWatcher()
	w.startErr = errors.New("too many open files")
	session := watch.NewSession(w, mocks.NewMockLogger(ctrl), nil,
		func(context.Context, []string) error { return nil })

	err := session.Watch(context.Background(), sourceRoot, newGraph(t), bindings)
	require.Error(t, err)
	assert.ErrorContains(t, err, domain.ErrWatcherStartFailed.Error())
}
