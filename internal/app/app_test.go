package app_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/adapters/config"
	"go.trai.ch/kiln/internal/adapters/detector"
	"go.trai.ch/kiln/internal/adapters/fs"
	"go.trai.ch/kiln/internal/adapters/transform"
	"go.trai.ch/kiln/internal/app"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/kiln/internal/core/ports/mocks"
	"go.trai.ch/kiln/internal/engine/watch"
	"go.uber.org/mock/gomock"
)

// newProject lays out a project whose pipeline cleans the build root and copies fonts.
func newProject(t *testing.T) *domain.Project {
	t.Helper()
	root := t.TempDir()
	layout := domain.DefaultLayout(root)
	require.NoError(t, os.MkdirAll(layout.SourcePath("fonts"), domain.DirPerm))
	require.NoError(t, os.WriteFile(layout.SourcePath("fonts/body.woff"), []byte("font"), domain.FilePerm))

	g := domain.NewGraph()
	g.SetRoot(root)
	for _, task := range []*domain.Task{
		{Name: "clean", Transform: domain.TransformClean},
		{Name: "copy", Transform: domain.TransformCopy, Inputs: []string{"fonts/*.woff"}, Dependencies: []string{"clean"}},
		{Name: "preview", Transform: domain.TransformCopy, Inputs: []string{"*.html"}, Dependencies: []string{"clean"}, Profiles: []domain.Profile{domain.ProfileDevelopment}},
		{Name: "build", Dependencies: []string{"copy"}, Profiles: []domain.Profile{domain.ProfileProduction}},
		{Name: "dev", Dependencies: []string{"copy", "preview"}, Profiles: []domain.Profile{domain.ProfileDevelopment}},
	} {
		require.NoError(t, g.AddTask(task))
	}
	require.NoError(t, g.Validate())

	return &domain.Project{
		Layout:     layout,
		Graph:      g,
		Watch:      []domain.WatchBinding{{Pattern: "fonts/*.woff", Tasks: []string{"copy"}, Reload: domain.ReloadPage}},
		Server:     domain.ServerConfig{Host: domain.DefaultHost, Port: domain.DefaultPort},
		Tools:      domain.DefaultTools(),
		Collisions: domain.CollisionError,
	}
}

type fixture struct {
	ctrl   *gomock.Controller
	loader *mocks.MockConfigLoader
	logger *mocks.MockLogger
	server *mocks.MockDevServer
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	t.Setenv("NO_COLOR", "1")
	ctrl := gomock.NewController(t)
	return &fixture{
		ctrl:   ctrl,
		loader: mocks.NewMockConfigLoader(ctrl),
		logger: mocks.NewMockLogger(ctrl),
		server: mocks.NewMockDevServer(ctrl),
		stdout: new(bytes.Buffer),
		stderr: new(bytes.Buffer),
	}
}

func (f *fixture) app(registry ports.TransformRegistry, w ports.Watcher) *app.App {
	if registry == nil {
		resolver := fs.NewResolver()
		registry = transform.NewRegistry(mocks.NewMockExecutor(f.ctrl), resolver)
	}
	return app.New(f.loader, registry, fs.NewResolver(), w, f.server, f.logger).
		WithOutput(f.stdout, f.stderr).
		WithAutoMode(func() detector.OutputMode { return detector.ModeLinear }).
		WithTeaOptions(
			tea.WithInput(strings.NewReader("")),
			tea.WithOutput(io.Discard),
			tea.WithoutSignalHandler(),
			tea.WithoutRenderer(),
		)
}

func TestApp_Build(t *testing.T) {
	f := newFixture(t)
	project := newProject(t)
	f.loader.EXPECT().Load(".").Return(project, nil)

	err := f.app(nil, nil).Build(context.Background(), "", app.RunOptions{})
	require.NoError(t, err)

	data, err := os.ReadFile(project.Layout.BuildPath("fonts/body.woff"))
	require.NoError(t, err)
	assert.Equal(t, "font", string(data))
	assert.Contains(t, f.stderr.String(), "[copy] ✓ done")
	assert.Contains(t, f.stdout.String(), "[copy] copied 1 files")
	assert.NotContains(t, f.stderr.String(), "preview", "development tasks are not part of production builds")
}

func TestApp_Build_TUI(t *testing.T) {
	f := newFixture(t)
	project := newProject(t)
	f.loader.EXPECT().Load("site/kiln.yaml").Return(project, nil)

	err := f.app(nil, nil).Build(context.Background(), "build", app.RunOptions{
		ConfigPath: "site/kiln.yaml",
		OutputMode: detector.ModeTUI,
	})
	require.NoError(t, err)

	assert.FileExists(t, project.Layout.BuildPath("fonts/body.woff"))
	assert.Empty(t, f.stdout.String())
}

func TestApp_Run_BuiltinScriptsFromWorkingDirectory(t *testing.T) {
	f := newFixture(t)
	root := t.TempDir()
	layout := domain.DefaultLayout(root)
	require.NoError(t, os.MkdirAll(layout.SourcePath("js"), domain.DirPerm))
	require.NoError(t, os.WriteFile(layout.SourcePath("js/main.js"), []byte("console.log(\"bundled\");\n"), domain.FilePerm))
	t.Chdir(root)

	resolver := fs.NewResolver()
	a := app.New(
		config.NewLoader(f.logger),
		transform.NewRegistry(mocks.NewMockExecutor(f.ctrl), resolver),
		resolver, nil, f.server, f.logger,
	).WithOutput(f.stdout, f.stderr).
		WithAutoMode(func() detector.OutputMode { return detector.ModeLinear })

	err := a.Run(context.Background(), []string{"scripts"}, app.RunOptions{})
	require.NoError(t, err, f.stderr.String())

	data, err := os.ReadFile(layout.BuildPath("js/main.min.js"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "bundled")
	assert.FileExists(t, layout.BuildPath("js/main.min.js.map"))
}

func TestApp_Run_NoTargets(t *testing.T) {
	f := newFixture(t)

	err := f.app(nil, nil).Run(context.Background(), nil, app.RunOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNoTargetsSpecified)
}

func TestApp_Run_ConfigLoaderError(t *testing.T) {
	f := newFixture(t)
	f.loader.EXPECT().Load(".").Return(nil, domain.ErrConfigParseFailed)

	err := f.app(nil, nil).Run(context.Background(), []string{"build"}, app.RunOptions{})
	require.Error(t, err)
	assert.ErrorContains(t, err, "failed to load configuration")
	assert.ErrorContains(t, err, domain.ErrConfigParseFailed.Error())
}

func TestApp_Run_UnknownTask(t *testing.T) {
	f := newFixture(t)
	f.loader.EXPECT().Load(".").Return(newProject(t), nil)

	// preview is declared for development only.
	err := f.app(mocks.NewMockTransformRegistry(f.ctrl), nil).
		Run(context.Background(), []string{"preview"}, app.RunOptions{})
	require.Error(t, err)
	assert.ErrorContains(t, err, domain.ErrUnknownTask.Error())
	assert.NotErrorIs(t, err, domain.ErrBuildExecutionFailed)
	assert.Empty(t, f.stderr.String())
}

func TestApp_Run_NoDeps(t *testing.T) {
	f := newFixture(t)
	project := newProject(t)
	f.loader.EXPECT().Load(".").Return(project, nil)

	stale := project.Layout.BuildPath("stale.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), domain.DirPerm))
	require.NoError(t, os.WriteFile(stale, []byte("old"), domain.FilePerm))

	err := f.app(nil, nil).Run(context.Background(), []string{"copy"}, app.RunOptions{NoDeps: true, Jobs: 1})
	require.NoError(t, err)

	assert.FileExists(t, stale, "clean must not run")
	assert.FileExists(t, project.Layout.BuildPath("fonts/body.woff"))
}

func TestApp_Run_TransformFailure(t *testing.T) {
	f := newFixture(t)
	f.loader.EXPECT().Load(".").Return(newProject(t), nil)

	registry := mocks.NewMockTransformRegistry(f.ctrl)
	failing := mocks.NewMockTransform(f.ctrl)
	registry.EXPECT().Lookup(domain.TransformClean).Return(failing, nil)
	failing.EXPECT().Apply(gomock.Any(), gomock.Any()).Return(errors.New("permission denied"))

	err := f.app(registry, nil).Build(context.Background(), "", app.RunOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBuildExecutionFailed)
	assert.ErrorContains(t, err, "permission denied")
	assert.Contains(t, f.stderr.String(), "[clean] ✗ failed")
}

func TestApp_Tasks(t *testing.T) {
	f := newFixture(t)
	f.loader.EXPECT().Load(".").Return(newProject(t), nil).Times(2)
	a := f.app(nil, nil)

	require.NoError(t, a.Tasks(context.Background(), app.TasksOptions{}))
	assert.Equal(t, ""+
		"group    build <- copy\n"+
		"clean    clean\n"+
		"copy     copy <- clean\n",
		f.stdout.String())

	f.stdout.Reset()
	require.NoError(t, a.Tasks(context.Background(), app.TasksOptions{Profile: domain.ProfileDevelopment}))
	assert.Contains(t, f.stdout.String(), "group    dev <- copy, preview\n")
	assert.Contains(t, f.stdout.String(), "copy     preview <- clean\n")
	assert.NotContains(t, f.stdout.String(), "build")
}

func TestApp_Clean(t *testing.T) {
	f := newFixture(t)
	project := newProject(t)
	f.loader.EXPECT().Load(".").Return(project, nil)
	f.logger.EXPECT().Info(gomock.Any()).Times(2)

	require.NoError(t, os.MkdirAll(project.Layout.BuildPath("css"), domain.DirPerm))

	require.NoError(t, f.app(nil, nil).Clean(context.Background(), ""))
	assert.NoDirExists(t, project.Layout.BuildDir())
	assert.DirExists(t, project.Layout.SourceDir())
}

// fakeWatcher replays events pushed by the test.
type fakeWatcher struct {
	events chan ports.WatchEvent
	once   sync.Once
}

func newFakeWatcher() *fakeWatcher {
	return &fakeWatcher{events: make(chan ports.WatchEvent, 8)}
}

func (w *fakeWatcher) Start(_ context.Context, _ string) error { return nil }

func (w *fakeWatcher) Stop() error {
	w.once.Do(func() { close(w.events) })
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

func TestApp_Dev(t *testing.T) {
	f := newFixture(t)
	project := newProject(t)
	f.loader.EXPECT().Load(".").Return(project, nil)
	f.logger.EXPECT().Info(gomock.Any()).AnyTimes()

	f.server.EXPECT().
		Serve(gomock.Any(), project.Layout.BuildDir(), domain.ServerConfig{Host: "127.0.0.1", Port: 4000}).
		DoAndReturn(func(ctx context.Context, _ string, _ domain.ServerConfig) error {
			<-ctx.Done()
			return nil
		})
	reloaded := make(chan struct{})
	f.server.EXPECT().Reload(domain.ReloadPage).Do(func(domain.ReloadMode) { close(reloaded) })

	w := newFakeWatcher()
	a := f.app(nil, w).WithWatchOptions(watch.WithSettleInterval(10 * time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- a.Dev(ctx, app.DevOptions{Host: "127.0.0.1", Port: 4000})
	}()

	output := project.Layout.BuildPath("fonts/body.woff")
	require.Eventually(t, func() bool {
		_, err := os.Stat(output)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(project.Layout.SourcePath("fonts/body.woff"), []byte("font v2"), domain.FilePerm))
	w.events <- ports.WatchEvent{Path: project.Layout.SourcePath("fonts/body.woff"), Operation: ports.OpWrite}

	select {
	case <-reloaded:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "font v2", string(data))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("dev session did not stop")
	}
}

func TestApp_Dev_InvalidWatchBinding(t *testing.T) {
	f := newFixture(t)
	project := newProject(t)
	project.Watch = []domain.WatchBinding{{Pattern: "*.css", Tasks: []string{"build"}}}
	f.loader.EXPECT().Load(".").Return(project, nil)

	// build is production only, so the development graph cannot bind it.
	err := f.app(nil, newFakeWatcher()).Dev(context.Background(), app.DevOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrWatchSetup)
}
