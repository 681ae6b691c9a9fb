// Package app implements the application layer for kiln.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	tea "github.com/charmbracelet/bubbletea"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.trai.ch/kiln/internal/adapters/config"    //nolint:depguard // Wired in app layer
	"go.trai.ch/kiln/internal/adapters/detector"  //nolint:depguard // Wired in app layer
	"go.trai.ch/kiln/internal/adapters/fs"        //nolint:depguard // Wired in app layer
	"go.trai.ch/kiln/internal/adapters/linear"    //nolint:depguard // Wired in app layer
	"go.trai.ch/kiln/internal/adapters/telemetry" //nolint:depguard // Wired in app layer
	"go.trai.ch/kiln/internal/adapters/tui"       //nolint:depguard // Wired in app layer
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/kiln/internal/engine/scheduler"
	"go.trai.ch/kiln/internal/engine/watch"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// TracerName names the OpenTelemetry tracer of task spans.
const TracerName = "kiln"

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	registry     ports.TransformRegistry
	resolver     ports.InputResolver
	watcher      ports.Watcher
	server       ports.DevServer
	logger       ports.Logger
	stdout       io.Writer
	stderr       io.Writer
	teaOptions   []tea.ProgramOption
	watchOptions []watch.Option
	autoMode     func() detector.OutputMode
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	registry ports.TransformRegistry,
	resolver ports.InputResolver,
	watcher ports.Watcher,
	server ports.DevServer,
	log ports.Logger,
) *App {
	return &App{
		configLoader: loader,
		registry:     registry,
		resolver:     resolver,
		watcher:      watcher,
		server:       server,
		logger:       log,
		stdout:       os.Stdout,
		stderr:       os.Stderr,
		autoMode:     detector.DetectEnvironment,
	}
}

// WithOutput redirects task output and listings.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	return a
}

// WithTeaOptions adds bubbletea program options to the App.
// This is primarily used for testing to disable input/output.
func (a *App) WithTeaOptions(opts ...tea.ProgramOption) *App {
	a.teaOptions = append(a.teaOptions, opts...)
	return a
}

// WithWatchOptions configures the watch session started by Dev.
func (a *App) WithWatchOptions(opts ...watch.Option) *App {
	a.watchOptions = append(a.watchOptions, opts...)
	return a
}

// WithAutoMode overrides terminal detection for --output-mode=auto.
func (a *App) WithAutoMode(detect func() detector.OutputMode) *App {
	a.autoMode = detect
	return a
}

// RunOptions configure a one-shot invocation.
type RunOptions struct {
	// ConfigPath is kiln.yaml or the directory to discover it from. Empty means the working directory.
	ConfigPath string
	// Profile defaults to production.
	Profile domain.Profile
	// Jobs bounds concurrent transforms. Zero means one per CPU.
	Jobs int
	// OutputMode selects the renderer.
	OutputMode detector.OutputMode
	// NoDeps runs only the named tasks.
	NoDeps bool
}

// DevOptions configure a dev session.
type DevOptions struct {
	ConfigPath string
	Jobs       int
	// Host and Port override the configured server address when set.
	Host string
	Port int
}

// Build runs task, or the built-in build entry point when task is empty.
func (a *App) Build(ctx context.Context, task string, opts RunOptions) error {
	if task == "" {
		task = config.BuildTask
	}
	return a.Run(ctx, []string{task}, opts)
}

// Run executes targets and, unless NoDeps is set, their dependencies.
func (a *App) Run(ctx context.Context, targets []string, opts RunOptions) error {
	if len(targets) == 0 {
		return domain.ErrNoTargetsSpecified
	}

	project, err := a.load(opts.ConfigPath)
	if err != nil {
		return err
	}

	profile := opts.Profile
	if profile == "" {
		profile = domain.ProfileProduction
	}
	graph := project.Graph.ForProfile(profile)
	if _, err := graph.Resolve(targets); err != nil {
		return zerr.With(err, "profile", profile.String())
	}

	interactive := detector.ResolveMode(a.autoMode(), opts.OutputMode) == detector.ModeTUI
	var renderer ports.Renderer
	if interactive {
		optsTea := append([]tea.ProgramOption{tea.WithContext(ctx)}, a.teaOptions...)
		renderer = tui.NewRenderer(tui.NewModel(a.stderr), optsTea...)
	} else {
		renderer = linear.NewRenderer(a.stdout, a.stderr)
	}

	return a.execute(ctx, renderer, interactive, project, graph, targets, scheduler.Options{
		Profile:     profile,
		Parallelism: opts.Jobs,
		Only:        opts.NoDeps,
	})
}

// Dev builds the development pipeline, then serves the build directory and
// re-runs bound tasks on source changes until ctx is canceled. Build failures
// are reported without ending the session.
func (a *App) Dev(ctx context.Context, opts DevOptions) error {
	project, err := a.load(opts.ConfigPath)
	if err != nil {
		return err
	}

	graph := project.Graph.ForProfile(domain.ProfileDevelopment)
	if err := watch.Validate(graph, project.Watch); err != nil {
		return err
	}
	if _, ok := graph.GetTask(config.DevTask); !ok {
		return zerr.With(&domain.UnknownTaskError{Name: config.DevTask}, "profile", domain.ProfileDevelopment.String())
	}

	serverCfg := project.Server
	if opts.Host != "" {
		serverCfg.Host = opts.Host
	}
	if opts.Port != 0 {
		serverCfg.Port = opts.Port
	}

	renderer := linear.NewRenderer(a.stdout, a.stderr)
	runOpts := scheduler.Options{Profile: domain.ProfileDevelopment, Parallelism: opts.Jobs}
	run := func(ctx context.Context, tasks []string, only bool) error {
		o := runOpts
		o.Only = only
		return a.execute(ctx, renderer, false, project, graph, tasks, o)
	}

	if err := run(ctx, []string{config.DevTask}, false); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		a.logger.Error(zerr.Wrap(err, "initial build failed, watching for changes"))
	}

	if len(project.Watch) == 0 {
		a.logger.Warn("no watch bindings declared, serving without rebuilds")
	}

	session := watch.NewSession(a.watcher, a.logger, a.server, func(ctx context.Context, tasks []string) error {
		return run(ctx, tasks, true)
	}, a.watchOptions...)

	a.logger.Info(fmt.Sprintf("serving %s at http://%s:%d", project.Layout.Build, serverCfg.Host, serverCfg.Port))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.server.Serve(gctx, project.Layout.BuildDir(), serverCfg)
	})
	g.Go(func() error {
		return session.Watch(gctx, project.Layout.SourceDir(), graph, project.Watch)
	})
	return g.Wait()
}

// TasksOptions configure the task listing.
type TasksOptions struct {
	ConfigPath string
	// Profile defaults to production.
	Profile domain.Profile
}

// Tasks lists the tasks active in the profile with their transform and dependencies.
func (a *App) Tasks(_ context.Context, opts TasksOptions) error {
	project, err := a.load(opts.ConfigPath)
	if err != nil {
		return err
	}

	profile := opts.Profile
	if profile == "" {
		profile = domain.ProfileProduction
	}
	graph := project.Graph.ForProfile(profile)

	names := graph.Names()
	slices.Sort(names)
	for _, name := range names {
		task, _ := graph.GetTask(name)
		kind := string(task.Transform)
		if task.IsGroup() {
			kind = "group"
		}
		_, _ = fmt.Fprintf(a.stdout, "%-8s %s\n", kind, graph.Describe(name))
	}
	return nil
}

// Clean removes the build directory.
func (a *App) Clean(_ context.Context, configPath string) error {
	project, err := a.load(configPath)
	if err != nil {
		return err
	}

	dir := project.Layout.BuildDir()
	if err := project.Layout.CheckInsideRoot(dir); err != nil {
		return err
	}
	if err := project.Layout.CheckSeparate(); err != nil {
		return err
	}

	a.logger.Info(fmt.Sprintf("removing %s...", project.Layout.Build))
	if err := os.RemoveAll(dir); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrFailedToCleanOutput.Error()), "file", dir)
	}
	a.logger.Info(fmt.Sprintf("removed %s", project.Layout.Build))
	return nil
}

func (a *App) load(configPath string) (*domain.Project, error) {
	if configPath == "" {
		configPath = "."
	}
	project, err := a.configLoader.Load(configPath)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load configuration")
	}
	return project, nil
}

// execute runs the renderer and the scheduler concurrently for one invocation.
func (a *App) execute(
	ctx context.Context,
	renderer ports.Renderer,
	interactive bool,
	project *domain.Project,
	graph *domain.Graph,
	targets []string,
	opts scheduler.Options,
) error {
	tp := setupOTel(telemetry.NewBridge(renderer))
	defer func() {
		_ = tp.Shutdown(context.WithoutCancel(ctx))
	}()
	tracer := telemetry.NewOTelTracerWithProvider(TracerName, tp).WithRenderer(renderer)

	opts.Layout = project.Layout
	opts.Tools = project.Tools
	opts.Sink = fs.NewSink(project.Layout, project.Collisions)
	sched := scheduler.NewScheduler(a.registry, a.resolver, tracer)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)

	// Renderer Routine
	g.Go(func() error {
		if err := renderer.Start(gctx); err != nil {
			return err
		}
		err := renderer.Wait()
		if interactive {
			// The user closed the interface; nothing is left to show progress.
			cancel()
		}
		return err
	})

	// Scheduler Routine
	g.Go(func() error {
		defer func() {
			// Queued output reaches the renderer before it stops.
			_ = tracer.Shutdown(context.WithoutCancel(ctx))
			_ = renderer.Stop()
		}()

		if err := sched.Run(gctx, graph, targets, opts); err != nil {
			return errors.Join(domain.ErrBuildExecutionFailed, err)
		}
		return nil
	})

	return g.Wait()
}

// setupOTel configures the OpenTelemetry SDK with the renderer bridge.
func setupOTel(bridge *telemetry.Bridge) *sdktrace.TracerProvider {
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(bridge),
	)
	otel.SetTracerProvider(tp)
	return tp
}
