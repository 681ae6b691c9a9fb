package domain

import (
	"fmt"
	"strings"

	"go.trai.ch/zerr"
)

var (
	// ErrDuplicateTask is returned when attempting to register a task with a name that already exists.
	ErrDuplicateTask = zerr.New("task already exists")

	// ErrUnknownTask is returned when a requested task is not registered in the graph.
	ErrUnknownTask = zerr.New("task not found")

	// ErrCyclicDependency is returned when dependency resolution detects a cycle.
	ErrCyclicDependency = zerr.New("cycle detected")

	// ErrMissingDependency is returned when a task references a dependency that is not declared.
	ErrMissingDependency = zerr.New("missing dependency")

	// ErrInvalidTaskName is returned when a task name is empty or contains invalid characters.
	ErrInvalidTaskName = zerr.New("invalid task name")

	// ErrUnknownTransform is returned when a task references a transform kind that is not registered.
	ErrUnknownTransform = zerr.New("unknown transform")

	// ErrTransformFailed is matched by every TransformError.
	ErrTransformFailed = zerr.New("transform failed")

	// ErrWatchSetup is matched by every WatchSetupError.
	ErrWatchSetup = zerr.New("invalid watch binding")

	// ErrOutputCollision is matched by every OutputCollisionError.
	ErrOutputCollision = zerr.New("output written by more than one source")

	// ErrDependencyFailed marks a task that never ran because one of its dependencies failed.
	ErrDependencyFailed = zerr.New("dependency failed")

	// ErrInvalidProfile is returned when a profile name is not production or development.
	ErrInvalidProfile = zerr.New("invalid profile, expected 'production' or 'development'")

	// ErrInvalidCollisionPolicy is returned when the collision policy is not recognized.
	ErrInvalidCollisionPolicy = zerr.New("invalid collision policy, expected 'error' or 'overwrite'")

	// ErrInvalidReloadMode is returned when a watch binding names an unknown reload mode.
	ErrInvalidReloadMode = zerr.New("invalid reload mode, expected 'page', 'css' or 'none'")

	// ErrNoTargetsSpecified is returned when no targets are specified for the run command.
	ErrNoTargetsSpecified = zerr.New("no targets specified")

	// ErrOutputPathOutsideRoot is returned when an output path escapes the project root.
	ErrOutputPathOutsideRoot = zerr.New("output path is outside project root")

	// ErrLayoutOverlap is returned when the source and build roots overlap.
	ErrLayoutOverlap = zerr.New("source and build directories overlap")

	// ErrConfigReadFailed is returned when the config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrInvalidPattern is returned when an input or exclude glob is malformed.
	ErrInvalidPattern = zerr.New("invalid glob pattern")

	// ErrBuildExecutionFailed is returned when the build execution fails.
	ErrBuildExecutionFailed = zerr.New("build execution failed")

	// ErrTaskExecutionFailed is returned when a task execution fails.
	ErrTaskExecutionFailed = zerr.New("task execution failed")

	// ErrInputResolutionFailed is returned when input resolution fails.
	ErrInputResolutionFailed = zerr.New("failed to resolve inputs")

	// ErrFailedToGetRoot is returned when the project root path cannot be determined.
	ErrFailedToGetRoot = zerr.New("failed to get absolute path of project root")

	// ErrFailedToCleanOutput is returned when removing the build directory fails.
	ErrFailedToCleanOutput = zerr.New("failed to clean build directory")

	// ErrFileReadFailed is returned when a source file cannot be read.
	ErrFileReadFailed = zerr.New("failed to read file")

	// ErrFileWriteFailed is returned when an output file cannot be written.
	ErrFileWriteFailed = zerr.New("failed to write file")

	// ErrCommandFailed is returned when an external command exits with an error.
	ErrCommandFailed = zerr.New("command failed")

	// ErrMissingCommand is returned when a command task declares no argv.
	ErrMissingCommand = zerr.New("command transform requires cmd")

	// ErrServerStartFailed is returned when the dev server cannot listen.
	ErrServerStartFailed = zerr.New("failed to start dev server")

	// ErrWatcherStartFailed is returned when the file watcher cannot be started.
	ErrWatcherStartFailed = zerr.New("failed to start file watcher")
)

// DuplicateTaskError reports a second registration of the same task name.
type DuplicateTaskError struct {
	Name string
}

func (e *DuplicateTaskError) Error() string {
	return fmt.Sprintf("%s: %s", ErrDuplicateTask.Error(), e.Name)
}

// Is reports whether target is ErrDuplicateTask.
func (e *DuplicateTaskError) Is(target error) bool { return target == ErrDuplicateTask }

// UnknownTaskError reports a task name that is not registered.
type UnknownTaskError struct {
	Name string
}

func (e *UnknownTaskError) Error() string {
	return fmt.Sprintf("%s: %s", ErrUnknownTask.Error(), e.Name)
}

// Is reports whether target is ErrUnknownTask.
func (e *UnknownTaskError) Is(target error) bool { return target == ErrUnknownTask }

// CyclicDependencyError reports a dependency cycle. Path lists the cycle, first and last equal.
type CyclicDependencyError struct {
	Path []string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("%s: %s", ErrCyclicDependency.Error(), strings.Join(e.Path, " -> "))
}

// Is reports whether target is ErrCyclicDependency.
func (e *CyclicDependencyError) Is(target error) bool { return target == ErrCyclicDependency }

// TransformError wraps the failure of an external transform with the task and input it was processing.
type TransformError struct {
	Task  string
	Input string
	Err   error
}

// NewInputError annotates err with the input path being processed. The scheduler fills in the task.
func NewInputError(input string, err error) *TransformError {
	return &TransformError{Input: input, Err: err}
}

func (e *TransformError) Error() string {
	var b strings.Builder
	b.WriteString(ErrTransformFailed.Error())
	if e.Task != "" {
		b.WriteString(" in task ")
		b.WriteString(e.Task)
	}
	if e.Input != "" {
		b.WriteString(" (")
		b.WriteString(e.Input)
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying transform failure.
func (e *TransformError) Unwrap() error { return e.Err }

// Is reports whether target is ErrTransformFailed.
func (e *TransformError) Is(target error) bool { return target == ErrTransformFailed }

// WatchSetupError reports a watch binding that cannot be installed.
type WatchSetupError struct {
	Pattern string
	Reason  string
}

func (e *WatchSetupError) Error() string {
	return fmt.Sprintf("%s %q: %s", ErrWatchSetup.Error(), e.Pattern, e.Reason)
}

// Is reports whether target is ErrWatchSetup.
func (e *WatchSetupError) Is(target error) bool { return target == ErrWatchSetup }

// OutputCollisionError reports two different sources producing the same output path in one run.
type OutputCollisionError struct {
	Path  string
	First Producer
	Again Producer
}

// Producer identifies the task and source file that wrote an output.
type Producer struct {
	Task   string
	Source string
}

func (p Producer) String() string {
	return p.Task + ":" + p.Source
}

func (e *OutputCollisionError) Error() string {
	return fmt.Sprintf("%s: %s (%s, %s)", ErrOutputCollision.Error(), e.Path, e.First, e.Again)
}

// Is reports whether target is ErrOutputCollision.
func (e *OutputCollisionError) Is(target error) bool { return target == ErrOutputCollision }
