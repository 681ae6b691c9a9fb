// Package shell runs the external tools behind the transforms.
package shell

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/creack/pty"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Executor = (*Executor)(nil)

// Executor implements ports.Executor using os/exec and pty.
type Executor struct{}

// NewExecutor creates a new Executor.
func NewExecutor() *Executor {
	return &Executor{}
}

// Run executes cmd with its output merged into out. Commands without stdin get a
// PTY so tools keep their colored output; the rest fall back to pipes.
func (e *Executor) Run(ctx context.Context, cmd ports.Command, out io.Writer) error {
	if len(cmd.Args) == 0 {
		return nil
	}
	c := command(ctx, cmd)

	if cmd.Stdin == nil {
		if ptmx, err := pty.Start(c); err == nil {
			ioDone := make(chan struct{})
			go func() {
				defer close(ioDone)
				defer func() { _ = ptmx.Close() }()
				_, _ = io.Copy(out, ptmx)
			}()
			err := c.Wait()
			<-ioDone
			return commandError(cmd, err)
		}
		// No PTY available, start again below with plain pipes.
		c = command(ctx, cmd)
	}

	c.Stdin = cmd.Stdin
	c.Stdout = out
	c.Stderr = out
	return commandError(cmd, c.Run())
}

// Output executes cmd and returns what it wrote to stdout.
func (e *Executor) Output(ctx context.Context, cmd ports.Command, stderr io.Writer) ([]byte, error) {
	if len(cmd.Args) == 0 {
		return nil, nil
	}
	c := command(ctx, cmd)

	var stdout bytes.Buffer
	c.Stdin = cmd.Stdin
	c.Stdout = &stdout
	c.Stderr = stderr
	if err := c.Run(); err != nil {
		return nil, commandError(cmd, err)
	}
	return stdout.Bytes(), nil
}

func command(ctx context.Context, cmd ports.Command) *exec.Cmd {
	name := cmd.Args[0]
	env := resolveEnvironment(os.Environ(), cmd.Env)

	executable := name
	if !filepath.IsAbs(name) {
		if lp, err := lookPath(name, env); err == nil {
			executable = lp
		}
	}

	c := exec.CommandContext(ctx, executable, cmd.Args[1:]...) //nolint:gosec // configured tool
	c.Args[0] = name
	c.Dir = cmd.Dir
	c.Env = env
	return c
}

func commandError(cmd ports.Command, err error) error {
	if err == nil {
		return nil
	}
	exitCode := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
	}
	wrapped := zerr.With(zerr.Wrap(err, domain.ErrCommandFailed.Error()), "exit_code", exitCode)
	return zerr.With(wrapped, "command", cmd.Args[0])
}

// allowListedEnvVars are the host variables a tool inherits.
var allowListedEnvVars = map[string]struct{}{
	"HOME":   {},
	"TERM":   {},
	"USER":   {},
	"PATH":   {},
	"LANG":   {},
	"TMPDIR": {},
}

// resolveEnvironment filters the host environment and applies extra on top.
// An extra PATH is prepended to the host PATH.
func resolveEnvironment(sysEnv, extra []string) []string {
	envMap := filterSystemEnv(sysEnv)
	applyExtraEnv(envMap, extra)

	result := make([]string, 0, len(envMap))
	for k, v := range envMap {
		result = append(result, k+"="+v)
	}
	return result
}

func filterSystemEnv(sysEnv []string) map[string]string {
	envMap := make(map[string]string)
	for _, entry := range sysEnv {
		k, v, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		if _, allowed := allowListedEnvVars[k]; allowed {
			envMap[k] = v
		}
	}
	return envMap
}

func applyExtraEnv(envMap map[string]string, extra []string) {
	for _, entry := range extra {
		k, v, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		if sysPath := envMap["PATH"]; k == "PATH" && sysPath != "" {
			envMap[k] = v + string(os.PathListSeparator) + sysPath
			continue
		}
		envMap[k] = v
	}
}

// lookPath searches for an executable in the directories named by PATH in env.
func lookPath(file string, env []string) (string, error) {
	var path string
	for _, e := range env {
		if after, ok := strings.CutPrefix(e, "PATH="); ok {
			path = after
			break
		}
	}
	if path == "" {
		return "", exec.ErrNotFound
	}

	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			dir = "."
		}
		candidate := filepath.Join(dir, file)
		if err := findExecutable(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", exec.ErrNotFound
}

func findExecutable(file string) error {
	d, err := os.Stat(file)
	if err != nil {
		return err
	}
	if m := d.Mode(); !m.IsDir() && m&0o111 != 0 {
		return nil
	}
	return os.ErrPermission
}
