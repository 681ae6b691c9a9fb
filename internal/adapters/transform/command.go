package transform

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

const (
	inputPlaceholder  = "{{input}}"
	outputPlaceholder = "{{output}}"
)

// Command runs the task's argv from the project root.
//
// An argv mentioning {{input}} runs once per input, with {{output}} standing for
// the input's counterpart below the build root. Otherwise it runs once and
// {{output}} is the task output directory. The command writes its files itself.
type Command struct {
	executor ports.Executor
}

// Apply runs the command.
func (c *Command) Apply(ctx context.Context, req *ports.Request) error {
	if len(req.Task.Command) == 0 {
		return zerr.With(domain.ErrMissingCommand, "task", req.Task.Name)
	}

	perInput := slices.ContainsFunc(req.Task.Command, func(arg string) bool {
		return strings.Contains(arg, inputPlaceholder)
	})
	if !perInput {
		out := req.Layout.BuildPath(req.Task.OutputDir)
		return c.run(ctx, req, substitute(req.Task.Command, "", out), out)
	}

	for _, input := range req.Inputs {
		rel, err := outputRel(req, input)
		if err != nil {
			return inputError(req, input, err)
		}
		out := req.Layout.BuildPath(rel)
		if err := c.run(ctx, req, substitute(req.Task.Command, input, out), filepath.Dir(out)); err != nil {
			return inputError(req, input, err)
		}
	}
	return nil
}

func (c *Command) run(ctx context.Context, req *ports.Request, args []string, outDir string) error {
	if err := os.MkdirAll(outDir, domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrFileWriteFailed.Error()), "file", outDir)
	}
	logf(req.Log, "$ %s", strings.Join(args, " "))
	return c.executor.Run(ctx, ports.Command{
		Args: args,
		Dir:  req.Layout.Root,
		Env:  append(toolEnv(req.Layout), "KILN_PROFILE="+req.Profile.String()),
	}, req.Log)
}

func substitute(argv []string, input, output string) []string {
	r := strings.NewReplacer(inputPlaceholder, input, outputPlaceholder, output)
	out := make([]string, len(argv))
	for i, arg := range argv {
		out[i] = r.Replace(arg)
	}
	return out
}
