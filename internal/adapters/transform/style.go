package transform

import (
	"context"
	"path"
	"path/filepath"
	"strings"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
)

// Style compiles each entry stylesheet with the dart-sass CLI into <name>.min.css.
type Style struct {
	executor ports.Executor
}

// sassFlags returns the profile-dependent compiler flags.
func sassFlags(p domain.Profile) []string {
	if p.Minify() {
		return []string{"--style=compressed", "--no-source-map"}
	}
	return []string{"--style=expanded", "--embed-source-map"}
}

// Apply compiles each input. Partials are expected to be excluded by the task.
func (s *Style) Apply(ctx context.Context, req *ports.Request) error {
	for _, input := range req.Inputs {
		args := append([]string{req.Tools.Sass}, sassFlags(req.Profile)...)
		for _, lp := range splitList(req.Task.Option("load-path", "")) {
			args = append(args, "--load-path="+req.Layout.SourcePath(lp))
		}
		args = append(args, "--load-path="+filepath.Join(req.Layout.Root, "node_modules"), input)

		logf(req.Log, "sass %s", sourceRel(req.Layout, input))
		css, err := s.executor.Output(ctx, ports.Command{
			Args: args,
			Dir:  req.Layout.Root,
			Env:  toolEnv(req.Layout),
		}, req.Log)
		if err != nil {
			return inputError(req, input, err)
		}

		rel := path.Join(filepath.ToSlash(req.Task.OutputDir), stem(input)+".min.css")
		if err := req.Sink.WriteFile(producer(req, input), rel, css); err != nil {
			return inputError(req, input, err)
		}
	}
	return nil
}

// toolEnv puts project-local binaries first on PATH.
func toolEnv(layout domain.Layout) []string {
	return []string{"PATH=" + filepath.Join(layout.Root, "node_modules", ".bin")}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
