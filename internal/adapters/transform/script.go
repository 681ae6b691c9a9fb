package transform

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

// Script bundles each entry point with esbuild into <name>.min.js plus a linked source map.
type Script struct{}

// Apply runs one esbuild invocation for all inputs of the task.
func (s *Script) Apply(ctx context.Context, req *ports.Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(req.Inputs) == 0 {
		return nil
	}

	// esbuild resolves every path against an absolute working directory.
	layout := req.Layout
	root, err := filepath.Abs(layout.Root)
	if err != nil {
		return zerr.Wrap(err, domain.ErrFailedToGetRoot.Error())
	}
	layout.Root = root

	outdir := layout.BuildPath(req.Task.OutputDir)
	minify := req.Profile.Minify()
	result := api.Build(api.BuildOptions{
		EntryPoints:       req.Inputs,
		Bundle:            true,
		Write:             false,
		Outdir:            outdir,
		EntryNames:        "[name].min",
		Sourcemap:         api.SourceMapLinked,
		MinifyWhitespace:  minify,
		MinifyIdentifiers: minify,
		MinifySyntax:      minify,
		Target:            target(req.Task.Option("target", "es2017")),
		Platform:          api.PlatformBrowser,
		AbsWorkingDir:     root,
		LogLevel:          api.LogLevelSilent,
	})

	for _, w := range api.FormatMessages(result.Warnings, api.FormatMessagesOptions{Kind: api.WarningMessage}) {
		logf(req.Log, "%s", strings.TrimRight(w, "\n"))
	}
	if len(result.Errors) > 0 {
		msgs := api.FormatMessages(result.Errors, api.FormatMessagesOptions{Kind: api.ErrorMessage})
		for _, msg := range msgs {
			logf(req.Log, "%s", strings.TrimRight(msg, "\n"))
		}
		input := req.Inputs[0]
		if loc := result.Errors[0].Location; loc != nil {
			input = filepath.Join(root, loc.File)
		}
		return inputError(req, input, zerr.New(result.Errors[0].Text))
	}

	entries := make(map[string]string, len(req.Inputs))
	for _, input := range req.Inputs {
		entries[stem(input)] = input
	}
	buildDir := layout.BuildDir()
	for _, file := range result.OutputFiles {
		rel, err := filepath.Rel(buildDir, file.Path)
		if err != nil {
			return zerr.With(domain.ErrOutputPathOutsideRoot, "file", file.Path)
		}
		name := strings.TrimSuffix(strings.TrimSuffix(filepath.Base(file.Path), ".map"), ".min.js")
		p := domain.Producer{Task: req.Task.Name}
		if input, ok := entries[name]; ok {
			p.Source = sourceRel(req.Layout, input)
		}
		if err := req.Sink.WriteFile(p, filepath.ToSlash(rel), file.Contents); err != nil {
			return err
		}
	}
	logf(req.Log, "bundled %d entry points", len(req.Inputs))
	return nil
}

func target(name string) api.Target {
	switch strings.ToLower(name) {
	case "es2015":
		return api.ES2015
	case "es2016":
		return api.ES2016
	case "es2018":
		return api.ES2018
	case "es2019":
		return api.ES2019
	case "es2020":
		return api.ES2020
	case "esnext":
		return api.ESNext
	default:
		return api.ES2017
	}
}
