// Package transform implements the external transforms behind build tasks.
package transform

import (
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

// sourceRel returns input as a slash path relative to the source root.
func sourceRel(layout domain.Layout, input string) string {
	rel, err := filepath.Rel(layout.SourceDir(), input)
	if err != nil {
		return filepath.ToSlash(input)
	}
	return filepath.ToSlash(rel)
}

// outputRel maps input to its path below the build root: the path relative
// to the task base, placed in the task output directory.
func outputRel(req *ports.Request, input string) (string, error) {
	base := req.Layout.SourcePath(req.Task.Base)
	rel, err := filepath.Rel(base, input)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", zerr.With(zerr.With(domain.ErrOutputPathOutsideRoot, "file", input), "base", req.Task.Base)
	}
	return path.Join(filepath.ToSlash(req.Task.OutputDir), filepath.ToSlash(rel)), nil
}

// withExt replaces the extension of a slash path.
func withExt(rel, ext string) string {
	return strings.TrimSuffix(rel, path.Ext(rel)) + ext
}

// stem returns the file name of p without its extension.
func stem(p string) string {
	base := filepath.Base(p)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func producer(req *ports.Request, input string) domain.Producer {
	return domain.Producer{Task: req.Task.Name, Source: sourceRel(req.Layout, input)}
}

func inputError(req *ports.Request, input string, err error) error {
	return domain.NewInputError(sourceRel(req.Layout, input), err)
}

func logf(w io.Writer, format string, args ...any) {
	if w != nil {
		_, _ = fmt.Fprintf(w, format+"\n", args...)
	}
}
