package domain

import (
	"path/filepath"
	"strings"

	"go.trai.ch/zerr"
)

const (
	// ConfigFileName is the name of the project configuration file.
	ConfigFileName = "kiln.yaml"

	// DefaultSourceDir is the default source root, relative to the project root.
	DefaultSourceDir = "source"

	// DefaultBuildDir is the default build root, relative to the project root.
	DefaultBuildDir = "build"

	// DefaultHost is the default dev server host.
	DefaultHost = "localhost"

	// DefaultPort is the default dev server port.
	DefaultPort = 3000

	// DirPerm is the default permission for directories (rwxr-xr-x).
	DirPerm = 0o755

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644
)

// Layout locates the source and build roots of a project.
type Layout struct {
	Root   string
	Source string
	Build  string
}

// DefaultLayout returns the conventional layout rooted at root.
func DefaultLayout(root string) Layout {
	return Layout{Root: root, Source: DefaultSourceDir, Build: DefaultBuildDir}
}

// SourceDir returns the absolute source root.
func (l Layout) SourceDir() string {
	return filepath.Join(l.Root, l.Source)
}

// BuildDir returns the absolute build root.
func (l Layout) BuildDir() string {
	return filepath.Join(l.Root, l.Build)
}

// SourcePath joins rel onto the source root.
func (l Layout) SourcePath(rel string) string {
	return filepath.Join(l.SourceDir(), filepath.FromSlash(rel))
}

// BuildPath joins rel onto the build root.
func (l Layout) BuildPath(rel string) string {
	return filepath.Join(l.BuildDir(), filepath.FromSlash(rel))
}

// CheckInsideRoot fails with ErrOutputPathOutsideRoot when path is the project root itself or escapes it.
func (l Layout) CheckInsideRoot(path string) error {
	rootAbs, err := filepath.Abs(l.Root)
	if err != nil {
		return zerr.Wrap(err, ErrFailedToGetRoot.Error())
	}
	pathAbs, err := filepath.Abs(path)
	if err != nil {
		return zerr.With(zerr.Wrap(err, ErrFailedToGetRoot.Error()), "file", path)
	}
	rel, err := filepath.Rel(rootAbs, pathAbs)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return zerr.With(ErrOutputPathOutsideRoot, "file", path)
	}
	return nil
}

// CheckSeparate fails with ErrLayoutOverlap when the source and build roots are
// the same directory or one contains the other.
func (l Layout) CheckSeparate() error {
	source, err := filepath.Abs(l.SourceDir())
	if err != nil {
		return zerr.Wrap(err, ErrFailedToGetRoot.Error())
	}
	build, err := filepath.Abs(l.BuildDir())
	if err != nil {
		return zerr.Wrap(err, ErrFailedToGetRoot.Error())
	}
	if within(source, build) || within(build, source) {
		return zerr.With(zerr.With(ErrLayoutOverlap, "source", l.Source), "build", l.Build)
	}
	return nil
}

// within reports whether path is parent or lies below it.
func within(parent, path string) bool {
	rel, err := filepath.Rel(parent, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
