// Package fs provides file system adapters: glob resolution, content hashing and the output sink.
package fs

import (
	"io/fs"
	"iter"
	"path/filepath"
)

// skipDirs are never descended into.
var skipDirs = map[string]bool{
	".git":         true,
	".jj":          true,
	"node_modules": true,
}

// Walker enumerates files below a directory.
type Walker struct{}

// NewWalker creates a new Walker.
func NewWalker() *Walker {
	return &Walker{}
}

// WalkFiles yields every regular file below root, skipping VCS and dependency directories.
// Unreadable entries are skipped.
func (w *Walker) WalkFiles(root string) iter.Seq[string] {
	return func(yield func(string) bool) {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil //nolint:nilerr // keep walking past unreadable entries
			}
			if d.IsDir() {
				if path != root && SkipDir(d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}
			if !yield(path) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}

// SkipDir reports whether a directory with this base name is ignored by walks and watches.
func SkipDir(name string) bool {
	return skipDirs[name]
}
