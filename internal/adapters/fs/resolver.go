package fs

import (
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.InputResolver = (*Resolver)(nil)

// Resolver implements ports.InputResolver with doublestar globs.
type Resolver struct{}

// NewResolver creates a new Resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// ResolveInputs expands patterns below root. A pattern matching nothing is not an error.
func (r *Resolver) ResolveInputs(patterns, excludes []string, root string) ([]string, error) {
	for _, p := range slices.Concat(patterns, excludes) {
		if !doublestar.ValidatePattern(p) {
			return nil, zerr.With(domain.ErrInvalidPattern, "pattern", p)
		}
	}

	fsys := os.DirFS(root)
	seen := make(map[string]bool)
	var result []string

	for _, pattern := range patterns {
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to glob path"), "pattern", pattern)
		}
		for _, rel := range matches {
			if seen[rel] || excluded(rel, excludes) {
				continue
			}
			if info, err := fs.Stat(fsys, rel); err != nil || !info.Mode().IsRegular() {
				continue
			}
			seen[rel] = true
			result = append(result, filepath.Join(root, filepath.FromSlash(rel)))
		}
	}

	slices.Sort(result)
	return result, nil
}

func excluded(rel string, excludes []string) bool {
	for _, ex := range excludes {
		if ok, _ := doublestar.Match(ex, rel); ok {
			return true
		}
	}
	return false
}

// MatchPattern reports whether the slash-separated rel path matches a doublestar pattern.
func MatchPattern(pattern, rel string) bool {
	ok, err := doublestar.Match(pattern, rel)
	return err == nil && ok
}

// ValidPattern reports whether pattern is a well-formed doublestar glob.
func ValidPattern(pattern string) bool {
	return doublestar.ValidatePattern(pattern)
}
