package ports

// InputResolver expands task input patterns into files.
//
//go:generate mockgen -source=resolver.go -destination=mocks/mock_resolver.go -package=mocks
type InputResolver interface {
	// ResolveInputs returns the absolute paths of regular files below root matching
	// any of patterns and none of excludes, sorted and without duplicates.
	// Patterns are slash-separated doublestar globs relative to root.
	ResolveInputs(patterns, excludes []string, root string) ([]string, error)
}
