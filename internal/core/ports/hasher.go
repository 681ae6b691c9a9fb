package ports

// Hasher computes content digests used to suppress no-op file events.
//
//go:generate mockgen -source=hasher.go -destination=mocks/mock_hasher.go -package=mocks
type Hasher interface {
	// HashFile returns the digest of a file's content.
	HashFile(path string) (uint64, error)
	// HashTree returns the digest of every file below root, keyed by absolute path.
	HashTree(root string) (map[string]uint64, error)
}
