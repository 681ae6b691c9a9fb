package fs

import (
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.OutputSink = (*Sink)(nil)

// Sink writes outputs below the build root with temp-file-and-rename and
// remembers which producer claimed each path during one run.
type Sink struct {
	buildDir string
	policy   domain.CollisionPolicy

	mu     sync.Mutex
	claims map[string]domain.Producer
}

// NewSink creates a Sink for one scheduler invocation.
func NewSink(layout domain.Layout, policy domain.CollisionPolicy) *Sink {
	return &Sink{
		buildDir: layout.BuildDir(),
		policy:   policy,
		claims:   make(map[string]domain.Producer),
	}
}

// WriteFile atomically writes data to rel below the build root.
func (s *Sink) WriteFile(p domain.Producer, rel string, data []byte) error {
	target, err := s.claim(p, rel)
	if err != nil {
		return err
	}
	return atomicWrite(target, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// CopyFile atomically copies src to rel below the build root.
func (s *Sink) CopyFile(p domain.Producer, rel, src string) error {
	target, err := s.claim(p, rel)
	if err != nil {
		return err
	}
	in, err := os.Open(src) //nolint:gosec // inputs come from the resolver
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrFileReadFailed.Error()), "file", src)
	}
	defer in.Close() //nolint:errcheck // read-only

	return atomicWrite(target, func(w io.Writer) error {
		_, err := io.Copy(w, in)
		return err
	})
}

// Claimed returns the producer that wrote rel in this run.
func (s *Sink) Claimed(rel string) (domain.Producer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.claims[path.Clean(rel)]
	return p, ok
}

func (s *Sink) claim(p domain.Producer, rel string) (string, error) {
	clean := path.Clean(filepath.ToSlash(rel))
	if clean == "." || path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", zerr.With(domain.ErrOutputPathOutsideRoot, "file", rel)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.claims[clean]; ok && prev != p && s.policy != domain.CollisionOverwrite {
		return "", &domain.OutputCollisionError{Path: clean, First: prev, Again: p}
	}
	s.claims[clean] = p
	return filepath.Join(s.buildDir, filepath.FromSlash(clean)), nil
}

// atomicWrite fills a temp file next to target and renames it into place.
// A failed write leaves any previous target untouched.
func atomicWrite(target string, fill func(io.Writer) error) error {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrFileWriteFailed.Error()), "file", target)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(target)+".tmp-*")
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrFileWriteFailed.Error()), "file", target)
	}
	tmpName := tmp.Name()
	fail := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return zerr.With(zerr.Wrap(err, domain.ErrFileWriteFailed.Error()), "file", target)
	}

	if err := fill(tmp); err != nil {
		return fail(err)
	}
	if err := tmp.Chmod(domain.FilePerm); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return zerr.With(zerr.Wrap(err, domain.ErrFileWriteFailed.Error()), "file", target)
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return zerr.With(zerr.Wrap(err, domain.ErrFileWriteFailed.Error()), "file", target)
	}
	return nil
}
