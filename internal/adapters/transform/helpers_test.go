package transform_test

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
)

// memSink records outputs in memory.
type memSink struct {
	mu        sync.Mutex
	files     map[string][]byte
	producers map[string]domain.Producer
}

func newMemSink() *memSink {
	return &memSink{files: map[string][]byte{}, producers: map[string]domain.Producer{}}
}

func (s *memSink) WriteFile(p domain.Producer, rel string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[rel] = bytes.Clone(data)
	s.producers[rel] = p
	return nil
}

func (s *memSink) CopyFile(p domain.Producer, rel, src string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return s.WriteFile(p, rel, data)
}

func (s *memSink) file(rel string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[rel]
	return string(data), ok
}

func (s *memSink) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.files))
	for name := range s.files {
		names = append(names, name)
	}
	return names
}

// fixture is a project on disk with a request ready to apply.
type fixture struct {
	root string
	req  *ports.Request
	sink *memSink
	log  *bytes.Buffer
}

func newFixture(t *testing.T, task domain.Task, profile domain.Profile, files map[string]string) *fixture {
	t.Helper()
	root := t.TempDir()
	layout := domain.DefaultLayout(root)

	var inputs []string
	for rel, content := range files {
		path := layout.SourcePath(rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	for _, rel := range task.Inputs {
		inputs = append(inputs, layout.SourcePath(rel))
	}

	sink := newMemSink()
	log := &bytes.Buffer{}
	return &fixture{
		root: root,
		sink: sink,
		log:  log,
		req: &ports.Request{
			Task:    &task,
			Profile: profile,
			Layout:  layout,
			Tools:   domain.DefaultTools(),
			Inputs:  inputs,
			Sink:    sink,
			Log:     log,
		},
	}
}
