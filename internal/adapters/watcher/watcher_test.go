package watcher_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/adapters/fs"
	"go.trai.ch/kiln/internal/adapters/watcher"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/kiln/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func startWatcher(t *testing.T, root string) (*watcher.Watcher, <-chan ports.WatchEvent) {
	t.Helper()
	ctrl := gomock.NewController(t)
	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Warn(gomock.Any()).AnyTimes()

	w, err := watcher.NewWatcher(logger, fs.NewHasher(fs.NewWalker()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx, root))
	t.Cleanup(func() {
		cancel()
		_ = w.Stop()
	})

	events := make(chan ports.WatchEvent, 64)
	go func() {
		defer close(events)
		for ev := range w.Events() {
			events <- ev
		}
	}()
	return w, events
}

// waitFor returns the first event for path, skipping others.
func waitFor(t *testing.T, events <-chan ports.WatchEvent, path string) ports.WatchEvent {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			require.True(t, ok, "watcher closed before an event for %s", path)
			if ev.Path == path {
				return ev
			}
		case <-timeout:
			t.Fatalf("no event for %s", path)
		}
	}
}

func TestWatcher_ReportsChanges(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "style.scss")
	require.NoError(t, os.WriteFile(file, []byte("a {}"), 0o644))

	_, events := startWatcher(t, root)

	require.NoError(t, os.WriteFile(file, []byte("b {}"), 0o644))
	ev := waitFor(t, events, file)
	assert.Contains(t, []ports.WatchOp{ports.OpWrite, ports.OpCreate}, ev.Operation)
}

func TestWatcher_SuppressesUnchangedWrites(t *testing.T) {
	root := t.TempDir()
	same := filepath.Join(root, "same.scss")
	other := filepath.Join(root, "other.scss")
	require.NoError(t, os.WriteFile(same, []byte("a {}"), 0o644))
	require.NoError(t, os.WriteFile(other, []byte("x"), 0o644))

	_, events := startWatcher(t, root)

	// Rewriting identical bytes, then changing another file: only the second is reported.
	require.NoError(t, os.WriteFile(same, []byte("a {}"), 0o644))
	require.NoError(t, os.WriteFile(other, []byte("y"), 0o644))

	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev := <-events:
			require.NotEqual(t, same, ev.Path, "unchanged write was reported")
			if ev.Path == other {
				return
			}
		case <-timeout:
			t.Fatal("no event for the changed file")
		}
	}
}

func TestWatcher_WatchesNewDirectories(t *testing.T) {
	root := t.TempDir()
	_, events := startWatcher(t, root)

	dir := filepath.Join(root, "blocks")
	require.NoError(t, os.Mkdir(dir, 0o755))
	ev := waitFor(t, events, dir)
	assert.Equal(t, ports.OpCreate, ev.Operation)

	// Give fsnotify a moment to register the new directory.
	time.Sleep(100 * time.Millisecond)
	file := filepath.Join(dir, "header.scss")
	require.NoError(t, os.WriteFile(file, []byte("h {}"), 0o644))
	waitFor(t, events, file)
}

func TestWatcher_SkipsDependencyTrees(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules", "pkg"), 0o755))
	_, events := startWatcher(t, root)

	ignored := filepath.Join(root, "node_modules", "pkg", "index.js")
	require.NoError(t, os.WriteFile(ignored, []byte("x"), 0o644))
	marker := filepath.Join(root, "marker.js")
	require.NoError(t, os.WriteFile(marker, []byte("m"), 0o644))

	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev := <-events:
			require.NotEqual(t, ignored, ev.Path)
			if ev.Path == marker {
				return
			}
		case <-timeout:
			t.Fatal("no event for marker")
		}
	}
}

func TestWatcher_StopEndsEvents(t *testing.T) {
	w, events := startWatcher(t, t.TempDir())
	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())

	select {
	case _, ok := <-events:
		for ok {
			_, ok = <-events
		}
	case <-time.After(5 * time.Second):
		t.Fatal("events did not end after Stop")
	}
}
