// Package watcher reports source changes for watch sessions.
package watcher

import (
	"context"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	kilnfs "go.trai.ch/kiln/internal/adapters/fs"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Watcher = (*Watcher)(nil)

const eventChannelBuffer = 100

// Watcher implements ports.Watcher with fsnotify. Writes that leave a file's
// content hash unchanged are dropped.
type Watcher struct {
	logger ports.Logger
	hasher ports.Hasher

	fsWatcher *fsnotify.Watcher
	events    chan ports.WatchEvent
	stopOnce  sync.Once

	mu     sync.Mutex
	hashes map[string]uint64
}

// NewWatcher creates a new file system watcher.
func NewWatcher(logger ports.Logger, hasher ports.Hasher) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrWatcherStartFailed.Error())
	}
	return &Watcher{
		logger:    logger,
		hasher:    hasher,
		fsWatcher: fsw,
		events:    make(chan ports.WatchEvent, eventChannelBuffer),
		hashes:    make(map[string]uint64),
	}, nil
}

// Start watches root and every directory below it.
func (w *Watcher) Start(ctx context.Context, root string) error {
	hashes, err := w.hasher.HashTree(root)
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrWatcherStartFailed.Error()), "root", root)
	}
	w.mu.Lock()
	w.hashes = hashes
	w.mu.Unlock()

	for dir := range directories(root) {
		if err := w.fsWatcher.Add(dir); err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrWatcherStartFailed.Error()), "dir", dir)
		}
	}

	go w.processEvents(ctx)
	return nil
}

// Stop releases the watches. Events ends once pending events are drained.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() { err = w.fsWatcher.Close() })
	return err
}

// Events yields changes until the watcher stops.
func (w *Watcher) Events() iter.Seq[ports.WatchEvent] {
	return func(yield func(ports.WatchEvent) bool) {
		for event := range w.events {
			if !yield(event) {
				return
			}
		}
	}
}

// directories yields root and all directories below it, skipping VCS and dependency trees.
func directories(root string) iter.Seq[string] {
	return func(yield func(string) bool) {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil //nolint:nilerr // unreadable directories are not watched
			}
			if !d.IsDir() {
				return nil
			}
			if path != root && kilnfs.SkipDir(d.Name()) {
				return fs.SkipDir
			}
			if !yield(path) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.events)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			watchEvent, ok := w.convert(event)
			if !ok {
				continue
			}
			select {
			case w.events <- watchEvent:
			case <-ctx.Done():
				return
			}
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher: " + err.Error())
		}
	}
}

// convert maps an fsnotify event and reports whether it is worth delivering.
func (w *Watcher) convert(event fsnotify.Event) (ports.WatchEvent, bool) {
	path := event.Name
	switch {
	case event.Op.Has(fsnotify.Create):
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if kilnfs.SkipDir(info.Name()) {
				return ports.WatchEvent{}, false
			}
			for dir := range directories(path) {
				_ = w.fsWatcher.Add(dir)
			}
			return ports.WatchEvent{Path: path, Operation: ports.OpCreate}, true
		}
		w.changed(path)
		return ports.WatchEvent{Path: path, Operation: ports.OpCreate}, true
	case event.Op.Has(fsnotify.Write):
		if !w.changed(path) {
			return ports.WatchEvent{}, false
		}
		return ports.WatchEvent{Path: path, Operation: ports.OpWrite}, true
	case event.Op.Has(fsnotify.Remove):
		w.forget(path)
		return ports.WatchEvent{Path: path, Operation: ports.OpRemove}, true
	case event.Op.Has(fsnotify.Rename):
		w.forget(path)
		return ports.WatchEvent{Path: path, Operation: ports.OpRename}, true
	default:
		return ports.WatchEvent{}, false
	}
}

// changed records the current digest of path and reports whether it differs from the last one.
// Unreadable files count as changed.
func (w *Watcher) changed(path string) bool {
	sum, err := w.hasher.HashFile(path)
	if err != nil {
		return true
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	prev, seen := w.hashes[path]
	w.hashes[path] = sum
	return !seen || prev != sum
}

func (w *Watcher) forget(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.hashes, path)
}
