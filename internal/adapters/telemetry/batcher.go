// Package telemetry turns scheduler spans into OpenTelemetry spans and renderer events.
package telemetry

import (
	"bytes"
	"errors"
	"sync"
	"time"
)

const (
	// DefaultSizeLimit is the buffered byte count that forces a flush.
	DefaultSizeLimit = 4096
	// DefaultTimeLimit is the maximum age of buffered output.
	DefaultTimeLimit = 50 * time.Millisecond
)

// errBatcherClosed is returned by writes after Close.
var errBatcherClosed = errors.New("log batcher is closed")

// LogBatcher coalesces small task output writes into larger chunks.
// Chunks reach onFlush in write order. It is safe for concurrent use.
type LogBatcher struct {
	sizeLimit int
	timeLimit time.Duration
	onFlush   func([]byte)

	mu     sync.Mutex
	buf    bytes.Buffer
	ticker *time.Ticker
	stopCh chan struct{}
	closed bool
}

// NewLogBatcher starts a batcher. Non-positive limits use the defaults.
// Close must be called to stop the background flusher.
func NewLogBatcher(sizeLimit int, timeLimit time.Duration, onFlush func([]byte)) *LogBatcher {
	if sizeLimit <= 0 {
		sizeLimit = DefaultSizeLimit
	}
	if timeLimit <= 0 {
		timeLimit = DefaultTimeLimit
	}

	b := &LogBatcher{
		sizeLimit: sizeLimit,
		timeLimit: timeLimit,
		onFlush:   onFlush,
		ticker:    time.NewTicker(timeLimit),
		stopCh:    make(chan struct{}),
	}
	go b.run()
	return b
}

// Write buffers p and flushes once the size limit is reached.
func (b *LogBatcher) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, errBatcherClosed
	}
	n, _ := b.buf.Write(p)
	if b.buf.Len() >= b.sizeLimit {
		b.flushLocked()
		b.ticker.Reset(b.timeLimit)
	}
	return n, nil
}

// Flush hands any buffered output to the callback.
func (b *LogBatcher) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.flushLocked()
	}
}

// Close stops the flusher after a final flush. It is idempotent.
func (b *LogBatcher) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	close(b.stopCh)
	b.flushLocked()
	return nil
}

func (b *LogBatcher) run() {
	for {
		select {
		case <-b.ticker.C:
			b.Flush()
		case <-b.stopCh:
			b.ticker.Stop()
			return
		}
	}
}

// flushLocked must be called with mu held. onFlush must not block.
func (b *LogBatcher) flushLocked() {
	if b.buf.Len() == 0 {
		return
	}
	data := bytes.Clone(b.buf.Bytes())
	b.buf.Reset()
	if b.onFlush != nil {
		b.onFlush(data)
	}
}
