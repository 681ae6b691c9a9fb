package watch

import (
	"slices"
	"sync"
	"time"
	"unique"
)

// Debouncer coalesces rapid file system events into one batch per settle window.
type Debouncer struct {
	mu       sync.Mutex
	pending  map[unique.Handle[string]]struct{}
	timer    *time.Timer
	window   time.Duration
	maxWait  time.Duration
	first    time.Time
	stopped  bool
	callback func(paths []string)
}

// DebouncerOption configures a Debouncer.
type DebouncerOption func(*Debouncer)

// WithMaxWait bounds how long a batch may be postponed by a steady stream of events.
// Zero disables the bound.
func WithMaxWait(d time.Duration) DebouncerOption {
	return func(db *Debouncer) {
		db.maxWait = d
	}
}

// NewDebouncer creates a debouncer that calls callback once no path was added for window,
// or once the oldest pending path has waited maxWait (default four windows).
func NewDebouncer(window time.Duration, callback func(paths []string), opts ...DebouncerOption) *Debouncer {
	d := &Debouncer{
		pending:  make(map[unique.Handle[string]]struct{}),
		window:   window,
		maxWait:  4 * window,
		callback: callback,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Add records path and restarts the settle window.
func (d *Debouncer) Add(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	now := time.Now()
	if len(d.pending) == 0 {
		d.first = now
	}
	d.pending[unique.Make(path)] = struct{}{}

	delay := d.window
	if d.maxWait > 0 {
		if remaining := d.maxWait - now.Sub(d.first); remaining < delay {
			delay = max(remaining, 0)
		}
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(delay, d.fire)
}

// Stop discards pending paths. Later calls to Add are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	clear(d.pending)
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	if d.stopped || len(d.pending) == 0 {
		d.timer = nil
		d.mu.Unlock()
		return
	}

	paths := make([]string, 0, len(d.pending))
	for handle := range d.pending {
		paths = append(paths, handle.Value())
	}
	slices.Sort(paths)

	d.pending = make(map[unique.Handle[string]]struct{})
	d.timer = nil
	d.mu.Unlock()

	if d.callback != nil {
		d.callback(paths)
	}
}
