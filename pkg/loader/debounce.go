package loader

import (
	"sync"
	"time"
)

// DefaultDebounceWindow coalesces camera-change bursts before a viewport
// query fires.
const DefaultDebounceWindow = 500 * time.Millisecond

// Debouncer coalesces rapid triggers into a single callback after a quiet
// window. Each Trigger resets the timer, so only the last camera state in a
// burst produces a query.
type Debouncer struct {
	mu       sync.Mutex
	window   time.Duration
	timer    *time.Timer
	disabled bool
}

// NewDebouncer creates a debouncer with the given window. A non-positive
// window falls back to DefaultDebounceWindow.
func NewDebouncer(window time.Duration) *Debouncer {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	return &Debouncer{window: window}
}

// Window returns the configured debounce window.
func (d *Debouncer) Window() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.window
}

// Trigger schedules fn to run after the window elapses with no further
// triggers. A pending callback is replaced, not stacked.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.disabled {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, fn)
}

// Cancel drops any pending callback and rejects further triggers until the
// next Trigger after Reset. Used on shutdown.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.disabled = true
}

// Reset re-enables a canceled debouncer.
func (d *Debouncer) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.disabled = false
}
