package loader

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncerCoalescesBurst(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	var fired atomic.Int32

	for i := 0; i < 10; i++ {
		d.Trigger(func() { fired.Add(1) })
		time.Sleep(2 * time.Millisecond)
	}

	time.Sleep(100 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Errorf("burst fired %d times, want 1", got)
	}
}

func TestDebouncerLastCallbackWins(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	var got atomic.Int32

	d.Trigger(func() { got.Store(1) })
	d.Trigger(func() { got.Store(2) })

	time.Sleep(80 * time.Millisecond)
	if got.Load() != 2 {
		t.Errorf("fired callback %d, want the last trigger's", got.Load())
	}
}

func TestDebouncerCancel(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	var fired atomic.Int32

	d.Trigger(func() { fired.Add(1) })
	d.Cancel()

	time.Sleep(60 * time.Millisecond)
	if fired.Load() != 0 {
		t.Error("canceled debouncer still fired")
	}

	// Canceled debouncer rejects triggers until reset.
	d.Trigger(func() { fired.Add(1) })
	time.Sleep(60 * time.Millisecond)
	if fired.Load() != 0 {
		t.Error("trigger after cancel fired without reset")
	}

	d.Reset()
	d.Trigger(func() { fired.Add(1) })
	time.Sleep(60 * time.Millisecond)
	if fired.Load() != 1 {
		t.Error("trigger after reset did not fire")
	}
}

func TestDebouncerDefaultWindow(t *testing.T) {
	if w := NewDebouncer(0).Window(); w != DefaultDebounceWindow {
		t.Errorf("window = %v, want default %v", w, DefaultDebounceWindow)
	}
	if w := NewDebouncer(-time.Second).Window(); w != DefaultDebounceWindow {
		t.Errorf("window = %v, want default %v", w, DefaultDebounceWindow)
	}
}
