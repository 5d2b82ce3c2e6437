// ABOUTME: Debounced saver coalesces bursts of registry mutations into one write
// ABOUTME: An immediate flush variant bypasses the debounce window

package persist

import (
	"sync"
	"time"
)

// Debouncer runs save at most once per burst of Schedule calls
type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	save  func()
	timer *time.Timer
}

// NewDebouncer creates a debouncer that calls save delay after the last Schedule
func NewDebouncer(delay time.Duration, save func()) *Debouncer {
	return &Debouncer{delay: delay, save: save}
}

// Schedule (re)arms the timer
func (d *Debouncer) Schedule() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fire)
}

// Flush cancels any pending timer and saves now
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()

	d.save()
}

// FlushPending saves now only if a save is pending
func (d *Debouncer) FlushPending() {
	d.mu.Lock()
	pending := d.timer != nil && d.timer.Stop()
	d.timer = nil
	d.mu.Unlock()

	if pending {
		d.save()
	}
}

// Pending reports whether a save is scheduled
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	d.timer = nil
	d.mu.Unlock()

	d.save()
}
