package browse

import (
	"sync"
	"time"
)

// DefaultDebounce is how long typing must stay quiet before a search fires.
const DefaultDebounce = 300 * time.Millisecond

// Debouncer coalesces rapid search-term updates. The callback fires once
// the term has been stable for the configured delay, or immediately on
// Flush for an explicit submit.
type Debouncer struct {
	delay time.Duration
	fn    func(term string)

	mu      sync.Mutex
	timer   *time.Timer
	pending string
	armed   bool
}

// NewDebouncer builds a debouncer around fn. A non-positive delay falls
// back to DefaultDebounce.
func NewDebouncer(delay time.Duration, fn func(term string)) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Debouncer{delay: delay, fn: fn}
}

// Update records the latest term and restarts the quiet period.
func (d *Debouncer) Update(term string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = term
	d.armed = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fire)
}

// Flush fires the pending term immediately, bypassing the quiet period.
// A no-op when nothing is pending.
func (d *Debouncer) Flush() {
	d.fire()
}

// Stop cancels any pending callback without firing it.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.armed = false
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	if !d.armed {
		d.mu.Unlock()
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.armed = false
	term := d.pending
	d.mu.Unlock()

	d.fn(term)
}
