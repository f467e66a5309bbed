// Package debounce coalesces bursts of signals into one delayed action.
package debounce

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Debouncer runs fn once, delay after the most recent Trigger. Each Trigger
// restarts the wait. It owns its timer, so callers share no timer state.
type Debouncer struct {
	mu    sync.Mutex
	clock clockwork.Clock
	delay time.Duration
	fn    func()
	timer clockwork.Timer
}

// Option configures a Debouncer.
type Option func(*Debouncer)

// WithClock sets the time source. Tests pass a fake clock.
func WithClock(c clockwork.Clock) Option {
	return func(d *Debouncer) { d.clock = c }
}

// New creates a Debouncer that calls fn after delay of quiet.
func New(delay time.Duration, fn func(), opts ...Option) *Debouncer {
	d := &Debouncer{
		clock: clockwork.NewRealClock(),
		delay: delay,
		fn:    fn,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Trigger records a signal, cancelling any pending run and scheduling a new one.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = d.clock.AfterFunc(d.delay, d.fn)
}

// Stop cancels a pending run. It reports whether a run was cancelled.
func (d *Debouncer) Stop() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer == nil {
		return false
	}
	stopped := d.timer.Stop()
	d.timer = nil
	return stopped
}
