// Package typing implements the client-facing debounce contract for
// typing presence: one immediate emit on the first keystroke, coalesced
// refresh emits while typing continues, and an immediate clear on stop.
package typing

import (
	"sync"
	"time"
)

// State of the debouncer. The machine has two stable states; "pending" is
// a flag inside Cooldown, not a state of its own, because it only changes
// what happens at timer expiry.
type State int

const (
	// StateIdle means no typing activity within the current window.
	StateIdle State = iota
	// StateCooldown means an emit happened recently; further keystrokes
	// are coalesced until the window expires.
	StateCooldown
)

// Debouncer turns a raw keystroke stream into at most one typing write
// per interval. The emit callback is invoked outside the internal lock
// and may block (it usually performs a store write).
type Debouncer struct {
	mu      sync.Mutex
	state   State
	pending bool
	timer   *time.Timer

	interval time.Duration
	emit     func(isTyping bool)
}

func NewDebouncer(interval time.Duration, emit func(isTyping bool)) *Debouncer {
	return &Debouncer{
		interval: interval,
		emit:     emit,
	}
}

// Keystroke records one input event. The first keystroke after an idle
// period emits true immediately; keystrokes during cooldown are coalesced
// into a single refresh emit when the window expires.
func (d *Debouncer) Keystroke() {
	d.mu.Lock()
	switch d.state {
	case StateIdle:
		d.state = StateCooldown
		d.pending = false
		d.timer = time.AfterFunc(d.interval, d.expire)
		d.mu.Unlock()
		d.emit(true)
	case StateCooldown:
		d.pending = true
		d.mu.Unlock()
	}
}

func (d *Debouncer) expire() {
	d.mu.Lock()
	if d.state != StateCooldown {
		d.mu.Unlock()
		return
	}
	if d.pending {
		// Typing continued during the window; refresh the row so readers
		// keep seeing a fresh updated_at, and open the next window.
		d.pending = false
		d.timer = time.AfterFunc(d.interval, d.expire)
		d.mu.Unlock()
		d.emit(true)
		return
	}
	d.state = StateIdle
	d.timer = nil
	d.mu.Unlock()
}

// Stop clears typing state immediately. Called when the input empties,
// the message is sent, or the composer goes away. Emits false only if an
// emit(true) had been observed for the current activity burst.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	wasActive := d.state == StateCooldown
	d.state = StateIdle
	d.pending = false
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()
	if wasActive {
		d.emit(false)
	}
}

// CurrentState is exposed for tests.
func (d *Debouncer) CurrentState() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}
