// Package trigger turns falling edges on grounded inputs into relay
// toggles. The debounce logic is pure: time always arrives as a parameter,
// so it can be driven by simulated clocks in tests.
package trigger

import (
	"sync"
	"time"
)

// Defaults tuned on the 2-channel relay board. Mechanical switch bounce
// reliably produces spurious multi-toggles without both stages.
const (
	DefaultSettle = 50 * time.Millisecond
	DefaultRearm  = 200 * time.Millisecond
)

// Debouncer applies a two-stage debounce per trigger input: a settle
// re-check after the first falling edge, and a re-arm window after every
// confirmed trigger. Each input is either idle or waiting for its settle
// check.
type Debouncer struct {
	settle time.Duration
	rearm  time.Duration

	mu    sync.Mutex
	lines map[int]*lineState
}

type lineState struct {
	pending     bool
	confirmed   bool
	confirmedAt time.Time
}

// NewDebouncer creates a Debouncer. Non-positive durations fall back to the
// defaults.
func NewDebouncer(settle, rearm time.Duration) *Debouncer {
	if settle <= 0 {
		settle = DefaultSettle
	}
	if rearm <= 0 {
		rearm = DefaultRearm
	}
	return &Debouncer{
		settle: settle,
		rearm:  rearm,
		lines:  make(map[int]*lineState),
	}
}

// SettleDelay returns the configured settle delay.
func (d *Debouncer) SettleDelay() time.Duration { return d.settle }

// RearmWindow returns the configured re-arm window.
func (d *Debouncer) RearmWindow() time.Duration { return d.rearm }

// Edge records a falling edge on id at now. It reports whether the edge
// should be verified after the settle delay. Edges arriving while a check
// is already pending, or within the re-arm window after a confirmed
// trigger, are rejected.
func (d *Debouncer) Edge(id int, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	l := d.lines[id]
	if l == nil {
		l = &lineState{}
		d.lines[id] = l
	}
	if l.pending {
		return false
	}
	if l.confirmed && now.Sub(l.confirmedAt) < d.rearm {
		return false
	}
	l.pending = true
	return true
}

// Settle consumes the pending check for id. stillLow reports whether the
// re-read input still shows the grounding condition; if so the trigger is
// confirmed and the re-arm window starts at now. Otherwise the edge was
// noise and the line returns to idle.
func (d *Debouncer) Settle(id int, stillLow bool, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	l := d.lines[id]
	if l == nil || !l.pending {
		return false
	}
	l.pending = false
	if !stillLow {
		return false
	}
	l.confirmed = true
	l.confirmedAt = now
	return true
}
