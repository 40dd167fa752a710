// Package discover finds which GPIO pins are wired to which relay by
// pulsing candidates one at a time and asking the operator to confirm.
// The confirmation callback is injectable, so the sweep is testable
// without hardware or a human.
package discover

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sweeney/relay-controller/internal/gpio"
)

// PrimeSuspects are the pins most commonly used by 2-channel relay boards,
// tried first.
var PrimeSuspects = []int{4, 17, 18, 19, 20, 21, 22, 27}

// AdditionalPins are tried when the prime suspects come up short.
var AdditionalPins = []int{2, 3, 5, 6, 12, 13, 16, 26}

// CandidateSet is a named pin pair seen on common relay boards. Kept for
// the operator-facing listing; the sweep itself goes pin by pin.
type CandidateSet struct {
	Name string
	Pins []int
}

// CommonSets lists known 2-channel board layouts.
func CommonSets() []CandidateSet {
	return []CandidateSet{
		{Name: "Config A", Pins: []int{4, 17}},
		{Name: "Config B", Pins: []int{18, 19}},
		{Name: "Config C", Pins: []int{20, 21}},
		{Name: "Config D", Pins: []int{2, 3}},
		{Name: "Config E", Pins: []int{5, 6}},
		{Name: "Config F", Pins: []int{12, 16}},
		{Name: "Config G", Pins: []int{13, 26}},
		{Name: "Config H", Pins: []int{22, 27}},
	}
}

// Candidates yields the full trial order: prime suspects first, then the
// additional pins, without duplicates.
func Candidates() []int {
	seen := make(map[int]bool)
	var out []int
	for _, pin := range append(append([]int{}, PrimeSuspects...), AdditionalPins...) {
		if !seen[pin] {
			seen[pin] = true
			out = append(out, pin)
		}
	}
	return out
}

// Confirm asks whether the just-pulsed pin moved a relay. An error aborts
// the sweep (operator requested stop).
type Confirm func(pin int) (bool, error)

// Prober pulses candidate pins and collects the confirmed ones.
type Prober struct {
	conn    gpio.Conn
	confirm Confirm
	sleep   func(context.Context, time.Duration) error

	// Want is how many relay pins the sweep is looking for.
	Want int
}

// NewProber creates a Prober. Want defaults to 2 (the observed boards).
func NewProber(conn gpio.Conn, confirm Confirm) *Prober {
	return &Prober{
		conn:    conn,
		confirm: confirm,
		sleep:   sleepCtx,
		Want:    2,
	}
}

// SetSleep overrides the sleep function. Test hook.
func (p *Prober) SetSleep(fn func(context.Context, time.Duration) error) {
	p.sleep = fn
}

// Run sweeps the candidates until Want pins are confirmed or the list is
// exhausted. Pins that fail to configure are skipped; relays are always
// left de-energized and released.
func (p *Prober) Run(ctx context.Context) ([]int, error) {
	var found []int
	for _, pin := range Candidates() {
		ok, err := p.probe(ctx, pin)
		if err != nil {
			return found, err
		}
		if ok {
			log.Printf("GPIO %d controls a relay", pin)
			found = append(found, pin)
			if len(found) >= p.Want {
				break
			}
		}
	}
	if len(found) < p.Want {
		log.Printf("only found %d working pin(s): %v", len(found), found)
	}
	return found, nil
}

// probe pulses one pin: energized 2s, de-energized 1s, then asks the
// operator. The pin always ends de-energized and released.
func (p *Prober) probe(ctx context.Context, pin int) (bool, error) {
	log.Printf("testing GPIO %d, watch for relay activity", pin)

	if err := p.conn.ConfigureOutput(pin, gpio.High); err != nil {
		log.Printf("skip GPIO %d: %v", pin, err)
		return false, nil
	}
	defer func() {
		if err := p.conn.Write(pin, gpio.High); err != nil {
			log.Printf("de-energize GPIO %d: %v", pin, err)
		}
		if err := p.conn.Release(pin); err != nil {
			log.Printf("release GPIO %d: %v", pin, err)
		}
	}()

	if err := p.conn.Write(pin, gpio.Low); err != nil {
		return false, fmt.Errorf("drive GPIO %d: %w", pin, err)
	}
	if err := p.sleep(ctx, 2*time.Second); err != nil {
		return false, err
	}
	if err := p.conn.Write(pin, gpio.High); err != nil {
		return false, fmt.Errorf("drive GPIO %d: %w", pin, err)
	}
	if err := p.sleep(ctx, time.Second); err != nil {
		return false, err
	}

	return p.confirm(pin)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
