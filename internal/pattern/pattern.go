// Package pattern runs the visual relay test patterns. Timings are slow on
// purpose so an operator can watch the board LEDs and hear the contacts.
package pattern

import (
	"context"
	"log"
	"time"

	"github.com/sweeney/relay-controller/internal/relay"
)

// Runner cycles relays through fixed patterns. Sleeps are cancellable and
// injectable, so tests run without waiting.
type Runner struct {
	ctl   *relay.Controller
	sleep func(context.Context, time.Duration) error
}

// NewRunner creates a Runner over the controller.
func NewRunner(ctl *relay.Controller) *Runner {
	return &Runner{ctl: ctl, sleep: sleepCtx}
}

// SetSleep overrides the sleep function. Test hook.
func (r *Runner) SetSleep(fn func(context.Context, time.Duration) error) {
	r.sleep = fn
}

// Simple runs the slow, easy-to-observe test: each relay on 3s / off 2s for
// two cycles, then both together for 4s. All relays end de-energized, also
// when the context is cancelled mid-pattern.
func (r *Runner) Simple(ctx context.Context) error {
	log.Printf("simple relay test (slow timing)")
	if err := r.runSimple(ctx); err != nil {
		r.ctl.AllOff()
		return err
	}
	log.Printf("simple test completed")
	return nil
}

func (r *Runner) runSimple(ctx context.Context) error {
	n := len(r.ctl.Channels())
	for cycle := 1; cycle <= 2; cycle++ {
		log.Printf("cycle %d of 2", cycle)
		for i := 0; i < n; i++ {
			log.Printf("testing relay %d", i+1)
			if err := r.ctl.Set(i, true); err != nil {
				return err
			}
			if err := r.sleep(ctx, 3*time.Second); err != nil {
				return err
			}
			if err := r.ctl.Set(i, false); err != nil {
				return err
			}
			if err := r.sleep(ctx, 2*time.Second); err != nil {
				return err
			}
		}
	}

	log.Printf("testing all relays together")
	if err := r.ctl.AllOn(); err != nil {
		return err
	}
	if err := r.sleep(ctx, 4*time.Second); err != nil {
		return err
	}
	return r.ctl.AllOff()
}

// Self runs the comprehensive pattern: individual, sequential, then all
// on/off together.
func (r *Runner) Self(ctx context.Context) error {
	log.Printf("comprehensive self-test")
	if err := r.runSelf(ctx); err != nil {
		r.ctl.AllOff()
		return err
	}
	log.Printf("self-test completed")
	return nil
}

func (r *Runner) runSelf(ctx context.Context) error {
	n := len(r.ctl.Channels())

	if err := r.ctl.AllOff(); err != nil {
		return err
	}
	if err := r.sleep(ctx, time.Second); err != nil {
		return err
	}

	log.Printf("individual relay test")
	for i := 0; i < n; i++ {
		if err := r.ctl.Set(i, true); err != nil {
			return err
		}
		if err := r.sleep(ctx, 2*time.Second); err != nil {
			return err
		}
		if err := r.ctl.Set(i, false); err != nil {
			return err
		}
		if err := r.sleep(ctx, time.Second); err != nil {
			return err
		}
	}

	log.Printf("sequential pattern test")
	for cycle := 0; cycle < 2; cycle++ {
		for i := 0; i < n; i++ {
			if err := r.ctl.AllOff(); err != nil {
				return err
			}
			if err := r.sleep(ctx, 500*time.Millisecond); err != nil {
				return err
			}
			if err := r.ctl.Set(i, true); err != nil {
				return err
			}
			if err := r.sleep(ctx, 1500*time.Millisecond); err != nil {
				return err
			}
		}
	}

	log.Printf("all relays on/off test")
	for cycle := 0; cycle < 3; cycle++ {
		if err := r.ctl.AllOn(); err != nil {
			return err
		}
		if err := r.sleep(ctx, 1500*time.Millisecond); err != nil {
			return err
		}
		if err := r.ctl.AllOff(); err != nil {
			return err
		}
		if err := r.sleep(ctx, 1500*time.Millisecond); err != nil {
			return err
		}
	}
	return nil
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
