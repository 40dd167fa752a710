// Package relay drives active-low relay channels through the gpio boundary.
// A Controller owns all channel state; nothing else reads or writes it.
package relay

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/sweeney/relay-controller/internal/gpio"
)

// ErrChannelIndex is returned when a caller passes an out-of-range
// channel index. This is a programming error, not a hardware fault.
var ErrChannelIndex = errors.New("relay: channel index out of range")

// ErrShutdown is returned by commands issued after Shutdown.
var ErrShutdown = errors.New("relay: controller is shut down")

// ConfigError reports an invalid channel configuration. Setup errors abort
// startup entirely; no channel is left half-configured and energized.
type ConfigError struct {
	Pin int
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("relay: bad configuration for pin %d: %v", e.Pin, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Event records one commanded state transition.
type Event struct {
	Timestamp time.Time
	Channel   int
	Output    int
	On        bool
}

// Controller owns a fixed set of relay channels. All state updates are
// serialized through one mutex; edge callbacks on different triggers may
// arrive concurrently.
type Controller struct {
	conn gpio.Conn
	cfg  Config

	mu     sync.Mutex
	states []bool
	down   bool
	notify func(Event)
}

// New configures every channel: outputs driven to the de-energized level,
// trigger inputs pulled up so the idle level reads high. On any failure the
// already-configured lines are released and a *ConfigError is returned.
func New(conn gpio.Conn, cfg Config) (*Controller, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	c := &Controller{
		conn:   conn,
		cfg:    cfg,
		states: make([]bool, len(cfg.Channels)),
	}

	var configured []int
	fail := func(pin int, err error) (*Controller, error) {
		for _, id := range configured {
			if rerr := conn.Release(id); rerr != nil {
				log.Printf("release line %d during failed setup: %v", id, rerr)
			}
		}
		return nil, &ConfigError{Pin: pin, Err: err}
	}

	for _, ch := range cfg.Channels {
		if err := conn.ConfigureOutput(ch.Output, c.offLevel()); err != nil {
			return fail(ch.Output, err)
		}
		configured = append(configured, ch.Output)
	}
	for _, ch := range cfg.Channels {
		if ch.Trigger == nil {
			continue
		}
		if err := conn.ConfigureInput(*ch.Trigger, true); err != nil {
			return fail(*ch.Trigger, err)
		}
		configured = append(configured, *ch.Trigger)
	}

	log.Printf("gpio initialized: %d channel(s), outputs %v", len(cfg.Channels), cfg.outputs())
	return c, nil
}

// OnChange registers a hook called after every commanded transition.
// Must be set before any concurrent use of the controller.
func (c *Controller) OnChange(fn func(Event)) {
	c.notify = fn
}

// Channels returns the configured channel list.
func (c *Controller) Channels() []Channel {
	out := make([]Channel, len(c.cfg.Channels))
	copy(out, c.cfg.Channels)
	return out
}

// ChannelByTrigger returns the index of the channel bound to the given
// trigger input, or false if no channel uses it.
func (c *Controller) ChannelByTrigger(trigger int) (int, bool) {
	for i, ch := range c.cfg.Channels {
		if ch.Trigger != nil && *ch.Trigger == trigger {
			return i, true
		}
	}
	return 0, false
}

func (c *Controller) onLevel() gpio.Level {
	if c.cfg.ActiveHigh {
		return gpio.High
	}
	return gpio.Low
}

func (c *Controller) offLevel() gpio.Level {
	if c.cfg.ActiveHigh {
		return gpio.Low
	}
	return gpio.High
}

// Set drives channel i to the energized or de-energized level and updates
// its state. Idempotent on hardware; the transition is still logged.
func (c *Controller) Set(i int, on bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setLocked(i, on)
}

func (c *Controller) setLocked(i int, on bool) error {
	if c.down {
		return ErrShutdown
	}
	if i < 0 || i >= len(c.cfg.Channels) {
		return fmt.Errorf("%w: %d", ErrChannelIndex, i)
	}

	ch := c.cfg.Channels[i]
	level := c.offLevel()
	if on {
		level = c.onLevel()
	}
	if err := c.conn.Write(ch.Output, level); err != nil {
		return fmt.Errorf("set channel %d (GPIO %d): %w", i, ch.Output, err)
	}
	c.states[i] = on

	word := "OFF"
	if on {
		word = "ON"
	}
	log.Printf("relay %d (GPIO %d) %s", i+1, ch.Output, word)
	if c.notify != nil {
		c.notify(Event{Timestamp: time.Now(), Channel: i, Output: ch.Output, On: on})
	}
	return nil
}

// Toggle flips channel i and returns the new state.
func (c *Controller) Toggle(i int) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i >= len(c.states) {
		return false, fmt.Errorf("%w: %d", ErrChannelIndex, i)
	}
	on := !c.states[i]
	if err := c.setLocked(i, on); err != nil {
		return c.states[i], err
	}
	return on, nil
}

// AllOn energizes every channel in ascending index order. A failing channel
// does not stop the others.
func (c *Controller) AllOn() error {
	return c.setAll(true)
}

// AllOff de-energizes every channel in ascending index order. A failing
// channel does not stop the others.
func (c *Controller) AllOff() error {
	return c.setAll(false)
}

func (c *Controller) setAll(on bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for i := range c.cfg.Channels {
		if err := c.setLocked(i, on); err != nil {
			log.Printf("channel %d: %v", i, err)
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("set all: %v", errs)
	}
	return nil
}

// State returns channel i's recorded state.
func (c *Controller) State(i int) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i >= len(c.states) {
		return false, fmt.Errorf("%w: %d", ErrChannelIndex, i)
	}
	return c.states[i], nil
}

// States returns a copy of all channel states.
func (c *Controller) States() []bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]bool, len(c.states))
	copy(out, c.states)
	return out
}

// Shutdown de-energizes every channel, then releases every configured line.
// Safe to call multiple times; a relay must never stay energized because
// the process exited abnormally, so errors on one line never stop the rest.
func (c *Controller) Shutdown() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.down {
		return nil
	}

	var errs []error
	for i := range c.cfg.Channels {
		if err := c.setLocked(i, false); err != nil {
			log.Printf("shutdown channel %d: %v", i, err)
			errs = append(errs, err)
		}
	}
	c.down = true

	for _, ch := range c.cfg.Channels {
		if err := c.conn.Release(ch.Output); err != nil {
			log.Printf("release GPIO %d: %v", ch.Output, err)
			errs = append(errs, err)
		}
		if ch.Trigger != nil {
			if err := c.conn.Release(*ch.Trigger); err != nil {
				log.Printf("release GPIO %d: %v", *ch.Trigger, err)
				errs = append(errs, err)
			}
		}
	}

	log.Printf("all relays OFF, lines released")
	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}
