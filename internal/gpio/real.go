//go:build linux

package gpio

import (
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"
)

// RealConn drives actual hardware through the Linux GPIO character device.
type RealConn struct {
	chip *gpiocdev.Chip

	mu    sync.Mutex
	lines map[int]*realLine
}

type realLine struct {
	line    *gpiocdev.Line
	output  bool
	pullUp  bool
	handler EdgeHandler
}

// NewRealConn opens the named GPIO chip ("gpiochip0" on a Raspberry Pi).
func NewRealConn(chipName string) (*RealConn, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chipName, err)
	}
	return &RealConn{
		chip:  chip,
		lines: make(map[int]*realLine),
	}, nil
}

// ConfigureOutput requests the line as an output driven to initial.
func (c *RealConn) ConfigureOutput(id int, initial Level) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.lines[id]; ok {
		return fmt.Errorf("line %d already configured", id)
	}
	line, err := c.chip.RequestLine(id, gpiocdev.AsOutput(int(initial)))
	if err != nil {
		return fmt.Errorf("request output line %d: %w", id, err)
	}
	c.lines[id] = &realLine{line: line, output: true}
	return nil
}

// ConfigureInput requests the line as an input, with an internal pull-up
// when pullUp is set so the idle level reads high.
func (c *RealConn) ConfigureInput(id int, pullUp bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.lines[id]; ok {
		return fmt.Errorf("line %d already configured", id)
	}
	opts := []gpiocdev.LineReqOption{gpiocdev.AsInput}
	if pullUp {
		opts = append(opts, gpiocdev.WithPullUp)
	}
	line, err := c.chip.RequestLine(id, opts...)
	if err != nil {
		return fmt.Errorf("request input line %d: %w", id, err)
	}
	c.lines[id] = &realLine{line: line, pullUp: pullUp}
	return nil
}

// Write drives a configured output line.
func (c *RealConn) Write(id int, level Level) error {
	c.mu.Lock()
	l, ok := c.lines[id]
	c.mu.Unlock()
	if !ok || !l.output {
		return fmt.Errorf("line %d not configured as output", id)
	}
	if err := l.line.SetValue(int(level)); err != nil {
		return fmt.Errorf("write line %d: %w", id, err)
	}
	return nil
}

// Read returns the current level of a configured line.
func (c *RealConn) Read(id int) (Level, error) {
	c.mu.Lock()
	l, ok := c.lines[id]
	c.mu.Unlock()
	if !ok {
		return Low, fmt.Errorf("line %d not configured", id)
	}
	v, err := l.line.Value()
	if err != nil {
		return Low, fmt.Errorf("read line %d: %w", id, err)
	}
	if v == 0 {
		return Low, nil
	}
	return High, nil
}

// OnFallingEdge registers a handler for falling edges on a configured input.
// The character device takes its edge handler at request time, so the line
// is released and re-requested with edge detection enabled.
func (c *RealConn) OnFallingEdge(id int, fn EdgeHandler) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	l, ok := c.lines[id]
	if !ok || l.output {
		return fmt.Errorf("line %d not configured as input", id)
	}
	if err := l.line.Close(); err != nil {
		return fmt.Errorf("re-request line %d: %w", id, err)
	}
	opts := []gpiocdev.LineReqOption{
		gpiocdev.AsInput,
		gpiocdev.WithFallingEdge,
		gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
			if evt.Type == gpiocdev.LineEventFallingEdge {
				fn(evt.Offset)
			}
		}),
	}
	if l.pullUp {
		opts = append(opts, gpiocdev.WithPullUp)
	}
	line, err := c.chip.RequestLine(id, opts...)
	if err != nil {
		delete(c.lines, id)
		return fmt.Errorf("request edge events on line %d: %w", id, err)
	}
	l.line = line
	l.handler = fn
	return nil
}

// Release reverts the line to an input (inert, non-driven) and frees it.
// Releasing an unconfigured line is a no-op.
func (c *RealConn) Release(id int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.releaseLocked(id)
}

func (c *RealConn) releaseLocked(id int) error {
	l, ok := c.lines[id]
	if !ok {
		return nil
	}
	delete(c.lines, id)

	var errs []error
	// Reconfigure outputs as inputs before closing so the relay board sees
	// a floating line rather than a driven one after exit.
	if l.output {
		if err := l.line.Reconfigure(gpiocdev.AsInput); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure line %d: %w", id, err))
		}
	}
	if err := l.line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close line %d: %w", id, err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("release line %d: %v", id, errs)
	}
	return nil
}

// Close releases all configured lines and the chip. Safe to call twice.
func (c *RealConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for id := range c.lines {
		if err := c.releaseLocked(id); err != nil {
			errs = append(errs, err)
		}
	}
	if c.chip != nil {
		if err := c.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		c.chip = nil
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
