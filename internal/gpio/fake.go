package gpio

import (
	"fmt"
	"sync"
)

// FakeConn is an in-memory Conn for tests. Outputs remember the last level
// written; inputs can be set by the test and edges injected with FireEdge.
type FakeConn struct {
	mu       sync.Mutex
	levels   map[int]Level
	outputs  map[int]bool
	inputs   map[int]bool
	pullUps  map[int]bool
	handlers map[int]EdgeHandler
	released []int
	parked   map[int]Level

	// Closed tracks if Close was called.
	Closed bool

	// WriteError, if set, is returned by Write for pins in FailPins
	// (or all pins when FailPins is empty).
	WriteError error

	// ReadError, if set, is returned by Read.
	ReadError error

	// ConfigureError, if set, is returned by ConfigureOutput and
	// ConfigureInput.
	ConfigureError error

	// FailPins limits WriteError to specific pins.
	FailPins map[int]bool
}

// NewFakeConn creates an empty FakeConn.
func NewFakeConn() *FakeConn {
	return &FakeConn{
		levels:   make(map[int]Level),
		outputs:  make(map[int]bool),
		inputs:   make(map[int]bool),
		pullUps:  make(map[int]bool),
		handlers: make(map[int]EdgeHandler),
		parked:   make(map[int]Level),
	}
}

// ConfigureOutput records the line as an output at initial.
func (f *FakeConn) ConfigureOutput(id int, initial Level) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ConfigureError != nil {
		return f.ConfigureError
	}
	if f.outputs[id] || f.inputs[id] {
		return fmt.Errorf("line %d already configured", id)
	}
	f.outputs[id] = true
	f.levels[id] = initial
	return nil
}

// ConfigureInput records the line as an input. With pullUp the idle level
// is high, matching hardware.
func (f *FakeConn) ConfigureInput(id int, pullUp bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ConfigureError != nil {
		return f.ConfigureError
	}
	if f.outputs[id] || f.inputs[id] {
		return fmt.Errorf("line %d already configured", id)
	}
	f.inputs[id] = true
	f.pullUps[id] = pullUp
	if pullUp {
		f.levels[id] = High
	} else {
		f.levels[id] = Low
	}
	return nil
}

// Write drives an output line.
func (f *FakeConn) Write(id int, level Level) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.WriteError != nil && (len(f.FailPins) == 0 || f.FailPins[id]) {
		return f.WriteError
	}
	if !f.outputs[id] {
		return fmt.Errorf("line %d not configured as output", id)
	}
	f.levels[id] = level
	return nil
}

// Read returns the current level of any configured line.
func (f *FakeConn) Read(id int) (Level, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ReadError != nil {
		return Low, f.ReadError
	}
	if !f.outputs[id] && !f.inputs[id] {
		return Low, fmt.Errorf("line %d not configured", id)
	}
	return f.levels[id], nil
}

// OnFallingEdge records the handler for later FireEdge calls.
func (f *FakeConn) OnFallingEdge(id int, fn EdgeHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.inputs[id] {
		return fmt.Errorf("line %d not configured as input", id)
	}
	f.handlers[id] = fn
	return nil
}

// Release forgets the line's configuration.
func (f *FakeConn) Release(id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.outputs[id] && !f.inputs[id] {
		return nil
	}
	if f.outputs[id] {
		f.parked[id] = f.levels[id]
	}
	delete(f.outputs, id)
	delete(f.inputs, id)
	delete(f.pullUps, id)
	delete(f.handlers, id)
	delete(f.levels, id)
	f.released = append(f.released, id)
	return nil
}

// Close releases every configured line.
func (f *FakeConn) Close() error {
	f.mu.Lock()
	ids := make([]int, 0, len(f.levels))
	for id := range f.levels {
		ids = append(ids, id)
	}
	f.mu.Unlock()
	for _, id := range ids {
		f.Release(id)
	}
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// SetInput sets an input line's level without firing an edge handler.
func (f *FakeConn) SetInput(id int, level Level) {
	f.mu.Lock()
	f.levels[id] = level
	f.mu.Unlock()
}

// FireEdge drives an input low and invokes its falling-edge handler
// synchronously, mimicking the chardev event path.
func (f *FakeConn) FireEdge(id int) {
	f.mu.Lock()
	f.levels[id] = Low
	fn := f.handlers[id]
	f.mu.Unlock()
	if fn != nil {
		fn(id)
	}
}

// OutputLevel returns the last level written to an output line, including
// the level it held when it was released.
func (f *FakeConn) OutputLevel(id int) Level {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.levels[id]; ok {
		return v
	}
	return f.parked[id]
}

// Released returns the ids released so far, in release order.
func (f *FakeConn) Released() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int, len(f.released))
	copy(out, f.released)
	return out
}
