// Package gpio provides digital I/O with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Level is the logic level of a digital line.
type Level int

const (
	Low  Level = 0
	High Level = 1
)

// String returns "LOW" or "HIGH".
func (l Level) String() string {
	if l == Low {
		return "LOW"
	}
	return "HIGH"
}

// EdgeHandler is called when a watched input sees a falling edge.
// Handlers run on the I/O layer's goroutine and must not block.
type EdgeHandler func(id int)

// Conn is the digital I/O boundary. Line identifiers are BCM offsets on
// the host's GPIO chip, treated as opaque small integers.
type Conn interface {
	// ConfigureOutput requests the line as an output driven to initial.
	ConfigureOutput(id int, initial Level) error

	// ConfigureInput requests the line as an input, optionally with an
	// internal pull-up so the idle level reads high.
	ConfigureInput(id int, pullUp bool) error

	// Write drives a configured output line.
	Write(id int, level Level) error

	// Read returns the current level of a configured line.
	Read(id int) (Level, error)

	// OnFallingEdge registers a handler for falling edges on a
	// configured input line.
	OnFallingEdge(id int, fn EdgeHandler) error

	// Release returns a configured line to an inert, non-driven state
	// and frees it. Releasing an unconfigured line is a no-op.
	Release(id int) error

	// Close releases all configured lines and the underlying chip.
	Close() error
}

// Default pin map (BCM numbering) for the 2-channel relay board this tool
// was written for. Triggers sit on physical pins 35 and 37; ground either
// one to toggle its relay.
const (
	DefaultOutput1  = 4  // physical pin 7, relay 1 coil
	DefaultOutput2  = 17 // physical pin 11, relay 2 coil
	DefaultTrigger1 = 19 // physical pin 35
	DefaultTrigger2 = 26 // physical pin 37
)
