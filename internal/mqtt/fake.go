package mqtt

import (
	"sync"

	"github.com/sweeney/relay-controller/internal/relay"
	"github.com/sweeney/relay-controller/internal/trigger"
)

// FakePublisher records published events for test assertions. Safe for
// concurrent use; tests polling while a loop publishes use Counts.
type FakePublisher struct {
	mu sync.Mutex

	// States contains all relay transitions that were published.
	States []relay.Event

	// Edges contains all trigger edges that were published.
	Edges []trigger.EdgeEvent

	// SystemEvents contains all lifecycle events that were published.
	SystemEvents []SystemEvent

	// Payloads contains every JSON payload in publish order.
	Payloads [][]byte

	// PublishError, if set, is returned by every publish method.
	PublishError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// PublishState records the relay transition.
func (f *FakePublisher) PublishState(event relay.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.States = append(f.States, event)
	payload, err := FormatStatePayload(event)
	if err != nil {
		return err
	}
	f.Payloads = append(f.Payloads, payload)
	return nil
}

// PublishEdge records the trigger edge.
func (f *FakePublisher) PublishEdge(event trigger.EdgeEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Edges = append(f.Edges, event)
	payload, err := FormatEdgePayload(event)
	if err != nil {
		return err
	}
	f.Payloads = append(f.Payloads, payload)
	return nil
}

// PublishSystem records the lifecycle event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.SystemEvents = append(f.SystemEvents, event)
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.Payloads = append(f.Payloads, payload)
	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// Counts returns the number of recorded state, edge and system events.
func (f *FakePublisher) Counts() (states, edges, system int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.States), len(f.Edges), len(f.SystemEvents)
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}
