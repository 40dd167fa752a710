// Package mqtt publishes relay telemetry with abstraction for testing.
// Telemetry is diagnostic only; nothing in the controller depends on a
// broker being reachable.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/relay-controller/internal/relay"
	"github.com/sweeney/relay-controller/internal/trigger"
)

// Topic carries relay state transitions and trigger edge outcomes.
const Topic = "relays/controller/events"

// TopicSystem carries lifecycle events (startup, shutdown, heartbeat).
const TopicSystem = "relays/controller/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// PublishState sends a relay state transition.
	PublishState(event relay.Event) error

	// PublishEdge sends a classified trigger edge.
	PublishEdge(event trigger.EdgeEvent) error

	// PublishSystem sends a lifecycle event.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent is a lifecycle event.
type SystemEvent struct {
	Timestamp time.Time
	Event     string // "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason    string // "SIGINT", "SIGTERM" (shutdown only)
	Retained  bool
}

// StatePayload is the wire format for relay transitions.
type StatePayload struct {
	Relay RelayInner `json:"relay"`
}

// RelayInner contains the transition details.
type RelayInner struct {
	Timestamp string `json:"timestamp"`
	Channel   int    `json:"channel"`
	Output    int    `json:"output"`
	State     string `json:"state"`
}

// FormatStatePayload creates the JSON payload for a relay transition.
func FormatStatePayload(event relay.Event) ([]byte, error) {
	state := "OFF"
	if event.On {
		state = "ON"
	}
	return json.Marshal(StatePayload{
		Relay: RelayInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Channel:   event.Channel,
			Output:    event.Output,
			State:     state,
		},
	})
}

// EdgePayload is the wire format for trigger edge outcomes.
type EdgePayload struct {
	Trigger TriggerInner `json:"trigger"`
}

// TriggerInner contains the edge details.
type TriggerInner struct {
	Timestamp string `json:"timestamp"`
	Input     int    `json:"input"`
	Channel   int    `json:"channel"`
	Result    string `json:"result"`
	State     string `json:"state,omitempty"`
}

// FormatEdgePayload creates the JSON payload for a trigger edge.
func FormatEdgePayload(event trigger.EdgeEvent) ([]byte, error) {
	inner := TriggerInner{
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
		Input:     event.Trigger,
		Channel:   event.Channel,
		Result:    string(event.Result),
	}
	if event.Result == trigger.ResultConfirmed {
		if event.On {
			inner.State = "ON"
		} else {
			inner.State = "OFF"
		}
	}
	return json.Marshal(EdgePayload{Trigger: inner})
}

// SystemPayload is the wire format for lifecycle events.
type SystemPayload struct {
	System SystemInner `json:"system"`
}

// SystemInner contains the lifecycle details.
type SystemInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a lifecycle event.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	return json.Marshal(SystemPayload{
		System: SystemInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	})
}
