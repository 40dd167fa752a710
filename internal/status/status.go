// Package status provides a thread-safe snapshot of daemon state for the
// HTTP page, heartbeat lines, and the status command.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/relay-controller/internal/relay"
	"github.com/sweeney/relay-controller/internal/trigger"
)

// ChannelStatus is one channel's configuration and current state.
type ChannelStatus struct {
	Name    string
	Output  int
	Trigger *int
	On      bool
}

// EdgeCounts tallies trigger edge outcomes since startup.
type EdgeCounts struct {
	Confirmed int
	Bounced   int
	Rearmed   int
}

// Config contains daemon configuration for display.
type Config struct {
	SettleMs    int64
	RearmMs     int64
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
}

// Snapshot is a point-in-time view of daemon state. It is a value type,
// safe to use after the lock is released.
type Snapshot struct {
	Channels      []ChannelStatus
	Counts        EdgeCounts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker seeded with the channel map.
func NewTracker(startTime time.Time, channels []relay.Channel, cfg Config) *Tracker {
	chs := make([]ChannelStatus, len(channels))
	for i, ch := range channels {
		chs[i] = ChannelStatus{Name: ch.Name, Output: ch.Output, Trigger: ch.Trigger}
	}
	return &Tracker{
		snap: Snapshot{
			Channels:  chs,
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// SetChannel records a channel's new state. Called from the controller's
// change hook.
func (t *Tracker) SetChannel(i int, on bool) {
	t.mu.Lock()
	if i >= 0 && i < len(t.snap.Channels) {
		t.snap.Channels[i].On = on
	}
	t.mu.Unlock()
}

// CountEdge tallies a classified trigger edge.
func (t *Tracker) CountEdge(result trigger.Result) {
	t.mu.Lock()
	switch result {
	case trigger.ResultConfirmed:
		t.snap.Counts.Confirmed++
	case trigger.ResultBounce:
		t.snap.Counts.Bounced++
	case trigger.ResultRearm:
		t.snap.Counts.Rearmed++
	}
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state. The Now field
// is set at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Channels = make([]ChannelStatus, len(t.snap.Channels))
	copy(s.Channels, t.snap.Channels)
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
