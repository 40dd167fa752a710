package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Channels      []ChannelJSON `json:"channels"`
	UptimeSeconds int64         `json:"uptime_seconds"`
	StartTime     string        `json:"start_time"`
	Timestamp     string        `json:"timestamp"`
	MQTT          MQTTStatus    `json:"mqtt"`
	Counts        CountsJSON    `json:"edge_counts"`
	Config        ConfigJSON    `json:"config"`
}

// ChannelJSON is the JSON representation of one channel.
type ChannelJSON struct {
	Name    string `json:"name"`
	Output  int    `json:"output"`
	Trigger *int   `json:"trigger,omitempty"`
	State   string `json:"state"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker,omitempty"`
}

// CountsJSON is the JSON representation of edge counts.
type CountsJSON struct {
	Confirmed int `json:"confirmed"`
	Bounced   int `json:"bounced"`
	Rearmed   int `json:"rearmed"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	SettleMs    int64  `json:"settle_ms"`
	RearmMs     int64  `json:"rearm_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker,omitempty"`
	HTTPAddr    string `json:"http_addr,omitempty"`
}

func buildInner(snap Snapshot) StatusInner {
	channels := make([]ChannelJSON, len(snap.Channels))
	for i, ch := range snap.Channels {
		state := "OFF"
		if ch.On {
			state = "ON"
		}
		channels[i] = ChannelJSON{
			Name:    ch.Name,
			Output:  ch.Output,
			Trigger: ch.Trigger,
			State:   state,
		}
	}

	return StatusInner{
		Channels:      channels,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Confirmed: snap.Counts.Confirmed,
			Bounced:   snap.Counts.Bounced,
			Rearmed:   snap.Counts.Rearmed,
		},
		Config: ConfigJSON{
			SettleMs:    snap.Config.SettleMs,
			RearmMs:     snap.Config.RearmMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
		},
	}
}

// FormatJSON returns the indented JSON status for the web endpoint and the
// status command.
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}
