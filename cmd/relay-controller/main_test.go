package main

import (
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/sweeney/relay-controller/internal/gpio"
	"github.com/sweeney/relay-controller/internal/mqtt"
	"github.com/sweeney/relay-controller/internal/relay"
	"github.com/sweeney/relay-controller/internal/status"
	"github.com/sweeney/relay-controller/internal/trigger"
)

func TestCheckMode(t *testing.T) {
	if err := checkMode(options{}); err == nil {
		t.Error("no mode selected should be rejected")
	}
	if err := checkMode(options{monitor: true}); err != nil {
		t.Errorf("single mode should be accepted: %v", err)
	}
	if err := checkMode(options{monitor: true, selfTest: true}); err == nil {
		t.Error("two modes should be rejected")
	}
}

func TestParsePins(t *testing.T) {
	pins, err := parsePins("4,17")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pins) != 2 || pins[0] != 4 || pins[1] != 17 {
		t.Errorf("pins: got %v, want [4 17]", pins)
	}

	pins, err = parsePins(" 19 , 26 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pins) != 2 || pins[0] != 19 || pins[1] != 26 {
		t.Errorf("pins: got %v, want [19 26]", pins)
	}

	if _, err := parsePins("4,x"); err == nil {
		t.Error("expected error for non-numeric pin")
	}
	if _, err := parsePins(""); err == nil {
		t.Error("expected error for empty list")
	}
}

func TestOverrideOutputs(t *testing.T) {
	cfg := overrideOutputs(relay.DefaultConfig(), []int{22, 5})

	if cfg.Channels[0].Output != 22 || cfg.Channels[1].Output != 5 {
		t.Errorf("outputs: got %d,%d want 22,5", cfg.Channels[0].Output, cfg.Channels[1].Output)
	}
	// Names and triggers survive the override.
	if cfg.Channels[0].Name != "relay-1" {
		t.Errorf("name: got %q", cfg.Channels[0].Name)
	}
	if cfg.Channels[0].Trigger == nil || *cfg.Channels[0].Trigger != gpio.DefaultTrigger1 {
		t.Error("trigger should survive output override")
	}

	// Overriding with more pins grows the channel list.
	cfg = overrideOutputs(relay.DefaultConfig(), []int{4, 17, 27})
	if len(cfg.Channels) != 3 {
		t.Fatalf("channels: got %d, want 3", len(cfg.Channels))
	}
	if cfg.Channels[2].Name != "relay-3" || cfg.Channels[2].Trigger != nil {
		t.Errorf("grown channel: %+v", cfg.Channels[2])
	}
}

func TestOverrideTriggers(t *testing.T) {
	cfg := overrideTriggers(relay.DefaultConfig(), []int{6})

	if cfg.Channels[0].Trigger == nil || *cfg.Channels[0].Trigger != 6 {
		t.Error("channel 0 trigger should be 6")
	}
	// Channel 1 keeps its configured trigger.
	if cfg.Channels[1].Trigger == nil || *cfg.Channels[1].Trigger != gpio.DefaultTrigger2 {
		t.Error("channel 1 trigger should be unchanged")
	}
}

func TestBuildConfigRejectsBadPins(t *testing.T) {
	if _, err := buildConfig(options{pins: "4,bogus"}); err == nil {
		t.Error("expected error for bad -pins")
	}
	if _, err := buildConfig(options{triggers: "x"}); err == nil {
		t.Error("expected error for bad -triggers")
	}
}

func TestSignalName(t *testing.T) {
	if got := signalName(syscall.SIGINT); got != "SIGINT" {
		t.Errorf("got %q", got)
	}
	if got := signalName(syscall.SIGTERM); got != "SIGTERM" {
		t.Errorf("got %q", got)
	}
	if got := signalName(syscall.SIGHUP); got != "UNKNOWN" {
		t.Errorf("got %q", got)
	}
}

// --- monitorLoop tests ---

func newLoopFixtures() (*status.Tracker, *mqtt.FakePublisher) {
	tracker := status.NewTracker(time.Now(), relay.DefaultConfig().Channels, status.Config{})
	return tracker, mqtt.NewFakePublisher()
}

func TestMonitorLoopPublishesStateAndEdges(t *testing.T) {
	tracker, pub := newLoopFixtures()

	stateCh := make(chan relay.Event, 1)
	edgeCh := make(chan trigger.EdgeEvent, 1)
	sig := make(chan os.Signal, 1)

	stateCh <- relay.Event{Timestamp: time.Now(), Channel: 0, Output: 4, On: true}
	edgeCh <- trigger.EdgeEvent{Timestamp: time.Now(), Trigger: 19, Channel: 0, Result: trigger.ResultConfirmed, On: true}

	done := make(chan error, 1)
	go func() {
		done <- monitorLoop(tracker, pub, pub, stateCh, edgeCh, nil, sig)
	}()

	// Let the loop drain both queues, then stop it.
	waitFor(t, func() bool {
		states, edges, _ := pub.Counts()
		return states == 1 && edges == 1
	})
	sig <- syscall.SIGTERM

	if err := <-done; err != nil {
		t.Fatalf("monitorLoop: %v", err)
	}

	snap := tracker.Snapshot()
	if !snap.Channels[0].On {
		t.Error("tracker should record channel 0 ON")
	}
	if snap.Counts.Confirmed != 1 {
		t.Errorf("confirmed: got %d, want 1", snap.Counts.Confirmed)
	}

	// Shutdown event published on signal.
	if len(pub.SystemEvents) != 1 || pub.SystemEvents[0].Event != "SHUTDOWN" {
		t.Fatalf("system events: %+v", pub.SystemEvents)
	}
	if pub.SystemEvents[0].Reason != "SIGTERM" {
		t.Errorf("reason: got %q", pub.SystemEvents[0].Reason)
	}
}

func TestMonitorLoopHeartbeat(t *testing.T) {
	tracker, pub := newLoopFixtures()
	pub.Connected = true

	tick := make(chan time.Time, 1)
	sig := make(chan os.Signal, 1)
	tick <- time.Now()

	done := make(chan error, 1)
	go func() {
		done <- monitorLoop(tracker, pub, pub, nil, nil, tick, sig)
	}()

	waitFor(t, func() bool {
		_, _, system := pub.Counts()
		return system == 1
	})
	sig <- syscall.SIGINT
	<-done

	if pub.SystemEvents[0].Event != "HEARTBEAT" {
		t.Errorf("first system event: got %q, want HEARTBEAT", pub.SystemEvents[0].Event)
	}
	if !tracker.Snapshot().MQTTConnected {
		t.Error("tracker should record mqtt connected")
	}
}

func TestMonitorLoopWithoutPublisher(t *testing.T) {
	tracker, _ := newLoopFixtures()

	stateCh := make(chan relay.Event, 1)
	sig := make(chan os.Signal, 1)
	stateCh <- relay.Event{Channel: 1, On: true}

	done := make(chan error, 1)
	go func() {
		done <- monitorLoop(tracker, nil, nil, stateCh, nil, nil, sig)
	}()

	waitFor(t, func() bool { return tracker.Snapshot().Channels[1].On })
	sig <- syscall.SIGINT

	if err := <-done; err != nil {
		t.Fatalf("monitorLoop: %v", err)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}
