// Command relay-controller drives and monitors relay modules wired to
// Raspberry Pi GPIO. One mode per invocation: a visual test pattern, pin
// discovery, the trigger monitor, or a status report.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/sweeney/relay-controller/internal/discover"
	"github.com/sweeney/relay-controller/internal/gpio"
	"github.com/sweeney/relay-controller/internal/mqtt"
	"github.com/sweeney/relay-controller/internal/pattern"
	"github.com/sweeney/relay-controller/internal/relay"
	"github.com/sweeney/relay-controller/internal/status"
	"github.com/sweeney/relay-controller/internal/trigger"
	"github.com/sweeney/relay-controller/internal/web"
)

type options struct {
	configPath string
	pins       string
	triggers   string
	chip       string

	simpleTest bool
	selfTest   bool
	discover   bool
	monitor    bool
	status     bool

	settle    time.Duration
	rearm     time.Duration
	heartbeat time.Duration
	broker    string
	httpAddr  string
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "YAML channel map (empty = built-in 2-channel defaults)")
	flag.StringVar(&opts.pins, "pins", "", `override relay output pins, e.g. "4,17"`)
	flag.StringVar(&opts.triggers, "triggers", "", `override trigger input pins, e.g. "19,26"`)
	flag.StringVar(&opts.chip, "chip", "gpiochip0", "GPIO character device")

	flag.BoolVar(&opts.simpleTest, "simple-test", false, "run the simple relay test (slow timing)")
	flag.BoolVar(&opts.selfTest, "self-test", false, "run the comprehensive self-test")
	flag.BoolVar(&opts.discover, "discover", false, "discover which GPIO pins control the relays")
	flag.BoolVar(&opts.monitor, "monitor", false, "monitor trigger inputs and toggle relays")
	flag.BoolVar(&opts.status, "status", false, "print the current configuration and exit")

	flag.DurationVar(&opts.settle, "settle", trigger.DefaultSettle, "debounce settle delay")
	flag.DurationVar(&opts.rearm, "rearm", trigger.DefaultRearm, "re-arm window after a confirmed trigger")
	flag.DurationVar(&opts.heartbeat, "heartbeat", 30*time.Second, "monitor status line interval (0 to disable)")
	flag.StringVar(&opts.broker, "broker", "", "MQTT broker address for telemetry (empty to disable)")
	flag.StringVar(&opts.httpAddr, "http", "", "HTTP status address for monitor mode (empty to disable)")

	flag.Parse()

	if err := checkMode(opts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}

	if err := run(opts); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// checkMode requires exactly one mode flag.
func checkMode(opts options) error {
	n := 0
	for _, set := range []bool{opts.simpleTest, opts.selfTest, opts.discover, opts.monitor, opts.status} {
		if set {
			n++
		}
	}
	if n != 1 {
		return errors.New("exactly one of -simple-test, -self-test, -discover, -monitor, -status is required")
	}
	return nil
}

func run(opts options) error {
	cfg, err := buildConfig(opts)
	if err != nil {
		return err
	}

	if opts.status {
		return printStatus(cfg, opts)
	}

	conn, err := gpio.NewRealConn(opts.chip)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer conn.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if opts.discover {
		return runDiscover(ctx, conn)
	}

	ctl, err := relay.New(conn, cfg)
	if err != nil {
		return err
	}
	// The core safety contract: relays never stay energized because the
	// process exited abnormally.
	defer ctl.Shutdown()

	switch {
	case opts.simpleTest:
		return asInterrupt(pattern.NewRunner(ctl).Simple(ctx))
	case opts.selfTest:
		return asInterrupt(pattern.NewRunner(ctl).Self(ctx))
	case opts.monitor:
		return runMonitor(conn, ctl, cfg, opts)
	}
	return nil
}

// asInterrupt maps operator-requested cancellation to a clean exit.
func asInterrupt(err error) error {
	if errors.Is(err, context.Canceled) {
		log.Printf("interrupted, shutting down")
		return nil
	}
	return err
}

// buildConfig assembles the channel map from the YAML file or the built-in
// defaults, then applies -pins / -triggers overrides.
func buildConfig(opts options) (relay.Config, error) {
	cfg := relay.DefaultConfig()
	if opts.configPath != "" {
		var err error
		cfg, err = relay.LoadConfig(opts.configPath)
		if err != nil {
			return relay.Config{}, err
		}
	}

	if opts.pins != "" {
		pins, err := parsePins(opts.pins)
		if err != nil {
			return relay.Config{}, fmt.Errorf("-pins: %w", err)
		}
		cfg = overrideOutputs(cfg, pins)
	}
	if opts.triggers != "" {
		pins, err := parsePins(opts.triggers)
		if err != nil {
			return relay.Config{}, fmt.Errorf("-triggers: %w", err)
		}
		cfg = overrideTriggers(cfg, pins)
	}
	return cfg, nil
}

// parsePins parses a comma-separated pin list.
func parsePins(s string) ([]int, error) {
	var pins []int
	for _, part := range strings.Split(s, ",") {
		pin, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("bad pin %q", part)
		}
		pins = append(pins, pin)
	}
	return pins, nil
}

// overrideOutputs replaces the channel list's outputs with the given pins,
// growing or shrinking the list to match.
func overrideOutputs(cfg relay.Config, pins []int) relay.Config {
	channels := make([]relay.Channel, len(pins))
	for i, pin := range pins {
		ch := relay.Channel{Name: fmt.Sprintf("relay-%d", i+1), Output: pin}
		if i < len(cfg.Channels) {
			ch.Name = cfg.Channels[i].Name
			ch.Trigger = cfg.Channels[i].Trigger
		}
		channels[i] = ch
	}
	cfg.Channels = channels
	return cfg
}

// overrideTriggers binds the given trigger pins to channels in order.
// Channels beyond the list keep their configured trigger.
func overrideTriggers(cfg relay.Config, pins []int) relay.Config {
	channels := make([]relay.Channel, len(cfg.Channels))
	copy(channels, cfg.Channels)
	for i := range channels {
		if i < len(pins) {
			pin := pins[i]
			channels[i].Trigger = &pin
		}
	}
	cfg.Channels = channels
	return cfg
}

// printStatus reports the configuration without touching hardware.
func printStatus(cfg relay.Config, opts options) error {
	tracker := status.NewTracker(time.Now(), cfg.Channels, trackerConfig(opts))
	fmt.Println(string(status.FormatJSON(tracker.Snapshot())))
	return nil
}

func trackerConfig(opts options) status.Config {
	return status.Config{
		SettleMs:    opts.settle.Milliseconds(),
		RearmMs:     opts.rearm.Milliseconds(),
		HeartbeatMs: opts.heartbeat.Milliseconds(),
		Broker:      opts.broker,
		HTTPAddr:    opts.httpAddr,
	}
}

// runDiscover sweeps candidate pins, asking the operator about each one.
func runDiscover(ctx context.Context, conn gpio.Conn) error {
	log.Printf("pin discovery: watch the relay board for clicking/LED activity")
	for _, set := range discover.CommonSets() {
		log.Printf("known layout %s: GPIO %v", set.Name, set.Pins)
	}

	prober := discover.NewProber(conn, stdinConfirm)
	found, err := prober.Run(ctx)
	if err != nil {
		return asInterrupt(err)
	}

	if len(found) >= prober.Want {
		log.Printf("found relay pins: %v", found)
		log.Printf("test them with: relay-controller -pins %s -simple-test", joinPins(found))
	} else {
		log.Printf("the relay board may use uncommon pins or different wiring")
	}
	return nil
}

// stdinConfirm asks the operator whether the just-pulsed pin moved a relay.
func stdinConfirm(pin int) (bool, error) {
	fmt.Printf("Did GPIO %d control a relay? [y/N]: ", pin)
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return false, err
		}
		return false, errors.New("stdin closed")
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return strings.HasPrefix(answer, "y"), nil
}

func joinPins(pins []int) string {
	parts := make([]string, len(pins))
	for i, pin := range pins {
		parts[i] = strconv.Itoa(pin)
	}
	return strings.Join(parts, ",")
}

// runMonitor wires edges to toggles and keeps the process alive, feeding
// the tracker, the optional MQTT publisher and the optional status page.
func runMonitor(conn gpio.Conn, ctl *relay.Controller, cfg relay.Config, opts options) error {
	tracker := status.NewTracker(time.Now(), cfg.Channels, trackerConfig(opts))

	var publisher mqtt.Publisher
	var connStatus mqtt.ConnectionStatus
	if opts.broker != "" {
		real, err := mqtt.NewRealPublisher(opts.broker)
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		defer real.Close()
		publisher = real
		connStatus = real
	}

	// Edge callbacks arrive on the I/O goroutine; hand events to the
	// foreground loop through buffered channels instead of publishing
	// under the controller's lock.
	stateCh := make(chan relay.Event, 16)
	edgeCh := make(chan trigger.EdgeEvent, 16)

	ctl.OnChange(func(e relay.Event) {
		select {
		case stateCh <- e:
		default:
			log.Printf("state event dropped (queue full)")
		}
	})

	deb := trigger.NewDebouncer(opts.settle, opts.rearm)
	mon := trigger.NewMonitor(conn, ctl, deb)
	mon.OnEdge(func(e trigger.EdgeEvent) {
		select {
		case edgeCh <- e:
		default:
			log.Printf("edge event dropped (queue full)")
		}
	})
	if err := mon.Start(); err != nil {
		return err
	}

	if opts.httpAddr != "" {
		srv := web.New(opts.httpAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", opts.httpAddr)
	}

	if publisher != nil {
		event := mqtt.SystemEvent{Timestamp: time.Now(), Event: "STARTUP", Retained: true}
		if err := publisher.PublishSystem(event); err != nil {
			log.Printf("publish startup event: %v", err)
		}
	}

	for _, ch := range cfg.Channels {
		if ch.Trigger != nil {
			log.Printf("ground GPIO %d to toggle %s (GPIO %d)", *ch.Trigger, ch.Name, ch.Output)
		}
	}
	log.Printf("monitoring (Ctrl+C to exit)")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var tick <-chan time.Time
	if opts.heartbeat > 0 {
		ticker := time.NewTicker(opts.heartbeat)
		defer ticker.Stop()
		tick = ticker.C
	}

	return monitorLoop(tracker, publisher, connStatus, stateCh, edgeCh, tick, sigCh)
}

// monitorLoop is the foreground loop of monitor mode. It only waits: all
// relay work happens in edge callbacks and their scheduled settle checks.
func monitorLoop(tracker *status.Tracker, publisher mqtt.Publisher, connStatus mqtt.ConnectionStatus, stateCh <-chan relay.Event, edgeCh <-chan trigger.EdgeEvent, tick <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			if publisher != nil {
				event := mqtt.SystemEvent{
					Timestamp: time.Now(),
					Event:     "SHUTDOWN",
					Reason:    signalName(s),
					Retained:  true,
				}
				if err := publisher.PublishSystem(event); err != nil {
					log.Printf("publish shutdown event: %v", err)
				}
			}
			return nil

		case e := <-stateCh:
			tracker.SetChannel(e.Channel, e.On)
			if publisher != nil {
				if err := publisher.PublishState(e); err != nil {
					log.Printf("publish state: %v", err)
				}
			}

		case e := <-edgeCh:
			tracker.CountEdge(e.Result)
			if publisher != nil {
				if err := publisher.PublishEdge(e); err != nil {
					log.Printf("publish edge: %v", err)
				}
			}

		case <-tick:
			if connStatus != nil {
				tracker.SetMQTTConnected(connStatus.IsConnected())
			}
			snap := tracker.Snapshot()
			log.Printf("status: %s (confirmed=%d bounced=%d rearmed=%d)",
				statusLine(snap), snap.Counts.Confirmed, snap.Counts.Bounced, snap.Counts.Rearmed)
			if publisher != nil {
				event := mqtt.SystemEvent{Timestamp: snap.Now, Event: "HEARTBEAT"}
				if err := publisher.PublishSystem(event); err != nil {
					log.Printf("publish heartbeat: %v", err)
				}
			}
		}
	}
}

func statusLine(snap status.Snapshot) string {
	parts := make([]string, len(snap.Channels))
	for i, ch := range snap.Channels {
		state := "OFF"
		if ch.On {
			state = "ON"
		}
		parts[i] = fmt.Sprintf("%s=%s", ch.Name, state)
	}
	return strings.Join(parts, " ")
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}
