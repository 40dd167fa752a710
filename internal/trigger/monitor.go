package trigger

import (
	"fmt"
	"log"
	"time"

	"github.com/sweeney/relay-controller/internal/gpio"
	"github.com/sweeney/relay-controller/internal/relay"
)

// Result classifies what became of a falling edge.
type Result string

const (
	// ResultConfirmed means the settle re-check saw the input still low
	// and the bound relay was toggled.
	ResultConfirmed Result = "CONFIRMED"
	// ResultBounce means the input recovered before the settle delay.
	ResultBounce Result = "BOUNCE"
	// ResultRearm means the edge fell inside the re-arm window (or a
	// settle check was already pending) and was discarded.
	ResultRearm Result = "REARM"
)

// EdgeEvent records the outcome of one falling edge on a trigger input.
type EdgeEvent struct {
	Timestamp time.Time
	Trigger   int
	Channel   int
	Result    Result
	On        bool // relay state after a confirmed toggle
}

// Monitor wires trigger-input edges to relay toggles. Edge callbacks fire
// on the I/O layer's goroutine; the settle re-check is a scheduled
// callback, never a blocking sleep.
type Monitor struct {
	conn gpio.Conn
	ctl  *relay.Controller
	deb  *Debouncer

	now      func() time.Time
	schedule func(time.Duration, func())
	onEdge   func(EdgeEvent)
}

// NewMonitor creates a Monitor over the controller's trigger channels.
func NewMonitor(conn gpio.Conn, ctl *relay.Controller, deb *Debouncer) *Monitor {
	return &Monitor{
		conn: conn,
		ctl:  ctl,
		deb:  deb,
		now:  time.Now,
		schedule: func(d time.Duration, fn func()) {
			time.AfterFunc(d, fn)
		},
	}
}

// OnEdge registers a hook called for every classified edge. Must be set
// before Start.
func (m *Monitor) OnEdge(fn func(EdgeEvent)) {
	m.onEdge = fn
}

// Start registers falling-edge handlers for every trigger-driven channel.
func (m *Monitor) Start() error {
	n := 0
	for _, ch := range m.ctl.Channels() {
		if ch.Trigger == nil {
			continue
		}
		if err := m.conn.OnFallingEdge(*ch.Trigger, m.HandleEdge); err != nil {
			return fmt.Errorf("watch trigger GPIO %d: %w", *ch.Trigger, err)
		}
		n++
	}
	log.Printf("monitoring %d trigger input(s), settle=%v rearm=%v", n, m.deb.SettleDelay(), m.deb.RearmWindow())
	return nil
}

// HandleEdge is the debounced edge-handling entry point for one falling
// edge on a trigger input.
func (m *Monitor) HandleEdge(id int) {
	now := m.now()
	idx, ok := m.ctl.ChannelByTrigger(id)
	if !ok {
		log.Printf("edge on unbound GPIO %d ignored", id)
		return
	}
	if !m.deb.Edge(id, now) {
		log.Printf("edge on GPIO %d discarded (re-arm)", id)
		m.emit(EdgeEvent{Timestamp: now, Trigger: id, Channel: idx, Result: ResultRearm})
		return
	}
	m.schedule(m.deb.SettleDelay(), func() {
		m.settle(id, idx)
	})
}

// settle re-reads the input after the settle delay and toggles the bound
// channel when the grounding condition persists.
func (m *Monitor) settle(id, idx int) {
	level, err := m.conn.Read(id)
	if err != nil {
		// Runtime I/O error: discard the edge, keep the monitor alive.
		log.Printf("re-read GPIO %d: %v", id, err)
		m.deb.Settle(id, false, m.now())
		return
	}

	now := m.now()
	if !m.deb.Settle(id, level == gpio.Low, now) {
		log.Printf("edge on GPIO %d discarded (bounce)", id)
		m.emit(EdgeEvent{Timestamp: now, Trigger: id, Channel: idx, Result: ResultBounce})
		return
	}

	log.Printf("GPIO %d triggered (grounded)", id)
	on, err := m.ctl.Toggle(idx)
	if err != nil {
		log.Printf("toggle channel %d: %v", idx, err)
		return
	}
	m.emit(EdgeEvent{Timestamp: now, Trigger: id, Channel: idx, Result: ResultConfirmed, On: on})
}

func (m *Monitor) emit(e EdgeEvent) {
	if m.onEdge != nil {
		m.onEdge(e)
	}
}

// SetClock overrides the time source and scheduler. Test hook.
func (m *Monitor) SetClock(now func() time.Time, schedule func(time.Duration, func())) {
	m.now = now
	m.schedule = schedule
}
