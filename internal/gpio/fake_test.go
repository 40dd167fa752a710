package gpio

import (
	"errors"
	"testing"
)

func TestFakeConnOutput(t *testing.T) {
	f := NewFakeConn()

	if err := f.ConfigureOutput(4, High); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := f.OutputLevel(4); got != High {
		t.Errorf("initial level: got %v, want HIGH", got)
	}

	if err := f.Write(4, Low); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := f.OutputLevel(4); got != Low {
		t.Errorf("after write: got %v, want LOW", got)
	}
}

func TestFakeConnDoubleConfigure(t *testing.T) {
	f := NewFakeConn()

	if err := f.ConfigureOutput(4, High); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.ConfigureOutput(4, High); err == nil {
		t.Error("expected error configuring line twice")
	}
	if err := f.ConfigureInput(4, true); err == nil {
		t.Error("expected error configuring output line as input")
	}
}

func TestFakeConnWriteUnconfigured(t *testing.T) {
	f := NewFakeConn()

	if err := f.Write(4, Low); err == nil {
		t.Error("expected error writing unconfigured line")
	}
}

func TestFakeConnInputIdleLevel(t *testing.T) {
	f := NewFakeConn()

	if err := f.ConfigureInput(19, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Pull-up input idles high.
	level, err := f.Read(19)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if level != High {
		t.Errorf("pull-up idle level: got %v, want HIGH", level)
	}
}

func TestFakeConnFireEdge(t *testing.T) {
	f := NewFakeConn()

	if err := f.ConfigureInput(19, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var fired []int
	if err := f.OnFallingEdge(19, func(id int) { fired = append(fired, id) }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f.FireEdge(19)

	if len(fired) != 1 || fired[0] != 19 {
		t.Fatalf("handler calls: got %v, want [19]", fired)
	}

	// The edge leaves the line low until the test raises it again.
	level, _ := f.Read(19)
	if level != Low {
		t.Errorf("level after edge: got %v, want LOW", level)
	}
}

func TestFakeConnEdgeHandlerRequiresInput(t *testing.T) {
	f := NewFakeConn()

	if err := f.OnFallingEdge(19, func(int) {}); err == nil {
		t.Error("expected error registering handler on unconfigured line")
	}
}

func TestFakeConnRelease(t *testing.T) {
	f := NewFakeConn()

	f.ConfigureOutput(4, High)
	f.ConfigureInput(19, true)

	if err := f.Release(4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.Release(4); err != nil {
		t.Errorf("second release should be a no-op, got %v", err)
	}

	if _, err := f.Read(4); err == nil {
		t.Error("expected error reading released line")
	}

	got := f.Released()
	if len(got) != 1 || got[0] != 4 {
		t.Errorf("released: got %v, want [4]", got)
	}
}

func TestFakeConnClose(t *testing.T) {
	f := NewFakeConn()

	f.ConfigureOutput(4, High)
	f.ConfigureOutput(17, High)

	if err := f.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !f.Closed {
		t.Error("should be closed after Close()")
	}
	if got := len(f.Released()); got != 2 {
		t.Errorf("released count: got %d, want 2", got)
	}
}

func TestFakeConnWriteError(t *testing.T) {
	f := NewFakeConn()
	f.ConfigureOutput(4, High)
	f.ConfigureOutput(17, High)

	f.WriteError = errors.New("simulated failure")
	f.FailPins = map[int]bool{4: true}

	if err := f.Write(4, Low); err == nil {
		t.Error("expected error on failing pin")
	}
	if err := f.Write(17, Low); err != nil {
		t.Errorf("pin 17 should not fail, got %v", err)
	}
}
