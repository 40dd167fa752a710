package relay

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sweeney/relay-controller/internal/gpio"
)

func newController(t *testing.T) (*Controller, *gpio.FakeConn) {
	t.Helper()
	conn := gpio.NewFakeConn()
	ctl, err := New(conn, DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, ctl)
	return ctl, conn
}

func TestNewDrivesOutputsOff(t *testing.T) {
	_, conn := newController(t)

	// Active-low: HIGH is de-energized.
	require.Equal(t, gpio.High, conn.OutputLevel(gpio.DefaultOutput1))
	require.Equal(t, gpio.High, conn.OutputLevel(gpio.DefaultOutput2))
}

func TestNewDuplicateOutput(t *testing.T) {
	conn := gpio.NewFakeConn()
	cfg := Config{Channels: []Channel{
		{Name: "a", Output: 4},
		{Name: "b", Output: 4},
	}}

	_, err := New(conn, cfg)
	require.Error(t, err)

	var cerr *ConfigError
	require.True(t, errors.As(err, &cerr))
	require.Equal(t, 4, cerr.Pin)
}

func TestNewTriggerOutputCollision(t *testing.T) {
	conn := gpio.NewFakeConn()
	pin := 17
	cfg := Config{Channels: []Channel{
		{Name: "a", Output: 4, Trigger: &pin},
		{Name: "b", Output: 17},
	}}

	_, err := New(conn, cfg)
	var cerr *ConfigError
	require.True(t, errors.As(err, &cerr))
}

func TestNewNoChannels(t *testing.T) {
	_, err := New(gpio.NewFakeConn(), Config{})
	var cerr *ConfigError
	require.True(t, errors.As(err, &cerr))
}

func TestNewReleasesOnConfigureFailure(t *testing.T) {
	conn := gpio.NewFakeConn()
	// Pre-claim the second output so setup fails partway through.
	require.NoError(t, conn.ConfigureOutput(gpio.DefaultOutput2, gpio.High))

	_, err := New(conn, DefaultConfig())
	require.Error(t, err)

	// The first output must not be left configured (and possibly energized).
	require.Equal(t, []int{gpio.DefaultOutput1}, conn.Released())
}

func TestSetOnOff(t *testing.T) {
	ctl, conn := newController(t)

	require.NoError(t, ctl.Set(0, true))
	on, err := ctl.State(0)
	require.NoError(t, err)
	require.True(t, on)
	require.Equal(t, gpio.Low, conn.OutputLevel(gpio.DefaultOutput1))

	require.NoError(t, ctl.Set(0, false))
	on, err = ctl.State(0)
	require.NoError(t, err)
	require.False(t, on)
	require.Equal(t, gpio.High, conn.OutputLevel(gpio.DefaultOutput1))
}

func TestSetIdempotent(t *testing.T) {
	ctl, conn := newController(t)

	require.NoError(t, ctl.Set(1, true))
	require.NoError(t, ctl.Set(1, true))

	on, _ := ctl.State(1)
	require.True(t, on)
	require.Equal(t, gpio.Low, conn.OutputLevel(gpio.DefaultOutput2))
}

func TestSetIndexOutOfRange(t *testing.T) {
	ctl, _ := newController(t)

	err := ctl.Set(2, true)
	require.ErrorIs(t, err, ErrChannelIndex)

	err = ctl.Set(-1, true)
	require.ErrorIs(t, err, ErrChannelIndex)

	_, err = ctl.Toggle(9)
	require.ErrorIs(t, err, ErrChannelIndex)

	_, err = ctl.State(9)
	require.ErrorIs(t, err, ErrChannelIndex)
}

func TestToggle(t *testing.T) {
	ctl, _ := newController(t)

	on, err := ctl.Toggle(0)
	require.NoError(t, err)
	require.True(t, on)

	on, err = ctl.Toggle(0)
	require.NoError(t, err)
	require.False(t, on)
}

func TestAllOnAllOff(t *testing.T) {
	ctl, conn := newController(t)

	require.NoError(t, ctl.AllOn())
	require.Equal(t, []bool{true, true}, ctl.States())

	require.NoError(t, ctl.AllOff())
	require.Equal(t, []bool{false, false}, ctl.States())
	require.Equal(t, gpio.High, conn.OutputLevel(gpio.DefaultOutput1))
	require.Equal(t, gpio.High, conn.OutputLevel(gpio.DefaultOutput2))

	// AllOff from any prior state yields all false.
	require.NoError(t, ctl.Set(1, true))
	require.NoError(t, ctl.AllOff())
	require.Equal(t, []bool{false, false}, ctl.States())
}

func TestAllOffIsolatesFailedChannel(t *testing.T) {
	ctl, conn := newController(t)
	require.NoError(t, ctl.AllOn())

	// Channel 0's output fails; channel 1 must still be de-energized.
	conn.WriteError = errors.New("simulated write failure")
	conn.FailPins = map[int]bool{gpio.DefaultOutput1: true}

	err := ctl.AllOff()
	require.Error(t, err)
	require.Equal(t, gpio.High, conn.OutputLevel(gpio.DefaultOutput2))

	on, _ := ctl.State(1)
	require.False(t, on)
}

func TestShutdown(t *testing.T) {
	ctl, conn := newController(t)

	require.NoError(t, ctl.Set(0, true))

	require.NoError(t, ctl.Shutdown())
	require.Equal(t, []bool{false, false}, ctl.States())
	require.Equal(t, 4, len(conn.Released())) // 2 outputs + 2 triggers

	// Second call is a no-op producing no error.
	require.NoError(t, ctl.Shutdown())
	require.Equal(t, 4, len(conn.Released()))

	// Commands after shutdown are rejected.
	require.ErrorIs(t, ctl.Set(0, true), ErrShutdown)
}

func TestShutdownContinuesPastFailedChannel(t *testing.T) {
	ctl, conn := newController(t)
	require.NoError(t, ctl.AllOn())

	conn.WriteError = errors.New("simulated write failure")
	conn.FailPins = map[int]bool{gpio.DefaultOutput1: true}

	err := ctl.Shutdown()
	require.Error(t, err)

	// One bad channel must not prevent the rest from being de-energized.
	require.Equal(t, gpio.High, conn.OutputLevel(gpio.DefaultOutput2))
}

func TestChannelByTrigger(t *testing.T) {
	ctl, _ := newController(t)

	i, ok := ctl.ChannelByTrigger(gpio.DefaultTrigger1)
	require.True(t, ok)
	require.Equal(t, 0, i)

	i, ok = ctl.ChannelByTrigger(gpio.DefaultTrigger2)
	require.True(t, ok)
	require.Equal(t, 1, i)

	_, ok = ctl.ChannelByTrigger(99)
	require.False(t, ok)
}

func TestActiveHigh(t *testing.T) {
	conn := gpio.NewFakeConn()
	cfg := Config{
		ActiveHigh: true,
		Channels:   []Channel{{Name: "a", Output: 4}},
	}
	ctl, err := New(conn, cfg)
	require.NoError(t, err)

	// Active-high boards invert the convention.
	require.Equal(t, gpio.Low, conn.OutputLevel(4))
	require.NoError(t, ctl.Set(0, true))
	require.Equal(t, gpio.High, conn.OutputLevel(4))
}
