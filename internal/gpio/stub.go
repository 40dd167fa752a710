//go:build !linux

package gpio

import "errors"

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// RealConn is not available on non-Linux platforms.
type RealConn struct{}

// NewRealConn returns an error on non-Linux platforms.
func NewRealConn(chipName string) (*RealConn, error) {
	return nil, errUnsupported
}

func (c *RealConn) ConfigureOutput(id int, initial Level) error { return errUnsupported }

func (c *RealConn) ConfigureInput(id int, pullUp bool) error { return errUnsupported }

func (c *RealConn) Write(id int, level Level) error { return errUnsupported }

func (c *RealConn) Read(id int) (Level, error) { return Low, errUnsupported }

func (c *RealConn) OnFallingEdge(id int, fn EdgeHandler) error { return errUnsupported }

func (c *RealConn) Release(id int) error { return nil }

func (c *RealConn) Close() error { return nil }
