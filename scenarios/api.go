// Package scenarios contains the integration scenarios themselves and
// their supporting API.
//
// Harness infrastructure that is not specific to this device domain, such
// as fixture orchestration and the scenario context, is in the lower-level
// framework package.
package scenarios

import (
	"net"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/owwaedenswil/device-test-harness/framework"
)

const defaultWaitTimeout = time.Second * 5

// DefaultFrameAddress is the sub-channel used for framed exchanges, 'R' by
// convention on the shared device stream.
const DefaultFrameAddress = 'R'

// Config carries the run-wide settings the scenarios need.
type Config struct {
	// SerialPort is the path of a TTY connected to a device running the
	// loopback firmware. When empty, on-hardware scenarios are skipped.
	SerialPort string

	// FrameAddress is the sub-channel for framed exchanges.
	FrameAddress int

	// WaitTimeout bounds every blocking wait in the scenarios.
	WaitTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.FrameAddress == 0 {
		c.FrameAddress = DefaultFrameAddress
	}
	if c.WaitTimeout == 0 {
		c.WaitTimeout = defaultWaitTimeout
	}
	return c
}

// T is the scenario context, wrapping framework.Context with helpers for
// this domain.
type T struct {
	*framework.Context
	config Config
}

func (t *T) Run(name string, action func(*T)) {
	t.Context.Run(name, func(c *framework.Context) {
		action(&T{Context: c, config: t.config})
	})
}

// StartHarness starts all fixtures and fails the scenario on error. The
// caller is expected to `defer h.Stop()` immediately after.
func (t *T) StartHarness(h *framework.TestHarness) {
	require.NoError(t, h.Start())
}

// DialTCP connects to a fixture's TCP address, failing the scenario on
// error.
func (t *T) DialTCP(addr string) net.Conn {
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err, "could not connect to %s", addr)
	return conn
}

// ReadReply reads exactly n bytes from conn, bounded by the configured wait
// timeout.
func (t *T) ReadReply(conn net.Conn, n int) []byte {
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(t.config.WaitTimeout)))
	buf := make([]byte, n)
	total := 0
	for total < n {
		read, err := conn.Read(buf[total:])
		total += read
		require.NoError(t, err, "reading reply (got %d of %d bytes)", total, n)
	}
	return buf
}
