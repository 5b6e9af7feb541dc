package fixtures

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/owwaedenswil/device-test-harness/transport"
	"github.com/owwaedenswil/device-test-harness/wire"
)

func newLoopbackDevice(t *testing.T, echo *EchoServerFixture, received chan []byte) *DeviceFixture {
	t.Helper()
	return &DeviceFixture{
		Dial: func() (io.ReadWriteCloser, error) {
			conn, err := net.Dial("tcp", echo.Addr())
			if err != nil {
				return nil, err
			}
			return transport.BoundedConn(conn, time.Millisecond*20), nil
		},
		Encoder:    wire.Encode,
		NewDecoder: func() transport.Decoder { return wire.NewDecoder() },
		Address:    'R',
		OnPacket: func(payload []byte) {
			received <- append([]byte(nil), payload...)
		},
	}
}

func TestDeviceFixtureLoopback(t *testing.T) {
	echo := &EchoServerFixture{}
	require.NoError(t, echo.Start())
	defer echo.Stop()

	received := make(chan []byte, 10)
	device := newLoopbackDevice(t, echo, received)
	require.NoError(t, device.Start())
	defer device.Stop()

	require.NoError(t, device.Send([]byte("roundtrip")))
	select {
	case got := <-received:
		assert.Equal(t, "roundtrip", string(got))
	case <-time.After(time.Second * 5):
		require.Fail(t, "frame never came back")
	}
}

func TestDeviceFixtureLifecycle(t *testing.T) {
	echo := &EchoServerFixture{}
	require.NoError(t, echo.Start())
	defer echo.Stop()

	received := make(chan []byte, 10)
	device := newLoopbackDevice(t, echo, received)

	require.NoError(t, device.Stop(), "stop before start is a no-op")
	require.NoError(t, device.Start())
	assert.Error(t, device.Start())
	require.NoError(t, device.Stop())
	require.NoError(t, device.Stop())

	// Restart gets a fresh decoder and connection.
	require.NoError(t, device.Start())
	require.NoError(t, device.Send([]byte("again")))
	select {
	case got := <-received:
		assert.Equal(t, "again", string(got))
	case <-time.After(time.Second * 5):
		require.Fail(t, "frame never came back after restart")
	}
	require.NoError(t, device.Stop())
}

func TestDeviceFixtureStartFailsWhenDialFails(t *testing.T) {
	device := &DeviceFixture{
		Dial: func() (io.ReadWriteCloser, error) {
			return net.Dial("tcp", "127.0.0.1:1") // nothing listens here
		},
		Encoder:    wire.Encode,
		NewDecoder: func() transport.Decoder { return wire.NewDecoder() },
		Address:    'R',
		OnPacket:   func([]byte) {},
	}
	assert.Error(t, device.Start())
}
