package scenarios

import (
	"io"
	"net"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/owwaedenswil/device-test-harness/fixtures"
	"github.com/owwaedenswil/device-test-harness/framework"
	"github.com/owwaedenswil/device-test-harness/transport"
	"github.com/owwaedenswil/device-test-harness/wire"
)

const loopbackReadTimeout = time.Millisecond * 100

// The loopback scenarios run the frame transport end to end without
// hardware: the device fixture dials the echo server, so every frame it
// sends comes straight back and must decode to the original payload.
//
// Registration order matters here and is part of what is being exercised:
// the echo server must be listening before the device fixture dials it.
func DoLoopbackScenarios(t *T) {
	t.Run("framed payloads round trip in order", func(t *T) {
		echo := &fixtures.EchoServerFixture{Logger: t.DebugLogger()}
		received := make(chan []byte, 16)
		device := &fixtures.DeviceFixture{
			Dial: func() (io.ReadWriteCloser, error) {
				conn, err := net.Dial("tcp", echo.Addr())
				if err != nil {
					return nil, err
				}
				return transport.BoundedConn(conn, loopbackReadTimeout), nil
			},
			Encoder:    wire.Encode,
			NewDecoder: func() transport.Decoder { return wire.NewDecoder() },
			Address:    t.config.FrameAddress,
			OnPacket: func(payload []byte) {
				received <- append([]byte(nil), payload...)
			},
			Logger: t.DebugLogger(),
		}

		h := framework.NewTestHarness(t.DebugLogger())
		require.NoError(t, h.AddFixture("echo", echo))
		require.NoError(t, h.AddFixture("device", device))
		t.StartHarness(h)
		defer h.Stop()

		payloads := []string{"status?", "blink 3", "version"}
		for _, p := range payloads {
			require.NoError(t, device.Send([]byte(p)))
		}
		for _, expected := range payloads {
			select {
			case got := <-received:
				assert.Equal(t, expected, string(got))
			case <-time.After(t.config.WaitTimeout):
				require.Fail(t, "timed out waiting for looped-back frame", "expected %q", expected)
			}
		}
	})

	t.Run("no packets are delivered after harness stop", func(t *T) {
		echo := &fixtures.EchoServerFixture{Logger: t.DebugLogger()}
		received := make(chan []byte, 16)
		device := &fixtures.DeviceFixture{
			Dial: func() (io.ReadWriteCloser, error) {
				conn, err := net.Dial("tcp", echo.Addr())
				if err != nil {
					return nil, err
				}
				return transport.BoundedConn(conn, loopbackReadTimeout), nil
			},
			Encoder:    wire.Encode,
			NewDecoder: func() transport.Decoder { return wire.NewDecoder() },
			Address:    t.config.FrameAddress,
			OnPacket: func(payload []byte) {
				received <- append([]byte(nil), payload...)
			},
			Logger: t.DebugLogger(),
		}

		h := framework.NewTestHarness(t.DebugLogger())
		require.NoError(t, h.AddFixture("echo", echo))
		require.NoError(t, h.AddFixture("device", device))
		t.StartHarness(h)

		require.NoError(t, device.Send([]byte("last one")))
		select {
		case <-received:
		case <-time.After(t.config.WaitTimeout):
			require.Fail(t, "timed out waiting for looped-back frame")
		}

		h.Stop()
		select {
		case p := <-received:
			require.Fail(t, "got a packet after Stop returned", "payload %q", p)
		case <-time.After(loopbackReadTimeout * 3):
		}
	})
}
