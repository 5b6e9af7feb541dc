package scenarios

import (
	"io"
	"os"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/owwaedenswil/device-test-harness/fixtures"
	"github.com/owwaedenswil/device-test-harness/framework"
	"github.com/owwaedenswil/device-test-harness/transport"
	"github.com/owwaedenswil/device-test-harness/wire"
)

const serialReadTimeout = time.Millisecond * 100

type boundedFile struct {
	*os.File
	timeout time.Duration
}

func (f boundedFile) Read(p []byte) (int, error) {
	if err := f.SetReadDeadline(time.Now().Add(f.timeout)); err != nil {
		return 0, err
	}
	return f.File.Read(p)
}

// DoSerialScenarios runs against a real device on the configured TTY. The
// device must be running the loopback test firmware, which echoes any frame
// on the configured address back unchanged. The port is expected to be
// configured (baud rate etc.) before the run; the harness only opens it.
func DoSerialScenarios(t *T) {
	t.Run("device echoes a framed payload", func(t *T) {
		if t.config.SerialPort == "" {
			t.SkipWithReason("no serial device configured")
		}

		received := make(chan []byte, 16)
		device := &fixtures.DeviceFixture{
			Dial: func() (io.ReadWriteCloser, error) {
				f, err := os.OpenFile(t.config.SerialPort, os.O_RDWR, 0)
				if err != nil {
					return nil, err
				}
				return boundedFile{File: f, timeout: serialReadTimeout}, nil
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
		require.NoError(t, h.AddFixture("device", device))
		t.StartHarness(h)
		defer h.Stop()

		payload := []byte("loopback ping")
		require.NoError(t, device.Send(payload))
		select {
		case got := <-received:
			assert.Equal(t, payload, got)
		case <-time.After(t.config.WaitTimeout):
			require.Fail(t, "device did not echo the frame",
				"is the loopback firmware flashed and the port %q correct?", t.config.SerialPort)
		}
	})
}
