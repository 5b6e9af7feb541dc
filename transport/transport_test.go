package transport_test

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/owwaedenswil/device-test-harness/logging"
	"github.com/owwaedenswil/device-test-harness/transport"
	"github.com/owwaedenswil/device-test-harness/wire"
)

type timeoutError struct{}

func (timeoutError) Error() string { return "read timed out" }
func (timeoutError) Timeout() bool { return true }

// scriptedConn is an in-memory stand-in for a serial link. Reads drain
// queued chunks with a bounded wait, like a serial port opened with a read
// timeout; writes are captured for inspection.
type scriptedConn struct {
	chunks   chan []byte
	readErr  chan error
	writes   bytes.Buffer
	writeErr error
	lock     sync.Mutex
}

func newScriptedConn() *scriptedConn {
	return &scriptedConn{
		chunks:  make(chan []byte, 100),
		readErr: make(chan error, 1),
	}
}

func (c *scriptedConn) Read(p []byte) (int, error) {
	select {
	case chunk := <-c.chunks:
		return copy(p, chunk), nil
	case err := <-c.readErr:
		return 0, err
	case <-time.After(time.Millisecond * 10):
		return 0, timeoutError{}
	}
}

func (c *scriptedConn) Write(p []byte) (int, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.writeErr != nil {
		return 0, c.writeErr
	}
	return c.writes.Write(p)
}

func (c *scriptedConn) queueBytewise(data []byte) {
	for _, b := range data {
		c.chunks <- []byte{b}
	}
}

func (c *scriptedConn) written() []byte {
	c.lock.Lock()
	defer c.lock.Unlock()
	return append([]byte(nil), c.writes.Bytes()...)
}

const testAddress = 'R'

func newTestTransport(conn *scriptedConn, onPacket func([]byte), logger logging.Logger) *transport.FrameTransport {
	if logger == nil {
		logger = logging.NullLogger()
	}
	return transport.New(transport.Options{
		Conn:     conn,
		Encoder:  wire.Encode,
		Decoder:  wire.NewDecoder(),
		Address:  testAddress,
		OnPacket: onPacket,
		Logger:   logger,
	})
}

func collectPackets() (func([]byte), *[]string, *sync.Mutex) {
	var got []string
	var lock sync.Mutex
	return func(p []byte) {
		lock.Lock()
		got = append(got, string(p))
		lock.Unlock()
	}, &got, &lock
}

func awaitPackets(t *testing.T, got *[]string, lock *sync.Mutex, want int) []string {
	deadline := time.Now().Add(time.Second * 5)
	for {
		lock.Lock()
		if len(*got) >= want {
			ret := append([]string(nil), *got...)
			lock.Unlock()
			return ret
		}
		lock.Unlock()
		if time.Now().After(deadline) {
			require.Fail(t, "timed out waiting for packets")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestTransportDeliversMatchingFramesInOrder(t *testing.T) {
	conn := newScriptedConn()
	onPacket, got, lock := collectPackets()
	tr := newTestTransport(conn, onPacket, nil)
	require.NoError(t, tr.Start())
	defer tr.Stop()

	var stream []byte
	stream = append(stream, wire.Encode(testAddress, []byte("first"))...)
	stream = append(stream, wire.Encode('L', []byte("log line for another channel"))...)
	stream = append(stream, wire.Encode(testAddress, []byte("second"))...)
	stream = append(stream, wire.Encode(testAddress, []byte("third"))...)
	conn.queueBytewise(stream)

	packets := awaitPackets(t, got, lock, 3)
	assert.Equal(t, []string{"first", "second", "third"}, packets)
}

func TestTransportSurvivesCorruptFrame(t *testing.T) {
	conn := newScriptedConn()
	onPacket, got, lock := collectPackets()
	var captured logging.CapturingLogger
	tr := newTestTransport(conn, onPacket, &captured)
	require.NoError(t, tr.Start())
	defer tr.Stop()

	corrupt := wire.Encode(testAddress, []byte("broken"))
	corrupt[len(corrupt)-1] = 0x00 // clobber the end delimiter

	var stream []byte
	stream = append(stream, wire.Encode(testAddress, []byte("before"))...)
	stream = append(stream, corrupt...)
	stream = append(stream, wire.Encode(testAddress, []byte("after"))...)
	conn.queueBytewise(stream)

	packets := awaitPackets(t, got, lock, 2)
	assert.Equal(t, []string{"before", "after"}, packets)

	var sawDecodeError bool
	for _, m := range captured.Output() {
		if strings.Contains(m.Message, "decode error") {
			sawDecodeError = true
		}
	}
	assert.True(t, sawDecodeError, "expected a decode error to be logged")
}

func TestTransportRejectsSecondStart(t *testing.T) {
	tr := newTestTransport(newScriptedConn(), func([]byte) {}, nil)
	require.NoError(t, tr.Start())
	defer tr.Stop()
	assert.ErrorIs(t, tr.Start(), transport.ErrTransportStarted)
}

func TestTransportStopIsIdempotentAndSafeBeforeStart(t *testing.T) {
	tr := newTestTransport(newScriptedConn(), func([]byte) {}, nil)
	tr.Stop() // never started; must not block

	tr = newTestTransport(newScriptedConn(), func([]byte) {}, nil)
	require.NoError(t, tr.Start())
	tr.Stop()
	tr.Stop()
}

func TestTransportNoHandlerCallsAfterStop(t *testing.T) {
	conn := newScriptedConn()
	onPacket, got, lock := collectPackets()
	tr := newTestTransport(conn, onPacket, nil)
	require.NoError(t, tr.Start())

	conn.queueBytewise(wire.Encode(testAddress, []byte("delivered")))
	awaitPackets(t, got, lock, 1)

	tr.Stop()
	countAtStop := len(awaitPackets(t, got, lock, 1))

	conn.queueBytewise(wire.Encode(testAddress, []byte("too late")))
	time.Sleep(time.Millisecond * 50)

	lock.Lock()
	assert.Equal(t, countAtStop, len(*got))
	lock.Unlock()
}

func TestTransportReportsReadErrorAndExits(t *testing.T) {
	conn := newScriptedConn()
	readErrs := make(chan error, 1)
	onPacket, got, lock := collectPackets()
	tr := transport.New(transport.Options{
		Conn:        conn,
		Encoder:     wire.Encode,
		Decoder:     wire.NewDecoder(),
		Address:     testAddress,
		OnPacket:    onPacket,
		OnReadError: func(err error) { readErrs <- err },
	})
	require.NoError(t, tr.Start())
	defer tr.Stop()

	induced := errors.New("stream closed")
	conn.readErr <- induced

	select {
	case err := <-readErrs:
		assert.ErrorIs(t, err, induced)
	case <-time.After(time.Second * 5):
		require.Fail(t, "read error was never reported")
	}

	// The loop has exited; data queued now is never delivered.
	conn.queueBytewise(wire.Encode(testAddress, []byte("ignored")))
	time.Sleep(time.Millisecond * 50)
	lock.Lock()
	assert.Empty(t, *got)
	lock.Unlock()
}

func TestTransportSendWritesEncodedFrame(t *testing.T) {
	conn := newScriptedConn()
	tr := newTestTransport(conn, func([]byte) {}, nil)

	// Send works without Start; the writer path is independent of the
	// decode loop.
	require.NoError(t, tr.Send([]byte("payload")))
	assert.Equal(t, wire.Encode(testAddress, []byte("payload")), conn.written())
}

func TestTransportConcurrentSendsDoNotInterleave(t *testing.T) {
	conn := newScriptedConn()
	tr := newTestTransport(conn, func([]byte) {}, nil)

	const senders = 20
	var wg sync.WaitGroup
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, tr.Send([]byte(fmt.Sprintf("payload-%02d", i))))
		}(i)
	}
	wg.Wait()

	// If any two writes interleaved, the stream would not decode back into
	// exactly the frames that were sent.
	decoder := wire.NewDecoder()
	payloads := make(map[string]bool)
	for _, b := range conn.written() {
		frame, err := decoder.Feed(b)
		require.NoError(t, err)
		if frame != nil {
			require.Equal(t, int(testAddress), frame.Address)
			payloads[string(frame.Payload)] = true
		}
	}
	require.Len(t, payloads, senders)
	for i := 0; i < senders; i++ {
		assert.True(t, payloads[fmt.Sprintf("payload-%02d", i)], "missing payload %d", i)
	}
}

func TestTransportSendPropagatesWriteError(t *testing.T) {
	conn := newScriptedConn()
	conn.writeErr = errors.New("broken pipe")
	tr := newTestTransport(conn, func([]byte) {}, nil)
	assert.ErrorIs(t, tr.Send([]byte("payload")), conn.writeErr)
}
