package transport

import (
	"errors"
	"io"
	"sync"

	"github.com/owwaedenswil/device-test-harness/logging"
)

// ErrTransportStarted is returned by Start when the transport was already
// started. A transport cannot be restarted; create a new one instead.
var ErrTransportStarted = errors.New("frame transport already started")

const defaultReadBufferSize = 4096

// Frame is one addressed unit extracted from the continuous byte stream.
// The address identifies a logical sub-channel on the shared link.
type Frame struct {
	Address int
	Payload []byte
}

// Encoder produces the wire encoding of a payload addressed to a
// sub-channel. The actual encoding (delimiting, escaping, checksums) is the
// collaborator's concern.
type Encoder func(address int, payload []byte) []byte

// Decoder reassembles frames from the byte stream, one byte at a time. Feed
// returns a completed frame, an error for a malformed frame, or (nil, nil)
// when more bytes are needed. Implementations buffer partial frames across
// calls and are expected to resynchronize after an error.
type Decoder interface {
	Feed(b byte) (*Frame, error)
}

// Options configures a FrameTransport.
type Options struct {
	// Conn is the byte stream the transport reads from and writes to.
	// Reads must be bounded: either return (0, nil) when no data arrived
	// within the source's read timeout (serial port style), or return an
	// error whose Timeout() method reports true (net.Conn deadline style).
	// An unbounded blocking Read would delay Stop indefinitely.
	Conn io.ReadWriter

	Encoder Encoder
	Decoder Decoder

	// Address is the sub-channel this transport sends on and accepts
	// inbound frames for. Frames decoded with any other address are
	// dropped with a debug note.
	Address int

	// OnPacket is called once per accepted frame, on the decode loop's own
	// goroutine, in the order frames were decoded. It must be fast or hand
	// off internally; the transport does no queuing of its own.
	OnPacket func(payload []byte)

	// OnReadError, if set, is called once when a read error terminates the
	// decode loop. It is not called when the loop exits because of Stop.
	OnReadError func(err error)

	Logger logging.Logger

	// ReadBufferSize overrides the default read chunk size.
	ReadBufferSize int
}

// FrameTransport exchanges framed messages over an unreliable byte stream.
// A background goroutine reads, decodes, and dispatches inbound frames so
// that reads never block the caller; Send encodes and writes synchronously.
type FrameTransport struct {
	conn        io.ReadWriter
	encode      Encoder
	decoder     Decoder
	address     int
	onPacket    func([]byte)
	onReadError func(error)
	logger      logging.Logger
	bufSize     int

	writeLock sync.Mutex

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	started  bool
	lock     sync.Mutex
}

func New(opts Options) *FrameTransport {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NullLogger()
	}
	bufSize := opts.ReadBufferSize
	if bufSize <= 0 {
		bufSize = defaultReadBufferSize
	}
	return &FrameTransport{
		conn:        opts.Conn,
		encode:      opts.Encoder,
		decoder:     opts.Decoder,
		address:     opts.Address,
		onPacket:    opts.OnPacket,
		onReadError: opts.OnReadError,
		logger:      logger,
		bufSize:     bufSize,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Start launches the background read-decode-dispatch loop. Starting twice
// returns ErrTransportStarted.
func (t *FrameTransport) Start() error {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.started {
		return ErrTransportStarted
	}
	t.started = true
	go t.readLoop()
	return nil
}

// Send encodes payload into a frame on this transport's address and writes
// it to the stream. Concurrent Send calls are serialized so partial writes
// from different callers never interleave. A write error is returned to the
// caller.
func (t *FrameTransport) Send(payload []byte) error {
	data := t.encode(t.address, payload)
	t.writeLock.Lock()
	defer t.writeLock.Unlock()
	_, err := t.conn.Write(data)
	return err
}

// Stop requests cancellation of the decode loop and blocks until the loop
// has exited: once Stop returns, no further OnPacket calls will occur. Stop
// is idempotent, and a Stop on a never-started transport returns
// immediately.
func (t *FrameTransport) Stop() {
	t.lock.Lock()
	started := t.started
	t.lock.Unlock()

	t.stopOnce.Do(func() { close(t.stop) })
	if started {
		<-t.done
	}
}

func (t *FrameTransport) readLoop() {
	defer close(t.done)
	buf := make([]byte, t.bufSize)
	for {
		select {
		case <-t.stop:
			return
		default:
		}

		n, err := t.conn.Read(buf)
		for _, b := range buf[:n] {
			frame, decodeErr := t.decoder.Feed(b)
			if decodeErr != nil {
				// The decoder resynchronizes on subsequent bytes.
				t.logger.Printf("frame decode error: %s", decodeErr)
				continue
			}
			if frame == nil {
				continue
			}
			if frame.Address != t.address {
				t.logger.Printf("ignoring frame for address %d", frame.Address)
				continue
			}
			select {
			case <-t.stop:
				return
			default:
			}
			t.onPacket(frame.Payload)
		}
		if err != nil {
			if isTimeout(err) {
				continue
			}
			select {
			case <-t.stop:
				// A Stop that closed the underlying stream surfaces here
				// as a read error; not worth reporting.
			default:
				t.logger.Printf("stream read error: %s", err)
				if t.onReadError != nil {
					t.onReadError(err)
				}
			}
			return
		}
	}
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
