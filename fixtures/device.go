package fixtures

import (
	"errors"
	"io"

	"github.com/owwaedenswil/device-test-harness/logging"
	"github.com/owwaedenswil/device-test-harness/transport"
)

// DeviceFixture owns the framed connection to a device under test. Start
// dials the byte stream (a USB serial port, or a TCP socket in loopback
// setups) and launches a FrameTransport over it; Stop shuts the transport
// down and closes the stream.
//
// Getting the device into a state where it can be dialed — flashing
// firmware, waiting for enumeration — is the dial function's concern, not
// this fixture's.
type DeviceFixture struct {
	// Dial opens the byte stream. The returned stream must support bounded
	// reads (see transport.Options.Conn).
	Dial func() (io.ReadWriteCloser, error)

	Encoder transport.Encoder

	// NewDecoder builds a fresh decoder per Start, since decoders are
	// stateful and a restarted fixture must not inherit a partial frame.
	NewDecoder func() transport.Decoder

	// Address is the frame sub-channel used for both directions.
	Address int

	// OnPacket receives the payload of each accepted inbound frame.
	OnPacket func(payload []byte)

	// OnReadError, if set, is told when the stream fails mid-run.
	OnReadError func(err error)

	Logger logging.Logger

	conn io.ReadWriteCloser
	tr   *transport.FrameTransport
}

func (f *DeviceFixture) Start() error {
	if f.tr != nil {
		return errors.New("device fixture already started")
	}
	if f.Logger == nil {
		f.Logger = logging.NullLogger()
	}
	conn, err := f.Dial()
	if err != nil {
		return err
	}
	tr := transport.New(transport.Options{
		Conn:        conn,
		Encoder:     f.Encoder,
		Decoder:     f.NewDecoder(),
		Address:     f.Address,
		OnPacket:    f.OnPacket,
		OnReadError: f.OnReadError,
		Logger:      f.Logger,
	})
	if err := tr.Start(); err != nil {
		conn.Close()
		return err
	}
	f.conn = conn
	f.tr = tr
	f.Logger.Printf("device fixture started")
	return nil
}

func (f *DeviceFixture) Stop() error {
	if f.tr == nil {
		return nil
	}
	tr, conn := f.tr, f.conn
	f.tr, f.conn = nil, nil
	tr.Stop()
	err := conn.Close()
	f.Logger.Printf("device fixture stopped")
	return err
}

// Send writes one framed payload to the device. Panics if the fixture is
// not started.
func (f *DeviceFixture) Send(payload []byte) error {
	if f.tr == nil {
		panic("device fixture not started")
	}
	return f.tr.Send(payload)
}
