// Package wire provides the reference framing used by the loopback
// scenarios and tests: a start delimiter, an address byte, a big-endian
// 16-bit payload length, the payload, and an end delimiter.
//
// It is deliberately minimal (no escaping, no checksum) and is not the
// production device encoding; the transport package takes its encoder and
// decoder by injection precisely so that the real encoding stays a
// collaborator. What this codec does share with the real one is the
// incremental contract: bytes go in one at a time, partial frames are
// buffered across reads, and a malformed frame yields a decode error after
// which the decoder hunts for the next start delimiter.
package wire

import (
	"fmt"

	"github.com/owwaedenswil/device-test-harness/transport"
)

const delimiter = 0x7e

// MaxPayload bounds the declared payload length of a frame. A length above
// this is treated as corruption rather than buffered indefinitely.
const MaxPayload = 1024

// Encode renders a single frame. It satisfies transport.Encoder.
//
// A payload longer than MaxPayload cannot be represented in a frame the
// decoder will accept, so Encode panics rather than emit one.
func Encode(address int, payload []byte) []byte {
	if len(payload) > MaxPayload {
		panic(fmt.Sprintf("payload length %d exceeds maximum %d", len(payload), MaxPayload))
	}
	out := make([]byte, 0, len(payload)+5)
	out = append(out, delimiter, byte(address), byte(len(payload)>>8), byte(len(payload)))
	out = append(out, payload...)
	return append(out, delimiter)
}

type decodeState int

const (
	stateHunt decodeState = iota
	stateAddress
	stateLenHigh
	stateLenLow
	statePayload
	stateEnd
)

// Decoder reassembles frames byte by byte. It satisfies transport.Decoder.
// The zero value is not usable; call NewDecoder.
type Decoder struct {
	state   decodeState
	address int
	length  int
	payload []byte
}

func NewDecoder() *Decoder {
	return &Decoder{state: stateHunt}
}

// Feed consumes one byte. It returns a frame when the byte completes one,
// an error when the byte reveals a malformed frame, and (nil, nil)
// otherwise. After an error the decoder resynchronizes on the next start
// delimiter.
func (d *Decoder) Feed(b byte) (*transport.Frame, error) {
	switch d.state {
	case stateHunt:
		if b == delimiter {
			d.state = stateAddress
		}
	case stateAddress:
		d.address = int(b)
		d.state = stateLenHigh
	case stateLenHigh:
		d.length = int(b) << 8
		d.state = stateLenLow
	case stateLenLow:
		d.length |= int(b)
		if d.length > MaxPayload {
			d.state = stateHunt
			return nil, fmt.Errorf("declared payload length %d exceeds maximum %d", d.length, MaxPayload)
		}
		d.payload = make([]byte, 0, d.length)
		if d.length == 0 {
			d.state = stateEnd
		} else {
			d.state = statePayload
		}
	case statePayload:
		d.payload = append(d.payload, b)
		if len(d.payload) == d.length {
			d.state = stateEnd
		}
	case stateEnd:
		d.state = stateHunt
		if b != delimiter {
			return nil, fmt.Errorf("frame not terminated by delimiter (got 0x%02x)", b)
		}
		return &transport.Frame{Address: d.address, Payload: d.payload}, nil
	}
	return nil, nil
}
