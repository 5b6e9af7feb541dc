// Package transport moves framed messages over a single unreliable byte
// stream, such as a USB serial link to a device under test.
//
// The transport itself does not know the wire encoding: the encoder, the
// incremental decoder, and the packet handler are all injected. Its job is
// the plumbing around them: a dedicated goroutine that reads available
// bytes, feeds them through the decoder, and dispatches decoded frames that
// match the configured address, plus serialized synchronous writes and a
// shutdown whose completion guarantees no further handler calls.
//
// Delivery is best-effort to a single consumer. There is no persistence, no
// fan-out, and no flow control beyond what the underlying stream provides.
package transport
