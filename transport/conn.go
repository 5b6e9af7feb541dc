package transport

import (
	"io"
	"net"
	"time"
)

type boundedConn struct {
	net.Conn
	timeout time.Duration
}

func (c boundedConn) Read(p []byte) (int, error) {
	if err := c.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Read(p)
}

// BoundedConn wraps a net.Conn so that every Read is bounded by the given
// timeout. Reads that hit the deadline return a timeout error, which the
// decode loop treats as "no data yet". This makes an ordinary TCP
// connection satisfy the Options.Conn contract; serial port handles opened
// with a read timeout satisfy it natively.
func BoundedConn(conn net.Conn, timeout time.Duration) io.ReadWriteCloser {
	return boundedConn{Conn: conn, timeout: timeout}
}
