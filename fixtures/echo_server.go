package fixtures

import (
	"errors"
	"net"
	"sync"

	"github.com/owwaedenswil/device-test-harness/logging"
)

const readChunkSize = 1024

// EchoServerFixture is a TCP server that echoes all received data back to
// the sender. It stands in for a remote peer when testing client-side
// stream code end to end.
type EchoServerFixture struct {
	BindAddr string // defaults to 127.0.0.1:0
	Logger   logging.Logger

	listener net.Listener
	conns    map[net.Conn]struct{}
	wg       sync.WaitGroup
	lock     sync.Mutex
}

func (f *EchoServerFixture) Start() error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.listener != nil {
		return errors.New("echo server already started")
	}
	if f.Logger == nil {
		f.Logger = logging.NullLogger()
	}
	bindAddr := f.BindAddr
	if bindAddr == "" {
		bindAddr = "127.0.0.1:0"
	}
	listener, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return err
	}
	f.listener = listener
	f.conns = make(map[net.Conn]struct{})
	f.wg.Add(1)
	go f.acceptLoop(listener)
	f.Logger.Printf("echo server listening at %s", listener.Addr())
	return nil
}

// Stop closes the listener and every open connection and waits for the
// connection handlers to exit. Stopping a fixture that was never started,
// or stopping twice, is a no-op.
func (f *EchoServerFixture) Stop() error {
	f.lock.Lock()
	listener := f.listener
	f.listener = nil
	var conns []net.Conn
	for c := range f.conns {
		conns = append(conns, c)
	}
	f.conns = nil
	f.lock.Unlock()

	if listener == nil {
		return nil
	}
	listener.Close()
	for _, c := range conns {
		c.Close()
	}
	f.wg.Wait()
	f.Logger.Printf("echo server stopped")
	return nil
}

// Addr returns the address the server is listening on, usable with
// net.Dial. Panics if the fixture is not started.
func (f *EchoServerFixture) Addr() string {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.listener == nil {
		panic("echo server fixture not started")
	}
	return f.listener.Addr().String()
}

func (f *EchoServerFixture) acceptLoop(listener net.Listener) {
	defer f.wg.Done()
	for {
		conn, err := listener.Accept()
		if err != nil {
			return // listener closed by Stop
		}
		if !f.track(conn) {
			conn.Close()
			return
		}
		f.wg.Add(1)
		go f.serve(conn)
	}
}

func (f *EchoServerFixture) serve(conn net.Conn) {
	defer f.wg.Done()
	defer f.untrack(conn)
	f.Logger.Printf("client connected from %s", conn.RemoteAddr())
	buf := make([]byte, readChunkSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			f.Logger.Printf("echoing %d bytes to %s", n, conn.RemoteAddr())
			if _, werr := conn.Write(buf[:n]); werr != nil {
				f.Logger.Printf("client %s write error: %s", conn.RemoteAddr(), werr)
				return
			}
		}
		if err != nil {
			f.Logger.Printf("client %s disconnected", conn.RemoteAddr())
			return
		}
	}
}

func (f *EchoServerFixture) track(conn net.Conn) bool {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.conns == nil {
		return false
	}
	f.conns[conn] = struct{}{}
	return true
}

func (f *EchoServerFixture) untrack(conn net.Conn) {
	conn.Close()
	f.lock.Lock()
	if f.conns != nil {
		delete(f.conns, conn)
	}
	f.lock.Unlock()
}
