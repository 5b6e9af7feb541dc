package fixtures

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/owwaedenswil/device-test-harness/framework"
	"github.com/owwaedenswil/device-test-harness/logging"
)

// latchedClient identifies the originating connection of a pending payload.
type latchedClient struct {
	id   string
	conn net.Conn
}

// LatchingServerFixture is a TCP server that receives data but does not
// echo it back until explicitly released. Scenarios use it to hold several
// requests in flight at once: clients send and block on their responses,
// the scenario waits until the expected number of payloads are pending
// (proving the requests overlap), then releases them all.
type LatchingServerFixture struct {
	BindAddr string // defaults to 127.0.0.1:0
	Logger   logging.Logger

	latch    *framework.PendingResponseLatch
	listener net.Listener
	conns    map[net.Conn]struct{}
	wg       sync.WaitGroup
	lock     sync.Mutex
}

func (f *LatchingServerFixture) Start() error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.listener != nil {
		return errors.New("latching server already started")
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
	f.latch = framework.NewPendingResponseLatch(f.releaseItem)
	f.listener = listener
	f.conns = make(map[net.Conn]struct{})
	f.wg.Add(1)
	go f.acceptLoop(listener)
	f.Logger.Printf("latching server listening at %s", listener.Addr())
	return nil
}

func (f *LatchingServerFixture) Stop() error {
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
	f.Logger.Printf("latching server stopped")
	return nil
}

// Addr returns the address the server is listening on. Panics if the
// fixture is not started.
func (f *LatchingServerFixture) Addr() string {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.listener == nil {
		panic("latching server fixture not started")
	}
	return f.listener.Addr().String()
}

// WaitForPending blocks until at least count payloads are being held, or
// the timeout elapses.
func (f *LatchingServerFixture) WaitForPending(count int, timeout time.Duration) bool {
	return f.latch.WaitForPending(count, timeout)
}

// ReleaseAll echoes every held payload back to its originating connection
// and returns how many were released.
func (f *LatchingServerFixture) ReleaseAll() int {
	return f.latch.ReleaseAll()
}

// PendingCount reports how many payloads are currently held.
func (f *LatchingServerFixture) PendingCount() int {
	return f.latch.PendingCount()
}

func (f *LatchingServerFixture) releaseItem(item framework.PendingItem) {
	client := item.Producer.(latchedClient)
	f.Logger.Printf("releasing %d bytes to client %s", len(item.Payload), client.id)
	if _, err := client.conn.Write(item.Payload); err != nil {
		f.Logger.Printf("failed to send response to client %s: %s", client.id, err)
	}
}

func (f *LatchingServerFixture) acceptLoop(listener net.Listener) {
	defer f.wg.Done()
	for {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		if !f.track(conn) {
			conn.Close()
			return
		}
		f.wg.Add(1)
		go f.serve(conn)
	}
}

func (f *LatchingServerFixture) serve(conn net.Conn) {
	defer f.wg.Done()
	defer f.untrack(conn)
	client := latchedClient{id: uuid.NewString(), conn: conn}
	f.Logger.Printf("client %s connected from %s", client.id, conn.RemoteAddr())
	buf := make([]byte, readChunkSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			f.Logger.Printf("holding %d bytes from client %s", n, client.id)
			f.latch.Deposit(client, append([]byte(nil), buf[:n]...))
		}
		if err != nil {
			f.Logger.Printf("client %s disconnected", client.id)
			return
		}
	}
}

func (f *LatchingServerFixture) track(conn net.Conn) bool {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.conns == nil {
		return false
	}
	f.conns[conn] = struct{}{}
	return true
}

func (f *LatchingServerFixture) untrack(conn net.Conn) {
	conn.Close()
	f.lock.Lock()
	if f.conns != nil {
		delete(f.conns, conn)
	}
	f.lock.Unlock()
}
