package fixtures

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/owwaedenswil/device-test-harness/logging"
)

const serviceReadyTimeout = time.Second * 10

// RecordedRequest captures one request received by a ServiceFixture.
type RecordedRequest struct {
	Method  string
	Path    string
	Headers http.Header
	Body    []byte
}

// ServiceFixture is a mock HTTP service (for example, the gateway a device
// reports to) listening on an ephemeral local port. Requests are served by
// the injected handler and also recorded on a channel so scenarios can
// assert on what the device sent.
type ServiceFixture struct {
	// Handler serves the requests. If nil, every request gets a 200.
	Handler http.Handler

	BindAddr string // defaults to 127.0.0.1:0
	Logger   logging.Logger

	listener net.Listener
	server   *http.Server
	requests chan RecordedRequest
	lock     sync.Mutex
}

func (f *ServiceFixture) Start() error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.listener != nil {
		return errors.New("service fixture already started")
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
	f.requests = make(chan RecordedRequest, 100)
	f.server = &http.Server{Handler: http.HandlerFunc(f.serveHTTP)}
	go func() {
		// Serve returns ErrServerClosed on Stop; anything else was already
		// fatal to the fixture.
		_ = f.server.Serve(listener)
	}()
	f.listener = listener

	if err := f.awaitReady(listener.Addr().String()); err != nil {
		f.stopLocked()
		return err
	}
	f.Logger.Printf("mock service listening at %s", listener.Addr())
	return nil
}

func (f *ServiceFixture) Stop() error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.stopLocked()
	return nil
}

func (f *ServiceFixture) stopLocked() {
	if f.listener == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	if err := f.server.Shutdown(ctx); err != nil {
		f.server.Close()
	}
	f.listener = nil
	f.server = nil
	f.Logger.Printf("mock service stopped")
}

// BaseURL returns the root URL of the service. Panics if the fixture is not
// started.
func (f *ServiceFixture) BaseURL() string {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.listener == nil {
		panic("service fixture not started")
	}
	return fmt.Sprintf("http://%s", f.listener.Addr())
}

// AwaitRequest waits for the service to receive a request.
func (f *ServiceFixture) AwaitRequest(timeout time.Duration) (RecordedRequest, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	select {
	case r := <-f.requests:
		return r, nil
	case <-deadline.C:
		return RecordedRequest{}, errors.New("timed out waiting for a request to the mock service")
	}
}

func (f *ServiceFixture) serveHTTP(w http.ResponseWriter, req *http.Request) {
	if req.Method == "HEAD" {
		// Readiness probes are not recorded.
		w.WriteHeader(http.StatusOK)
		return
	}
	var body []byte
	if req.Body != nil {
		data, err := io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			f.Logger.Printf("error reading request body: %s", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		body = data
	}
	f.Logger.Printf("received %s %s (%d bytes)", req.Method, req.URL.Path, len(body))

	recorded := RecordedRequest{
		Method:  req.Method,
		Path:    req.URL.Path,
		Headers: req.Header,
		Body:    body,
	}
	select { // non-blocking push
	case f.requests <- recorded:
	default:
		f.Logger.Printf("request channel was full; dropping record for %s", req.URL.Path)
	}

	if f.Handler != nil {
		f.Handler.ServeHTTP(w, req)
	} else {
		w.WriteHeader(http.StatusOK)
	}
}

func (f *ServiceFixture) awaitReady(addr string) error {
	deadline := time.NewTimer(serviceReadyTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(time.Millisecond * 10)
	defer ticker.Stop()
	for {
		select {
		case <-deadline.C:
			return fmt.Errorf("could not detect own listener at %s", addr)
		case <-ticker.C:
			resp, err := http.DefaultClient.Head(fmt.Sprintf("http://%s", addr))
			if err == nil {
				resp.Body.Close()
				return nil
			}
		}
	}
}
