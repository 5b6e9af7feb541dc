package scenarios

import (
	"fmt"
	"net"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/owwaedenswil/device-test-harness/fixtures"
	"github.com/owwaedenswil/device-test-harness/framework"
)

// These scenarios prove that "N requests in flight at once" can be created
// and resolved deterministically. The latching server holds every response
// until released, so once WaitForPending observes N pending payloads, all N
// clients are provably blocked on their replies at the same time.
func DoConcurrencyScenarios(t *T) {
	t.Run("two requests held in flight then released", func(t *T) {
		latching := &fixtures.LatchingServerFixture{Logger: t.DebugLogger()}
		h := framework.NewTestHarness(t.DebugLogger())
		require.NoError(t, h.AddFixture("latching", latching))
		t.StartHarness(h)
		defer h.Stop()

		type reply struct {
			request string
			data    []byte
			err     error
		}
		const clients = 2
		replies := make(chan reply, clients)
		for i := 0; i < clients; i++ {
			request := fmt.Sprintf("request-%d", i)
			conn := t.DialTCP(latching.Addr())
			defer conn.Close()
			go func(conn net.Conn, request string) {
				if _, err := conn.Write([]byte(request)); err != nil {
					replies <- reply{request: request, err: err}
					return
				}
				conn.SetReadDeadline(time.Now().Add(t.config.WaitTimeout * 2))
				buf := make([]byte, len(request))
				n, err := conn.Read(buf)
				replies <- reply{request: request, data: buf[:n], err: err}
			}(conn, request)
		}

		require.True(t, latching.WaitForPending(clients, t.config.WaitTimeout),
			"requests never overlapped: only %d pending", latching.PendingCount())
		assert.Equal(t, clients, latching.ReleaseAll())
		assert.Equal(t, 0, latching.PendingCount())

		for i := 0; i < clients; i++ {
			r := <-replies
			require.NoError(t, r.err, "client %s did not get its reply", r.request)
			assert.Equal(t, r.request, string(r.data))
		}
	})

	t.Run("wait reports timeout when arrivals fall short", func(t *T) {
		latching := &fixtures.LatchingServerFixture{Logger: t.DebugLogger()}
		h := framework.NewTestHarness(t.DebugLogger())
		require.NoError(t, h.AddFixture("latching", latching))
		t.StartHarness(h)
		defer h.Stop()

		conn := t.DialTCP(latching.Addr())
		defer conn.Close()
		_, err := conn.Write([]byte("only one"))
		require.NoError(t, err)
		require.True(t, latching.WaitForPending(1, t.config.WaitTimeout))

		const waitTimeout = time.Millisecond * 500
		started := time.Now()
		satisfied := latching.WaitForPending(2, waitTimeout)
		elapsed := time.Since(started)

		assert.False(t, satisfied)
		assert.GreaterOrEqual(t, elapsed, waitTimeout-time.Millisecond*50,
			"wait returned before the timeout elapsed")
		assert.Equal(t, 1, latching.ReleaseAll())
	})
}
