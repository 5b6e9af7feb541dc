package scenarios

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/owwaedenswil/device-test-harness/fixtures"
	"github.com/owwaedenswil/device-test-harness/framework"
)

func DoEchoScenarios(t *T) {
	t.Run("echoes a single payload", func(t *T) {
		echo := &fixtures.EchoServerFixture{Logger: t.DebugLogger()}
		h := framework.NewTestHarness(t.DebugLogger())
		require.NoError(t, h.AddFixture("echo", echo))
		t.StartHarness(h)
		defer h.Stop()

		conn := t.DialTCP(echo.Addr())
		defer conn.Close()

		payload := []byte("hello device")
		_, err := conn.Write(payload)
		require.NoError(t, err)
		assert.Equal(t, payload, t.ReadReply(conn, len(payload)))
	})

	t.Run("serves multiple clients", func(t *T) {
		echo := &fixtures.EchoServerFixture{Logger: t.DebugLogger()}
		h := framework.NewTestHarness(t.DebugLogger())
		require.NoError(t, h.AddFixture("echo", echo))
		t.StartHarness(h)
		defer h.Stop()

		first := t.DialTCP(echo.Addr())
		defer first.Close()
		second := t.DialTCP(echo.Addr())
		defer second.Close()

		_, err := first.Write([]byte("one"))
		require.NoError(t, err)
		_, err = second.Write([]byte("two"))
		require.NoError(t, err)

		assert.Equal(t, []byte("one"), t.ReadReply(first, 3))
		assert.Equal(t, []byte("two"), t.ReadReply(second, 3))
	})
}
