package scenarios

import (
	"net/http"
	"strings"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/owwaedenswil/device-test-harness/fixtures"
	"github.com/owwaedenswil/device-test-harness/framework"
)

func DoGatewayScenarios(t *T) {
	t.Run("records a report posted by the device", func(t *T) {
		gateway := &fixtures.ServiceFixture{Logger: t.DebugLogger()}
		h := framework.NewTestHarness(t.DebugLogger())
		require.NoError(t, h.AddFixture("gateway", gateway))
		t.StartHarness(h)
		defer h.Stop()

		body := `{"status":"ok","uptime_ms":1234}`
		resp, err := http.Post(gateway.BaseURL()+"/v1/report", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		req, err := gateway.AwaitRequest(t.config.WaitTimeout)
		require.NoError(t, err)
		assert.Equal(t, "POST", req.Method)
		assert.Equal(t, "/v1/report", req.Path)
		assert.JSONEq(t, body, string(req.Body))
	})
}
