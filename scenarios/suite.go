package scenarios

import (
	"github.com/owwaedenswil/device-test-harness/framework"
)

// RunSuite executes all scenarios and returns the collected results.
func RunSuite(
	config Config,
	filter framework.Filter,
	scenarioLogger framework.ScenarioLogger,
) framework.Results {
	config = config.withDefaults()
	return framework.Run(filter, scenarioLogger, func(c *framework.Context) {
		root := &T{Context: c, config: config}

		root.Run("echo server", DoEchoScenarios)
		root.Run("concurrent requests", DoConcurrencyScenarios)
		root.Run("frame loopback", DoLoopbackScenarios)
		root.Run("gateway", DoGatewayScenarios)
		root.Run("serial device", DoSerialScenarios)
	})
}
