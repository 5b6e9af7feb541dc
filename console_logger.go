package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/owwaedenswil/device-test-harness/framework"
	"github.com/owwaedenswil/device-test-harness/logging"
)

var (
	failColor = color.New(color.FgRed, color.Bold)
	skipColor = color.New(color.FgYellow)
	passColor = color.New(color.FgGreen)
)

type ConsoleScenarioLogger struct {
	DebugOutputOnFailure bool
	DebugOutputOnSuccess bool
}

func (c *ConsoleScenarioLogger) ScenarioStarted(id framework.ScenarioID) {
	fmt.Printf("[%s]\n", id)
}

func (c *ConsoleScenarioLogger) ScenarioError(id framework.ScenarioID, err error) {
	for _, line := range strings.Split(err.Error(), "\n") {
		fmt.Printf("  %s\n", line)
	}
}

func (c *ConsoleScenarioLogger) ScenarioFinished(id framework.ScenarioID, failed bool, debugOutput logging.CapturedOutput) {
	if failed {
		failColor.Printf("  FAILED: %s\n", id)
	}
	if len(debugOutput) > 0 &&
		((failed && c.DebugOutputOnFailure) || (!failed && c.DebugOutputOnSuccess)) {
		debugOutput.Dump(os.Stdout, "    DEBUG ")
	}
}

func (c *ConsoleScenarioLogger) ScenarioSkipped(id framework.ScenarioID, reason string) {
	if reason == "" {
		skipColor.Printf("  SKIPPED: %s\n", id)
	} else {
		skipColor.Printf("  SKIPPED: %s (%s)\n", id, reason)
	}
}

func printResults(results framework.Results) {
	if results.OK() {
		passColor.Printf("All scenarios passed (%d run, %d skipped)\n",
			len(results.Scenarios), results.Skipped)
		return
	}
	failColor.Printf("%d scenario(s) failed (%d run, %d skipped):\n",
		len(results.Failures), len(results.Scenarios), results.Skipped)
	for _, f := range results.Failures {
		fmt.Printf("  %s\n", f.ID)
		for _, err := range f.Errors {
			fmt.Printf("    %s\n", err)
		}
	}
}
