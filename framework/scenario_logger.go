package framework

import "github.com/owwaedenswil/device-test-harness/logging"

// ScenarioLogger receives progress events as the suite runs. The runner
// binary implements it with console output; tests use the null
// implementation.
type ScenarioLogger interface {
	ScenarioStarted(id ScenarioID)
	ScenarioError(id ScenarioID, err error)
	ScenarioFinished(id ScenarioID, failed bool, debugOutput logging.CapturedOutput)
	ScenarioSkipped(id ScenarioID, reason string)
}

type nullScenarioLogger struct{}

func (n nullScenarioLogger) ScenarioStarted(ScenarioID)                               {}
func (n nullScenarioLogger) ScenarioError(ScenarioID, error)                          {}
func (n nullScenarioLogger) ScenarioFinished(ScenarioID, bool, logging.CapturedOutput) {}
func (n nullScenarioLogger) ScenarioSkipped(ScenarioID, string)                       {}
