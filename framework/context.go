package framework

import (
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/owwaedenswil/device-test-harness/logging"
)

type environment struct {
	results        Results
	scenarioLogger ScenarioLogger
	filter         Filter
}

// Context is the per-scenario state, used similarly to *testing.T. It
// implements require.TestingT so standard testify assertions work against
// it. FailNow and Skip unwind the scenario via panic; the recover in run
// turns that into a result.
type Context struct {
	env         *environment
	id          ScenarioID
	debugLogger logging.CapturingLogger
	failed      bool
	skipped     bool
	skipReason  string
	errors      []error
}

// Run executes a scenario tree and collects the results. The action
// normally consists of nested Context.Run calls.
func Run(
	filter Filter,
	scenarioLogger ScenarioLogger,
	action func(*Context),
) Results {
	if scenarioLogger == nil {
		scenarioLogger = nullScenarioLogger{}
	}
	env := &environment{
		filter:         filter,
		scenarioLogger: scenarioLogger,
	}
	c := &Context{env: env}
	c.run(action)
	return env.results
}

func (c *Context) run(action func(*Context)) {
	defer func() {
		if r := recover(); r != nil {
			if c.skipped {
				return
			}
			c.failed = true
			var addError error
			if _, ok := r.(*Context); ok {
				if len(c.errors) == 0 {
					addError = errors.New("scenario failed with no failure message")
				}
			} else {
				addError = fmt.Errorf("unexpected panic in scenario: %+v\n%s", r, string(debug.Stack()))
			}
			if addError != nil {
				c.errors = append(c.errors, addError)
				c.env.scenarioLogger.ScenarioError(c.id, addError)
			}
		}
		result := ScenarioResult{ID: c.id, Errors: c.errors}
		c.env.results.Scenarios = append(c.env.results.Scenarios, result)
		if c.failed {
			c.env.results.Failures = append(c.env.results.Failures, result)
		}
	}()

	action(c)
}

func (c *Context) ID() ScenarioID {
	return c.id
}

func (c *Context) Run(name string, action func(*Context)) {
	id := ScenarioID{Path: append(append([]string(nil), c.id.Path...), name)}

	c.env.scenarioLogger.ScenarioStarted(id)
	if c.env.filter != nil && !c.env.filter(id) {
		c.env.scenarioLogger.ScenarioSkipped(id, "excluded by filter parameters")
		return
	}
	c1 := &Context{
		id:  id,
		env: c.env,
	}
	c1.run(action)
	if c1.skipped {
		c.env.results.Skipped++
		c.env.scenarioLogger.ScenarioSkipped(id, c1.skipReason)
	} else {
		c.env.scenarioLogger.ScenarioFinished(id, c1.failed, c1.debugLogger.Output())
	}
}

func (c *Context) Errorf(format string, args ...interface{}) {
	c.failed = true
	err := fmt.Errorf(format, args...)
	c.errors = append(c.errors, err)
	c.env.scenarioLogger.ScenarioError(c.id, err)
}

func (c *Context) FailNow() {
	panic(c)
}

func (c *Context) Skip() {
	c.skipped = true
	panic(c)
}

func (c *Context) SkipWithReason(reason string) {
	c.skipReason = reason
	c.Skip()
}

func (c *Context) Debug(message string, args ...interface{}) {
	c.debugLogger.Printf(message, args...)
}

func (c *Context) DebugLogger() logging.Logger {
	return &c.debugLogger
}
