package framework

import (
	"fmt"
	"strings"
)

// ScenarioID identifies a scenario by its path in the suite tree.
type ScenarioID struct {
	Path []string
}

func (id ScenarioID) String() string {
	return strings.Join(id.Path, "/")
}

type ScenarioResult struct {
	ID     ScenarioID
	Errors []error
}

type Results struct {
	Scenarios []ScenarioResult
	Failures  []ScenarioResult
	Skipped   int
}

func (r Results) OK() bool {
	return len(r.Failures) == 0
}

type ScenarioFailure struct {
	ID  ScenarioID
	Err error
}

func (f ScenarioFailure) Error() string {
	return fmt.Sprintf("[%s]: %s", f.ID, f.Err)
}
