package framework

import (
	"errors"
	"fmt"
)

// ErrHarnessStarted is returned by TestHarness.Start if any fixture from a
// previous Start is still running.
var ErrHarnessStarted = errors.New("harness is already started")

// DuplicateFixtureError is returned by AddFixture when a name is reused.
type DuplicateFixtureError struct {
	Name string
}

func (e DuplicateFixtureError) Error() string {
	return fmt.Sprintf("fixture %q is already registered", e.Name)
}

// FixtureStartError is the single aggregate error returned by
// TestHarness.Start after a startup failure. By the time the caller sees it,
// every fixture that had started has already been unwound.
type FixtureStartError struct {
	Name string
	Err  error
}

func (e FixtureStartError) Error() string {
	return fmt.Sprintf("failed to start fixture %q: %s", e.Name, e.Err)
}

func (e FixtureStartError) Unwrap() error { return e.Err }
