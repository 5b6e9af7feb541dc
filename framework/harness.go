package framework

import (
	"sync"

	"github.com/owwaedenswil/device-test-harness/logging"
)

type fixtureEntry struct {
	name    string
	fixture Fixture
	started bool
}

// TestHarness orchestrates the fixtures a scenario depends on. Fixtures are
// started in registration order (a mock server must be listening before the
// device that dials it) and stopped in reverse order. If any fixture fails
// to start, the ones already running are stopped before the error is
// returned, so a partial startup never leaks resources.
type TestHarness struct {
	entries []*fixtureEntry
	byName  map[string]*fixtureEntry
	logger  logging.Logger
	lock    sync.Mutex
}

func NewTestHarness(logger logging.Logger) *TestHarness {
	if logger == nil {
		logger = logging.NullLogger()
	}
	return &TestHarness{
		byName: make(map[string]*fixtureEntry),
		logger: logger,
	}
}

// AddFixture registers a fixture under a unique name. It has no effect on
// the fixture itself; the fixture is not started until Start.
func (h *TestHarness) AddFixture(name string, fixture Fixture) error {
	h.lock.Lock()
	defer h.lock.Unlock()
	if _, ok := h.byName[name]; ok {
		return DuplicateFixtureError{Name: name}
	}
	e := &fixtureEntry{name: name, fixture: fixture}
	h.entries = append(h.entries, e)
	h.byName[name] = e
	return nil
}

// GetFixture returns the fixture registered under name, or nil if there is
// no such fixture. Scenarios type-assert the result to reach
// fixture-specific accessors.
func (h *TestHarness) GetFixture(name string) Fixture {
	h.lock.Lock()
	defer h.lock.Unlock()
	if e, ok := h.byName[name]; ok {
		return e.fixture
	}
	return nil
}

// Start starts every registered fixture in registration order. On the first
// failure it stops the already-started fixtures in reverse order (logging,
// not propagating, their stop errors) and returns a FixtureStartError
// wrapping the original cause. After a failed Start no fixture is left
// running.
func (h *TestHarness) Start() error {
	h.lock.Lock()
	defer h.lock.Unlock()
	for _, e := range h.entries {
		if e.started {
			return ErrHarnessStarted
		}
	}
	for _, e := range h.entries {
		h.logger.Printf("starting fixture %q", e.name)
		if err := e.fixture.Start(); err != nil {
			h.logger.Printf("fixture %q failed to start: %s", e.name, err)
			h.stopStartedLocked()
			return FixtureStartError{Name: e.name, Err: err}
		}
		e.started = true
	}
	h.logger.Printf("all fixtures started")
	return nil
}

// Stop stops every started fixture in reverse registration order. Stop
// errors are logged and swallowed: teardown is unconditional, and a bad
// Stop on one fixture must not prevent the rest from being stopped. Calling
// Stop again, or without a prior Start, is a no-op.
func (h *TestHarness) Stop() {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.stopStartedLocked()
}

func (h *TestHarness) stopStartedLocked() {
	for i := len(h.entries) - 1; i >= 0; i-- {
		e := h.entries[i]
		if !e.started {
			continue
		}
		h.logger.Printf("stopping fixture %q", e.name)
		if err := e.fixture.Stop(); err != nil {
			h.logger.Printf("error stopping fixture %q: %s", e.name, err)
		}
		e.started = false
	}
}

// Run starts all fixtures, runs the action, and guarantees Stop on every
// exit path, including a panicking action.
func (h *TestHarness) Run(action func() error) error {
	if err := h.Start(); err != nil {
		return err
	}
	defer h.Stop()
	return action()
}
