package framework

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingFixture counts lifecycle calls and appends them to a shared
// event log so tests can assert on ordering across fixtures.
type recordingFixture struct {
	name      string
	events    *[]string
	failStart bool
	stopErr   error
	starts    int
	stops     int
}

func (f *recordingFixture) Start() error {
	f.starts++
	*f.events = append(*f.events, f.name+":start")
	if f.failStart {
		return errors.New("induced start failure")
	}
	return nil
}

func (f *recordingFixture) Stop() error {
	f.stops++
	*f.events = append(*f.events, f.name+":stop")
	return f.stopErr
}

func newRecordingHarness(names ...string) (*TestHarness, []*recordingFixture, *[]string) {
	events := &[]string{}
	h := NewTestHarness(nil)
	var all []*recordingFixture
	for _, name := range names {
		f := &recordingFixture{name: name, events: events}
		if err := h.AddFixture(name, f); err != nil {
			panic(err)
		}
		all = append(all, f)
	}
	return h, all, events
}

func TestHarnessStartsInOrderAndStopsInReverse(t *testing.T) {
	h, _, events := newRecordingHarness("a", "b", "c")
	require.NoError(t, h.Start())
	h.Stop()
	assert.Equal(t, []string{"a:start", "b:start", "c:start", "c:stop", "b:stop", "a:stop"}, *events)
}

func TestHarnessUnwindsOnStartFailure(t *testing.T) {
	const n = 4
	for failAt := 0; failAt < n; failAt++ {
		t.Run(fmt.Sprintf("fixture %d fails", failAt), func(t *testing.T) {
			var names []string
			for i := 0; i < n; i++ {
				names = append(names, fmt.Sprintf("f%d", i))
			}
			h, all, _ := newRecordingHarness(names...)
			all[failAt].failStart = true

			err := h.Start()
			require.Error(t, err)
			var startErr FixtureStartError
			require.ErrorAs(t, err, &startErr)
			assert.Equal(t, names[failAt], startErr.Name)
			assert.Contains(t, err.Error(), names[failAt])

			for i, f := range all {
				switch {
				case i < failAt:
					assert.Equal(t, 1, f.starts, "fixture %d starts", i)
					assert.Equal(t, 1, f.stops, "fixture %d stops", i)
				case i == failAt:
					assert.Equal(t, 1, f.starts, "fixture %d starts", i)
					assert.Equal(t, 0, f.stops, "fixture %d stops", i)
				default:
					assert.Equal(t, 0, f.starts, "fixture %d starts", i)
					assert.Equal(t, 0, f.stops, "fixture %d stops", i)
				}
			}

			// Nothing is left started, so Stop has nothing to do.
			h.Stop()
			for i, f := range all {
				if i < failAt {
					assert.Equal(t, 1, f.stops, "fixture %d stops after redundant Stop", i)
				}
			}
		})
	}
}

func TestHarnessUnwindFailureNamesFailingFixture(t *testing.T) {
	h, all, _ := newRecordingHarness("a", "b")
	all[1].failStart = true

	err := h.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b")
	assert.Equal(t, 1, all[0].stops)
	assert.Equal(t, 0, all[1].stops)
}

func TestHarnessStopIsIdempotent(t *testing.T) {
	h, all, _ := newRecordingHarness("a", "b")
	require.NoError(t, h.Start())
	h.Stop()
	h.Stop()
	for _, f := range all {
		assert.Equal(t, 1, f.stops)
	}
}

func TestHarnessStopWithoutStartIsNoop(t *testing.T) {
	h, all, _ := newRecordingHarness("a")
	h.Stop()
	assert.Equal(t, 0, all[0].stops)
}

func TestHarnessStopSwallowsStopErrors(t *testing.T) {
	h, all, _ := newRecordingHarness("a", "b", "c")
	all[1].stopErr = errors.New("induced stop failure")
	require.NoError(t, h.Start())
	h.Stop()
	// The bad stop on "b" must not prevent "a" from being stopped.
	for _, f := range all {
		assert.Equal(t, 1, f.stops, "fixture %s", f.name)
	}
}

func TestHarnessRejectsDuplicateNames(t *testing.T) {
	h, _, events := newRecordingHarness("a")
	err := h.AddFixture("a", &recordingFixture{name: "a2", events: events})
	var dupErr DuplicateFixtureError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, "a", dupErr.Name)
}

func TestHarnessRejectsDoubleStart(t *testing.T) {
	h, all, _ := newRecordingHarness("a")
	require.NoError(t, h.Start())
	assert.ErrorIs(t, h.Start(), ErrHarnessStarted)
	assert.Equal(t, 1, all[0].starts)
	h.Stop()
	// After Stop a fresh Start is allowed again.
	require.NoError(t, h.Start())
	h.Stop()
}

func TestHarnessGetFixture(t *testing.T) {
	h, all, _ := newRecordingHarness("a")
	assert.Same(t, all[0], h.GetFixture("a"))
	assert.Nil(t, h.GetFixture("unknown"))
}

func TestHarnessRunStopsOnEveryExitPath(t *testing.T) {
	t.Run("normal return", func(t *testing.T) {
		h, all, _ := newRecordingHarness("a")
		require.NoError(t, h.Run(func() error { return nil }))
		assert.Equal(t, 1, all[0].stops)
	})

	t.Run("action error", func(t *testing.T) {
		h, all, _ := newRecordingHarness("a")
		induced := errors.New("scenario failed")
		assert.ErrorIs(t, h.Run(func() error { return induced }), induced)
		assert.Equal(t, 1, all[0].stops)
	})

	t.Run("panicking action", func(t *testing.T) {
		h, all, _ := newRecordingHarness("a")
		require.Panics(t, func() {
			_ = h.Run(func() error { panic("boom") })
		})
		assert.Equal(t, 1, all[0].stops)
	})

	t.Run("start failure", func(t *testing.T) {
		h, all, _ := newRecordingHarness("a")
		all[0].failStart = true
		ran := false
		err := h.Run(func() error { ran = true; return nil })
		var startErr FixtureStartError
		require.ErrorAs(t, err, &startErr)
		assert.False(t, ran)
	})
}
