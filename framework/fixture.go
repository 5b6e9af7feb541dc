package framework

// Fixture is a test-owned resource with an explicit lifecycle, such as a
// device connection or a mock network service. Fixtures make no assumptions
// about what they provide; each implementation defines its own accessors,
// which scenarios use directly after looking the fixture up by name.
//
// Start must fail if called again without an intervening Stop, so that a
// scenario that double-starts a resource is caught immediately rather than
// silently reallocating it. Stop must be a no-op when the fixture was never
// started or was already stopped.
type Fixture interface {
	Start() error
	Stop() error
}
