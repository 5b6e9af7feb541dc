// Package framework contains the low-level test harness infrastructure
// that is not specific to any one device or protocol.
//
// The general model is:
//
// 1. A scenario depends on a set of fixtures (device connections, mock
// network services). The TestHarness owns them, starts them in registration
// order, and tears them down in reverse order, unwinding cleanly when a
// startup fails partway through.
//
// 2. There is a general notion of a scenario context which is similar to
// Go's *testing.T, allowing pieces of scenario logic to be associated with
// an identifier and to accumulate success/failure results.
//
// 3. The PendingResponseLatch is a synchronization primitive that scenarios
// use to create a deterministic number of truly concurrent in-flight
// requests before releasing them all at once.
//
// The domain-specific code that knows what is being tested lives in the
// fixtures and scenarios packages.
package framework
