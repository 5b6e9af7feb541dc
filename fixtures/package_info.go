// Package fixtures contains the concrete fixture implementations that
// scenarios register with a framework.TestHarness: plain and latching TCP
// echo servers, a mock HTTP service, and a device fixture that owns a frame
// transport over a dialed byte stream.
//
// Each fixture implements framework.Fixture without inheritance and defines
// its own accessors (Addr, BaseURL, Send, ...) which scenarios reach via a
// type assertion on TestHarness.GetFixture.
package fixtures
