package asio

import "github.com/sockloop/asio/internal/syscalls"

// NewFakeTriggers returns a Triggers backed by an in-memory syscalls.Fake
// instead of real kernel sockets, for unit tests that exercise the
// sender/receiver and multiplexer machinery without needing a live
// platform. Mirrors the role the teacher's MockBackend plays for testing
// code that depends on an abstracted backend.
func NewFakeTriggers(fake *syscalls.Fake, solSocket, soError, soType int, observer Observer) *Triggers {
	return newTriggersWithOps(fake, solSocket, soError, soType, observer)
}
