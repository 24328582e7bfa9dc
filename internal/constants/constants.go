// Package constants centralizes tunables shared across the asio packages,
// mirroring the sizing/default layout the rest of the module depends on.
package constants

import "time"

const (
	// InvalidFD is the sentinel native descriptor value stored by a closed
	// or never-opened Socket.
	InvalidFD = -1

	// MaxSockaddrSize is the capacity of the fixed inline byte buffer backing
	// Address and Option. Sized to comfortably hold sockaddr_in6 (28 bytes)
	// and sockaddr_un (110 bytes) with headroom for generic storage.
	MaxSockaddrSize = 128

	// MaxInterestFDs bounds the direct-indexing fast path some callers may
	// choose to use when pre-sizing interest-list snapshots; the interest
	// list itself is unbounded and grows as needed.
	MaxInterestFDs = 65536

	// DefaultIovecPoolMax is a scatter/gather segment-count bound. No code in
	// the module reads it: the kernel iovec arrays are built inside
	// golang.org/x/sys/unix's SendmsgBuffers/RecvmsgBuffers.
	DefaultIovecPoolMax = 64
)

// PollRetryBackoff is a delay between consecutive EINTR retries from the
// platform poll call. The multiplexer's retry loop does not read it and
// retries immediately; it is not part of the specified wait semantics.
const PollRetryBackoff = 0 * time.Millisecond
