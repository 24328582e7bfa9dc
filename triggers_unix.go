//go:build linux || darwin

package asio

import "golang.org/x/sys/unix"

// NewDefaultTriggers returns a Triggers wired to the platform's default
// SocketOps with the platform's SOL_SOCKET/SO_ERROR/SO_TYPE constants
// already filled in, so callers never need to know these numbers.
func NewDefaultTriggers(observer Observer) *Triggers {
	return NewTriggers(unix.SOL_SOCKET, unix.SO_ERROR, unix.SO_TYPE, observer)
}
