//go:build windows

package asio

import "golang.org/x/sys/windows"

// NewDefaultTriggers returns a Triggers wired to the platform's default
// SocketOps with the platform's SOL_SOCKET/SO_ERROR/SO_TYPE constants
// already filled in, so callers never need to know these numbers.
func NewDefaultTriggers(observer Observer) *Triggers {
	return NewTriggers(windows.SOL_SOCKET, windows.SO_ERROR, windows.SO_TYPE, observer)
}
