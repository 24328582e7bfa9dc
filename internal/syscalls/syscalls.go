// Package syscalls is the thin customization-point boundary between the
// module's sender/receiver operation machinery and the platform's socket
// syscalls. Its SocketOps interface plays the same role the teacher's
// internal/uring.Ring interface plays for the io_uring boundary: a small
// swappable surface that the rest of the module programs against, with a
// single real implementation selected per build tag and a fake
// implementation available to tests.
package syscalls

import "errors"

// ErrUnsupportedFamily names the unsupported-address-family condition. The
// conversions in internal/sockaddr do not return it; they report an
// unrecognized family with their own formatted error.
var ErrUnsupportedFamily = errors.New("syscalls: unsupported address family")

// SocketOps is the full surface of platform socket syscalls the module
// needs. Addresses are exchanged as wire-format byte slices (see
// internal/sockaddr) rather than net.Addr or platform-specific Sockaddr
// types, so this interface has no platform types in its signature and both
// the unix and windows implementations satisfy it unchanged.
type SocketOps interface {
	Socket(domain, typ, proto int) (fd int, err error)
	Close(fd int) error
	Bind(fd int, addr []byte) error
	Listen(fd int, backlog int) error
	Connect(fd int, addr []byte) error
	Accept4(fd int, flags int) (newfd int, peer []byte, err error)

	// SendmsgBuffers performs a scatter/gather sendmsg across bufs in a
	// single syscall; to may be nil for a connected socket.
	SendmsgBuffers(fd int, bufs [][]byte, oob []byte, to []byte, flags int) (n int, err error)
	// RecvmsgBuffers performs a scatter/gather recvmsg into bufs in a
	// single syscall.
	RecvmsgBuffers(fd int, bufs [][]byte, oob []byte, flags int) (n, oobn, recvflags int, from []byte, err error)

	Getsockname(fd int) ([]byte, error)
	Getpeername(fd int) ([]byte, error)
	GetsockoptInt(fd, level, opt int) (int, error)
	SetsockoptInt(fd, level, opt, value int) error
	Shutdown(fd int, how int) error

	// SetNonblocking puts fd in or out of O_NONBLOCK mode. Every socket the
	// module hands to the multiplexer is nonblocking; this is exposed
	// separately from Socket so Triggers.Emplace can apply it to a
	// caller-supplied descriptor of unknown provenance.
	SetNonblocking(fd int, nonblocking bool) error

	// Fcntl performs a raw fcntl(fd, cmd, arg) call, exposed directly as a
	// synchronous verb per the module's public API surface (F_GETFL/F_SETFL
	// with O_NONBLOCK being the common case; SetNonblocking wraps exactly
	// this for the module's own internal use).
	Fcntl(fd int, cmd int, arg int) (int, error)

	// Poll blocks until one of fds is ready, timeoutMs elapses (-1 blocks
	// indefinitely, 0 polls without blocking), or a signal interrupts the
	// call. It returns the number of descriptors with a non-zero Revents.
	Poll(fds []PollFD, timeoutMs int) (int, error)
}

// PollFD mirrors the platform pollfd struct (fd, requested events,
// returned events), kept here so callers outside this package never need
// to import golang.org/x/sys/unix or golang.org/x/sys/windows just to
// drive the multiplexer.
type PollFD struct {
	FD      int32
	Events  int16
	Revents int16
}

// Event bitmasks, numerically identical to POLLIN/POLLOUT/POLLERR/POLLHUP/
// POLLNVAL on every platform this module targets.
const (
	POLLIN   = 0x001
	POLLOUT  = 0x004
	POLLERR  = 0x008
	POLLHUP  = 0x010
	POLLNVAL = 0x020
)

// Default is the SocketOps implementation selected for the running
// platform at init time by the unix/windows build-tagged files.
var Default SocketOps
