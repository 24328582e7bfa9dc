package asio

import (
	"sync"
	"sync/atomic"
	"syscall"
	"unsafe"

	"github.com/sockloop/asio/internal/constants"
	"github.com/sockloop/asio/internal/syscalls"
)

// InvalidFD is the sentinel native descriptor value of a closed or
// never-opened Socket.
const InvalidFD = constants.InvalidFD

// Socket owns exactly one native descriptor, or the invalid sentinel. It is
// movable but not copyable in spirit: callers should pass *Socket, never
// dereference and assign it by value across goroutines. Ordering is by
// native id, so a Socket is comparable via Compare once constructed.
type Socket struct {
	nativeID atomic.Int64
	errCode  atomic.Int32
	mu       sync.Mutex
	ops      syscalls.SocketOps
}

// NewSocket creates a new socket via the platform socket() call.
func NewSocket(domain, typ, protocol int) (*Socket, error) {
	return newSocketWithOps(syscalls.Default, domain, typ, protocol)
}

func newSocketWithOps(ops syscalls.SocketOps, domain, typ, protocol int) (*Socket, error) {
	fd, err := ops.Socket(domain, typ, protocol)
	if err != nil {
		retry, e := classifySyscallErr("socket", err)
		if retry {
			return nil, newError("socket", CodeSyscallFailed, 0, "unexpected would-block from socket()")
		}
		return nil, e
	}
	s := &Socket{ops: ops}
	s.nativeID.Store(int64(fd))
	return s, nil
}

// The SOL_SOCKET/SO_TYPE values used by AdoptSocket's probe are parameters,
// so this file does not depend on golang.org/x/sys directly; the
// unix/windows-specific numeric values come from AdoptSocket's caller (see
// NewDefaultTriggers).

// wrapFD wraps an already-open, already-validated native descriptor as a
// Socket without issuing any further syscall; used by accept's retry
// closure to turn a freshly accepted fd into a Socket.
func wrapFD(ops syscalls.SocketOps, fd int) *Socket {
	s := &Socket{ops: ops}
	s.nativeID.Store(int64(fd))
	return s
}

// AdoptSocket wraps an already-open native descriptor as a Socket, validated
// via a getsockopt(SO_TYPE) probe. solSocket/soType are the platform's
// SOL_SOCKET/SO_TYPE constants, supplied by the caller (see Triggers, which
// already knows them for its own multiplexer wiring).
func AdoptSocket(fd int, solSocket, soType int) (*Socket, error) {
	return adoptSocketWithOps(syscalls.Default, fd, solSocket, soType)
}

func adoptSocketWithOps(ops syscalls.SocketOps, fd int, solSocket, soType int) (*Socket, error) {
	if _, err := ops.GetsockoptInt(fd, solSocket, soType); err != nil {
		return nil, newError("adopt", CodeInvalidSocket, errnoOf(err), "SO_TYPE probe failed")
	}
	s := &Socket{ops: ops}
	s.nativeID.Store(int64(fd))
	return s, nil
}

// Valid reports whether the socket currently owns a live descriptor.
func (s *Socket) Valid() bool {
	return s.nativeID.Load() != InvalidFD
}

// NativeID returns the current native descriptor, or InvalidFD if closed.
func (s *Socket) NativeID() int {
	return int(s.nativeID.Load())
}

// SetError stores code in the socket's atomic error slot. Used by the
// multiplexer to latch an error observed via POLLERR/POLLNVAL.
func (s *Socket) SetError(code int) {
	s.errCode.Store(int32(code))
}

// GetError loads the socket's latched error code (0 if none).
func (s *Socket) GetError() int {
	return int(s.errCode.Load())
}

// Close closes the descriptor exactly once, setting NativeID to the
// sentinel. Closing an already-closed or never-opened Socket is a no-op.
func (s *Socket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fd := s.nativeID.Swap(InvalidFD)
	if fd == InvalidFD {
		return nil
	}
	if err := s.ops.Close(int(fd)); err != nil {
		return newError("close", CodeSyscallFailed, errnoOf(err), err.Error())
	}
	return nil
}

// Swap exchanges a's and b's native id and error slots, locking both
// mutexes in address order to avoid deadlock regardless of call order.
func Swap(a, b *Socket) {
	first, second := a, b
	if uintptr(unsafe.Pointer(a)) > uintptr(unsafe.Pointer(b)) {
		first, second = b, a
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	if first != second {
		second.mu.Lock()
		defer second.mu.Unlock()
	}

	aID, bID := a.nativeID.Load(), b.nativeID.Load()
	a.nativeID.Store(bID)
	b.nativeID.Store(aID)

	aErr, bErr := a.errCode.Load(), b.errCode.Load()
	a.errCode.Store(bErr)
	b.errCode.Store(aErr)
}

// Compare provides a strong ordering on native id, matching the spec's
// socket handle ordering rule.
func Compare(a, b *Socket) int {
	ai, bi := a.nativeID.Load(), b.nativeID.Load()
	switch {
	case ai < bi:
		return -1
	case ai > bi:
		return 1
	default:
		return 0
	}
}

func errnoOf(err error) syscall.Errno {
	if errno, ok := err.(syscall.Errno); ok {
		return errno
	}
	return 0
}
