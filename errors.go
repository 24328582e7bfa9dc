package asio

import (
	"fmt"
	"syscall"
)

// Code is the high-level error category surfaced by this module, mirroring
// the taxonomy the multiplexer and syscall adapters report against.
type Code string

const (
	CodeSyscallFailed    Code = "syscall failed"
	CodeWouldBlock       Code = "would block"
	CodeSocketAsyncError Code = "socket async error"
	CodeInvalidExecutor  Code = "invalid executor"
	CodeInvalidSocket    Code = "invalid socket"
	CodePollFatal        Code = "poll fatal"
)

// Error is the structured error type returned across the package: a
// high-level Code, the syscall.Errno that produced it when applicable, the
// operation name, and an optionally wrapped cause.
type Error struct {
	Op    string
	Code  Code
	Errno syscall.Errno
	Msg   string
	Inner error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Op != "" {
		if e.Errno != 0 {
			return fmt.Sprintf("asio: %s: %s (errno=%d)", e.Op, msg, e.Errno)
		}
		return fmt.Sprintf("asio: %s: %s", e.Op, msg)
	}
	return fmt.Sprintf("asio: %s", msg)
}

func (e *Error) Unwrap() error { return e.Inner }

// Is supports errors.Is comparison against sentinel *Error values carrying
// only a Code, e.g. errors.Is(err, &Error{Code: CodeWouldBlock}).
func (e *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == te.Code
}

func newError(op string, code Code, errno syscall.Errno, msg string) *Error {
	return &Error{Op: op, Code: code, Errno: errno, Msg: msg}
}

// wouldBlock reports whether errno is one of the platform's non-fatal
// retry indications for a non-blocking syscall.
func wouldBlock(errno syscall.Errno) bool {
	switch errno {
	case syscall.EAGAIN, syscall.EWOULDBLOCK:
		return true
	default:
		return false
	}
}

// connectInProgress reports whether errno is one of the indications that an
// eager, non-blocking connect() is still in flight and should be treated as
// armed rather than failed.
func connectInProgress(errno syscall.Errno) bool {
	switch errno {
	case syscall.EINPROGRESS, syscall.EAGAIN, syscall.EALREADY, syscall.EISCONN:
		return true
	default:
		return false
	}
}

// classifySyscallErr turns a raw error from a SocketOps call into either a
// "retry" signal (would-block) or a concrete *Error, for use by retry
// closures: retry=true means the retry closure should return "absent" and
// re-park; retry=false with a non-nil out means a fatal completion.
func classifySyscallErr(op string, err error) (retry bool, out *Error) {
	if err == nil {
		return false, nil
	}
	errno, _ := err.(syscall.Errno)
	if wouldBlock(errno) {
		return true, nil
	}
	return false, newError(op, CodeSyscallFailed, errno, err.Error())
}
