package asio

import (
	"time"

	"github.com/sockloop/asio/internal/poller"
)

// Synchronous verbs (bind, listen, getsockname, getpeername, getsockopt,
// setsockopt, shutdown) forward directly to the platform syscall on the
// underlying handle; they never touch the multiplexer.

// Bind binds sock to addr.
func Bind(sock *Socket, addr Address) error {
	if err := sock.ops.Bind(sock.NativeID(), addr.Bytes()); err != nil {
		return newError("bind", CodeSyscallFailed, errnoOf(err), err.Error())
	}
	return nil
}

// Listen marks sock as a listening socket with the given backlog.
func Listen(sock *Socket, backlog int) error {
	if err := sock.ops.Listen(sock.NativeID(), backlog); err != nil {
		return newError("listen", CodeSyscallFailed, errnoOf(err), err.Error())
	}
	return nil
}

// Getsockname returns sock's local address.
func Getsockname(sock *Socket) (Address, error) {
	b, err := sock.ops.Getsockname(sock.NativeID())
	if err != nil {
		return Address{}, newError("getsockname", CodeSyscallFailed, errnoOf(err), err.Error())
	}
	return NewAddressBytes(b), nil
}

// Getpeername returns sock's connected peer address.
func Getpeername(sock *Socket) (Address, error) {
	b, err := sock.ops.Getpeername(sock.NativeID())
	if err != nil {
		return Address{}, newError("getpeername", CodeSyscallFailed, errnoOf(err), err.Error())
	}
	return NewAddressBytes(b), nil
}

// GetsockoptInt reads an integer socket option.
func GetsockoptInt(sock *Socket, level, opt int) (int, error) {
	v, err := sock.ops.GetsockoptInt(sock.NativeID(), level, opt)
	if err != nil {
		return 0, newError("getsockopt", CodeSyscallFailed, errnoOf(err), err.Error())
	}
	return v, nil
}

// SetsockoptInt sets an integer socket option.
func SetsockoptInt(sock *Socket, level, opt, value int) error {
	if err := sock.ops.SetsockoptInt(sock.NativeID(), level, opt, value); err != nil {
		return newError("setsockopt", CodeSyscallFailed, errnoOf(err), err.Error())
	}
	return nil
}

// Shutdown shuts down sock's read side, write side, or both (how is the
// platform SHUT_RD/SHUT_WR/SHUT_RDWR constant).
func Shutdown(sock *Socket, how int) error {
	if err := sock.ops.Shutdown(sock.NativeID(), how); err != nil {
		return newError("shutdown", CodeSyscallFailed, errnoOf(err), err.Error())
	}
	return nil
}

// Fcntl performs a raw fcntl(sock, cmd, arg) call, forwarding directly to
// the platform without touching the multiplexer, per spec's synchronous
// verb list (F_GETFL/F_SETFL with O_NONBLOCK being the verb's primary use;
// see Triggers.Push/Emplace, which call the equivalent SetNonblocking
// helper internally).
func Fcntl(sock *Socket, cmd, arg int) (int, error) {
	v, err := sock.ops.Fcntl(sock.NativeID(), cmd, arg)
	if err != nil {
		return 0, newError("fcntl", CodeSyscallFailed, errnoOf(err), err.Error())
	}
	return v, nil
}

// AcceptSync performs a single blocking accept() call directly on sock,
// bypassing the multiplexer entirely; sock is assumed to be in blocking
// mode (the synchronous counterpart to the async Accept verb, per spec.md
// §6's "overloaded for synchronous use on a raw handle").
func AcceptSync(sock *Socket) (*Socket, Address, error) {
	nfd, peer, err := sock.ops.Accept4(sock.NativeID(), 0)
	if err != nil {
		return nil, Address{}, newError("accept", CodeSyscallFailed, errnoOf(err), err.Error())
	}
	return wrapFD(sock.ops, nfd), NewAddressBytes(peer), nil
}

// ConnectSync performs a single blocking connect() call directly on sock.
func ConnectSync(sock *Socket, addr Address) error {
	if err := sock.ops.Connect(sock.NativeID(), addr.Bytes()); err != nil {
		return newError("connect", CodeSyscallFailed, errnoOf(err), err.Error())
	}
	return nil
}

// SendmsgSync performs a single blocking sendmsg() call directly on sock,
// returning the byte count sent.
func SendmsgSync(sock *Socket, msg *Message, flags int) (int, error) {
	var toBytes []byte
	if msg.Addr != nil {
		toBytes = msg.Addr.Bytes()
	}
	n, err := sock.ops.SendmsgBuffers(sock.NativeID(), msg.Buf.Segments(), msg.Control, toBytes, flags)
	if err != nil {
		return 0, newError("sendmsg", CodeSyscallFailed, errnoOf(err), err.Error())
	}
	return n, nil
}

// RecvmsgSync performs a single blocking recvmsg() call directly on sock,
// returning the byte count received. A zero count is end-of-stream, not an
// error, matching the async verb's contract.
func RecvmsgSync(sock *Socket, msg *Message, flags int) (int, error) {
	n, _, _, from, err := sock.ops.RecvmsgBuffers(sock.NativeID(), msg.Buf.Segments(), msg.Control, flags)
	if err != nil {
		return 0, newError("recvmsg", CodeSyscallFailed, errnoOf(err), err.Error())
	}
	if from != nil {
		addr := NewAddressBytes(from)
		msg.Addr = &addr
	}
	return n, nil
}

// AcceptResult is the value an async Accept completes with: a Dialog for
// the newly accepted connection, bound to the same executor, plus the
// peer's address.
type AcceptResult struct {
	Dialog Dialog
	Peer   Address
}

// Accept resolves the executor from d and returns a sender that completes
// once a connection is ready to be accepted.
func Accept(d Dialog) (*PollSender[AcceptResult], error) {
	t, err := d.Executor()
	if err != nil {
		return nil, err
	}
	sock := d.Socket()
	start := time.Now()

	retry := func() (AcceptResult, bool, error) {
		nfd, peer, aerr := t.ops.Accept4(sock.NativeID(), 0)
		if aerr != nil {
			retryMe, out := classifySyscallErr("accept", aerr)
			if retryMe {
				t.observer.ObserveWouldBlock()
				return AcceptResult{}, false, nil
			}
			t.observer.ObserveAccept(uint64(time.Since(start)), false)
			return AcceptResult{}, false, out
		}
		if serr := t.ops.SetNonblocking(nfd, true); serr != nil {
			t.ops.Close(nfd)
			t.observer.ObserveAccept(uint64(time.Since(start)), false)
			return AcceptResult{}, false, newError("accept", CodeSyscallFailed, errnoOf(serr), serr.Error())
		}
		newSock := wrapFD(t.ops, nfd)
		t.observer.ObserveAccept(uint64(time.Since(start)), true)
		return AcceptResult{
			Dialog: Dialog{executor: d.executor, socket: newSock},
			Peer:   NewAddressBytes(peer),
		}, true, nil
	}

	return NewPollSender[AcceptResult](sock, t.mux, poller.Read, retry), nil
}

// Connect resolves the executor from d, issues the eager non-blocking
// connect() call, and returns a sender that completes once the connection
// either succeeds or fails.
func Connect(d Dialog, addr Address) (*PollSender[struct{}], error) {
	t, err := d.Executor()
	if err != nil {
		return nil, err
	}
	sock := d.Socket()

	if cerr := t.ops.Connect(sock.NativeID(), addr.Bytes()); cerr != nil {
		if !connectIgnorable(cerr) {
			// Latch the failure; the returned sender completes with it at Start.
			sock.SetError(int(errnoOf(cerr)))
		}
	}

	retry := func() (struct{}, bool, error) {
		code, gerr := t.ops.GetsockoptInt(sock.NativeID(), t.solSocket, t.soError)
		if gerr != nil {
			return struct{}{}, false, newError("connect", CodeSyscallFailed, errnoOf(gerr), gerr.Error())
		}
		if code != 0 {
			return struct{}{}, false, &Error{Op: "connect", Code: CodeSyscallFailed, Msg: "connect failed"}
		}
		return struct{}{}, true, nil
	}

	return NewPollSender[struct{}](sock, t.mux, poller.Write, retry), nil
}

// Sendmsg resolves the executor from d and returns a sender that completes
// with the number of bytes sent once the socket is writable.
func Sendmsg(d Dialog, msg *Message, flags int) (*PollSender[int], error) {
	t, err := d.Executor()
	if err != nil {
		return nil, err
	}
	sock := d.Socket()
	start := time.Now()

	retry := func() (int, bool, error) {
		var toBytes []byte
		if msg.Addr != nil {
			toBytes = msg.Addr.Bytes()
		}
		n, serr := t.ops.SendmsgBuffers(sock.NativeID(), msg.Buf.Segments(), msg.Control, toBytes, flags)
		if serr != nil {
			retryMe, out := classifySyscallErr("sendmsg", serr)
			if retryMe {
				t.observer.ObserveWouldBlock()
				return 0, false, nil
			}
			t.observer.ObserveSend(0, uint64(time.Since(start)), false)
			return 0, false, out
		}
		t.observer.ObserveSend(uint64(n), uint64(time.Since(start)), true)
		return n, true, nil
	}

	return NewPollSender[int](sock, t.mux, poller.Write, retry), nil
}

// Recvmsg resolves the executor from d and returns a sender that completes
// with the number of bytes received once the socket is readable. A zero
// byte count is a successful value (end of stream), never an error.
func Recvmsg(d Dialog, msg *Message, flags int) (*PollSender[int], error) {
	t, err := d.Executor()
	if err != nil {
		return nil, err
	}
	sock := d.Socket()
	start := time.Now()

	retry := func() (int, bool, error) {
		n, _, _, from, rerr := t.ops.RecvmsgBuffers(sock.NativeID(), msg.Buf.Segments(), msg.Control, flags)
		if rerr != nil {
			retryMe, out := classifySyscallErr("recvmsg", rerr)
			if retryMe {
				t.observer.ObserveWouldBlock()
				return 0, false, nil
			}
			t.observer.ObserveRecv(0, uint64(time.Since(start)), false)
			return 0, false, out
		}
		if from != nil {
			addr := NewAddressBytes(from)
			msg.Addr = &addr
		}
		t.observer.ObserveRecv(uint64(n), uint64(time.Since(start)), true)
		return n, true, nil
	}

	return NewPollSender[int](sock, t.mux, poller.Read, retry), nil
}

func connectIgnorable(err error) bool {
	return connectInProgress(errnoOf(err))
}
