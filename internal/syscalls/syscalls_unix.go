//go:build linux || darwin

package syscalls

import (
	"github.com/sockloop/asio/internal/sockaddr"
	"golang.org/x/sys/unix"
)

func init() {
	Default = unixOps{}
}

// unixOps implements SocketOps directly on golang.org/x/sys/unix. It holds
// no state; every method is a thin translation between this package's
// family-agnostic wire addresses and the concrete unix.Sockaddr types.
type unixOps struct{}

func (unixOps) Socket(domain, typ, proto int) (int, error) {
	return unix.Socket(domain, typ, proto)
}

func (unixOps) Close(fd int) error {
	return unix.Close(fd)
}

func (unixOps) Bind(fd int, addr []byte) error {
	sa, err := sockaddr.ToUnix(addr)
	if err != nil {
		return err
	}
	return unix.Bind(fd, sa)
}

func (unixOps) Listen(fd int, backlog int) error {
	return unix.Listen(fd, backlog)
}

func (unixOps) Connect(fd int, addr []byte) error {
	sa, err := sockaddr.ToUnix(addr)
	if err != nil {
		return err
	}
	return unix.Connect(fd, sa)
}

func (unixOps) Accept4(fd int, flags int) (int, []byte, error) {
	nfd, sa, err := unix.Accept4(fd, flags)
	if err != nil {
		return -1, nil, err
	}
	peer, err := sockaddr.FromUnix(sa)
	if err != nil {
		unix.Close(nfd)
		return -1, nil, err
	}
	return nfd, peer, nil
}

// SendmsgBuffers performs a single vectored sendmsg syscall across bufs,
// using x/sys/unix's scatter/gather entry point rather than looping
// unix.Sendmsg over each segment — the latter would turn one logical
// message into several datagrams on SOCK_DGRAM sockets.
func (unixOps) SendmsgBuffers(fd int, bufs [][]byte, oob []byte, to []byte, flags int) (int, error) {
	var sa unix.Sockaddr
	if to != nil {
		var err error
		sa, err = sockaddr.ToUnix(to)
		if err != nil {
			return 0, err
		}
	}
	return unix.SendmsgBuffers(fd, bufs, oob, sa, flags)
}

// RecvmsgBuffers performs a single vectored recvmsg syscall scattering into
// bufs.
func (unixOps) RecvmsgBuffers(fd int, bufs [][]byte, oob []byte, flags int) (n, oobn, recvflags int, from []byte, err error) {
	n, oobn, recvflags, sa, err := unix.RecvmsgBuffers(fd, bufs, oob, flags)
	if err != nil {
		return n, oobn, recvflags, nil, err
	}
	if sa != nil {
		from, err = sockaddr.FromUnix(sa)
		if err != nil {
			return n, oobn, recvflags, nil, err
		}
	}
	return n, oobn, recvflags, from, nil
}

func (unixOps) Getsockname(fd int) ([]byte, error) {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return nil, err
	}
	return sockaddr.FromUnix(sa)
}

func (unixOps) Getpeername(fd int) ([]byte, error) {
	sa, err := unix.Getpeername(fd)
	if err != nil {
		return nil, err
	}
	return sockaddr.FromUnix(sa)
}

func (unixOps) GetsockoptInt(fd, level, opt int) (int, error) {
	return unix.GetsockoptInt(fd, level, opt)
}

func (unixOps) SetsockoptInt(fd, level, opt, value int) error {
	return unix.SetsockoptInt(fd, level, opt, value)
}

func (unixOps) Shutdown(fd int, how int) error {
	return unix.Shutdown(fd, how)
}

func (unixOps) SetNonblocking(fd int, nonblocking bool) error {
	return unix.SetNonblock(fd, nonblocking)
}

func (unixOps) Fcntl(fd int, cmd int, arg int) (int, error) {
	return unix.FcntlInt(uintptr(fd), cmd, arg)
}

// Poll translates the shared PollFD slice to unix.PollFd in place of an
// allocation per call would be nicer, but unix.PollFd and PollFD have
// identical layout only by coincidence across platforms, so the translation
// is kept explicit rather than relying on an unsafe cast.
func (unixOps) Poll(fds []PollFD, timeoutMs int) (int, error) {
	raw := make([]unix.PollFd, len(fds))
	for i, f := range fds {
		raw[i] = unix.PollFd{Fd: f.FD, Events: f.Events}
	}
	n, err := unix.Poll(raw, timeoutMs)
	for i := range raw {
		fds[i].Revents = raw[i].Revents
	}
	return n, err
}
