//go:build windows

package syscalls

import (
	"errors"
	"unsafe"

	"github.com/sockloop/asio/internal/sockaddr"
	"golang.org/x/sys/windows"
)

func init() {
	Default = windowsOps{}
}

// windowsOps implements SocketOps on golang.org/x/sys/windows, giving the
// module's poll(2)-shaped multiplexer a WSAPoll-backed equivalent on the
// one platform that doesn't call it poll.
type windowsOps struct{}

func (windowsOps) Socket(domain, typ, proto int) (int, error) {
	h, err := windows.Socket(domain, typ, proto)
	return int(h), err
}

func (windowsOps) Close(fd int) error {
	return windows.Closesocket(windows.Handle(fd))
}

func (windowsOps) Bind(fd int, addr []byte) error {
	sa, err := sockaddr.ToUnix(addr)
	if err != nil {
		return err
	}
	return windows.Bind(windows.Handle(fd), sa)
}

func (windowsOps) Listen(fd int, backlog int) error {
	return windows.Listen(windows.Handle(fd), backlog)
}

func (windowsOps) Connect(fd int, addr []byte) error {
	sa, err := sockaddr.ToUnix(addr)
	if err != nil {
		return err
	}
	return windows.Connect(windows.Handle(fd), sa)
}

func (windowsOps) Accept4(fd int, flags int) (int, []byte, error) {
	nfd, sa, err := windows.Accept(windows.Handle(fd))
	if err != nil {
		return -1, nil, err
	}
	peer, err := sockaddr.FromUnix(sa)
	if err != nil {
		windows.Closesocket(nfd)
		return -1, nil, err
	}
	return int(nfd), peer, nil
}

// SendmsgBuffers has no single-syscall scatter/gather equivalent exposed by
// x/sys/windows (WSASendTo takes a WSABUF array but that entry point isn't
// wrapped at this level), so segments are concatenated once into a scratch
// buffer and sent with a single WSASend-equivalent call. This trades one
// extra copy for staying on the supported high-level API surface.
func (windowsOps) SendmsgBuffers(fd int, bufs [][]byte, oob []byte, to []byte, flags int) (int, error) {
	total := 0
	for _, b := range bufs {
		total += len(b)
	}
	flat := make([]byte, 0, total)
	for _, b := range bufs {
		flat = append(flat, b...)
	}

	if to != nil {
		sa, err := sockaddr.ToUnix(to)
		if err != nil {
			return 0, err
		}
		return windows.Sendto(windows.Handle(fd), flat, flags, sa)
	}
	n, err := windows.Send(windows.Handle(fd), flat, flags)
	return n, err
}

// RecvmsgBuffers mirrors SendmsgBuffers: receive into one scratch buffer
// sized to the sum of bufs, then scatter it back out.
func (windowsOps) RecvmsgBuffers(fd int, bufs [][]byte, oob []byte, flags int) (n, oobn, recvflags int, from []byte, err error) {
	total := 0
	for _, b := range bufs {
		total += len(b)
	}
	flat := make([]byte, total)

	got, sa, err := windows.Recvfrom(windows.Handle(fd), flat, flags)
	if err != nil {
		return 0, 0, 0, nil, err
	}

	remaining := flat[:got]
	for _, b := range bufs {
		c := copy(b, remaining)
		remaining = remaining[c:]
		if len(remaining) == 0 {
			break
		}
	}

	if sa != nil {
		from, err = sockaddr.FromUnix(sa)
		if err != nil {
			return got, 0, 0, nil, err
		}
	}
	return got, 0, 0, from, nil
}

func (windowsOps) Getsockname(fd int) ([]byte, error) {
	sa, err := windows.Getsockname(windows.Handle(fd))
	if err != nil {
		return nil, err
	}
	return sockaddr.FromUnix(sa)
}

func (windowsOps) Getpeername(fd int) ([]byte, error) {
	sa, err := windows.Getpeername(windows.Handle(fd))
	if err != nil {
		return nil, err
	}
	return sockaddr.FromUnix(sa)
}

func (windowsOps) GetsockoptInt(fd, level, opt int) (int, error) {
	return windows.GetsockoptInt(windows.Handle(fd), int32(level), int32(opt))
}

func (windowsOps) SetsockoptInt(fd, level, opt, value int) error {
	v := int32(value)
	return windows.Setsockopt(windows.Handle(fd), int32(level), int32(opt), (*byte)(unsafe.Pointer(&v)), 4)
}

func (windowsOps) Shutdown(fd int, how int) error {
	return windows.Shutdown(windows.Handle(fd), how)
}

func (windowsOps) SetNonblocking(fd int, nonblocking bool) error {
	var mode uint32
	if nonblocking {
		mode = 1
	}
	return windows.SetNonblock(windows.Handle(fd), mode != 0)
}

// Fcntl has no direct Winsock equivalent; F_SETFL with O_NONBLOCK is
// rerouted to SetNonblocking (the FIONBIO ioctlsocket this module actually
// needs), and any other command is rejected rather than silently ignored.
func (windowsOps) Fcntl(fd int, cmd int, arg int) (int, error) {
	const fSetFL, fGetFL, oNonblock = 4, 3, 0x800
	switch cmd {
	case fSetFL:
		return 0, windowsOps{}.SetNonblocking(fd, arg&oNonblock != 0)
	case fGetFL:
		return 0, nil
	default:
		return 0, errors.New("syscalls: fcntl command unsupported on windows")
	}
}

func (windowsOps) Poll(fds []PollFD, timeoutMs int) (int, error) {
	raw := make([]windows.WSAPollFd, len(fds))
	for i, f := range fds {
		raw[i] = windows.WSAPollFd{Fd: windows.Handle(f.FD), Events: f.Events}
	}
	n, err := windows.WSAPoll(raw, timeoutMs)
	for i := range raw {
		fds[i].Revents = raw[i].REvents
	}
	return n, err
}
