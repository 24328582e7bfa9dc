package syscalls

import (
	"sync"
)

// Fake is an in-memory SocketOps double used by unit tests that exercise
// the sender/receiver and multiplexer machinery without touching real
// kernel sockets, mirroring the role the teacher's MockBackend plays for
// internal/uring.Ring.
type Fake struct {
	mu        sync.Mutex
	nextFD    int
	sockets   map[int]*fakeSocket
	OnPoll    func(fds []PollFD, timeoutMs int) (int, error)
	OnConnect func(fd int, addr []byte) error
}

type fakeSocket struct {
	nonblocking bool
	bound       []byte
	peer        []byte
	closed      bool
	readable    bool
	writable    bool
}

// NewFake returns a ready-to-use Fake with no registered sockets.
func NewFake() *Fake {
	return &Fake{nextFD: 3, sockets: make(map[int]*fakeSocket)}
}

func (f *Fake) Socket(domain, typ, proto int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fd := f.nextFD
	f.nextFD++
	f.sockets[fd] = &fakeSocket{writable: true}
	return fd, nil
}

func (f *Fake) Close(fd int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sockets[fd]; ok {
		s.closed = true
	}
	return nil
}

func (f *Fake) Bind(fd int, addr []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sockets[fd]; ok {
		s.bound = addr
	}
	return nil
}

func (f *Fake) Listen(fd int, backlog int) error { return nil }

func (f *Fake) Connect(fd int, addr []byte) error {
	if f.OnConnect != nil {
		return f.OnConnect(fd, addr)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sockets[fd]; ok {
		s.peer = addr
	}
	return nil
}

func (f *Fake) Accept4(fd int, flags int) (int, []byte, error) {
	nfd, err := f.Socket(0, 0, 0)
	if err != nil {
		return -1, nil, err
	}
	return nfd, nil, nil
}

func (f *Fake) SendmsgBuffers(fd int, bufs [][]byte, oob []byte, to []byte, flags int) (int, error) {
	n := 0
	for _, b := range bufs {
		n += len(b)
	}
	return n, nil
}

func (f *Fake) RecvmsgBuffers(fd int, bufs [][]byte, oob []byte, flags int) (int, int, int, []byte, error) {
	return 0, 0, 0, nil, nil
}

func (f *Fake) Getsockname(fd int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sockets[fd]; ok {
		return s.bound, nil
	}
	return nil, nil
}

func (f *Fake) Getpeername(fd int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sockets[fd]; ok {
		return s.peer, nil
	}
	return nil, nil
}

func (f *Fake) GetsockoptInt(fd, level, opt int) (int, error) { return 0, nil }
func (f *Fake) SetsockoptInt(fd, level, opt, value int) error { return nil }
func (f *Fake) Shutdown(fd int, how int) error                { return nil }

func (f *Fake) SetNonblocking(fd int, nonblocking bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sockets[fd]; ok {
		s.nonblocking = nonblocking
	}
	return nil
}

func (f *Fake) Fcntl(fd int, cmd int, arg int) (int, error) {
	return 0, nil
}

func (f *Fake) Poll(fds []PollFD, timeoutMs int) (int, error) {
	if f.OnPoll != nil {
		return f.OnPoll(fds, timeoutMs)
	}
	n := 0
	for i := range fds {
		fds[i].Revents = fds[i].Events
		n++
	}
	return n, nil
}

var _ SocketOps = (*Fake)(nil)
