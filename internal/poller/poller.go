// Package poller implements the readiness multiplexer: a sorted interest
// list of poll events keyed by file descriptor, a demultiplexer map from fd
// to per-direction intrusive FIFOs, and the wait/dispatch loop that drains
// them. Its shape is grounded on the teacher's internal/queue runner
// dispatch loop (a single mutex-guarded structure drained outside the
// lock), generalized from a completion-queue consumer to a poll(2)-style
// readiness consumer.
package poller

import (
	"errors"
	"sync"
	"syscall"

	"github.com/sockloop/asio/internal/queue"
	"github.com/sockloop/asio/internal/syscalls"
)

// Direction is the set of readiness conditions an operation waits on.
type Direction uint8

const (
	Read Direction = 1 << iota
	Write
)

// Has reports whether d includes want.
func (d Direction) Has(want Direction) bool { return d&want != 0 }

// ErrorSetter lets the multiplexer latch a socket-level error discovered
// via POLLERR/POLLNVAL without depending on the socket handle type itself
// (which lives in the root package, above this one).
type ErrorSetter interface {
	SetError(code int)
}

// entry is the per-fd demultiplexer entry: two intrusive FIFOs and the
// error sink for the socket that owns them.
type entry struct {
	fd      int32
	errSink ErrorSetter
	read    queue.FIFO
	write   queue.FIFO
}

// ready is a poll event that carried revents in a single WaitFor cycle,
// shared between WaitFor's snapshot filtering and clearAndGather's dispatch.
type ready struct {
	fd      int32
	revents int16
}

// Multiplexer is the readiness multiplexer described by the module: a
// sorted interest list of poll events plus a map to per-fd demultiplexer
// entries, both guarded by one mutex, with a wait loop that performs the
// platform poll outside the lock.
type Multiplexer struct {
	mu       sync.Mutex
	events   []syscalls.PollFD // sorted ascending by FD; mask always non-zero
	entries  map[int32]*entry
	ops      syscalls.SocketOps
	SOLevel  int // SOL_SOCKET, set by the unix/windows entry point constructing this Multiplexer
	SOErrOpt int // SO_ERROR
}

// New returns a Multiplexer driving ops (normally syscalls.Default).
func New(ops syscalls.SocketOps, solSocket, soError int) *Multiplexer {
	return &Multiplexer{
		ops:      ops,
		entries:  make(map[int32]*entry),
		SOLevel:  solSocket,
		SOErrOpt: soError,
	}
}

// Merge inserts or merges a poll event for fd into the sorted interest
// list, OR-ing dir into the existing mask if an event for fd is already
// present. This is the connect-time behavior: it runs once per distinct
// direction an operation connects with, independent of start().
func (m *Multiplexer) Merge(fd int32, dir Direction, errSink ErrorSetter) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[fd]
	if !ok {
		e = &entry{fd: fd, errSink: errSink}
		m.entries[fd] = e
	}

	mask := directionToEvents(dir)
	for i := range m.events {
		if m.events[i].FD == fd {
			m.events[i].Events |= mask
			return
		}
	}
	m.insertSorted(syscalls.PollFD{FD: fd, Events: mask})
}

func (m *Multiplexer) insertSorted(pf syscalls.PollFD) {
	i := 0
	for i < len(m.events) && m.events[i].FD < pf.FD {
		i++
	}
	m.events = append(m.events, syscalls.PollFD{})
	copy(m.events[i+1:], m.events[i:])
	m.events[i] = pf
}

// Park is the start-time behavior: install t on fd's read or write queue
// depending on dir (write takes precedence when both bits are set, per the
// module's "push onto the write queue if the direction includes WRITE"
// rule). The caller must have already called Merge for (fd, dir) at least
// once in this operation's lifetime; Park additionally restores the
// interest mask bit for dir if a prior wait_for cycle cleared it after
// fully draining the queue, preserving the invariant that a non-empty
// queue always has a corresponding non-zero interest entry.
func (m *Multiplexer) Park(fd int32, dir Direction, t *queue.Task) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[fd]
	if !ok {
		e = &entry{fd: fd}
		m.entries[fd] = e
	}
	if dir.Has(Write) {
		e.write.Push(t)
	} else {
		e.read.Push(t)
	}
	m.restoreMaskLocked(fd, directionToEvents(dir))
}

// restoreMaskLocked re-inserts or OR's bits into fd's interest event,
// mirroring Merge's insert-or-merge logic without requiring a separate
// ErrorSetter (Park never changes which socket owns the entry).
func (m *Multiplexer) restoreMaskLocked(fd int32, bits int16) {
	for i := range m.events {
		if m.events[i].FD == fd {
			m.events[i].Events |= bits
			return
		}
	}
	m.insertSorted(syscalls.PollFD{FD: fd, Events: bits})
}

// unmergeLocked removes bits from fd's requested mask, deleting the interest
// event entirely once the mask reaches zero; the demultiplexer entry for fd
// is kept. It is used after a queue has been fully drained so the interest
// list does not grow unbounded across the process lifetime.
func (m *Multiplexer) unmergeLocked(fd int32, bits int16) {
	for i := range m.events {
		if m.events[i].FD != fd {
			continue
		}
		m.events[i].Events &^= bits
		if m.events[i].Events == 0 {
			m.events = append(m.events[:i], m.events[i+1:]...)
		}
		return
	}
}

func directionToEvents(dir Direction) int16 {
	var mask int16
	if dir.Has(Read) {
		mask |= syscalls.POLLIN
	}
	if dir.Has(Write) {
		mask |= syscalls.POLLOUT
	}
	return mask
}

// WaitFor performs exactly one poll cycle: snapshot, poll, filter, clear,
// gather, dispatch. It returns the number of poll events that carried any
// revents in this cycle.
func (m *Multiplexer) WaitFor(timeoutMs int) (int, error) {
	snapshot := m.snapshot()
	if len(snapshot) == 0 {
		return 0, nil
	}

	n, err := m.pollRetryingEINTR(snapshot, timeoutMs)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}

	var retained []ready
	for _, pf := range snapshot {
		if pf.Revents != 0 {
			retained = append(retained, ready{fd: pf.FD, revents: pf.Revents})
		}
	}

	readLists, writeLists := m.clearAndGather(retained)

	for i := range retained {
		for task := readLists[i]; task != nil; {
			next := queue.Next(task)
			task.Run()
			task = next
		}
		for task := writeLists[i]; task != nil; {
			next := queue.Next(task)
			task.Run()
			task = next
		}
	}

	return len(retained), nil
}

func (m *Multiplexer) pollRetryingEINTR(fds []syscalls.PollFD, timeoutMs int) (int, error) {
	for {
		n, err := m.ops.Poll(fds, timeoutMs)
		if err == nil {
			return n, nil
		}
		if errors.Is(err, syscall.EINTR) {
			continue
		}
		return 0, err
	}
}

func (m *Multiplexer) snapshot() []syscalls.PollFD {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]syscalls.PollFD, len(m.events))
	copy(out, m.events)
	return out
}

func (m *Multiplexer) clearAndGather(retained []ready) (readLists, writeLists []*queue.Task) {
	m.mu.Lock()
	defer m.mu.Unlock()

	readLists = make([]*queue.Task, len(retained))
	writeLists = make([]*queue.Task, len(retained))

	for i, r := range retained {
		e, ok := m.entries[r.fd]
		if !ok {
			continue
		}

		isFatal := r.revents&(syscalls.POLLERR|syscalls.POLLNVAL) != 0
		if isFatal {
			code, gerr := m.ops.GetsockoptInt(int(r.fd), m.SOLevel, m.SOErrOpt)
			if code == 0 {
				// The SO_ERROR probe itself can fail (most commonly EBADF,
				// when POLLNVAL was reported because the fd was closed out
				// from under us): fall back to the probe's own errno, or to
				// EIO when the probe gives no errno or reports zero, rather
				// than latching a misleading zero, so the socket is never
				// left looking healthy after POLLERR/POLLNVAL fired.
				if errno, isErrno := gerr.(syscall.Errno); isErrno && errno != 0 {
					code = int(errno)
				} else {
					code = int(syscall.EIO)
				}
			}
			if e.errSink != nil {
				e.errSink.SetError(code)
			}
			m.unmergeLocked(r.fd, syscalls.POLLIN|syscalls.POLLOUT)
			readLists[i] = e.read.Detach()
			writeLists[i] = e.write.Detach()
			continue
		}

		if r.revents&syscalls.POLLOUT != 0 && !e.write.Empty() {
			writeLists[i] = e.write.Detach()
			m.unmergeLocked(r.fd, syscalls.POLLOUT)
		}
		if r.revents&(syscalls.POLLIN|syscalls.POLLHUP) != 0 && !e.read.Empty() {
			readLists[i] = e.read.Detach()
			m.unmergeLocked(r.fd, syscalls.POLLIN)
		}
	}
	return readLists, writeLists
}
