package asio

import (
	"context"
	"sync"
	"weak"

	"github.com/sockloop/asio/internal/logging"
	"github.com/sockloop/asio/internal/poller"
	"github.com/sockloop/asio/internal/syscalls"
)

// Triggers owns a single readiness multiplexer and a minimal
// structured-concurrency scope for long-lived operations spawned against
// it. It is the executor/facade the module's verb functions resolve
// through a Dialog's weak reference. The concrete scope type used to track
// outstanding operations is explicitly out of scope for the core design;
// this WaitGroup/CancelFunc pair is the smallest faithful stand-in that
// still lets callers wait for spawned work to quiesce and ask it to stop.
type Triggers struct {
	mux *poller.Multiplexer
	ops syscalls.SocketOps

	solSocket int
	soError   int
	soType    int

	observer Observer
	log      *logging.Logger

	scopeWG     sync.WaitGroup
	scopeCtx    context.Context
	scopeCancel context.CancelFunc
}

// NewTriggers returns a Triggers using syscalls.Default and the given
// platform SOL_SOCKET/SO_ERROR/SO_TYPE numeric constants (see
// NewDefaultTriggers in triggers_unix.go/triggers_windows.go, which already
// knows these values).
func NewTriggers(solSocket, soError, soType int, observer Observer) *Triggers {
	return newTriggersWithOps(syscalls.Default, solSocket, soError, soType, observer)
}

func newTriggersWithOps(ops syscalls.SocketOps, solSocket, soError, soType int, observer Observer) *Triggers {
	if observer == nil {
		observer = NoOpObserver{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Triggers{
		mux:         poller.New(ops, solSocket, soError),
		ops:         ops,
		solSocket:   solSocket,
		soError:     soError,
		soType:      soType,
		observer:    observer,
		log:         logging.Default(),
		scopeCtx:    ctx,
		scopeCancel: cancel,
	}
}

// WaitFor drives one poll cycle of the owned multiplexer. See
// poller.Multiplexer.WaitFor.
func (t *Triggers) WaitFor(timeoutMs int) (int, error) {
	return t.mux.WaitFor(timeoutMs)
}

// Spawn runs fn in a goroutine tracked by the executor's scope; Shutdown
// cancels the scope context and then waits for every spawned fn to return.
// fn receives the scope's context so it can observe cancellation.
func (t *Triggers) Spawn(fn func(context.Context)) {
	t.scopeWG.Add(1)
	go func() {
		defer t.scopeWG.Done()
		fn(t.scopeCtx)
	}()
}

// Shutdown cancels the scope context and waits for every spawned goroutine
// to return.
func (t *Triggers) Shutdown() {
	t.log.Debug("shutting down executor scope")
	t.scopeCancel()
	t.scopeWG.Wait()
}

// Push creates a new socket handle via socket(domain, type, protocol), puts
// it in non-blocking mode, and returns a Dialog bound to this executor.
func (t *Triggers) Push(domain, typ, protocol int) (Dialog, error) {
	sock, err := newSocketWithOps(t.ops, domain, typ, protocol)
	if err != nil {
		t.log.Errorf("push: socket(domain=%d, type=%d, protocol=%d) failed: %v", domain, typ, protocol, err)
		return Dialog{}, err
	}
	if err := t.ops.SetNonblocking(sock.NativeID(), true); err != nil {
		sock.Close()
		return Dialog{}, newError("push", CodeSyscallFailed, errnoOf(err), err.Error())
	}
	t.log.Debug("pushed socket", "fd", sock.NativeID())
	return Dialog{executor: weak.Make(t), socket: sock}, nil
}

// Emplace wraps an already-open native descriptor as a Dialog bound to this
// executor, after validating it with AdoptSocket and forcing it
// non-blocking.
func (t *Triggers) Emplace(fd int) (Dialog, error) {
	sock, err := adoptSocketWithOps(t.ops, fd, t.solSocket, t.soType)
	if err != nil {
		return Dialog{}, err
	}
	if err := t.ops.SetNonblocking(sock.NativeID(), true); err != nil {
		return Dialog{}, newError("emplace", CodeSyscallFailed, errnoOf(err), err.Error())
	}
	return Dialog{executor: weak.Make(t), socket: sock}, nil
}

// Dialog is a light value pairing a weak reference to the owning Triggers
// with a shared reference to a socket handle. Holding only a weak
// reference to the executor avoids a reference cycle (Triggers owns no
// Dialogs, but a user might keep a Dialog alive long after dropping its
// Triggers). The socket handle itself is shared with every parked
// operation targeting it, so in-flight operations stay valid even if the
// user drops the Dialog.
type Dialog struct {
	executor weak.Pointer[Triggers]
	socket   *Socket
}

// Executor resolves the Dialog's weak executor reference, or reports
// InvalidExecutor if it has expired.
func (d Dialog) Executor() (*Triggers, error) {
	t := d.executor.Value()
	if t == nil {
		return nil, newError("dialog", CodeInvalidExecutor, 0, "executor has been collected")
	}
	return t, nil
}

// Socket returns the Dialog's underlying socket handle.
func (d Dialog) Socket() *Socket {
	return d.socket
}

// NativeID returns the Dialog's underlying native descriptor.
func (d Dialog) NativeID() int {
	return d.socket.NativeID()
}

// Equal compares two dialogs by underlying socket handle identity.
func (d Dialog) Equal(other Dialog) bool {
	return d.socket == other.socket
}
