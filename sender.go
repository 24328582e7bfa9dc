package asio

import (
	"syscall"

	"github.com/sockloop/asio/internal/poller"
	"github.com/sockloop/asio/internal/queue"
)

// Receiver is the consumer of a Sender's single completion signal: exactly
// one of Value or Error is called, exactly once, per Operation.
type Receiver[T any] interface {
	Value(T)
	Error(error)
}

// Operation is what Sender.Connect produces: a value with a stable address
// (it must be accessed through the *pointer* Connect returns) whose Start
// method arms the operation. Intrusive queue membership depends on that
// address staying stable from Connect until completion.
type Operation interface {
	Start()
}

// RetryFunc is the retry closure a readiness-driven Sender wraps: it
// performs the underlying syscall and reports success (ok=true, value),
// would-block (ok=false, err=nil) or a fatal error (err!=nil).
type RetryFunc[T any] func() (value T, ok bool, err error)

// PollSender is the sender the readiness multiplexer produces: given a
// socket, a waited-on direction, and a retry closure, it completes with
// value(T) once the closure reports success, or error(err) on any fatal
// outcome. Construction is pure; nothing is registered with the
// multiplexer until Connect.
type PollSender[T any] struct {
	socket *Socket
	mux    *poller.Multiplexer
	dir    poller.Direction
	retry  RetryFunc[T]
}

// NewPollSender builds a PollSender. socket and mux must outlive the
// returned sender and any Operation connected from it.
func NewPollSender[T any](socket *Socket, mux *poller.Multiplexer, dir poller.Direction, retry RetryFunc[T]) *PollSender[T] {
	return &PollSender[T]{socket: socket, mux: mux, dir: dir, retry: retry}
}

// Connect produces an *pollOperation[T]. If the socket is not already in an
// error state, this inserts-or-merges a poll event for the socket's fd into
// the multiplexer's interest list.
func (s *PollSender[T]) Connect(r Receiver[T]) Operation {
	op := &pollOperation[T]{socket: s.socket, mux: s.mux, dir: s.dir, retry: s.retry, receiver: r}
	op.task.Run = op.dispatch
	if s.socket.GetError() == 0 {
		s.mux.Merge(int32(s.socket.NativeID()), s.dir, s.socket)
	}
	return op
}

// pollOperation is the operation state produced by PollSender.Connect. Its
// task field is an intrusive queue.Task; the task's address (&op.task) is
// what gets linked onto the multiplexer's per-fd FIFOs, so op itself must
// never be copied after Connect.
type pollOperation[T any] struct {
	socket   *Socket
	mux      *poller.Multiplexer
	dir      poller.Direction
	retry    RetryFunc[T]
	receiver Receiver[T]
	task     queue.Task
}

// Start installs the operation onto the socket's read or write queue. If
// the socket already carries a latched error, it completes immediately
// without touching the multiplexer.
func (op *pollOperation[T]) Start() {
	if code := op.socket.GetError(); code != 0 {
		op.receiver.Error(newError("start", CodeSocketAsyncError, syscall.Errno(code), "socket has a latched async error"))
		return
	}
	op.mux.Park(int32(op.socket.NativeID()), op.dir, &op.task)
}

// dispatch is invoked by the multiplexer when the task is popped off its
// queue during WaitFor. It re-runs the retry closure and either completes
// the operation or re-parks it.
func (op *pollOperation[T]) dispatch() {
	val, ok, err := op.retry()
	if err != nil {
		op.receiver.Error(err)
		return
	}
	if ok {
		op.receiver.Value(val)
		return
	}
	op.mux.Park(int32(op.socket.NativeID()), op.dir, &op.task)
}

// FuncReceiver adapts two plain closures to the Receiver interface, for
// callers who don't want to define a named type per call site.
type FuncReceiver[T any] struct {
	OnValue func(T)
	OnError func(error)
}

func (f FuncReceiver[T]) Value(v T) {
	if f.OnValue != nil {
		f.OnValue(v)
	}
}

func (f FuncReceiver[T]) Error(err error) {
	if f.OnError != nil {
		f.OnError(err)
	}
}

// Future is a Receiver that stashes its single completion into a buffered
// channel, letting a caller drive wait_for in a loop and then read the
// result without building its own synchronization.
type Future[T any] struct {
	ch chan futureResult[T]
}

type futureResult[T any] struct {
	value T
	err   error
}

// NewFuture returns a ready-to-connect Future.
func NewFuture[T any]() *Future[T] {
	return &Future[T]{ch: make(chan futureResult[T], 1)}
}

func (f *Future[T]) Value(v T) { f.ch <- futureResult[T]{value: v} }
func (f *Future[T]) Error(err error) { f.ch <- futureResult[T]{err: err} }

// Ready reports whether the operation has completed, without blocking.
func (f *Future[T]) Ready() bool {
	return len(f.ch) > 0
}

// Wait blocks until the operation completes and returns its result. Callers
// typically only call Wait after driving wait_for until Ready reports true,
// to avoid blocking the single thread that also owns the multiplexer.
func (f *Future[T]) Wait() (T, error) {
	r := <-f.ch
	f.ch <- r // allow repeated Wait calls to observe the same result
	return r.value, r.err
}
