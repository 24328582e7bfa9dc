package asio

import (
	"testing"

	"github.com/sockloop/asio/internal/poller"
	"github.com/sockloop/asio/internal/syscalls"
)

func newTestSocket(ops syscalls.SocketOps) *Socket {
	s, err := newSocketWithOps(ops, 0, 0, 0)
	if err != nil {
		panic(err)
	}
	return s
}

func TestPollSenderCompletesOnValue(t *testing.T) {
	fake := syscalls.NewFake()
	mux := poller.New(fake, 1, 4)
	sock := newTestSocket(fake)

	calls := 0
	retry := func() (int, bool, error) {
		calls++
		if calls < 2 {
			return 0, false, nil
		}
		return 7, true, nil
	}

	sender := NewPollSender[int](sock, mux, poller.Write, retry)
	future := NewFuture[int]()
	op := sender.Connect(future)
	op.Start()

	fake.OnPoll = func(fds []syscalls.PollFD, timeoutMs int) (int, error) {
		for i := range fds {
			fds[i].Revents = syscalls.POLLOUT
		}
		return len(fds), nil
	}

	for i := 0; i < 3 && !future.Ready(); i++ {
		if _, err := mux.WaitFor(0); err != nil {
			t.Fatalf("WaitFor: %v", err)
		}
	}

	if !future.Ready() {
		t.Fatal("expected operation to complete after re-parking once")
	}
	v, err := future.Wait()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 7 {
		t.Fatalf("value = %d, want 7", v)
	}
}

func TestPollSenderCompletesOnError(t *testing.T) {
	fake := syscalls.NewFake()
	mux := poller.New(fake, 1, 4)
	sock := newTestSocket(fake)

	wantErr := newError("retry", CodeSyscallFailed, 0, "boom")
	retry := func() (int, bool, error) {
		return 0, false, wantErr
	}

	sender := NewPollSender[int](sock, mux, poller.Read, retry)
	future := NewFuture[int]()
	op := sender.Connect(future)
	op.Start()

	fake.OnPoll = func(fds []syscalls.PollFD, timeoutMs int) (int, error) {
		for i := range fds {
			fds[i].Revents = syscalls.POLLIN
		}
		return len(fds), nil
	}

	if _, err := mux.WaitFor(0); err != nil {
		t.Fatalf("WaitFor: %v", err)
	}
	if !future.Ready() {
		t.Fatal("expected operation to complete")
	}
	if _, err := future.Wait(); err != wantErr {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
}

func TestPollSenderLatchedSocketErrorCompletesAtStart(t *testing.T) {
	fake := syscalls.NewFake()
	mux := poller.New(fake, 1, 4)
	sock := newTestSocket(fake)
	sock.SetError(5)

	retry := func() (int, bool, error) {
		t.Fatal("retry closure should not run when socket already has a latched error")
		return 0, false, nil
	}

	sender := NewPollSender[int](sock, mux, poller.Read, retry)
	future := NewFuture[int]()
	op := sender.Connect(future)
	op.Start()

	if !future.Ready() {
		t.Fatal("expected immediate completion on latched socket error")
	}
	if _, err := future.Wait(); err == nil {
		t.Fatal("expected a non-nil error")
	}
}

func TestFIFOFairnessAcrossOperations(t *testing.T) {
	fake := syscalls.NewFake()
	mux := poller.New(fake, 1, 4)
	sock := newTestSocket(fake)

	fake.OnPoll = func(fds []syscalls.PollFD, timeoutMs int) (int, error) {
		for i := range fds {
			fds[i].Revents = syscalls.POLLOUT
		}
		return len(fds), nil
	}

	const n = 20
	var order []int
	futures := make([]*Future[int], n)
	for i := 0; i < n; i++ {
		i := i
		retry := func() (int, bool, error) {
			order = append(order, i)
			return i, true, nil
		}
		sender := NewPollSender[int](sock, mux, poller.Write, retry)
		futures[i] = NewFuture[int]()
		op := sender.Connect(futures[i])
		op.Start()
	}

	if _, err := mux.WaitFor(0); err != nil {
		t.Fatalf("WaitFor: %v", err)
	}

	for i, v := range order {
		if v != i {
			t.Fatalf("dispatch order = %v, want 0..%d ascending", order, n-1)
		}
	}
}
