//go:build linux || darwin

package asio

import (
	"testing"
	"time"

	"github.com/sockloop/asio/internal/sockaddr"
	"golang.org/x/sys/unix"
)

// driveUntil repeatedly calls triggers.WaitFor until ready reports true or the
// deadline passes, the way a single-threaded caller is expected to drive the
// executor alongside its own readiness checks.
func driveUntil(t *testing.T, triggers *Triggers, ready func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !ready() {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for operation to complete")
		}
		if _, err := triggers.WaitFor(50); err != nil {
			t.Fatalf("WaitFor: %v", err)
		}
	}
}

func TestEchoOverUnixSocketpair(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("Socketpair: %v", err)
	}

	triggers := NewDefaultTriggers(nil)
	sender, err := triggers.Emplace(fds[0])
	if err != nil {
		t.Fatalf("Emplace sender: %v", err)
	}
	receiver, err := triggers.Emplace(fds[1])
	if err != nil {
		t.Fatalf("Emplace receiver: %v", err)
	}

	sendMsg := NewMessage()
	sendMsg.Buf.PushBack([]byte("hello, asio"))
	sendSender, err := Sendmsg(sender, sendMsg, 0)
	if err != nil {
		t.Fatalf("Sendmsg: %v", err)
	}
	sendFuture := NewFuture[int]()
	sendSender.Connect(sendFuture).Start()

	recvBuf := make([]byte, 64)
	recvMsg := NewMessage()
	recvMsg.Buf.PushBack(recvBuf)
	recvSender, err := Recvmsg(receiver, recvMsg, 0)
	if err != nil {
		t.Fatalf("Recvmsg: %v", err)
	}
	recvFuture := NewFuture[int]()
	recvSender.Connect(recvFuture).Start()

	driveUntil(t, triggers, func() bool { return sendFuture.Ready() && recvFuture.Ready() })

	sent, err := sendFuture.Wait()
	if err != nil {
		t.Fatalf("send future: %v", err)
	}
	if sent != len("hello, asio") {
		t.Fatalf("sent = %d, want %d", sent, len("hello, asio"))
	}

	n, err := recvFuture.Wait()
	if err != nil {
		t.Fatalf("recv future: %v", err)
	}
	if string(recvBuf[:n]) != "hello, asio" {
		t.Fatalf("received %q, want %q", recvBuf[:n], "hello, asio")
	}
}

func TestAcceptConnectHandshakeOverLoopback(t *testing.T) {
	triggers := NewDefaultTriggers(nil)

	listener, err := triggers.Push(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("Push listener: %v", err)
	}
	loopback := sockaddrInet4Bytes(t, [4]byte{127, 0, 0, 1}, 0)
	if err := Bind(listener.Socket(), loopback); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if err := Listen(listener.Socket(), 4); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	boundAddr, err := Getsockname(listener.Socket())
	if err != nil {
		t.Fatalf("Getsockname: %v", err)
	}
	_, ip, port, err := sockaddr.UnpackInet4(boundAddr.Bytes())
	if err != nil {
		t.Fatalf("unpackInet4: %v", err)
	}

	acceptSender, err := Accept(listener)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	acceptFuture := NewFuture[AcceptResult]()
	acceptSender.Connect(acceptFuture).Start()

	client, err := triggers.Push(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("Push client: %v", err)
	}
	connectSender, err := Connect(client, sockaddrInet4Bytes(t, ip, port))
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	connectFuture := NewFuture[struct{}]()
	connectSender.Connect(connectFuture).Start()

	driveUntil(t, triggers, func() bool { return acceptFuture.Ready() && connectFuture.Ready() })

	if _, err := connectFuture.Wait(); err != nil {
		t.Fatalf("connect future: %v", err)
	}
	result, err := acceptFuture.Wait()
	if err != nil {
		t.Fatalf("accept future: %v", err)
	}

	clientLocal, err := Getsockname(client.Socket())
	if err != nil {
		t.Fatalf("Getsockname(client): %v", err)
	}
	if !result.Peer.Equal(clientLocal) {
		t.Fatalf("accepted peer address %v != client local address %v", result.Peer.Bytes(), clientLocal.Bytes())
	}
}

func TestPartialSendDrainsBufferAcrossRetries(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("Socketpair: %v", err)
	}
	triggers := NewDefaultTriggers(nil)
	sender, err := triggers.Emplace(fds[0])
	if err != nil {
		t.Fatalf("Emplace: %v", err)
	}

	payload := make([]byte, 1<<20)
	for i := range payload {
		payload[i] = byte(i)
	}

	// Drain the peer concurrently so the sender's socket buffer never fills
	// up and stalls the send loop indefinitely.
	done := make(chan struct{})
	go func() {
		defer close(done)
		buf := make([]byte, 64*1024)
		total := 0
		for total < len(payload) {
			n, rerr := unix.Read(fds[1], buf)
			if n <= 0 || rerr != nil {
				return
			}
			total += n
		}
	}()

	msg := NewMessage()
	msg.Buf.PushBack(payload)

	for !msg.Buf.Empty() {
		sendSender, err := Sendmsg(sender, msg, 0)
		if err != nil {
			t.Fatalf("Sendmsg: %v", err)
		}
		future := NewFuture[int]()
		sendSender.Connect(future).Start()
		driveUntil(t, triggers, future.Ready)
		n, err := future.Wait()
		if err != nil {
			t.Fatalf("send future: %v", err)
		}
		msg.Buf.Advance(n)
	}

	<-done
	unix.Close(fds[1])
}

func TestPeerShutdownSurfacesZeroByteRecvAsValue(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("Socketpair: %v", err)
	}
	triggers := NewDefaultTriggers(nil)
	receiver, err := triggers.Emplace(fds[0])
	if err != nil {
		t.Fatalf("Emplace: %v", err)
	}
	if err := unix.Shutdown(fds[1], unix.SHUT_WR); err != nil {
		t.Fatalf("Shutdown peer: %v", err)
	}

	msg := NewMessage()
	msg.Buf.PushBack(make([]byte, 16))
	recvSender, err := Recvmsg(receiver, msg, 0)
	if err != nil {
		t.Fatalf("Recvmsg: %v", err)
	}
	future := NewFuture[int]()
	recvSender.Connect(future).Start()
	driveUntil(t, triggers, future.Ready)

	n, err := future.Wait()
	if err != nil {
		t.Fatalf("expected EOF to be a successful zero-length value, got error: %v", err)
	}
	if n != 0 {
		t.Fatalf("recv n = %d, want 0", n)
	}
}

func TestExternalCloseSurfacesPollnvalAsLatchedError(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("Socketpair: %v", err)
	}
	defer unix.Close(fds[1])

	triggers := NewDefaultTriggers(nil)
	receiver, err := triggers.Emplace(fds[0])
	if err != nil {
		t.Fatalf("Emplace: %v", err)
	}

	msg := NewMessage()
	msg.Buf.PushBack(make([]byte, 16))
	recvSender, err := Recvmsg(receiver, msg, 0)
	if err != nil {
		t.Fatalf("Recvmsg: %v", err)
	}
	future := NewFuture[int]()
	recvSender.Connect(future).Start()

	// Close the native descriptor directly, behind the Socket handle's back,
	// so the next poll cycle observes POLLNVAL rather than the handle's own
	// Close path latching anything.
	if err := unix.Close(receiver.NativeID()); err != nil {
		t.Fatalf("external close: %v", err)
	}

	driveUntil(t, triggers, future.Ready)

	if _, err := future.Wait(); err == nil {
		t.Fatal("expected the parked recvmsg to complete with a non-zero error after external close")
	}
	if code := receiver.Socket().GetError(); code == 0 {
		t.Fatal("expected the socket handle to have a non-zero latched error after POLLNVAL")
	}
}

func TestFIFOFairnessAcrossQueuedSends(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_DGRAM, 0)
	if err != nil {
		t.Fatalf("Socketpair: %v", err)
	}
	triggers := NewDefaultTriggers(nil)
	sender, err := triggers.Emplace(fds[0])
	if err != nil {
		t.Fatalf("Emplace: %v", err)
	}
	defer unix.Close(fds[1])

	const n = 100
	order := make([]int, 0, n)
	futures := make([]*Future[int], n)
	for i := 0; i < n; i++ {
		msg := NewMessage()
		msg.Buf.PushBack([]byte{byte(i)})
		s, err := Sendmsg(sender, msg, 0)
		if err != nil {
			t.Fatalf("Sendmsg[%d]: %v", i, err)
		}
		idx := i
		futures[i] = NewFuture[int]()
		recv := FuncReceiver[int]{
			OnValue: func(int) { order = append(order, idx) },
			OnError: func(err error) { t.Errorf("send[%d] failed: %v", idx, err) },
		}
		s.Connect(recv).Start()
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(order) < n {
		if time.Now().After(deadline) {
			t.Fatalf("only %d/%d sends completed before timeout", len(order), n)
		}
		if _, err := triggers.WaitFor(50); err != nil {
			t.Fatalf("WaitFor: %v", err)
		}
	}

	for i, got := range order {
		if got != i {
			t.Fatalf("completion order[%d] = %d, want %d (FIFO fairness violated)", i, got, i)
		}
	}
}

func sockaddrInet4Bytes(t *testing.T, ip [4]byte, port uint16) Address {
	t.Helper()
	b := sockaddr.PackInet4(uint16(unix.AF_INET), ip, port)
	return NewAddressBytes(b)
}
