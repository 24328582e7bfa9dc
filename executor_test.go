package asio

import (
	"context"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sockloop/asio/internal/syscalls"
)

func TestTriggersPushCreatesNonBlockingDialog(t *testing.T) {
	fake := syscalls.NewFake()
	triggers := NewFakeTriggers(fake, testSOLSocket, testSOError, testSOType, nil)

	d, err := triggers.Push(0, 0, 0)
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if !d.Socket().Valid() {
		t.Fatal("expected Push to return a valid socket")
	}
	got, err := d.Executor()
	if err != nil {
		t.Fatalf("Executor: %v", err)
	}
	if got != triggers {
		t.Fatal("Executor() did not resolve back to the owning Triggers")
	}
}

func TestTriggersEmplaceAdoptsExistingDescriptor(t *testing.T) {
	fake := syscalls.NewFake()
	triggers := NewFakeTriggers(fake, testSOLSocket, testSOError, testSOType, nil)

	raw, err := fake.Socket(0, 0, 0)
	if err != nil {
		t.Fatalf("fake.Socket: %v", err)
	}

	d, err := triggers.Emplace(raw)
	if err != nil {
		t.Fatalf("Emplace: %v", err)
	}
	if d.NativeID() != raw {
		t.Fatalf("Emplace NativeID = %d, want %d", d.NativeID(), raw)
	}
}

func TestDialogEqualComparesBySocketIdentity(t *testing.T) {
	fake := syscalls.NewFake()
	triggers := NewFakeTriggers(fake, testSOLSocket, testSOError, testSOType, nil)

	a, _ := triggers.Push(0, 0, 0)
	b, _ := triggers.Push(0, 0, 0)
	aCopy := a

	if !a.Equal(aCopy) {
		t.Fatal("expected a Dialog to equal a copy of itself")
	}
	if a.Equal(b) {
		t.Fatal("expected two distinct Push results to not be Equal")
	}
}

func TestDialogExecutorReturnsInvalidExecutorOnceCollected(t *testing.T) {
	fake := syscalls.NewFake()
	triggers := NewFakeTriggers(fake, testSOLSocket, testSOError, testSOType, nil)
	d, err := triggers.Push(0, 0, 0)
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	triggers = nil
	runtime.GC()
	runtime.GC()

	if _, err := d.Executor(); err == nil {
		t.Fatal("expected Executor() to fail once the Triggers has been collected")
	}
}

func TestSpawnShutdownWaitsForGoroutines(t *testing.T) {
	fake := syscalls.NewFake()
	triggers := NewFakeTriggers(fake, testSOLSocket, testSOError, testSOType, nil)

	var ran atomic.Bool
	triggers.Spawn(func(ctx context.Context) {
		select {
		case <-ctx.Done():
		case <-time.After(10 * time.Millisecond):
		}
		ran.Store(true)
	})

	triggers.Shutdown()

	if !ran.Load() {
		t.Fatal("expected spawned goroutine to have run before Shutdown returned")
	}
}
