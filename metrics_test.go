package asio

import "testing"

func TestMetricsRecordSendUpdatesCounters(t *testing.T) {
	m := NewMetrics()
	m.RecordSend(100, 5_000, true)
	m.RecordSend(0, 1_000, false)

	snap := m.Snapshot()
	if snap.SendOps != 2 {
		t.Fatalf("SendOps = %d, want 2", snap.SendOps)
	}
	if snap.SendBytes != 100 {
		t.Fatalf("SendBytes = %d, want 100", snap.SendBytes)
	}
	if snap.SendErrors != 1 {
		t.Fatalf("SendErrors = %d, want 1", snap.SendErrors)
	}
}

func TestMetricsSnapshotErrorRate(t *testing.T) {
	m := NewMetrics()
	m.RecordRecv(10, 1, true)
	m.RecordRecv(0, 1, false)
	m.RecordRecv(0, 1, false)

	snap := m.Snapshot()
	if snap.TotalOps != 3 {
		t.Fatalf("TotalOps = %d, want 3", snap.TotalOps)
	}
	want := float64(2) / float64(3) * 100
	if snap.ErrorRate != want {
		t.Fatalf("ErrorRate = %v, want %v", snap.ErrorRate, want)
	}
}

func TestNoOpObserverDoesNotPanic(t *testing.T) {
	var o Observer = NoOpObserver{}
	o.ObserveSend(1, 1, true)
	o.ObserveRecv(1, 1, true)
	o.ObserveAccept(1, true)
	o.ObserveWouldBlock()
}

func TestMetricsObserverDelegates(t *testing.T) {
	m := NewMetrics()
	o := NewMetricsObserver(m)
	o.ObserveSend(50, 10, true)
	if m.SendBytes.Load() != 50 {
		t.Fatalf("SendBytes = %d, want 50", m.SendBytes.Load())
	}
}

func TestEstimatePercentileEmptyHistogram(t *testing.T) {
	if got := estimatePercentile(make([]uint64, numLatencyBuckets), 0, 0.99); got != 0 {
		t.Fatalf("estimatePercentile on empty histogram = %d, want 0", got)
	}
}
