package asio

import (
	"sync/atomic"
	"time"
)

// LatencyBuckets defines the latency histogram buckets in nanoseconds,
// covering 1us to 10s with logarithmic spacing.
var LatencyBuckets = []uint64{
	1_000,
	10_000,
	100_000,
	1_000_000,
	10_000_000,
	100_000_000,
	1_000_000_000,
	10_000_000_000,
}

const numLatencyBuckets = 8

// Metrics tracks performance and operational statistics for one Triggers
// instance's socket verbs.
type Metrics struct {
	SendOps   atomic.Uint64
	RecvOps   atomic.Uint64
	AcceptOps atomic.Uint64

	SendBytes atomic.Uint64
	RecvBytes atomic.Uint64

	SendErrors   atomic.Uint64
	RecvErrors   atomic.Uint64
	AcceptErrors atomic.Uint64

	ParkedOpsTotal atomic.Uint64 // operations that re-parked at least once
	WouldBlockHits atomic.Uint64

	TotalLatencyNs atomic.Uint64
	OpCount        atomic.Uint64
	LatencyBuckets [numLatencyBuckets]atomic.Uint64

	StartTime atomic.Int64
}

// NewMetrics returns a Metrics with StartTime set to now.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// RecordSend records a completed sendmsg (success or failure).
func (m *Metrics) RecordSend(bytes uint64, latencyNs uint64, success bool) {
	m.SendOps.Add(1)
	if success {
		m.SendBytes.Add(bytes)
	} else {
		m.SendErrors.Add(1)
	}
	m.recordLatency(latencyNs)
}

// RecordRecv records a completed recvmsg (success or failure).
func (m *Metrics) RecordRecv(bytes uint64, latencyNs uint64, success bool) {
	m.RecvOps.Add(1)
	if success {
		m.RecvBytes.Add(bytes)
	} else {
		m.RecvErrors.Add(1)
	}
	m.recordLatency(latencyNs)
}

// RecordAccept records a completed accept (success or failure).
func (m *Metrics) RecordAccept(latencyNs uint64, success bool) {
	m.AcceptOps.Add(1)
	if !success {
		m.AcceptErrors.Add(1)
	}
	m.recordLatency(latencyNs)
}

// RecordWouldBlock records a retry-closure invocation that returned absent.
func (m *Metrics) RecordWouldBlock() {
	m.WouldBlockHits.Add(1)
}

func (m *Metrics) recordLatency(latencyNs uint64) {
	m.TotalLatencyNs.Add(latencyNs)
	m.OpCount.Add(1)
	for i, bucket := range LatencyBuckets {
		if latencyNs <= bucket {
			m.LatencyBuckets[i].Add(1)
		}
	}
}

// MetricsSnapshot is a point-in-time, non-atomic copy of Metrics suitable
// for logging or export.
type MetricsSnapshot struct {
	SendOps, RecvOps, AcceptOps          uint64
	SendBytes, RecvBytes                 uint64
	SendErrors, RecvErrors, AcceptErrors uint64
	WouldBlockHits                       uint64

	AvgLatencyNs  uint64
	LatencyP50Ns  uint64
	LatencyP99Ns  uint64
	LatencyP999Ns uint64

	LatencyHistogram [numLatencyBuckets]uint64

	TotalOps   uint64
	TotalBytes uint64
	ErrorRate  float64
	UptimeNs   uint64
}

// Snapshot takes a consistent-enough point-in-time copy of m.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		SendOps:        m.SendOps.Load(),
		RecvOps:        m.RecvOps.Load(),
		AcceptOps:      m.AcceptOps.Load(),
		SendBytes:      m.SendBytes.Load(),
		RecvBytes:      m.RecvBytes.Load(),
		SendErrors:     m.SendErrors.Load(),
		RecvErrors:     m.RecvErrors.Load(),
		AcceptErrors:   m.AcceptErrors.Load(),
		WouldBlockHits: m.WouldBlockHits.Load(),
	}

	snap.TotalOps = snap.SendOps + snap.RecvOps + snap.AcceptOps
	snap.TotalBytes = snap.SendBytes + snap.RecvBytes
	totalErrors := snap.SendErrors + snap.RecvErrors + snap.AcceptErrors
	if snap.TotalOps > 0 {
		snap.ErrorRate = float64(totalErrors) / float64(snap.TotalOps) * 100
	}

	opCount := m.OpCount.Load()
	totalLatency := m.TotalLatencyNs.Load()
	if opCount > 0 {
		snap.AvgLatencyNs = totalLatency / opCount
	}

	for i := range snap.LatencyHistogram {
		snap.LatencyHistogram[i] = m.LatencyBuckets[i].Load()
	}
	snap.LatencyP50Ns = estimatePercentile(snap.LatencyHistogram[:], opCount, 0.50)
	snap.LatencyP99Ns = estimatePercentile(snap.LatencyHistogram[:], opCount, 0.99)
	snap.LatencyP999Ns = estimatePercentile(snap.LatencyHistogram[:], opCount, 0.999)

	snap.UptimeNs = uint64(time.Now().UnixNano() - m.StartTime.Load())
	return snap
}

// estimatePercentile walks the cumulative histogram buckets and linearly
// interpolates within the bucket the target rank falls into, the same
// approximation used for latency percentiles anywhere a full sample set
// isn't retained.
func estimatePercentile(cumulative []uint64, total uint64, p float64) uint64 {
	if total == 0 {
		return 0
	}
	target := uint64(float64(total) * p)
	prevBucket, prevCount := uint64(0), uint64(0)
	for i, count := range cumulative {
		if count >= target {
			bucket := LatencyBuckets[i]
			if count == prevCount {
				return bucket
			}
			frac := float64(target-prevCount) / float64(count-prevCount)
			return prevBucket + uint64(frac*float64(bucket-prevBucket))
		}
		prevBucket, prevCount = LatencyBuckets[i], count
	}
	return LatencyBuckets[len(LatencyBuckets)-1]
}

// Observer is the pluggable metrics-collection hook the Accept, Sendmsg and
// Recvmsg retry closures call through, independent of whether a Metrics
// instance is actually wired in. Connect does not report to it.
type Observer interface {
	ObserveSend(bytes uint64, latencyNs uint64, success bool)
	ObserveRecv(bytes uint64, latencyNs uint64, success bool)
	ObserveAccept(latencyNs uint64, success bool)
	ObserveWouldBlock()
}

// NoOpObserver discards every observation.
type NoOpObserver struct{}

func (NoOpObserver) ObserveSend(uint64, uint64, bool) {}
func (NoOpObserver) ObserveRecv(uint64, uint64, bool) {}
func (NoOpObserver) ObserveAccept(uint64, bool)       {}
func (NoOpObserver) ObserveWouldBlock()               {}

// MetricsObserver implements Observer by recording into a Metrics.
type MetricsObserver struct {
	metrics *Metrics
}

// NewMetricsObserver returns an Observer backed by m.
func NewMetricsObserver(m *Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) ObserveSend(bytes, latencyNs uint64, success bool) {
	o.metrics.RecordSend(bytes, latencyNs, success)
}

func (o *MetricsObserver) ObserveRecv(bytes, latencyNs uint64, success bool) {
	o.metrics.RecordRecv(bytes, latencyNs, success)
}

func (o *MetricsObserver) ObserveAccept(latencyNs uint64, success bool) {
	o.metrics.RecordAccept(latencyNs, success)
}

func (o *MetricsObserver) ObserveWouldBlock() {
	o.metrics.RecordWouldBlock()
}
