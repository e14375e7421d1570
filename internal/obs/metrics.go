package obs

import (
	"sync/atomic"
	"time"

	"marketdata/internal/model/enum"
)

const maxOperation = 8

// Metrics collects lightweight counters and latency stats.
type Metrics struct {
	dispatched      [maxOperation]uint64
	handled         [maxOperation]uint64
	resolved        uint64
	timeouts        uint64
	publishFailures uint64
	lateResponses   uint64
	undecodable     uint64
	commits         uint64
	rollbacks       uint64

	roundTripLatency LatencyStats
	txLatency        LatencyStats
}

// LatencyStats aggregates duration samples in nanoseconds.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration
	Sum   time.Duration
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	Dispatched       map[enum.Operation]uint64
	Handled          map[enum.Operation]uint64
	Resolved         uint64
	Timeouts         uint64
	PublishFailures  uint64
	LateResponses    uint64
	Undecodable      uint64
	Commits          uint64
	Rollbacks        uint64
	RoundTripLatency LatencySnapshot
	TxLatency        LatencySnapshot
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// IncDispatched counts a command published by the gateway.
func (m *Metrics) IncDispatched(op enum.Operation) {
	if m == nil {
		return
	}
	if idx := int(op); idx >= 0 && idx < maxOperation {
		atomic.AddUint64(&m.dispatched[idx], 1)
	}
}

// IncHandled counts a command answered by the broker.
func (m *Metrics) IncHandled(op enum.Operation) {
	if m == nil {
		return
	}
	if idx := int(op); idx >= 0 && idx < maxOperation {
		atomic.AddUint64(&m.handled[idx], 1)
	}
}

// ObserveResolved records a response delivered to its waiting caller.
func (m *Metrics) ObserveResolved(d time.Duration) {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.resolved, 1)
	m.roundTripLatency.Observe(d)
}

func (m *Metrics) IncTimeout() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.timeouts, 1)
}

func (m *Metrics) IncPublishFailure() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.publishFailures, 1)
}

// IncLateResponse records a response whose token had no pending caller.
func (m *Metrics) IncLateResponse() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.lateResponses, 1)
}

// IncUndecodable records an envelope that could not be parsed.
func (m *Metrics) IncUndecodable() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.undecodable, 1)
}

// ObserveCommit records a committed engine transaction.
func (m *Metrics) ObserveCommit(d time.Duration) {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.commits, 1)
	m.txLatency.Observe(d)
}

// IncRollback records a rolled back engine transaction.
func (m *Metrics) IncRollback() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.rollbacks, 1)
}

// Snapshot returns a copy of the current metrics values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	return Snapshot{
		Dispatched:       loadOps(&m.dispatched),
		Handled:          loadOps(&m.handled),
		Resolved:         atomic.LoadUint64(&m.resolved),
		Timeouts:         atomic.LoadUint64(&m.timeouts),
		PublishFailures:  atomic.LoadUint64(&m.publishFailures),
		LateResponses:    atomic.LoadUint64(&m.lateResponses),
		Undecodable:      atomic.LoadUint64(&m.undecodable),
		Commits:          atomic.LoadUint64(&m.commits),
		Rollbacks:        atomic.LoadUint64(&m.rollbacks),
		RoundTripLatency: m.roundTripLatency.Snapshot(),
		TxLatency:        m.txLatency.Snapshot(),
	}
}

func loadOps(counts *[maxOperation]uint64) map[enum.Operation]uint64 {
	out := make(map[enum.Operation]uint64)
	for i := range counts {
		if v := atomic.LoadUint64(&counts[i]); v > 0 {
			out[enum.Operation(i)] = v
		}
	}
	return out
}

// Observe records a duration sample.
func (l *LatencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	nanos := uint64(d)
	atomic.AddUint64(&l.count, 1)
	atomic.AddUint64(&l.sum, nanos)

	for {
		min := atomic.LoadUint64(&l.min)
		if min != 0 && nanos >= min {
			break
		}
		if atomic.CompareAndSwapUint64(&l.min, min, nanos) {
			break
		}
	}

	for {
		max := atomic.LoadUint64(&l.max)
		if nanos <= max {
			break
		}
		if atomic.CompareAndSwapUint64(&l.max, max, nanos) {
			break
		}
	}
}

// Snapshot returns the aggregated latency stats.
func (l *LatencyStats) Snapshot() LatencySnapshot {
	count := atomic.LoadUint64(&l.count)
	if count == 0 {
		return LatencySnapshot{}
	}
	sum := atomic.LoadUint64(&l.sum)
	min := atomic.LoadUint64(&l.min)
	max := atomic.LoadUint64(&l.max)
	return LatencySnapshot{
		Count: count,
		Min:   time.Duration(min),
		Max:   time.Duration(max),
		Avg:   time.Duration(sum / count),
		Sum:   time.Duration(sum),
	}
}
