package obs

import (
	"sync/atomic"
	"time"

	"main/internal/schema"
)

const maxStatus = int(schema.StatusFailed)

// Metrics collects lightweight counters and latency stats for the
// execution pipeline.
type Metrics struct {
	statusCounts [maxStatus + 1]uint64
	queueDrops   uint64
	queueClosed  uint64
	sinkDrops    uint64
	retries      uint64

	routingLatency    LatencyStats
	settlementLatency LatencyStats
	executionLatency  LatencyStats
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
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	StatusCounts      map[schema.OrderStatus]uint64
	QueueDrops        uint64
	QueueClosed       uint64
	SinkDrops         uint64
	Retries           uint64
	RoutingLatency    LatencySnapshot
	SettlementLatency LatencySnapshot
	ExecutionLatency  LatencySnapshot
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// IncStatus counts one emitted status update.
func (m *Metrics) IncStatus(status schema.OrderStatus) {
	if m == nil {
		return
	}
	idx := int(status)
	if idx >= 0 && idx < len(m.statusCounts) {
		atomic.AddUint64(&m.statusCounts[idx], 1)
	}
}

// IncQueueDrop records a rejected enqueue.
func (m *Metrics) IncQueueDrop() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.queueDrops, 1)
}

// IncQueueClosed records a closed-queue enqueue attempt.
func (m *Metrics) IncQueueClosed() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.queueClosed, 1)
}

// IncSinkDrop records a status update with no registered observer.
func (m *Metrics) IncSinkDrop() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.sinkDrops, 1)
}

// IncRetry records a re-enqueued attempt.
func (m *Metrics) IncRetry() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.retries, 1)
}

// ObserveRouting measures one price-discovery call.
func (m *Metrics) ObserveRouting(d time.Duration) {
	if m == nil {
		return
	}
	m.routingLatency.Observe(d)
}

// ObserveSettlement measures one settlement call.
func (m *Metrics) ObserveSettlement(d time.Duration) {
	if m == nil {
		return
	}
	m.settlementLatency.Observe(d)
}

// ObserveExecution measures one full job attempt.
func (m *Metrics) ObserveExecution(d time.Duration) {
	if m == nil {
		return
	}
	m.executionLatency.Observe(d)
}

// Snapshot returns a copy of the current metrics values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	statusCounts := make(map[schema.OrderStatus]uint64)
	for i := range m.statusCounts {
		if v := atomic.LoadUint64(&m.statusCounts[i]); v > 0 {
			statusCounts[schema.OrderStatus(i)] = v
		}
	}
	return Snapshot{
		StatusCounts:      statusCounts,
		QueueDrops:        atomic.LoadUint64(&m.queueDrops),
		QueueClosed:       atomic.LoadUint64(&m.queueClosed),
		SinkDrops:         atomic.LoadUint64(&m.sinkDrops),
		Retries:           atomic.LoadUint64(&m.retries),
		RoutingLatency:    m.routingLatency.Snapshot(),
		SettlementLatency: m.settlementLatency.Snapshot(),
		ExecutionLatency:  m.executionLatency.Snapshot(),
	}
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
	}
}
