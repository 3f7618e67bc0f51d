package obs

import (
	"testing"
	"time"

	"main/internal/schema"
)

func TestStatusCounts(t *testing.T) {
	m := NewMetrics()
	m.IncStatus(schema.StatusPending)
	m.IncStatus(schema.StatusRouting)
	m.IncStatus(schema.StatusRouting)
	m.IncStatus(schema.StatusConfirmed)

	snap := m.Snapshot()
	if snap.StatusCounts[schema.StatusRouting] != 2 {
		t.Fatalf("routing count %d, want 2", snap.StatusCounts[schema.StatusRouting])
	}
	if snap.StatusCounts[schema.StatusPending] != 1 || snap.StatusCounts[schema.StatusConfirmed] != 1 {
		t.Fatalf("unexpected counts %v", snap.StatusCounts)
	}
	if _, ok := snap.StatusCounts[schema.StatusFailed]; ok {
		t.Fatal("zero count present in snapshot")
	}
}

func TestLatencyStats(t *testing.T) {
	var l LatencyStats
	l.Observe(10 * time.Millisecond)
	l.Observe(30 * time.Millisecond)
	l.Observe(20 * time.Millisecond)

	snap := l.Snapshot()
	if snap.Count != 3 {
		t.Fatalf("count %d, want 3", snap.Count)
	}
	if snap.Min != 10*time.Millisecond || snap.Max != 30*time.Millisecond {
		t.Fatalf("min/max %s/%s, want 10ms/30ms", snap.Min, snap.Max)
	}
	if snap.Avg != 20*time.Millisecond {
		t.Fatalf("avg %s, want 20ms", snap.Avg)
	}
}

func TestNilMetricsSafe(t *testing.T) {
	var m *Metrics
	m.IncStatus(schema.StatusPending)
	m.IncRetry()
	m.ObserveExecution(time.Second)
	if snap := m.Snapshot(); snap.Retries != 0 {
		t.Fatalf("nil metrics snapshot %+v", snap)
	}
}
