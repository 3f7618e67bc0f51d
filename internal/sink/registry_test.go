package sink

import (
	"testing"

	"main/internal/obs"
	"main/internal/schema"
)

type recordChannel struct {
	updates []schema.StatusUpdate
	closed  bool
}

func (c *recordChannel) Send(update schema.StatusUpdate) error {
	c.updates = append(c.updates, update)
	return nil
}

func (c *recordChannel) Close() error {
	c.closed = true
	return nil
}

func TestDeliverToRegisteredChannel(t *testing.T) {
	reg := NewRegistry(obs.NewMetrics())
	ch := &recordChannel{}
	reg.Register("o-1", ch)

	reg.Deliver("o-1", schema.StatusUpdate{OrderID: "o-1", Status: schema.StatusPending})
	if len(ch.updates) != 1 {
		t.Fatalf("got %d updates, want 1", len(ch.updates))
	}
}

func TestDeliverWithoutChannelCountsDrop(t *testing.T) {
	metrics := obs.NewMetrics()
	reg := NewRegistry(metrics)

	reg.Deliver("absent", schema.StatusUpdate{OrderID: "absent", Status: schema.StatusPending})
	if drops := metrics.Snapshot().SinkDrops; drops != 1 {
		t.Fatalf("got %d sink drops, want 1", drops)
	}
}

func TestRegisterIsIdempotent(t *testing.T) {
	reg := NewRegistry(obs.NewMetrics())
	ch := &recordChannel{}
	reg.Register("o-1", ch)
	reg.Register("o-1", ch)

	reg.Deliver("o-1", schema.StatusUpdate{OrderID: "o-1", Status: schema.StatusPending})
	if len(ch.updates) != 1 {
		t.Fatalf("duplicate register caused %d deliveries, want 1", len(ch.updates))
	}

	reg.Unregister("o-1")
	reg.Unregister("o-1")
	reg.Deliver("o-1", schema.StatusUpdate{OrderID: "o-1", Status: schema.StatusRouting})
	if len(ch.updates) != 1 {
		t.Fatalf("delivery after unregister: got %d updates, want 1", len(ch.updates))
	}
}

func TestDrainClosesChannels(t *testing.T) {
	reg := NewRegistry(obs.NewMetrics())
	ch := &recordChannel{}
	reg.Register("o-1", ch)

	reg.Drain()
	if !ch.closed {
		t.Fatal("drain did not close the channel")
	}
	if reg.Count() != 0 {
		t.Fatalf("registry not empty after drain: %d", reg.Count())
	}
}
