package sink

import (
	"io"
	"sync"

	"github.com/yanun0323/logs"

	"main/internal/obs"
	"main/internal/schema"
)

// Channel receives status updates for a single order. Implementations are
// owned by the transport layer; Send must be safe for sequential calls
// from one worker goroutine.
type Channel interface {
	Send(update schema.StatusUpdate) error
}

// Registry maps live orders to their observer channels. Delivery is
// best-effort: a missing or failing channel never surfaces an error to
// the pipeline.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]Channel
	metrics  *obs.Metrics
}

// NewRegistry creates an empty sink registry.
func NewRegistry(metrics *obs.Metrics) *Registry {
	return &Registry{
		channels: make(map[string]Channel),
		metrics:  metrics,
	}
}

// Register attaches a channel for the order. Re-registering the same
// order replaces the previous channel, so an order never has more than
// one live observer.
func (r *Registry) Register(orderID string, ch Channel) {
	if orderID == "" || ch == nil {
		return
	}
	r.mu.Lock()
	r.channels[orderID] = ch
	r.mu.Unlock()
}

// Unregister detaches the order's channel. Unregistering an absent order
// is a no-op.
func (r *Registry) Unregister(orderID string) {
	r.mu.Lock()
	delete(r.channels, orderID)
	r.mu.Unlock()
}

// Count returns the number of live channels.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels)
}

// Deliver pushes one update to the order's channel if present. Missed and
// failed deliveries are counted and dropped, never propagated.
func (r *Registry) Deliver(orderID string, update schema.StatusUpdate) {
	r.mu.RLock()
	ch, ok := r.channels[orderID]
	r.mu.RUnlock()
	if !ok {
		r.metrics.IncSinkDrop()
		return
	}
	if err := ch.Send(update); err != nil {
		r.metrics.IncSinkDrop()
		logs.Warnf("drop status update for order %s: %v", orderID, err)
	}
}

// Drain closes and removes every channel. Called once at shutdown.
func (r *Registry) Drain() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for orderID, ch := range r.channels {
		if closer, ok := ch.(io.Closer); ok {
			_ = closer.Close()
		}
		delete(r.channels, orderID)
	}
}
