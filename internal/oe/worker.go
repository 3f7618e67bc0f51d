package oe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"main/internal/obs"
	"main/internal/router"
	"main/internal/schema"
	"main/pkg/exception"
)

// Deliverer pushes a status update toward the order's observer.
type Deliverer interface {
	Deliver(orderID string, update schema.StatusUpdate)
}

// WorkerConfig bounds one execution attempt.
type WorkerConfig struct {
	RouteTimeout time.Duration
	SwapTimeout  time.Duration
	BuildDelay   time.Duration
}

func (c WorkerConfig) withDefaults() WorkerConfig {
	if c.RouteTimeout <= 0 {
		c.RouteTimeout = 5 * time.Second
	}
	if c.SwapTimeout <= 0 {
		c.SwapTimeout = 60 * time.Second
	}
	if c.BuildDelay < 0 {
		c.BuildDelay = 0
	}
	return c
}

// Worker drives one job attempt through the order lifecycle. Each
// accepted transition is pushed to the sink before the next step starts,
// so observers see states in execution order.
type Worker struct {
	router  router.Router
	sink    Deliverer
	metrics *obs.Metrics
	cfg     WorkerConfig
	now     func() time.Time
}

// NewWorker builds an execution worker.
func NewWorker(r router.Router, sink Deliverer, metrics *obs.Metrics, cfg WorkerConfig) *Worker {
	return &Worker{
		router:  r,
		sink:    sink,
		metrics: metrics,
		cfg:     cfg.withDefaults(),
		now:     time.Now,
	}
}

// Process runs one attempt. On error the returned state is the last
// accepted snapshot; the caller owns retry and failure emission.
func (w *Worker) Process(ctx context.Context, job schema.Job) (schema.OrderState, error) {
	state := schema.NewOrderState(job.OrderID)
	firstLines := []string{"Finding best route..."}
	if job.Attempt > 1 {
		firstLines = []string{fmt.Sprintf("Retry attempt %d", job.Attempt), "Finding best route..."}
	}

	state, err := w.step(state, schema.StatusRouting, firstLines...)
	if err != nil {
		return state, err
	}

	routeStart := w.now()
	routeCtx, cancel := context.WithTimeout(ctx, w.cfg.RouteTimeout)
	quote, err := w.router.FindBestRoute(routeCtx, job.TokenIn, job.TokenOut, job.Amount)
	cancel()
	w.metrics.ObserveRouting(w.now().Sub(routeStart))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return state, fmt.Errorf("route %s/%s: %w", job.TokenIn, job.TokenOut, exception.ErrRoutingTimeout)
		}
		return state, err
	}

	state.Venue = quote.Venue
	state, err = w.step(state, schema.StatusRouting,
		fmt.Sprintf("Best route found: %s at $%.4f (fee %.2f%%)", quote.Venue, quote.Price, quote.Fee*100))
	if err != nil {
		return state, err
	}

	state, err = w.step(state, schema.StatusBuilding, "Building transaction...")
	if err != nil {
		return state, err
	}
	if err := w.wait(ctx, w.cfg.BuildDelay); err != nil {
		return state, err
	}

	state, err = w.step(state, schema.StatusSubmitted, "Transaction submitted, awaiting confirmation...")
	if err != nil {
		return state, err
	}

	swapStart := w.now()
	swapCtx, cancel := context.WithTimeout(ctx, w.cfg.SwapTimeout)
	result, err := w.router.ExecuteSwap(swapCtx, quote.Venue, job.Amount)
	cancel()
	w.metrics.ObserveSettlement(w.now().Sub(swapStart))
	if err != nil {
		return state, err
	}

	state.TxHash = result.TxHash
	state.ExecutionPrice = result.ExecutedPrice
	return w.step(state, schema.StatusConfirmed,
		fmt.Sprintf("Transaction confirmed: %s executed at $%.4f", result.TxHash, result.ExecutedPrice))
}

// step advances the state machine and emits the transition carrying only
// the log lines this step added.
func (w *Worker) step(state schema.OrderState, to schema.OrderStatus, lines ...string) (schema.OrderState, error) {
	next, err := Advance(state, to)
	if err != nil {
		return state, err
	}
	next.Logs = append(next.Logs[:len(next.Logs):len(next.Logs)], lines...)
	w.emit(next, lines...)
	return next, nil
}

func (w *Worker) emit(state schema.OrderState, lines ...string) {
	w.metrics.IncStatus(state.Status)
	if w.sink != nil {
		w.sink.Deliver(state.OrderID, state.Update(w.now(), lines...))
	}
}

func (w *Worker) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
