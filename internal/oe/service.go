package oe

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/yanun0323/logs"

	"main/internal/obs"
	"main/internal/retry"
	"main/internal/schema"
	"main/pkg/exception"
)

// JobQueue is the work journal the service admits into and acknowledges
// against. Ack records the terminal outcome of an order.
type JobQueue interface {
	Enqueue(ctx context.Context, job schema.Job) error
	EnqueueAfter(ctx context.Context, job schema.Job, delay time.Duration) error
	Ack(ctx context.Context, orderID string, final schema.OrderStatus, errMsg string) error
}

// ServiceConfig tunes admission and the retry policy.
type ServiceConfig struct {
	MaxAttempts int
	Backoff     retry.Backoff
}

func (c ServiceConfig) withDefaults() ServiceConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	return c
}

// Service is the pipeline entry: it admits orders into the queue and
// finishes every attempt the worker returns, applying the retry policy.
type Service struct {
	queue   JobQueue
	worker  *Worker
	sink    Deliverer
	metrics *obs.Metrics
	cfg     ServiceConfig
	now     func() time.Time
}

// NewService wires the execution service.
func NewService(queue JobQueue, worker *Worker, sink Deliverer, metrics *obs.Metrics, cfg ServiceConfig) *Service {
	return &Service{
		queue:   queue,
		worker:  worker,
		sink:    sink,
		metrics: metrics,
		cfg:     cfg.withDefaults(),
		now:     time.Now,
	}
}

// AddOrder validates the request, assigns an order ID, and enqueues the
// first attempt. The pending update is emitted before the job becomes
// visible to workers so no later state can precede it.
func (s *Service) AddOrder(ctx context.Context, req schema.OrderRequest) (string, error) {
	if err := validate(req); err != nil {
		return "", err
	}

	orderID := uuid.NewString()
	state := schema.NewOrderState(orderID)
	state.Logs = []string{"Order queued"}
	s.metrics.IncStatus(schema.StatusPending)
	if s.sink != nil {
		s.sink.Deliver(orderID, state.Update(s.now(), "Order queued"))
	}

	job := schema.Job{
		OrderID:  orderID,
		TokenIn:  req.TokenIn,
		TokenOut: req.TokenOut,
		Amount:   req.Amount,
		UserID:   req.UserID,
		Attempt:  1,
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		switch {
		case errors.Is(err, exception.ErrQueueFull):
			s.metrics.IncQueueDrop()
		case errors.Is(err, exception.ErrQueueClosed):
			s.metrics.IncQueueClosed()
		}
		return "", err
	}
	logs.Infof("order %s queued: %s -> %s amount %.6f", orderID, req.TokenIn, req.TokenOut, req.Amount)
	return orderID, nil
}

// Handle finishes one dequeued job: run the attempt, then either ack the
// confirmation, schedule a retry, or fail the order.
func (s *Service) Handle(ctx context.Context, job schema.Job) {
	start := s.now()
	state, err := s.worker.Process(ctx, job)
	s.metrics.ObserveExecution(s.now().Sub(start))

	if err == nil {
		if ackErr := s.queue.Ack(ctx, job.OrderID, schema.StatusConfirmed, ""); ackErr != nil {
			logs.Errorf("order %s confirmed but ack failed: %v", job.OrderID, ackErr)
		}
		return
	}

	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		// Shutdown mid-attempt. The journal still holds the order open;
		// recovery re-enqueues it on the next start.
		logs.Warnf("order %s attempt %d interrupted by shutdown", job.OrderID, job.Attempt)
		return
	}

	if exception.Retryable(err) && job.Attempt < s.cfg.MaxAttempts {
		delay := s.cfg.Backoff.Next(job.Attempt)
		s.metrics.IncRetry()
		logs.Warnf("order %s attempt %d/%d failed: %v; retrying in %s",
			job.OrderID, job.Attempt, s.cfg.MaxAttempts, err, delay)
		reErr := s.queue.EnqueueAfter(ctx, job.NextAttempt(), delay)
		if reErr == nil {
			return
		}
		logs.Errorf("order %s re-enqueue failed: %v", job.OrderID, reErr)
	}

	s.fail(ctx, job, state, err)
}

func (s *Service) fail(ctx context.Context, job schema.Job, state schema.OrderState, cause error) {
	failed, advErr := Advance(state, schema.StatusFailed)
	if advErr != nil {
		logs.Errorf("order %s cannot fail from %s: %v", job.OrderID, state.Status, advErr)
		return
	}
	failed.Err = cause.Error()
	line := "Order failed: " + cause.Error()
	failed.Logs = append(failed.Logs[:len(failed.Logs):len(failed.Logs)], line)

	s.metrics.IncStatus(schema.StatusFailed)
	if s.sink != nil {
		s.sink.Deliver(job.OrderID, failed.Update(s.now(), line))
	}
	logs.Errorf("order %s failed after %d attempt(s): %v", job.OrderID, job.Attempt, cause)
	if ackErr := s.queue.Ack(ctx, job.OrderID, schema.StatusFailed, cause.Error()); ackErr != nil {
		logs.Errorf("order %s failed but ack failed: %v", job.OrderID, ackErr)
	}
}

func validate(req schema.OrderRequest) error {
	switch {
	case req.TokenIn == "" || req.TokenOut == "":
		return exception.ErrOrderInvalidRequest
	case req.TokenIn == req.TokenOut:
		return exception.ErrOrderInvalidRequest
	case req.Amount <= 0:
		return exception.ErrOrderInvalidRequest
	}
	return nil
}
