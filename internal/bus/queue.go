package bus

import (
	"context"
	"sync/atomic"
	"time"

	"main/internal/schema"
	"main/pkg/exception"
)

// Queue is a bounded FIFO job buffer decoupling submission from
// execution. EnqueueAfter provides the delayed re-entry primitive used by
// the retry policy. The queue discipline guarantees at most one in-flight
// job per orderId: a job re-enters only after its previous attempt
// reached the retry decision.
type Queue struct {
	ch     chan schema.Job
	closed uint32
}

// NewQueue allocates a queue with the given capacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{ch: make(chan schema.Job, capacity)}
}

// Enqueue appends a job, rejecting immediately when the buffer is full.
// Admission backpressure surfaces to the submitter instead of blocking.
func (q *Queue) Enqueue(ctx context.Context, job schema.Job) error {
	if atomic.LoadUint32(&q.closed) != 0 {
		return exception.ErrQueueClosed
	}
	select {
	case q.ch <- job:
		return nil
	default:
		return exception.ErrQueueFull
	}
}

// Requeue blocks until the job fits. Retry and recovery use this path;
// they must not drop a job the journal still holds open.
func (q *Queue) Requeue(ctx context.Context, job schema.Job) error {
	if atomic.LoadUint32(&q.closed) != 0 {
		return exception.ErrQueueClosed
	}
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// EnqueueAfter schedules the job to re-enter the queue once the delay
// elapses. Timers firing after Close drop the job here; the durable
// queue journal keeps it recoverable.
func (q *Queue) EnqueueAfter(ctx context.Context, job schema.Job, delay time.Duration) error {
	if atomic.LoadUint32(&q.closed) != 0 {
		return exception.ErrQueueClosed
	}
	if delay <= 0 {
		return q.Requeue(ctx, job)
	}
	job.RunAt = time.Now().UTC().Add(delay)
	time.AfterFunc(delay, func() {
		if atomic.LoadUint32(&q.closed) != 0 {
			return
		}
		q.ch <- job
	})
	return nil
}

// Dequeue blocks until a job is available or the context ends.
func (q *Queue) Dequeue(ctx context.Context) (schema.Job, error) {
	select {
	case <-ctx.Done():
		return schema.Job{}, ctx.Err()
	case job := <-q.ch:
		return job, nil
	}
}

// Ack records a terminal outcome. The memory queue has nothing to
// persist; the durable variant overrides this.
func (q *Queue) Ack(ctx context.Context, orderID string, final schema.OrderStatus, errMsg string) error {
	return nil
}

// Len reports the number of buffered jobs.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Close stops the queue from accepting new jobs. Consumers stop through
// context cancellation, so the underlying channel is never closed and
// late retry timers cannot panic.
func (q *Queue) Close() {
	atomic.StoreUint32(&q.closed, 1)
}
