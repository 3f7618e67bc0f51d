package pool

import (
	"context"
	"errors"
	"sync"

	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"

	"main/internal/schema"
	"main/pkg/exception"
)

var (
	ErrNilSource     = errors.New("pool: nil job source")
	ErrNilHandler    = errors.New("pool: nil handler")
	ErrInvalidConfig = errors.New("pool: workers must be > 0")
)

// Handler processes one dispatched job to a terminal outcome.
type Handler func(ctx context.Context, job schema.Job)

// JobSource hands out queued jobs in FIFO order.
type JobSource interface {
	Dequeue(ctx context.Context) (schema.Job, error)
}

// Dispatcher is the admission controller: a fixed pool of worker
// goroutines bounds concurrency while the window limiter bounds
// throughput. A job starts only when a worker is free and the rate
// window has budget.
type Dispatcher struct {
	source  JobSource
	limiter *WindowLimiter
	handler Handler
	workers int
}

// NewDispatcher validates the config and builds a dispatcher.
func NewDispatcher(source JobSource, limiter *WindowLimiter, workers int, handler Handler) (*Dispatcher, error) {
	if source == nil {
		return nil, ErrNilSource
	}
	if handler == nil {
		return nil, ErrNilHandler
	}
	if workers <= 0 {
		return nil, ErrInvalidConfig
	}
	if limiter == nil {
		limiter = NewWindowLimiter(0, 0)
	}
	return &Dispatcher{
		source:  source,
		limiter: limiter,
		handler: handler,
		workers: workers,
	}, nil
}

// Run starts the worker pool and blocks until every worker exits.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < d.workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			d.runWorker(ctx, worker)
		}(i)
	}
	wg.Wait()
}

func (d *Dispatcher) runWorker(ctx context.Context, worker int) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sys.Shutdown():
			return
		default:
		}

		job, err := d.source.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, exception.ErrQueueClosed) {
				return
			}
			logs.Errorf("worker %d dequeue: %v", worker, err)
			continue
		}
		if err := d.limiter.Wait(ctx); err != nil {
			// Shutdown while holding an undispatched job; the durable
			// journal re-enqueues it on the next start.
			logs.Warnf("worker %d dropped order %s at admission: %v", worker, job.OrderID, err)
			return
		}
		d.handler(ctx, job)
	}
}
