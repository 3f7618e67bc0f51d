package store

import (
	"context"
	"time"

	"github.com/yanun0323/logs"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"main/internal/bus"
	"main/internal/schema"
	"main/pkg/exception"
)

// JobRecord is one journaled order job. The row outlives the in-memory
// queue entry: it is written on admission and closed by the terminal ack,
// so a restart can re-enqueue everything still open.
type JobRecord struct {
	OrderID   string    `gorm:"primaryKey;column:order_id"`
	TokenIn   string    `gorm:"column:token_in"`
	TokenOut  string    `gorm:"column:token_out"`
	Amount    float64   `gorm:"column:amount"`
	UserID    string    `gorm:"column:user_id"`
	Attempt   int       `gorm:"column:attempt"`
	Status    string    `gorm:"column:status;index"`
	LastError string    `gorm:"column:last_error"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// TableName sets the journal table name.
func (JobRecord) TableName() string {
	return "order_jobs"
}

func (r JobRecord) job() schema.Job {
	return schema.Job{
		OrderID:  r.OrderID,
		TokenIn:  r.TokenIn,
		TokenOut: r.TokenOut,
		Amount:   r.Amount,
		UserID:   r.UserID,
		Attempt:  r.Attempt,
	}
}

// DurableQueue journals every admitted job in postgres before handing it
// to the in-memory queue. Dequeue order and backoff timing stay with the
// memory queue; the journal only guarantees that no accepted order is
// lost across a restart.
type DurableQueue struct {
	mem *bus.Queue
	db  *gorm.DB
}

// NewDurableQueue wraps the memory queue with a postgres journal.
func NewDurableQueue(mem *bus.Queue, db *gorm.DB) *DurableQueue {
	return &DurableQueue{mem: mem, db: db}
}

// Enqueue journals the job then buffers it. A second submission with the
// same order id is rejected, so the journal holds at most one row per
// order.
func (q *DurableQueue) Enqueue(ctx context.Context, job schema.Job) error {
	record := JobRecord{
		OrderID:  job.OrderID,
		TokenIn:  job.TokenIn,
		TokenOut: job.TokenOut,
		Amount:   job.Amount,
		UserID:   job.UserID,
		Attempt:  job.Attempt,
		Status:   schema.StatusPending.String(),
	}
	result := q.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "order_id"}}, DoNothing: true}).
		Create(&record)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return exception.ErrOrderDuplicate
	}
	if err := q.mem.Enqueue(ctx, job); err != nil {
		// The buffer rejected the job, so the journal row must not make
		// recovery resurrect an order the caller saw refused.
		q.db.WithContext(ctx).Where("order_id = ?", job.OrderID).Delete(&JobRecord{})
		return err
	}
	return nil
}

// EnqueueAfter records the advanced attempt then schedules the delayed
// re-entry.
func (q *DurableQueue) EnqueueAfter(ctx context.Context, job schema.Job, delay time.Duration) error {
	err := q.db.WithContext(ctx).Model(&JobRecord{}).
		Where("order_id = ?", job.OrderID).
		Update("attempt", job.Attempt).Error
	if err != nil {
		return err
	}
	return q.mem.EnqueueAfter(ctx, job, delay)
}

// Dequeue hands out the next buffered job.
func (q *DurableQueue) Dequeue(ctx context.Context) (schema.Job, error) {
	return q.mem.Dequeue(ctx)
}

// Ack closes the journal row with the terminal outcome.
func (q *DurableQueue) Ack(ctx context.Context, orderID string, final schema.OrderStatus, errMsg string) error {
	return q.db.WithContext(ctx).Model(&JobRecord{}).
		Where("order_id = ?", orderID).
		Updates(map[string]any{
			"status":     final.String(),
			"last_error": errMsg,
		}).Error
}

// Recover re-enqueues every journaled job without a terminal outcome.
// Called once on startup, before workers begin pulling.
func (q *DurableQueue) Recover(ctx context.Context) (int, error) {
	var records []JobRecord
	err := q.db.WithContext(ctx).
		Where("status NOT IN ?", []string{
			schema.StatusConfirmed.String(),
			schema.StatusFailed.String(),
		}).
		Order("created_at").
		Find(&records).Error
	if err != nil {
		return 0, err
	}

	recovered := 0
	for _, record := range records {
		if err := q.mem.Requeue(ctx, record.job()); err != nil {
			return recovered, err
		}
		recovered++
	}
	if recovered > 0 {
		logs.Warnf("recovered %d unfinished order(s) from the journal", recovered)
	}
	return recovered, nil
}

// Len reports the number of buffered jobs.
func (q *DurableQueue) Len() int {
	return q.mem.Len()
}

// Close stops the underlying memory queue.
func (q *DurableQueue) Close() {
	q.mem.Close()
}
