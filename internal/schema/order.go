package schema

import "time"

// Venue identifies a price-discovery/settlement backend.
type Venue string

const (
	VenueRaydium Venue = "Raydium"
	VenueMeteora Venue = "Meteora"
)

// OrderRequest carries the immutable submission fields of an order.
type OrderRequest struct {
	TokenIn  string  `json:"tokenIn"`
	TokenOut string  `json:"tokenOut"`
	Amount   float64 `json:"amount"`
	UserID   string  `json:"userId"`
}

// Quote is the ephemeral result of price discovery. Fee is a fraction of
// notional. Not persisted past the routing step.
type Quote struct {
	Venue Venue   `json:"venue"`
	Price float64 `json:"price"`
	Fee   float64 `json:"fee"`
}

// SwapResult is the outcome of a successful settlement.
type SwapResult struct {
	TxHash        string  `json:"txHash"`
	ExecutedPrice float64 `json:"executedPrice"`
}

// Job is the unit of work pulled by an execution worker. Attempt is
// 1-based and owned by the queue discipline; RunAt schedules delayed
// (backoff) delivery.
type Job struct {
	OrderID  string    `json:"orderId"`
	TokenIn  string    `json:"tokenIn"`
	TokenOut string    `json:"tokenOut"`
	Amount   float64   `json:"amount"`
	UserID   string    `json:"userId"`
	Attempt  int       `json:"attempt"`
	RunAt    time.Time `json:"runAt,omitempty"`
}

// NextAttempt returns a copy of the job with the attempt counter advanced.
func (j Job) NextAttempt() Job {
	j.Attempt++
	return j
}

// OrderState is the mutable projection of one order, maintained by the
// execution worker for the current attempt only. Logs is the append-only
// human-readable trace of the attempt.
type OrderState struct {
	OrderID        string
	Status         OrderStatus
	Venue          Venue
	ExecutionPrice float64
	TxHash         string
	Err            string
	Logs           []string
}

// NewOrderState starts a fresh attempt projection in Pending.
func NewOrderState(orderID string) OrderState {
	return OrderState{OrderID: orderID, Status: StatusPending}
}

// StatusUpdate is the wire representation of one lifecycle transition.
// Logs carries only the lines added by this transition.
type StatusUpdate struct {
	OrderID        string      `json:"orderId"`
	Status         OrderStatus `json:"status"`
	Timestamp      time.Time   `json:"timestamp"`
	Venue          Venue       `json:"venue,omitempty"`
	ExecutionPrice float64     `json:"executionPrice,omitempty"`
	TxHash         string      `json:"txHash,omitempty"`
	Error          string      `json:"error,omitempty"`
	Logs           []string    `json:"logs,omitempty"`
}

// Update builds the wire view of the current state, carrying the given
// log lines for this transition.
func (s OrderState) Update(now time.Time, logs ...string) StatusUpdate {
	return StatusUpdate{
		OrderID:        s.OrderID,
		Status:         s.Status,
		Timestamp:      now.UTC(),
		Venue:          s.Venue,
		ExecutionPrice: s.ExecutionPrice,
		TxHash:         s.TxHash,
		Error:          s.Err,
		Logs:           logs,
	}
}
