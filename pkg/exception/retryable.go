package exception

import "errors"

// Retryable reports whether a failed attempt may be re-enqueued.
// Invalid transitions are bugs and unknown settlement outcomes must go to
// manual reconciliation, so neither is retried.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrOrderInvalidTransition),
		errors.Is(err, ErrSettlementUnknown),
		errors.Is(err, ErrQueueClosed):
		return false
	case errors.Is(err, ErrRoutingInsufficientReserve),
		errors.Is(err, ErrRoutingNoLiquidity),
		errors.Is(err, ErrRoutingTimeout),
		errors.Is(err, ErrSettlementRejected),
		errors.Is(err, ErrSettlementNetwork):
		return true
	default:
		// Unclassified errors (transport hiccups, context deadlines) are
		// treated as transient for the current attempt.
		return true
	}
}
