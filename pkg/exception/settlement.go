package exception

import "errors"

// Settlement errors are failures after routing succeeded.
// ErrSettlementUnknown means the outcome could not be determined after the
// transaction may have been broadcast; re-submitting risks double
// settlement, so it is never retried.
var (
	ErrSettlementRejected = errors.New("settlement: transaction rejected by venue")
	ErrSettlementNetwork  = errors.New("settlement: network failure before broadcast")
	ErrSettlementUnknown  = errors.New("settlement: outcome unknown, manual reconciliation required")
)
