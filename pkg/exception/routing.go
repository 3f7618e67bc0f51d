package exception

import "errors"

// Routing errors are failures of price discovery. All of them are
// recoverable for the current attempt.
var (
	ErrRoutingInsufficientReserve = errors.New("routing: insufficient reserve balance")
	ErrRoutingNoLiquidity         = errors.New("routing: no liquidity for pair")
	ErrRoutingTimeout             = errors.New("routing: quote request timed out")
)
