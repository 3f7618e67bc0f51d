package router

import (
	"context"

	"main/internal/schema"
)

// Router is the price-discovery and settlement capability. Implementations
// are selected at composition time; the pipeline never inspects which one
// it holds.
type Router interface {
	// FindBestRoute quotes the pair on every venue and returns the best
	// execution. Fails with exception.ErrRoutingInsufficientReserve or
	// exception.ErrRoutingNoLiquidity.
	FindBestRoute(ctx context.Context, tokenIn, tokenOut string, amount float64) (schema.Quote, error)

	// ExecuteSwap settles the given amount on the venue. Fails with
	// exception.ErrSettlementRejected, exception.ErrSettlementNetwork, or
	// exception.ErrSettlementUnknown when the outcome cannot be
	// determined after broadcast.
	ExecuteSwap(ctx context.Context, venue schema.Venue, amount float64) (schema.SwapResult, error)
}
