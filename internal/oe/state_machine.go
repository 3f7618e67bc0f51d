package oe

import (
	"main/internal/schema"
	"main/pkg/exception"
)

// successor is the single legal forward step for each non-terminal status.
var successor = map[schema.OrderStatus]schema.OrderStatus{
	schema.StatusPending:   schema.StatusRouting,
	schema.StatusRouting:   schema.StatusBuilding,
	schema.StatusBuilding:  schema.StatusSubmitted,
	schema.StatusSubmitted: schema.StatusConfirmed,
}

// Advance validates the requested transition against the current snapshot
// and returns the updated one. It performs no side effects; callers own
// status emission. Failed is reachable from every non-terminal status and
// Routing may repeat once the venue is known. No transition leaves a
// terminal status.
func Advance(state schema.OrderState, to schema.OrderStatus) (schema.OrderState, error) {
	if !to.IsAvailable() {
		return state, exception.ErrOrderInvalidTransition
	}
	if state.Status.IsTerminal() {
		return state, exception.ErrOrderInvalidTransition
	}
	switch {
	case to == schema.StatusFailed:
	case to == schema.StatusRouting && state.Status == schema.StatusRouting:
	case successor[state.Status] == to:
	default:
		return state, exception.ErrOrderInvalidTransition
	}
	state.Status = to
	return state, nil
}
