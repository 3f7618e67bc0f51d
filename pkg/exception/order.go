package exception

import "errors"

var (
	ErrOrderInvalidTransition = errors.New("order: invalid state transition")
	ErrOrderInvalidRequest    = errors.New("order: invalid request")
	ErrOrderDuplicate         = errors.New("order: order already enqueued")
	ErrOrderUnknown           = errors.New("order: order not found")
)
