package exception

import "errors"

var (
	ErrQueueFull   = errors.New("queue: job queue full")
	ErrQueueClosed = errors.New("queue: job queue closed")
)
