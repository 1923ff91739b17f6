package queue

import "errors"

// Enqueue outcomes other than success.
var (
	ErrClosed  = errors.New("queue closed")
	ErrFull    = errors.New("queue full")
	ErrPending = errors.New("job already pending for item")
)
