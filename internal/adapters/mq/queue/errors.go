package queue

import "errors"

// Sentinel kinds for control queue errors.
var (
	ErrClosed = errors.New("control queue closed")
	ErrFull   = errors.New("control queue full")
)
