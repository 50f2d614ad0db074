package queue

import "errors"

// Sentinel kinds for queue errors.
var (
	ErrBackpressure = errors.New("mutation queue full")
	ErrStopped      = errors.New("mutation queue stopped")
)
