package service

import (
	"errors"

	eventqueue "github.com/okian/recicla/internal/adapters/mq/queue"
)

// Sentinel kinds for service errors.
var (
	ErrNotStarted   = errors.New("service not started")
	ErrBackpressure = eventqueue.ErrBackpressure
	ErrStopped      = eventqueue.ErrStopped
)
