// Package worker runs the single goroutine that applies every mutation.
package worker

import (
	"github.com/okian/recicla/pkg/logger"
)

// Option applies a configuration option to the Writer.
type Option func(*Writer)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *Writer) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *Writer) {
		if l != nil {
			w.logger = l
		}
	}
}
