package repository

import "github.com/okian/recicla/pkg/logger"

// Option applies a configuration option to the KVStore.
type Option func(*KVStore)

// WithLogger sets the logger used to report malformed values.
func WithLogger(l logger.Logger) Option {
	return func(s *KVStore) {
		if l != nil {
			s.logger = l
		}
	}
}
