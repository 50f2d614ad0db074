package repository

import "errors"

// ErrMalformed is the cause attached to a storage error when a persisted
// value does not decode to the expected shape.
var ErrMalformed = errors.New("malformed persisted value")
