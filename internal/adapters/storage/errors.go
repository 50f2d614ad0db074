package storage

import "errors"

// ErrClosed is the cause of any call made after Close.
var ErrClosed = errors.New("store closed")
