// Package errs defines the error kinds shared by the registry, the event log,
// the store adapters and the HTTP layer.
//
// Callers classify with errors.Is against the sentinel kinds; the concrete
// *Error carries the failing operation name for logs.
package errs

import (
	"errors"
	"fmt"
)

// Sentinel error kinds.
var (
	ErrValidation      = errors.New("validation error")
	ErrNotFound        = errors.New("not found")
	ErrInvalidMaterial = errors.New("invalid material")
	ErrStorage         = errors.New("storage error")
)

// Error is an operation-scoped error with an optional kind.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Kind != nil && e.Err != nil:
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	case e.Kind != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Op
	}
}

// Unwrap exposes both the kind and the cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// NewKind returns an error of the given kind with no further cause.
func NewKind(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

// Wrap annotates err with op. It returns nil for a nil err.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// WrapKind annotates err with op and classifies it as kind.
func WrapKind(op string, kind, err error) error {
	if err == nil {
		return NewKind(op, kind)
	}
	return &Error{Op: op, Kind: kind, Err: err}
}

// Validation builds an ErrValidation with a human readable reason.
func Validation(op, reason string) error {
	return &Error{Op: op, Kind: ErrValidation, Err: errors.New(reason)}
}

// IsStorage reports whether err is a storage failure.
func IsStorage(err error) bool { return errors.Is(err, ErrStorage) }

// IsNotFound reports whether err is a not-found failure.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
