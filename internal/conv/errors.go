package conv

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinel causes of fatal configuration errors. Use errors.Is (or
// errors.Cause) on a recovered *Error to classify it.
var (
	ErrShapeMismatch        = errors.New("shape mismatch")
	ErrLayout               = errors.New("unexpected layout")
	ErrInvalidConfig        = errors.New("invalid configuration")
	ErrUnsupportedAlgorithm = errors.New("unsupported algorithm")
	ErrDirectPadding        = errors.New("direct convolution does not support input padding")
	ErrDeviceMismatch       = errors.New("buffer resides on another device")
	ErrWorkspace            = errors.New("workspace too small")
	ErrVendor               = errors.New("vendor convolution failed")
)

// Error is the value the engine panics with when a call violates its
// contract. Op names the failing operation, Err wraps one of the sentinels.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("conv: %s: %v", e.Op, e.Err)
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Cause implements the github.com/pkg/errors causer interface.
func (e *Error) Cause() error {
	return e.Err
}

// Fatalf panics with an *Error wrapping sentinel with a formatted message.
func Fatalf(op string, sentinel error, format string, args ...any) {
	panic(&Error{Op: op, Err: errors.Wrapf(sentinel, format, args...)})
}

// Recover converts a panic carrying an *Error into *err. Any other panic is
// re-raised. Must be called directly from a deferred statement:
//
//	defer conv.Recover(&err)
func Recover(err *error) {
	r := recover()
	if r == nil {
		return
	}
	e, ok := r.(*Error)
	if !ok {
		panic(r)
	}
	*err = e
}

// Catch runs f and returns the *Error it panicked with, if any.
func Catch(f func()) (err error) {
	defer Recover(&err)
	f()
	return nil
}
