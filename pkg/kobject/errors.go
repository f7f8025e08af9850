package kobject

import (
	"errors"
	"fmt"
)

// ErrorCode is the category of a kobject operation failure.
//
// The codes form the cross-kind error taxonomy of the handle layer. The
// syscall surface translates them into process-visible status values.
type ErrorCode int

const (
	// NotFound indicates a named lookup target is absent
	NotFound ErrorCode = iota + 1

	// NotImplemented indicates the operation is undefined for the handle's kind
	NotImplemented

	// InvalidRequest indicates the operation is defined for the kind but the
	// arguments are malformed (wrong Size dimensionality, Read on a Directory)
	// or the handle has already been destroyed
	InvalidRequest

	// NotADirectory indicates List was attempted on a non-Directory kind
	NotADirectory
)

// String returns the canonical name of the code.
func (c ErrorCode) String() string {
	switch c {
	case NotFound:
		return "not found"
	case NotImplemented:
		return "not implemented"
	case InvalidRequest:
		return "invalid request"
	case NotADirectory:
		return "not a directory"
	default:
		return fmt.Sprintf("error code %d", int(c))
	}
}

// Error is the error returned by every kobject operation.
//
// Errors carry the operation name and the kind of the handle that rejected
// it. Backend failures are wrapped in Err and remain reachable through
// errors.Is / errors.As.
type Error struct {
	// Code is the error category
	Code ErrorCode

	// Op is the operation that failed (e.g. "read", "lookup")
	Op string

	// Kind is the kind of the handle the operation was attempted on
	Kind Kind

	// Err is the underlying backend error, if any
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("kobject %s on %s: %s", e.Op, e.Kind, e.Code)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying backend error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code.
//
// This lets callers match against the package sentinels regardless of the
// operation or kind recorded in the error:
//
//	if errors.Is(err, kobject.ErrNotFound) { ... }
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is comparisons.
var (
	ErrNotFound       = &Error{Code: NotFound}
	ErrNotImplemented = &Error{Code: NotImplemented}
	ErrInvalidRequest = &Error{Code: InvalidRequest}
	ErrNotADirectory  = &Error{Code: NotADirectory}
)

// errDestroyed is wrapped when an operation reaches a handle whose alias
// count already dropped to zero.
var errDestroyed = errors.New("kobject destroyed")

func newError(code ErrorCode, op string, kind Kind, err error) *Error {
	return &Error{Code: code, Op: op, Kind: kind, Err: err}
}

// CodeOf extracts the ErrorCode from err, returning 0 if err is not a kobject error.
func CodeOf(err error) ErrorCode {
	var kerr *Error
	if errors.As(err, &kerr) {
		return kerr.Code
	}
	return 0
}
