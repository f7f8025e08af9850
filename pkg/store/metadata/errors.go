package metadata

import "errors"

// StoreError represents a domain error from node store operations.
//
// These are business logic errors (node not found, name taken, etc.)
// as opposed to infrastructure errors (disk error, corrupt record).
// Callers translate the codes into their own error space.
type StoreError struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Path is the name or node related to the error (if applicable)
	Path string
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Path != "" {
		return e.Message + ": " + e.Path
	}
	return e.Message
}

// ErrorCode represents the category of a store error.
type ErrorCode int

const (
	// ErrNotFound indicates the requested node doesn't exist
	ErrNotFound ErrorCode = iota

	// ErrAlreadyExists indicates a node with the name already exists
	ErrAlreadyExists

	// ErrNotEmpty indicates a directory is not empty (cannot be removed)
	ErrNotEmpty

	// ErrNotDirectory indicates operation expected a directory but got a file
	ErrNotDirectory

	// ErrInvalidArgument indicates invalid parameters were provided
	// Examples: empty name, name containing '/'
	ErrInvalidArgument

	// ErrIOError indicates the backing storage failed
	ErrIOError
)

// ErrStoreClosed is returned by operations on a closed store.
var ErrStoreClosed = errors.New("metadata store closed")

// IsCode reports whether err is a *StoreError with the given code.
func IsCode(err error, code ErrorCode) bool {
	var storeErr *StoreError
	return errors.As(err, &storeErr) && storeErr.Code == code
}

// IsNotFound reports whether err is a not-found StoreError.
func IsNotFound(err error) bool {
	return IsCode(err, ErrNotFound)
}

// NotFoundError returns a not-found StoreError for path.
func NotFoundError(path string) error {
	return &StoreError{Code: ErrNotFound, Message: "node not found", Path: path}
}

// NotDirectoryError returns a not-a-directory StoreError for path.
func NotDirectoryError(path string) error {
	return &StoreError{Code: ErrNotDirectory, Message: "not a directory", Path: path}
}

// AlreadyExistsError returns an already-exists StoreError for path.
func AlreadyExistsError(path string) error {
	return &StoreError{Code: ErrAlreadyExists, Message: "name already exists", Path: path}
}

// NotEmptyError returns a not-empty StoreError for path.
func NotEmptyError(path string) error {
	return &StoreError{Code: ErrNotEmpty, Message: "directory not empty", Path: path}
}
