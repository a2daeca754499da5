// Package apperror defines the application's error taxonomy.
//
// Services return these domain errors; the HTTP layer maps them to status
// codes with errors.Is/errors.As in one place. The sync engine additionally
// branches on two of them internally:
//
//   - ErrMalformedRecord — one remote record couldn't be parsed. Logged and
//     skipped; never aborts the batch.
//   - ErrDuplicateKey — a concurrent create raced on the same unique key
//     (PR composite key, or a (user, badge) pair). Treated as benign success.
//
// DuplicateKey is deliberately its own sentinel (not a generic Conflict) so
// the reconciler can recognise a benign race without string-matching driver
// error text.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation error")
	ErrConflict        = errors.New("conflict")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrTransport       = errors.New("transport failure")
	ErrMalformedRecord = errors.New("malformed record")
	ErrDuplicateKey    = errors.New("duplicate key")
	ErrInternal        = errors.New("internal error")
)

type AppError struct {
	Err     error  // sentinel identifying the error kind
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Unauthenticated indicates the stored GitHub credential was rejected (or is
// missing). Handlers map this to 401 so the frontend prompts re-authentication
// instead of retrying the sync.
func Unauthenticated(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: message,
	}
}

// TransportFailure indicates the remote source was unreachable or returned a
// non-success status unrelated to auth. The whole sync aborts before any
// local writes; the caller may retry later.
func TransportFailure(message string) *AppError {
	return &AppError{
		Err:     ErrTransport,
		Message: message,
	}
}

// MalformedRecord indicates a single remote record that couldn't yield a
// composite key or scored fields.
func MalformedRecord(message string) *AppError {
	return &AppError{
		Err:     ErrMalformedRecord,
		Message: message,
	}
}

// DuplicateKey indicates a unique-constraint violation on create.
func DuplicateKey(resource, key string) *AppError {
	return &AppError{
		Err:     ErrDuplicateKey,
		Message: fmt.Sprintf("%s already exists with key %s", resource, key),
	}
}

func Internal(message string) *AppError {
	return &AppError{
		Err:     ErrInternal,
		Message: message,
	}
}
