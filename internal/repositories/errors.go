package repositories

import (
	"errors"
	"fmt"
)

// ErrorCode buckets persistence failures into the categories services react to.
type ErrorCode string

const (
	ErrorCodeNotFound    ErrorCode = "not_found"
	ErrorCodeConflict    ErrorCode = "conflict"
	ErrorCodeUnavailable ErrorCode = "unavailable"
	ErrorCodeInternal    ErrorCode = "internal"
)

// Error is the concrete RepositoryError produced by the persistence layer.
type Error struct {
	Op      string
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) IsNotFound() bool    { return e.Code == ErrorCodeNotFound }
func (e *Error) IsConflict() bool    { return e.Code == ErrorCodeConflict }
func (e *Error) IsUnavailable() bool { return e.Code == ErrorCodeUnavailable }

// NewError builds a repository error for the given operation and category.
func NewError(op string, code ErrorCode, message string, err error) *Error {
	return &Error{Op: op, Code: code, Message: message, Err: err}
}

// NotFoundError reports a missing entity for op.
func NotFoundError(op, message string) *Error {
	return &Error{Op: op, Code: ErrorCodeNotFound, Message: message}
}

// ConflictError reports a uniqueness or concurrent-modification violation.
func ConflictError(op, message string, err error) *Error {
	return &Error{Op: op, Code: ErrorCodeConflict, Message: message, Err: err}
}

// UnavailableError reports a transient backend failure callers may retry.
func UnavailableError(op string, err error) *Error {
	return &Error{Op: op, Code: ErrorCodeUnavailable, Message: "backend unavailable", Err: err}
}

// AsRepositoryError unwraps err into the RepositoryError interface when possible.
func AsRepositoryError(err error) (RepositoryError, bool) {
	var repoErr *Error
	if errors.As(err, &repoErr) {
		return repoErr, true
	}
	var iface RepositoryError
	if errors.As(err, &iface) {
		return iface, true
	}
	return nil, false
}
