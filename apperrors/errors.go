// Package apperrors defines the error taxonomy shared by the store,
// the lifecycle service and the HTTP handlers.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// ValidationError means the caller supplied missing or malformed input.
// No mutation was attempted.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError means a referenced complaint, worker or report does not exist.
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string { return e.Msg }

func NotFoundf(format string, args ...any) error {
	return &NotFoundError{Msg: fmt.Sprintf(format, args...)}
}

// ForbiddenError means the caller is authenticated but not authorized for
// this specific resource, e.g. a worker reporting on a complaint that is
// not assigned to them.
type ForbiddenError struct {
	Msg string
}

func (e *ForbiddenError) Error() string { return e.Msg }

func Forbiddenf(format string, args ...any) error {
	return &ForbiddenError{Msg: fmt.Sprintf(format, args...)}
}

// ConflictError means a conditional update lost against a concurrent write.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string { return e.Msg }

func Conflictf(format string, args ...any) error {
	return &ConflictError{Msg: fmt.Sprintf(format, args...)}
}

// TransientError wraps a data store or transport failure. An audit log
// write failure is escalated to a TransientError on the whole operation
// even when the primary row change persisted.
type TransientError struct {
	Msg string
	Err error
}

func (e *TransientError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err with a message.
func Transient(msg string, err error) error {
	return &TransientError{Msg: msg, Err: err}
}

// HTTPStatus maps a domain error to an HTTP status code.
func HTTPStatus(err error) int {
	var (
		ve *ValidationError
		nf *NotFoundError
		fe *ForbiddenError
		ce *ConflictError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &nf):
		return http.StatusNotFound
	case errors.As(err, &fe):
		return http.StatusForbidden
	case errors.As(err, &ce):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
