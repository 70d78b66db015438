// Package domain defines core types, interfaces, and errors for search analytics.
package domain

import "fmt"

// NotFoundError indicates a resource was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// ValidationError indicates invalid input. It is always raised before any
// request reaches a backend.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ConflictError indicates a conflict (e.g., duplicate ledger entry).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// EmptyResultError indicates that a well-formed request returned no rows.
// It is kept distinct from ValidationError so callers never run analytics
// on an empty table by accident.
type EmptyResultError struct {
	Message string
}

func (e *EmptyResultError) Error() string { return e.Message }

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrConflict creates a ConflictError with a formatted message.
func ErrConflict(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// ErrEmptyResult creates an EmptyResultError with a formatted message.
func ErrEmptyResult(format string, args ...interface{}) *EmptyResultError {
	return &EmptyResultError{Message: fmt.Sprintf(format, args...)}
}
