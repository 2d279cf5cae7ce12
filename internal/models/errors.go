package models

import (
	"errors"
	"fmt"
)

// ErrorType represents different categories of errors
type ErrorType int

const (
	ErrCatalogParse ErrorType = iota
	ErrReplication
	ErrFilterKey
	ErrFetch
	ErrExec
	ErrInvalidConfig
)

// String returns the string representation of ErrorType
func (e ErrorType) String() string {
	switch e {
	case ErrCatalogParse:
		return "CatalogParse"
	case ErrReplication:
		return "Replication"
	case ErrFilterKey:
		return "FilterKey"
	case ErrFetch:
		return "Fetch"
	case ErrExec:
		return "Exec"
	case ErrInvalidConfig:
		return "InvalidConfig"
	default:
		return "Unknown"
	}
}

// UpdateError represents an error during an update cycle
type UpdateError struct {
	Type     ErrorType
	Resource string
	Err      error
}

// Error implements the error interface
func (e *UpdateError) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Resource, e.Err)
	}
	return fmt.Sprintf("[%s] %v", e.Type, e.Err)
}

// Unwrap returns the wrapped error
func (e *UpdateError) Unwrap() error {
	return e.Err
}

// NewError wraps err with an error type and the resource (URL, path, or
// product key) it concerns.
func NewError(t ErrorType, resource string, err error) *UpdateError {
	return &UpdateError{Type: t, Resource: resource, Err: err}
}

// IsType reports whether err is (or wraps) an UpdateError of the given type.
func IsType(err error, t ErrorType) bool {
	var ue *UpdateError
	return errors.As(err, &ue) && ue.Type == t
}
