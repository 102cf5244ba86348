package services

import (
	"errors"
	"fmt"
	"strings"
)

// ErrIndeterminateEndDate is returned when an end date cannot be computed
// (no enabled weekdays or a non-positive session count). Callers must fall
// back to requiring manual input, never guess.
var ErrIndeterminateEndDate = errors.New("end date cannot be computed from schedule inputs")

// ValidationError reports bad input detected before any commit.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError for a named field.
func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ConflictError carries the full list of overlapping bookings so callers can
// render actionable detail instead of a generic failure.
type ConflictError struct {
	Resource  string     `json:"resource"` // "room" or "teacher"
	Conflicts []Conflict `json:"conflicts"`
}

func (e *ConflictError) Error() string {
	parts := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		parts = append(parts, c.String())
	}
	return fmt.Sprintf("%s double-booking: %s", e.Resource, strings.Join(parts, "; "))
}

// AsValidationError unwraps err into a ValidationError if it is one.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// AsConflictError unwraps err into a ConflictError if it is one.
func AsConflictError(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
