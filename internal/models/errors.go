package models

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an expense does not exist or belongs to
// another user; callers cannot tell the two apart.
var ErrNotFound = errors.New("expense not found")

// ValidationError names the request field that violated a constraint.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Invalid returns a ValidationError for field.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
