package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an operation targets an unknown bookmark id.
var ErrNotFound = errors.New("bookmark not found")

// ValidationError reports a rejected field value.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
