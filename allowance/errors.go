package allowance

import (
	"errors"
	"fmt"
)

// ErrInvalidRequest is wrapped by every ValidationError. Use with errors.Is().
var ErrInvalidRequest = errors.New("invalid allowance request")

// ValidationError names the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidRequest
}

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidRequest)
}
