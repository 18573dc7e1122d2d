// Package core holds the domain model of the finance tracker: transactions,
// obligations, budgets, goals, exact decimal money and the recurrence
// projector. It has no dependency on storage or transport.
package core

import (
	"errors"
	"fmt"
)

// Error taxonomy. Callers classify failures with errors.Is / errors.As:
//   - ErrNotFound: entity absent or owned by someone else (indistinguishable
//     on purpose, so existence never leaks across users)
//   - ErrInvalidAmount: amount field that is not a positive decimal
//   - ValidationError: any other malformed or out-of-range input
//
// Anything else bubbling out of the storage layer is a store failure: it is
// never retried and never swallowed, only wrapped with context.
var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
)

// ValidationError reports a field-level input problem.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

// Validation builds a field-level validation error.
func Validation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err is a validation error of any kind,
// including ErrInvalidAmount and ErrInvalidDate.
func IsValidation(err error) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return true
	}
	return errors.Is(err, ErrInvalidAmount) || errors.Is(err, ErrInvalidDate)
}
