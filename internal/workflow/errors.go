// Package workflow owns the booking and warranty state machines.  Every
// lifecycle operation validates its guards against a fresh read inside a
// single storage transaction, persists the mutation with an optimistic
// version check, and records outbound notifications in the same unit of
// work.  Guard violations are reported before anything is written.
package workflow

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned when the requested lifecycle action is
// not legal from the entity's current status.  Handlers map it to HTTP 400.
var ErrInvalidTransition = errors.New("invalid state transition")

// ErrForbidden is returned when the caller's role or relationship to the
// entity does not permit the requested action.  Handlers map it to 403.
var ErrForbidden = errors.New("forbidden")

// ErrWarrantyExpired is returned when a claim is filed after the booking's
// warranty window has closed.
var ErrWarrantyExpired = errors.New("warranty period expired")

// ErrNothingPending is returned when a batch confirm finds no pending
// extra-service items to act on.
var ErrNothingPending = errors.New("no pending extra services")

// ErrValidation wraps missing or malformed input fields.  Use Validationf
// to attach the field detail; errors.Is(err, ErrValidation) still matches.
var ErrValidation = errors.New("validation failed")

// Validationf builds a validation error with a field-level detail message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
