// Package errors provides the typed failure values shared across services.
package errors

import (
	"errors"
	"fmt"
)

// Entity lookups
var (
	ErrUserNotFound   = errors.New("user not found")
	ErrSellerNotFound = errors.New("seller profile not found")
	ErrTicketNotFound = errors.New("ticket not found")
)

// Governance failures
var (
	ErrUnauthorized       = errors.New("caller lacks the admin capability")
	ErrInvalidTransition  = errors.New("transition not allowed from current state")
	ErrInsufficientScore  = errors.New("kyc score below approval threshold")
	ErrValidation         = errors.New("validation failed")
	ErrPreconditionFailed = errors.New("precondition failed")
)

// Auth failures
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrStorage wraps transaction/commit failures of the persistence layer.
// A governance operation that surfaces ErrStorage has had no effect.
var ErrStorage = errors.New("storage failure")

// Wrap annotates err with message, preserving errors.Is matching.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Validation returns an ErrValidation naming the offending field.
func Validation(field, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrValidation, field, reason)
}

// Storage marks err as a storage failure while keeping the cause in the
// chain for logging.
func Storage(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrStorage, err)
}
