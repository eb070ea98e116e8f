package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrAlreadyActive       = errors.New("user already has an active parking spot")
	ErrNoCapacity          = errors.New("no spots available in this lot")
	ErrNoActiveReservation = errors.New("no active parking found")
	ErrCapacityConflict    = errors.New("some spots to remove are occupied")
	ErrInvalidInterval     = errors.New("invalid interval: end is before start")
	ErrValidation          = errors.New("validation error")
	ErrForbidden           = errors.New("admins only")

	// ErrSpotConflict means the chosen spot changed under the caller; it is
	// retried by the occupancy engine and never reaches the transport.
	ErrSpotConflict = errors.New("optimistic lock failed: spot was modified by another transaction")
)

type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
