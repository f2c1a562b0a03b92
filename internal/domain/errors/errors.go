package errors

import (
	"errors"
	"fmt"
)

var (
	// Caller precondition errors
	ErrPreconditionFailed = errors.New("precondition failed")

	// Not-found errors
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrRecordNotFound       = errors.New("record not found")
	ErrOfferNotFound        = errors.New("offer not found")

	// User-correctable provider errors
	ErrInvalidInput  = errors.New("invalid input")
	ErrAlreadyExists = errors.New("already exists")

	// Downstream service errors
	ErrDownstreamService  = errors.New("downstream service error")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrPaymentDeclined    = errors.New("payment declined")
	ErrGatewayTimeout     = errors.New("payment gateway timeout")

	// Persistence errors
	ErrOptimisticLockFailed = errors.New("optimistic lock conflict")

	// Concurrency errors
	ErrCheckoutInProgress    = errors.New("another checkout is in progress for this customer")
	ErrLockAcquisitionFailed = errors.New("failed to acquire lock")
	ErrLockNotHeld           = errors.New("lock not held")

	// Auth errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
)

// DomainError wraps errors with additional context
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Downstream wraps a collaborator failure that is not attributable to the caller's input.
func Downstream(service string, err error) *DomainError {
	return NewDomainError("downstream_error", service+" request failed", errors.Join(ErrDownstreamService, err))
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}
