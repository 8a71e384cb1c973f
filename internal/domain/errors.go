package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business logic error
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

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Retryable interface for errors that can be retried
type Retryable interface {
	IsRetryable() bool
}

const (
	ErrCodeInvalidTransition     = "INVALID_TRANSITION"
	ErrCodeOrderNotFound         = "ORDER_NOT_FOUND"
	ErrCodeSessionNotFound       = "SESSION_NOT_FOUND"
	ErrCodeInvalidAmount         = "INVALID_AMOUNT"
	ErrCodeMissingRequiredField  = "MISSING_REQUIRED_FIELD"
	ErrCodeOrderFinalized        = "ORDER_FINALIZED"
	ErrCodeTokenAlreadySet       = "TOKEN_ALREADY_SET"
	ErrCodeConfigurationMissing  = "CONFIGURATION_MISSING"
	ErrCodeTransport             = "TRANSPORT_ERROR"
	ErrCodeAuthorizationRejected = "AUTHORIZATION_REJECTED"
	ErrCodeIntentRejected        = "INTENT_REJECTED"
	ErrCodeMalformedResponse     = "MALFORMED_RESPONSE"
	ErrCodeQuery                 = "QUERY_ERROR"
)

var (
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrOrderNotFound     = errors.New("order not found")
	ErrSessionNotFound   = errors.New("payment session not found")
)

func NewMissingRequiredFieldError(field string) *DomainError {
	return &DomainError{
		Code:    ErrCodeMissingRequiredField,
		Message: fmt.Sprintf("%s is required", field),
	}
}

func NewInvalidAmountError(amount string) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidAmount,
		Message: fmt.Sprintf("invalid amount %s", amount),
	}
}

func NewInvalidTransitionError(from, to OrderStatus) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidTransition,
		Message: fmt.Sprintf("cannot transition from %s to %s", from, to),
		Err:     ErrInvalidTransition,
	}
}

func NewOrderNotFoundError(id int64) *DomainError {
	return &DomainError{
		Code:    ErrCodeOrderNotFound,
		Message: fmt.Sprintf("order %d not found", id),
		Err:     ErrOrderNotFound,
	}
}

func NewSessionNotFoundError(orderID int64) *DomainError {
	return &DomainError{
		Code:    ErrCodeSessionNotFound,
		Message: fmt.Sprintf("no payment session for order %d", orderID),
		Err:     ErrSessionNotFound,
	}
}

func NewOrderFinalizedError(id int64, status OrderStatus) *DomainError {
	return &DomainError{
		Code:    ErrCodeOrderFinalized,
		Message: fmt.Sprintf("order %d is already %s", id, status),
	}
}

func NewTokenAlreadySetError(orderID int64) *DomainError {
	return &DomainError{
		Code:    ErrCodeTokenAlreadySet,
		Message: fmt.Sprintf("payment token for order %d is already set", orderID),
	}
}

// IsErrorCode checks if an error is a DomainError with a specific code
func IsErrorCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}
