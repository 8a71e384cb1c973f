package application

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/DanielPopoola/paytoday-gateway/internal/domain"
)

// APPLICATION-LEVEL ERRORS (Orchestration)

type ServiceError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

const (
	ErrCodeInternal         = "INTERNAL_ERROR"
	ErrCodeInvalidInput     = "INVALID_INPUT"
	ErrCodeOrderNotFound    = "ORDER_NOT_FOUND"
	ErrCodeMissingInvoice   = "MISSING_INVOICE_NUMBER"
	ErrCodeMissingTokens    = "MISSING_TOKENS"
	ErrCodeOrderFinalized   = "ORDER_FINALIZED"
	ErrCodeCheckoutFailed   = "CHECKOUT_FAILED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeProviderNotReady = "CONFIGURATION_MISSING"
	ErrCodeTimeout          = "TIMEOUT"
)

func NewInternalError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeInternal,
		Message:    "An internal error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func NewInvalidInputError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeInvalidInput,
		Message:    "Invalid input",
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
	}
}

func NewOrderNotFoundError(orderID int64) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeOrderNotFound,
		Message:    "Order not found.",
		HTTPStatus: http.StatusNotFound,
		Err:        domain.NewOrderNotFoundError(orderID),
	}
}

func NewMissingInvoiceError() *ServiceError {
	return &ServiceError{
		Code:       ErrCodeMissingInvoice,
		Message:    "Missing invoice_number.",
		HTTPStatus: http.StatusBadRequest,
	}
}

func NewMissingTokensError() *ServiceError {
	return &ServiceError{
		Code:       ErrCodeMissingTokens,
		Message:    "Missing payment tokens",
		HTTPStatus: http.StatusBadRequest,
	}
}

func NewOrderFinalizedError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeOrderFinalized,
		Message:    "Order is already finalized",
		HTTPStatus: http.StatusConflict,
		Err:        err,
	}
}

func NewCheckoutFailedError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeCheckoutFailed,
		Message:    "Payment failed. Please try again.",
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

func NewProviderNotConfiguredError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeProviderNotReady,
		Message:    "Payment method is not configured",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

func NewForbiddenError() *ServiceError {
	return &ServiceError{
		Code:       ErrCodeForbidden,
		Message:    "Invalid access key",
		HTTPStatus: http.StatusForbidden,
	}
}

func NewUnauthorizedError() *ServiceError {
	return &ServiceError{
		Code:       ErrCodeUnauthorized,
		Message:    "Missing or invalid admin token",
		HTTPStatus: http.StatusUnauthorized,
	}
}

func IsServiceError(err error) (*ServiceError, bool) {
	var svcErr *ServiceError
	ok := errors.As(err, &svcErr)
	return svcErr, ok
}

// PROVIDER ERRORS

// ProviderError is returned by every PaymentProvider call that fails. Code is
// one of the domain provider codes.
type ProviderError struct {
	Code       string
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("paytoday %s [%s]", e.Op, e.Code)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status: %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether repeating the same call may succeed.
func (e *ProviderError) IsRetryable() bool {
	switch e.Code {
	case domain.ErrCodeTransport:
		return true
	case domain.ErrCodeQuery:
		return e.StatusCode == 0 || e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
	case domain.ErrCodeAuthorizationRejected, domain.ErrCodeIntentRejected:
		return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
	default:
		return false
	}
}

func IsProviderError(err error) (*ProviderError, bool) {
	var provErr *ProviderError
	ok := errors.As(err, &provErr)
	return provErr, ok
}

// IsProviderErrorCode checks the code of a ProviderError anywhere in the chain.
func IsProviderErrorCode(err error, code string) bool {
	provErr, ok := IsProviderError(err)
	return ok && provErr.Code == code
}
