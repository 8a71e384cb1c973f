package application

import (
	"context"
	"errors"
	"net/http"

	"github.com/DanielPopoola/paytoday-gateway/internal/domain"
)

// ErrorCategory represents the nature of an error for retry and logging
type ErrorCategory string

const (
	CategoryTransient      ErrorCategory = "TRANSIENT"
	CategoryPermanent      ErrorCategory = "PERMANENT"
	CategoryBusinessRule   ErrorCategory = "BUSINESS_RULE"
	CategoryClientError    ErrorCategory = "CLIENT_ERROR"
	CategoryInfrastructure ErrorCategory = "INFRASTRUCTURE"
)

// CategorizeError determines error category for retry and logging purposes
func CategorizeError(err error) ErrorCategory {
	if err == nil {
		return ""
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return CategoryTransient
	}

	if provErr, ok := IsProviderError(err); ok {
		if provErr.IsRetryable() || provErr.Code == domain.ErrCodeQuery {
			return CategoryTransient
		}
		if provErr.Code == domain.ErrCodeConfigurationMissing {
			return CategoryInfrastructure
		}
		return CategoryPermanent
	}

	if svcErr, ok := IsServiceError(err); ok {
		switch svcErr.Code {
		case ErrCodeInvalidInput, ErrCodeMissingInvoice, ErrCodeMissingTokens,
			ErrCodeOrderNotFound, ErrCodeForbidden, ErrCodeUnauthorized:
			return CategoryClientError
		case ErrCodeOrderFinalized:
			return CategoryBusinessRule
		case ErrCodeTimeout:
			return CategoryTransient
		case ErrCodeProviderNotReady:
			return CategoryInfrastructure
		}
		if svcErr.Err != nil {
			return CategorizeError(svcErr.Err)
		}
		return CategoryPermanent
	}

	if errors.Is(err, domain.ErrInvalidTransition) ||
		domain.IsErrorCode(err, domain.ErrCodeOrderFinalized) ||
		domain.IsErrorCode(err, domain.ErrCodeTokenAlreadySet) {
		return CategoryBusinessRule
	}

	if errors.Is(err, domain.ErrOrderNotFound) ||
		errors.Is(err, domain.ErrSessionNotFound) ||
		domain.IsErrorCode(err, domain.ErrCodeMissingRequiredField) ||
		domain.IsErrorCode(err, domain.ErrCodeInvalidAmount) {
		return CategoryClientError
	}

	return CategoryInfrastructure
}

// ToHTTPStatus maps an error to the status code written to clients.
func ToHTTPStatus(err error) int {
	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.HTTPStatus
	}

	switch {
	case errors.Is(err, domain.ErrOrderNotFound), errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidTransition),
		domain.IsErrorCode(err, domain.ErrCodeOrderFinalized),
		domain.IsErrorCode(err, domain.ErrCodeTokenAlreadySet):
		return http.StatusConflict
	case domain.IsErrorCode(err, domain.ErrCodeMissingRequiredField),
		domain.IsErrorCode(err, domain.ErrCodeInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout
	}

	if provErr, ok := IsProviderError(err); ok {
		if provErr.Code == domain.ErrCodeConfigurationMissing {
			return http.StatusServiceUnavailable
		}
		return http.StatusBadGateway
	}

	return http.StatusInternalServerError
}

// ToErrorCode returns the error code for API responses
func ToErrorCode(err error) string {
	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.Code
	}

	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}

	if provErr, ok := IsProviderError(err); ok {
		return provErr.Code
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrCodeTimeout
	}

	return ErrCodeInternal
}

// PublicMessage returns the message safe to show to a caller.
func PublicMessage(err error) string {
	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.Message
	}
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return "An internal error occurred"
}
