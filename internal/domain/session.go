package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Environment string

const (
	EnvironmentSandbox Environment = "sandbox"
	EnvironmentLive    Environment = "live"
)

// PaymentSession tracks one provider transaction for an order. There is at
// most one per order; a new checkout attempt replaces it.
type PaymentSession struct {
	OrderID       int64
	Amount        decimal.Decimal
	InvoiceNumber string
	Customer      Customer
	ReturnURL     string
	Environment   Environment

	AuthorizationToken string
	PaymentToken       PaymentToken
	PaymentURL         string
	// AccessKey authorizes the payer's browser to poll this session.
	AccessKey string

	StatusCheckStartedAt *time.Time
	PollingActive        bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

type IntentDetails struct {
	Amount        decimal.Decimal
	InvoiceNumber string
	Customer      Customer
	ReturnURL     string
}

func NewPaymentSession(orderID int64, env Environment, details IntentDetails) (*PaymentSession, error) {
	if orderID <= 0 {
		return nil, NewMissingRequiredFieldError("order_id")
	}
	if !details.Amount.IsPositive() {
		return nil, NewInvalidAmountError(details.Amount.StringFixed(2))
	}
	if details.InvoiceNumber == "" {
		return nil, NewMissingRequiredFieldError("invoice_number")
	}

	now := time.Now().UTC()
	return &PaymentSession{
		OrderID:       orderID,
		Amount:        details.Amount,
		InvoiceNumber: details.InvoiceNumber,
		Customer:      details.Customer,
		ReturnURL:     details.ReturnURL,
		Environment:   env,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// Start records the provider handles and turns polling on.
func (s *PaymentSession) Start(authToken string, token PaymentToken, paymentURL, accessKey string) error {
	if !s.PaymentToken.IsZero() && s.PaymentToken.Value != token.Value {
		return NewTokenAlreadySetError(s.OrderID)
	}
	now := time.Now().UTC()
	s.AuthorizationToken = authToken
	s.PaymentToken = token
	s.PaymentURL = paymentURL
	s.AccessKey = accessKey
	s.StatusCheckStartedAt = &now
	s.PollingActive = true
	s.UpdatedAt = now
	return nil
}

// HasTokens reports whether the session can be queried.
func (s *PaymentSession) HasTokens() bool {
	return s.AuthorizationToken != "" && !s.PaymentToken.IsZero()
}
