package api

import "time"

type Customer struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email" validate:"omitempty,email"`
	Phone     string `json:"phone"`
}

type CheckoutRequest struct {
	OrderID       int64    `json:"order_id" validate:"required,gt=0"`
	Amount        string   `json:"amount" validate:"required"`
	InvoiceNumber string   `json:"invoice_number"`
	ReturnURL     string   `json:"return_url" validate:"omitempty,url"`
	Customer      Customer `json:"customer"`
}

type CheckoutResult struct {
	OrderID             int64  `json:"order_id"`
	RedirectURL         string `json:"redirect_url"`
	AccessKey           string `json:"access_key"`
	TokenProvenance     string `json:"token_provenance"`
	PollIntervalSeconds int    `json:"poll_interval_seconds"`
	PollTimeoutSeconds  int    `json:"poll_timeout_seconds"`
}

// PaymentStatus is the short-poll body. Only the flag that is true is sent.
type PaymentStatus struct {
	Completed         bool       `json:"completed,omitempty"`
	Failed            bool       `json:"failed,omitempty"`
	Pending           bool       `json:"pending,omitempty"`
	RedirectURL       string     `json:"redirect_url,omitempty"`
	RawStatus         string     `json:"raw_status,omitempty"`
	RetryAfterSeconds int        `json:"retry_after_seconds,omitempty"`
	PollUntil         *time.Time `json:"poll_until,omitempty"`
}

type CheckResult struct {
	OrderID           int64  `json:"order_id"`
	Outcome           string `json:"outcome"`
	OrderStatus       string `json:"order_status"`
	TransactionStatus string `json:"transaction_status,omitempty"`
	RawStatus         string `json:"raw_status,omitempty"`
	Applied           bool   `json:"applied"`
}

type Health struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Envelope wraps every successful body.
type Envelope[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
}

type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
