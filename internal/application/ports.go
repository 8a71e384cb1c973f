package application

import (
	"context"
	"time"

	"github.com/DanielPopoola/paytoday-gateway/internal/domain"
	"github.com/shopspring/decimal"
)

// PaymentProvider is the port for the PayToday API.
type PaymentProvider interface {
	// Authorize exchanges the shop credentials for a bearer token.
	Authorize(ctx context.Context) (string, error)
	CreateIntent(ctx context.Context, authToken string, req IntentRequest) (*Intent, error)
	// QueryStatus never reports a provider status as an error; only failures
	// to ask are returned as errors.
	QueryStatus(ctx context.Context, paymentToken, authToken string) (*StatusResult, error)
}

type IntentRequest struct {
	Amount        decimal.Decimal
	InvoiceNumber string
	Customer      domain.Customer
	ReturnURL     string
}

type Intent struct {
	PaymentURL string
	Token      domain.PaymentToken
}

type StatusResult struct {
	Status    domain.TransactionStatus
	RawStatus string
	// Payload is the decoded envelope, kept for diagnostics.
	Payload map[string]any
}

// OrderRepository is the port for the host order records.
type OrderRepository interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	FindOrder(ctx context.Context, id int64) (*domain.Order, error)
	FindOrderForUpdate(ctx context.Context, id int64) (*domain.Order, error)
	UpdateOrder(ctx context.Context, order *domain.Order) error
	AddNote(ctx context.Context, orderID int64, body string) error
	ListNotes(ctx context.Context, orderID int64) ([]domain.OrderNote, error)
}

// SessionRepository stores one PaymentSession per order.
type SessionRepository interface {
	SaveSession(ctx context.Context, session *domain.PaymentSession) error
	FindSession(ctx context.Context, orderID int64) (*domain.PaymentSession, error)
	// StopPolling flips polling_active from true to false and reports whether
	// this call was the one that flipped it.
	StopPolling(ctx context.Context, orderID int64) (bool, error)
	// ListActiveSessions pages through polling sessions in order_id order,
	// starting after afterOrderID.
	ListActiveSessions(ctx context.Context, afterOrderID int64, limit int) ([]*domain.PaymentSession, error)
}

// OutboxRepository holds order events until they are published.
type OutboxRepository interface {
	EnqueueEvent(ctx context.Context, event *domain.OrderEvent) error
	ListPendingEvents(ctx context.Context, limit int) ([]*domain.OrderEvent, error)
	MarkEventPublished(ctx context.Context, event *domain.OrderEvent, at time.Time) error
	CountEvents(ctx context.Context, orderID int64) (int, error)
}

// Repositories is the set handed to a transaction callback.
type Repositories struct {
	Orders   OrderRepository
	Sessions SessionRepository
	Outbox   OutboxRepository
}

// Store groups the repositories and runs callbacks in one transaction.
type Store interface {
	Orders() OrderRepository
	Sessions() SessionRepository
	Outbox() OutboxRepository
	WithTx(ctx context.Context, fn func(repos Repositories) error) error
}

// Locker serializes reconciliation of one order.
type Locker interface {
	Lock(ctx context.Context, orderID int64) (unlock func(), err error)
}

// PollScheduler runs the recurring status check for orders.
type PollScheduler interface {
	Schedule(orderID int64) error
	Cancel(orderID int64)
}

// EventPublisher delivers order events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, events ...*domain.OrderEvent) error
}
