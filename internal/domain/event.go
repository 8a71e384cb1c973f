package domain

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventPaymentCompleted EventType = "payment.completed"
	EventPaymentFailed    EventType = "payment.failed"
)

// Driver names the trigger that caused a reconciliation.
type Driver string

const (
	DriverScheduled  Driver = "scheduled"
	DriverClientPoll Driver = "client_poll"
	DriverRedirect   Driver = "redirect"
	DriverManual     Driver = "manual"
)

// OrderEvent is the completion side effect of a terminal transition. Exactly
// one is written per applied transition.
type OrderEvent struct {
	ID          uuid.UUID         `json:"id"`
	OrderID     int64             `json:"order_id"`
	Type        EventType         `json:"type"`
	Status      TransactionStatus `json:"status"`
	Reference   string            `json:"reference,omitempty"`
	Driver      Driver            `json:"driver"`
	Recovered   bool              `json:"recovered,omitempty"`
	OccurredAt  time.Time         `json:"occurred_at"`
	PublishedAt *time.Time        `json:"-"`
}

func NewOrderEvent(orderID int64, typ EventType, status TransactionStatus, reference string, driver Driver) *OrderEvent {
	return &OrderEvent{
		ID:         uuid.New(),
		OrderID:    orderID,
		Type:       typ,
		Status:     status,
		Reference:  reference,
		Driver:     driver,
		OccurredAt: time.Now().UTC(),
	}
}
