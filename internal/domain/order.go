// Package domain holds the order lifecycle and the payment session that tracks
// a provider transaction for it.
package domain

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus mirrors the host shop's order states that this service touches.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderOnHold    OrderStatus = "on-hold"
	OrderCompleted OrderStatus = "completed"
	OrderFailed    OrderStatus = "failed"
	OrderCancelled OrderStatus = "cancelled"
)

type Customer struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

type Order struct {
	ID                   int64
	Status               OrderStatus
	Total                decimal.Decimal
	Customer             Customer
	TransactionReference string
	CreatedAt            time.Time
	UpdatedAt            time.Time
	CompletedAt          *time.Time
}

// OrderNote is an annotation appended on every status change.
type OrderNote struct {
	OrderID   int64
	Body      string
	CreatedAt time.Time
}

func NewOrder(id int64, total decimal.Decimal, customer Customer) (*Order, error) {
	if id <= 0 {
		return nil, NewMissingRequiredFieldError("order_id")
	}
	if !total.IsPositive() {
		return nil, NewInvalidAmountError(total.StringFixed(2))
	}

	now := time.Now().UTC()
	return &Order{
		ID:        id,
		Status:    OrderPending,
		Total:     total,
		Customer:  customer,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Complete marks the order paid with the provider reference.
func (o *Order) Complete(reference string) error {
	if err := o.transition(OrderCompleted); err != nil {
		return err
	}
	now := time.Now().UTC()
	o.CompletedAt = &now
	if reference != "" {
		o.TransactionReference = reference
	}
	return nil
}

func (o *Order) Fail() error {
	return o.transition(OrderFailed)
}

// Recover moves a failed order to completed. It is the only way out of a
// terminal state and must be requested explicitly by the caller.
func (o *Order) Recover(reference string) error {
	if o.Status != OrderFailed {
		return NewInvalidTransitionError(o.Status, OrderCompleted)
	}
	o.Status = OrderCompleted
	now := time.Now().UTC()
	o.CompletedAt = &now
	o.UpdatedAt = now
	if reference != "" {
		o.TransactionReference = reference
	}
	return nil
}

// Reopen puts a non-terminal order back to pending for a new checkout attempt.
func (o *Order) Reopen(total decimal.Decimal, customer Customer) error {
	if o.IsTerminal() {
		return NewOrderFinalizedError(o.ID, o.Status)
	}
	o.Status = OrderPending
	o.Total = total
	o.Customer = customer
	o.UpdatedAt = time.Now().UTC()
	return nil
}

func (o *Order) transition(target OrderStatus) error {
	if err := o.canTransitionTo(target); err != nil {
		return err
	}
	o.Status = target
	o.UpdatedAt = time.Now().UTC()
	return nil
}

func (o *Order) canTransitionTo(target OrderStatus) error {
	switch o.Status {
	case OrderPending:
		return o.allow(target, OrderOnHold, OrderCompleted, OrderFailed, OrderCancelled)
	case OrderOnHold:
		return o.allow(target, OrderPending, OrderCompleted, OrderFailed, OrderCancelled)
	}
	return NewInvalidTransitionError(o.Status, target)
}

func (o *Order) allow(target OrderStatus, allowed ...OrderStatus) error {
	if slices.Contains(allowed, target) {
		return nil
	}
	return NewInvalidTransitionError(o.Status, target)
}

// IsTerminal reports whether no polling driver may change the order any more.
func (o *Order) IsTerminal() bool {
	switch o.Status {
	case OrderCompleted, OrderFailed, OrderCancelled:
		return true
	default:
		return false
	}
}
