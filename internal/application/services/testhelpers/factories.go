package testhelpers

import (
	"context"
	"testing"

	"github.com/DanielPopoola/paytoday-gateway/internal/application"
	"github.com/DanielPopoola/paytoday-gateway/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// DefaultCustomer is the payer used across fixtures.
func DefaultCustomer() domain.Customer {
	return domain.Customer{
		FirstName: "Ada",
		LastName:  "Nangolo",
		Email:     "ada@example.com",
		Phone:     "+264811234567",
	}
}

// CreatePendingOrder stores a pending order with the given total.
func CreatePendingOrder(t *testing.T, ctx context.Context, store application.Store, id int64, total string) *domain.Order {
	t.Helper()

	order, err := domain.NewOrder(id, decimal.RequireFromString(total), DefaultCustomer())
	require.NoError(t, err)
	require.NoError(t, store.Orders().CreateOrder(ctx, order))
	return order
}

// CreatePollingSession stores a started session for an existing order.
func CreatePollingSession(t *testing.T, ctx context.Context, store application.Store, order *domain.Order, token domain.PaymentToken) *domain.PaymentSession {
	t.Helper()

	session, err := domain.NewPaymentSession(order.ID, domain.EnvironmentSandbox, domain.IntentDetails{
		Amount:        order.Total,
		InvoiceNumber: uuid.NewString()[:8],
		Customer:      order.Customer,
		ReturnURL:     "https://shop.example/paytoday/return",
	})
	require.NoError(t, err)
	require.NoError(t, session.Start("AUTH-1", token, "https://pay.example/payments/"+token.Value, uuid.NewString()))
	require.NoError(t, store.Sessions().SaveSession(ctx, session))
	return session
}
