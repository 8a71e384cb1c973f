package services_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DanielPopoola/paytoday-gateway/internal/application"
	"github.com/DanielPopoola/paytoday-gateway/internal/application/mocks"
	"github.com/DanielPopoola/paytoday-gateway/internal/application/services"
	"github.com/DanielPopoola/paytoday-gateway/internal/application/services/testhelpers"
	"github.com/DanielPopoola/paytoday-gateway/internal/domain"
	"github.com/DanielPopoola/paytoday-gateway/internal/infrastructure/lock"
	"github.com/DanielPopoola/paytoday-gateway/internal/infrastructure/persistence/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type driverFixture struct {
	store      *memory.Store
	provider   *mocks.MockPaymentProvider
	reconciler *services.Reconciler
	status     *services.StatusService
	returns    *services.ReturnService
	session    *domain.PaymentSession
}

func orderReceived(id int64) string {
	return fmt.Sprintf("https://shop.example/checkout/order-received/%d", id)
}

func newDriverFixture(t *testing.T) *driverFixture {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	f := &driverFixture{
		store:    memory.NewStore(),
		provider: mocks.NewMockPaymentProvider(t),
	}
	f.reconciler = services.NewReconciler(f.store, f.provider, lock.NewKeyedMutex(), logger)
	f.status = services.NewStatusService(f.store, f.reconciler, services.StatusSettings{
		OrderReceivedURL:  orderReceived,
		ClientInterval:    15 * time.Second,
		ClientMaxDuration: 30 * time.Minute,
	}, logger)
	f.returns = services.NewReturnService(f.reconciler, services.ReturnSettings{
		OrderReceivedURL: orderReceived,
		CheckoutURL:      "https://shop.example/checkout",
	}, logger)

	order := testhelpers.CreatePendingOrder(t, ctx, f.store, 42, "100.00")
	f.session = testhelpers.CreatePollingSession(t, ctx, f.store, order,
		domain.PaymentToken{Value: "abc123", Provenance: domain.DerivedFromURL})
	return f
}

func TestPaymentStatus_Pending(t *testing.T) {
	f := newDriverFixture(t)
	f.provider.On("QueryStatus", mock.Anything, "abc123", "AUTH-1").
		Return(&application.StatusResult{Status: domain.TransactionPending, RawStatus: "PENDING"}, nil).Once()

	status, err := f.status.PaymentStatus(context.Background(), 42, f.session.AccessKey)
	require.NoError(t, err)
	assert.True(t, status.Pending)
	assert.Equal(t, "PENDING", status.RawStatus)
	assert.Equal(t, 15, status.RetryAfterSeconds)
	require.NotNil(t, status.PollUntil)
	assert.WithinDuration(t, f.session.StatusCheckStartedAt.Add(30*time.Minute), *status.PollUntil, time.Second)
}

func TestPaymentStatus_CompletesOrder(t *testing.T) {
	f := newDriverFixture(t)
	f.provider.On("QueryStatus", mock.Anything, "abc123", "AUTH-1").
		Return(&application.StatusResult{Status: domain.TransactionSuccess, RawStatus: "success"}, nil).Once()

	status, err := f.status.PaymentStatus(context.Background(), 42, f.session.AccessKey)
	require.NoError(t, err)
	assert.True(t, status.Completed)
	assert.Equal(t, orderReceived(42), status.RedirectURL)

	again, err := f.status.PaymentStatus(context.Background(), 42, f.session.AccessKey)
	require.NoError(t, err)
	assert.True(t, again.Completed)
	f.provider.AssertNumberOfCalls(t, "QueryStatus", 1)
}

func TestPaymentStatus_Failed(t *testing.T) {
	f := newDriverFixture(t)
	f.provider.On("QueryStatus", mock.Anything, "abc123", "AUTH-1").
		Return(&application.StatusResult{Status: domain.TransactionFailed, RawStatus: "failed"}, nil).Once()

	status, err := f.status.PaymentStatus(context.Background(), 42, f.session.AccessKey)
	require.NoError(t, err)
	assert.True(t, status.Failed)
}

func TestPaymentStatus_QueryErrorStaysPending(t *testing.T) {
	f := newDriverFixture(t)
	f.provider.On("QueryStatus", mock.Anything, "abc123", "AUTH-1").
		Return(nil, &application.ProviderError{Code: domain.ErrCodeQuery, Op: "query status"}).Once()

	status, err := f.status.PaymentStatus(context.Background(), 42, f.session.AccessKey)
	require.NoError(t, err)
	assert.True(t, status.Pending)
	assert.Equal(t, "unknown", status.RawStatus)
}

func TestPaymentStatus_Errors(t *testing.T) {
	f := newDriverFixture(t)

	tests := []struct {
		name    string
		orderID int64
		key     string
		code    string
	}{
		{name: "unknown order", orderID: 999, key: "x", code: application.ErrCodeOrderNotFound},
		{name: "wrong key", orderID: 42, key: "not-the-key", code: application.ErrCodeForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.status.PaymentStatus(context.Background(), tt.orderID, tt.key)
			svcErr, ok := application.IsServiceError(err)
			require.True(t, ok)
			assert.Equal(t, tt.code, svcErr.Code)
		})
	}
}

func TestPaymentStatus_OrderWithoutSession(t *testing.T) {
	f := newDriverFixture(t)
	testhelpers.CreatePendingOrder(t, context.Background(), f.store, 43, "1.00")

	_, err := f.status.PaymentStatus(context.Background(), 43, "")
	svcErr, ok := application.IsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, application.ErrCodeMissingTokens, svcErr.Code)
}

func TestHandleReturn(t *testing.T) {
	tests := []struct {
		name        string
		cmd         services.ReturnCommand
		wantURL     string
		wantStatus  domain.OrderStatus
		wantErrCode string
	}{
		{
			name:       "success completes",
			cmd:        services.ReturnCommand{InvoiceNumber: "42", Status: "Success", Reference: "R1", ReferenceNumber: "9"},
			wantURL:    orderReceived(42),
			wantStatus: domain.OrderCompleted,
		},
		{
			name:       "failure fails",
			cmd:        services.ReturnCommand{InvoiceNumber: "42", Status: "cancelled", Reference: "R1"},
			wantURL:    "https://shop.example/checkout",
			wantStatus: domain.OrderFailed,
		},
		{
			name:        "missing invoice",
			cmd:         services.ReturnCommand{Status: "success"},
			wantErrCode: application.ErrCodeMissingInvoice,
		},
		{
			name:        "garbage invoice",
			cmd:         services.ReturnCommand{InvoiceNumber: "abc", Status: "success"},
			wantErrCode: application.ErrCodeMissingInvoice,
		},
		{
			name:        "unknown order",
			cmd:         services.ReturnCommand{InvoiceNumber: "4242", Status: "success"},
			wantErrCode: application.ErrCodeOrderNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newDriverFixture(t)

			result, err := f.returns.HandleReturn(context.Background(), tt.cmd)
			if tt.wantErrCode != "" {
				svcErr, ok := application.IsServiceError(err)
				require.True(t, ok)
				assert.Equal(t, tt.wantErrCode, svcErr.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantURL, result.RedirectURL)

			order, err := f.store.FindOrder(context.Background(), 42)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, order.Status)
		})
	}
}

func TestHandleReturn_FailureOnCompletedOrderIsNoop(t *testing.T) {
	f := newDriverFixture(t)
	ctx := context.Background()

	_, err := f.returns.HandleReturn(ctx, services.ReturnCommand{InvoiceNumber: "42", Status: "success"})
	require.NoError(t, err)

	result, err := f.returns.HandleReturn(ctx, services.ReturnCommand{InvoiceNumber: "42", Status: "failed"})
	require.NoError(t, err)
	assert.Equal(t, services.OutcomeNoop, result.Decision.Outcome)
	assert.Equal(t, orderReceived(42), result.RedirectURL)

	order, err := f.store.FindOrder(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCompleted, order.Status)
}

func TestHandleReturn_SuccessOnFailedOrder(t *testing.T) {
	tests := []struct {
		name       string
		recovery   bool
		wantURL    string
		wantStatus domain.OrderStatus
		wantOut    services.Outcome
	}{
		{
			name:       "recovery disabled stays on checkout",
			wantURL:    "https://shop.example/checkout",
			wantStatus: domain.OrderFailed,
			wantOut:    services.OutcomeNoop,
		},
		{
			name:       "recovery enabled lands on order received",
			recovery:   true,
			wantURL:    orderReceived(42),
			wantStatus: domain.OrderCompleted,
			wantOut:    services.OutcomeRecovered,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newDriverFixture(t)
			ctx := context.Background()
			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			reconciler := services.NewReconciler(f.store, f.provider, lock.NewKeyedMutex(), logger,
				services.WithRedirectRecovery(tt.recovery))
			returns := services.NewReturnService(reconciler, services.ReturnSettings{
				OrderReceivedURL: orderReceived,
				CheckoutURL:      "https://shop.example/checkout",
			}, logger)

			_, err := returns.HandleReturn(ctx, services.ReturnCommand{InvoiceNumber: "42", Status: "cancelled"})
			require.NoError(t, err)

			result, err := returns.HandleReturn(ctx, services.ReturnCommand{InvoiceNumber: "42", Status: "success", Reference: "R2"})
			require.NoError(t, err)
			assert.Equal(t, tt.wantOut, result.Decision.Outcome)
			assert.Equal(t, tt.wantURL, result.RedirectURL)

			order, err := f.store.FindOrder(ctx, 42)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, order.Status)
		})
	}
}
