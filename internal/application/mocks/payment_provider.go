// Package mocks holds testify mocks of the application ports.
package mocks

import (
	"context"

	"github.com/DanielPopoola/paytoday-gateway/internal/application"
	"github.com/stretchr/testify/mock"
)

type MockPaymentProvider struct {
	mock.Mock
}

// NewMockPaymentProvider registers AssertExpectations on cleanup.
func NewMockPaymentProvider(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockPaymentProvider {
	m := &MockPaymentProvider{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ application.PaymentProvider = (*MockPaymentProvider)(nil)

func (m *MockPaymentProvider) Authorize(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockPaymentProvider) CreateIntent(ctx context.Context, authToken string, req application.IntentRequest) (*application.Intent, error) {
	args := m.Called(ctx, authToken, req)
	intent, _ := args.Get(0).(*application.Intent)
	return intent, args.Error(1)
}

func (m *MockPaymentProvider) QueryStatus(ctx context.Context, paymentToken, authToken string) (*application.StatusResult, error) {
	args := m.Called(ctx, paymentToken, authToken)
	res, _ := args.Get(0).(*application.StatusResult)
	return res, args.Error(1)
}
