package domain_test

import (
	"testing"

	"github.com/DanielPopoola/paytoday-gateway/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentSession_Start(t *testing.T) {
	details := domain.IntentDetails{
		Amount:        decimal.RequireFromString("100.00"),
		InvoiceNumber: "42",
	}

	t.Run("starts polling", func(t *testing.T) {
		session, err := domain.NewPaymentSession(42, domain.EnvironmentSandbox, details)
		require.NoError(t, err)

		token := domain.PaymentToken{Value: "abc123", Provenance: domain.DerivedFromURL}
		require.NoError(t, session.Start("T1", token, "https://pay/abc123", "key"))

		assert.True(t, session.PollingActive)
		assert.True(t, session.HasTokens())
		assert.True(t, session.PaymentToken.IsDerived())
		assert.NotNil(t, session.StatusCheckStartedAt)
	})

	t.Run("payment token is never overwritten", func(t *testing.T) {
		session, err := domain.NewPaymentSession(42, domain.EnvironmentSandbox, details)
		require.NoError(t, err)
		require.NoError(t, session.Start("T1", domain.PaymentToken{Value: "one"}, "u", "k"))

		err = session.Start("T2", domain.PaymentToken{Value: "two"}, "u", "k")

		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeTokenAlreadySet))
		assert.Equal(t, "one", session.PaymentToken.Value)
	})

	t.Run("requires invoice number", func(t *testing.T) {
		_, err := domain.NewPaymentSession(42, domain.EnvironmentSandbox, domain.IntentDetails{Amount: decimal.NewFromInt(1)})
		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeMissingRequiredField))
	})
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "***456789", domain.Redact("abc123456789"))
	assert.Equal(t, "***", domain.Redact("short"))
}
