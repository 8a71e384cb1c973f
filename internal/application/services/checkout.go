package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/DanielPopoola/paytoday-gateway/internal/application"
	"github.com/DanielPopoola/paytoday-gateway/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CheckoutCommand struct {
	OrderID       int64
	Amount        decimal.Decimal
	InvoiceNumber string
	Customer      domain.Customer
	// ReturnURL overrides the configured redirect target.
	ReturnURL string
}

type CheckoutResult struct {
	OrderID             int64
	RedirectURL         string
	AccessKey           string
	TokenProvenance     domain.TokenProvenance
	PollIntervalSeconds int
	PollTimeoutSeconds  int
}

// CheckoutSettings are the fixed inputs of every checkout attempt.
type CheckoutSettings struct {
	Environment       domain.Environment
	ReturnURL         string
	ClientInterval    time.Duration
	ClientMaxDuration time.Duration
}

type CheckoutService struct {
	store     application.Store
	provider  application.PaymentProvider
	scheduler application.PollScheduler
	settings  CheckoutSettings
	logger    *slog.Logger
}

func NewCheckoutService(
	store application.Store,
	provider application.PaymentProvider,
	scheduler application.PollScheduler,
	settings CheckoutSettings,
	logger *slog.Logger,
) *CheckoutService {
	return &CheckoutService{
		store:     store,
		provider:  provider,
		scheduler: scheduler,
		settings:  settings,
		logger:    logger,
	}
}

// ProcessPayment starts a PayToday transaction for an order and returns the
// URL the payer must be sent to.
func (s *CheckoutService) ProcessPayment(ctx context.Context, cmd CheckoutCommand) (*CheckoutResult, error) {
	if cmd.InvoiceNumber == "" {
		cmd.InvoiceNumber = strconv.FormatInt(cmd.OrderID, 10)
	}
	if cmd.ReturnURL == "" {
		cmd.ReturnURL = s.settings.ReturnURL
	}

	session, err := domain.NewPaymentSession(cmd.OrderID, s.settings.Environment, domain.IntentDetails{
		Amount:        cmd.Amount,
		InvoiceNumber: cmd.InvoiceNumber,
		Customer:      cmd.Customer,
		ReturnURL:     cmd.ReturnURL,
	})
	if err != nil {
		return nil, application.NewInvalidInputError(err)
	}

	if err := s.upsertOrder(ctx, cmd); err != nil {
		return nil, err
	}

	authToken, err := s.provider.Authorize(ctx)
	if err != nil {
		return nil, s.checkoutFailed(ctx, cmd.OrderID, err)
	}

	intent, err := s.provider.CreateIntent(ctx, authToken, application.IntentRequest{
		Amount:        cmd.Amount,
		InvoiceNumber: cmd.InvoiceNumber,
		Customer:      cmd.Customer,
		ReturnURL:     cmd.ReturnURL,
	})
	if err != nil {
		return nil, s.checkoutFailed(ctx, cmd.OrderID, err)
	}

	if err := session.Start(authToken, intent.Token, intent.PaymentURL, uuid.NewString()); err != nil {
		return nil, application.NewInternalError(err)
	}
	if err := s.store.Sessions().SaveSession(ctx, session); err != nil {
		return nil, application.NewInternalError(err)
	}

	if session.HasTokens() {
		if err := s.scheduler.Schedule(cmd.OrderID); err != nil {
			s.logger.ErrorContext(ctx, "failed to schedule status polling",
				"order_id", cmd.OrderID,
				"error", err,
			)
		}
	} else {
		s.logger.WarnContext(ctx, "intent returned no usable payment token",
			"order_id", cmd.OrderID,
			"payment_url", intent.PaymentURL,
		)
	}

	s.logger.InfoContext(ctx, "checkout started",
		"order_id", cmd.OrderID,
		"amount", cmd.Amount.StringFixed(2),
		"token", domain.Redact(intent.Token.Value),
		"token_provenance", intent.Token.Provenance,
	)

	return &CheckoutResult{
		OrderID:             cmd.OrderID,
		RedirectURL:         intent.PaymentURL,
		AccessKey:           session.AccessKey,
		TokenProvenance:     intent.Token.Provenance,
		PollIntervalSeconds: int(s.settings.ClientInterval / time.Second),
		PollTimeoutSeconds:  int(s.settings.ClientMaxDuration / time.Second),
	}, nil
}

func (s *CheckoutService) upsertOrder(ctx context.Context, cmd CheckoutCommand) error {
	err := s.store.WithTx(ctx, func(repos application.Repositories) error {
		order, err := repos.Orders.FindOrderForUpdate(ctx, cmd.OrderID)
		switch {
		case errors.Is(err, domain.ErrOrderNotFound):
			order, err = domain.NewOrder(cmd.OrderID, cmd.Amount, cmd.Customer)
			if err != nil {
				return err
			}
			if err := repos.Orders.CreateOrder(ctx, order); err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if err := order.Reopen(cmd.Amount, cmd.Customer); err != nil {
				return err
			}
			if err := repos.Orders.UpdateOrder(ctx, order); err != nil {
				return err
			}
		}
		return repos.Orders.AddNote(ctx, cmd.OrderID, "Awaiting PayToday payment")
	})

	switch {
	case err == nil:
		return nil
	case domain.IsErrorCode(err, domain.ErrCodeOrderFinalized):
		return application.NewOrderFinalizedError(err)
	case domain.IsErrorCode(err, domain.ErrCodeInvalidAmount),
		domain.IsErrorCode(err, domain.ErrCodeMissingRequiredField):
		return application.NewInvalidInputError(err)
	default:
		return application.NewInternalError(err)
	}
}

// checkoutFailed notes the provider failure on the order and maps it to the
// error the payer sees.
func (s *CheckoutService) checkoutFailed(ctx context.Context, orderID int64, cause error) error {
	s.logger.ErrorContext(ctx, "checkout failed",
		"order_id", orderID,
		"category", application.CategorizeError(cause),
		"error", cause,
	)

	note := fmt.Sprintf("PayToday payment error: %v", cause)
	if err := s.store.Orders().AddNote(ctx, orderID, note); err != nil {
		s.logger.ErrorContext(ctx, "failed to add order note", "order_id", orderID, "error", err)
	}

	if application.IsProviderErrorCode(cause, domain.ErrCodeConfigurationMissing) {
		return application.NewProviderNotConfiguredError(cause)
	}
	return application.NewCheckoutFailedError(cause)
}
