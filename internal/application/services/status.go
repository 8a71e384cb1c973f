package services

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"time"

	"github.com/DanielPopoola/paytoday-gateway/internal/application"
	"github.com/DanielPopoola/paytoday-gateway/internal/domain"
)

// PaymentStatus is the answer to one client short-poll request. Exactly one
// of Completed, Failed and Pending is set.
type PaymentStatus struct {
	Completed         bool
	Failed            bool
	Pending           bool
	RedirectURL       string
	RawStatus         string
	RetryAfterSeconds int
	PollUntil         *time.Time
}

type StatusSettings struct {
	OrderReceivedURL  func(orderID int64) string
	ClientInterval    time.Duration
	ClientMaxDuration time.Duration
}

// StatusService backs the payer's short-poll endpoint.
type StatusService struct {
	store      application.Store
	reconciler *Reconciler
	settings   StatusSettings
	logger     *slog.Logger
}

func NewStatusService(store application.Store, reconciler *Reconciler, settings StatusSettings, logger *slog.Logger) *StatusService {
	return &StatusService{
		store:      store,
		reconciler: reconciler,
		settings:   settings,
		logger:     logger,
	}
}

func (s *StatusService) PaymentStatus(ctx context.Context, orderID int64, accessKey string) (*PaymentStatus, error) {
	order, session, err := s.reconciler.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, application.NewMissingTokensError()
	}
	if subtle.ConstantTimeCompare([]byte(session.AccessKey), []byte(accessKey)) != 1 {
		return nil, application.NewForbiddenError()
	}

	if status := s.settled(order); status != nil {
		return status, nil
	}
	if !session.HasTokens() {
		return nil, application.NewMissingTokensError()
	}

	decision, err := s.reconciler.Check(ctx, orderID, domain.DriverClientPoll)
	if err != nil {
		return nil, err
	}

	switch decision.OrderStatus {
	case domain.OrderCompleted, domain.OrderFailed, domain.OrderCancelled:
		order.Status = decision.OrderStatus
		return s.settled(order), nil
	}

	status := &PaymentStatus{
		Pending:           true,
		RawStatus:         decision.RawStatus,
		RetryAfterSeconds: int(s.settings.ClientInterval / time.Second),
	}
	if decision.Outcome == OutcomeQueryError {
		status.RawStatus = string(domain.TransactionUnknown)
	}
	if session.StatusCheckStartedAt != nil {
		until := session.StatusCheckStartedAt.Add(s.settings.ClientMaxDuration)
		status.PollUntil = &until
	}
	return status, nil
}

func (s *StatusService) settled(order *domain.Order) *PaymentStatus {
	switch order.Status {
	case domain.OrderCompleted:
		return &PaymentStatus{Completed: true, RedirectURL: s.settings.OrderReceivedURL(order.ID)}
	case domain.OrderFailed, domain.OrderCancelled:
		return &PaymentStatus{Failed: true}
	}
	return nil
}
