package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/DanielPopoola/paytoday-gateway/internal/application"
	"github.com/DanielPopoola/paytoday-gateway/internal/domain"
	"github.com/DanielPopoola/paytoday-gateway/internal/infrastructure/telemetry"
)

type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomeRecovered Outcome = "recovered"
	// OutcomePending means the provider answered pending or unknown.
	OutcomePending Outcome = "pending"
	// OutcomeQueryError means the provider could not be asked.
	OutcomeQueryError Outcome = "query_error"
	// OutcomeNoop means the order was already settled or polling was off.
	OutcomeNoop Outcome = "noop"
)

// Decision is what one reconciliation pass observed and did.
type Decision struct {
	OrderID     int64
	Driver      domain.Driver
	Outcome     Outcome
	OrderStatus domain.OrderStatus
	Status      domain.TransactionStatus
	RawStatus   string
	// Applied is set only for the caller whose transition was committed.
	Applied bool
	// QueryErr carries the provider failure behind OutcomeQueryError.
	QueryErr error
}

// Reschedule reports whether the driver should try again later.
func (d *Decision) Reschedule() bool {
	return d.Outcome == OutcomePending || d.Outcome == OutcomeQueryError
}

// transition is a terminal move requested by a driver.
type transition struct {
	driver    domain.Driver
	status    domain.TransactionStatus
	reference string
	note      string
	recover   bool
}

func (t transition) success() bool {
	return t.recover || t.status.IsSuccess()
}

// errAlreadySettled aborts a transaction whose guard no longer holds.
var errAlreadySettled = errors.New("order already settled")

// Reconciler applies provider statuses to orders. Every driver goes through
// it, and a terminal transition is committed at most once per order.
type Reconciler struct {
	store         application.Store
	provider      application.PaymentProvider
	locker        application.Locker
	scheduler     application.PollScheduler
	metrics       *telemetry.Metrics
	allowRecovery bool
	logger        *slog.Logger
}

type ReconcilerOption func(*Reconciler)

func WithMetrics(m *telemetry.Metrics) ReconcilerOption {
	return func(r *Reconciler) { r.metrics = m }
}

// WithRedirectRecovery lets a success redirect move a failed order to completed.
func WithRedirectRecovery(allow bool) ReconcilerOption {
	return func(r *Reconciler) { r.allowRecovery = allow }
}

func NewReconciler(
	store application.Store,
	provider application.PaymentProvider,
	locker application.Locker,
	logger *slog.Logger,
	opts ...ReconcilerOption,
) *Reconciler {
	r := &Reconciler{
		store:    store,
		provider: provider,
		locker:   locker,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetScheduler wires the scheduled driver so terminal transitions cancel its
// entry. Must be called before any driver runs.
func (r *Reconciler) SetScheduler(s application.PollScheduler) {
	r.scheduler = s
}

// Check asks the provider for the order's status and applies the result.
func (r *Reconciler) Check(ctx context.Context, orderID int64, driver domain.Driver) (*Decision, error) {
	order, session, err := r.load(ctx, orderID)
	if err != nil {
		return nil, err
	}

	decision := &Decision{OrderID: orderID, Driver: driver, OrderStatus: order.Status}

	if order.IsTerminal() || session == nil || !session.PollingActive {
		decision.Outcome = OutcomeNoop
		r.record(decision)
		return decision, nil
	}
	if !session.HasTokens() {
		return nil, application.NewMissingTokensError()
	}

	result, err := r.provider.QueryStatus(ctx, session.PaymentToken.Value, session.AuthorizationToken)
	if err != nil {
		r.logger.WarnContext(ctx, "status query failed",
			"order_id", orderID,
			"driver", driver,
			"error", err,
		)
		decision.Outcome = OutcomeQueryError
		decision.QueryErr = err
		r.record(decision)
		return decision, nil
	}

	decision.Status = result.Status
	decision.RawStatus = result.RawStatus

	if !result.Status.IsTerminal() {
		decision.Outcome = OutcomePending
		r.record(decision)
		return decision, nil
	}

	t := transition{
		driver: driver,
		status: result.Status,
		note:   "Payment failed via PayToday",
	}
	if result.Status.IsSuccess() {
		t.note = "Payment completed successfully via PayToday"
	}

	return r.apply(ctx, orderID, t, decision)
}

// ReturnParams are the query parameters of the redirect callback.
type ReturnParams struct {
	Status          string
	Reference       string
	ReferenceNumber string
}

// ApplyRedirect applies the status reported by the payer's browser. It does
// not call the provider.
func (r *Reconciler) ApplyRedirect(ctx context.Context, orderID int64, params ReturnParams) (*Decision, error) {
	order, _, err := r.load(ctx, orderID)
	if err != nil {
		return nil, err
	}

	status := domain.ParseTransactionStatus(params.Status)
	success := isRedirectSuccess(params.Status)
	decision := &Decision{
		OrderID:     orderID,
		Driver:      domain.DriverRedirect,
		OrderStatus: order.Status,
		Status:      status,
		RawStatus:   params.Status,
	}

	t := transition{
		driver:    domain.DriverRedirect,
		status:    status,
		reference: params.Reference,
	}
	switch {
	case success && order.Status == domain.OrderFailed && r.allowRecovery:
		t.status = domain.TransactionSuccess
		t.recover = true
		t.note = fmt.Sprintf("PayToday: payment recovered after failure. Reference: %s", params.Reference)
	case success:
		t.status = domain.TransactionSuccess
		t.note = fmt.Sprintf("PayToday: payment success. Reference: %s / Ref No: %s", params.Reference, params.ReferenceNumber)
	default:
		t.status = domain.TransactionFailed
		if status.IsFailure() {
			t.status = status
		}
		t.note = fmt.Sprintf("PayToday: payment failed or cancelled. Status=%s Reference=%s", params.Status, params.Reference)
	}

	return r.apply(ctx, orderID, t, decision)
}

// isRedirectSuccess matches the literal success status of the return URL.
func isRedirectSuccess(status string) bool {
	return strings.EqualFold(strings.TrimSpace(status), "success")
}

// apply commits a terminal transition. The per-order lock, the row lock and
// the polling_active compare-and-set all have to agree before the order,
// its note and its event are written together.
func (r *Reconciler) apply(ctx context.Context, orderID int64, t transition, decision *Decision) (*Decision, error) {
	unlock, err := r.locker.Lock(ctx, orderID)
	if err != nil {
		return nil, application.NewInternalError(err)
	}
	defer unlock()

	err = r.store.WithTx(ctx, func(repos application.Repositories) error {
		order, err := repos.Orders.FindOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		decision.OrderStatus = order.Status

		session, err := repos.Sessions.FindSession(ctx, orderID)
		if err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			return err
		}

		if t.recover {
			if order.Status != domain.OrderFailed {
				return errAlreadySettled
			}
			if err := order.Recover(t.reference); err != nil {
				return err
			}
		} else {
			if order.IsTerminal() || (session != nil && !session.PollingActive) {
				return errAlreadySettled
			}
			if session != nil {
				claimed, err := repos.Sessions.StopPolling(ctx, orderID)
				if err != nil {
					return err
				}
				if !claimed {
					return errAlreadySettled
				}
			}
			if t.success() {
				err = order.Complete(t.reference)
			} else {
				err = order.Fail()
			}
			if err != nil {
				return err
			}
		}

		if err := repos.Orders.UpdateOrder(ctx, order); err != nil {
			return err
		}
		if err := repos.Orders.AddNote(ctx, orderID, t.note); err != nil {
			return err
		}

		event := domain.NewOrderEvent(orderID, domain.EventPaymentFailed, t.status, t.reference, t.driver)
		if t.success() {
			event.Type = domain.EventPaymentCompleted
			event.Status = domain.TransactionSuccess
			event.Recovered = t.recover
		}
		if err := repos.Outbox.EnqueueEvent(ctx, event); err != nil {
			return err
		}

		decision.OrderStatus = order.Status
		return nil
	})

	switch {
	case errors.Is(err, errAlreadySettled):
		decision.Outcome = OutcomeNoop
		r.record(decision)
		return decision, nil
	case errors.Is(err, domain.ErrOrderNotFound):
		return nil, application.NewOrderNotFoundError(orderID)
	case err != nil:
		r.logger.ErrorContext(ctx, "failed to apply order transition",
			"order_id", orderID,
			"driver", t.driver,
			"error", err,
		)
		return nil, application.NewInternalError(err)
	}

	decision.Applied = true
	switch {
	case t.recover:
		decision.Outcome = OutcomeRecovered
	case t.success():
		decision.Outcome = OutcomeCompleted
	default:
		decision.Outcome = OutcomeFailed
	}

	if r.scheduler != nil {
		r.scheduler.Cancel(orderID)
	}

	r.logger.InfoContext(ctx, "order transition applied",
		"order_id", orderID,
		"driver", t.driver,
		"outcome", decision.Outcome,
		"order_status", decision.OrderStatus,
	)
	r.record(decision)
	return decision, nil
}

func (r *Reconciler) load(ctx context.Context, orderID int64) (*domain.Order, *domain.PaymentSession, error) {
	order, err := r.store.Orders().FindOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			return nil, nil, application.NewOrderNotFoundError(orderID)
		}
		return nil, nil, application.NewInternalError(err)
	}

	session, err := r.store.Sessions().FindSession(ctx, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return order, nil, nil
		}
		return nil, nil, application.NewInternalError(err)
	}
	return order, session, nil
}

func (r *Reconciler) record(d *Decision) {
	if r.metrics == nil {
		return
	}
	r.metrics.ReconcileOutcomes.WithLabelValues(string(d.Driver), string(d.Outcome)).Inc()
}
