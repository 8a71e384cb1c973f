package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/DanielPopoola/paytoday-gateway/internal/domain"
	"github.com/jackc/pgx/v5"
)

const sessionColumns = `
	order_id, amount::text, invoice_number, customer_first_name, customer_last_name,
	customer_email, customer_phone, return_url, environment,
	authorization_token, payment_token, token_provenance, payment_url, access_key,
	status_check_started_at, polling_active, created_at, updated_at`

type SessionRepository struct {
	q Executor
}

func NewSessionRepository(q Executor) *SessionRepository {
	return &SessionRepository{q: q}
}

// SaveSession upserts the single session of an order.
func (r *SessionRepository) SaveSession(ctx context.Context, session *domain.PaymentSession) error {
	query := `
		INSERT INTO payment_sessions (` + sessionColumnsInsert + `)
		VALUES ($1, $2::numeric, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (order_id) DO UPDATE SET
			amount = EXCLUDED.amount,
			invoice_number = EXCLUDED.invoice_number,
			customer_first_name = EXCLUDED.customer_first_name,
			customer_last_name = EXCLUDED.customer_last_name,
			customer_email = EXCLUDED.customer_email,
			customer_phone = EXCLUDED.customer_phone,
			return_url = EXCLUDED.return_url,
			environment = EXCLUDED.environment,
			authorization_token = EXCLUDED.authorization_token,
			payment_token = EXCLUDED.payment_token,
			token_provenance = EXCLUDED.token_provenance,
			payment_url = EXCLUDED.payment_url,
			access_key = EXCLUDED.access_key,
			status_check_started_at = EXCLUDED.status_check_started_at,
			polling_active = EXCLUDED.polling_active,
			updated_at = EXCLUDED.updated_at
	`

	m := sessionToModel(session)
	_, err := r.q.Exec(ctx, query,
		m.OrderID,
		m.Amount,
		m.InvoiceNumber,
		m.FirstName,
		m.LastName,
		m.Email,
		m.Phone,
		m.ReturnURL,
		m.Environment,
		m.AuthorizationToken,
		m.PaymentToken,
		m.TokenProvenance,
		m.PaymentURL,
		m.AccessKey,
		m.StatusCheckStartedAt,
		m.PollingActive,
		m.CreatedAt,
		m.UpdatedAt,
	)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return domain.NewOrderNotFoundError(session.OrderID)
		}
		return fmt.Errorf("failed to save payment session: %w", err)
	}
	return nil
}

const sessionColumnsInsert = `
	order_id, amount, invoice_number, customer_first_name, customer_last_name,
	customer_email, customer_phone, return_url, environment,
	authorization_token, payment_token, token_provenance, payment_url, access_key,
	status_check_started_at, polling_active, created_at, updated_at`

func (r *SessionRepository) FindSession(ctx context.Context, orderID int64) (*domain.PaymentSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM payment_sessions WHERE order_id = $1`
	s, err := scanSession(r.q.QueryRow(ctx, query, orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NewSessionNotFoundError(orderID)
	}
	return s, err
}

// StopPolling is the compare-and-set that makes a terminal transition
// single-shot: only the caller whose UPDATE matched the row wins.
func (r *SessionRepository) StopPolling(ctx context.Context, orderID int64) (bool, error) {
	query := `
		UPDATE payment_sessions
		SET polling_active = false, updated_at = now()
		WHERE order_id = $1 AND polling_active
	`
	tag, err := r.q.Exec(ctx, query, orderID)
	if err != nil {
		return false, fmt.Errorf("failed to stop polling: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *SessionRepository) ListActiveSessions(ctx context.Context, afterOrderID int64, limit int) ([]*domain.PaymentSession, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM payment_sessions
		WHERE polling_active AND order_id > $1
		ORDER BY order_id
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, afterOrderID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list active sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*domain.PaymentSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func scanSession(row pgx.Row) (*domain.PaymentSession, error) {
	var m SessionModel
	err := row.Scan(
		&m.OrderID,
		&m.Amount,
		&m.InvoiceNumber,
		&m.FirstName,
		&m.LastName,
		&m.Email,
		&m.Phone,
		&m.ReturnURL,
		&m.Environment,
		&m.AuthorizationToken,
		&m.PaymentToken,
		&m.TokenProvenance,
		&m.PaymentURL,
		&m.AccessKey,
		&m.StatusCheckStartedAt,
		&m.PollingActive,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan payment session: %w", err)
	}
	return sessionToDomain(m)
}
