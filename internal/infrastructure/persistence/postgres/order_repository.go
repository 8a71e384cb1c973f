package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DanielPopoola/paytoday-gateway/internal/domain"
	"github.com/jackc/pgx/v5"
)

const orderColumns = `
	id, status, total::text, customer_first_name, customer_last_name,
	customer_email, customer_phone, transaction_reference,
	created_at, updated_at, completed_at`

type OrderRepository struct {
	q Executor
}

func NewOrderRepository(q Executor) *OrderRepository {
	return &OrderRepository{q: q}
}

func (r *OrderRepository) CreateOrder(ctx context.Context, order *domain.Order) error {
	query := `
		INSERT INTO orders (
			id, status, total, customer_first_name, customer_last_name,
			customer_email, customer_phone, transaction_reference,
			created_at, updated_at, completed_at
		) VALUES ($1, $2, $3::numeric, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	m := orderToModel(order)
	_, err := r.q.Exec(ctx, query,
		m.ID,
		m.Status,
		m.Total,
		m.FirstName,
		m.LastName,
		m.Email,
		m.Phone,
		m.TransactionReference,
		m.CreatedAt,
		m.UpdatedAt,
		m.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (r *OrderRepository) FindOrder(ctx context.Context, id int64) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return scanOrder(r.q.QueryRow(ctx, query, id), id)
}

// FindOrderForUpdate takes a row lock; only meaningful inside WithTx.
func (r *OrderRepository) FindOrderForUpdate(ctx context.Context, id int64) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`
	return scanOrder(r.q.QueryRow(ctx, query, id), id)
}

func (r *OrderRepository) UpdateOrder(ctx context.Context, order *domain.Order) error {
	query := `
		UPDATE orders
		SET status = $1,
			total = $2::numeric,
			customer_first_name = $3,
			customer_last_name = $4,
			customer_email = $5,
			customer_phone = $6,
			transaction_reference = $7,
			updated_at = $8,
			completed_at = $9
		WHERE id = $10
	`

	m := orderToModel(order)
	tag, err := r.q.Exec(ctx, query,
		m.Status,
		m.Total,
		m.FirstName,
		m.LastName,
		m.Email,
		m.Phone,
		m.TransactionReference,
		m.UpdatedAt,
		m.CompletedAt,
		m.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewOrderNotFoundError(order.ID)
	}
	return nil
}

func (r *OrderRepository) AddNote(ctx context.Context, orderID int64, body string) error {
	query := `INSERT INTO order_notes (order_id, body, created_at) VALUES ($1, $2, $3)`
	if _, err := r.q.Exec(ctx, query, orderID, body, time.Now().UTC()); err != nil {
		if IsForeignKeyViolation(err) {
			return domain.NewOrderNotFoundError(orderID)
		}
		return fmt.Errorf("failed to add order note: %w", err)
	}
	return nil
}

func (r *OrderRepository) ListNotes(ctx context.Context, orderID int64) ([]domain.OrderNote, error) {
	query := `
		SELECT order_id, body, created_at
		FROM order_notes
		WHERE order_id = $1
		ORDER BY id
	`

	rows, err := r.q.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list order notes: %w", err)
	}
	defer rows.Close()

	var notes []domain.OrderNote
	for rows.Next() {
		var n domain.OrderNote
		if err := rows.Scan(&n.OrderID, &n.Body, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order note: %w", err)
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

func scanOrder(row pgx.Row, id int64) (*domain.Order, error) {
	var m OrderModel
	err := row.Scan(
		&m.ID,
		&m.Status,
		&m.Total,
		&m.FirstName,
		&m.LastName,
		&m.Email,
		&m.Phone,
		&m.TransactionReference,
		&m.CreatedAt,
		&m.UpdatedAt,
		&m.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewOrderNotFoundError(id)
		}
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}
	return orderToDomain(m)
}
