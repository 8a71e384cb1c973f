package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/DanielPopoola/paytoday-gateway/internal/domain"
)

type OutboxRepository struct {
	q Executor
}

func NewOutboxRepository(q Executor) *OutboxRepository {
	return &OutboxRepository{q: q}
}

func (r *OutboxRepository) EnqueueEvent(ctx context.Context, event *domain.OrderEvent) error {
	query := `
		INSERT INTO order_events (id, order_id, type, status, reference, driver, recovered, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.q.Exec(ctx, query,
		event.ID,
		event.OrderID,
		string(event.Type),
		string(event.Status),
		event.Reference,
		string(event.Driver),
		event.Recovered,
		event.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue order event: %w", err)
	}
	return nil
}

func (r *OutboxRepository) ListPendingEvents(ctx context.Context, limit int) ([]*domain.OrderEvent, error) {
	query := `
		SELECT id, order_id, type, status, reference, driver, recovered, occurred_at, published_at
		FROM order_events
		WHERE published_at IS NULL
		ORDER BY occurred_at
		LIMIT $1
	`

	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending events: %w", err)
	}
	defer rows.Close()

	var events []*domain.OrderEvent
	for rows.Next() {
		var m EventModel
		if err := rows.Scan(
			&m.ID,
			&m.OrderID,
			&m.Type,
			&m.Status,
			&m.Reference,
			&m.Driver,
			&m.Recovered,
			&m.OccurredAt,
			&m.PublishedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order event: %w", err)
		}
		events = append(events, eventToDomain(m))
	}
	return events, rows.Err()
}

func (r *OutboxRepository) MarkEventPublished(ctx context.Context, event *domain.OrderEvent, at time.Time) error {
	query := `UPDATE order_events SET published_at = $1 WHERE id = $2 AND published_at IS NULL`
	if _, err := r.q.Exec(ctx, query, at, event.ID); err != nil {
		return fmt.Errorf("failed to mark event published: %w", err)
	}
	event.PublishedAt = &at
	return nil
}

func (r *OutboxRepository) CountEvents(ctx context.Context, orderID int64) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `SELECT count(*) FROM order_events WHERE order_id = $1`, orderID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count order events: %w", err)
	}
	return n, nil
}
