package postgres

import (
	"context"
	"fmt"

	"github.com/DanielPopoola/paytoday-gateway/internal/application"
)

// Store hands out pool-backed repositories and runs transactional callbacks.
type Store struct {
	db *DB
}

func NewStore(db *DB) *Store {
	return &Store{db: db}
}

var _ application.Store = (*Store)(nil)

func (s *Store) Orders() application.OrderRepository {
	return NewOrderRepository(s.db.Pool)
}

func (s *Store) Sessions() application.SessionRepository {
	return NewSessionRepository(s.db.Pool)
}

func (s *Store) Outbox() application.OutboxRepository {
	return NewOutboxRepository(s.db.Pool)
}

// WithTx runs fn in one transaction. Repositories passed to fn share the tx;
// any error returned by fn rolls everything back.
func (s *Store) WithTx(ctx context.Context, fn func(repos application.Repositories) error) error {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	repos := application.Repositories{
		Orders:   NewOrderRepository(tx),
		Sessions: NewSessionRepository(tx),
		Outbox:   NewOutboxRepository(tx),
	}

	if err := fn(repos); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
