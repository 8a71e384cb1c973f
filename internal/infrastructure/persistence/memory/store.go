// Package memory is an in-process Store used by tests and single-node runs.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/DanielPopoola/paytoday-gateway/internal/application"
	"github.com/DanielPopoola/paytoday-gateway/internal/domain"
)

// Store keeps everything in maps. WithTx serializes callbacks and undoes
// only the callback's own writes when it fails, so writes made outside the
// transaction survive a rollback.
type Store struct {
	txMu sync.Mutex

	mu       sync.RWMutex
	orders   map[int64]domain.Order
	notes    map[int64][]domain.OrderNote
	sessions map[int64]domain.PaymentSession
	events   []domain.OrderEvent
}

func NewStore() *Store {
	return &Store{
		orders:   make(map[int64]domain.Order),
		notes:    make(map[int64][]domain.OrderNote),
		sessions: make(map[int64]domain.PaymentSession),
	}
}

var (
	_ application.Store             = (*Store)(nil)
	_ application.OrderRepository   = (*Store)(nil)
	_ application.SessionRepository = (*Store)(nil)
	_ application.OutboxRepository  = (*Store)(nil)

	_ application.OrderRepository   = (*txView)(nil)
	_ application.SessionRepository = (*txView)(nil)
	_ application.OutboxRepository  = (*txView)(nil)
)

func (s *Store) Orders() application.OrderRepository     { return s }
func (s *Store) Sessions() application.SessionRepository { return s }
func (s *Store) Outbox() application.OutboxRepository    { return s }

func (s *Store) WithTx(ctx context.Context, fn func(repos application.Repositories) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	tx := &txView{Store: s}
	if err := fn(application.Repositories{Orders: tx, Sessions: tx, Outbox: tx}); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

// undoFunc reverts one write. It runs with mu held.
type undoFunc func()

// txView routes writes through the same helpers as Store and keeps an undo
// entry for each one.
type txView struct {
	*Store
	undo []undoFunc
}

func (t *txView) record(u undoFunc, err error) error {
	if err == nil && u != nil {
		t.undo = append(t.undo, u)
	}
	return err
}

func (t *txView) rollback() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *txView) CreateOrder(ctx context.Context, order *domain.Order) error {
	return t.record(t.putOrder(order, false))
}

func (t *txView) UpdateOrder(ctx context.Context, order *domain.Order) error {
	return t.record(t.putOrder(order, true))
}

func (t *txView) AddNote(ctx context.Context, orderID int64, body string) error {
	return t.record(t.appendNote(orderID, body))
}

func (t *txView) SaveSession(ctx context.Context, session *domain.PaymentSession) error {
	return t.record(t.putSession(session))
}

func (t *txView) StopPolling(ctx context.Context, orderID int64) (bool, error) {
	stopped, u := t.stopPolling(orderID)
	return stopped, t.record(u, nil)
}

func (t *txView) EnqueueEvent(ctx context.Context, event *domain.OrderEvent) error {
	return t.record(t.appendEvent(event))
}

func (t *txView) MarkEventPublished(ctx context.Context, event *domain.OrderEvent, at time.Time) error {
	return t.record(t.markPublished(event, at))
}

// restoreOrder returns an undo that puts key id back to its current state.
// Callers hold mu.
func (s *Store) restoreOrder(id int64) undoFunc {
	prev, had := s.orders[id]
	return func() {
		if had {
			s.orders[id] = prev
		} else {
			delete(s.orders, id)
		}
	}
}

func (s *Store) restoreSession(id int64) undoFunc {
	prev, had := s.sessions[id]
	return func() {
		if had {
			s.sessions[id] = prev
		} else {
			delete(s.sessions, id)
		}
	}
}

func (s *Store) putOrder(order *domain.Order, mustExist bool) (undoFunc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[order.ID]; mustExist && !ok {
		return nil, domain.NewOrderNotFoundError(order.ID)
	}
	u := s.restoreOrder(order.ID)
	s.orders[order.ID] = *order
	return u, nil
}

func (s *Store) appendNote(orderID int64, body string) (undoFunc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := len(s.notes[orderID])
	s.notes[orderID] = append(s.notes[orderID], domain.OrderNote{
		OrderID:   orderID,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	})
	return func() {
		notes := s.notes[orderID]
		if idx >= len(notes) {
			return
		}
		notes = append(notes[:idx:idx], notes[idx+1:]...)
		if len(notes) == 0 {
			delete(s.notes, orderID)
			return
		}
		s.notes[orderID] = notes
	}, nil
}

func (s *Store) putSession(session *domain.PaymentSession) (undoFunc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[session.OrderID]; !ok {
		return nil, domain.NewOrderNotFoundError(session.OrderID)
	}
	u := s.restoreSession(session.OrderID)
	s.sessions[session.OrderID] = *session
	return u, nil
}

func (s *Store) stopPolling(orderID int64) (bool, undoFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[orderID]
	if !ok || !sess.PollingActive {
		return false, nil
	}
	u := s.restoreSession(orderID)
	sess.PollingActive = false
	sess.UpdatedAt = time.Now().UTC()
	s.sessions[orderID] = sess
	return true, u
}

func (s *Store) appendEvent(event *domain.OrderEvent) (undoFunc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, *event)
	id := event.ID
	return func() {
		for i := range s.events {
			if s.events[i].ID == id {
				s.events = append(s.events[:i:i], s.events[i+1:]...)
				return
			}
		}
	}, nil
}

func (s *Store) markPublished(event *domain.OrderEvent, at time.Time) (undoFunc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.events {
		if s.events[i].ID != event.ID {
			continue
		}
		prev := s.events[i].PublishedAt
		s.events[i].PublishedAt = &at
		event.PublishedAt = &at
		id := event.ID
		return func() {
			for j := range s.events {
				if s.events[j].ID == id {
					s.events[j].PublishedAt = prev
					return
				}
			}
		}, nil
	}
	return nil, nil
}

// ORDERS

func (s *Store) CreateOrder(ctx context.Context, order *domain.Order) error {
	_, err := s.putOrder(order, false)
	return err
}

func (s *Store) FindOrder(ctx context.Context, id int64) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, domain.NewOrderNotFoundError(id)
	}
	return &o, nil
}

// FindOrderForUpdate is FindOrder; WithTx already serializes transactions.
func (s *Store) FindOrderForUpdate(ctx context.Context, id int64) (*domain.Order, error) {
	return s.FindOrder(ctx, id)
}

func (s *Store) UpdateOrder(ctx context.Context, order *domain.Order) error {
	_, err := s.putOrder(order, true)
	return err
}

func (s *Store) AddNote(ctx context.Context, orderID int64, body string) error {
	_, err := s.appendNote(orderID, body)
	return err
}

func (s *Store) ListNotes(ctx context.Context, orderID int64) ([]domain.OrderNote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.OrderNote(nil), s.notes[orderID]...), nil
}

// SESSIONS

func (s *Store) SaveSession(ctx context.Context, session *domain.PaymentSession) error {
	_, err := s.putSession(session)
	return err
}

func (s *Store) FindSession(ctx context.Context, orderID int64) (*domain.PaymentSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[orderID]
	if !ok {
		return nil, domain.NewSessionNotFoundError(orderID)
	}
	return &sess, nil
}

func (s *Store) StopPolling(ctx context.Context, orderID int64) (bool, error) {
	stopped, _ := s.stopPolling(orderID)
	return stopped, nil
}

func (s *Store) ListActiveSessions(ctx context.Context, afterOrderID int64, limit int) ([]*domain.PaymentSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.PaymentSession
	for _, sess := range s.sessions {
		if sess.PollingActive && sess.OrderID > afterOrderID {
			sess := sess
			out = append(out, &sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderID < out[j].OrderID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// OUTBOX

func (s *Store) EnqueueEvent(ctx context.Context, event *domain.OrderEvent) error {
	_, err := s.appendEvent(event)
	return err
}

func (s *Store) ListPendingEvents(ctx context.Context, limit int) ([]*domain.OrderEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.OrderEvent
	for _, e := range s.events {
		if e.PublishedAt == nil {
			e := e
			out = append(out, &e)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *Store) MarkEventPublished(ctx context.Context, event *domain.OrderEvent, at time.Time) error {
	_, err := s.markPublished(event, at)
	return err
}

func (s *Store) CountEvents(ctx context.Context, orderID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.events {
		if e.OrderID == orderID {
			n++
		}
	}
	return n, nil
}
