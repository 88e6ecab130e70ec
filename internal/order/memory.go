package order

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore keeps orders in memory for tests and development mode.
type MemoryStore struct {
	mu     sync.RWMutex
	orders map[uuid.UUID]Order
	seq    []uuid.UUID // insertion order
}

// NewMemoryStore creates an empty in-memory order store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orders: make(map[uuid.UUID]Order)}
}

// Get fetches one order by identifier.
func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	return o, nil
}

// ListByAccount lists the account's orders, newest first.
func (s *MemoryStore) ListByAccount(_ context.Context, accountID uuid.UUID, limit int) ([]Order, error) {
	if limit <= 0 {
		limit = 50
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var orders []Order
	for i := len(s.seq) - 1; i >= 0 && len(orders) < limit; i-- {
		if o := s.orders[s.seq[i]]; o.AccountID == accountID {
			orders = append(orders, o)
		}
	}
	return orders, nil
}

// Insert stores a completed order.
func (s *MemoryStore) Insert(o Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = o
	s.seq = append(s.seq, o.ID)
}

// Remove deletes an order. Compensation path of the in-memory settlement
// coordinator; committed orders are never removed.
func (s *MemoryStore) Remove(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[id]; !ok {
		return
	}
	delete(s.orders, id)
	for i := len(s.seq) - 1; i >= 0; i-- {
		if s.seq[i] == id {
			s.seq = append(s.seq[:i], s.seq[i+1:]...)
			break
		}
	}
}
