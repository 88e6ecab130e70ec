package inventory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps the stock pool in memory. It uses a single-writer arbiter
// (the store mutex) instead of row locks: a unit claimed by an in-flight
// reservation is skipped by later reservations until it is finalized or
// released, which gives the same skip-locked behaviour as the Postgres store.
type MemoryStore struct {
	mu        sync.Mutex
	units     map[uuid.UUID]*StockUnit
	byProduct map[uuid.UUID][]uuid.UUID // creation order per product
	claimed   map[uuid.UUID]bool        // reserved, pending finalize or release
}

// NewMemoryStore creates an empty in-memory inventory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		units:     make(map[uuid.UUID]*StockUnit),
		byProduct: make(map[uuid.UUID][]uuid.UUID),
		claimed:   make(map[uuid.UUID]bool),
	}
}

// Import loads new unsold units for the product.
func (s *MemoryStore) Import(_ context.Context, productID uuid.UUID, payloads []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, payload := range payloads {
		if payload == "" {
			return 0, fmt.Errorf("inventory: empty payload at position %d", i)
		}
		u := &StockUnit{
			ID:        uuid.New(),
			ProductID: productID,
			Payload:   payload,
			CreatedAt: time.Now().UTC(),
		}
		s.units[u.ID] = u
		s.byProduct[productID] = append(s.byProduct[productID], u.ID)
	}
	return len(payloads), nil
}

// CountAvailable returns the number of unsold units for display purposes.
func (s *MemoryStore) CountAvailable(_ context.Context, productID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, id := range s.byProduct[productID] {
		if !s.units[id].Sold {
			n++
		}
	}
	return n, nil
}

// Reserve claims up to quantity unsold, unclaimed units in creation order.
// All-or-nothing: when fewer units are claimable it claims none and reports
// how many were available.
func (s *MemoryStore) Reserve(productID uuid.UUID, quantity int) ([]StockUnit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var picked []uuid.UUID
	for _, id := range s.byProduct[productID] {
		if len(picked) == quantity {
			break
		}
		if u := s.units[id]; !u.Sold && !s.claimed[id] {
			picked = append(picked, id)
		}
	}
	if len(picked) < quantity {
		return nil, &InsufficientStockError{Available: len(picked), Requested: quantity}
	}

	units := make([]StockUnit, 0, quantity)
	for _, id := range picked {
		s.claimed[id] = true
		units = append(units, *s.units[id])
	}
	return units, nil
}

// Release drops the claim on reserved units. Compensation path of the
// in-memory settlement coordinator.
func (s *MemoryStore) Release(unitIDs []uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range unitIDs {
		delete(s.claimed, id)
	}
}

// Finalize marks reserved units permanently sold. Idempotent for the same
// orderID; a unit already sold under a different order fails the whole call
// before mutating anything.
func (s *MemoryStore) Finalize(unitIDs []uuid.UUID, accountID, orderID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range unitIDs {
		u, ok := s.units[id]
		if !ok {
			return fmt.Errorf("inventory: unknown stock unit %s", id)
		}
		if u.Sold && (u.OrderID == nil || *u.OrderID != orderID) {
			return ErrAlreadySold
		}
	}

	now := time.Now().UTC()
	for _, id := range unitIDs {
		u := s.units[id]
		if u.Sold {
			continue
		}
		account := accountID
		order := orderID
		soldAt := now
		u.Sold = true
		u.SoldTo = &account
		u.SoldAt = &soldAt
		u.OrderID = &order
		delete(s.claimed, id)
	}
	return nil
}

// Unit returns a copy of the stock unit, for tests and admin inspection.
func (s *MemoryStore) Unit(id uuid.UUID) (StockUnit, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.units[id]
	if !ok {
		return StockUnit{}, false
	}
	return *u, true
}
