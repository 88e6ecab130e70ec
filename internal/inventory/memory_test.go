package inventory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
)

func TestMemoryStore_ImportAndCount(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	product := uuid.New()

	n, err := s.Import(ctx, product, []string{"key-1", "key-2", "key-3"})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 imported, got %d", n)
	}

	count, err := s.CountAvailable(ctx, product)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 available, got %d", count)
	}
}

func TestMemoryStore_ImportRejectsEmptyPayload(t *testing.T) {
	s := NewMemoryStore()

	if _, err := s.Import(context.Background(), uuid.New(), []string{"ok", ""}); err == nil {
		t.Fatalf("expected empty payload to fail the import")
	}
}

func TestMemoryStore_ReserveFIFO(t *testing.T) {
	s := NewMemoryStore()
	product := uuid.New()
	s.Import(context.Background(), product, []string{"first", "second", "third"})

	units, err := s.Reserve(product, 2)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if len(units) != 2 {
		t.Fatalf("expected 2 units, got %d", len(units))
	}
	if units[0].Payload != "first" || units[1].Payload != "second" {
		t.Fatalf("expected oldest units first, got %q then %q", units[0].Payload, units[1].Payload)
	}
}

func TestMemoryStore_ReserveAllOrNothing(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	product := uuid.New()
	s.Import(ctx, product, []string{"only"})

	_, err := s.Reserve(product, 3)
	var stockErr *InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if stockErr.Available != 1 || stockErr.Requested != 3 {
		t.Fatalf("unexpected error detail: %+v", stockErr)
	}

	// the failed reservation must not have claimed the unit
	units, err := s.Reserve(product, 1)
	if err != nil {
		t.Fatalf("reserve after failure: %v", err)
	}
	if units[0].Payload != "only" {
		t.Fatalf("unexpected unit: %+v", units[0])
	}
}

func TestMemoryStore_ReservedUnitsAreSkipped(t *testing.T) {
	s := NewMemoryStore()
	product := uuid.New()
	s.Import(context.Background(), product, []string{"a", "b"})

	if _, err := s.Reserve(product, 2); err != nil {
		t.Fatalf("first reserve: %v", err)
	}
	if _, err := s.Reserve(product, 1); err == nil {
		t.Fatalf("expected reserved units to be invisible to a second reservation")
	}
}

func TestMemoryStore_ReleaseReturnsUnits(t *testing.T) {
	s := NewMemoryStore()
	product := uuid.New()
	s.Import(context.Background(), product, []string{"a"})

	units, err := s.Reserve(product, 1)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	s.Release([]uuid.UUID{units[0].ID})

	again, err := s.Reserve(product, 1)
	if err != nil {
		t.Fatalf("reserve after release: %v", err)
	}
	if again[0].ID != units[0].ID {
		t.Fatalf("expected the released unit back")
	}
}

func TestMemoryStore_FinalizeMarksSold(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	product := uuid.New()
	buyer := uuid.New()
	orderID := uuid.New()
	s.Import(ctx, product, []string{"a", "b"})

	units, _ := s.Reserve(product, 2)
	ids := []uuid.UUID{units[0].ID, units[1].ID}
	if err := s.Finalize(ids, buyer, orderID); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	count, _ := s.CountAvailable(ctx, product)
	if count != 0 {
		t.Fatalf("expected 0 available after finalize, got %d", count)
	}

	u, ok := s.Unit(ids[0])
	if !ok || !u.Sold || u.SoldTo == nil || *u.SoldTo != buyer || u.OrderID == nil || *u.OrderID != orderID {
		t.Fatalf("unit not marked sold correctly: %+v", u)
	}
}

func TestMemoryStore_FinalizeIdempotentPerOrder(t *testing.T) {
	s := NewMemoryStore()
	product := uuid.New()
	buyer := uuid.New()
	orderID := uuid.New()
	s.Import(context.Background(), product, []string{"a"})

	units, _ := s.Reserve(product, 1)
	ids := []uuid.UUID{units[0].ID}
	if err := s.Finalize(ids, buyer, orderID); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if err := s.Finalize(ids, buyer, orderID); err != nil {
		t.Fatalf("repeat finalize under same order must succeed, got %v", err)
	}
	if err := s.Finalize(ids, buyer, uuid.New()); err != ErrAlreadySold {
		t.Fatalf("expected ErrAlreadySold under different order, got %v", err)
	}
}

func TestMemoryStore_ConcurrentReserveNeverOversells(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	product := uuid.New()
	s.Import(ctx, product, []string{"a", "b", "c"})

	const workers = 10
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		sold []StockUnit
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			units, err := s.Reserve(product, 1)
			if err != nil {
				var stockErr *InsufficientStockError
				if !errors.As(err, &stockErr) {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err := s.Finalize([]uuid.UUID{units[0].ID}, uuid.New(), uuid.New()); err != nil {
				t.Errorf("finalize: %v", err)
				return
			}
			mu.Lock()
			sold = append(sold, units[0])
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(sold) != 3 {
		t.Fatalf("expected exactly 3 successful reservations, got %d", len(sold))
	}
	seen := map[uuid.UUID]bool{}
	for _, u := range sold {
		if seen[u.ID] {
			t.Fatalf("unit %s sold twice", u.ID)
		}
		seen[u.ID] = true
	}
	count, _ := s.CountAvailable(ctx, product)
	if count != 0 {
		t.Fatalf("expected pool exhausted, got %d available", count)
	}
}
