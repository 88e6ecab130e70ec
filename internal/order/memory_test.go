package order

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func testOrder(accountID uuid.UUID) Order {
	return Order{
		ID:        uuid.New(),
		AccountID: accountID,
		ProductID: uuid.New(),
		Quantity:  2,
		UnitPrice: decimal.NewFromInt(100),
		Total:     decimal.NewFromInt(200),
		Payloads:  []string{"key-1", "key-2"},
		CreatedAt: time.Now().UTC(),
	}
}

func TestMemoryStore_InsertAndGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	o := testOrder(uuid.New())

	s.Insert(o)

	got, err := s.Get(ctx, o.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != o.ID || got.Quantity != 2 || len(got.Payloads) != 2 {
		t.Fatalf("unexpected order: %+v", got)
	}

	if _, err := s.Get(ctx, uuid.New()); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_ListByAccountNewestFirst(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	account := uuid.New()

	first := testOrder(account)
	second := testOrder(account)
	s.Insert(first)
	s.Insert(second)
	s.Insert(testOrder(uuid.New())) // other account

	orders, err := s.ListByAccount(ctx, account, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(orders))
	}
	if orders[0].ID != second.ID || orders[1].ID != first.ID {
		t.Fatalf("orders not newest first")
	}
}

func TestMemoryStore_RemoveErasesOrder(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	account := uuid.New()

	kept := testOrder(account)
	undone := testOrder(account)
	s.Insert(kept)
	s.Insert(undone)

	s.Remove(undone.ID)
	s.Remove(uuid.New()) // unknown id is a no-op

	if _, err := s.Get(ctx, undone.ID); err != ErrNotFound {
		t.Fatalf("expected removed order gone, got %v", err)
	}
	orders, _ := s.ListByAccount(ctx, account, 10)
	if len(orders) != 1 || orders[0].ID != kept.ID {
		t.Fatalf("expected only the kept order, got %+v", orders)
	}
}
