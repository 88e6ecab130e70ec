package order

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrNotFound indicates no order exists for the identifier.
var ErrNotFound = errors.New("order not found")

// Order is the durable record of one completed purchase. Created atomically
// with its stock claims and ledger debit, never mutated afterward. Payloads
// holds the delivered stock-unit contents in reservation order, one per unit.
type Order struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	ProductID uuid.UUID
	Quantity  int
	UnitPrice decimal.Decimal
	Total     decimal.Decimal
	Payloads  []string
	CreatedAt time.Time
}

// Store defines the read surface over completed orders.
type Store interface {
	Get(ctx context.Context, id uuid.UUID) (Order, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]Order, error)
}
