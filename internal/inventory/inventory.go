package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrAlreadySold indicates a finalize attempt against a unit that was already
// sold under a different order.
var ErrAlreadySold = errors.New("stock unit already sold under a different order")

// InsufficientStockError reports a reservation that could not claim the
// requested number of units. Available counts only unsold units that were not
// locked by a concurrent reservation at selection time.
type InsufficientStockError struct {
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: %d available, %d requested", e.Available, e.Requested)
}

// StockUnit is one uniquely-sellable inventory item. Once sold, SoldTo,
// SoldAt and OrderID are permanently set and the unit is never sold again.
type StockUnit struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	Payload   string
	Sold      bool
	SoldTo    *uuid.UUID
	SoldAt    *time.Time
	OrderID   *uuid.UUID
	CreatedAt time.Time
}

// Store defines the pool-scoped inventory operations. Reservation and
// finalization are transaction-scoped and live on the concrete backends.
type Store interface {
	// Import loads new unsold units with opaque payloads for a product and
	// returns how many were created.
	Import(ctx context.Context, productID uuid.UUID, payloads []string) (int, error)
	// CountAvailable returns the number of unsold units. The count is for
	// display only; reservation re-checks live state under lock.
	CountAvailable(ctx context.Context, productID uuid.UUID) (int, error)
}
