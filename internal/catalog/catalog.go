package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound indicates no product exists for the identifier.
	ErrNotFound = errors.New("product not found")
	// ErrInactive indicates the product exists but is not for sale.
	ErrInactive = errors.New("product is not active")
)

// Product describes one sellable digital good. Price and active flag are the
// only fields the settlement path consumes.
type Product struct {
	ID          uuid.UUID
	Name        string
	Description string
	UnitPrice   decimal.Decimal
	Active      bool
	CreatedAt   time.Time
}

// Repository persists product metadata.
type Repository interface {
	Create(ctx context.Context, p Product) error
	Update(ctx context.Context, p Product) error
	Get(ctx context.Context, id uuid.UUID) (Product, error)
	List(ctx context.Context, activeOnly bool) ([]Product, error)
}

// GetActive fetches a product and verifies it is for sale.
func GetActive(ctx context.Context, repo Repository, id uuid.UUID) (Product, error) {
	p, err := repo.Get(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if !p.Active {
		return Product{}, ErrInactive
	}
	return p, nil
}
