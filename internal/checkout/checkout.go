package checkout

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/soko-digital/soko/internal/catalog"
	"github.com/soko-digital/soko/internal/inventory"
	"github.com/soko-digital/soko/internal/notification"
)

// InsufficientBalanceError reports a purchase the wallet cannot cover. No
// writes happen before it is raised.
type InsufficientBalanceError struct {
	Balance  decimal.Decimal
	Required decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: have %s, need %s", e.Balance, e.Required)
}

// InvalidQuantityError reports a quantity outside the allowed range.
type InvalidQuantityError struct {
	Quantity int
	Max      int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("invalid quantity %d (allowed 1..%d)", e.Quantity, e.Max)
}

// StorageError wraps a transient infrastructure fault. The settlement
// protocol guarantees nothing committed, so the caller may retry from
// scratch.
type StorageError struct {
	Err error
}

func (e *StorageError) Error() string { return "storage failure: " + e.Err.Error() }
func (e *StorageError) Unwrap() error { return e.Err }

// SettleParams is the validated input to one settlement attempt.
type SettleParams struct {
	AccountID uuid.UUID
	ProductID uuid.UUID
	Quantity  int
	UnitPrice decimal.Decimal
}

// Receipt is the outcome of a committed purchase.
type Receipt struct {
	OrderID    uuid.UUID
	Total      decimal.Decimal
	Payloads   []string
	NewBalance decimal.Decimal
}

// Settler executes the settlement protocol as one atomic unit: lock wallet,
// check balance, reserve stock, debit, finalize, record the order. Any
// failure leaves no trace of the attempt. Business failures surface as
// ledger.ErrWalletMissing, *InsufficientBalanceError or
// *inventory.InsufficientStockError; everything else is a *StorageError.
type Settler interface {
	Settle(ctx context.Context, p SettleParams) (Receipt, error)
}

// Service is the purchase orchestrator. It validates the request against the
// catalog, delegates the atomic settlement to the Settler, and runs
// post-commit side effects (notification, count-cache invalidation) that can
// never undo a committed purchase.
type Service struct {
	catalog     catalog.Repository
	settler     Settler
	notifier    notification.Notifier
	counts      *inventory.CountCache
	maxQuantity int
}

// NewService constructs the purchase orchestrator.
func NewService(catalogRepo catalog.Repository, settler Settler, notifier notification.Notifier, counts *inventory.CountCache, maxQuantity int) *Service {
	if maxQuantity <= 0 {
		maxQuantity = 100
	}
	return &Service{catalog: catalogRepo, settler: settler, notifier: notifier, counts: counts, maxQuantity: maxQuantity}
}

// Purchase converts a buy intent into a debited wallet, claimed stock units,
// an order record and a ledger entry, or into exactly nothing.
func (s *Service) Purchase(ctx context.Context, accountID, productID uuid.UUID, quantity int) (Receipt, error) {
	if quantity <= 0 || quantity > s.maxQuantity {
		return Receipt{}, &InvalidQuantityError{Quantity: quantity, Max: s.maxQuantity}
	}

	product, err := catalog.GetActive(ctx, s.catalog, productID)
	if err != nil {
		return Receipt{}, err
	}

	receipt, err := s.settler.Settle(ctx, SettleParams{
		AccountID: accountID,
		ProductID: productID,
		Quantity:  quantity,
		UnitPrice: product.UnitPrice,
	})
	if err != nil {
		return Receipt{}, err
	}

	s.counts.Invalidate(ctx, productID)
	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindPurchase,
			Destination: accountID.String(),
			Body:        fmt.Sprintf("Order %s: %d x %s for %s", receipt.OrderID, quantity, product.Name, receipt.Total),
		})
	}

	return receipt, nil
}
