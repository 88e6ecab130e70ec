package checkout

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/soko-digital/soko/internal/inventory"
	"github.com/soko-digital/soko/internal/ledger"
	"github.com/soko-digital/soko/internal/order"
)

// MemorySettler coordinates the in-memory stores, which have no shared
// transaction. Atomicity comes from compensation: the wallet settlement lock
// is held across the whole unit of work, and any failure after a write
// reverses the writes before the lock is released, so no partial settlement
// is ever observable.
type MemorySettler struct {
	ledger    *ledger.MemoryStore
	inventory *inventory.MemoryStore
	orders    *order.MemoryStore
}

// NewMemorySettler constructs a settlement coordinator over the in-memory
// stores.
func NewMemorySettler(l *ledger.MemoryStore, inv *inventory.MemoryStore, orders *order.MemoryStore) *MemorySettler {
	return &MemorySettler{ledger: l, inventory: inv, orders: orders}
}

// Settle executes one purchase settlement.
func (s *MemorySettler) Settle(_ context.Context, p SettleParams) (Receipt, error) {
	balance, unlock, err := s.ledger.LockWallet(p.AccountID)
	if err != nil {
		return Receipt{}, err
	}
	defer unlock()

	total := p.UnitPrice.Mul(decimal.NewFromInt(int64(p.Quantity)))
	if balance.LessThan(total) {
		return Receipt{}, &InsufficientBalanceError{Balance: balance, Required: total}
	}

	units, err := s.inventory.Reserve(p.ProductID, p.Quantity)
	if err != nil {
		return Receipt{}, err
	}

	unitIDs := make([]uuid.UUID, len(units))
	payloads := make([]string, len(units))
	for i, u := range units {
		unitIDs[i] = u.ID
		payloads[i] = u.Payload
	}

	orderID := uuid.New()
	entry, err := s.ledger.Append(p.AccountID, ledger.KindDebit, total, ledger.Details{
		Source:    "purchase",
		OrderID:   orderID.String(),
		ProductID: p.ProductID.String(),
		Quantity:  p.Quantity,
	})
	if err != nil {
		s.inventory.Release(unitIDs)
		if err == ledger.ErrInsufficientFunds {
			return Receipt{}, &InsufficientBalanceError{Balance: balance, Required: total}
		}
		return Receipt{}, &StorageError{Err: err}
	}

	s.orders.Insert(order.Order{
		ID:        orderID,
		AccountID: p.AccountID,
		ProductID: p.ProductID,
		Quantity:  p.Quantity,
		UnitPrice: p.UnitPrice,
		Total:     total,
		Payloads:  payloads,
		CreatedAt: time.Now().UTC(),
	})

	if err := s.inventory.Finalize(unitIDs, p.AccountID, orderID); err != nil {
		s.orders.Remove(orderID)
		s.ledger.Remove(p.AccountID, entry.ID)
		s.inventory.Release(unitIDs)
		return Receipt{}, &StorageError{Err: err}
	}

	return Receipt{OrderID: orderID, Total: total, Payloads: payloads, NewBalance: entry.BalanceAfter}, nil
}
