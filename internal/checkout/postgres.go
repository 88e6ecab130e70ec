package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/soko-digital/soko/internal/inventory"
	"github.com/soko-digital/soko/internal/ledger"
	"github.com/soko-digital/soko/internal/order"
)

// PostgresSettler runs the whole settlement protocol inside a single pgx
// transaction, so the cross-store all-or-nothing guarantee falls out of the
// shared transactional substrate. Wallet serialization comes from the row
// lock in ledger.LockWallet; disjoint stock claims proceed concurrently via
// FOR UPDATE SKIP LOCKED in inventory.Reserve.
type PostgresSettler struct {
	db *pgxpool.Pool
}

// NewPostgresSettler constructs a Postgres-backed settlement coordinator.
func NewPostgresSettler(db *pgxpool.Pool) *PostgresSettler {
	return &PostgresSettler{db: db}
}

// Settle executes one purchase settlement.
func (s *PostgresSettler) Settle(ctx context.Context, p SettleParams) (Receipt, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Receipt{}, &StorageError{Err: err}
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	balance, err := ledger.LockWallet(ctx, tx, p.AccountID)
	if err != nil {
		if errors.Is(err, ledger.ErrWalletMissing) {
			return Receipt{}, err
		}
		return Receipt{}, &StorageError{Err: err}
	}

	total := p.UnitPrice.Mul(decimal.NewFromInt(int64(p.Quantity)))
	if balance.LessThan(total) {
		return Receipt{}, &InsufficientBalanceError{Balance: balance, Required: total}
	}

	units, err := inventory.Reserve(ctx, tx, p.ProductID, p.Quantity)
	if err != nil {
		var insufficient *inventory.InsufficientStockError
		if errors.As(err, &insufficient) {
			return Receipt{}, err
		}
		return Receipt{}, &StorageError{Err: err}
	}

	orderID := uuid.New()
	entry, err := ledger.Append(ctx, tx, p.AccountID, ledger.KindDebit, total, ledger.Details{
		Source:    "purchase",
		OrderID:   orderID.String(),
		ProductID: p.ProductID.String(),
		Quantity:  p.Quantity,
	})
	if err != nil {
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			return Receipt{}, &InsufficientBalanceError{Balance: balance, Required: total}
		}
		return Receipt{}, &StorageError{Err: err}
	}

	unitIDs := make([]uuid.UUID, len(units))
	payloads := make([]string, len(units))
	for i, u := range units {
		unitIDs[i] = u.ID
		payloads[i] = u.Payload
	}

	if err := inventory.Finalize(ctx, tx, unitIDs, p.AccountID, orderID); err != nil {
		return Receipt{}, &StorageError{Err: err}
	}

	if err := order.Insert(ctx, tx, order.Order{
		ID:        orderID,
		AccountID: p.AccountID,
		ProductID: p.ProductID,
		Quantity:  p.Quantity,
		UnitPrice: p.UnitPrice,
		Total:     total,
		Payloads:  payloads,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return Receipt{}, &StorageError{Err: err}
	}

	if err := tx.Commit(ctx); err != nil {
		return Receipt{}, &StorageError{Err: err}
	}

	return Receipt{OrderID: orderID, Total: total, Payloads: payloads, NewBalance: entry.BalanceAfter}, nil
}
