package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrInsufficientFunds occurs when a debit would drive the wallet balance
	// below zero.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrWalletMissing indicates no wallet row exists for the account. Wallet
	// creation is a registration-time concern; settlement never auto-creates.
	ErrWalletMissing = errors.New("wallet missing")
)

const (
	// KindCredit marks an entry that increases the wallet balance.
	KindCredit = "credit"
	// KindDebit marks an entry that decreases the wallet balance.
	KindDebit = "debit"
)

// Details carries structured metadata attached to a ledger entry, linking it
// back to the order or top-up request that produced it.
type Details struct {
	Source    string `json:"source"`
	OrderID   string `json:"order_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	ProductID string `json:"product_id,omitempty"`
	Quantity  int    `json:"quantity,omitempty"`
}

// Entry is one immutable balance-affecting event. For a given account the
// entries, ordered by commit, form a running sum whose last BalanceAfter
// equals the wallet's current balance.
type Entry struct {
	ID           uuid.UUID
	AccountID    uuid.UUID
	Kind         string
	Amount       decimal.Decimal
	BalanceAfter decimal.Decimal
	Details      Details
	CreatedAt    time.Time
}

// Store defines the read surface of the ledger plus wallet provisioning.
// Balance-mutating appends are transaction-scoped and live on the concrete
// backends, not on this interface.
type Store interface {
	// EnsureWallet creates a zero-balance wallet for the account if absent.
	EnsureWallet(ctx context.Context, accountID uuid.UUID) error
	// Balance returns the current balance, lazily creating the wallet on
	// first access.
	Balance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error)
	// Entries lists the account's ledger entries, newest first.
	Entries(ctx context.Context, accountID uuid.UUID, limit int) ([]Entry, error)
}
