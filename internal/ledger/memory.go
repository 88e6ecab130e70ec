package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MemoryStore is a concurrency-safe in-memory ledger used by tests and the
// no-database development mode. It keeps the same wallet-lock discipline as
// the Postgres store: settlements against one wallet serialize on a
// per-wallet lock.
type MemoryStore struct {
	mu      sync.Mutex
	wallets map[uuid.UUID]*memWallet
}

type memWallet struct {
	settleMu sync.Mutex // exclusive settlement lock, held across a unit of work
	stateMu  sync.Mutex // guards balance and entries
	balance  decimal.Decimal
	entries  []Entry
}

// NewMemoryStore creates an empty in-memory ledger.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{wallets: make(map[uuid.UUID]*memWallet)}
}

func (s *MemoryStore) wallet(accountID uuid.UUID, create bool) *memWallet {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[accountID]
	if !ok && create {
		w = &memWallet{balance: decimal.Zero}
		s.wallets[accountID] = w
	}
	return w
}

// EnsureWallet creates a zero-balance wallet for the account if absent.
func (s *MemoryStore) EnsureWallet(_ context.Context, accountID uuid.UUID) error {
	s.wallet(accountID, true)
	return nil
}

// Balance returns the current balance, creating the wallet on first access.
func (s *MemoryStore) Balance(_ context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	w := s.wallet(accountID, true)
	w.stateMu.Lock()
	defer w.stateMu.Unlock()
	return w.balance, nil
}

// Entries lists the account's ledger entries newest first, capped at limit.
func (s *MemoryStore) Entries(_ context.Context, accountID uuid.UUID, limit int) ([]Entry, error) {
	w := s.wallet(accountID, false)
	if w == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	w.stateMu.Lock()
	defer w.stateMu.Unlock()
	entries := make([]Entry, 0, limit)
	for i := len(w.entries) - 1; i >= 0 && len(entries) < limit; i-- {
		entries = append(entries, w.entries[i])
	}
	return entries, nil
}

// LockWallet acquires the wallet's settlement lock and returns the balance
// observed under it plus the unlock function. It fails with ErrWalletMissing
// when the account has no wallet, mirroring the Postgres row lock.
func (s *MemoryStore) LockWallet(accountID uuid.UUID) (decimal.Decimal, func(), error) {
	w := s.wallet(accountID, false)
	if w == nil {
		return decimal.Zero, nil, ErrWalletMissing
	}
	w.settleMu.Lock()
	w.stateMu.Lock()
	balance := w.balance
	w.stateMu.Unlock()
	return balance, w.settleMu.Unlock, nil
}

// Append records one ledger entry and moves the balance. Callers performing a
// settlement must hold the wallet's settlement lock; standalone credits (seed
// data, approved top-ups) may rely on Append's own state lock.
func (s *MemoryStore) Append(accountID uuid.UUID, kind string, amount decimal.Decimal, details Details) (Entry, error) {
	if amount.Sign() <= 0 {
		return Entry{}, ErrInsufficientFunds
	}
	w := s.wallet(accountID, false)
	if w == nil {
		return Entry{}, ErrWalletMissing
	}

	w.stateMu.Lock()
	defer w.stateMu.Unlock()

	var after decimal.Decimal
	switch kind {
	case KindCredit:
		after = w.balance.Add(amount)
	case KindDebit:
		after = w.balance.Sub(amount)
		if after.IsNegative() {
			return Entry{}, ErrInsufficientFunds
		}
	default:
		return Entry{}, ErrInsufficientFunds
	}

	entry := Entry{
		ID:           uuid.New(),
		AccountID:    accountID,
		Kind:         kind,
		Amount:       amount,
		BalanceAfter: after,
		Details:      details,
		CreatedAt:    time.Now().UTC(),
	}
	w.balance = after
	w.entries = append(w.entries, entry)
	return entry, nil
}

// Remove deletes the most recent entry and restores the prior balance. Used
// only as the compensation step of the in-memory settlement coordinator.
func (s *MemoryStore) Remove(accountID uuid.UUID, entryID uuid.UUID) {
	w := s.wallet(accountID, false)
	if w == nil {
		return
	}
	w.stateMu.Lock()
	defer w.stateMu.Unlock()
	if n := len(w.entries); n > 0 && w.entries[n-1].ID == entryID {
		removed := w.entries[n-1]
		w.entries = w.entries[:n-1]
		switch removed.Kind {
		case KindCredit:
			w.balance = w.balance.Sub(removed.Amount)
		case KindDebit:
			w.balance = w.balance.Add(removed.Amount)
		}
	}
}
