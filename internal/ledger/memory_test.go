package ledger

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestMemoryStore_BalanceCreatesWallet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	account := uuid.New()

	balance, err := s.Balance(ctx, account)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !balance.IsZero() {
		t.Fatalf("expected zero balance for new wallet, got %s", balance)
	}

	// the wallet now exists, so it can be locked for settlement
	got, unlock, err := s.LockWallet(account)
	if err != nil {
		t.Fatalf("lock wallet: %v", err)
	}
	unlock()
	if !got.IsZero() {
		t.Fatalf("expected zero locked balance, got %s", got)
	}
}

func TestMemoryStore_LockWalletMissing(t *testing.T) {
	s := NewMemoryStore()

	if _, _, err := s.LockWallet(uuid.New()); err != ErrWalletMissing {
		t.Fatalf("expected ErrWalletMissing, got %v", err)
	}
}

func TestMemoryStore_AppendMovesBalance(t *testing.T) {
	s := NewMemoryStore()
	account := uuid.New()
	Seed(s, account, decimal.NewFromInt(250))

	entry, err := s.Append(account, KindDebit, decimal.NewFromInt(200), Details{Source: "purchase"})
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if !entry.BalanceAfter.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected balance after 50, got %s", entry.BalanceAfter)
	}

	balance, _ := s.Balance(context.Background(), account)
	if !balance.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected balance 50, got %s", balance)
	}
}

func TestMemoryStore_DebitNeverOverdraws(t *testing.T) {
	s := NewMemoryStore()
	account := uuid.New()
	Seed(s, account, decimal.NewFromInt(100))

	if _, err := s.Append(account, KindDebit, decimal.NewFromInt(101), Details{}); err != ErrInsufficientFunds {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	balance, _ := s.Balance(context.Background(), account)
	if !balance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("failed debit must not move balance, got %s", balance)
	}
}

func TestMemoryStore_RejectsNonPositiveAmounts(t *testing.T) {
	s := NewMemoryStore()
	account := uuid.New()
	Seed(s, account, decimal.NewFromInt(10))

	if _, err := s.Append(account, KindCredit, decimal.Zero, Details{}); err == nil {
		t.Fatalf("expected zero-amount credit to fail")
	}
	if _, err := s.Append(account, KindDebit, decimal.NewFromInt(-5), Details{}); err == nil {
		t.Fatalf("expected negative debit to fail")
	}
}

// Replaying the entries from zero must land on the cached balance, and each
// entry's recorded balance must match the running sum at its position.
func TestMemoryStore_ReplayMatchesBalance(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	account := uuid.New()
	Seed(s, account, decimal.NewFromInt(1_000))

	s.Append(account, KindDebit, decimal.NewFromInt(300), Details{Source: "purchase"})
	s.Append(account, KindCredit, decimal.NewFromInt(50), Details{Source: "topup"})
	s.Append(account, KindDebit, decimal.NewFromInt(125), Details{Source: "purchase"})

	entries, err := s.Entries(ctx, account, 100)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(entries))
	}

	// Entries returns newest first; replay oldest first.
	running := decimal.Zero
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		switch e.Kind {
		case KindCredit:
			running = running.Add(e.Amount)
		case KindDebit:
			running = running.Sub(e.Amount)
		}
		if !e.BalanceAfter.Equal(running) {
			t.Fatalf("entry %d: recorded balance %s, replay %s", i, e.BalanceAfter, running)
		}
	}

	balance, _ := s.Balance(ctx, account)
	if !balance.Equal(running) {
		t.Fatalf("cached balance %s disagrees with replay %s", balance, running)
	}
}

func TestMemoryStore_EntriesNewestFirstAndCapped(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	account := uuid.New()
	Seed(s, account, decimal.NewFromInt(100))

	first, _ := s.Append(account, KindDebit, decimal.NewFromInt(10), Details{})
	second, _ := s.Append(account, KindDebit, decimal.NewFromInt(20), Details{})

	entries, err := s.Entries(ctx, account, 2)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].ID != second.ID || entries[1].ID != first.ID {
		t.Fatalf("entries not newest first")
	}
}

func TestMemoryStore_RemoveRestoresBalance(t *testing.T) {
	s := NewMemoryStore()
	account := uuid.New()
	Seed(s, account, decimal.NewFromInt(500))

	entry, err := s.Append(account, KindDebit, decimal.NewFromInt(200), Details{})
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	s.Remove(account, entry.ID)

	balance, _ := s.Balance(context.Background(), account)
	if !balance.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("expected restored balance 500, got %s", balance)
	}
	entries, _ := s.Entries(context.Background(), account, 10)
	if len(entries) != 1 {
		t.Fatalf("expected only the seed entry, got %d", len(entries))
	}
}

func TestMemoryStore_ConcurrentAppends(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	account := uuid.New()
	Seed(s, account, decimal.NewFromInt(10_000))

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Append(account, KindDebit, decimal.NewFromInt(100), Details{}); err != nil {
				t.Errorf("debit failed: %v", err)
			}
		}()
	}
	wg.Wait()

	balance, _ := s.Balance(ctx, account)
	if !balance.Equal(decimal.NewFromInt(8_000)) {
		t.Fatalf("expected balance 8000 after concurrent debits, got %s", balance)
	}
	entries, _ := s.Entries(ctx, account, 100)
	if len(entries) != workers+1 {
		t.Fatalf("expected %d entries, got %d", workers+1, len(entries))
	}
}
