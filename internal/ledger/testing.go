package ledger

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Seed is a test helper that provisions a wallet on the in-memory store and
// funds it through a regular credit entry, so the replay invariant still
// holds for seeded accounts.
func Seed(s *MemoryStore, accountID uuid.UUID, amount decimal.Decimal) {
	s.wallet(accountID, true)
	if amount.Sign() > 0 {
		_, _ = s.Append(accountID, KindCredit, amount, Details{Source: "seed"})
	}
}
