package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PostgresStore persists wallets and ledger entries in PostgreSQL. The
// wallets.balance column is a cached projection; the append-only
// ledger_entries table is the source of truth.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed ledger store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureWallet guarantees a zero-balance wallet row exists for the account.
func (s *PostgresStore) EnsureWallet(ctx context.Context, accountID uuid.UUID) error {
	_, err := s.db.Exec(ctx, `INSERT INTO wallets (account_id, balance) VALUES ($1, 0)
        ON CONFLICT (account_id) DO NOTHING`, accountID)
	return err
}

// Balance returns the account's current balance, creating the wallet on
// first access.
func (s *PostgresStore) Balance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	var raw string
	err := s.db.QueryRow(ctx, `SELECT balance::text FROM wallets WHERE account_id = $1`, accountID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		if err := s.EnsureWallet(ctx, accountID); err != nil {
			return decimal.Zero, err
		}
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(raw)
}

// Entries lists the account's ledger entries newest first, capped at limit.
func (s *PostgresStore) Entries(ctx context.Context, accountID uuid.UUID, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `SELECT id, account_id, kind, amount::text, balance_after::text, details, created_at
        FROM ledger_entries WHERE account_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// LockWallet acquires an exclusive lock on the wallet row for the duration of
// the transaction and returns the locked balance. Two settlements against the
// same wallet serialize here.
func LockWallet(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (decimal.Decimal, error) {
	var raw string
	err := tx.QueryRow(ctx, `SELECT balance::text FROM wallets WHERE account_id = $1 FOR UPDATE`, accountID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, ErrWalletMissing
	}
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(raw)
}

// Append writes one ledger entry and moves the cached balance inside the
// caller's transaction. The caller must already hold the wallet row lock via
// LockWallet. A debit that would turn the balance negative fails with
// ErrInsufficientFunds and writes nothing.
func Append(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, kind string, amount decimal.Decimal, details Details) (Entry, error) {
	if amount.Sign() <= 0 {
		return Entry{}, fmt.Errorf("ledger: amount must be positive")
	}

	balance, err := LockWallet(ctx, tx, accountID)
	if err != nil {
		return Entry{}, err
	}

	var after decimal.Decimal
	switch kind {
	case KindCredit:
		after = balance.Add(amount)
	case KindDebit:
		after = balance.Sub(amount)
		if after.IsNegative() {
			return Entry{}, ErrInsufficientFunds
		}
	default:
		return Entry{}, fmt.Errorf("ledger: unknown entry kind %q", kind)
	}

	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return Entry{}, err
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

	if _, err := tx.Exec(ctx, `INSERT INTO ledger_entries (id, account_id, kind, amount, balance_after, details, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.AccountID, entry.Kind, entry.Amount.String(), entry.BalanceAfter.String(), detailsJSON, entry.CreatedAt); err != nil {
		return Entry{}, err
	}
	if _, err := tx.Exec(ctx, `UPDATE wallets SET balance = $1 WHERE account_id = $2`, after.String(), accountID); err != nil {
		return Entry{}, err
	}

	return entry, nil
}

func scanEntry(row pgx.Row) (Entry, error) {
	var (
		entry       Entry
		amount      string
		after       string
		detailsJSON []byte
		createdAt   time.Time
	)
	if err := row.Scan(&entry.ID, &entry.AccountID, &entry.Kind, &amount, &after, &detailsJSON, &createdAt); err != nil {
		return Entry{}, err
	}
	var err error
	if entry.Amount, err = decimal.NewFromString(amount); err != nil {
		return Entry{}, err
	}
	if entry.BalanceAfter, err = decimal.NewFromString(after); err != nil {
		return Entry{}, err
	}
	if len(detailsJSON) > 0 {
		if err := json.Unmarshal(detailsJSON, &entry.Details); err != nil {
			return Entry{}, err
		}
	}
	entry.CreatedAt = createdAt.UTC()
	return entry, nil
}
