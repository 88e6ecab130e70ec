package topup

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/soko-digital/soko/internal/ledger"
)

// PostgresStore persists top-up requests in PostgreSQL. Review transitions
// lock the request row, so concurrent reviews of the same request serialize
// and exactly one of them sees the pending state.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed top-up store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts a new pending request.
func (s *PostgresStore) Create(ctx context.Context, req Request) error {
	_, err := s.db.Exec(ctx, `INSERT INTO topup_requests (id, account_id, amount, method, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		req.ID, req.AccountID, req.Amount.String(), req.Method, req.Status, req.CreatedAt)
	return err
}

// Get fetches one request by identifier.
func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (Request, error) {
	row := s.db.QueryRow(ctx, selectRequest+` WHERE id = $1`, id)
	req, err := scanRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Request{}, ErrNotFound
	}
	return req, err
}

// ListByAccount lists the account's requests, newest first.
func (s *PostgresStore) ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]Request, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.list(ctx, selectRequest+` WHERE account_id = $1 ORDER BY created_at DESC LIMIT $2`, accountID, limit)
}

// ListPending lists pending requests across accounts, oldest first.
func (s *PostgresStore) ListPending(ctx context.Context, limit int) ([]Request, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.list(ctx, selectRequest+` WHERE status = $1 ORDER BY created_at ASC LIMIT $2`, StatusPending, limit)
}

// CountPending counts the account's pending requests.
func (s *PostgresStore) CountPending(ctx context.Context, accountID uuid.UUID) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM topup_requests WHERE account_id = $1 AND status = $2`,
		accountID, StatusPending).Scan(&n)
	return n, err
}

// Approve transitions the request to approved and appends the ledger credit
// in the same transaction.
func (s *PostgresStore) Approve(ctx context.Context, id, reviewerID uuid.UUID, finalAmount decimal.Decimal) (Request, ledger.Entry, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Request{}, ledger.Entry{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	req, err := lockRequest(ctx, tx, id)
	if err != nil {
		return Request{}, ledger.Entry{}, err
	}
	if req.Status != StatusPending {
		return Request{}, ledger.Entry{}, ErrNotPending
	}

	amount := finalAmount
	if amount.IsZero() {
		amount = req.Amount
	}

	now := time.Now().UTC()
	if _, err := tx.Exec(ctx, `UPDATE topup_requests SET status = $2, amount = $3, reviewer_id = $4, reviewed_at = $5
        WHERE id = $1`, id, StatusApproved, amount.String(), reviewerID, now); err != nil {
		return Request{}, ledger.Entry{}, err
	}

	// The account may never have been read before; credits may lazily
	// provision the wallet the same way Balance does.
	if _, err := tx.Exec(ctx, `INSERT INTO wallets (account_id, balance) VALUES ($1, 0)
        ON CONFLICT (account_id) DO NOTHING`, req.AccountID); err != nil {
		return Request{}, ledger.Entry{}, err
	}

	entry, err := ledger.Append(ctx, tx, req.AccountID, ledger.KindCredit, amount, ledger.Details{
		Source:    "topup",
		RequestID: req.ID.String(),
	})
	if err != nil {
		return Request{}, ledger.Entry{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Request{}, ledger.Entry{}, err
	}

	req.Status = StatusApproved
	req.Amount = amount
	req.ReviewerID = &reviewerID
	req.ReviewedAt = &now
	return req, entry, nil
}

// Reject transitions the request to rejected. Pure state transition.
func (s *PostgresStore) Reject(ctx context.Context, id, reviewerID uuid.UUID, note string) (Request, error) {
	return s.transition(ctx, id, StatusRejected, &reviewerID, note, nil)
}

// Cancel transitions a still-pending request to cancelled on behalf of its
// owner.
func (s *PostgresStore) Cancel(ctx context.Context, id, accountID uuid.UUID) (Request, error) {
	return s.transition(ctx, id, StatusCancelled, nil, "", &accountID)
}

func (s *PostgresStore) transition(ctx context.Context, id uuid.UUID, status string, reviewerID *uuid.UUID, note string, ownerID *uuid.UUID) (Request, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Request{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	req, err := lockRequest(ctx, tx, id)
	if err != nil {
		return Request{}, err
	}
	if ownerID != nil && req.AccountID != *ownerID {
		return Request{}, ErrNotOwner
	}
	if req.Status != StatusPending {
		return Request{}, ErrNotPending
	}

	now := time.Now().UTC()
	if _, err := tx.Exec(ctx, `UPDATE topup_requests SET status = $2, reviewer_id = $3, review_note = $4, reviewed_at = $5
        WHERE id = $1`, id, status, reviewerID, note, now); err != nil {
		return Request{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Request{}, err
	}

	req.Status = status
	req.ReviewerID = reviewerID
	req.ReviewNote = note
	req.ReviewedAt = &now
	return req, nil
}

const selectRequest = `SELECT id, account_id, amount::text, method, status, reviewer_id, COALESCE(review_note, ''), reviewed_at, created_at
    FROM topup_requests`

func lockRequest(ctx context.Context, tx pgx.Tx, id uuid.UUID) (Request, error) {
	row := tx.QueryRow(ctx, selectRequest+` WHERE id = $1 FOR UPDATE`, id)
	req, err := scanRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Request{}, ErrNotFound
	}
	return req, err
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]Request, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

func scanRequest(row pgx.Row) (Request, error) {
	var (
		req        Request
		amount     string
		reviewerID *uuid.UUID
		reviewedAt *time.Time
		createdAt  time.Time
	)
	if err := row.Scan(&req.ID, &req.AccountID, &amount, &req.Method, &req.Status, &reviewerID, &req.ReviewNote, &reviewedAt, &createdAt); err != nil {
		return Request{}, err
	}
	var err error
	if req.Amount, err = decimal.NewFromString(amount); err != nil {
		return Request{}, err
	}
	req.ReviewerID = reviewerID
	if reviewedAt != nil {
		t := reviewedAt.UTC()
		req.ReviewedAt = &t
	}
	req.CreatedAt = createdAt.UTC()
	return req, nil
}
