package order

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PostgresStore persists orders in PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed order store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Get fetches one order by identifier.
func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (Order, error) {
	row := s.db.QueryRow(ctx, `SELECT id, account_id, product_id, quantity, unit_price::text, total::text, payloads, created_at
        FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	return o, err
}

// ListByAccount lists the account's orders, newest first.
func (s *PostgresStore) ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]Order, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `SELECT id, account_id, product_id, quantity, unit_price::text, total::text, payloads, created_at
        FROM orders WHERE account_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// Insert writes the order inside the caller's settlement transaction.
func Insert(ctx context.Context, tx pgx.Tx, o Order) error {
	payloads, err := json.Marshal(o.Payloads)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `INSERT INTO orders (id, account_id, product_id, quantity, unit_price, total, payloads, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		o.ID, o.AccountID, o.ProductID, o.Quantity, o.UnitPrice.String(), o.Total.String(), payloads, o.CreatedAt)
	return err
}

func scanOrder(row pgx.Row) (Order, error) {
	var (
		o         Order
		unitPrice string
		total     string
		payloads  []byte
		createdAt time.Time
	)
	if err := row.Scan(&o.ID, &o.AccountID, &o.ProductID, &o.Quantity, &unitPrice, &total, &payloads, &createdAt); err != nil {
		return Order{}, err
	}
	var err error
	if o.UnitPrice, err = decimal.NewFromString(unitPrice); err != nil {
		return Order{}, err
	}
	if o.Total, err = decimal.NewFromString(total); err != nil {
		return Order{}, err
	}
	if len(payloads) > 0 {
		if err := json.Unmarshal(payloads, &o.Payloads); err != nil {
			return Order{}, err
		}
	}
	o.CreatedAt = createdAt.UTC()
	return o, nil
}
