package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists stock units in PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed inventory store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Import inserts unsold units for the product, one per payload.
func (s *PostgresStore) Import(ctx context.Context, productID uuid.UUID, payloads []string) (int, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	created := 0
	for _, payload := range payloads {
		if payload == "" {
			return 0, fmt.Errorf("inventory: empty payload at position %d", created)
		}
		if _, err := tx.Exec(ctx, `INSERT INTO stock_units (id, product_id, payload, sold, created_at)
            VALUES ($1, $2, $3, FALSE, $4)`, uuid.New(), productID, payload, time.Now().UTC()); err != nil {
			return 0, err
		}
		created++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return created, nil
}

// CountAvailable returns the number of unsold units for display purposes.
func (s *PostgresStore) CountAvailable(ctx context.Context, productID uuid.UUID) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM stock_units WHERE product_id = $1 AND sold = FALSE`, productID).Scan(&n)
	return n, err
}

// Reserve selects up to quantity unsold units inside the caller's
// transaction, oldest stock first. Units locked by a concurrent reservation
// are skipped rather than waited on, so buyers of disjoint stock never block
// each other. When fewer than quantity units are claimable the transaction
// must be rolled back by the caller, which releases the row locks and leaves
// no partial reservation visible.
func Reserve(ctx context.Context, tx pgx.Tx, productID uuid.UUID, quantity int) ([]StockUnit, error) {
	rows, err := tx.Query(ctx, `SELECT id, product_id, payload, created_at
        FROM stock_units
        WHERE product_id = $1 AND sold = FALSE
        ORDER BY created_at ASC, id ASC
        LIMIT $2
        FOR UPDATE SKIP LOCKED`, productID, quantity)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var units []StockUnit
	for rows.Next() {
		var u StockUnit
		var createdAt time.Time
		if err := rows.Scan(&u.ID, &u.ProductID, &u.Payload, &createdAt); err != nil {
			return nil, err
		}
		u.CreatedAt = createdAt.UTC()
		units = append(units, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(units) < quantity {
		return nil, &InsufficientStockError{Available: len(units), Requested: quantity}
	}
	return units, nil
}

// Finalize marks reserved units permanently sold inside the caller's
// transaction. Calling it again with the same orderID is a no-op; a unit
// already sold under a different order fails the whole call.
func Finalize(ctx context.Context, tx pgx.Tx, unitIDs []uuid.UUID, accountID, orderID uuid.UUID) error {
	tag, err := tx.Exec(ctx, `UPDATE stock_units SET sold = TRUE, sold_to = $2, sold_at = $3, order_id = $4
        WHERE id = ANY($1) AND sold = FALSE`, unitIDs, accountID, time.Now().UTC(), orderID)
	if err != nil {
		return err
	}
	if int(tag.RowsAffected()) == len(unitIDs) {
		return nil
	}

	var sameOrder int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM stock_units WHERE id = ANY($1) AND sold = TRUE AND order_id = $2`,
		unitIDs, orderID).Scan(&sameOrder); err != nil {
		return err
	}
	if int(tag.RowsAffected())+sameOrder == len(unitIDs) {
		return nil
	}
	return ErrAlreadySold
}
