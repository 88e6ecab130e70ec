package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PostgresRepository stores products in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a product record.
func (r *PostgresRepository) Create(ctx context.Context, p Product) error {
	_, err := r.db.Exec(ctx, `INSERT INTO products (id, name, description, unit_price, active, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.Name, p.Description, p.UnitPrice.String(), p.Active, p.CreatedAt.UTC())
	return err
}

// Update rewrites the product's mutable metadata.
func (r *PostgresRepository) Update(ctx context.Context, p Product) error {
	tag, err := r.db.Exec(ctx, `UPDATE products SET name = $2, description = $3, unit_price = $4, active = $5
        WHERE id = $1`, p.ID, p.Name, p.Description, p.UnitPrice.String(), p.Active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Get fetches product metadata by identifier.
func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (Product, error) {
	row := r.db.QueryRow(ctx, `SELECT id, name, description, unit_price::text, active, created_at
        FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	return p, err
}

// List returns products, optionally only active ones, newest first.
func (r *PostgresRepository) List(ctx context.Context, activeOnly bool) ([]Product, error) {
	query := `SELECT id, name, description, unit_price::text, active, created_at FROM products`
	if activeOnly {
		query += ` WHERE active = TRUE`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func scanProduct(row pgx.Row) (Product, error) {
	var (
		p         Product
		unitPrice string
		createdAt time.Time
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &unitPrice, &p.Active, &createdAt); err != nil {
		return Product{}, err
	}
	var err error
	if p.UnitPrice, err = decimal.NewFromString(unitPrice); err != nil {
		return Product{}, err
	}
	p.CreatedAt = createdAt.UTC()
	return p, nil
}
