package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore implements SubscriberStore using PostgreSQL as the data store.
// One row per (product, email); insertion order is preserved via added_at.
type PgStore struct {
	db *pgxpool.Pool
}

// NewPgStore creates a new SubscriberStore backed by a PostgreSQL connection pool.
func NewPgStore(dbp *pgxpool.Pool) *PgStore {
	return &PgStore{db: dbp}
}

// Load retrieves the subscriber emails for a product in insertion order.
func (p *PgStore) Load(ctx context.Context, product string) ([]string, error) {
	rows, err := p.db.Query(ctx,
		`SELECT email FROM subscribers WHERE product_key = $1 ORDER BY added_at, email`,
		product)
	if err != nil {
		return nil, fmt.Errorf("failed to load subscribers for %s: %w", product, err)
	}
	defer rows.Close()

	emails := []string{}
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("failed to scan subscriber row: %w", err)
		}
		emails = append(emails, email)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read subscriber rows: %w", err)
	}
	return emails, nil
}

// Save replaces the full subscriber set for a product in one transaction.
func (p *PgStore) Save(ctx context.Context, product string, emails []string) error {
	tx, err := p.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM subscribers WHERE product_key = $1`, product); err != nil {
		return fmt.Errorf("failed to clear subscribers for %s: %w", product, err)
	}
	for _, email := range emails {
		normalized := NormalizeEmail(email)
		if normalized == "" {
			continue
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO subscribers (product_key, email) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			product, normalized); err != nil {
			return fmt.Errorf("failed to insert subscriber %s for %s: %w", normalized, product, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit subscriber set for %s: %w", product, err)
	}
	return nil
}

// Add inserts a normalized email into a product's set.
// Returns false when the email was already present or normalizes to empty.
func (p *PgStore) Add(ctx context.Context, product, email string) (bool, error) {
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return false, nil
	}
	tag, err := p.db.Exec(ctx,
		`INSERT INTO subscribers (product_key, email) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		product, normalized)
	if err != nil {
		return false, fmt.Errorf("failed to add subscriber for %s: %w", product, err)
	}
	return tag.RowsAffected() > 0, nil
}

// Remove deletes a normalized email from a product's set.
// Returns false when the email was absent.
func (p *PgStore) Remove(ctx context.Context, product, email string) (bool, error) {
	tag, err := p.db.Exec(ctx,
		`DELETE FROM subscribers WHERE product_key = $1 AND email = $2`,
		product, NormalizeEmail(email))
	if err != nil {
		return false, fmt.Errorf("failed to remove subscriber for %s: %w", product, err)
	}
	return tag.RowsAffected() > 0, nil
}
