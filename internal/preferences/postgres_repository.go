package preferences

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository stores preferences in PostgreSQL, one row per
// (owner, key).
type PostgresRepository struct {
	pool  *pgxpool.Pool
	owner string
}

// NewPostgresRepository creates a repository scoped to owner.
func NewPostgresRepository(pool *pgxpool.Pool, owner string) *PostgresRepository {
	return &PostgresRepository{pool: pool, owner: owner}
}

// EnsureSchema creates the preferences table if needed.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS preferences (
			owner      TEXT        NOT NULL,
			key        TEXT        NOT NULL,
			value      JSONB       NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (owner, key)
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Get implements Repository.
func (r *PostgresRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := r.pool.QueryRow(ctx, `
		SELECT value
		FROM preferences
		WHERE owner = $1 AND key = $2
	`, r.owner, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return value, nil
}

// Set implements Repository.
func (r *PostgresRepository) Set(ctx context.Context, key string, value []byte) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO preferences (owner, key, value, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (owner, key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at
	`, r.owner, key, value)
	return err
}

// Delete implements Repository.
func (r *PostgresRepository) Delete(ctx context.Context, key string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM preferences WHERE owner = $1 AND key = $2`, r.owner, key)
	return err
}

var _ Repository = (*PostgresRepository)(nil)
