package allocation

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// CursorRepository persists one round-robin cursor per pool.
type CursorRepository struct {
	pool *pgxpool.Pool
}

// NewCursorRepository creates a cursor repository.
func NewCursorRepository(pool *pgxpool.Pool) *CursorRepository {
	return &CursorRepository{pool: pool}
}

// Load returns the cursor for pool, creating it at 0 on first use.
// The upsert makes concurrent first reads converge on a single row.
func (r *CursorRepository) Load(ctx context.Context, pool Pool) (uint64, error) {
	var index int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO round_robin_cursors (pool, current_index)
		VALUES ($1, 0)
		ON CONFLICT (pool) DO UPDATE SET pool = EXCLUDED.pool
		RETURNING current_index
	`, string(pool)).Scan(&index)
	if err != nil {
		return 0, err
	}
	return uint64(index), nil
}

// Store overwrites the cursor for pool.
func (r *CursorRepository) Store(ctx context.Context, pool Pool, index uint64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO round_robin_cursors (pool, current_index, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (pool) DO UPDATE SET current_index = EXCLUDED.current_index, updated_at = now()
	`, string(pool), int64(index))
	return err
}
