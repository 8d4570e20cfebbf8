package statuslog

import (
	"context"
	"time"

	"salesops_backend/internal/agents"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads the agent_status_log table. Rows are written by the
// agents module together with the availability change.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListBetween returns the agent's entries with from <= logged_at < to, oldest first.
func (r *Repository) ListBetween(ctx context.Context, agentID uuid.UUID, from, to time.Time) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT status, logged_at
		FROM agent_status_log
		WHERE agent_id = $1 AND logged_at >= $2 AND logged_at < $3
		ORDER BY logged_at ASC, id ASC
	`, agentID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var status string
		var e Entry
		if err := rows.Scan(&status, &e.At); err != nil {
			return nil, err
		}
		e.Status = agents.Status(status)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
