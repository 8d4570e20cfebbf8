package agents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when an agent does not exist.
var ErrNotFound = errors.New("agent not found")

const agentColumns = `id, name, email, role, is_paused, availability_status, created_at, updated_at`

const listEligibleQuery = `
	SELECT ` + agentColumns + `
	FROM agents
	WHERE role = $1
	  AND is_paused = FALSE
	  AND ($2::boolean = FALSE OR availability_status = 'Available')
	  AND ($3::uuid IS NULL OR id <> $3)
	ORDER BY created_at, id`

// Repository reads and writes agents.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an agents repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanAgent(row pgx.Row) (Agent, error) {
	var a Agent
	var role, status string
	if err := row.Scan(&a.ID, &a.Name, &a.Email, &role, &a.IsPaused, &status, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return Agent{}, err
	}
	a.Role = Role(role)
	a.AvailabilityStatus = Status(status)
	return a, nil
}

// GetByID loads one agent.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Agent, error) {
	a, err := scanAgent(r.pool.QueryRow(ctx, `SELECT `+agentColumns+` FROM agents WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Agent{}, ErrNotFound
	}
	return a, err
}

// ListEligible returns the pool members in stable allocation order.
func (r *Repository) ListEligible(ctx context.Context, f EligibilityFilter) ([]Agent, error) {
	rows, err := r.pool.Query(ctx, listEligibleQuery, string(f.Role), f.RequireAvailable, f.ExcludeID)
	if err != nil {
		return nil, err
	}
	return collectAgents(rows)
}

// ListByRole returns every agent with role, paused or not.
func (r *Repository) ListByRole(ctx context.Context, role Role) ([]Agent, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+agentColumns+` FROM agents WHERE role = $1 ORDER BY created_at, id`, string(role))
	if err != nil {
		return nil, err
	}
	return collectAgents(rows)
}

func collectAgents(rows pgx.Rows) ([]Agent, error) {
	defer rows.Close()
	items := make([]Agent, 0)
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

// SetPaused toggles the pause flag.
func (r *Repository) SetPaused(ctx context.Context, id uuid.UUID, paused bool) (Agent, error) {
	a, err := scanAgent(r.pool.QueryRow(ctx, `
		UPDATE agents SET is_paused = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+agentColumns, id, paused))
	if errors.Is(err, pgx.ErrNoRows) {
		return Agent{}, ErrNotFound
	}
	return a, err
}

// ChangeAvailability updates the agent's status and appends the status log
// entry in one transaction. It returns the previous status.
func (r *Repository) ChangeAvailability(ctx context.Context, id uuid.UUID, status Status, at time.Time) (Agent, Status, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Agent{}, "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var previous string
	err = tx.QueryRow(ctx, `SELECT availability_status FROM agents WHERE id = $1 FOR UPDATE`, id).Scan(&previous)
	if errors.Is(err, pgx.ErrNoRows) {
		return Agent{}, "", ErrNotFound
	}
	if err != nil {
		return Agent{}, "", err
	}

	updated, err := scanAgent(tx.QueryRow(ctx, `
		UPDATE agents SET availability_status = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+agentColumns, id, string(status)))
	if err != nil {
		return Agent{}, "", err
	}

	if _, err := tx.Exec(ctx, `INSERT INTO agent_status_log (agent_id, status, logged_at) VALUES ($1, $2, $3)`, id, string(status), at); err != nil {
		return Agent{}, "", fmt.Errorf("append status log: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Agent{}, "", err
	}
	return updated, Status(previous), nil
}
