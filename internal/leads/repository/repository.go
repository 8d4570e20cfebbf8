// Package repository is the Postgres gateway for leads.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"salesops_backend/internal/shared/notes"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when a lead does not exist.
	ErrNotFound = errors.New("lead not found")
	// ErrStaleState is returned when a conditional update lost a race.
	ErrStaleState = errors.New("lead changed concurrently")
)

const leadColumns = `id, customer_name, customer_phone, customer_email, part_description,
	status, assigned_agent_id, notes, created_at, updated_at`

// Lead is the persisted lead row.
type Lead struct {
	ID              uuid.UUID
	CustomerName    string
	CustomerPhone   string
	CustomerEmail   *string
	PartDescription string
	Status          string
	AssignedAgentID uuid.UUID
	Notes           []notes.Note
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CreateLeadParams holds the columns set at intake.
type CreateLeadParams struct {
	CustomerName    string
	CustomerPhone   string
	CustomerEmail   *string
	PartDescription string
	AssignedAgentID uuid.UUID
	Notes           []notes.Note
}

// ListParams filters List. A nil AssignedAgentID lists every lead.
type ListParams struct {
	AssignedAgentID *uuid.UUID
	Status          *string
	Limit           int
	Offset          int
}

// Repository implements LeadReader and LeadWriter on pgx.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a leads repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanLead(row pgx.Row) (Lead, error) {
	var l Lead
	var rawNotes []byte
	if err := row.Scan(&l.ID, &l.CustomerName, &l.CustomerPhone, &l.CustomerEmail, &l.PartDescription,
		&l.Status, &l.AssignedAgentID, &rawNotes, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return Lead{}, err
	}
	decoded, err := notes.Decode(rawNotes)
	if err != nil {
		return Lead{}, fmt.Errorf("decode lead notes: %w", err)
	}
	l.Notes = decoded
	return l, nil
}

func notFound(l Lead, err error) (Lead, error) {
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return l, err
}

func (r *Repository) Create(ctx context.Context, p CreateLeadParams) (Lead, error) {
	initial := p.Notes
	if initial == nil {
		initial = []notes.Note{}
	}
	return scanLead(r.pool.QueryRow(ctx, `
		INSERT INTO leads (id, customer_name, customer_phone, customer_email, part_description, assigned_agent_id, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+leadColumns,
		uuid.New(), p.CustomerName, p.CustomerPhone, p.CustomerEmail, p.PartDescription, p.AssignedAgentID, initial))
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	return notFound(scanLead(r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)))
}

func (r *Repository) List(ctx context.Context, p ListParams) ([]Lead, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM leads
		WHERE ($1::uuid IS NULL OR assigned_agent_id = $1)
		  AND ($2::text IS NULL OR status = $2)
	`, p.AssignedAgentID, p.Status).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+` FROM leads
		WHERE ($1::uuid IS NULL OR assigned_agent_id = $1)
		  AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC, id
		LIMIT $3 OFFSET $4
	`, p.AssignedAgentID, p.Status, p.Limit, p.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := make([]Lead, 0, p.Limit)
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, l)
	}
	return items, total, rows.Err()
}

func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (Lead, error) {
	return notFound(scanLead(r.pool.QueryRow(ctx, `
		UPDATE leads SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+leadColumns, id, status)))
}

// Reassign moves the lead to newAgentID only if it is still owned by
// expectedAgentID.
func (r *Repository) Reassign(ctx context.Context, id, expectedAgentID, newAgentID uuid.UUID) (Lead, error) {
	l, err := scanLead(r.pool.QueryRow(ctx, `
		UPDATE leads SET assigned_agent_id = $3, updated_at = now()
		WHERE id = $1 AND assigned_agent_id = $2
		RETURNING `+leadColumns, id, expectedAgentID, newAgentID))
	if errors.Is(err, pgx.ErrNoRows) {
		if _, getErr := r.GetByID(ctx, id); errors.Is(getErr, ErrNotFound) {
			return Lead{}, ErrNotFound
		}
		return Lead{}, ErrStaleState
	}
	return l, err
}

func (r *Repository) AppendNote(ctx context.Context, id uuid.UUID, note notes.Note) (Lead, error) {
	raw, err := notes.EncodeOne(note)
	if err != nil {
		return Lead{}, err
	}
	return notFound(scanLead(r.pool.QueryRow(ctx, `
		UPDATE leads SET notes = notes || $2::jsonb, updated_at = now()
		WHERE id = $1
		RETURNING `+leadColumns, id, raw)))
}
