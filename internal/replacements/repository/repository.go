// Package repository is the Postgres gateway for replacement orders.
package repository

import (
	"context"
	"errors"
	"fmt"

	"salesops_backend/internal/replacements/domain"
	"salesops_backend/internal/shared/notes"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when a replacement does not exist.
	ErrNotFound = errors.New("replacement not found")
	// ErrStaleState is returned when a conditional update lost a race.
	ErrStaleState = errors.New("replacement changed concurrently")
)

const replacementColumns = `ro.id, ro.identifier, ro.original_order_id, ro.clone_order_id, ro.status,
	ro.shipping_method, ro.shipping_carrier, ro.shipping_tracking_id, ro.shipping_amount_cents,
	ro.notes, ro.created_at, ro.updated_at`

// ListParams filters List. ParticipantID limits results to replacements of
// orders where the agent is the salesperson or customer-relations agent.
type ListParams struct {
	OriginalOrderID *uuid.UUID
	ParticipantID   *uuid.UUID
	Status          *string
	Limit           int
	Offset          int
}

// Repository reads and writes replacement orders.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a replacements repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanReplacement(row pgx.Row) (domain.Replacement, error) {
	var r domain.Replacement
	var status string
	var method, carrier, tracking *string
	var amount *int64
	var rawNotes []byte
	if err := row.Scan(&r.ID, &r.Identifier, &r.OriginalOrderID, &r.CloneOrderID, &status,
		&method, &carrier, &tracking, &amount, &rawNotes, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return domain.Replacement{}, err
	}
	r.Status = domain.Status(status)
	if method != nil {
		r.Shipping = &domain.Shipping{Method: domain.ShippingMethod(*method)}
		if carrier != nil {
			r.Shipping.Carrier = *carrier
		}
		if tracking != nil {
			r.Shipping.TrackingID = *tracking
		}
		if amount != nil {
			r.Shipping.AmountCents = *amount
		}
	}
	decoded, err := notes.Decode(rawNotes)
	if err != nil {
		return domain.Replacement{}, fmt.Errorf("decode replacement notes: %w", err)
	}
	r.Notes = decoded
	return r, nil
}

func notFound(r domain.Replacement, err error) (domain.Replacement, error) {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Replacement{}, ErrNotFound
	}
	return r, err
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domain.Replacement, error) {
	return notFound(scanReplacement(r.pool.QueryRow(ctx,
		`SELECT `+replacementColumns+` FROM replacement_orders ro WHERE ro.id = $1`, id)))
}

func (r *Repository) List(ctx context.Context, p ListParams) ([]domain.Replacement, int, error) {
	const from = `
		FROM replacement_orders ro
		JOIN orders o ON o.id = ro.original_order_id
		WHERE ($1::uuid IS NULL OR ro.original_order_id = $1)
		  AND ($2::uuid IS NULL OR o.sales_agent_id = $2 OR o.customer_relations_agent_id = $2)
		  AND ($3::text IS NULL OR ro.status = $3)`

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+from, p.OriginalOrderID, p.ParticipantID, p.Status).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `SELECT `+replacementColumns+from+`
		ORDER BY ro.created_at DESC
		LIMIT $4 OFFSET $5`, p.OriginalOrderID, p.ParticipantID, p.Status, p.Limit, p.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := make([]domain.Replacement, 0)
	for rows.Next() {
		item, err := scanReplacement(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, item)
	}
	return items, total, rows.Err()
}

// UpdateStatus moves the replacement from expected to next and appends note
// in the same statement. A lost race yields ErrStaleState.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, expected, next domain.Status, note notes.Note) (domain.Replacement, error) {
	raw, err := notes.EncodeOne(note)
	if err != nil {
		return domain.Replacement{}, err
	}
	updated, err := scanReplacement(r.pool.QueryRow(ctx, `
		UPDATE replacement_orders ro
		SET status = $3, notes = ro.notes || $4::jsonb, updated_at = now()
		WHERE ro.id = $1 AND ro.status = $2
		RETURNING `+replacementColumns, id, string(expected), string(next), raw))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Replacement{}, r.missingOrStale(ctx, id)
	}
	return updated, err
}

// SubmitShipping stores shipping details and moves a ReplacementRequested
// replacement to WaitingShipment.
func (r *Repository) SubmitShipping(ctx context.Context, id uuid.UUID, shipping domain.Shipping, note notes.Note) (domain.Replacement, error) {
	raw, err := notes.EncodeOne(note)
	if err != nil {
		return domain.Replacement{}, err
	}
	updated, err := scanReplacement(r.pool.QueryRow(ctx, `
		UPDATE replacement_orders ro
		SET status = $3,
		    shipping_method = $4,
		    shipping_carrier = $5,
		    shipping_tracking_id = $6,
		    shipping_amount_cents = $7,
		    notes = ro.notes || $8::jsonb,
		    updated_at = now()
		WHERE ro.id = $1 AND ro.status = $2
		RETURNING `+replacementColumns,
		id, string(domain.StatusRequested), string(domain.StatusWaitingShipment),
		string(shipping.Method), shipping.Carrier, shipping.TrackingID, shipping.AmountCents, raw))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Replacement{}, r.missingOrStale(ctx, id)
	}
	return updated, err
}

func (r *Repository) missingOrStale(ctx context.Context, id uuid.UUID) error {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM replacement_orders WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrStaleState
}
