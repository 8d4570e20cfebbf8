package litigation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"salesops_backend/internal/shared/notes"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound   = errors.New("litigation not found")
	ErrStaleState = errors.New("litigation changed concurrently")
)

const litigationColumns = `l.id, l.order_id, l.customer_complaint, l.diagnosis, l.vendor_response,
	l.resolution, l.refund_cents, l.history, l.notes, l.created_at, l.updated_at`

// Repository provides data access for litigations.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanLitigation(row pgx.Row) (Litigation, error) {
	var l Litigation
	var rawHistory, rawNotes []byte
	if err := row.Scan(&l.ID, &l.OrderID, &l.CustomerComplaint, &l.Diagnosis, &l.VendorResponse,
		&l.Resolution, &l.RefundCents, &rawHistory, &rawNotes, &l.CreatedAt, &l.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Litigation{}, ErrNotFound
		}
		return Litigation{}, err
	}
	l.History = make([]Snapshot, 0)
	if len(rawHistory) > 0 {
		if err := json.Unmarshal(rawHistory, &l.History); err != nil {
			return Litigation{}, fmt.Errorf("decode litigation history: %w", err)
		}
	}
	decoded, err := notes.Decode(rawNotes)
	if err != nil {
		return Litigation{}, fmt.Errorf("decode litigation notes: %w", err)
	}
	l.Notes = decoded
	return l, nil
}

// OpenForOrder creates the order's litigation, or returns the existing one.
func (r *Repository) OpenForOrder(ctx context.Context, orderID uuid.UUID) (Litigation, error) {
	return scanLitigation(r.pool.QueryRow(ctx, `
		INSERT INTO litigations AS l (order_id) VALUES ($1)
		ON CONFLICT (order_id) DO UPDATE SET order_id = EXCLUDED.order_id
		RETURNING `+litigationColumns, orderID))
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Litigation, error) {
	return scanLitigation(r.pool.QueryRow(ctx, `SELECT `+litigationColumns+` FROM litigations l WHERE l.id = $1`, id))
}

func (r *Repository) GetByOrderID(ctx context.Context, orderID uuid.UUID) (Litigation, error) {
	return scanLitigation(r.pool.QueryRow(ctx, `SELECT `+litigationColumns+` FROM litigations l WHERE l.order_id = $1`, orderID))
}

// List returns litigations, newest first. participantID limits the result to
// orders the agent takes part in.
func (r *Repository) List(ctx context.Context, participantID *uuid.UUID) ([]Litigation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+litigationColumns+`
		FROM litigations l
		JOIN orders o ON o.id = l.order_id
		WHERE $1::uuid IS NULL OR o.sales_agent_id = $1 OR o.customer_relations_agent_id = $1
		ORDER BY l.created_at DESC`, participantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Litigation, 0)
	for rows.Next() {
		l, err := scanLitigation(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, l)
	}
	return items, rows.Err()
}

// Update overwrites the details and appends archived to the history, if the
// record has not been written since expectedUpdatedAt.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, expectedUpdatedAt time.Time, details Details, archived Snapshot) (Litigation, error) {
	raw, err := json.Marshal([]Snapshot{archived})
	if err != nil {
		return Litigation{}, err
	}
	l, err := scanLitigation(r.pool.QueryRow(ctx, `
		UPDATE litigations l
		SET customer_complaint = $3,
		    diagnosis = $4,
		    vendor_response = $5,
		    resolution = $6,
		    refund_cents = $7,
		    history = l.history || $8::jsonb,
		    updated_at = now()
		WHERE l.id = $1 AND l.updated_at = $2
		RETURNING `+litigationColumns,
		id, expectedUpdatedAt, details.CustomerComplaint, details.Diagnosis, details.VendorResponse,
		details.Resolution, details.RefundCents, raw))
	if errors.Is(err, ErrNotFound) {
		return Litigation{}, r.missingOrStale(ctx, id)
	}
	return l, err
}

func (r *Repository) AppendNote(ctx context.Context, id uuid.UUID, note notes.Note) (Litigation, error) {
	raw, err := notes.EncodeOne(note)
	if err != nil {
		return Litigation{}, err
	}
	return scanLitigation(r.pool.QueryRow(ctx, `
		UPDATE litigations l SET notes = l.notes || $2::jsonb, updated_at = now()
		WHERE l.id = $1
		RETURNING `+litigationColumns, id, raw))
}

func (r *Repository) missingOrStale(ctx context.Context, id uuid.UUID) error {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM litigations WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrStaleState
}
