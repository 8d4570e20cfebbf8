// Package repository is the Postgres gateway for orders.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"salesops_backend/internal/orders/domain"
	"salesops_backend/internal/shared/notes"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when an order does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrStaleState is returned when a conditional update lost a race.
	ErrStaleState = errors.New("order changed concurrently")
	// ErrDuplicateIdentifier is returned when an identifier is already taken.
	ErrDuplicateIdentifier = errors.New("order identifier already exists")
)

const (
	orderNumberCounter = "order_number"
	pgUniqueViolation  = "23505"
)

const orderColumns = `id, order_number, identifier, lead_id, sales_agent_id, customer_relations_agent_id,
	status, customer_name, customer_phone, customer_email, shipping_address, part_description,
	sale_price_cents, vendors, notes, procurement_notes, replaced_from_id, created_at, updated_at`

const insertOrderSQL = `
	INSERT INTO orders (id, order_number, identifier, lead_id, sales_agent_id, customer_relations_agent_id,
		status, customer_name, customer_phone, customer_email, shipping_address, part_description,
		sale_price_cents, vendors, notes, procurement_notes, replaced_from_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	RETURNING ` + orderColumns

// ListParams filters List. ParticipantID limits results to orders where the
// agent is the salesperson or the customer-relations agent.
type ListParams struct {
	ParticipantID *uuid.UUID
	Status        *string
	Limit         int
	Offset        int
}

// Repository reads and writes orders.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates an orders repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanOrder(row pgx.Row) (domain.Order, error) {
	var o domain.Order
	var status string
	var rawVendors, rawNotes, rawProcurement []byte
	if err := row.Scan(&o.ID, &o.OrderNumber, &o.Identifier, &o.LeadID, &o.SalesAgentID, &o.CustomerRelationsAgentID,
		&status, &o.CustomerName, &o.CustomerPhone, &o.CustomerEmail, &o.ShippingAddress, &o.PartDescription,
		&o.SalePriceCents, &rawVendors, &rawNotes, &rawProcurement, &o.ReplacedFromID, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return domain.Order{}, err
	}
	o.Status = domain.Status(status)

	vendors, err := decodeVendors(rawVendors)
	if err != nil {
		return domain.Order{}, err
	}
	o.Vendors = vendors
	if o.Notes, err = notes.Decode(rawNotes); err != nil {
		return domain.Order{}, fmt.Errorf("decode order notes: %w", err)
	}
	if o.ProcurementNotes, err = notes.Decode(rawProcurement); err != nil {
		return domain.Order{}, fmt.Errorf("decode procurement notes: %w", err)
	}
	return o, nil
}

func orderArgs(o domain.Order) []any {
	return []any{
		o.ID, o.OrderNumber, o.Identifier, o.LeadID, o.SalesAgentID, o.CustomerRelationsAgentID,
		string(o.Status), o.CustomerName, o.CustomerPhone, o.CustomerEmail, o.ShippingAddress, o.PartDescription,
		o.SalePriceCents, nonNilVendors(o.Vendors), nonNilNotes(o.Notes), nonNilNotes(o.ProcurementNotes), o.ReplacedFromID,
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func notFound(o domain.Order, err error) (domain.Order, error) {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, ErrNotFound
	}
	return o, err
}

// NextOrderNumber atomically increments and returns the order sequence.
// Numbers are never reused, even when the order insert later fails.
func (r *Repository) NextOrderNumber(ctx context.Context) (int64, error) {
	var value int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO counters (name, value) VALUES ($1, 1)
		ON CONFLICT (name) DO UPDATE SET value = counters.value + 1
		RETURNING value
	`, orderNumberCounter).Scan(&value)
	return value, err
}

// Create inserts a new order.
func (r *Repository) Create(ctx context.Context, o domain.Order) (domain.Order, error) {
	created, err := scanOrder(r.pool.QueryRow(ctx, insertOrderSQL, orderArgs(o)...))
	if isUniqueViolation(err) {
		return domain.Order{}, ErrDuplicateIdentifier
	}
	return created, err
}

// InsertReplacement writes the clone order and its ReplacementOrder row in
// one transaction. A taken identifier yields ErrDuplicateIdentifier.
func (r *Repository) InsertReplacement(ctx context.Context, clone domain.Order, originalID uuid.UUID) (domain.Order, uuid.UUID, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Order{}, uuid.Nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	created, err := scanOrder(tx.QueryRow(ctx, insertOrderSQL, orderArgs(clone)...))
	if isUniqueViolation(err) {
		return domain.Order{}, uuid.Nil, ErrDuplicateIdentifier
	}
	if err != nil {
		return domain.Order{}, uuid.Nil, err
	}

	var replacementID uuid.UUID
	err = tx.QueryRow(ctx, `
		INSERT INTO replacement_orders (identifier, original_order_id, clone_order_id)
		VALUES ($1, $2, $3)
		RETURNING id
	`, created.Identifier, originalID, created.ID).Scan(&replacementID)
	if isUniqueViolation(err) {
		return domain.Order{}, uuid.Nil, ErrDuplicateIdentifier
	}
	if err != nil {
		return domain.Order{}, uuid.Nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Order{}, uuid.Nil, err
	}
	return created, replacementID, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domain.Order, error) {
	return notFound(scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)))
}

func (r *Repository) List(ctx context.Context, p ListParams) ([]domain.Order, int, error) {
	const where = `
		WHERE ($1::uuid IS NULL OR sales_agent_id = $1 OR customer_relations_agent_id = $1)
		  AND ($2::text IS NULL OR status = $2)`

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders`+where, p.ParticipantID, p.Status).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `SELECT `+orderColumns+` FROM orders`+where+`
		ORDER BY created_at DESC, id
		LIMIT $3 OFFSET $4`, p.ParticipantID, p.Status, p.Limit, p.Offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := collectOrders(rows)
	return items, total, err
}

func collectOrders(rows pgx.Rows) ([]domain.Order, error) {
	defer rows.Close()
	items := make([]domain.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}

// UpdateStatus moves the order from expected to next. If the order is no
// longer in expected, ErrStaleState is returned and nothing is written.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, expected, next domain.Status) (domain.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `
		UPDATE orders SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2
		RETURNING `+orderColumns, id, string(expected), string(next)))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, r.missingOrStale(ctx, id)
	}
	return o, err
}

// AppendNote adds to the general notes list.
func (r *Repository) AppendNote(ctx context.Context, id uuid.UUID, note notes.Note) (domain.Order, error) {
	return r.appendTo(ctx, "notes", id, note)
}

// AppendProcurementNote adds to the procurement notes list.
func (r *Repository) AppendProcurementNote(ctx context.Context, id uuid.UUID, note notes.Note) (domain.Order, error) {
	return r.appendTo(ctx, "procurement_notes", id, note)
}

func (r *Repository) appendTo(ctx context.Context, column string, id uuid.UUID, note notes.Note) (domain.Order, error) {
	raw, err := notes.EncodeOne(note)
	if err != nil {
		return domain.Order{}, err
	}
	// column is one of two package constants, never user input.
	return notFound(scanOrder(r.pool.QueryRow(ctx, `
		UPDATE orders SET `+column+` = `+column+` || $2::jsonb, updated_at = now()
		WHERE id = $1
		RETURNING `+orderColumns, id, raw)))
}

// ReplaceVendors overwrites the vendor list if the order has not been
// written since expectedUpdatedAt.
func (r *Repository) ReplaceVendors(ctx context.Context, id uuid.UUID, expectedUpdatedAt time.Time, vendors []domain.Vendor) (domain.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `
		UPDATE orders SET vendors = $3, updated_at = now()
		WHERE id = $1 AND updated_at = $2
		RETURNING `+orderColumns, id, expectedUpdatedAt, nonNilVendors(vendors)))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, r.missingOrStale(ctx, id)
	}
	return o, err
}

// ListReplacedWithoutClone returns orders in Replacement that never got a
// replacement row, i.e. whose spawn failed after the status write.
func (r *Repository) ListReplacedWithoutClone(ctx context.Context) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+orderColumns+` FROM orders o
		WHERE o.status = $1
		  AND NOT EXISTS (SELECT 1 FROM replacement_orders ro WHERE ro.original_order_id = o.id)
		ORDER BY o.updated_at
	`, string(domain.StatusReplacement))
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

func (r *Repository) missingOrStale(ctx context.Context, id uuid.UUID) error {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrStaleState
}
