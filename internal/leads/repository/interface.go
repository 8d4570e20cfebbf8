package repository

import (
	"context"

	"salesops_backend/internal/shared/notes"

	"github.com/google/uuid"
)

// LeadReader provides read-only access to lead data.
type LeadReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (Lead, error)
	List(ctx context.Context, params ListParams) ([]Lead, int, error)
}

// LeadWriter provides write operations for lead management.
type LeadWriter interface {
	Create(ctx context.Context, params CreateLeadParams) (Lead, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (Lead, error)
	Reassign(ctx context.Context, id, expectedAgentID, newAgentID uuid.UUID) (Lead, error)
	AppendNote(ctx context.Context, id uuid.UUID, note notes.Note) (Lead, error)
}

var (
	_ LeadReader = (*Repository)(nil)
	_ LeadWriter = (*Repository)(nil)
)
