// Package litigation tracks disputes raised on orders that entered the
// Litigation branch. Each order has at most one record; every edit archives
// the previous details in an append-only history.
package litigation

import (
	"time"

	"salesops_backend/internal/shared/notes"

	"github.com/google/uuid"
)

// Details are the free-form fields agents fill in while a dispute runs.
type Details struct {
	CustomerComplaint string `json:"customerComplaint"`
	Diagnosis         string `json:"diagnosis"`
	VendorResponse    string `json:"vendorResponse"`
	Resolution        string `json:"resolution"`
	RefundCents       int64  `json:"refundCents"`
}

// Snapshot is a prior version of Details.
type Snapshot struct {
	Details
	ArchivedAt time.Time  `json:"archivedAt"`
	ArchivedBy *uuid.UUID `json:"archivedBy,omitempty"`
}

// Litigation is the dispute record of one order.
type Litigation struct {
	ID      uuid.UUID
	OrderID uuid.UUID
	Details
	History   []Snapshot
	Notes     []notes.Note
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Archive returns the snapshot stored when l is about to be overwritten.
func (l Litigation) Archive(by uuid.UUID, at time.Time) Snapshot {
	id := by
	return Snapshot{Details: l.Details, ArchivedAt: at.UTC(), ArchivedBy: &id}
}

// UpdateRequest replaces the details. Nil fields keep their value.
type UpdateRequest struct {
	CustomerComplaint *string `json:"customerComplaint" validate:"omitempty,max=4000"`
	Diagnosis         *string `json:"diagnosis" validate:"omitempty,max=4000"`
	VendorResponse    *string `json:"vendorResponse" validate:"omitempty,max=4000"`
	Resolution        *string `json:"resolution" validate:"omitempty,max=4000"`
	RefundCents       *int64  `json:"refundCents" validate:"omitempty,gte=0"`
}

// Apply returns d with the request's non-nil fields written over it.
func (r UpdateRequest) Apply(d Details) Details {
	if r.CustomerComplaint != nil {
		d.CustomerComplaint = *r.CustomerComplaint
	}
	if r.Diagnosis != nil {
		d.Diagnosis = *r.Diagnosis
	}
	if r.VendorResponse != nil {
		d.VendorResponse = *r.VendorResponse
	}
	if r.Resolution != nil {
		d.Resolution = *r.Resolution
	}
	if r.RefundCents != nil {
		d.RefundCents = *r.RefundCents
	}
	return d
}

type AddNoteRequest struct {
	Text string `json:"text" validate:"required,min=1,max=4000"`
}

// Response is the API shape of a litigation.
type Response struct {
	ID      uuid.UUID `json:"id"`
	OrderID uuid.UUID `json:"orderId"`
	Details
	History   []Snapshot   `json:"history"`
	Notes     []notes.Note `json:"litigationNotes"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

func toResponse(l Litigation) Response {
	history := make([]Snapshot, len(l.History))
	copy(history, l.History)
	list := notes.Clone(l.Notes)
	if list == nil {
		list = []notes.Note{}
	}
	return Response{
		ID:        l.ID,
		OrderID:   l.OrderID,
		Details:   l.Details,
		History:   history,
		Notes:     list,
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
}
