package service

import (
	"salesops_backend/internal/replacements/domain"
	"salesops_backend/internal/replacements/transport"
	"salesops_backend/internal/shared/notes"
)

// ToReplacementResponse maps a replacement to its API shape.
func ToReplacementResponse(r domain.Replacement) transport.ReplacementResponse {
	var shipping *domain.Shipping
	if r.Shipping != nil {
		copied := *r.Shipping
		shipping = &copied
	}
	list := notes.Clone(r.Notes)
	if list == nil {
		list = []notes.Note{}
	}
	return transport.ReplacementResponse{
		ID:              r.ID,
		Identifier:      r.Identifier,
		OriginalOrderID: r.OriginalOrderID,
		CloneOrderID:    r.CloneOrderID,
		Status:          r.Status,
		Shipping:        shipping,
		Notes:           list,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}
