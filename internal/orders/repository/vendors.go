package repository

import (
	"encoding/json"
	"fmt"

	"salesops_backend/internal/orders/domain"
	"salesops_backend/internal/shared/notes"
)

func decodeVendors(raw []byte) ([]domain.Vendor, error) {
	items := make([]domain.Vendor, 0)
	if len(raw) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode order vendors: %w", err)
	}
	return items, nil
}

func nonNilVendors(v []domain.Vendor) []domain.Vendor {
	if v == nil {
		return []domain.Vendor{}
	}
	return v
}

func nonNilNotes(n []notes.Note) []notes.Note {
	if n == nil {
		return []notes.Note{}
	}
	return n
}
