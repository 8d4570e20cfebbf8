package transport

import (
	"time"

	"salesops_backend/internal/replacements/domain"
	"salesops_backend/internal/shared/notes"

	"github.com/google/uuid"
)

// Request DTOs
type SubmitShippingRequest struct {
	Method      string `json:"method"`
	Carrier     string `json:"carrier"`
	TrackingID  string `json:"trackingId"`
	AmountCents int64  `json:"amountCents"`
}

type ChangeStatusRequest struct {
	Status string `json:"status" validate:"required,replacementstatus"`
}

type ListReplacementsRequest struct {
	OrderID  string `form:"orderId" validate:"omitempty,uuid"`
	Status   string `form:"status" validate:"omitempty,replacementstatus"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

// Response DTOs
type ReplacementResponse struct {
	ID              uuid.UUID        `json:"id"`
	Identifier      string           `json:"replacementIdentifier"`
	OriginalOrderID uuid.UUID        `json:"originalOrderId"`
	CloneOrderID    uuid.UUID        `json:"cloneOrderId"`
	Status          domain.Status    `json:"status"`
	Shipping        *domain.Shipping `json:"shipping,omitempty"`
	Notes           []notes.Note     `json:"notes"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

type ReplacementListResponse struct {
	Items    []ReplacementResponse `json:"items"`
	Total    int                   `json:"total"`
	Page     int                   `json:"page"`
	PageSize int                   `json:"pageSize"`
}
