package transport

import (
	"time"

	"salesops_backend/internal/orders/domain"
	"salesops_backend/internal/shared/notes"

	"github.com/google/uuid"
)

// Request DTOs
type CreateOrderRequest struct {
	LeadID          uuid.UUID `json:"leadId" validate:"required"`
	ShippingAddress string    `json:"shippingAddress" validate:"required,min=1,max=500"`
	PartDescription string    `json:"partDescription,omitempty" validate:"omitempty,max=2000"`
	SalePriceCents  int64     `json:"salePriceCents" validate:"required,gt=0"`
}

type ChangeStatusRequest struct {
	Status string `json:"status" validate:"required,orderstatus"`
}

type AddNoteRequest struct {
	Text string `json:"text" validate:"required,min=1,max=4000"`
}

type VendorRequest struct {
	Name               string `json:"name" validate:"required,min=1,max=200"`
	Phone              string `json:"phone,omitempty" validate:"omitempty,max=30"`
	Email              string `json:"email,omitempty" validate:"omitempty,email"`
	ConfirmationNumber string `json:"confirmationNumber,omitempty" validate:"omitempty,max=100"`
	CostCents          int64  `json:"costCents" validate:"gte=0"`
	POStatus           string `json:"poStatus,omitempty" validate:"omitempty,postatus"`
}

type ListOrdersRequest struct {
	Status   string `form:"status" validate:"omitempty,orderstatus"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

// Response DTOs
type OrderResponse struct {
	ID                       uuid.UUID       `json:"id"`
	OrderNumber              int64           `json:"orderNumber"`
	Identifier               string          `json:"identifier"`
	LeadID                   uuid.UUID       `json:"leadId"`
	SalesAgentID             uuid.UUID       `json:"salesAgentId"`
	CustomerRelationsAgentID uuid.UUID       `json:"customerRelationsAgentId"`
	Status                   domain.Status   `json:"status"`
	CustomerName             string          `json:"customerName"`
	CustomerPhone            string          `json:"customerPhone"`
	CustomerEmail            *string         `json:"customerEmail,omitempty"`
	ShippingAddress          string          `json:"shippingAddress"`
	PartDescription          string          `json:"partDescription"`
	SalePriceCents           int64           `json:"salePriceCents"`
	Vendors                  []domain.Vendor `json:"vendors"`
	Notes                    []notes.Note    `json:"notes"`
	ProcurementNotes         []notes.Note    `json:"procurementNotes"`
	ReplacedFromID           *uuid.UUID      `json:"replacedFromId,omitempty"`
	CreatedAt                time.Time       `json:"createdAt"`
	UpdatedAt                time.Time       `json:"updatedAt"`
}

type OrderListResponse struct {
	Items    []OrderResponse `json:"items"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"pageSize"`
}

// ReplacementSummary describes the clone spawned by a Replacement transition.
type ReplacementSummary struct {
	ReplacementID uuid.UUID     `json:"replacementId"`
	Clone         OrderResponse `json:"clone"`
}

// ChangeStatusResponse is the outcome of a status change. When the order
// entered Replacement but the clone could not be written, SpawnFailed is set
// and operators are notified; the status change itself stands.
type ChangeStatusResponse struct {
	Order        OrderResponse       `json:"order"`
	Replacement  *ReplacementSummary `json:"replacement,omitempty"`
	SpawnFailed  bool                `json:"spawnFailed,omitempty"`
	LitigationID *uuid.UUID          `json:"litigationId,omitempty"`
}

// Inconsistency is a reconciliation finding.
type Inconsistency struct {
	OrderID    uuid.UUID `json:"orderId"`
	Identifier string    `json:"identifier"`
	Code       string    `json:"code"`
	Message    string    `json:"message"`
}
