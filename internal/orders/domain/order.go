package domain

import (
	"strconv"
	"time"

	"salesops_backend/internal/shared/notes"

	"github.com/google/uuid"
)

// POStatus tracks a purchase order placed with one vendor.
type POStatus string

const (
	POStatusPending   POStatus = "Pending"
	POStatusSent      POStatus = "Sent"
	POStatusConfirmed POStatus = "Confirmed"
	POStatusCancelled POStatus = "Cancelled"
)

// POStatuses lists the vocabulary; the validator registers it as "postatus".
var POStatuses = []string{string(POStatusPending), string(POStatusSent), string(POStatusConfirmed), string(POStatusCancelled)}

// Vendor is a supplier quoted or ordered from for this order.
type Vendor struct {
	ID                 uuid.UUID `json:"id"`
	Name               string    `json:"name"`
	Phone              string    `json:"phone,omitempty"`
	Email              string    `json:"email,omitempty"`
	ConfirmationNumber string    `json:"confirmationNumber,omitempty"`
	CostCents          int64     `json:"costCents"`
	POStatus           POStatus  `json:"poStatus"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// Order is a confirmed sale moving through procurement and shipping.
type Order struct {
	ID                       uuid.UUID
	OrderNumber              int64
	Identifier               string
	LeadID                   uuid.UUID
	SalesAgentID             uuid.UUID
	CustomerRelationsAgentID uuid.UUID
	Status                   Status
	CustomerName             string
	CustomerPhone            string
	CustomerEmail            *string
	ShippingAddress          string
	PartDescription          string
	SalePriceCents           int64
	Vendors                  []Vendor
	Notes                    []notes.Note
	ProcurementNotes         []notes.Note
	ReplacedFromID           *uuid.UUID
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// IsParticipant reports whether agentID is attached to the order.
func (o Order) IsParticipant(agentID uuid.UUID) bool {
	return agentID != uuid.Nil && (agentID == o.SalesAgentID || agentID == o.CustomerRelationsAgentID)
}

// CloneVendors deep-copies a vendor list.
func CloneVendors(in []Vendor) []Vendor {
	if in == nil {
		return nil
	}
	out := make([]Vendor, len(in))
	copy(out, in)
	return out
}

// SpawnReplacement builds the clone that carries a replaced order forward.
// Embedded lists are copied by value so the two orders evolve independently.
func (o Order) SpawnReplacement(identifier string, at time.Time) Order {
	clone := o
	clone.ID = uuid.New()
	clone.Identifier = identifier
	clone.Status = StatusLocatePending
	clone.Vendors = CloneVendors(o.Vendors)
	clone.Notes = notes.Clone(o.Notes)
	clone.ProcurementNotes = notes.Clone(o.ProcurementNotes)
	if o.CustomerEmail != nil {
		email := *o.CustomerEmail
		clone.CustomerEmail = &email
	}
	original := o.ID
	clone.ReplacedFromID = &original
	clone.CreatedAt = at
	clone.UpdatedAt = at
	return clone
}

// Identifier renders a sequence number as an order identifier.
func Identifier(orderNumber int64) string {
	return strconv.FormatInt(orderNumber, 10)
}

// ReplacementIdentifier returns the attempt-th candidate identifier for a
// replacement of orderNumber: "500R", "500R1", "500R2", ...
func ReplacementIdentifier(orderNumber int64, attempt int) string {
	base := Identifier(orderNumber) + "R"
	if attempt == 0 {
		return base
	}
	return base + strconv.Itoa(attempt)
}
