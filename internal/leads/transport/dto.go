package transport

import (
	"time"

	"salesops_backend/internal/shared/notes"

	"github.com/google/uuid"
)

// LeadStatus is the lead outcome vocabulary.
type LeadStatus string

const (
	LeadStatusQuoted           LeadStatus = "Quoted"
	LeadStatusNoResponse       LeadStatus = "NoResponse"
	LeadStatusWrongNumber      LeadStatus = "WrongNumber"
	LeadStatusNotInterested    LeadStatus = "NotInterested"
	LeadStatusPriceTooHigh     LeadStatus = "PriceTooHigh"
	LeadStatusPartNotAvailable LeadStatus = "PartNotAvailable"
	LeadStatusOrdered          LeadStatus = "Ordered"
)

// LeadStatuses lists the vocabulary; the validator registers it as "leadstatus".
var LeadStatuses = []string{
	string(LeadStatusQuoted),
	string(LeadStatusNoResponse),
	string(LeadStatusWrongNumber),
	string(LeadStatusNotInterested),
	string(LeadStatusPriceTooHigh),
	string(LeadStatusPartNotAvailable),
	string(LeadStatusOrdered),
}

// IsKnownLeadStatus reports whether s is in the vocabulary.
func IsKnownLeadStatus(s string) bool {
	for _, known := range LeadStatuses {
		if known == s {
			return true
		}
	}
	return false
}

// Request DTOs
type CreateLeadRequest struct {
	CustomerName    string `json:"customerName" validate:"required,min=1,max=200"`
	CustomerPhone   string `json:"customerPhone" validate:"required,min=5,max=30"`
	CustomerEmail   string `json:"customerEmail,omitempty" validate:"omitempty,email"`
	PartDescription string `json:"partDescription" validate:"required,min=1,max=2000"`
	Note            string `json:"note,omitempty" validate:"omitempty,max=4000"`
}

type UpdateLeadStatusRequest struct {
	Status LeadStatus `json:"status" validate:"required,leadstatus"`
}

// ReassignLeadRequest moves a lead. Without AgentID the next salesperson in
// rotation (other than the current owner) is chosen.
type ReassignLeadRequest struct {
	AgentID *uuid.UUID `json:"agentId,omitempty"`
}

type AddNoteRequest struct {
	Text string `json:"text" validate:"required,min=1,max=4000"`
}

type ListLeadsRequest struct {
	Status   string `form:"status" validate:"omitempty,leadstatus"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

// Response DTOs
type LeadResponse struct {
	ID              uuid.UUID    `json:"id"`
	CustomerName    string       `json:"customerName"`
	CustomerPhone   string       `json:"customerPhone"`
	CustomerEmail   *string      `json:"customerEmail,omitempty"`
	PartDescription string       `json:"partDescription"`
	Status          LeadStatus   `json:"status"`
	AssignedAgentID uuid.UUID    `json:"assignedAgentId"`
	Notes           []notes.Note `json:"notes"`
	CreatedAt       time.Time    `json:"createdAt"`
	UpdatedAt       time.Time    `json:"updatedAt"`
}

type LeadListResponse struct {
	Items    []LeadResponse `json:"items"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"pageSize"`
}
