package management

import (
	"salesops_backend/internal/leads/repository"
	"salesops_backend/internal/leads/transport"
)

// ToLeadResponse converts a repository Lead to a transport LeadResponse.
func ToLeadResponse(lead repository.Lead) transport.LeadResponse {
	return transport.LeadResponse{
		ID:              lead.ID,
		CustomerName:    lead.CustomerName,
		CustomerPhone:   lead.CustomerPhone,
		CustomerEmail:   lead.CustomerEmail,
		PartDescription: lead.PartDescription,
		Status:          transport.LeadStatus(lead.Status),
		AssignedAgentID: lead.AssignedAgentID,
		Notes:           lead.Notes,
		CreatedAt:       lead.CreatedAt,
		UpdatedAt:       lead.UpdatedAt,
	}
}
