package service

import (
	"salesops_backend/internal/orders/domain"
	"salesops_backend/internal/orders/transport"
)

// ToOrderResponse converts a domain Order to its transport form.
func ToOrderResponse(o domain.Order) transport.OrderResponse {
	return transport.OrderResponse{
		ID:                       o.ID,
		OrderNumber:              o.OrderNumber,
		Identifier:               o.Identifier,
		LeadID:                   o.LeadID,
		SalesAgentID:             o.SalesAgentID,
		CustomerRelationsAgentID: o.CustomerRelationsAgentID,
		Status:                   o.Status,
		CustomerName:             o.CustomerName,
		CustomerPhone:            o.CustomerPhone,
		CustomerEmail:            o.CustomerEmail,
		ShippingAddress:          o.ShippingAddress,
		PartDescription:          o.PartDescription,
		SalePriceCents:           o.SalePriceCents,
		Vendors:                  o.Vendors,
		Notes:                    o.Notes,
		ProcurementNotes:         o.ProcurementNotes,
		ReplacedFromID:           o.ReplacedFromID,
		CreatedAt:                o.CreatedAt,
		UpdatedAt:                o.UpdatedAt,
	}
}
