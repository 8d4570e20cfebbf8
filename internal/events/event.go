// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"salesops_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadCreated is published when intake saves a lead and assigns its salesperson.
type LeadCreated struct {
	BaseEvent
	LeadID          uuid.UUID `json:"leadId"`
	AssignedAgentID uuid.UUID `json:"assignedAgentId"`
	CustomerName    string    `json:"customerName"`
	PartDescription string    `json:"partDescription"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// LeadReassigned is published when an admin moves a lead to another salesperson.
type LeadReassigned struct {
	BaseEvent
	LeadID          uuid.UUID `json:"leadId"`
	PreviousAgentID uuid.UUID `json:"previousAgentId"`
	NewAgentID      uuid.UUID `json:"newAgentId"`
	AssignedByID    uuid.UUID `json:"assignedById"`
	CustomerName    string    `json:"customerName"`
}

func (e LeadReassigned) EventName() string { return "leads.lead.reassigned" }

// =============================================================================
// Orders Domain Events
// =============================================================================

// OrderParticipants names the agents attached to an order.
type OrderParticipants struct {
	SalesAgentID             uuid.UUID `json:"salesAgentId"`
	CustomerRelationsAgentID uuid.UUID `json:"customerRelationsAgentId"`
}

// OrderCreated is published after a new order is saved.
type OrderCreated struct {
	BaseEvent
	OrderParticipants
	OrderID      uuid.UUID `json:"orderId"`
	Identifier   string    `json:"identifier"`
	CustomerName string    `json:"customerName"`
	SalesName    string    `json:"salesName"`
	CRName       string    `json:"customerRelationsName"`
}

func (e OrderCreated) EventName() string { return "orders.order.created" }

// OrderStatusChanged is published after an order status write lands.
type OrderStatusChanged struct {
	BaseEvent
	OrderParticipants
	OrderID    uuid.UUID `json:"orderId"`
	Identifier string    `json:"identifier"`
	OldStatus  string    `json:"oldStatus"`
	NewStatus  string    `json:"newStatus"`
	ActorID    uuid.UUID `json:"actorId"`
}

func (e OrderStatusChanged) EventName() string { return "orders.order.status_changed" }

// ReplacementSpawned is published when a Replacement transition produced its clone.
type ReplacementSpawned struct {
	BaseEvent
	OrderParticipants
	OriginalOrderID uuid.UUID `json:"originalOrderId"`
	CloneOrderID    uuid.UUID `json:"cloneOrderId"`
	ReplacementID   uuid.UUID `json:"replacementId"`
	Identifier      string    `json:"identifier"`
}

func (e ReplacementSpawned) EventName() string { return "orders.replacement.spawned" }

// ReplacementSpawnFailed is published when an order was marked Replacement
// but its clone could not be written. It is never retried automatically.
type ReplacementSpawnFailed struct {
	BaseEvent
	OrderID    uuid.UUID `json:"orderId"`
	Identifier string    `json:"identifier"`
	Reason     string    `json:"reason"`
}

func (e ReplacementSpawnFailed) EventName() string { return "orders.replacement.spawn_failed" }

// ReplacementInconsistencyDetected is published by the reconciliation sweep
// for each Replacement-status order that has no spawned clone.
type ReplacementInconsistencyDetected struct {
	BaseEvent
	OrderID    uuid.UUID `json:"orderId"`
	Identifier string    `json:"identifier"`
}

func (e ReplacementInconsistencyDetected) EventName() string {
	return "orders.replacement.inconsistency_detected"
}

// =============================================================================
// Replacement Sub-Workflow Events
// =============================================================================

// ReplacementStatusChanged is published after a replacement moves forward.
type ReplacementStatusChanged struct {
	BaseEvent
	OrderParticipants
	ReplacementID   uuid.UUID `json:"replacementId"`
	OriginalOrderID uuid.UUID `json:"originalOrderId"`
	Identifier      string    `json:"identifier"`
	OldStatus       string    `json:"oldStatus"`
	NewStatus       string    `json:"newStatus"`
	ActorID         uuid.UUID `json:"actorId"`
}

func (e ReplacementStatusChanged) EventName() string { return "replacements.status_changed" }

// =============================================================================
// Agents Domain Events
// =============================================================================

// AgentStatusChanged is published when an agent changes availability.
type AgentStatusChanged struct {
	BaseEvent
	AgentID   uuid.UUID `json:"agentId"`
	OldStatus string    `json:"oldStatus"`
	NewStatus string    `json:"newStatus"`
}

func (e AgentStatusChanged) EventName() string { return "agents.status_changed" }
