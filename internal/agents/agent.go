// Package agents owns the agent (user) records that the engine allocates
// work to: role, pause flag and availability status.
package agents

import (
	"time"

	"github.com/google/uuid"
)

// Role is an agent's job function.
type Role string

const (
	RoleAdmin             Role = "admin"
	RoleSales             Role = "sales"
	RoleCustomerRelations Role = "customer_relations"
	RoleProcurement       Role = "procurement"
)

// Status is an agent's self-reported availability.
type Status string

const (
	StatusAvailable Status = "Available"
	StatusOnBreak   Status = "OnBreak"
	StatusLunch     Status = "Lunch"
	StatusMeeting   Status = "Meeting"
	StatusLoggedOut Status = "LoggedOut"
)

// Statuses lists every availability status in display order.
var Statuses = []Status{StatusAvailable, StatusOnBreak, StatusLunch, StatusMeeting, StatusLoggedOut}

var knownRoles = map[Role]struct{}{
	RoleAdmin:             {},
	RoleSales:             {},
	RoleCustomerRelations: {},
	RoleProcurement:       {},
}

// IsKnownRole reports whether r is part of the role vocabulary.
func IsKnownRole(r string) bool {
	_, ok := knownRoles[Role(r)]
	return ok
}

// IsKnownStatus reports whether s is part of the availability vocabulary.
func IsKnownStatus(s string) bool {
	for _, st := range Statuses {
		if string(st) == s {
			return true
		}
	}
	return false
}

// Agent is a user that can own leads and orders.
type Agent struct {
	ID                 uuid.UUID `json:"id"`
	Name               string    `json:"name"`
	Email              string    `json:"email"`
	Role               Role      `json:"role"`
	IsPaused           bool      `json:"isPaused"`
	AvailabilityStatus Status    `json:"availabilityStatus"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// EligibilityFilter selects the members of an allocation pool.
type EligibilityFilter struct {
	Role             Role
	RequireAvailable bool
	ExcludeID        *uuid.UUID
}

// Matches applies the filter to a single agent. Repositories implement the
// same predicate in SQL; this form keeps in-memory callers consistent.
func (f EligibilityFilter) Matches(a Agent) bool {
	if a.Role != f.Role || a.IsPaused {
		return false
	}
	if f.RequireAvailable && a.AvailabilityStatus != StatusAvailable {
		return false
	}
	if f.ExcludeID != nil && a.ID == *f.ExcludeID {
		return false
	}
	return true
}
