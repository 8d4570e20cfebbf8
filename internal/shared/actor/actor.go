// Package actor carries the authenticated agent into service calls without
// tying services to the HTTP framework.
package actor

import "github.com/google/uuid"

const roleAdmin = "admin"

// Actor is the agent performing an operation.
type Actor struct {
	ID    uuid.UUID
	Roles []string
}

// Identity is the subset of httpkit.Identity an Actor is built from.
type Identity interface {
	UserID() uuid.UUID
	Roles() []string
}

// From converts an authenticated identity.
func From(id Identity) Actor {
	return Actor{ID: id.UserID(), Roles: id.Roles()}
}

// Admin returns an admin actor; used by background jobs.
func Admin(id uuid.UUID) Actor {
	return Actor{ID: id, Roles: []string{roleAdmin}}
}

// HasRole reports whether the actor holds role.
func (a Actor) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.HasRole(roleAdmin)
}

// CanAct reports whether the actor owns the record or is an admin.
func (a Actor) CanAct(ownerIDs ...uuid.UUID) bool {
	if a.IsAdmin() {
		return true
	}
	for _, id := range ownerIDs {
		if id != uuid.Nil && id == a.ID {
			return true
		}
	}
	return false
}
