// Package domain holds the replacement sub-workflow: a forward-only
// four-state machine gated by shipping details.
package domain

import (
	"fmt"
	"strings"
	"time"

	"salesops_backend/internal/shared/notes"
	"salesops_backend/platform/apperr"

	"github.com/google/uuid"
)

// Status is a replacement shipment state.
type Status string

const (
	StatusRequested       Status = "ReplacementRequested"
	StatusWaitingShipment Status = "WaitingShipment"
	StatusInTransit       Status = "InTransit"
	StatusDelivered       Status = "Delivered"
)

// Statuses lists the workflow in ordinal order.
var Statuses = []Status{StatusRequested, StatusWaitingShipment, StatusInTransit, StatusDelivered}

// Vocabulary returns the statuses as strings; the validator registers it as "replacementstatus".
func Vocabulary() []string {
	out := make([]string, len(Statuses))
	for i, s := range Statuses {
		out[i] = string(s)
	}
	return out
}

// Ordinal returns the position of s in the workflow, or -1 if unknown.
func (s Status) Ordinal() int {
	for i, st := range Statuses {
		if st == s {
			return i
		}
	}
	return -1
}

// ShippingMethod says who ships the replacement part.
type ShippingMethod string

const (
	ShippingByCustomer ShippingMethod = "customer"
	ShippingByVendor   ShippingMethod = "vendor"
	ShippingOwn        ShippingMethod = "own"
)

// Shipping describes how the replacement travels back.
type Shipping struct {
	Method      ShippingMethod `json:"method"`
	Carrier     string         `json:"carrier"`
	TrackingID  string         `json:"trackingId"`
	AmountCents int64          `json:"amountCents"`
}

// Validate checks that the details are complete enough to enter WaitingShipment.
func (s Shipping) Validate() error {
	switch s.Method {
	case ShippingByCustomer, ShippingByVendor, ShippingOwn:
	case "":
		return apperr.ShipmentDetailsRequired("shipping method is required")
	default:
		return apperr.ShipmentDetailsRequired(fmt.Sprintf("unknown shipping method %q", s.Method))
	}
	if strings.TrimSpace(s.Carrier) == "" {
		return apperr.ShipmentDetailsRequired("carrier is required")
	}
	if strings.TrimSpace(s.TrackingID) == "" {
		return apperr.ShipmentDetailsRequired("tracking id is required")
	}
	if s.Method == ShippingOwn && s.AmountCents <= 0 {
		return apperr.ShipmentDetailsRequired("a positive shipping amount is required when we ship ourselves")
	}
	return nil
}

// Replacement tracks the part shipped for an order that entered Replacement.
type Replacement struct {
	ID              uuid.UUID
	Identifier      string
	OriginalOrderID uuid.UUID
	CloneOrderID    uuid.UUID
	Status          Status
	Shipping        *Shipping
	Notes           []notes.Note
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CheckTransition decides whether a direct status request is legal.
// WaitingShipment is never requested directly; it follows SubmitShipping.
func CheckTransition(current, requested Status) error {
	if requested.Ordinal() < 0 {
		return apperr.Validation(fmt.Sprintf("unknown replacement status %q", requested))
	}
	if requested.Ordinal() <= current.Ordinal() {
		return apperr.CannotRevertStatus(string(current), string(requested))
	}
	switch requested {
	case StatusWaitingShipment:
		return apperr.ShipmentDetailsRequired("submit shipping details to move a replacement to WaitingShipment")
	case StatusInTransit:
		if current != StatusWaitingShipment {
			return apperr.InvalidPredecessor(string(current), string(requested))
		}
	case StatusDelivered:
		if current != StatusInTransit {
			return apperr.InvalidPredecessor(string(current), string(requested))
		}
	}
	return nil
}

// CheckShippingSubmission reports whether shipping can be submitted from
// current. Only a fresh request accepts shipping details.
func CheckShippingSubmission(current Status) error {
	if current != StatusRequested {
		return apperr.CannotRevertStatus(string(current), string(StatusWaitingShipment))
	}
	return nil
}

// TransitionNote is the audit note written when a shipment moves.
func TransitionNote(status Status, actorName string, at time.Time) notes.Note {
	if actorName == "" {
		actorName = "an unknown agent"
	}
	return notes.NewSystem(fmt.Sprintf("Marked %s by %s at %s", status, actorName, at.UTC().Format(time.RFC3339)), at)
}
