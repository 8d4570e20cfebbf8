// Package domain holds the order lifecycle vocabulary and the rules that
// decide which status changes are legal.
package domain

// Status is an order lifecycle state.
type Status string

const (
	StatusLocatePending          Status = "LocatePending"
	StatusPOPending              Status = "POPending"
	StatusPOSent                 Status = "POSent"
	StatusPOConfirmed            Status = "POConfirmed"
	StatusVendorPaymentPending   Status = "VendorPaymentPending"
	StatusVendorPaymentConfirmed Status = "VendorPaymentConfirmed"
	StatusShippingPending        Status = "ShippingPending"
	StatusShipOut                Status = "ShipOut"
	StatusInTransit              Status = "InTransit"
	StatusDelivered              Status = "Delivered"

	StatusLitigation           Status = "Litigation"
	StatusReplacement          Status = "Replacement"
	StatusReplacementCancelled Status = "ReplacementCancelled"
)

// Pipeline is the main lifecycle in its usual order.
var Pipeline = []Status{
	StatusLocatePending,
	StatusPOPending,
	StatusPOSent,
	StatusPOConfirmed,
	StatusVendorPaymentPending,
	StatusVendorPaymentConfirmed,
	StatusShippingPending,
	StatusShipOut,
	StatusInTransit,
	StatusDelivered,
}

// Branches are exception states reachable from any point of the pipeline.
var Branches = []Status{StatusLitigation, StatusReplacement, StatusReplacementCancelled}

// Vocabulary returns every status as strings, pipeline first.
func Vocabulary() []string {
	out := make([]string, 0, len(Pipeline)+len(Branches))
	for _, s := range Pipeline {
		out = append(out, string(s))
	}
	for _, s := range Branches {
		out = append(out, string(s))
	}
	return out
}

// IsKnown reports whether s is in the vocabulary.
func (s Status) IsKnown() bool {
	return s.IsPipeline() || s.IsBranch()
}

// IsPipeline reports whether s is a main lifecycle state.
func (s Status) IsPipeline() bool {
	for _, p := range Pipeline {
		if p == s {
			return true
		}
	}
	return false
}

// IsBranch reports whether s is an exception state.
func (s Status) IsBranch() bool {
	for _, b := range Branches {
		if b == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether an order can never leave s. An order that
// entered Replacement stays there; its clone carries the work forward.
func (s Status) IsTerminal() bool {
	return s == StatusReplacement
}
