package domain

import (
	"testing"

	"salesops_backend/platform/apperr"
)

func TestUnrestrictedPolicy(t *testing.T) {
	p := Unrestricted()

	tests := []struct {
		name string
		from Status
		to   Status
		code apperr.Code
		kind apperr.Kind
	}{
		{"forward", StatusLocatePending, StatusPOPending, "", apperr.KindUnknown},
		{"skip ahead", StatusLocatePending, StatusDelivered, "", apperr.KindUnknown},
		{"backwards", StatusShipOut, StatusPOPending, "", apperr.KindUnknown},
		{"into branch", StatusInTransit, StatusLitigation, "", apperr.KindUnknown},
		{"out of litigation", StatusLitigation, StatusDelivered, "", apperr.KindUnknown},
		{"out of replacement", StatusReplacement, StatusLocatePending, apperr.CodeInvalidPredecessor, apperr.KindConflict},
		{"replacement to branch", StatusReplacement, StatusLitigation, apperr.CodeInvalidPredecessor, apperr.KindConflict},
		{"unknown target", StatusLocatePending, Status("Lost"), "", apperr.KindValidation},
	}

	for _, tc := range tests {
		err := p.Check(tc.from, tc.to)
		if tc.kind == apperr.KindUnknown {
			if err != nil {
				t.Errorf("%s: unexpected error %v", tc.name, err)
			}
			continue
		}
		if apperr.GetKind(err) != tc.kind || apperr.GetCode(err) != tc.code {
			t.Errorf("%s: got kind=%v code=%q, want kind=%v code=%q", tc.name, apperr.GetKind(err), apperr.GetCode(err), tc.kind, tc.code)
		}
	}
}

func TestParsePolicyRestrictsListedStates(t *testing.T) {
	p, err := ParsePolicy([]byte(`
orders:
  LocatePending: [POPending]
  POPending: [POSent, LocatePending]
`))
	if err != nil {
		t.Fatalf("ParsePolicy: %v", err)
	}

	if err := p.Check(StatusLocatePending, StatusPOPending); err != nil {
		t.Fatalf("listed target rejected: %v", err)
	}
	if err := p.Check(StatusLocatePending, StatusDelivered); !apperr.HasCode(err, apperr.CodeInvalidPredecessor) {
		t.Fatalf("expected INVALID_PREDECESSOR for unlisted target, got %v", err)
	}
	if err := p.Check(StatusLocatePending, StatusReplacement); err != nil {
		t.Fatalf("branch states must stay reachable: %v", err)
	}
	if err := p.Check(StatusShipOut, StatusLocatePending); err != nil {
		t.Fatalf("unlisted source should be unrestricted: %v", err)
	}
}

func TestParsePolicyRejectsUnknownStatus(t *testing.T) {
	if _, err := ParsePolicy([]byte("orders:\n  Shipped: [Delivered]\n")); err == nil {
		t.Fatal("expected unknown source status to be rejected")
	}
	if _, err := ParsePolicy([]byte("orders:\n  ShipOut: [Gone]\n")); err == nil {
		t.Fatal("expected unknown target status to be rejected")
	}
}

func TestLoadPolicyEmptyPathIsUnrestricted(t *testing.T) {
	p, err := LoadPolicy("")
	if err != nil {
		t.Fatalf("LoadPolicy: %v", err)
	}
	if err := p.Check(StatusDelivered, StatusLocatePending); err != nil {
		t.Fatalf("expected unrestricted policy, got %v", err)
	}
}
