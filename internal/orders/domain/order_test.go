package domain

import (
	"testing"
	"time"

	"salesops_backend/internal/shared/notes"

	"github.com/google/uuid"
)

func TestReplacementIdentifierCandidates(t *testing.T) {
	want := []string{"500R", "500R1", "500R2"}
	for i, w := range want {
		if got := ReplacementIdentifier(500, i); got != w {
			t.Fatalf("attempt %d: got %q, want %q", i, got, w)
		}
	}
}

func TestSpawnReplacementDeepCopies(t *testing.T) {
	email := "dana@example.com"
	original := Order{
		ID:               uuid.New(),
		OrderNumber:      500,
		Identifier:       "500",
		LeadID:           uuid.New(),
		Status:           StatusReplacement,
		CustomerEmail:    &email,
		Vendors:          []Vendor{{ID: uuid.New(), Name: "Parts Co", CostCents: 12000, POStatus: POStatusConfirmed}},
		Notes:            []notes.Note{notes.NewSystem("original note", time.Now())},
		ProcurementNotes: []notes.Note{notes.New("called vendor", uuid.New(), "Pat", time.Now())},
	}

	clone := original.SpawnReplacement("500R", time.Now())

	if clone.ID == original.ID {
		t.Fatal("clone must get a fresh id")
	}
	if clone.Status != StatusLocatePending || clone.Identifier != "500R" {
		t.Fatalf("unexpected clone status/identifier %s/%s", clone.Status, clone.Identifier)
	}
	if clone.ReplacedFromID == nil || *clone.ReplacedFromID != original.ID {
		t.Fatal("clone must point back at the original")
	}

	clone.Notes[0].Text = "mutated"
	clone.Notes = append(clone.Notes, notes.NewSystem("new", time.Now()))
	clone.Vendors[0].CostCents = 1
	clone.ProcurementNotes[0].Text = "mutated"
	*clone.CustomerEmail = "other@example.com"

	if original.Notes[0].Text != "original note" || len(original.Notes) != 1 {
		t.Fatalf("original notes changed: %#v", original.Notes)
	}
	if original.Vendors[0].CostCents != 12000 {
		t.Fatal("original vendors changed")
	}
	if original.ProcurementNotes[0].Text != "called vendor" {
		t.Fatal("original procurement notes changed")
	}
	if *original.CustomerEmail != "dana@example.com" {
		t.Fatal("original email changed")
	}
}
