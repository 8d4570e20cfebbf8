package actor

import (
	"testing"

	"github.com/google/uuid"
)

func TestCanAct(t *testing.T) {
	owner := uuid.New()

	if !(Actor{ID: owner}).CanAct(owner) {
		t.Fatal("owner should be allowed")
	}
	if (Actor{ID: uuid.New(), Roles: []string{"sales"}}).CanAct(owner) {
		t.Fatal("stranger should be rejected")
	}
	if !Admin(uuid.New()).CanAct(owner) {
		t.Fatal("admin should be allowed")
	}
	if (Actor{}).CanAct(uuid.Nil) {
		t.Fatal("nil ids must never match")
	}
}
