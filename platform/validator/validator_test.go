package validator

import "testing"

type statusRequest struct {
	Status string `validate:"required,agentstatus"`
}

func TestRegisterOneOf(t *testing.T) {
	v := New()
	if err := v.RegisterOneOf("agentstatus", []string{"Available", "Lunch"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := v.Struct(statusRequest{Status: "Lunch"}); err != nil {
		t.Fatalf("expected Lunch to validate, got %v", err)
	}
	if err := v.Struct(statusRequest{Status: "Napping"}); err == nil {
		t.Fatal("expected unknown status to fail validation")
	}
	if err := v.Struct(statusRequest{}); err == nil {
		t.Fatal("expected empty status to fail required")
	}
}
