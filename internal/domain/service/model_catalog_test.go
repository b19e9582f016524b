package service

import "testing"

func TestValidateModelAcceptsKnownModel(t *testing.T) {
	if err := ValidateModel("gpt-4o", false); err != nil {
		t.Fatalf("ValidateModel() error = %v", err)
	}
}

func TestValidateModelRejectsUnknownModel(t *testing.T) {
	if err := ValidateModel("not-a-real-model", false); err == nil {
		t.Fatalf("expected error for unknown model")
	}
}

func TestValidateModelBypassAcceptsAnything(t *testing.T) {
	if err := ValidateModel("totally-made-up", true); err != nil {
		t.Fatalf("ValidateModel() error = %v with bypass enabled", err)
	}
}

func TestValidateModelRejectsEmptyEvenWithBypass(t *testing.T) {
	if err := ValidateModel("", true); err == nil {
		t.Fatalf("expected error for empty model id")
	}
}

func TestKnownModelIDsNonEmpty(t *testing.T) {
	if len(KnownModelIDs()) == 0 {
		t.Fatalf("expected non-empty model catalog")
	}
}
