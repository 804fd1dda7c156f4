package apperrors

import (
	"errors"
	"strings"
	"testing"
)

func TestValidationErrorMessage(t *testing.T) {
	verr := NewValidation("contenido", "must not be empty").
		Add("articuloId", "articulo 7 does not exist")

	msg := verr.Error()
	if !strings.Contains(msg, "contenido: must not be empty") {
		t.Errorf("message missing first issue: %q", msg)
	}
	if !strings.Contains(msg, "articuloId: articulo 7 does not exist") {
		t.Errorf("message missing second issue: %q", msg)
	}
}

func TestValidationErrorEmpty(t *testing.T) {
	verr := &ValidationError{}
	if verr.HasIssues() {
		t.Error("expected no issues")
	}
	if verr.Error() != "validation failed" {
		t.Errorf("unexpected message: %q", verr.Error())
	}
}

func TestValidationErrorAs(t *testing.T) {
	var err error = NewValidation("role", "must be ADMIN or EDITOR")

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatal("errors.As failed to match ValidationError")
	}
	if len(verr.Issues) != 1 {
		t.Fatalf("expected 1 issue, got %d", len(verr.Issues))
	}
	if verr.Issues[0].Field != "role" {
		t.Errorf("expected field 'role', got %q", verr.Issues[0].Field)
	}
}
