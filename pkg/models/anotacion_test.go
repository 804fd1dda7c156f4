package models

import "testing"

func TestAnotacionReviewStatus(t *testing.T) {
	tests := []struct {
		name       string
		fuenteIA   bool
		esAprobada bool
		esVisible  bool
		want       ReviewStatus
	}{
		{"human authored", false, false, true, StatusAuthored},
		{"human authored hidden", false, false, false, StatusAuthored},
		{"ai pending", true, false, true, StatusPending},
		{"ai approved", true, true, true, StatusApproved},
		{"ai approved hidden", true, true, false, StatusApproved},
		{"ai rejected", true, false, false, StatusRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Anotacion{
				FuenteIA:   tt.fuenteIA,
				EsAprobada: tt.esAprobada,
				EsVisible:  tt.esVisible,
			}
			if got := a.ReviewStatus(); got != tt.want {
				t.Errorf("ReviewStatus() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAnotacionIsPublishable(t *testing.T) {
	tests := []struct {
		name       string
		fuenteIA   bool
		esAprobada bool
		esVisible  bool
		want       bool
	}{
		{"human authored visible", false, false, true, true},
		{"human authored hidden", false, false, false, false},
		{"ai pending", true, false, true, false},
		{"ai approved visible", true, true, true, true},
		{"ai approved hidden", true, true, false, false},
		{"ai rejected", true, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Anotacion{
				FuenteIA:   tt.fuenteIA,
				EsAprobada: tt.esAprobada,
				EsVisible:  tt.esVisible,
			}
			if got := a.IsPublishable(); got != tt.want {
				t.Errorf("IsPublishable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsValidRole(t *testing.T) {
	if !IsValidRole(RoleAdmin) {
		t.Error("expected ADMIN to be valid")
	}
	if !IsValidRole(RoleEditor) {
		t.Error("expected EDITOR to be valid")
	}
	if IsValidRole("SUPERUSER") {
		t.Error("expected SUPERUSER to be invalid")
	}
	if IsValidRole("") {
		t.Error("expected empty role to be invalid")
	}
}
