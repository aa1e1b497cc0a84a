package services_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/abrezinsky/rollcall/internal/forms"
	"github.com/abrezinsky/rollcall/internal/services"
)

func TestServiceError_Error(t *testing.T) {
	err := &services.ServiceError{Message: "test error message"}

	if result := err.Error(); result != "test error message" {
		t.Errorf("expected 'test error message', got %q", result)
	}
}

func TestInvalidTableError_Error(t *testing.T) {
	err := &services.InvalidTableError{Table: "bad_table"}

	result := err.Error()
	if !strings.Contains(result, "bad_table") {
		t.Errorf("expected error to contain 'bad_table', got %q", result)
	}
	if !strings.Contains(result, "invalid table") {
		t.Errorf("expected error to mention 'invalid table', got %q", result)
	}
}

func TestDefinitionError_Unwrap(t *testing.T) {
	err := &services.DefinitionError{Err: forms.ErrInvalidDefinition}

	if !errors.Is(err, forms.ErrInvalidDefinition) {
		t.Error("expected DefinitionError to unwrap to ErrInvalidDefinition")
	}
	if err.Error() != forms.ErrInvalidDefinition.Error() {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestPredefinedErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains string
	}{
		{"ErrNoTablesSpecified", services.ErrNoTablesSpecified, "tables"},
		{"ErrCheckInDisabled", services.ErrCheckInDisabled, "not enabled"},
		{"ErrDeadlinePassed", services.ErrDeadlinePassed, "deadline"},
		{"ErrFieldsLocked", services.ErrFieldsLocked, "check-ins"},
		{"ErrSystemTemplate", services.ErrSystemTemplate, "read-only"},
		{"ErrInvalidQRSize", services.ErrInvalidQRSize, "1024"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			if !strings.Contains(strings.ToLower(msg), tt.contains) {
				t.Errorf("expected error message to contain %q, got %q", tt.contains, msg)
			}
		})
	}
}
