package schema

import (
	"testing"
)

func TestConstraintError(t *testing.T) {
	err := ConstraintError{
		Field:      "seoKeywords",
		Constraint: ConstraintMaxRows,
		Value:      11,
		Message:    "must have at most 10 rows",
	}

	expected := "seoKeywords: must have at most 10 rows"
	if got := err.Error(); got != expected {
		t.Errorf("ConstraintError.Error() = %q, want %q", got, expected)
	}
}

func TestValidationResult_AddError(t *testing.T) {
	result := ValidationResult{Valid: true}

	result.AddError("title", ConstraintRequired, nil, "field is required")

	if result.Valid {
		t.Error("ValidationResult.Valid should be false after AddError")
	}
	if len(result.Errors) != 1 {
		t.Fatalf("ValidationResult.Errors length = %d, want 1", len(result.Errors))
	}

	err := result.Errors[0]
	if err.Field != "title" {
		t.Errorf("Error.Field = %q, want %q", err.Field, "title")
	}
	if err.Constraint != ConstraintRequired {
		t.Errorf("Error.Constraint = %q, want %q", err.Constraint, ConstraintRequired)
	}
	if !result.HasError("title", ConstraintRequired) {
		t.Error("HasError(title, required) = false, want true")
	}
	if result.HasError("title", ConstraintType) {
		t.Error("HasError(title, type) = true, want false")
	}
}

func TestValidationResult_Error(t *testing.T) {
	t.Run("valid result", func(t *testing.T) {
		result := ValidationResult{Valid: true}
		if got := result.Error(); got != "" {
			t.Errorf("Error() = %q, want empty", got)
		}
	})

	t.Run("multiple errors", func(t *testing.T) {
		result := ValidationResult{Valid: true}
		result.AddError("title", ConstraintRequired, nil, "field is required")
		result.AddError("status", ConstraintOption, "live", "must be one of: draft, published, archived")

		want := "title: field is required; status: must be one of: draft, published, archived"
		if got := result.Error(); got != want {
			t.Errorf("Error() = %q, want %q", got, want)
		}
	})
}

func TestValidationResult_Merge(t *testing.T) {
	result := ValidationResult{Valid: true}
	result.Merge(ValidationResult{Valid: true})
	if !result.Valid {
		t.Fatal("merging a valid result should keep Valid")
	}

	other := ValidationResult{Valid: true}
	other.AddError("slug", ConstraintUnique, "hello", "value must be unique")
	result.Merge(other)

	if result.Valid {
		t.Error("merging an invalid result should clear Valid")
	}
	if len(result.Errors) != 1 {
		t.Errorf("Errors length = %d, want 1", len(result.Errors))
	}
}
