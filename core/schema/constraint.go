package schema

import (
	"fmt"
	"strings"
)

// Constraint names reported in validation errors.
const (
	ConstraintRequired     = "required"
	ConstraintType         = "type"
	ConstraintOption       = "option"
	ConstraintMinRows      = "min_rows"
	ConstraintMaxRows      = "max_rows"
	ConstraintUnique       = "unique"
	ConstraintReference    = "reference"
	ConstraintUnknownField = "unknown_field"
)

// ConstraintError represents a validation failure.
type ConstraintError struct {
	Field      string `json:"field"`
	Constraint string `json:"constraint"`
	Value      any    `json:"value,omitempty"`
	Message    string `json:"message"`
}

func (e ConstraintError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationResult holds all validation errors for a request.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ConstraintError `json:"errors,omitempty"`
}

// AddError adds a validation error.
func (r *ValidationResult) AddError(field, constraint string, value any, message string) {
	r.Valid = false
	r.Errors = append(r.Errors, ConstraintError{
		Field:      field,
		Constraint: constraint,
		Value:      value,
		Message:    message,
	})
}

// Merge appends the errors of other to r.
func (r *ValidationResult) Merge(other ValidationResult) {
	if other.Valid {
		return
	}
	r.Valid = false
	r.Errors = append(r.Errors, other.Errors...)
}

// HasError reports whether a field failed the given constraint.
func (r ValidationResult) HasError(field, constraint string) bool {
	for _, e := range r.Errors {
		if e.Field == field && e.Constraint == constraint {
			return true
		}
	}
	return false
}

// Error returns a combined error message.
func (r ValidationResult) Error() string {
	if r.Valid {
		return ""
	}
	var msgs []string
	for _, e := range r.Errors {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}
