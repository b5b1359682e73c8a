// Package validation checks document data against derived collections.
// Validation is enforced at runtime before storage operations.
package validation

import (
	"encoding/json"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/artpar/contentgate/core/convention"
	"github.com/artpar/contentgate/core/schema"
)

// Validator validates input data against collection schemas.
type Validator struct {
	mu          sync.RWMutex
	collections map[string]convention.Derived
}

// New creates a new validator with the given collections, keyed by slug.
func New(collections map[string]convention.Derived) *Validator {
	return &Validator{
		collections: collections,
	}
}

// UpdateCollections replaces the validator's collection set.
func (v *Validator) UpdateCollections(collections map[string]convention.Derived) {
	v.mu.Lock()
	v.collections = collections
	v.mu.Unlock()
}

func (v *Validator) collection(slug string) (convention.Derived, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	col, ok := v.collections[slug]
	return col, ok
}

// ValidateCreate validates a new document. Defaults must already be applied:
// every required field has to be present.
func (v *Validator) ValidateCreate(slug string, data map[string]any) schema.ValidationResult {
	result := schema.ValidationResult{Valid: true}

	col, ok := v.collection(slug)
	if !ok {
		result.AddError("_collection", "unknown", slug, fmt.Sprintf("unknown collection: %s", slug))
		return result
	}

	rejectUnknown(&result, "", col.Fields, data)

	for _, field := range col.Fields {
		// id and timestamps are stamped by the host
		if field.ReadOnly {
			continue
		}

		value, hasValue := data[field.Name]
		if isEmpty(value) {
			if field.Required {
				result.AddError(field.Name, schema.ConstraintRequired, nil, "field is required")
				continue
			}
			// an explicitly empty array still has to satisfy its row bounds
			if !hasValue || value == nil || field.Type != schema.FieldTypeArray {
				continue
			}
		}

		validateValue(&result, field.Name, field, value)
	}

	return result
}

// ValidateUpdate validates a partial update. Only provided fields are
// checked; a provided required field may not be emptied.
func (v *Validator) ValidateUpdate(slug string, data map[string]any) schema.ValidationResult {
	result := schema.ValidationResult{Valid: true}

	col, ok := v.collection(slug)
	if !ok {
		result.AddError("_collection", "unknown", slug, fmt.Sprintf("unknown collection: %s", slug))
		return result
	}

	fieldMap := make(map[string]convention.DerivedField, len(col.Fields))
	for _, f := range col.Fields {
		fieldMap[f.Name] = f
	}

	for name, value := range data {
		field, ok := fieldMap[name]
		if !ok {
			result.AddError(name, schema.ConstraintUnknownField, name,
				fmt.Sprintf("unknown field '%s' - not defined in schema", name))
			continue
		}

		if field.ReadOnly {
			continue
		}

		if isEmpty(value) {
			if field.Required {
				result.AddError(name, schema.ConstraintRequired, nil, "field is required")
				continue
			}
			if value == nil || field.Type != schema.FieldTypeArray {
				continue
			}
		}

		validateValue(&result, name, field, value)
	}

	return result
}

// ValidateField validates a single field value against its schema.
// This is useful for client-side or partial validation.
func ValidateField(field convention.DerivedField, value any) schema.ValidationResult {
	result := schema.ValidationResult{Valid: true}

	if isEmpty(value) {
		if field.Required {
			result.AddError(field.Name, schema.ConstraintRequired, nil, "field is required")
		}
		if value == nil || field.Type != schema.FieldTypeArray {
			return result
		}
	}

	validateValue(&result, field.Name, field, value)
	return result
}

// rejectUnknown reports keys in data that match no field.
func rejectUnknown(result *schema.ValidationResult, prefix string, fields []convention.DerivedField, data map[string]any) {
	known := make(map[string]bool, len(fields))
	for _, f := range fields {
		known[f.Name] = true
	}

	for name := range data {
		if !known[name] {
			result.AddError(prefix+name, schema.ConstraintUnknownField, name,
				fmt.Sprintf("unknown field '%s' - not defined in schema", name))
		}
	}
}

// validateValue checks a present, non-empty value. path is the error path
// reported for the field (e.g. "seoKeywords.2.keyword").
func validateValue(result *schema.ValidationResult, path string, field convention.DerivedField, value any) {
	switch field.Type {
	case schema.FieldTypeText, schema.FieldTypeTextarea:
		if _, ok := value.(string); !ok {
			result.AddError(path, schema.ConstraintType, value, "must be a string")
		}

	case schema.FieldTypeEmail:
		str, ok := value.(string)
		if !ok {
			result.AddError(path, schema.ConstraintType, value, "must be a string")
			return
		}
		if _, err := mail.ParseAddress(str); err != nil {
			result.AddError(path, schema.ConstraintType, value, "invalid email address")
		}

	case schema.FieldTypeNumber:
		switch value.(type) {
		case int, int32, int64, float32, float64, json.Number:
		default:
			result.AddError(path, schema.ConstraintType, value, "must be a number")
		}

	case schema.FieldTypeRichText:
		doc, ok := value.(map[string]any)
		if !ok {
			result.AddError(path, schema.ConstraintType, value, "must be a rich text document")
			return
		}
		if field.Editor == schema.EditorLexical {
			if _, ok := doc["root"].(map[string]any); !ok {
				result.AddError(path, schema.ConstraintType, nil, "lexical document must have a root node")
			}
		}

	case schema.FieldTypeDate:
		switch val := value.(type) {
		case time.Time:
		case string:
			if _, err := time.Parse(time.RFC3339, val); err != nil {
				result.AddError(path, schema.ConstraintType, value, "must be an RFC 3339 date")
			}
		default:
			result.AddError(path, schema.ConstraintType, value, "must be an RFC 3339 date")
		}

	case schema.FieldTypeSelect:
		str, ok := value.(string)
		if !ok || !containsString(field.Options, str) {
			result.AddError(path, schema.ConstraintOption, value,
				fmt.Sprintf("must be one of: %s", strings.Join(field.Options, ", ")))
		}

	case schema.FieldTypeRelationship, schema.FieldTypeUpload:
		validateReference(result, path, field, value)

	case schema.FieldTypeArray:
		validateRows(result, path, field, value)
	}
}

// validateReference checks the ID format. Existence is checked by storage.
func validateReference(result *schema.ValidationResult, path string, field convention.DerivedField, value any) {
	if !field.HasMany {
		if !isID(value) {
			result.AddError(path, schema.ConstraintType, value, "must be a document ID")
		}
		return
	}

	ids, ok := toSlice(value)
	if !ok {
		result.AddError(path, schema.ConstraintType, value, "must be a list of document IDs")
		return
	}
	for i, id := range ids {
		if !isID(id) {
			result.AddError(fmt.Sprintf("%s.%d", path, i), schema.ConstraintType, id, "must be a document ID")
		}
	}
}

func validateRows(result *schema.ValidationResult, path string, field convention.DerivedField, value any) {
	rows, ok := toSlice(value)
	if !ok {
		result.AddError(path, schema.ConstraintType, value, "must be a list of rows")
		return
	}

	if field.MinRows > 0 && len(rows) < field.MinRows {
		result.AddError(path, schema.ConstraintMinRows, len(rows),
			fmt.Sprintf("must have at least %d %s", field.MinRows, rowWord(field.MinRows)))
	}
	if field.MaxRows > 0 && len(rows) > field.MaxRows {
		result.AddError(path, schema.ConstraintMaxRows, len(rows),
			fmt.Sprintf("must have at most %d %s", field.MaxRows, rowWord(field.MaxRows)))
	}

	rowFields := append([]convention.DerivedField{{Name: schema.FieldID, ReadOnly: true}}, field.Rows...)

	for i, raw := range rows {
		rowPath := fmt.Sprintf("%s.%d", path, i)
		row, ok := raw.(map[string]any)
		if !ok {
			result.AddError(rowPath, schema.ConstraintType, raw, "must be an object")
			continue
		}

		rejectUnknown(result, rowPath+".", rowFields, row)

		for _, rf := range field.Rows {
			v := row[rf.Name]
			if isEmpty(v) {
				if rf.Required {
					result.AddError(rowPath+"."+rf.Name, schema.ConstraintRequired, nil, "field is required")
				}
				continue
			}
			validateValue(result, rowPath+"."+rf.Name, rf, v)
		}
	}
}

func rowWord(n int) string {
	if n == 1 {
		return "row"
	}
	return "rows"
}

// isEmpty reports whether a value counts as absent for required checks.
func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []any:
		return len(v) == 0
	case []map[string]any:
		return len(v) == 0
	case []string:
		return len(v) == 0
	}
	return false
}

func isID(value any) bool {
	s, ok := value.(string)
	return ok && strings.TrimSpace(s) != ""
}

// toSlice accepts the slice shapes produced by JSON decoding and Go callers.
func toSlice(value any) ([]any, bool) {
	switch v := value.(type) {
	case []any:
		return v, true
	case []map[string]any:
		out := make([]any, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out, true
	case []string:
		out := make([]any, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out, true
	}
	return nil, false
}

// containsString checks if a string is in a slice.
func containsString(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
