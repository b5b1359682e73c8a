// Package storage provides a generic storage interface for collections.
// It dynamically creates tables and performs CRUD operations based on derived schemas.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/artpar/contentgate/core/convention"
	"github.com/artpar/contentgate/core/schema"
)

// TimeLayout is the stored form of dates: UTC with millisecond precision.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

var (
	// ErrNotFound is returned when no document matches.
	ErrNotFound = errors.New("document not found")

	// ErrDuplicate is returned when a unique field value is already taken.
	ErrDuplicate = errors.New("duplicate value")

	// ErrReference is returned when a referenced document does not exist.
	ErrReference = errors.New("referenced document does not exist")

	// ErrInvalidQuery is returned for filters, sorts or lookups on unknown fields.
	ErrInvalidQuery = errors.New("invalid query")
)

// DuplicateError reports the field whose unique constraint failed.
type DuplicateError struct {
	Collection string
	Field      string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s: value of %q must be unique", e.Collection, e.Field)
}

// Is makes errors.Is(err, ErrDuplicate) match.
func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicate
}

// ReferenceError reports a dangling reference.
type ReferenceError struct {
	Field  string
	Target string
	ID     string
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("field %q: referenced %s with id %q does not exist", e.Field, e.Target, e.ID)
}

// Is makes errors.Is(err, ErrReference) match.
func (e *ReferenceError) Is(target error) bool {
	return target == ErrReference
}

// Store provides generic CRUD operations for any collection.
type Store interface {
	// CreateTable creates a table for a collection.
	CreateTable(ctx context.Context, col convention.Derived) error

	// Create inserts a new document and returns its ID.
	Create(ctx context.Context, collection string, data map[string]any) (string, error)

	// Get retrieves a document by lookup field. Returns ErrNotFound when absent.
	Get(ctx context.Context, collection string, lookup string, value string) (map[string]any, error)

	// List retrieves multiple documents and the total count matching the filters.
	List(ctx context.Context, collection string, opts ListOptions) ([]map[string]any, int64, error)

	// Update modifies an existing document.
	Update(ctx context.Context, collection string, id string, data map[string]any) error

	// Delete removes a document.
	Delete(ctx context.Context, collection string, id string) error

	// Close closes the storage connection.
	Close() error
}

// ListOptions configures list queries.
type ListOptions struct {
	// Limit is the maximum number of documents to return.
	Limit int

	// Offset is the number of documents to skip.
	Offset int

	// Filters are field-value pairs to filter by (equality).
	Filters map[string]any

	// OrderBy is the field to sort by.
	OrderBy string

	// OrderDesc sorts in descending order.
	OrderDesc bool
}

// DefaultLimit applies when ListOptions.Limit is zero.
const DefaultLimit = 10

// quote quotes an identifier. Field names are camelCase so every
// identifier is quoted.
func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// BuildCreateTableSQL generates CREATE TABLE SQL from a derived collection.
func BuildCreateTableSQL(col convention.Derived, tables map[string]string) string {
	var columns []string
	var constraints []string

	for _, f := range col.Fields {
		columns = append(columns, buildColumnDef(f))

		if f.Unique && f.Name != schema.FieldID {
			constraints = append(constraints, fmt.Sprintf("UNIQUE(%s)", quote(f.Name)))
		}

		// hasMany references are JSON lists and checked in code only
		if f.Ref != "" && !f.HasMany {
			target := tables[f.Ref]
			if target == "" {
				target = convention.TableName(f.Ref)
			}
			constraints = append(constraints, fmt.Sprintf(
				"FOREIGN KEY(%s) REFERENCES %s(id) ON DELETE SET NULL",
				quote(f.Name), quote(target),
			))
		}

		if f.Type == schema.FieldTypeSelect && len(f.Options) > 0 {
			values := make([]string, len(f.Options))
			for i, v := range f.Options {
				values[i] = quoteLiteral(v)
			}
			constraints = append(constraints, fmt.Sprintf(
				"CHECK(%s IN (%s))",
				quote(f.Name), strings.Join(values, ", "),
			))
		}
	}

	sql := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n  %s",
		quote(col.Table),
		strings.Join(columns, ",\n  "),
	)

	if len(constraints) > 0 {
		sql += ",\n  " + strings.Join(constraints, ",\n  ")
	}

	sql += "\n)"

	return sql
}

// buildColumnDef builds a column definition from a derived field.
func buildColumnDef(f convention.DerivedField) string {
	parts := []string{quote(f.Name), f.SQLType}

	if f.Name == schema.FieldID {
		parts = append(parts, "PRIMARY KEY")
	}

	if f.Required {
		parts = append(parts, "NOT NULL")
	}

	if f.Default != nil {
		if def := formatDefault(f.Default); def != "" {
			parts = append(parts, "DEFAULT "+def)
		}
	}

	return strings.Join(parts, " ")
}

// formatDefault formats a static default value for SQL.
func formatDefault(val any) string {
	switch v := val.(type) {
	case string:
		return quoteLiteral(v)
	case int, int32, int64:
		return fmt.Sprintf("%d", v)
	case float32, float64:
		return fmt.Sprintf("%v", v)
	default:
		return ""
	}
}

// BuildIndexSQL generates CREATE INDEX statements for indexed and lookup fields.
// Unique fields are already indexed by their constraint.
func BuildIndexSQL(col convention.Derived) []string {
	var indexes []string

	for _, f := range col.Fields {
		if f.Name == schema.FieldID || f.Unique {
			continue
		}
		if f.Index || f.Lookup || f.Name == schema.FieldCreatedAt {
			idx := fmt.Sprintf(
				"CREATE INDEX IF NOT EXISTS %s ON %s(%s)",
				quote("idx_"+col.Table+"_"+f.Name), quote(col.Table), quote(f.Name),
			)
			indexes = append(indexes, idx)
		}
	}

	return indexes
}
