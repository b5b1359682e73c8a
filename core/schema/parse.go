package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultNow is the YAML spelling of the creation instant default.
const DefaultNow = "now"

// collectionFile is the YAML form of a collection. Access rules are
// expressions that get compiled into AccessFuncs.
type collectionFile struct {
	Collection `yaml:",inline"`
	Access     map[string]string `yaml:"access,omitempty"`
}

// ParseFile parses a collection definition from a YAML file.
func ParseFile(path string) (Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Collection{}, fmt.Errorf("read file %s: %w", path, err)
	}

	return Parse(data)
}

// Parse parses a collection definition from YAML bytes.
func Parse(data []byte) (Collection, error) {
	var file collectionFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Collection{}, fmt.Errorf("parse yaml: %w", err)
	}

	col := file.Collection
	for op, expression := range file.Access {
		fn, err := CompileAccess(expression)
		if err != nil {
			return Collection{}, fmt.Errorf("collection %q: %w", col.Slug, err)
		}
		switch op {
		case "read":
			col.Access.Read = fn
		case "create":
			col.Access.Create = fn
		case "update":
			col.Access.Update = fn
		case "delete":
			col.Access.Delete = fn
		default:
			return Collection{}, fmt.Errorf("collection %q: unknown access operation %q", col.Slug, op)
		}
	}

	col.Fields = resolveDefaults(col.Fields)

	if err := Validate(col); err != nil {
		return Collection{}, fmt.Errorf("validate collection %q: %w", col.Slug, err)
	}

	return col, nil
}

// ParseDir parses all collection definitions from a directory, including subdirectories.
func ParseDir(dir string) ([]Collection, error) {
	var collections []Collection

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())

		if entry.IsDir() {
			sub, err := ParseDir(path)
			if err != nil {
				return nil, err
			}
			collections = append(collections, sub...)
			continue
		}

		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}

		col, err := ParseFile(path)
		if err != nil {
			return nil, err
		}

		collections = append(collections, col)
	}

	return collections, nil
}

// Marshal renders a collection in the YAML form read by Parse. Default
// providers on date fields are written as `default: now`; access rules
// are code and are left out.
func Marshal(col Collection) ([]byte, error) {
	col.Fields = exportDefaults(col.Fields)
	return yaml.Marshal(collectionFile{Collection: col})
}

// exportDefaults is the inverse of resolveDefaults. It copies so the
// caller's fields are left untouched.
func exportDefaults(fields []Field) []Field {
	if fields == nil {
		return nil
	}
	out := make([]Field, len(fields))
	for i, f := range fields {
		if f.Type == FieldTypeDate && f.DefaultFunc != nil {
			f.DefaultValue = DefaultNow
		}
		f.Fields = exportDefaults(f.Fields)
		if f.Tabs != nil {
			tabs := make([]Tab, len(f.Tabs))
			for j, tab := range f.Tabs {
				tab.Fields = exportDefaults(tab.Fields)
				tabs[j] = tab
			}
			f.Tabs = tabs
		}
		out[i] = f
	}
	return out
}

// resolveDefaults turns `default: now` on date fields into the Now provider.
func resolveDefaults(fields []Field) []Field {
	for i := range fields {
		f := &fields[i]
		if f.Type == FieldTypeDate {
			if s, ok := f.DefaultValue.(string); ok && s == DefaultNow {
				f.DefaultValue = nil
				f.DefaultFunc = Now
			}
		}
		if len(f.Fields) > 0 {
			f.Fields = resolveDefaults(f.Fields)
		}
		for j := range f.Tabs {
			f.Tabs[j].Fields = resolveDefaults(f.Tabs[j].Fields)
		}
	}
	return fields
}

// Validate validates a collection definition.
func Validate(col Collection) error {
	var errs []string

	if col.Slug == "" {
		errs = append(errs, "collection slug is required")
	} else if !isValidSlug(col.Slug) {
		errs = append(errs, fmt.Sprintf("collection slug %q must be lowercase letters, digits, '-' or '_'", col.Slug))
	}

	if len(col.Fields) == 0 {
		errs = append(errs, "collection must have at least one field")
	}

	seen := make(map[string]bool)
	for _, name := range ReservedNames(col) {
		seen[name] = true
	}

	errs = append(errs, validateFields(col.Fields, "", seen, true)...)

	if col.Admin.UseAsTitle != "" && !seen[col.Admin.UseAsTitle] {
		errs = append(errs, fmt.Sprintf("admin.useAsTitle %q is not a field", col.Admin.UseAsTitle))
	}
	for _, column := range col.Admin.DefaultColumns {
		if !seen[column] {
			errs = append(errs, fmt.Sprintf("admin.defaultColumns entry %q is not a field", column))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// ReservedNames returns the field names the host adds to a collection.
func ReservedNames(col Collection) []string {
	names := []string{FieldID}
	if col.Timestamps {
		names = append(names, FieldCreatedAt, FieldUpdatedAt)
	}
	if col.Auth {
		names = append(names, "email", "password")
	}
	if col.Upload {
		names = append(names, "filename", "mimeType", "filesize", "url")
	}
	return names
}

// validateFields validates a field list. seen collects names at the current
// data level; tabs share the level of their parent.
func validateFields(fields []Field, prefix string, seen map[string]bool, topLevel bool) []string {
	var errs []string

	for _, f := range fields {
		if f.Type == FieldTypeTabs {
			if !topLevel {
				errs = append(errs, fmt.Sprintf("%stabs are only allowed at the top level", prefix))
				continue
			}
			if len(f.Tabs) == 0 {
				errs = append(errs, fmt.Sprintf("%stabs field requires at least one tab", prefix))
			}
			for i, tab := range f.Tabs {
				if tab.Label == "" {
					errs = append(errs, fmt.Sprintf("%stab %d requires a label", prefix, i))
				}
				errs = append(errs, validateFields(tab.Fields, prefix, seen, true)...)
			}
			continue
		}

		path := prefix + f.Name
		if !isValidIdentifier(f.Name) {
			errs = append(errs, fmt.Sprintf("field name %q is not a valid identifier", path))
			continue
		}
		if seen[f.Name] {
			errs = append(errs, fmt.Sprintf("field %q is declared more than once", path))
		}
		seen[f.Name] = true

		if err := validateField(path, f); err != nil {
			errs = append(errs, err.Error())
		}

		if f.Type == FieldTypeArray {
			errs = append(errs, validateFields(f.Fields, path+".", make(map[string]bool), false)...)
		}
	}

	return errs
}

// validateField validates a single field definition.
func validateField(name string, field Field) error {
	if !isValidFieldType(field.Type) {
		return fmt.Errorf("field %q: unknown type %q", name, field.Type)
	}

	if field.DefaultValue != nil && field.DefaultFunc != nil {
		return fmt.Errorf("field %q: default value and default provider are mutually exclusive", name)
	}

	if field.Admin.Position != "" && field.Admin.Position != PositionMain && field.Admin.Position != PositionSidebar {
		return fmt.Errorf("field %q: unknown admin position %q", name, field.Admin.Position)
	}

	switch field.Type {
	case FieldTypeSelect:
		if len(field.Options) == 0 {
			return fmt.Errorf("field %q: select type requires options", name)
		}
		if field.DefaultValue != nil {
			s, ok := field.DefaultValue.(string)
			if !ok || !containsString(field.OptionValues(), s) {
				return fmt.Errorf("field %q: default %v is not a valid option", name, field.DefaultValue)
			}
		}

	case FieldTypeRelationship, FieldTypeUpload:
		if field.RelationTo == "" {
			return fmt.Errorf("field %q: %s type requires relationTo", name, field.Type)
		}
		if field.Type == FieldTypeUpload && field.HasMany {
			return fmt.Errorf("field %q: upload fields hold a single reference", name)
		}

	case FieldTypeArray:
		if len(field.Fields) == 0 {
			return fmt.Errorf("field %q: array type requires row fields", name)
		}
		if field.MinRows < 0 || field.MaxRows < 0 {
			return fmt.Errorf("field %q: row bounds must not be negative", name)
		}
		if field.MaxRows > 0 && field.MinRows > field.MaxRows {
			return fmt.Errorf("field %q: minRows %d exceeds maxRows %d", name, field.MinRows, field.MaxRows)
		}

	case FieldTypeDate:
		if s, ok := field.DefaultValue.(string); ok && s == DefaultNow {
			return fmt.Errorf("field %q: use DefaultFunc instead of the %q default", name, DefaultNow)
		}
	}

	if field.Type != FieldTypeArray && (field.MinRows != 0 || field.MaxRows != 0) {
		return fmt.Errorf("field %q: row bounds only apply to array fields", name)
	}

	return nil
}

// isValidIdentifier checks if a string is a valid identifier.
func isValidIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for i, c := range s {
		if i == 0 {
			if !isLetter(c) && c != '_' {
				return false
			}
		} else {
			if !isLetter(c) && !isDigit(c) && c != '_' {
				return false
			}
		}
	}

	return true
}

// isValidSlug checks a collection slug: lowercase, starts with a letter.
func isValidSlug(s string) bool {
	for i, c := range s {
		switch {
		case c >= 'a' && c <= 'z':
		case i > 0 && (isDigit(c) || c == '-' || c == '_'):
		default:
			return false
		}
	}
	return s != ""
}

func isLetter(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c rune) bool {
	return c >= '0' && c <= '9'
}

func containsString(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}

// isValidFieldType checks if a field type is valid.
func isValidFieldType(t FieldType) bool {
	switch t {
	case FieldTypeText, FieldTypeTextarea, FieldTypeEmail, FieldTypeNumber,
		FieldTypeRichText, FieldTypeDate, FieldTypeSelect,
		FieldTypeUpload, FieldTypeRelationship,
		FieldTypeArray, FieldTypeTabs:
		return true
	default:
		return false
	}
}
