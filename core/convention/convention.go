// Package convention derives defaults from minimal collection definitions.
// It flattens tabs, adds implicit fields and fills in labels.
package convention

import (
	"strings"

	"github.com/artpar/contentgate/core/schema"
)

// Derived contains all derived information from a collection definition.
// This is the fully-expanded form used by the runtime.
type Derived struct {
	// Source is the original collection definition.
	Source schema.Collection

	// Slug is the collection slug.
	Slug string

	// Table is the database table name.
	Table string

	// Labels are the collection labels, derived from the slug when not declared.
	Labels schema.Labels

	// Fields contains all data fields, tabs flattened, including implicit ones
	// (id, createdAt, updatedAt and the auth/upload fields).
	Fields []DerivedField

	// Tabs lists the tabs in declaration order.
	Tabs []DerivedTab

	// Lookups are field names that can be used to find records.
	Lookups []string
}

// DerivedField is a fully-derived field with all defaults applied.
type DerivedField struct {
	// Name of the field. Also the column name.
	Name string

	// Label shown in the admin UI.
	Label string

	// Source is the original field definition (nil for implicit fields).
	Source *schema.Field

	// Type is the resolved field type.
	Type schema.FieldType

	// SQLType is the SQL column type.
	SQLType string

	Required bool
	Unique   bool
	Index    bool

	// Lookup indicates this field can be used to find records.
	Lookup bool

	// Internal indicates this field is never exposed.
	Internal bool

	// Implicit indicates the host adds and manages this field.
	Implicit bool

	// ReadOnly fields are set by the host only (id and timestamps).
	ReadOnly bool

	// Default is the static default value.
	Default any

	// DefaultFunc computes the default for new documents.
	DefaultFunc schema.DefaultFunc

	// Options are the select values.
	Options []string

	// Ref is the target collection of reference fields.
	Ref     string
	HasMany bool

	// MinRows and MaxRows bound array fields.
	MinRows int
	MaxRows int

	// Rows are the row fields of an array field.
	Rows []DerivedField

	// Editor is the rich text editor.
	Editor string

	// Position is main or sidebar.
	Position schema.Position

	// Tab is the label of the tab holding the field, empty outside tabs.
	Tab string

	// Picker is the date picker appearance.
	Picker string

	// Description is the admin help text.
	Description string

	// Hooks run before validation.
	Hooks schema.FieldHooks
}

// DerivedTab is one tab of the edit view.
type DerivedTab struct {
	Label       string
	Description string
	Fields      []string
}

// Derive expands a minimal collection definition into a fully-derived form.
func Derive(col schema.Collection) Derived {
	d := Derived{
		Source: col,
		Slug:   col.Slug,
		Table:  TableName(col.Slug),
		Labels: deriveLabels(col),
	}

	d.Fields, d.Tabs = deriveFields(col)
	d.Lookups = deriveLookups(d.Fields)

	return d
}

// TableName returns the table name for a collection slug.
func TableName(slug string) string {
	return strings.ReplaceAll(slug, "-", "_")
}

// Field returns the derived field with the given name.
func (d Derived) Field(name string) (DerivedField, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return DerivedField{}, false
}

// Writable returns the fields a client may set.
func (d Derived) Writable() []DerivedField {
	var out []DerivedField
	for _, f := range d.Fields {
		if !f.ReadOnly {
			out = append(out, f)
		}
	}
	return out
}

// References returns the fields pointing at other collections.
func (d Derived) References() []DerivedField {
	var out []DerivedField
	for _, f := range d.Fields {
		if f.Ref != "" {
			out = append(out, f)
		}
	}
	return out
}

func deriveLabels(col schema.Collection) schema.Labels {
	labels := col.Labels
	switch {
	case labels.Plural != "":
	case labels.Singular != "":
		labels.Plural = Pluralize(labels.Singular)
	default:
		labels.Plural = Labelize(col.Slug)
	}
	if labels.Singular == "" {
		labels.Singular = Singularize(Labelize(col.Slug))
	}
	return labels
}

// deriveFields creates the full list of fields including implicit ones.
func deriveFields(col schema.Collection) ([]DerivedField, []DerivedTab) {
	fields := make([]DerivedField, 0, len(col.Fields)+3)
	var tabs []DerivedTab

	// Implicit ID field
	fields = append(fields, DerivedField{
		Name:     schema.FieldID,
		Label:    "ID",
		Type:     schema.FieldTypeText,
		SQLType:  "TEXT",
		Unique:   true,
		Lookup:   true,
		Implicit: true,
		ReadOnly: true,
		Position: schema.PositionMain,
	})

	if col.Auth {
		fields = append(fields,
			DerivedField{
				Name:     "email",
				Label:    "Email",
				Type:     schema.FieldTypeEmail,
				SQLType:  "TEXT",
				Required: true,
				Unique:   true,
				Lookup:   true,
				Implicit: true,
				Position: schema.PositionMain,
			},
			DerivedField{
				Name:     "password",
				Label:    "Password",
				Type:     schema.FieldTypeText,
				SQLType:  "TEXT",
				Required: true,
				Internal: true,
				Implicit: true,
				Position: schema.PositionMain,
			},
		)
	}

	if col.Upload {
		for _, name := range []string{"filename", "mimeType", "url"} {
			fields = append(fields, DerivedField{
				Name:     name,
				Label:    Labelize(name),
				Type:     schema.FieldTypeText,
				SQLType:  "TEXT",
				Required: name == "filename",
				Implicit: true,
				Position: schema.PositionMain,
			})
		}
		fields = append(fields, DerivedField{
			Name:     "filesize",
			Label:    "Filesize",
			Type:     schema.FieldTypeNumber,
			SQLType:  "REAL",
			Implicit: true,
			Position: schema.PositionMain,
		})
	}

	// User-defined fields
	for i := range col.Fields {
		f := &col.Fields[i]
		if f.Type != schema.FieldTypeTabs {
			fields = append(fields, deriveField(f, ""))
			continue
		}
		for j := range f.Tabs {
			tab := &f.Tabs[j]
			dt := DerivedTab{Label: tab.Label, Description: tab.Description}
			for k := range tab.Fields {
				df := deriveField(&tab.Fields[k], tab.Label)
				fields = append(fields, df)
				dt.Fields = append(dt.Fields, df.Name)
			}
			tabs = append(tabs, dt)
		}
	}

	// Implicit timestamp fields
	if col.Timestamps {
		for _, name := range []string{schema.FieldCreatedAt, schema.FieldUpdatedAt} {
			fields = append(fields, DerivedField{
				Name:     name,
				Label:    Labelize(name),
				Type:     schema.FieldTypeDate,
				SQLType:  "TEXT",
				Implicit: true,
				ReadOnly: true,
				Position: schema.PositionSidebar,
				Picker:   schema.PickerDayAndTime,
			})
		}
	}

	return fields, tabs
}

func deriveField(f *schema.Field, tab string) DerivedField {
	field := DerivedField{
		Name:        f.Name,
		Label:       f.Label,
		Source:      f,
		Type:        f.Type,
		SQLType:     f.SQLType(),
		Required:    f.Required,
		Unique:      f.Unique,
		Index:       f.Index,
		Lookup:      f.Unique,
		Default:     f.DefaultValue,
		DefaultFunc: f.DefaultFunc,
		Ref:         f.RelationTo,
		HasMany:     f.HasMany,
		MinRows:     f.MinRows,
		MaxRows:     f.MaxRows,
		Editor:      f.Editor,
		Position:    f.Admin.Placement(),
		Tab:         tab,
		Picker:      f.Admin.Date.PickerAppearance,
		Description: f.Admin.Description,
		Hooks:       f.Hooks,
	}

	if field.Label == "" {
		field.Label = Labelize(f.Name)
	}

	if f.Type == schema.FieldTypeSelect {
		field.Options = f.OptionValues()
	}

	if f.Type == schema.FieldTypeRichText && field.Editor == "" {
		field.Editor = schema.EditorLexical
	}

	if f.Type == schema.FieldTypeDate && field.Picker == "" {
		field.Picker = schema.PickerDayOnly
	}

	for i := range f.Fields {
		field.Rows = append(field.Rows, deriveField(&f.Fields[i], ""))
	}

	return field
}

// deriveLookups extracts all lookup field names.
func deriveLookups(fields []DerivedField) []string {
	lookups := make([]string, 0)

	for _, f := range fields {
		if f.Lookup {
			lookups = append(lookups, f.Name)
		}
	}

	return lookups
}
