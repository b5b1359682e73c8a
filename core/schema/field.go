package schema

import "time"

// Field defines a data field in a collection.
type Field struct {
	// Name is the document key. Empty only for presentational fields (tabs).
	Name string `yaml:"name,omitempty"`

	// Type is the field type. See FieldType constants.
	Type FieldType `yaml:"type"`

	// Label is shown in the admin UI. Derived from Name when empty.
	Label string `yaml:"label,omitempty"`

	// Required indicates this field must hold a value after defaults apply.
	Required bool `yaml:"required,omitempty"`

	// Unique indicates this field must have unique values across documents.
	Unique bool `yaml:"unique,omitempty"`

	// Index creates a database index on this field.
	Index bool `yaml:"index,omitempty"`

	// DefaultValue is a static value used when a new document omits the field.
	DefaultValue any `yaml:"default,omitempty"`

	// DefaultFunc computes the default for a new document.
	// It is called once per created document and never on update.
	DefaultFunc DefaultFunc `yaml:"-"`

	// Options lists the choices of a select field.
	Options []Option `yaml:"options,omitempty"`

	// RelationTo is the target collection slug of relationship and upload fields.
	RelationTo string `yaml:"relationTo,omitempty"`

	// HasMany allows a relationship field to hold several references.
	HasMany bool `yaml:"hasMany,omitempty"`

	// MinRows and MaxRows bound the number of rows of an array field.
	// Zero means unbounded.
	MinRows int `yaml:"minRows,omitempty"`
	MaxRows int `yaml:"maxRows,omitempty"`

	// Fields are the row fields of an array field.
	Fields []Field `yaml:"fields,omitempty"`

	// Tabs are the sections of a tabs field.
	Tabs []Tab `yaml:"tabs,omitempty"`

	// Editor names the rich text editor for richText fields.
	Editor string `yaml:"editor,omitempty"`

	// Admin holds presentation hints for the admin UI.
	Admin FieldAdmin `yaml:"admin,omitempty"`

	// Hooks run while a document is being written.
	Hooks FieldHooks `yaml:"-"`
}

// FieldType represents the type of a collection field.
type FieldType string

const (
	FieldTypeText     FieldType = "text"
	FieldTypeTextarea FieldType = "textarea"
	FieldTypeEmail    FieldType = "email"
	FieldTypeNumber   FieldType = "number"
	FieldTypeRichText FieldType = "richText"
	FieldTypeDate     FieldType = "date"
	FieldTypeSelect   FieldType = "select"

	// Reference types
	FieldTypeUpload       FieldType = "upload"       // Requires RelationTo (upload collection)
	FieldTypeRelationship FieldType = "relationship" // Requires RelationTo

	// Structural types
	FieldTypeArray FieldType = "array" // Requires Fields
	FieldTypeTabs  FieldType = "tabs"  // Requires Tabs, holds no data itself
)

// EditorLexical is the default rich text editor.
const EditorLexical = "lexical"

// Option is one choice of a select field.
type Option struct {
	Label string `yaml:"label" json:"label"`
	Value string `yaml:"value" json:"value"`
}

// Tab is a labelled section of a tabs field.
type Tab struct {
	Label       string  `yaml:"label"`
	Description string  `yaml:"description,omitempty"`
	Fields      []Field `yaml:"fields"`
}

// Position places a field in the admin edit view.
type Position string

const (
	PositionMain    Position = "main"
	PositionSidebar Position = "sidebar"
)

// Date picker appearances.
const (
	PickerDayAndTime = "dayAndTime"
	PickerDayOnly    = "dayOnly"
	PickerTimeOnly   = "timeOnly"
	PickerMonthOnly  = "monthOnly"
)

// FieldAdmin holds admin UI hints for a field.
type FieldAdmin struct {
	// Position is main (default) or sidebar.
	Position Position `yaml:"position,omitempty"`

	// Description is help text rendered under the input.
	Description string `yaml:"description,omitempty"`

	// Date configures the date picker of date fields.
	Date DateAdmin `yaml:"date,omitempty"`
}

// DateAdmin configures a date picker.
type DateAdmin struct {
	PickerAppearance string `yaml:"pickerAppearance,omitempty"`
}

// Placement returns the effective position, treating the zero value as main.
func (a FieldAdmin) Placement() Position {
	if a.Position == "" {
		return PositionMain
	}
	return a.Position
}

// DefaultContext is passed to default providers.
type DefaultContext struct {
	// Now is the creation instant of the document being built.
	Now time.Time

	// User is the caller creating the document, nil when anonymous.
	User *User
}

// DefaultFunc computes a default value for a new document.
type DefaultFunc func(ctx DefaultContext) any

// Now is a DefaultFunc returning the creation instant.
func Now(ctx DefaultContext) any {
	return ctx.Now
}

// Operation identifies the write in progress.
type Operation string

const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
)

// FieldHookArgs is passed to field hooks.
type FieldHookArgs struct {
	// Value is the incoming value of the field (nil when absent).
	Value any

	// Data is the full incoming document data.
	Data map[string]any

	// Original is the stored document on update, nil on create.
	Original map[string]any

	// Operation is create or update.
	Operation Operation
}

// FieldHook transforms a field value before validation.
// Returning nil leaves the field absent.
type FieldHook func(args FieldHookArgs) (any, error)

// FieldHooks groups the hooks of a field.
type FieldHooks struct {
	BeforeValidate []FieldHook
}

// HasData reports whether the field stores a value in documents.
func (f Field) HasData() bool {
	return f.Type != FieldTypeTabs
}

// HasDefault reports whether a new document gets a value when the field is omitted.
func (f Field) HasDefault() bool {
	return f.DefaultValue != nil || f.DefaultFunc != nil
}

// OptionValues returns the values of a select field's options.
func (f Field) OptionValues() []string {
	values := make([]string, len(f.Options))
	for i, o := range f.Options {
		values[i] = o.Value
	}
	return values
}

// IsReference reports whether the field points at documents of another collection.
func (f Field) IsReference() bool {
	return f.Type == FieldTypeRelationship || f.Type == FieldTypeUpload
}

// SQLType returns the SQLite column type for this field.
func (f Field) SQLType() string {
	switch f.Type {
	case FieldTypeNumber:
		return "REAL"
	default:
		// richText, array and hasMany relationships are stored as JSON text
		return "TEXT"
	}
}
