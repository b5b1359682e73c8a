package schema

// Introspection types served by GET /api/_schema. Clients use them to
// render list and edit views without knowing collections ahead of time.

// CollectionListResponse is returned by GET /api/_schema
type CollectionListResponse struct {
	Collections []CollectionSummary `json:"collections"`
	Count       int                 `json:"count"`
}

// CollectionSummary provides a brief overview of a collection.
type CollectionSummary struct {
	Slug        string `json:"slug"`
	Labels      Labels `json:"labels"`
	Group       string `json:"group,omitempty"`
	Description string `json:"description,omitempty"`
}

// CollectionSchemaResponse is returned by GET /api/_schema/{slug}
type CollectionSchemaResponse struct {
	Slug           string           `json:"slug"`
	Labels         Labels           `json:"labels"`
	Description    string           `json:"description,omitempty"`
	Table          string           `json:"table"`
	UseAsTitle     string           `json:"useAsTitle,omitempty"`
	DefaultColumns []string         `json:"defaultColumns,omitempty"`
	Timestamps     bool             `json:"timestamps"`
	Auth           bool             `json:"auth,omitempty"`
	Upload         bool             `json:"upload,omitempty"`
	Fields         []FieldSchema    `json:"fields"`
	Layout         LayoutSchema     `json:"layout"`
	Lookups        []string         `json:"lookups"`
	Endpoints      []EndpointSchema `json:"endpoints"`
}

// FieldSchema describes a collection field for introspection.
type FieldSchema struct {
	Name        string        `json:"name"`
	Type        string        `json:"type"`
	Label       string        `json:"label"`
	Required    bool          `json:"required"`
	Unique      bool          `json:"unique,omitempty"`
	Lookup      bool          `json:"lookup,omitempty"`
	Options     []Option      `json:"options,omitempty"`
	RelationTo  string        `json:"relationTo,omitempty"`
	HasMany     bool          `json:"hasMany,omitempty"`
	MinRows     int           `json:"minRows,omitempty"`
	MaxRows     int           `json:"maxRows,omitempty"`
	Default     any           `json:"default,omitempty"`
	DefaultNow  bool          `json:"defaultNow,omitempty"` // default computed at creation
	Editor      string        `json:"editor,omitempty"`
	Picker      string        `json:"pickerAppearance,omitempty"`
	Position    string        `json:"position"`
	Tab         string        `json:"tab,omitempty"`
	Description string        `json:"description,omitempty"`
	Implicit    bool          `json:"implicit,omitempty"` // host managed (id, createdAt, ...)
	ReadOnly    bool          `json:"readOnly,omitempty"`
	Fields      []FieldSchema `json:"fields,omitempty"` // array rows
}

// LayoutSchema is the edit view arrangement.
type LayoutSchema struct {
	Main    []string    `json:"main"`
	Tabs    []TabSchema `json:"tabs"`
	Sidebar []string    `json:"sidebar"`
}

// TabSchema is one tab of the edit view.
type TabSchema struct {
	Label       string   `json:"label"`
	Description string   `json:"description,omitempty"`
	Fields      []string `json:"fields"`
}

// EndpointSchema describes a full HTTP endpoint.
type EndpointSchema struct {
	Operation string `json:"operation"`
	Method    string `json:"method"`
	Path      string `json:"path"`
}
