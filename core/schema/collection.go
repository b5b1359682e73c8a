package schema

// Collection is the root definition of a document type.
// The host derives storage, endpoints and admin layout from it.
type Collection struct {
	// Slug names the collection in URLs and storage (e.g., "posts").
	Slug string `yaml:"slug"`

	// Labels are the human readable names. Derived from Slug when empty.
	Labels Labels `yaml:"labels,omitempty"`

	// Admin holds list and edit view hints.
	Admin CollectionAdmin `yaml:"admin,omitempty"`

	// Access decides who may read and write documents.
	Access Access `yaml:"-"`

	// Timestamps adds host managed createdAt and updatedAt fields.
	Timestamps bool `yaml:"timestamps,omitempty"`

	// Auth makes documents login-capable: email and password fields are added.
	Auth bool `yaml:"auth,omitempty"`

	// Upload marks a media collection: filename, mimeType, filesize and url are added.
	Upload bool `yaml:"upload,omitempty"`

	// Fields lists the fields in declaration order.
	Fields []Field `yaml:"fields"`

	// Description for documentation.
	Description string `yaml:"description,omitempty"`
}

// Labels are the singular and plural display names of a collection.
type Labels struct {
	Singular string `yaml:"singular,omitempty" json:"singular"`
	Plural   string `yaml:"plural,omitempty" json:"plural"`
}

// CollectionAdmin holds admin UI hints for a collection.
type CollectionAdmin struct {
	// UseAsTitle names the field shown as the document title.
	UseAsTitle string `yaml:"useAsTitle,omitempty"`

	// DefaultColumns are the fields shown in the list view.
	DefaultColumns []string `yaml:"defaultColumns,omitempty"`

	// Group places the collection under a navigation group.
	Group string `yaml:"group,omitempty"`
}

// Implicit field names managed by the host.
const (
	FieldID        = "id"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)
