package collections

import "github.com/artpar/contentgate/core/schema"

// Media holds images referenced by posts. Documents describe a file that
// lives elsewhere; filename, mimeType, filesize and url come from the
// upload flag.
var Media = schema.Collection{
	Slug:   "media",
	Labels: schema.Labels{Singular: "Media", Plural: "Media"},
	Admin: schema.CollectionAdmin{
		UseAsTitle:     "filename",
		DefaultColumns: []string{"filename", "alt", "mimeType"},
	},
	Access: schema.Access{
		Read: schema.AllowAll,
	},
	Upload:     true,
	Timestamps: true,
	Fields: []schema.Field{
		{
			Name:     "alt",
			Type:     schema.FieldTypeText,
			Label:    "Alt Text",
			Required: true,
		},
	},
}

// All returns the built-in collections in dependency order: referenced
// collections come before the collections that reference them.
func All() []schema.Collection {
	return []schema.Collection{Users, Media, Posts}
}
