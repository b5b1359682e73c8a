// Package collections holds the document types served by contentgate:
// posts, the users who write them and the media they reference.
package collections

import "github.com/artpar/contentgate/core/schema"

// Post status values.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusArchived  = "archived"
)

// Posts is the blog post collection.
var Posts = schema.Collection{
	Slug: "posts",
	Admin: schema.CollectionAdmin{
		UseAsTitle:     "title",
		DefaultColumns: []string{"title", "status", "publishedAt", "updatedAt"},
	},
	Access: schema.Access{
		Read: schema.AllowAll,
	},
	Timestamps: true,
	Fields: []schema.Field{
		{
			Name:     "title",
			Type:     schema.FieldTypeText,
			Required: true,
			Label:    "Title",
		},
		{
			Type: schema.FieldTypeTabs,
			Tabs: []schema.Tab{
				{
					Label: "Content",
					Fields: []schema.Field{
						{
							Name:     "content",
							Type:     schema.FieldTypeRichText,
							Required: true,
							Editor:   schema.EditorLexical,
							Label:    "Post Content",
						},
					},
				},
				{
					Label: "Meta",
					Fields: []schema.Field{
						{
							Name:  "metaTitle",
							Type:  schema.FieldTypeText,
							Label: "Meta Title",
							Admin: schema.FieldAdmin{
								Description: "Title used for social sharing and search engines. If empty, the main title will be used.",
							},
						},
						{
							Name:  "metaDescription",
							Type:  schema.FieldTypeTextarea,
							Label: "Meta Description",
							Admin: schema.FieldAdmin{
								Description: "Brief description for social sharing and search engines.",
							},
						},
						{
							Name:       "metaImage",
							Type:       schema.FieldTypeUpload,
							RelationTo: "media",
							Label:      "Meta Image",
							Admin: schema.FieldAdmin{
								Description: "Image used when sharing the post on social media.",
							},
						},
					},
				},
				{
					Label: "SEO",
					Fields: []schema.Field{
						{
							Name:  "seoTitle",
							Type:  schema.FieldTypeText,
							Label: "SEO Title",
							Admin: schema.FieldAdmin{
								Description: "Custom title for SEO purposes. Overrides Meta Title if set.",
							},
						},
						{
							Name:  "seoDescription",
							Type:  schema.FieldTypeTextarea,
							Label: "SEO Description",
							Admin: schema.FieldAdmin{
								Description: "Custom description for SEO purposes. Overrides Meta Description if set.",
							},
						},
						{
							Name:    "seoKeywords",
							Type:    schema.FieldTypeArray,
							Label:   "SEO Keywords",
							MinRows: 1,
							MaxRows: 10,
							Fields: []schema.Field{
								{
									Name:     "keyword",
									Type:     schema.FieldTypeText,
									Label:    "Keyword",
									Required: true,
								},
							},
							Admin: schema.FieldAdmin{
								Description: "Relevant keywords for search engine optimization.",
							},
						},
					},
				},
			},
		},

		// sidebar
		{
			Name:     "slug",
			Type:     schema.FieldTypeText,
			Required: true,
			Unique:   true,
			Label:    "Slug",
			Admin: schema.FieldAdmin{
				Position:    schema.PositionSidebar,
				Description: "URL-friendly identifier. Auto-generated if left blank, but can be customized.",
			},
			Hooks: schema.FieldHooks{
				BeforeValidate: []schema.FieldHook{SlugFrom("title")},
			},
		},
		{
			Name:  "publishedAt",
			Type:  schema.FieldTypeDate,
			Label: "Published At",
			Admin: schema.FieldAdmin{
				Position: schema.PositionSidebar,
				Date: schema.DateAdmin{
					PickerAppearance: schema.PickerDayAndTime,
				},
				Description: "Set a specific publish date and time. If in the future, the post will be scheduled.",
			},
			DefaultFunc: schema.Now,
		},
		{
			Name:       "authors",
			Type:       schema.FieldTypeRelationship,
			RelationTo: "users",
			HasMany:    false,
			Label:      "Author(s)",
			Admin: schema.FieldAdmin{
				Position: schema.PositionSidebar,
			},
		},
		{
			Name: "status",
			Type: schema.FieldTypeSelect,
			Options: []schema.Option{
				{Label: "Draft", Value: StatusDraft},
				{Label: "Published", Value: StatusPublished},
				{Label: "Archived", Value: StatusArchived},
			},
			DefaultValue: StatusDraft,
			Required:     true,
			Label:        "Status",
			Admin: schema.FieldAdmin{
				Position: schema.PositionSidebar,
			},
		},
	},
}
