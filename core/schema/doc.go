/*
Package schema defines the core types for declarative collection definitions.

A collection is a named document type. Its definition lists the fields a
document carries, how they are validated, how the admin UI lays them out,
and who may read or write documents. The definition is pure data: the host
runtime interprets it at startup to create storage, REST endpoints and the
admin layout.

# Collection Definition

Collections are usually declared in Go so that default providers, access
rules and hooks can be real functions:

	var Posts = schema.Collection{
		Slug:       "posts",
		Timestamps: true,
		Access:     schema.Access{Read: schema.AllowAll},
		Fields: []schema.Field{
			{Name: "title", Type: schema.FieldTypeText, Required: true},
			{Name: "slug", Type: schema.FieldTypeText, Required: true, Unique: true,
				Admin: schema.FieldAdmin{Position: schema.PositionSidebar}},
		},
	}

The same shape can be loaded from YAML:

	slug: tags
	timestamps: true
	access:
	  read: "true"
	  update: "user != nil && user.Role == 'admin'"
	fields:
	  - { name: name, type: text, required: true, unique: true }
	  - { name: createdOn, type: date, default: now }

Access rules in YAML are expr-lang expressions evaluated with `user`
(nil for anonymous callers) and `id` in scope. A date field with
`default: now` receives the creation instant.

# Field Types

  - text:         Single line string
  - textarea:     Multi line string
  - email:        Email address (validated)
  - number:       Numeric value
  - richText:     Structured rich text document (JSON object)
  - upload:       Reference to a document in an upload collection
  - relationship: Reference to a document in another collection
  - select:       One of a fixed set of options
  - date:         Date and time, stored as RFC 3339 UTC
  - array:        Ordered rows, each with its own fields
  - tabs:         Presentational grouping; tab fields live at the top level

# Layout

Fields sit in the main column by default. Admin.Position moves a field to the
sidebar. Tabs group fields into labelled sections of the main column.
*/
package schema
