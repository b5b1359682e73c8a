package collections

import "github.com/artpar/contentgate/core/schema"

// User roles.
const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
)

// Users are the authors and editors who log in to manage content.
// Email and password are added by the auth flag.
var Users = schema.Collection{
	Slug: "users",
	Admin: schema.CollectionAdmin{
		UseAsTitle:     "email",
		DefaultColumns: []string{"name", "email", "role"},
	},
	Access: schema.Access{
		Create: isAdmin,
		Update: isAdminOrSelf,
		Delete: isAdmin,
	},
	Auth:       true,
	Timestamps: true,
	Fields: []schema.Field{
		{
			Name: "name",
			Type: schema.FieldTypeText,
		},
		{
			Name: "role",
			Type: schema.FieldTypeSelect,
			Options: []schema.Option{
				{Label: "Admin", Value: RoleAdmin},
				{Label: "Editor", Value: RoleEditor},
			},
			DefaultValue: RoleEditor,
			Required:     true,
			Admin:        schema.FieldAdmin{Position: schema.PositionSidebar},
		},
	},
}

func isAdmin(args schema.AccessArgs) bool {
	return args.User != nil && args.User.Role == RoleAdmin
}

func isAdminOrSelf(args schema.AccessArgs) bool {
	if args.User == nil {
		return false
	}
	return args.User.Role == RoleAdmin || (args.ID != "" && args.ID == args.User.ID)
}
