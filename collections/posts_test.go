package collections

import (
	"reflect"
	"testing"

	"github.com/artpar/contentgate/core/convention"
	"github.com/artpar/contentgate/core/schema"
)

func TestPosts_Valid(t *testing.T) {
	for _, col := range All() {
		if err := schema.Validate(col); err != nil {
			t.Errorf("Validate(%s) error = %v", col.Slug, err)
		}
	}
}

func TestPosts_Fields(t *testing.T) {
	want := []struct {
		name     string
		typ      schema.FieldType
		required bool
		tab      string
		position schema.Position
	}{
		{"title", schema.FieldTypeText, true, "", schema.PositionMain},
		{"content", schema.FieldTypeRichText, true, "Content", schema.PositionMain},
		{"metaTitle", schema.FieldTypeText, false, "Meta", schema.PositionMain},
		{"metaDescription", schema.FieldTypeTextarea, false, "Meta", schema.PositionMain},
		{"metaImage", schema.FieldTypeUpload, false, "Meta", schema.PositionMain},
		{"seoTitle", schema.FieldTypeText, false, "SEO", schema.PositionMain},
		{"seoDescription", schema.FieldTypeTextarea, false, "SEO", schema.PositionMain},
		{"seoKeywords", schema.FieldTypeArray, false, "SEO", schema.PositionMain},
		{"slug", schema.FieldTypeText, true, "", schema.PositionSidebar},
		{"publishedAt", schema.FieldTypeDate, false, "", schema.PositionSidebar},
		{"authors", schema.FieldTypeRelationship, false, "", schema.PositionSidebar},
		{"status", schema.FieldTypeSelect, true, "", schema.PositionSidebar},
	}

	derived := convention.Derive(Posts)

	var declared []convention.DerivedField
	for _, f := range derived.Fields {
		if !f.Implicit {
			declared = append(declared, f)
		}
	}
	if len(declared) != len(want) {
		t.Fatalf("declared fields = %d, want %d", len(declared), len(want))
	}

	for i, w := range want {
		f := declared[i]
		if f.Name != w.name || f.Type != w.typ || f.Required != w.required {
			t.Errorf("field %d = {%s %s required=%v}, want {%s %s required=%v}",
				i, f.Name, f.Type, f.Required, w.name, w.typ, w.required)
		}
		if f.Tab != w.tab {
			t.Errorf("%s tab = %q, want %q", f.Name, f.Tab, w.tab)
		}
		if f.Position != w.position {
			t.Errorf("%s position = %q, want %q", f.Name, f.Position, w.position)
		}
	}
}

func TestPosts_Collection(t *testing.T) {
	if Posts.Slug != "posts" {
		t.Errorf("Slug = %q, want posts", Posts.Slug)
	}
	if !Posts.Timestamps {
		t.Error("Timestamps should be enabled")
	}
	if Posts.Admin.UseAsTitle != "title" {
		t.Errorf("UseAsTitle = %q, want title", Posts.Admin.UseAsTitle)
	}
	wantColumns := []string{"title", "status", "publishedAt", "updatedAt"}
	if !reflect.DeepEqual(Posts.Admin.DefaultColumns, wantColumns) {
		t.Errorf("DefaultColumns = %v, want %v", Posts.Admin.DefaultColumns, wantColumns)
	}

	derived := convention.Derive(Posts)
	var tabs []string
	for _, tab := range derived.Tabs {
		tabs = append(tabs, tab.Label)
	}
	if !reflect.DeepEqual(tabs, []string{"Content", "Meta", "SEO"}) {
		t.Errorf("tabs = %v, want [Content Meta SEO]", tabs)
	}
}

func TestPosts_Constraints(t *testing.T) {
	derived := convention.Derive(Posts)

	status, _ := derived.Field("status")
	if !reflect.DeepEqual(status.Options, []string{"draft", "published", "archived"}) {
		t.Errorf("status options = %v", status.Options)
	}
	if status.Default != "draft" {
		t.Errorf("status default = %v, want draft", status.Default)
	}

	slug, _ := derived.Field("slug")
	if !slug.Unique || !slug.Required {
		t.Errorf("slug unique=%v required=%v, want both", slug.Unique, slug.Required)
	}

	keywords, _ := derived.Field("seoKeywords")
	if keywords.MinRows != 1 || keywords.MaxRows != 10 {
		t.Errorf("seoKeywords rows = [%d,%d], want [1,10]", keywords.MinRows, keywords.MaxRows)
	}
	if len(keywords.Rows) != 1 || keywords.Rows[0].Name != "keyword" || !keywords.Rows[0].Required {
		t.Errorf("seoKeywords rows = %+v, want one required keyword", keywords.Rows)
	}

	image, _ := derived.Field("metaImage")
	if image.Ref != "media" {
		t.Errorf("metaImage relationTo = %q, want media", image.Ref)
	}

	authors, _ := derived.Field("authors")
	if authors.Ref != "users" || authors.HasMany || authors.Label != "Author(s)" {
		t.Errorf("authors = {ref %q hasMany %v label %q}", authors.Ref, authors.HasMany, authors.Label)
	}

	published, _ := derived.Field("publishedAt")
	if published.DefaultFunc == nil {
		t.Error("publishedAt should have a default provider")
	}
	if published.Picker != schema.PickerDayAndTime {
		t.Errorf("publishedAt picker = %q, want dayAndTime", published.Picker)
	}

	content, _ := derived.Field("content")
	if content.Editor != schema.EditorLexical || content.Label != "Post Content" {
		t.Errorf("content = {editor %q label %q}", content.Editor, content.Label)
	}
}

func TestPosts_ReadAccess(t *testing.T) {
	read := Posts.Access.Rule("read")

	tests := []struct {
		name string
		user *schema.User
	}{
		{"anonymous", nil},
		{"editor", &schema.User{ID: "u1", Role: RoleEditor}},
		{"admin", &schema.User{ID: "u2", Role: RoleAdmin}},
	}
	for _, tt := range tests {
		if !read(schema.AccessArgs{User: tt.user}) {
			t.Errorf("read denied for %s", tt.name)
		}
	}

	// writes fall back to the authenticated default
	if Posts.Access.Rule("create")(schema.AccessArgs{}) {
		t.Error("anonymous create should be denied")
	}
}

func TestUsers_Access(t *testing.T) {
	admin := &schema.User{ID: "a", Role: RoleAdmin}
	editor := &schema.User{ID: "e", Role: RoleEditor}

	tests := []struct {
		name string
		op   string
		args schema.AccessArgs
		want bool
	}{
		{"admin creates", "create", schema.AccessArgs{User: admin}, true},
		{"editor creates", "create", schema.AccessArgs{User: editor}, false},
		{"editor updates self", "update", schema.AccessArgs{User: editor, ID: "e"}, true},
		{"editor updates other", "update", schema.AccessArgs{User: editor, ID: "a"}, false},
		{"admin updates other", "update", schema.AccessArgs{User: admin, ID: "e"}, true},
		{"anonymous reads", "read", schema.AccessArgs{}, false},
		{"editor deletes", "delete", schema.AccessArgs{User: editor, ID: "e"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Users.Access.Rule(tt.op)(tt.args); got != tt.want {
				t.Errorf("%s = %v, want %v", tt.op, got, tt.want)
			}
		})
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello World", "hello-world"},
		{"  Go 1.24: what's new?  ", "go-1-24-what-s-new"},
		{"Crème brûlée", "creme-brulee"},
		{"already-a-slug", "already-a-slug"},
		{"--Dashes--everywhere--", "dashes-everywhere"},
		{"!!!", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSlugFrom(t *testing.T) {
	hook := SlugFrom("title")

	tests := []struct {
		name string
		args schema.FieldHookArgs
		want any
	}{
		{
			name: "provided slug is formatted",
			args: schema.FieldHookArgs{Value: "My Custom Slug", Operation: schema.OperationCreate},
			want: "my-custom-slug",
		},
		{
			name: "blank slug from title",
			args: schema.FieldHookArgs{Value: "", Data: map[string]any{"title": "First Post"}, Operation: schema.OperationCreate},
			want: "first-post",
		},
		{
			name: "absent slug from title on create",
			args: schema.FieldHookArgs{Data: map[string]any{"title": "First Post"}, Operation: schema.OperationCreate},
			want: "first-post",
		},
		{
			name: "absent slug on update stays absent",
			args: schema.FieldHookArgs{Data: map[string]any{"title": "Renamed"}, Operation: schema.OperationUpdate},
			want: nil,
		},
		{
			name: "blank slug on update uses stored title",
			args: schema.FieldHookArgs{
				Value:     "",
				Data:      map[string]any{},
				Original:  map[string]any{"title": "Stored Title"},
				Operation: schema.OperationUpdate,
			},
			want: "stored-title",
		},
		{
			name: "nothing to derive from",
			args: schema.FieldHookArgs{Data: map[string]any{}, Operation: schema.OperationCreate},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := hook(tt.args)
			if err != nil {
				t.Fatalf("hook error = %v", err)
			}
			if got != tt.want {
				t.Errorf("hook() = %v, want %v", got, tt.want)
			}
		})
	}
}
