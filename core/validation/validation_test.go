package validation

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/artpar/contentgate/core/convention"
	"github.com/artpar/contentgate/core/schema"
)

func testCollection() schema.Collection {
	return schema.Collection{
		Slug:       "articles",
		Timestamps: true,
		Fields: []schema.Field{
			{Name: "title", Type: schema.FieldTypeText, Required: true},
			{Name: "summary", Type: schema.FieldTypeTextarea},
			{Name: "body", Type: schema.FieldTypeRichText, Editor: schema.EditorLexical},
			{Name: "contact", Type: schema.FieldTypeEmail},
			{Name: "rating", Type: schema.FieldTypeNumber},
			{Name: "publishedAt", Type: schema.FieldTypeDate},
			{Name: "status", Type: schema.FieldTypeSelect, Required: true, Options: []schema.Option{
				{Label: "Draft", Value: "draft"}, {Label: "Published", Value: "published"},
			}},
			{Name: "cover", Type: schema.FieldTypeUpload, RelationTo: "media"},
			{Name: "editors", Type: schema.FieldTypeRelationship, RelationTo: "users", HasMany: true},
			{Name: "keywords", Type: schema.FieldTypeArray, MinRows: 1, MaxRows: 3, Fields: []schema.Field{
				{Name: "keyword", Type: schema.FieldTypeText, Required: true},
			}},
		},
	}
}

func newTestValidator() *Validator {
	return New(map[string]convention.Derived{
		"articles": convention.Derive(testCollection()),
	})
}

func validDoc() map[string]any {
	return map[string]any{
		"title":  "Hello",
		"status": "draft",
	}
}

func TestValidateCreate_UnknownCollection(t *testing.T) {
	v := newTestValidator()

	result := v.ValidateCreate("pages", validDoc())
	if result.Valid {
		t.Fatal("expected invalid result for unknown collection")
	}
	if result.Errors[0].Field != "_collection" {
		t.Errorf("Field = %q, want _collection", result.Errors[0].Field)
	}
}

func TestValidateCreate_ValidData(t *testing.T) {
	v := newTestValidator()

	doc := map[string]any{
		"title":       "Hello",
		"summary":     "A greeting",
		"body":        map[string]any{"root": map[string]any{"type": "root", "children": []any{}}},
		"contact":     "editor@example.com",
		"rating":      4.5,
		"publishedAt": "2024-03-01T12:30:00Z",
		"status":      "published",
		"cover":       "m1",
		"editors":     []any{"u1", "u2"},
		"keywords":    []any{map[string]any{"keyword": "go"}},
	}

	result := v.ValidateCreate("articles", doc)
	if !result.Valid {
		t.Errorf("expected valid result, got errors: %s", result.Error())
	}
}

func TestValidateCreate_RequiredFields(t *testing.T) {
	v := newTestValidator()

	tests := []struct {
		name  string
		title any
	}{
		{"absent", nil},
		{"empty string", ""},
		{"whitespace", "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := validDoc()
			if tt.title == nil {
				delete(doc, "title")
			} else {
				doc["title"] = tt.title
			}

			result := v.ValidateCreate("articles", doc)
			if !result.HasError("title", schema.ConstraintRequired) {
				t.Errorf("expected required error for title, got: %s", result.Error())
			}
		})
	}
}

func TestValidateCreate_UnknownFields(t *testing.T) {
	v := newTestValidator()

	doc := validDoc()
	doc["subtitle"] = "nope"

	result := v.ValidateCreate("articles", doc)
	if !result.HasError("subtitle", schema.ConstraintUnknownField) {
		t.Errorf("expected unknown_field error, got: %s", result.Error())
	}
}

func TestValidateCreate_ReadOnlyFieldsIgnored(t *testing.T) {
	v := newTestValidator()

	doc := validDoc()
	doc["id"] = 42
	doc["createdAt"] = "not a date"

	result := v.ValidateCreate("articles", doc)
	if !result.Valid {
		t.Errorf("read-only fields should not be validated, got: %s", result.Error())
	}
}

func TestValidateCreate_FieldTypes(t *testing.T) {
	v := newTestValidator()

	tests := []struct {
		name       string
		field      string
		value      any
		constraint string
	}{
		{"text not string", "summary", 12, schema.ConstraintType},
		{"bad email", "contact", "not-an-email", schema.ConstraintType},
		{"email not string", "contact", true, schema.ConstraintType},
		{"number as string", "rating", "five", schema.ConstraintType},
		{"rich text as string", "body", "<p>hi</p>", schema.ConstraintType},
		{"lexical without root", "body", map[string]any{"children": []any{}}, schema.ConstraintType},
		{"bad date", "publishedAt", "yesterday", schema.ConstraintType},
		{"date as number", "publishedAt", 1700000000, schema.ConstraintType},
		{"select outside options", "status", "archived", schema.ConstraintOption},
		{"select not string", "status", 1, schema.ConstraintOption},
		{"upload not string", "cover", 7, schema.ConstraintType},
		{"hasMany not list", "editors", "u1", schema.ConstraintType},
		{"array not list", "keywords", "go", schema.ConstraintType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := validDoc()
			doc[tt.field] = tt.value

			result := v.ValidateCreate("articles", doc)
			if !result.HasError(tt.field, tt.constraint) {
				t.Errorf("expected %s error on %s, got: %s", tt.constraint, tt.field, result.Error())
			}
		})
	}
}

func TestValidateCreate_AcceptedShapes(t *testing.T) {
	v := newTestValidator()

	tests := []struct {
		name  string
		field string
		value any
	}{
		{"date as time.Time", "publishedAt", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
		{"date with offset", "publishedAt", "2024-01-02T03:04:05+02:00"},
		{"number as int", "rating", 3},
		{"number as json.Number", "rating", json.Number("3.5")},
		{"ids as []string", "editors", []string{"u1"}},
		{"rows as []map", "keywords", []map[string]any{{"keyword": "a"}}},
		{"row with id", "keywords", []any{map[string]any{"id": "r1", "keyword": "a"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := validDoc()
			doc[tt.field] = tt.value

			result := v.ValidateCreate("articles", doc)
			if !result.Valid {
				t.Errorf("expected valid, got: %s", result.Error())
			}
		})
	}
}

func keywordRows(n int) []any {
	rows := make([]any, n)
	for i := range rows {
		rows[i] = map[string]any{"keyword": "k"}
	}
	return rows
}

func TestValidateCreate_RowBounds(t *testing.T) {
	v := newTestValidator()

	tests := []struct {
		name       string
		rows       any
		constraint string
	}{
		{"absent", nil, ""},
		{"empty", []any{}, schema.ConstraintMinRows},
		{"one", keywordRows(1), ""},
		{"three", keywordRows(3), ""},
		{"four", keywordRows(4), schema.ConstraintMaxRows},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := validDoc()
			if tt.rows != nil {
				doc["keywords"] = tt.rows
			}

			result := v.ValidateCreate("articles", doc)
			if tt.constraint == "" {
				if !result.Valid {
					t.Errorf("expected valid, got: %s", result.Error())
				}
				return
			}
			if !result.HasError("keywords", tt.constraint) {
				t.Errorf("expected %s error, got: %s", tt.constraint, result.Error())
			}
		})
	}
}

func TestValidateCreate_RowFields(t *testing.T) {
	v := newTestValidator()

	doc := validDoc()
	doc["keywords"] = []any{
		map[string]any{"keyword": "go"},
		map[string]any{"keyword": 5},
		map[string]any{},
		"bare",
	}

	result := v.ValidateCreate("articles", doc)
	if !result.HasError("keywords", schema.ConstraintMaxRows) {
		t.Errorf("expected max_rows error, got: %s", result.Error())
	}
	if !result.HasError("keywords.1.keyword", schema.ConstraintType) {
		t.Errorf("expected type error at keywords.1.keyword, got: %s", result.Error())
	}
	if !result.HasError("keywords.2.keyword", schema.ConstraintRequired) {
		t.Errorf("expected required error at keywords.2.keyword, got: %s", result.Error())
	}
	if !result.HasError("keywords.3", schema.ConstraintType) {
		t.Errorf("expected type error at keywords.3, got: %s", result.Error())
	}
}

func TestValidateCreate_RowUnknownField(t *testing.T) {
	v := newTestValidator()

	doc := validDoc()
	doc["keywords"] = []any{map[string]any{"keyword": "go", "weight": 2}}

	result := v.ValidateCreate("articles", doc)
	if !result.HasError("keywords.0.weight", schema.ConstraintUnknownField) {
		t.Errorf("expected unknown_field at keywords.0.weight, got: %s", result.Error())
	}
}

func TestValidateCreate_HasManyElements(t *testing.T) {
	v := newTestValidator()

	doc := validDoc()
	doc["editors"] = []any{"u1", ""}

	result := v.ValidateCreate("articles", doc)
	if !result.HasError("editors.1", schema.ConstraintType) {
		t.Errorf("expected type error at editors.1, got: %s", result.Error())
	}
}

func TestValidateUpdate_OnlyProvidedFields(t *testing.T) {
	v := newTestValidator()

	result := v.ValidateUpdate("articles", map[string]any{"summary": "new"})
	if !result.Valid {
		t.Errorf("partial update should be valid, got: %s", result.Error())
	}
}

func TestValidateUpdate_RequiredCannotBeCleared(t *testing.T) {
	v := newTestValidator()

	result := v.ValidateUpdate("articles", map[string]any{"title": ""})
	if !result.HasError("title", schema.ConstraintRequired) {
		t.Errorf("expected required error, got: %s", result.Error())
	}
}

func TestValidateUpdate_OptionalCanBeCleared(t *testing.T) {
	v := newTestValidator()

	result := v.ValidateUpdate("articles", map[string]any{"summary": nil, "keywords": nil})
	if !result.Valid {
		t.Errorf("clearing optional fields should be valid, got: %s", result.Error())
	}
}

func TestValidateUpdate_Errors(t *testing.T) {
	v := newTestValidator()

	result := v.ValidateUpdate("articles", map[string]any{
		"status":   "live",
		"keywords": []any{},
		"extra":    1,
	})

	if !result.HasError("status", schema.ConstraintOption) {
		t.Error("expected option error on status")
	}
	if !result.HasError("keywords", schema.ConstraintMinRows) {
		t.Error("expected min_rows error on keywords")
	}
	if !result.HasError("extra", schema.ConstraintUnknownField) {
		t.Error("expected unknown_field error on extra")
	}
}

func TestValidateUpdate_UnknownCollection(t *testing.T) {
	v := newTestValidator()

	if result := v.ValidateUpdate("pages", map[string]any{}); result.Valid {
		t.Error("expected invalid result for unknown collection")
	}
}

func TestUpdateCollections(t *testing.T) {
	v := New(map[string]convention.Derived{})

	if result := v.ValidateCreate("articles", validDoc()); result.Valid {
		t.Fatal("expected unknown collection before update")
	}

	v.UpdateCollections(map[string]convention.Derived{
		"articles": convention.Derive(testCollection()),
	})

	if result := v.ValidateCreate("articles", validDoc()); !result.Valid {
		t.Errorf("expected valid after update, got: %s", result.Error())
	}
}

func TestValidateField(t *testing.T) {
	d := convention.Derive(testCollection())
	status, _ := d.Field("status")
	keywords, _ := d.Field("keywords")

	if result := ValidateField(status, nil); !result.HasError("status", schema.ConstraintRequired) {
		t.Error("nil required field should fail")
	}
	if result := ValidateField(status, "published"); !result.Valid {
		t.Errorf("valid option rejected: %s", result.Error())
	}
	if result := ValidateField(keywords, []any{}); !result.HasError("keywords", schema.ConstraintMinRows) {
		t.Error("empty rows should fail min_rows")
	}
	if result := ValidateField(keywords, nil); !result.Valid {
		t.Error("absent optional array should be valid")
	}
}
