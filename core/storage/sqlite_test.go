package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/artpar/contentgate/core/convention"
	"github.com/artpar/contentgate/core/schema"
	"github.com/mattn/go-sqlite3"
)

func testArticles() schema.Collection {
	return schema.Collection{
		Slug:       "articles",
		Timestamps: true,
		Fields: []schema.Field{
			{Name: "title", Type: schema.FieldTypeText, Required: true},
			{Name: "slug", Type: schema.FieldTypeText, Required: true, Unique: true, Index: true},
			{Name: "body", Type: schema.FieldTypeRichText},
			{Name: "rating", Type: schema.FieldTypeNumber},
			{Name: "status", Type: schema.FieldTypeSelect, Required: true, DefaultValue: "draft", Options: []schema.Option{
				{Label: "Draft", Value: "draft"}, {Label: "Published", Value: "published"},
			}},
			{Name: "publishedAt", Type: schema.FieldTypeDate},
			{Name: "author", Type: schema.FieldTypeRelationship, RelationTo: "writers"},
			{Name: "editors", Type: schema.FieldTypeRelationship, RelationTo: "writers", HasMany: true},
			{Name: "tags", Type: schema.FieldTypeArray, Fields: []schema.Field{
				{Name: "tag", Type: schema.FieldTypeText},
			}},
		},
	}
}

func testWriters() schema.Collection {
	return schema.Collection{
		Slug:   "writers",
		Fields: []schema.Field{{Name: "name", Type: schema.FieldTypeText}},
	}
}

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	for _, col := range []schema.Collection{testWriters(), testArticles()} {
		if err := store.CreateTable(ctx, convention.Derive(col)); err != nil {
			t.Fatalf("CreateTable(%s) failed: %v", col.Slug, err)
		}
	}

	return store
}

func TestSQLiteStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Create(ctx, "articles", map[string]any{
		"title":  "Hello",
		"slug":   "hello",
		"rating": 4,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if id == "" {
		t.Error("Create returned empty ID")
	}

	doc, err := store.Get(ctx, "articles", "id", id)
	if err != nil {
		t.Fatalf("Get by id failed: %v", err)
	}
	if doc["title"] != "Hello" {
		t.Errorf("title = %v, want Hello", doc["title"])
	}
	if doc["status"] != "draft" {
		t.Errorf("status = %v, want column default draft", doc["status"])
	}
	if rating, ok := doc["rating"].(float64); !ok || rating != 4 {
		t.Errorf("rating = %#v, want 4.0", doc["rating"])
	}

	doc, err = store.Get(ctx, "articles", "slug", "hello")
	if err != nil {
		t.Fatalf("Get by slug failed: %v", err)
	}
	if doc["id"] != id {
		t.Errorf("id = %v, want %v", doc["id"], id)
	}

	if err := store.Update(ctx, "articles", id, map[string]any{"status": "published"}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	doc, _ = store.Get(ctx, "articles", "id", id)
	if doc["status"] != "published" {
		t.Errorf("status = %v, want published", doc["status"])
	}

	if err := store.Delete(ctx, "articles", id); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, "articles", "id", id); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStore_DuplicateSlug(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Create(ctx, "articles", map[string]any{"title": "One", "slug": "same"}); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}

	_, err := store.Create(ctx, "articles", map[string]any{"title": "Two", "slug": "same"})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("second Create error = %v, want ErrDuplicate", err)
	}

	var dup *DuplicateError
	if !errors.As(err, &dup) {
		t.Fatalf("error %T is not a *DuplicateError", err)
	}
	if dup.Field != "slug" {
		t.Errorf("DuplicateError.Field = %q, want slug", dup.Field)
	}

	_, count, _ := store.List(ctx, "articles", ListOptions{})
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestSQLiteStore_DuplicateOnUpdate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	store.Create(ctx, "articles", map[string]any{"title": "One", "slug": "one"})
	id, _ := store.Create(ctx, "articles", map[string]any{"title": "Two", "slug": "two"})

	err := store.Update(ctx, "articles", id, map[string]any{"slug": "one"})
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("Update error = %v, want ErrDuplicate", err)
	}
}

func TestSQLiteStore_SelectCheck(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, "articles", map[string]any{"title": "x", "slug": "x", "status": "live"})
	if err == nil {
		t.Error("insert outside select options should violate the CHECK constraint")
	}
}

func TestSQLiteStore_JSONColumns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	body := map[string]any{"root": map[string]any{"type": "root", "children": []any{}}}
	tags := []any{map[string]any{"id": "r1", "tag": "go"}, map[string]any{"id": "r2", "tag": "sqlite"}}

	id, err := store.Create(ctx, "articles", map[string]any{
		"title": "JSON",
		"slug":  "json",
		"body":  body,
		"tags":  tags,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	doc, _ := store.Get(ctx, "articles", "id", id)

	gotBody, ok := doc["body"].(map[string]any)
	if !ok {
		t.Fatalf("body = %T, want map", doc["body"])
	}
	if root, ok := gotBody["root"].(map[string]any); !ok || root["type"] != "root" {
		t.Errorf("body.root = %v", gotBody["root"])
	}

	gotTags, ok := doc["tags"].([]any)
	if !ok || len(gotTags) != 2 {
		t.Fatalf("tags = %#v, want 2 rows", doc["tags"])
	}
	if row := gotTags[1].(map[string]any); row["tag"] != "sqlite" || row["id"] != "r2" {
		t.Errorf("tags[1] = %v", row)
	}
}

func TestSQLiteStore_Dates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	instant := time.Date(2024, 3, 1, 14, 30, 0, 0, time.FixedZone("CET", 3600))
	id, err := store.Create(ctx, "articles", map[string]any{
		"title":       "Dated",
		"slug":        "dated",
		"publishedAt": instant,
		"createdAt":   "2024-03-01T13:30:00Z",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	doc, _ := store.Get(ctx, "articles", "id", id)
	if doc["publishedAt"] != "2024-03-01T13:30:00.000Z" {
		t.Errorf("publishedAt = %v, want UTC millisecond form", doc["publishedAt"])
	}
	if doc["publishedAt"] != doc["createdAt"] {
		t.Errorf("same instant stored differently: %v vs %v", doc["publishedAt"], doc["createdAt"])
	}
}

func TestSQLiteStore_References(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	writer, err := store.Create(ctx, "writers", map[string]any{"name": "Ada"})
	if err != nil {
		t.Fatalf("Create writer failed: %v", err)
	}

	id, err := store.Create(ctx, "articles", map[string]any{
		"title":   "Ref",
		"slug":    "ref",
		"author":  writer,
		"editors": []any{writer},
	})
	if err != nil {
		t.Fatalf("Create with valid references failed: %v", err)
	}

	doc, _ := store.Get(ctx, "articles", "id", id)
	if editors, ok := doc["editors"].([]any); !ok || len(editors) != 1 || editors[0] != writer {
		t.Errorf("editors = %#v, want [%s]", doc["editors"], writer)
	}

	_, err = store.Create(ctx, "articles", map[string]any{"title": "Bad", "slug": "bad", "author": "missing"})
	var refErr *ReferenceError
	if !errors.As(err, &refErr) || refErr.Field != "author" || refErr.ID != "missing" {
		t.Errorf("error = %v, want ReferenceError for author", err)
	}

	err = store.Update(ctx, "articles", id, map[string]any{"editors": []any{writer, "ghost"}})
	if !errors.Is(err, ErrReference) {
		t.Errorf("Update error = %v, want ErrReference", err)
	}

	// deleting the writer clears the single reference
	if err := store.Delete(ctx, "writers", writer); err != nil {
		t.Fatalf("Delete writer failed: %v", err)
	}
	doc, _ = store.Get(ctx, "articles", "id", id)
	if doc["author"] != nil {
		t.Errorf("author = %v, want nil after target deleted", doc["author"])
	}
}

func TestSQLiteStore_DateFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, "articles", map[string]any{
		"title":       "Dated",
		"slug":        "dated",
		"publishedAt": time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	tests := []struct {
		name  string
		value any
		want  int64
	}{
		{"rfc3339 string", "2024-03-01T10:30:00Z", 1},
		{"offset string", "2024-03-01T11:30:00+01:00", 1},
		{"stored form", "2024-03-01T10:30:00.000Z", 1},
		{"time value", time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC), 1},
		{"other instant", "2024-03-02T10:30:00Z", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, total, err := store.List(ctx, "articles", ListOptions{Filters: map[string]any{"publishedAt": tt.value}})
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if total != tt.want {
				t.Errorf("total = %d, want %d", total, tt.want)
			}
		})
	}

	_, _, err = store.List(ctx, "articles", ListOptions{Filters: map[string]any{"publishedAt": "yesterday"}})
	if !errors.Is(err, ErrInvalidQuery) {
		t.Errorf("error = %v, want ErrInvalidQuery", err)
	}
}

func TestTranslateError_ForeignKey(t *testing.T) {
	col := convention.Derive(testArticles())
	fkErr := sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintForeignKey}

	err := translateError(col, "insert", fkErr)
	if !errors.Is(err, ErrReference) {
		t.Fatalf("error = %v, want ErrReference", err)
	}
	var refErr *ReferenceError
	if errors.As(err, &refErr) {
		t.Errorf("error = %#v, must not claim a field", refErr)
	}
}

func TestSQLiteStore_List(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		status := "draft"
		if i%2 == 0 {
			status = "published"
		}
		_, err := store.Create(ctx, "articles", map[string]any{
			"title":     fmt.Sprintf("Post %d", i),
			"slug":      fmt.Sprintf("post-%d", i),
			"status":    status,
			"rating":    float64(i),
			"createdAt": time.Date(2024, 1, i, 0, 0, 0, 0, time.UTC),
		})
		if err != nil {
			t.Fatalf("Create %d failed: %v", i, err)
		}
	}

	docs, count, err := store.List(ctx, "articles", ListOptions{Limit: 2})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if count != 5 || len(docs) != 2 {
		t.Fatalf("count/len = %d/%d, want 5/2", count, len(docs))
	}
	if docs[0]["slug"] != "post-1" {
		t.Errorf("first doc = %v, want post-1 (createdAt order)", docs[0]["slug"])
	}

	docs, _, _ = store.List(ctx, "articles", ListOptions{Limit: 2, Offset: 4})
	if len(docs) != 1 || docs[0]["slug"] != "post-5" {
		t.Errorf("last page = %v", docs)
	}

	docs, _, _ = store.List(ctx, "articles", ListOptions{OrderBy: "rating", OrderDesc: true})
	if docs[0]["slug"] != "post-5" {
		t.Errorf("rating desc first = %v, want post-5", docs[0]["slug"])
	}

	docs, count, err = store.List(ctx, "articles", ListOptions{Filters: map[string]any{"status": "published"}})
	if err != nil {
		t.Fatalf("List with filter failed: %v", err)
	}
	if count != 2 || len(docs) != 2 {
		t.Errorf("filtered count/len = %d/%d, want 2/2", count, len(docs))
	}

	if _, _, err := store.List(ctx, "articles", ListOptions{OrderBy: "nope"}); !errors.Is(err, ErrInvalidQuery) {
		t.Errorf("unknown sort error = %v, want ErrInvalidQuery", err)
	}
	if _, _, err := store.List(ctx, "articles", ListOptions{Filters: map[string]any{"nope": 1}}); !errors.Is(err, ErrInvalidQuery) {
		t.Errorf("unknown filter error = %v, want ErrInvalidQuery", err)
	}
}

func TestSQLiteStore_NotFound(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Update(ctx, "articles", "missing", map[string]any{"title": "x"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update error = %v, want ErrNotFound", err)
	}
	if err := store.Update(ctx, "articles", "missing", map[string]any{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("empty Update error = %v, want ErrNotFound", err)
	}
	if err := store.Delete(ctx, "articles", "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete error = %v, want ErrNotFound", err)
	}
	if _, err := store.Get(ctx, "articles", "title", "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get error = %v, want ErrNotFound", err)
	}
	if _, err := store.Get(ctx, "articles", "nope", "x"); !errors.Is(err, ErrInvalidQuery) {
		t.Errorf("Get unknown lookup error = %v, want ErrInvalidQuery", err)
	}
	if _, err := store.Get(ctx, "pages", "id", "x"); err == nil {
		t.Error("Get on unregistered collection should fail")
	}
}

func TestBuildCreateTableSQL(t *testing.T) {
	sql := BuildCreateTableSQL(convention.Derive(testArticles()), map[string]string{"writers": "writers"})

	expectedParts := []string{
		`CREATE TABLE IF NOT EXISTS "articles"`,
		`"id" TEXT PRIMARY KEY`,
		`"title" TEXT NOT NULL`,
		`"rating" REAL`,
		`"status" TEXT NOT NULL DEFAULT 'draft'`,
		`"createdAt" TEXT`,
		`"updatedAt" TEXT`,
		`UNIQUE("slug")`,
		`FOREIGN KEY("author") REFERENCES "writers"(id) ON DELETE SET NULL`,
		`CHECK("status" IN ('draft', 'published'))`,
	}

	for _, part := range expectedParts {
		if !strings.Contains(sql, part) {
			t.Errorf("SQL missing expected part: %s\nGot: %s", part, sql)
		}
	}

	if strings.Contains(sql, `FOREIGN KEY("editors")`) {
		t.Error("hasMany relationship should not get a foreign key")
	}
}

func TestBuildIndexSQL(t *testing.T) {
	indexes := BuildIndexSQL(convention.Derive(testArticles()))

	if len(indexes) != 1 {
		t.Fatalf("len(indexes) = %d, want 1 (createdAt)", len(indexes))
	}
	if !strings.Contains(indexes[0], `"idx_articles_createdAt"`) {
		t.Errorf("unexpected index: %s", indexes[0])
	}
}

func TestFormatTime(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		want    string
		wantErr bool
	}{
		{"time", time.Date(2024, 5, 6, 7, 8, 9, 500_000_000, time.UTC), "2024-05-06T07:08:09.500Z", false},
		{"offset string", "2024-05-06T09:08:09+02:00", "2024-05-06T07:08:09.000Z", false},
		{"garbage", "soon", "", true},
		{"number", 12, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatTime(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("FormatTime() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("FormatTime() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUniqueField(t *testing.T) {
	if got := uniqueField("UNIQUE constraint failed: posts.slug"); got != "slug" {
		t.Errorf("uniqueField() = %q, want slug", got)
	}
	if got := uniqueField("no dot"); got != "" {
		t.Errorf("uniqueField() = %q, want empty", got)
	}
}
