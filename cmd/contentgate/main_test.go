package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/artpar/contentgate/collections"
	"github.com/artpar/contentgate/core/schema"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	schemaFormat, schemaDir = "yaml", ""
	missing := filepath.Join(t.TempDir(), "missing.yaml")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config", missing}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatalf("version error: %v", err)
	}
	if !strings.HasPrefix(out, "contentgate ") {
		t.Errorf("output = %q", out)
	}
}

func TestSchemaCommand_List(t *testing.T) {
	out, err := run(t, "schema")
	if err != nil {
		t.Fatalf("schema error: %v", err)
	}
	for _, slug := range []string{"media", "posts", "users"} {
		if !strings.Contains(out, slug) {
			t.Errorf("output missing %s:\n%s", slug, out)
		}
	}
}

func TestSchemaCommand_YAML(t *testing.T) {
	out, err := run(t, "schema", "posts")
	if err != nil {
		t.Fatalf("schema error: %v", err)
	}

	col, err := schema.Parse([]byte(out))
	if err != nil {
		t.Fatalf("output does not parse: %v\n%s", err, out)
	}
	if col.Slug != "posts" || len(col.Fields) != len(collections.Posts.Fields) {
		t.Errorf("parsed = %s with %d fields", col.Slug, len(col.Fields))
	}
}

func TestSchemaCommand_JSON(t *testing.T) {
	out, err := run(t, "schema", "posts", "--format", "json")
	if err != nil {
		t.Fatalf("schema error: %v", err)
	}

	var resp schema.CollectionSchemaResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Layout.Tabs) != 3 || len(resp.Layout.Sidebar) != 4 {
		t.Errorf("layout = %+v", resp.Layout)
	}
}

func TestSchemaCommand_Errors(t *testing.T) {
	if _, err := run(t, "schema", "widgets"); err == nil {
		t.Error("unknown collection should fail")
	}
	if _, err := run(t, "schema", "posts", "--format", "xml"); err == nil {
		t.Error("unknown format should fail")
	}
}

func TestSchemaCommand_Dir(t *testing.T) {
	dir := t.TempDir()
	yaml := "slug: tags\nfields:\n  - name: label\n    type: text\n"
	if err := os.WriteFile(filepath.Join(dir, "tags.yaml"), []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "schema", "--dir", dir)
	if err != nil {
		t.Fatalf("schema error: %v", err)
	}
	if !strings.Contains(out, "tags") {
		t.Errorf("output missing tags:\n%s", out)
	}
}

func TestValidateCommand(t *testing.T) {
	out, err := run(t, "validate")
	if err != nil {
		t.Fatalf("validate error: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Collection posts") || !strings.Contains(out, "Configuration is valid") {
		t.Errorf("output = %s", out)
	}
}

func TestValidateCommand_DanglingRelation(t *testing.T) {
	dir := t.TempDir()
	yaml := "slug: comments\nfields:\n  - name: post\n    type: relationship\n    relationTo: articles\n"
	if err := os.WriteFile(filepath.Join(dir, "comments.yaml"), []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONTENTGATE_COLLECTIONS_DIR", dir)

	if _, err := run(t, "validate"); err == nil {
		t.Error("validate should fail for a relation to an unknown collection")
	}
}

func TestCollectionCommands(t *testing.T) {
	t.Setenv("CONTENTGATE_DATABASE_DSN", filepath.Join(t.TempDir(), "cli.db"))

	out, err := run(t, "posts", "create", "--set", "title=From the CLI", "--data", `{"content":{"root":{}}}`, "-O", "json")
	if err != nil {
		t.Fatalf("create error: %v\n%s", err, out)
	}
	if !strings.Contains(out, `"slug": "from-the-cli"`) {
		t.Errorf("create output = %s", out)
	}

	out, err = run(t, "posts", "list")
	if err != nil {
		t.Fatalf("list error: %v", err)
	}
	if !strings.Contains(out, "From the CLI") {
		t.Errorf("list output = %s", out)
	}
}
