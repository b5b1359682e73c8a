package main

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/artpar/contentgate/collections"
	httpchannel "github.com/artpar/contentgate/core/channel/http"
	"github.com/artpar/contentgate/core/convention"
	"github.com/artpar/contentgate/core/schema"
	"github.com/spf13/cobra"
)

var (
	schemaFormat string
	schemaDir    string
)

var schemaCmd = &cobra.Command{
	Use:   "schema [collection]",
	Short: "Print collection definitions",
	Long: `Print the built-in and YAML-defined collections.

Without arguments the collection slugs are listed. With a slug the
collection is printed as YAML (the format read from collections.dir)
or as the JSON served by /api/_schema/{slug}.

Examples:
  contentgate schema
  contentgate schema posts
  contentgate schema posts --format json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSchema,
}

func init() {
	rootCmd.AddCommand(schemaCmd)

	schemaCmd.Flags().StringVarP(&schemaFormat, "format", "f", "yaml", "output format: yaml or json")
	schemaCmd.Flags().StringVar(&schemaDir, "dir", "", "directory of YAML collections (default: collections.dir from config)")
}

func runSchema(cmd *cobra.Command, args []string) error {
	cols, err := allCollections()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if len(args) == 0 {
		slugs := make([]string, 0, len(cols))
		for slug := range cols {
			slugs = append(slugs, slug)
		}
		sort.Strings(slugs)
		for _, slug := range slugs {
			derived := convention.Derive(cols[slug])
			fmt.Fprintf(out, "%-16s %s\n", slug, derived.Labels.Plural)
		}
		return nil
	}

	col, ok := cols[args[0]]
	if !ok {
		return fmt.Errorf("unknown collection %q", args[0])
	}

	switch schemaFormat {
	case "yaml":
		data, err := schema.Marshal(col)
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(httpchannel.BuildCollectionSchema(convention.Derive(col)))
	default:
		return fmt.Errorf("unknown format %q, want yaml or json", schemaFormat)
	}
}

// allCollections returns the built-in collections and those in the
// collections directory, keyed by slug.
func allCollections() (map[string]schema.Collection, error) {
	dir := schemaDir
	if dir == "" {
		if cfg, err := loadConfig(); err == nil {
			dir = cfg.Collections.Dir
		}
	}

	cols := make(map[string]schema.Collection)
	for _, col := range collections.All() {
		cols[col.Slug] = col
	}

	if dir == "" {
		return cols, nil
	}

	parsed, err := schema.ParseDir(dir)
	if err != nil {
		return nil, err
	}
	for _, col := range parsed {
		if _, exists := cols[col.Slug]; exists {
			return nil, fmt.Errorf("collection %q defined twice", col.Slug)
		}
		cols[col.Slug] = col
	}
	return cols, nil
}
