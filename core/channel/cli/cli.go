// Package cli provides a CLI channel that generates commands from collection
// definitions. Every collection gets list, get, create, update and delete
// subcommands that run against the local database with access control
// overridden.
package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/artpar/contentgate/core/convention"
	"github.com/artpar/contentgate/core/formatter"
	"github.com/artpar/contentgate/core/runtime"
	"github.com/artpar/contentgate/core/schema"
	"github.com/spf13/cobra"
)

// Opener opens a runtime for a single command. The returned close function
// releases it.
type Opener func(ctx context.Context) (*runtime.Runtime, func() error, error)

// Channel implements the CLI channel for collections.
type Channel struct {
	rootCmd    *cobra.Command
	open       Opener
	formatters *formatter.Registry

	mu          sync.Mutex
	collections map[string]convention.Derived
}

// New creates a new CLI channel adding commands to rootCmd.
func New(rootCmd *cobra.Command, open Opener) *Channel {
	return &Channel{
		rootCmd:     rootCmd,
		open:        open,
		formatters:  formatter.NewRegistry(),
		collections: make(map[string]convention.Derived),
	}
}

// Name returns the channel name.
func (c *Channel) Name() string {
	return "cli"
}

// Register adds the collection's command group. A collection whose slug
// clashes with an existing command is rejected.
func (c *Channel) Register(col convention.Derived) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.collections[col.Slug]; ok {
		return nil
	}
	for _, existing := range c.rootCmd.Commands() {
		if existing.Name() == col.Slug {
			return fmt.Errorf("collection %q clashes with the %q command", col.Slug, existing.Name())
		}
	}
	c.collections[col.Slug] = col

	colCmd := &cobra.Command{
		Use:   col.Slug,
		Short: fmt.Sprintf("Manage %s", strings.ToLower(col.Labels.Plural)),
	}
	colCmd.AddCommand(
		c.buildListCommand(col),
		c.buildGetCommand(col),
		c.buildCreateCommand(col),
		c.buildUpdateCommand(col),
		c.buildDeleteCommand(col),
	)

	c.rootCmd.AddCommand(colCmd)
	return nil
}

// Start starts the CLI channel (no-op for CLI).
func (c *Channel) Start(ctx context.Context) error {
	return nil
}

// Stop stops the CLI channel (no-op for CLI).
func (c *Channel) Stop(ctx context.Context) error {
	return nil
}

func (c *Channel) buildListCommand(col convention.Derived) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: fmt.Sprintf("List %s", strings.ToLower(col.Labels.Plural)),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			page, _ := cmd.Flags().GetInt("page")
			sortBy, _ := cmd.Flags().GetString("sort")
			where, _ := cmd.Flags().GetStringArray("where")

			query := runtime.Query{Limit: limit, Page: page, Sort: sortBy}
			if len(where) > 0 {
				filters, err := parseAssignments(col, where, false)
				if err != nil {
					return err
				}
				query.Where = filters
			}

			result, err := c.execute(cmd, col, runtime.OpFind, runtime.Input{Query: query})
			if err != nil {
				return err
			}

			f, opts, err := c.output(cmd)
			if err != nil {
				return err
			}
			if err := f.FormatList(cmd.OutOrStdout(), col, result.List.Docs, opts); err != nil {
				return err
			}
			if f.Name() == "table" && result.List.TotalPages > 1 {
				fmt.Fprintf(cmd.OutOrStdout(), "\nPage %d of %d (%d total)\n",
					result.List.Page, result.List.TotalPages, result.List.TotalDocs)
			}
			return nil
		},
	}

	cmd.Flags().IntP("limit", "l", runtime.DefaultLimit, "Maximum number of documents")
	cmd.Flags().IntP("page", "p", 1, "Page number")
	cmd.Flags().String("sort", "", "Sort field, prefix with - for descending")
	cmd.Flags().StringArrayP("where", "w", nil, "Equality filter field=value (repeatable)")
	c.addOutputFlags(cmd)

	return cmd
}

func (c *Channel) buildGetCommand(col convention.Derived) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: fmt.Sprintf("Show a %s", strings.ToLower(col.Labels.Singular)),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := c.execute(cmd, col, runtime.OpFindByID, runtime.Input{ID: args[0]})
			if err != nil {
				return err
			}
			return c.printRecord(cmd, col, result.Doc)
		},
	}
	c.addOutputFlags(cmd)
	return cmd
}

func (c *Channel) buildCreateCommand(col convention.Derived) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: fmt.Sprintf("Create a %s", strings.ToLower(col.Labels.Singular)),
		Example: fmt.Sprintf(`  contentgate %s create --set field=value
  contentgate %s create --data '{"field": "value"}'`, col.Slug, col.Slug),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := inputData(cmd, col)
			if err != nil {
				return err
			}
			result, err := c.execute(cmd, col, runtime.OpCreate, runtime.Input{Data: data})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%s created: %s\n", col.Labels.Singular, result.ID)
			return c.printRecord(cmd, col, result.Doc)
		},
	}
	addDataFlags(cmd)
	c.addOutputFlags(cmd)
	return cmd
}

func (c *Channel) buildUpdateCommand(col convention.Derived) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: fmt.Sprintf("Update a %s", strings.ToLower(col.Labels.Singular)),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := inputData(cmd, col)
			if err != nil {
				return err
			}
			if len(data) == 0 {
				return errors.New("nothing to update: use --set or --data")
			}
			result, err := c.execute(cmd, col, runtime.OpUpdate, runtime.Input{ID: args[0], Data: data})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%s updated: %s\n", col.Labels.Singular, result.ID)
			return c.printRecord(cmd, col, result.Doc)
		},
	}
	addDataFlags(cmd)
	c.addOutputFlags(cmd)
	return cmd
}

func (c *Channel) buildDeleteCommand(col convention.Derived) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: fmt.Sprintf("Delete a %s", strings.ToLower(col.Labels.Singular)),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := c.execute(cmd, col, runtime.OpDelete, runtime.Input{ID: args[0]})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s deleted: %s\n", col.Labels.Singular, result.ID)
			return nil
		},
	}
}

// execute opens a runtime, runs one operation with access overridden and
// closes the runtime again.
func (c *Channel) execute(cmd *cobra.Command, col convention.Derived, op runtime.Operation, in runtime.Input) (runtime.Result, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	rt, closeFn, err := c.open(ctx)
	if err != nil {
		return runtime.Result{}, err
	}
	defer closeFn()

	in.OverrideAccess = true
	result, err := rt.Execute(ctx, col.Slug, op, in)
	if err != nil {
		return runtime.Result{}, describe(err)
	}
	return result, nil
}

// describe expands validation errors to one line per failed field.
func describe(err error) error {
	var verr *runtime.ValidationError
	if !errors.As(err, &verr) {
		return err
	}
	var b strings.Builder
	b.WriteString("validation failed:")
	for _, e := range verr.Result.Errors {
		fmt.Fprintf(&b, "\n  %s: %s", e.Field, e.Message)
	}
	return errors.New(b.String())
}

func (c *Channel) printRecord(cmd *cobra.Command, col convention.Derived, doc map[string]any) error {
	f, opts, err := c.output(cmd)
	if err != nil {
		return err
	}
	return f.FormatRecord(cmd.OutOrStdout(), col, doc, opts)
}

// addOutputFlags adds common output format flags to a command.
func (c *Channel) addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "O", "table", "Output format: "+strings.Join(c.formatters.List(), ", "))
	cmd.Flags().Bool("no-header", false, "Disable header row (table format)")
	cmd.Flags().StringSlice("columns", nil, "Fields to show")
}

// output returns the formatter and options selected by the command flags.
func (c *Channel) output(cmd *cobra.Command) (formatter.Formatter, formatter.Options, error) {
	name, _ := cmd.Flags().GetString("output")
	noHeader, _ := cmd.Flags().GetBool("no-header")
	columns, _ := cmd.Flags().GetStringSlice("columns")

	f, err := c.formatters.Get(name)
	if err != nil {
		return nil, formatter.Options{}, err
	}
	return f, formatter.Options{Columns: columns, NoHeader: noHeader, MaxWidth: 40}, nil
}

func addDataFlags(cmd *cobra.Command) {
	cmd.Flags().StringArrayP("set", "s", nil, "Field assignment field=value (repeatable)")
	cmd.Flags().StringP("data", "d", "", "Document fields as a JSON object")
}

// inputData merges --data and --set; --set wins on conflicts.
func inputData(cmd *cobra.Command, col convention.Derived) (map[string]any, error) {
	raw, _ := cmd.Flags().GetString("data")
	sets, _ := cmd.Flags().GetStringArray("set")

	data := make(map[string]any)
	if raw != "" {
		dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
		dec.UseNumber()
		if err := dec.Decode(&data); err != nil {
			return nil, fmt.Errorf("invalid --data: %w", err)
		}
		if data == nil {
			return nil, errors.New("--data must be a JSON object")
		}
	}

	assigned, err := parseAssignments(col, sets, true)
	if err != nil {
		return nil, err
	}
	for k, v := range assigned {
		data[k] = v
	}
	return data, nil
}

// parseAssignments parses field=value pairs, converting values by field type.
// Writes may set internal fields such as a password but not read-only ones;
// filters may use read-only fields but never internal ones.
func parseAssignments(col convention.Derived, pairs []string, write bool) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		name, val, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid assignment %q: want field=value", pair)
		}
		f, ok := col.Field(name)
		if !ok || (!write && f.Internal) {
			return nil, fmt.Errorf("%s has no field %q", col.Slug, name)
		}
		if write && f.ReadOnly {
			return nil, fmt.Errorf("field %q is set automatically", name)
		}
		v, err := convertInput(val, f.Type)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out[name] = v
	}
	return out, nil
}

// convertInput converts a string input to the appropriate type. Rich text
// and array values are given as JSON.
func convertInput(val string, fieldType schema.FieldType) (any, error) {
	switch fieldType {
	case schema.FieldTypeNumber:
		n, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", val)
		}
		return n, nil
	case schema.FieldTypeRichText, schema.FieldTypeArray:
		var v any
		if err := json.Unmarshal([]byte(val), &v); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
		return v, nil
	default:
		return val, nil
	}
}
