package formatter

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/artpar/contentgate/core/convention"
	"github.com/artpar/contentgate/core/schema"
)

// Table formats documents as aligned text.
type Table struct{}

func (Table) Name() string { return "table" }

// FormatList prints one row per document. Columns default to id followed
// by the collection's admin default columns.
func (t Table) FormatList(w io.Writer, col convention.Derived, docs []map[string]any, opts Options) error {
	if len(docs) == 0 {
		fmt.Fprintf(w, "No %s found.\n", strings.ToLower(col.Labels.Plural))
		return nil
	}

	columns := opts.Columns
	if len(columns) == 0 {
		columns = listColumns(col)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if !opts.NoHeader {
		headers := make([]string, len(columns))
		for i, c := range columns {
			headers[i] = strings.ToUpper(label(col, c))
		}
		fmt.Fprintln(tw, strings.Join(headers, "\t"))
	}

	for _, doc := range docs {
		values := make([]string, len(columns))
		for i, c := range columns {
			values[i] = formatValue(doc[c], opts.MaxWidth)
		}
		fmt.Fprintln(tw, strings.Join(values, "\t"))
	}

	return tw.Flush()
}

// FormatRecord prints one "Label: value" line per field.
func (t Table) FormatRecord(w io.Writer, col convention.Derived, doc map[string]any, opts Options) error {
	columns := opts.Columns
	if len(columns) == 0 {
		for _, f := range col.Fields {
			if !f.Internal {
				columns = append(columns, f.Name)
			}
		}
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, c := range columns {
		fmt.Fprintf(tw, "%s:\t%s\n", label(col, c), formatValue(doc[c], 0))
	}
	return tw.Flush()
}

func listColumns(col convention.Derived) []string {
	columns := []string{schema.FieldID}
	for _, c := range col.Source.Admin.DefaultColumns {
		if c != schema.FieldID {
			columns = append(columns, c)
		}
	}
	if len(columns) == 1 && col.Source.Admin.UseAsTitle != "" {
		columns = append(columns, col.Source.Admin.UseAsTitle)
	}
	return columns
}

func label(col convention.Derived, name string) string {
	if f, ok := col.Field(name); ok && f.Label != "" {
		return f.Label
	}
	return convention.Labelize(name)
}

// formatValue renders a cell. Rich text and arrays are shown as JSON.
func formatValue(val any, maxWidth int) string {
	var str string
	switch v := val.(type) {
	case nil:
		return "-"
	case string:
		str = v
	case time.Time:
		str = v.UTC().Format(time.RFC3339)
	case bool:
		str = strconv.FormatBool(v)
	case float64:
		str = strconv.FormatFloat(v, 'f', -1, 64)
	case int, int64:
		str = fmt.Sprint(v)
	default:
		b, _ := json.Marshal(v)
		str = string(b)
	}

	if maxWidth > 3 && len(str) > maxWidth {
		str = str[:maxWidth-3] + "..."
	}
	return str
}
