package formatter

import (
	"encoding/json"
	"io"

	"github.com/artpar/contentgate/core/convention"
)

// JSON formats documents as indented JSON.
type JSON struct{}

func (JSON) Name() string { return "json" }

func (JSON) FormatList(w io.Writer, col convention.Derived, docs []map[string]any, opts Options) error {
	out := make([]map[string]any, len(docs))
	for i, doc := range docs {
		out[i] = pick(doc, opts.Columns)
	}
	return encodeJSON(w, out)
}

func (JSON) FormatRecord(w io.Writer, col convention.Derived, doc map[string]any, opts Options) error {
	return encodeJSON(w, pick(doc, opts.Columns))
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
