package formatter

import (
	"io"

	"github.com/artpar/contentgate/core/convention"
	"gopkg.in/yaml.v3"
)

// YAML formats documents as YAML.
type YAML struct{}

func (YAML) Name() string { return "yaml" }

func (YAML) FormatList(w io.Writer, col convention.Derived, docs []map[string]any, opts Options) error {
	out := make([]map[string]any, len(docs))
	for i, doc := range docs {
		out[i] = pick(doc, opts.Columns)
	}
	return encodeYAML(w, out)
}

func (YAML) FormatRecord(w io.Writer, col convention.Derived, doc map[string]any, opts Options) error {
	return encodeYAML(w, pick(doc, opts.Columns))
}

func encodeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
