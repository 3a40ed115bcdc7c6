package formatter

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/artpar/ocky/core/module"
)

// YAMLFormatter formats output as YAML.
type YAMLFormatter struct{}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

func (f *YAMLFormatter) Name() string        { return "yaml" }
func (f *YAMLFormatter) Description() string { return "YAML output format" }

// FormatTree encodes the snapshot as a YAML document.
func (f *YAMLFormatter) FormatTree(w io.Writer, tree module.Snapshot, _ FormatOptions) error {
	return f.encode(w, tree)
}

// FormatList formats records as a YAML document with kind, count and data.
func (f *YAMLFormatter) FormatList(w io.Writer, kind string, records []map[string]any, opts FormatOptions) error {
	data := records
	if len(opts.Columns) > 0 {
		data = project(records, opts.Columns)
	}
	if data == nil {
		data = []map[string]any{}
	}

	return f.encode(w, map[string]any{
		"kind":  kind,
		"count": len(data),
		"data":  data,
	})
}

// FormatError formats an error as YAML.
func (f *YAMLFormatter) FormatError(w io.Writer, err error) error {
	return f.encode(w, map[string]any{"error": err.Error()})
}

func (f *YAMLFormatter) encode(w io.Writer, data any) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(data); err != nil {
		return err
	}
	return encoder.Close()
}
