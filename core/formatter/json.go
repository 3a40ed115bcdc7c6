package formatter

import (
	"encoding/json"
	"io"

	"github.com/artpar/ocky/core/module"
)

// JSONFormatter formats output as JSON.
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

func (f *JSONFormatter) Name() string        { return "json" }
func (f *JSONFormatter) Description() string { return "JSON output format" }

// FormatTree encodes the snapshot as nested JSON objects.
func (f *JSONFormatter) FormatTree(w io.Writer, tree module.Snapshot, opts FormatOptions) error {
	return f.encode(w, tree, opts.Compact)
}

// FormatList formats records as {"kind", "count", "data"}.
func (f *JSONFormatter) FormatList(w io.Writer, kind string, records []map[string]any, opts FormatOptions) error {
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
	}, opts.Compact)
}

// FormatError formats an error as JSON.
func (f *JSONFormatter) FormatError(w io.Writer, err error) error {
	return f.encode(w, map[string]any{"error": err.Error()}, false)
}

func (f *JSONFormatter) encode(w io.Writer, data any, compact bool) error {
	encoder := json.NewEncoder(w)
	if !compact {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}
