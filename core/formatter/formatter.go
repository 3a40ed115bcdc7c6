// Package formatter renders module trees and listings as table, json or
// yaml output.
package formatter

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/artpar/ocky/core/module"
)

// Formatter converts trees and listings to a specific output format.
type Formatter interface {
	// Name returns the formatter name (e.g., "table", "json", "yaml").
	Name() string

	// Description returns a human-readable description.
	Description() string

	// FormatTree formats a module tree snapshot.
	FormatTree(w io.Writer, tree module.Snapshot, opts FormatOptions) error

	// FormatList formats a listing of records of one kind, e.g.
	// "dependencies" or "params".
	FormatList(w io.Writer, kind string, records []map[string]any, opts FormatOptions) error

	// FormatError formats an error.
	FormatError(w io.Writer, err error) error
}

// FormatOptions configures formatting behavior.
type FormatOptions struct {
	// Columns specifies which fields to include and their order
	// (nil = all, sorted).
	Columns []string

	// NoHeader disables the header row for tabular formats.
	NoHeader bool

	// Compact minimizes whitespace (json only).
	Compact bool

	// MaxWidth truncates long values (0 = no limit).
	MaxWidth int
}

// Registry manages registered formatters.
type Registry struct {
	mu         sync.RWMutex
	formatters map[string]Formatter
	defaultFmt string
}

// NewRegistry creates an empty formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		formatters: make(map[string]Formatter),
		defaultFmt: "table",
	}
}

// Register adds a formatter to the registry.
func (r *Registry) Register(f Formatter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.formatters[f.Name()]; exists {
		return fmt.Errorf("formatter %q already registered", f.Name())
	}
	r.formatters[f.Name()] = f
	return nil
}

// Get returns a formatter by name.
func (r *Registry) Get(name string) (Formatter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.formatters[name]
	return f, ok
}

// Default returns the default formatter, or nil when none is registered.
func (r *Registry) Default() Formatter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.formatters[r.defaultFmt]
}

// SetDefault sets the default formatter.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.formatters[name]; !exists {
		return fmt.Errorf("formatter %q not registered", name)
	}
	r.defaultFmt = name
	return nil
}

// List returns the registered formatter names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.formatters))
	for name := range r.formatters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry holds the table, json and yaml formatters.
var DefaultRegistry = NewRegistry()

func init() {
	for _, f := range []Formatter{NewTableFormatter(), NewJSONFormatter(), NewYAMLFormatter()} {
		if err := DefaultRegistry.Register(f); err != nil {
			panic(err)
		}
	}
}

// Get returns a formatter from the default registry.
func Get(name string) (Formatter, bool) {
	return DefaultRegistry.Get(name)
}

// List returns all formatter names from the default registry.
func List() []string {
	return DefaultRegistry.List()
}

// columns returns requested, or every key across records in sorted order.
func columns(records []map[string]any, requested []string) []string {
	if len(requested) > 0 {
		return requested
	}

	seen := make(map[string]bool)
	var cols []string
	for _, record := range records {
		for k := range record {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	sort.Strings(cols)
	return cols
}

// project keeps only cols of each record.
func project(records []map[string]any, cols []string) []map[string]any {
	out := make([]map[string]any, 0, len(records))
	for _, record := range records {
		row := make(map[string]any, len(cols))
		for _, c := range cols {
			if v, ok := record[c]; ok {
				row[c] = v
			}
		}
		out = append(out, row)
	}
	return out
}
