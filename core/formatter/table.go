package formatter

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/artpar/ocky/core/module"
)

// TableFormatter formats output as aligned text tables.
type TableFormatter struct{}

// NewTableFormatter creates a new table formatter.
func NewTableFormatter() *TableFormatter {
	return &TableFormatter{}
}

func (f *TableFormatter) Name() string        { return "table" }
func (f *TableFormatter) Description() string { return "Aligned text table output" }

// FormatTree prints one row per node with names indented by depth.
func (f *TableFormatter) FormatTree(w io.Writer, tree module.Snapshot, opts FormatOptions) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if !opts.NoHeader {
		fmt.Fprintln(tw, "MODULE\tCLASS\tID\tPROPS")
	}
	f.writeNode(tw, tree, 0, opts.MaxWidth)

	return tw.Flush()
}

func (f *TableFormatter) writeNode(w io.Writer, s module.Snapshot, depth, maxWidth int) {
	fmt.Fprintf(w, "%s%s\t%s\t%s\t%s\n",
		strings.Repeat("  ", depth), s.Name, s.Class, s.ID, f.formatProps(s.Props, maxWidth))
	for _, child := range s.Children {
		f.writeNode(w, child, depth+1, maxWidth)
	}
}

// FormatList formats records as a table.
func (f *TableFormatter) FormatList(w io.Writer, kind string, records []map[string]any, opts FormatOptions) error {
	if len(records) == 0 {
		fmt.Fprintf(w, "No %s found.\n", kind)
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	cols := columns(records, opts.Columns)

	if !opts.NoHeader {
		headers := make([]string, len(cols))
		for i, col := range cols {
			headers[i] = strings.ToUpper(col)
		}
		fmt.Fprintln(tw, strings.Join(headers, "\t"))
	}

	for _, record := range records {
		values := make([]string, len(cols))
		for i, col := range cols {
			values[i] = f.formatValue(record[col], opts.MaxWidth)
		}
		fmt.Fprintln(tw, strings.Join(values, "\t"))
	}

	return tw.Flush()
}

// FormatError formats an error message.
func (f *TableFormatter) FormatError(w io.Writer, err error) error {
	_, werr := fmt.Fprintf(w, "Error: %s\n", err.Error())
	return werr
}

func (f *TableFormatter) formatProps(props map[string]string, maxWidth int) string {
	if len(props) == 0 {
		return "-"
	}

	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + props[k]
	}
	return truncate(strings.Join(pairs, ","), maxWidth)
}

// formatValue formats a value for display.
func (f *TableFormatter) formatValue(val any, maxWidth int) string {
	if val == nil {
		return "-"
	}

	var str string
	switch v := val.(type) {
	case string:
		str = v
	case bool:
		if v {
			str = "yes"
		} else {
			str = "no"
		}
	case int:
		str = fmt.Sprintf("%d", v)
	case float64:
		if v == float64(int64(v)) {
			str = fmt.Sprintf("%d", int64(v))
		} else {
			str = fmt.Sprintf("%.2f", v)
		}
	case fmt.Stringer:
		str = v.String()
	default:
		b, err := json.Marshal(v)
		if err != nil {
			str = fmt.Sprintf("%v", v)
		} else {
			str = string(b)
		}
	}

	return truncate(str, maxWidth)
}

func truncate(s string, maxWidth int) string {
	if maxWidth > 3 && len(s) > maxWidth {
		return s[:maxWidth-3] + "..."
	}
	return s
}
