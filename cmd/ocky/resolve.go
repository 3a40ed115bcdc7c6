package main

import (
	"fmt"
	"reflect"

	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [name...]",
	Short: "Resolve dependency names",
	Long: `Resolve names against the manifest's registry and globals, the way a
by-name definition would. Without names, every registered dependency is
listed.

Examples:
  ocky resolve
  ocky resolve currency region
  ocky resolve answer -o yaml`,
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	f, err := selectFormatter()
	if err != nil {
		return err
	}

	app, err := loadApp(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	reg := app.Registry()
	names := args
	if len(names) == 0 {
		names = reg.Names()
	}

	records := make([]map[string]any, 0, len(names))
	var missing []string
	for _, name := range names {
		value, source, err := reg.Lookup(name)
		if err != nil {
			missing = append(missing, name)
		}
		typ := "nil"
		if value != nil {
			typ = reflect.TypeOf(value).String()
		}
		records = append(records, map[string]any{
			"name":   name,
			"source": string(source),
			"type":   typ,
			"value":  fmt.Sprint(value),
		})
	}

	opts := formatOptions()
	opts.Columns = []string{"name", "source", "type", "value"}
	if err := f.FormatList(cmd.OutOrStdout(), "dependencies", records, opts); err != nil {
		return err
	}

	if len(missing) > 0 {
		return fmt.Errorf("could not resolve %d of %d names: %v", len(missing), len(names), missing)
	}
	return nil
}
