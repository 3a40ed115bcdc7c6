package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/artpar/ocky/core/signature"
)

var paramsCmd = &cobra.Command{
	Use:   "params <signature>",
	Short: "Show the parameter names of a function signature",
	Long: `Parse a function signature and print the names a by-name definition
would be injected with, in order.

Examples:
  ocky params 'func(App, logger, db)'
  ocky params 'function(App, test1 /* c */, test2){}'
  ocky params 'function(_clock_, cache) {}' -o json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runParams,
}

func init() {
	rootCmd.AddCommand(paramsCmd)
}

func runParams(cmd *cobra.Command, args []string) error {
	f, err := selectFormatter()
	if err != nil {
		return err
	}

	names, err := signature.Parse(strings.Join(args, " "))
	if err != nil {
		return err
	}

	records := make([]map[string]any, len(names))
	for i, name := range names {
		records[i] = map[string]any{"index": i, "name": name}
	}

	opts := formatOptions()
	opts.Columns = []string{"index", "name"}
	return f.FormatList(cmd.OutOrStdout(), "params", records, opts)
}
