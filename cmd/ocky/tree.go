package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var treeCmd = &cobra.Command{
	Use:   "tree [path]",
	Short: "Print the module tree",
	Long: `Build the module tree from the manifest and print it.

With a dotted path, only the subtree below that module is printed.

Examples:
  ocky tree
  ocky tree Domain.Models
  ocky tree -o json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTree,
}

func init() {
	rootCmd.AddCommand(treeCmd)
}

func runTree(cmd *cobra.Command, args []string) error {
	f, err := selectFormatter()
	if err != nil {
		return err
	}

	app, err := loadApp(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	node := app.Root()
	if len(args) == 1 && args[0] != node.Name() {
		var ok bool
		node, ok = node.Lookup(args[0])
		if !ok {
			return fmt.Errorf("module %q not found below %s", args[0], app.Root().Name())
		}
	}

	return f.FormatTree(cmd.OutOrStdout(), node.Snapshot(), formatOptions())
}
