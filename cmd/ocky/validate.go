package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/artpar/ocky/bootstrap"
	"github.com/artpar/ocky/config"
	"github.com/artpar/ocky/core/module"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the manifest",
	Long: `Validate the ocky manifest.

Checks:
  - YAML syntax is valid
  - Names, paths and injection settings are valid
  - Every declared module builds and its dependencies resolve

Examples:
  ocky validate
  ocky validate --config /etc/ocky/ocky.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Validating %s...\n\n", cfgFile)

	if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
		fmt.Fprintf(out, "  %s Manifest exists\n", crossMark)
		return fmt.Errorf("manifest not found: %s", cfgFile)
	}
	fmt.Fprintf(out, "  %s Manifest exists\n", checkMark)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(out, "  %s Manifest valid\n", crossMark)
		return fmt.Errorf("manifest error: %w", err)
	}
	fmt.Fprintf(out, "  %s Manifest valid\n", checkMark)

	fmt.Fprintf(out, "  %s Root: %s\n", checkMark, cfg.Root)
	fmt.Fprintf(out, "  %s Injection: %s\n", checkMark, cfg.Injection)
	fmt.Fprintf(out, "  %s Dependencies: %d, globals: %d\n", checkMark, len(cfg.Dependencies), len(cfg.Globals))

	app, err := bootstrap.New(cfg, bootstrap.WithLogger(zerolog.Nop()))
	if err != nil {
		fmt.Fprintf(out, "  %s Module tree builds\n", crossMark)
		return err
	}

	count := 0
	_ = app.Root().Walk(func(*module.Module) error {
		count++
		return nil
	})
	fmt.Fprintf(out, "  %s Module tree builds (%d modules)\n", checkMark, count)

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Manifest is valid.")
	return nil
}

const (
	checkMark = "\033[32m✓\033[0m"
	crossMark = "\033[31m✗\033[0m"
)
