package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/artpar/ocky/bootstrap"
	"github.com/artpar/ocky/config"
	"github.com/artpar/ocky/core/formatter"
)

var (
	// Global flags
	cfgFile      string
	outputFormat string
	noHeader     bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ocky",
	Short: "Build and inspect module trees with by-name dependency injection",
	Long: `ocky builds a tree of named modules from a manifest and injects
dependencies into module definitions by parameter name.

Quick start:
  ocky tree          # Print the module tree built from ocky.yaml
  ocky serve         # Serve the inspector and rebuild on manifest changes

Inspection:
  ocky params        # Show the parameter names of a signature
  ocky resolve       # Resolve dependency names against the manifest
  ocky validate      # Validate the manifest and build the tree once`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "ocky.yaml", "manifest file path")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format: table, json, yaml")
	rootCmd.PersistentFlags().BoolVar(&noHeader, "no-header", false, "omit the header row of table output")
}

// loadApp builds the tree described by the manifest. Build logs go to
// stderr so stdout stays machine-readable.
func loadApp(stderr io.Writer) (*bootstrap.App, error) {
	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load manifest: %w", err)
	}
	return bootstrap.New(cfg, bootstrap.WithOutput(stderr))
}

func selectFormatter() (formatter.Formatter, error) {
	f, ok := formatter.Get(outputFormat)
	if !ok {
		return nil, fmt.Errorf("unknown output format %q (available: %v)", outputFormat, formatter.List())
	}
	return f, nil
}

func formatOptions() formatter.FormatOptions {
	return formatter.FormatOptions{NoHeader: noHeader}
}
