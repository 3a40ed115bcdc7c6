package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/artpar/ocky/bootstrap"
	"github.com/artpar/ocky/config"
)

var (
	hotReload bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the module tree inspector",
	Long: `Build the module tree and serve a read-only inspector over HTTP.

The server will:
  - Load the manifest from ocky.yaml (or --config)
  - Or build from OCKY_* environment variables alone
  - Rebuild the tree when the manifest changes or on SIGHUP
  - Keep serving the previous tree when a rebuild fails

Endpoints:
  /healthz, /version
  /modules, /modules/{path}
  /dependencies, /dependencies/{name}
  /metrics (when metrics.enabled)

Environment variables:
  OCKY_SERVER_HOST    - Inspector host (default: 127.0.0.1)
  OCKY_SERVER_PORT    - Inspector port (default: 7070)
  OCKY_LOG_LEVEL      - Log level: debug, info, warn, error

Examples:
  ocky serve
  ocky serve --config /etc/ocky/ocky.yaml
  ocky serve --hot-reload=false`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&hotReload, "hot-reload", true, "rebuild the tree when the manifest changes")
}

func runServe(cmd *cobra.Command, args []string) error {
	hasConfigFile := false
	if _, err := os.Stat(cfgFile); err == nil {
		hasConfigFile = true
	}

	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return fmt.Errorf("error loading manifest: %w", err)
	}
	if !hasConfigFile {
		fmt.Fprintln(cmd.ErrOrStderr(), "Running with environment variables (no manifest file)")
	}

	rt, err := bootstrap.NewRuntime(cfg)
	if err != nil {
		return fmt.Errorf("error initializing: %w", err)
	}

	srv := bootstrap.NewServer(rt, cfg)

	// Hot reload only works with a manifest file
	if hasConfigFile && hotReload {
		holder, err := config.NewHolder(cfgFile, rt.App().Logger)
		if err != nil {
			return err
		}
		holder.OnChange(func(u config.Update) {
			if fields := u.RestartRequired(); len(fields) > 0 {
				rt.App().Logger.Warn().Strs("fields", fields).Msg("changes need a restart to take effect")
			}
			_ = rt.Reload(u.Config)
		})
		holder.OnError(rt.ReloadFailed)

		if err := holder.WatchFile(); err != nil {
			rt.App().Logger.Warn().Err(err).Msg("file watching unavailable, reload with SIGHUP")
		}
		holder.WatchSignals()
		srv.Stop = append(srv.Stop, holder.Stop)
	}

	// Run (blocks until shutdown)
	return srv.Run()
}
