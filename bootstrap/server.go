package bootstrap

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	apihttp "github.com/artpar/ocky/adapters/http"
	"github.com/artpar/ocky/config"
)

// ShutdownTimeout bounds how long Shutdown waits for in-flight requests.
const ShutdownTimeout = 30 * time.Second

// Server serves the inspector for a Runtime.
type Server struct {
	HTTPServer *http.Server
	Logger     zerolog.Logger

	// Stop runs after the HTTP server shuts down.
	Stop []func()
}

// NewServer builds the inspector server from the server and metrics
// sections of cfg.
func NewServer(rt *Runtime, cfg *config.Config) *Server {
	logger := rt.App().Logger.With().Str("component", "inspector").Logger()

	routerCfg := apihttp.RouterConfig{Metrics: rt.Metrics()}
	if cfg.Metrics.Enabled {
		routerCfg.Gatherer = rt.Gatherer()
		routerCfg.MetricsPath = cfg.Metrics.Path
	}

	return &Server{
		HTTPServer: &http.Server{
			Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
			Handler:      apihttp.NewRouter(rt, logger, routerCfg),
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
		Logger: logger,
	}
}

// Run serves until SIGINT or SIGTERM, then shuts down.
func (s *Server) Run() error {
	errCh := make(chan error, 1)
	go func() {
		s.Logger.Info().
			Str("addr", s.HTTPServer.Addr).
			Msg("starting inspector")
		if err := s.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		s.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return s.Shutdown()
}

// Shutdown gracefully stops the server and runs the Stop hooks.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	var err error
	if s.HTTPServer != nil {
		if err = s.HTTPServer.Shutdown(ctx); err != nil {
			s.Logger.Error().Err(err).Msg("http server shutdown error")
		}
	}

	for _, stop := range s.Stop {
		stop()
	}

	s.Logger.Info().Msg("shutdown complete")
	return err
}
