package bootstrap

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/artpar/ocky/adapters/metrics"
	"github.com/artpar/ocky/config"
	"github.com/artpar/ocky/core/dependency"
	"github.com/artpar/ocky/core/module"
)

// Runtime holds the current App and rebuilds it when the manifest changes.
// Readers always see a complete tree: a rebuild is swapped in only after it
// succeeds.
type Runtime struct {
	current  atomic.Pointer[App]
	mu       sync.Mutex // serializes rebuilds
	opts     []Option
	logger   zerolog.Logger
	registry *prometheus.Registry
	metrics  *metrics.Collector
	now      func() time.Time
}

// NewRuntime builds the first App from cfg. Every rebuild reuses opts and
// reports to the same metrics collector.
func NewRuntime(cfg *config.Config, opts ...Option) (*Runtime, error) {
	reg := prometheus.NewRegistry()
	collector := metrics.NewWithRegistry(reg)

	r := &Runtime{
		opts:     append(opts[:len(opts):len(opts)], WithMetrics(collector)),
		registry: reg,
		metrics:  collector,
		now:      time.Now,
	}

	app, err := New(cfg, r.opts...)
	if err != nil {
		return nil, err
	}
	r.logger = app.Logger
	r.current.Store(app)
	return r, nil
}

// App returns the current App.
func (r *Runtime) App() *App { return r.current.Load() }

// Root returns the current root module.
func (r *Runtime) Root() *module.Module { return r.App().Root() }

// Registry returns the current dependency registry.
func (r *Runtime) Registry() *dependency.Registry { return r.App().Registry() }

// Metrics returns the collector shared by every build.
func (r *Runtime) Metrics() *metrics.Collector { return r.metrics }

// Gatherer returns the Prometheus registry the collector is registered with.
func (r *Runtime) Gatherer() prometheus.Gatherer { return r.registry }

// Reload rebuilds the tree from cfg. On failure the current App is kept.
func (r *Runtime) Reload(cfg *config.Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	app, err := New(cfg, r.opts...)
	r.metrics.RecordReload(r.now(), err)
	if err != nil {
		r.logger.Error().Err(err).Msg("rebuild failed, keeping current module tree")
		return fmt.Errorf("rebuild: %w", err)
	}

	old := r.current.Swap(app)
	r.logger = app.Logger
	r.logger.Info().
		Str("old_root", old.Config.Root).
		Str("new_root", cfg.Root).
		Msg("module tree rebuilt")
	return nil
}

// ReloadFailed records a manifest that could not be loaded.
func (r *Runtime) ReloadFailed(err error) {
	r.metrics.RecordReload(r.now(), err)
}
