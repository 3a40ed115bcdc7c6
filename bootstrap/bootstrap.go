// Package bootstrap wires a module tree from a manifest: logger, metrics,
// dependency registry, ambient globals, the root module and the modules the
// manifest declares.
package bootstrap

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/artpar/ocky/adapters/clock"
	"github.com/artpar/ocky/adapters/idgen"
	"github.com/artpar/ocky/adapters/metrics"
	"github.com/artpar/ocky/config"
	"github.com/artpar/ocky/core/ambient"
	"github.com/artpar/ocky/core/dependency"
	"github.com/artpar/ocky/core/module"
	"github.com/artpar/ocky/ports"
)

// Names every App registers before manifest and host dependencies.
const (
	DepLogger = "logger"
	DepConfig = "config"
)

// App is one module tree built from one manifest.
type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Metrics *metrics.Collector

	registry *dependency.Registry
	root     *module.Module
	built    time.Time
}

type options struct {
	logger  *zerolog.Logger
	output  io.Writer
	metrics *metrics.Collector
	class   *module.Class
	deps    map[string]any
	defs    []func(root *module.Module) error
	ids     ports.IDGenerator
	clock   ports.Clock
}

// Option configures New.
type Option func(*options)

// WithLogger replaces the logger built from the manifest's logging section.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = &logger }
}

// WithOutput sets where the manifest logger writes. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(o *options) { o.output = w }
}

// WithMetrics reports tree and registry events to c.
func WithMetrics(c *metrics.Collector) Option {
	return func(o *options) { o.metrics = c }
}

// WithClass sets the root module's class.
func WithClass(c *module.Class) Option {
	return func(o *options) { o.class = c }
}

// WithDependencies registers host values. They replace manifest
// dependencies of the same name.
func WithDependencies(deps map[string]any) Option {
	return func(o *options) {
		if o.deps == nil {
			o.deps = make(map[string]any, len(deps))
		}
		for k, v := range deps {
			o.deps[k] = v
		}
	}
}

// WithSetup runs fn against the root after the manifest modules are built.
func WithSetup(fn func(root *module.Module) error) Option {
	return func(o *options) { o.defs = append(o.defs, fn) }
}

// WithIDGenerator replaces the generator chosen by the manifest.
func WithIDGenerator(ids ports.IDGenerator) Option {
	return func(o *options) { o.ids = ids }
}

// WithClock sets the clock used for module timestamps and timing.
func WithClock(c ports.Clock) Option {
	return func(o *options) { o.clock = c }
}

// New builds an App from cfg.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	o := &options{class: module.Base, clock: clock.Real{}}
	for _, opt := range opts {
		opt(o)
	}

	var logger zerolog.Logger
	if o.logger != nil {
		logger = *o.logger
	} else {
		out := o.output
		if out == nil {
			out = os.Stdout
		}
		logger = SetupLogger(cfg.Logging, out)
	}

	mode, err := module.ParseInjectionMode(cfg.Injection)
	if err != nil {
		return nil, err
	}

	globals, err := buildGlobals(cfg)
	if err != nil {
		return nil, fmt.Errorf("init globals: %w", err)
	}

	regOpts := []dependency.Option{
		dependency.WithGlobals(globals),
		dependency.WithLogger(logger.With().Str("component", "dependency").Logger()),
	}
	if o.metrics != nil {
		regOpts = append(regOpts, dependency.WithObserver(o.metrics))
	}
	registry := dependency.New(regOpts...)

	registry.Register(DepLogger, logger)
	registry.Register(DepConfig, cfg)
	registry.RegisterAll(cfg.Dependencies)
	registry.RegisterAll(o.deps)

	ids := o.ids
	if ids == nil {
		ids = idgen.Parse(cfg.IDs.Kind, cfg.IDs.Prefix)
	}

	modOpts := []module.Option{
		module.WithRegistry(registry),
		module.WithLogger(logger.With().Str("component", "module").Logger()),
		module.WithInjection(mode),
		module.WithIDGenerator(ids),
		module.WithClock(o.clock),
	}
	if o.metrics != nil {
		modOpts = append(modOpts, module.WithObserver(o.metrics))
	}

	root, err := o.class.New(cfg.Root, modOpts...)
	if err != nil {
		return nil, fmt.Errorf("init root module: %w", err)
	}

	for i, mc := range cfg.Modules {
		if _, err := root.Module(mc.Path, declare(mc, mode)); err != nil {
			return nil, fmt.Errorf("modules[%d] %s: %w", i, mc.Path, err)
		}
	}

	for _, fn := range o.defs {
		if err := fn(root); err != nil {
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	logger.Info().
		Str("root", cfg.Root).
		Str("injection", mode.String()).
		Int("modules", len(cfg.Modules)).
		Int("dependencies", len(registry.Names())).
		Msg("module tree ready")

	return &App{
		Config:   cfg,
		Logger:   logger,
		Metrics:  o.metrics,
		registry: registry,
		root:     root,
		built:    o.clock.Now(),
	}, nil
}

// Root returns the root module.
func (a *App) Root() *module.Module { return a.root }

// Registry returns the dependency registry definitions resolve from.
func (a *App) Registry() *dependency.Registry { return a.registry }

// BuiltAt returns when the tree finished building.
func (a *App) BuiltAt() time.Time { return a.built }

func buildGlobals(cfg *config.Config) (dependency.Globals, error) {
	var chain ambient.Chain

	if len(cfg.Globals) > 0 {
		values, err := ambient.Evaluate(cfg.Globals)
		if err != nil {
			return nil, err
		}
		chain = append(chain, values)
	}
	if cfg.EnvGlobals.Enabled {
		chain = append(chain, ambient.Env{Prefix: cfg.EnvGlobals.Prefix})
	}

	return chain, nil
}

// SetupLogger builds a JSON or console logger at the configured level.
func SetupLogger(cfg config.LoggingConfig, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
		return zerolog.New(output).Level(level).With().Timestamp().Logger()
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
