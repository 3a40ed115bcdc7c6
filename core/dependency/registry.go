// Package dependency provides the name-keyed registry definitions are
// injected from.
//
// Resolution is two-tier: an explicit registration always wins; otherwise
// the registry's ambient Globals are consulted; otherwise resolution fails
// with *NotFoundError.
//
// Usage:
//
//	reg := dependency.New(dependency.WithGlobals(ambient.Env{Prefix: "APP_"}))
//	reg.Register("db", db)
//	reg.RegisterAll(map[string]any{"cache": cache, "clock": clock})
//	v, err := reg.Resolve("db")
package dependency

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// Source identifies where a resolved value came from.
type Source string

const (
	SourceRegistry Source = "registry"
	SourceGlobal   Source = "global"
	SourceMissing  Source = "missing"
)

// Registry maps dependency names to values. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	values   map[string]any
	globals  Globals
	logger   zerolog.Logger
	observer Observer
}

// Option configures a Registry.
type Option func(*Registry)

// WithGlobals sets the ambient namespace used as the second resolution tier.
func WithGlobals(g Globals) Option {
	return func(r *Registry) {
		if g != nil {
			r.globals = g
		}
	}
}

// WithLogger sets the registry logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithObserver sets the observer notified on registration and resolution.
func WithObserver(o Observer) Option {
	return func(r *Registry) {
		if o != nil {
			r.observer = o
		}
	}
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		values:   make(map[string]any),
		globals:  noGlobals{},
		logger:   zerolog.Nop(),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register binds name to value, replacing any earlier binding.
func (r *Registry) Register(name string, value any) {
	r.mu.Lock()
	_, replaced := r.values[name]
	r.values[name] = value
	r.mu.Unlock()

	r.logger.Debug().Str("name", name).Bool("replaced", replaced).Msg("dependency registered")
	r.observer.DependencyRegistered(name)
}

// RegisterAll binds every entry of values. Order is irrelevant.
func (r *Registry) RegisterAll(values map[string]any) {
	for name, value := range values {
		r.Register(name, value)
	}
}

// Resolve returns the value bound to name.
func (r *Registry) Resolve(name string) (any, error) {
	value, _, err := r.Lookup(name)
	return value, err
}

// Lookup resolves name and reports which tier supplied the value.
func (r *Registry) Lookup(name string) (any, Source, error) {
	value, source, err := r.Peek(name)
	if source == SourceGlobal {
		r.logger.Debug().Str("name", name).Msg("dependency resolved from globals")
	}
	r.observer.DependencyResolved(name, string(source))
	return value, source, err
}

// Peek resolves name like Lookup without notifying the observer. Use it
// for inspection so listings do not count as resolutions.
func (r *Registry) Peek(name string) (any, Source, error) {
	r.mu.RLock()
	value, ok := r.values[name]
	globals := r.globals
	r.mu.RUnlock()

	if ok {
		return value, SourceRegistry, nil
	}
	if value, ok := globals.Lookup(name); ok {
		return value, SourceGlobal, nil
	}
	return nil, SourceMissing, &NotFoundError{Name: name}
}

// Has reports whether name is explicitly registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.values[name]
	return ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.values))
	for name := range r.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetGlobals replaces the ambient namespace. nil disables the global tier.
func (r *Registry) SetGlobals(g Globals) {
	if g == nil {
		g = noGlobals{}
	}
	r.mu.Lock()
	r.globals = g
	r.mu.Unlock()
}

// Reset removes every registration. Globals are kept.
func (r *Registry) Reset() {
	r.mu.Lock()
	r.values = make(map[string]any)
	r.mu.Unlock()

	r.logger.Debug().Msg("dependency registry reset")
}
