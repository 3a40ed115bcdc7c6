package module

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/artpar/ocky/core/dependency"
	"github.com/artpar/ocky/core/signature"
	"github.com/artpar/ocky/ports"
)

// InjectionMode selects how a definition's arguments are built.
type InjectionMode int

const (
	// ByName resolves each declared parameter name through the registry.
	// The first parameter receives the module itself when its name equals
	// the module's name.
	ByName InjectionMode = iota

	// Positional passes the module followed by the definition's literal
	// Args, ignoring parameter names.
	//
	// Deprecated: use ByName. Positional is kept for manifests written
	// against the older calling convention.
	Positional
)

func (m InjectionMode) String() string {
	switch m {
	case ByName:
		return "name"
	case Positional:
		return "positional"
	default:
		return fmt.Sprintf("InjectionMode(%d)", int(m))
	}
}

// ParseInjectionMode parses "name" or "positional".
func ParseInjectionMode(s string) (InjectionMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "name", "byname", "by_name":
		return ByName, nil
	case "positional":
		return Positional, nil
	default:
		return ByName, fmt.Errorf("unknown injection mode %q (want name or positional)", s)
	}
}

// Observer receives tree events. adapters/metrics implements it.
type Observer interface {
	ModuleCreated(class string)
	DefinitionRun(mode string, elapsed time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) ModuleCreated(string)                       {}
func (nopObserver) DefinitionRun(string, time.Duration, error) {}

type idFunc func() string

func (f idFunc) New() string { return f() }

type clockFunc func() time.Time

func (f clockFunc) Now() time.Time { return f() }

// env is shared by every node of a tree.
type env struct {
	registry   *dependency.Registry
	logger     zerolog.Logger
	observer   Observer
	mode       InjectionMode
	ids        ports.IDGenerator
	clock      ports.Clock
	introspect func(fn any) ([]string, error)
	deprecated *sync.Once
}

func defaultEnv() *env {
	return &env{
		registry:   dependency.Default(),
		logger:     zerolog.Nop(),
		observer:   nopObserver{},
		mode:       ByName,
		ids:        idFunc(uuid.NewString),
		clock:      clockFunc(time.Now),
		introspect: signature.Of,
		deprecated: new(sync.Once),
	}
}

type options struct {
	parent    *Module
	defs      []Definition
	overrides []func(*env)
}

// Option configures module construction.
type Option func(*options)

// WithParent attaches the new module under parent. Only CreateSubmodule and
// path resolution need this; a module built with a parent is not inserted
// into the parent's children.
func WithParent(parent *Module) Option {
	return func(o *options) {
		o.parent = parent
	}
}

// WithDefinition runs defs against the module once it is initialized.
func WithDefinition(defs ...Definition) Option {
	return func(o *options) {
		o.defs = append(o.defs, defs...)
	}
}

// WithRegistry sets the dependency registry. Defaults to dependency.Default().
func WithRegistry(r *dependency.Registry) Option {
	return override(func(e *env) {
		if r != nil {
			e.registry = r
		}
	})
}

// WithLogger sets the tree logger. Defaults to a no-op logger.
func WithLogger(logger zerolog.Logger) Option {
	return override(func(e *env) {
		e.logger = logger
	})
}

// WithObserver sets the observer notified on module creation and
// definition runs.
func WithObserver(o Observer) Option {
	return override(func(e *env) {
		if o != nil {
			e.observer = o
		}
	})
}

// WithInjection sets the injection mode for the tree.
func WithInjection(mode InjectionMode) Option {
	return override(func(e *env) {
		e.mode = mode
	})
}

// WithIDGenerator sets the generator for module instance IDs.
func WithIDGenerator(ids ports.IDGenerator) Option {
	return override(func(e *env) {
		if ids != nil {
			e.ids = ids
		}
	})
}

// WithClock sets the clock used for creation times and definition timing.
func WithClock(clock ports.Clock) Option {
	return override(func(e *env) {
		if clock != nil {
			e.clock = clock
		}
	})
}

func override(fn func(*env)) Option {
	return func(o *options) {
		o.overrides = append(o.overrides, fn)
	}
}

// environment returns the env for a new node: the parent's when there is
// one, otherwise a fresh default. Overrides always produce a private copy.
func (o *options) environment() *env {
	var e *env
	if o.parent != nil {
		e = o.parent.env
	} else {
		e = defaultEnv()
	}
	if len(o.overrides) == 0 {
		return e
	}

	cp := *e
	for _, fn := range o.overrides {
		fn(&cp)
	}
	return &cp
}
