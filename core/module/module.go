// Package module provides hierarchical, dot-addressed module trees whose
// definitions receive their dependencies by parameter name.
//
// Usage:
//
//	dependency.Register("logger", logger)
//
//	app, _ := module.New("App")
//	models, err := app.Module("Domain.Models", module.Define(
//		func(Models *module.Module, logger zerolog.Logger) {
//			logger.Info().Str("path", Models.Path()).Msg("models ready")
//		},
//	))
//
// A tree is safe for concurrent use. Children are constructed outside
// their parent's lock, so Initialize hooks may read or extend the tree.
// Concurrent calls for the same missing path wait for a single
// construction; a hook that requests its own path through its parent
// therefore never returns.
package module

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"
)

var rootName = regexp.MustCompile(`^[a-zA-Z0-9]+$`)

// Module is one node of a module tree.
type Module struct {
	id      string
	name    string
	parent  *Module
	class   *Class
	env     *env
	created time.Time

	mu          sync.RWMutex
	children    map[string]*Module
	order       []string
	pending     map[string]*inflight
	moduleClass *Class

	propsMu sync.RWMutex
	props   map[string]any
}

// New constructs a root module of the base class.
func New(name string, opts ...Option) (*Module, error) {
	return Base.New(name, opts...)
}

func construct(class *Class, name string, opts ...Option) (*Module, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	if o.parent == nil && !rootName.MatchString(name) {
		return nil, &ConfigurationError{Name: name, Reason: "cannot create a sub-module without a parent module"}
	}
	if o.parent != nil && (name == "" || strings.Contains(name, ".")) {
		return nil, &ConfigurationError{Name: name, Reason: "invalid sub-module name"}
	}

	e := o.environment()
	m := &Module{
		id:       e.ids.New(),
		name:     name,
		parent:   o.parent,
		class:    class,
		env:      e,
		created:  e.clock.Now(),
		children: make(map[string]*Module),
		props:    class.defaults(),
	}

	e.logger.Debug().
		Str("module", m.Path()).
		Str("class", class.name).
		Str("id", m.id).
		Msg("module created")
	e.observer.ModuleCreated(class.name)

	if err := class.Initialize(m); err != nil {
		return nil, fmt.Errorf("initialize %s: %w", m.Path(), err)
	}

	for _, def := range o.defs {
		if err := m.AddDefinition(def); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// Module resolves the dotted path below m, creating missing nodes, and
// runs defs against the node it ends on. Repeated calls with the same path
// return the same node.
func (m *Module) Module(path string, defs ...Definition) (*Module, error) {
	node := m
	for _, segment := range strings.Split(path, ".") {
		child, err := node.lookupOrCreate(segment)
		if err != nil {
			return nil, err
		}
		node = child
	}

	for _, def := range defs {
		if err := node.AddDefinition(def); err != nil {
			return nil, err
		}
	}
	return node, nil
}

// inflight is a child under construction. done closes once child and err
// are set.
type inflight struct {
	done  chan struct{}
	child *Module
	err   error
}

func (m *Module) lookupOrCreate(name string) (*Module, error) {
	m.mu.Lock()
	if child, ok := m.children[name]; ok {
		m.mu.Unlock()
		return child, nil
	}
	if call, ok := m.pending[name]; ok {
		m.mu.Unlock()
		<-call.done
		if call.err != nil {
			return nil, call.err
		}
		return call.child, nil
	}

	call := &inflight{done: make(chan struct{})}
	if m.pending == nil {
		m.pending = make(map[string]*inflight)
	}
	m.pending[name] = call
	class := m.classForChildren()
	m.mu.Unlock()

	call.child, call.err = class.New(name, WithParent(m))

	m.mu.Lock()
	delete(m.pending, name)
	if call.err == nil {
		m.children[name] = call.child
		m.order = append(m.order, name)
	}
	m.mu.Unlock()
	close(call.done)

	if call.err != nil {
		return nil, call.err
	}
	return call.child, nil
}

// CreateSubmodule instantiates a child of m's ModuleClass and runs defs on
// it. The child is not inserted into m's children; Module does that.
func (m *Module) CreateSubmodule(name string, defs ...Definition) (*Module, error) {
	return m.ModuleClass().New(name, WithParent(m), WithDefinition(defs...))
}

// Lookup returns the node at the dotted path below m without creating it.
func (m *Module) Lookup(path string) (*Module, bool) {
	node := m
	for _, segment := range strings.Split(path, ".") {
		child, ok := node.Child(segment)
		if !ok {
			return nil, false
		}
		node = child
	}
	return node, true
}

// Child returns the direct child called name.
func (m *Module) Child(name string) (*Module, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	child, ok := m.children[name]
	return child, ok
}

// Children returns the direct children in creation order.
func (m *Module) Children() []*Module {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Module, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.children[name])
	}
	return out
}

// SetModuleClass sets the class used for m's future children. Existing
// children keep their class.
func (m *Module) SetModuleClass(c *Class) {
	m.mu.Lock()
	m.moduleClass = c
	m.mu.Unlock()
}

// ModuleClass returns the class used for m's children: the one set with
// SetModuleClass, or m's own class.
func (m *Module) ModuleClass() *Class {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.classForChildren()
}

// classForChildren requires m.mu.
func (m *Module) classForChildren() *Class {
	if m.moduleClass != nil {
		return m.moduleClass
	}
	return m.class
}

// InstanceOf reports whether m's class is c or derives from c.
func (m *Module) InstanceOf(c *Class) bool {
	return m.class.IsSubclassOf(c)
}

func (m *Module) ID() string           { return m.id }
func (m *Module) Name() string         { return m.name }
func (m *Module) Parent() *Module      { return m.parent }
func (m *Module) Class() *Class        { return m.class }
func (m *Module) CreatedAt() time.Time { return m.created }

// Root returns the top of m's tree.
func (m *Module) Root() *Module {
	node := m
	for node.parent != nil {
		node = node.parent
	}
	return node
}

// Path returns the dotted name from the root down to m.
func (m *Module) Path() string {
	var names []string
	for node := m; node != nil; node = node.parent {
		names = append(names, node.name)
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return strings.Join(names, ".")
}

// Set stores a property on m.
func (m *Module) Set(key string, value any) {
	m.propsMu.Lock()
	m.props[key] = value
	m.propsMu.Unlock()
}

// Get returns a property of m.
func (m *Module) Get(key string) (any, bool) {
	m.propsMu.RLock()
	defer m.propsMu.RUnlock()
	v, ok := m.props[key]
	return v, ok
}

// Props returns a copy of m's properties.
func (m *Module) Props() map[string]any {
	m.propsMu.RLock()
	defer m.propsMu.RUnlock()

	out := make(map[string]any, len(m.props))
	for k, v := range m.props {
		out[k] = v
	}
	return out
}

// Walk calls fn for m and every descendant, parents before children.
// It stops at the first error.
func (m *Module) Walk(fn func(*Module) error) error {
	if err := fn(m); err != nil {
		return err
	}
	for _, child := range m.Children() {
		if err := child.Walk(fn); err != nil {
			return err
		}
	}
	return nil
}

// Snapshot is a point-in-time view of a subtree.
type Snapshot struct {
	ID        string            `json:"id" yaml:"id"`
	Name      string            `json:"name" yaml:"name"`
	Path      string            `json:"path" yaml:"path"`
	Class     string            `json:"class" yaml:"class"`
	CreatedAt time.Time         `json:"created_at" yaml:"created_at"`
	Props     map[string]string `json:"props,omitempty" yaml:"props,omitempty"`
	Children  []Snapshot        `json:"children,omitempty" yaml:"children,omitempty"`
}

// Snapshot captures m and its descendants.
func (m *Module) Snapshot() Snapshot {
	s := Snapshot{
		ID:        m.id,
		Name:      m.name,
		Path:      m.Path(),
		Class:     m.class.name,
		CreatedAt: m.created,
	}

	props := m.Props()
	if len(props) > 0 {
		s.Props = make(map[string]string, len(props))
		for k, v := range props {
			s.Props[k] = fmt.Sprint(v)
		}
	}

	for _, child := range m.Children() {
		s.Children = append(s.Children, child.Snapshot())
	}
	return s
}
