package module

// ConstructFunc builds a module of the class being constructed.
type ConstructFunc func(name string, opts ...Option) (*Module, error)

// Proto holds the instance-level overrides of a derived class.
type Proto struct {
	// Name identifies the class in logs, snapshots and metrics.
	// Defaults to the base name with a "Subclass" suffix.
	Name string

	// Initialize runs on every new instance before any definition.
	// Call Super().Initialize(m) to delegate to the base hook.
	Initialize func(m *Module) error

	// Construct replaces the constructor. super builds the instance through
	// the base class chain; the result is still an instance of the derived
	// class. When nil, construction forwards to the base unchanged.
	Construct func(super ConstructFunc, name string, opts ...Option) (*Module, error)

	// Props are copied onto every new instance before Initialize.
	Props map[string]any
}

// Class is a module type. Children are instantiated through their parent's
// ModuleClass, so a derived class propagates down the tree without callers
// naming it.
type Class struct {
	name       string
	super      *Class
	initialize func(m *Module) error
	construct  func(super ConstructFunc, name string, opts ...Option) (*Module, error)
	props      map[string]any
	statics    map[string]any
}

// Base is the root class. Its Initialize is a no-op.
var Base = &Class{name: "Module", statics: map[string]any{}}

// Extend derives a class from c. Statics of c are copied and then
// overlaid with statics.
//
//	Emitting := module.Base.Extend(module.Proto{
//		Name: "Emitting",
//		Initialize: func(m *module.Module) error {
//			m.Set("events", make(chan string, 16))
//			return nil
//		},
//	}, nil)
func (c *Class) Extend(proto Proto, statics map[string]any) *Class {
	name := proto.Name
	if name == "" {
		name = c.name + "Subclass"
	}

	merged := make(map[string]any, len(c.statics)+len(statics))
	for k, v := range c.statics {
		merged[k] = v
	}
	for k, v := range statics {
		merged[k] = v
	}

	props := make(map[string]any, len(proto.Props))
	for k, v := range proto.Props {
		props[k] = v
	}

	return &Class{
		name:       name,
		super:      c,
		initialize: proto.Initialize,
		construct:  proto.Construct,
		props:      props,
		statics:    merged,
	}
}

// Name returns the class name.
func (c *Class) Name() string { return c.name }

// Super returns the class c was derived from, or nil for Base.
func (c *Class) Super() *Class { return c.super }

// Static returns a static member.
func (c *Class) Static(key string) (any, bool) {
	v, ok := c.statics[key]
	return v, ok
}

// IsSubclassOf reports whether c is other or derives from it.
func (c *Class) IsSubclassOf(other *Class) bool {
	for k := c; k != nil; k = k.super {
		if k == other {
			return true
		}
	}
	return false
}

// Initialize runs the nearest Initialize override for m. Base's hook does
// nothing.
func (c *Class) Initialize(m *Module) error {
	for k := c; k != nil; k = k.super {
		if k.initialize != nil {
			return k.initialize(m)
		}
	}
	return nil
}

// New constructs a module of class c.
func (c *Class) New(name string, opts ...Option) (*Module, error) {
	return c.create(c, name, opts...)
}

// create runs the constructor chain from c upwards, building an instance
// of self once it reaches Base.
func (c *Class) create(self *Class, name string, opts ...Option) (*Module, error) {
	if c.construct != nil && c.super != nil {
		super := func(name string, opts ...Option) (*Module, error) {
			return c.super.create(self, name, opts...)
		}
		return c.construct(super, name, opts...)
	}
	if c.super != nil {
		return c.super.create(self, name, opts...)
	}
	return construct(self, name, opts...)
}

// defaults returns the instance props of c, base classes first.
func (c *Class) defaults() map[string]any {
	var chain []*Class
	for k := c; k != nil; k = k.super {
		chain = append(chain, k)
	}

	props := make(map[string]any)
	for i := len(chain) - 1; i >= 0; i-- {
		for k, v := range chain[i].props {
			props[k] = v
		}
	}
	return props
}
