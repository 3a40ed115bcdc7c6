package module_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/ocky/core/dependency"
	"github.com/artpar/ocky/core/module"
)

func TestExtend_CustomModules(t *testing.T) {
	var initialized []string
	custom := module.Base.Extend(module.Proto{
		Name: "Custom",
		Initialize: func(m *module.Module) error {
			initialized = append(initialized, m.Name())
			return nil
		},
	}, nil)

	m, err := custom.New("Test", module.WithRegistry(dependency.New()))
	require.NoError(t, err)

	assert.True(t, m.InstanceOf(custom))
	assert.True(t, m.InstanceOf(module.Base))
	assert.Same(t, custom, m.Class())
	assert.Equal(t, []string{"Test"}, initialized)

	child, err := m.Module("ChildModule")
	require.NoError(t, err)
	assert.True(t, child.InstanceOf(custom), "children inherit the parent's class")
	assert.Equal(t, []string{"Test", "ChildModule"}, initialized)
}

func TestExtend_SetModuleClass(t *testing.T) {
	custom := module.Base.Extend(module.Proto{Name: "Custom"}, nil)

	var anotherInits int
	another := module.Base.Extend(module.Proto{
		Name: "Another",
		Initialize: func(*module.Module) error {
			anotherInits++
			return nil
		},
	}, nil)

	m, err := custom.New("Test", module.WithRegistry(dependency.New()))
	require.NoError(t, err)
	before, err := m.Module("Before")
	require.NoError(t, err)

	m.SetModuleClass(another)
	assert.Same(t, another, m.ModuleClass())

	after, err := m.Module("AnotherChildModule")
	require.NoError(t, err)

	assert.True(t, after.InstanceOf(another))
	assert.False(t, after.InstanceOf(custom))
	assert.Equal(t, 1, anotherInits)
	assert.True(t, before.InstanceOf(custom), "existing children keep their class")

	grandchild, err := after.Module("Deeper")
	require.NoError(t, err)
	assert.True(t, grandchild.InstanceOf(another))

	sibling, err := m.Module("Before.Sibling")
	require.NoError(t, err)
	assert.True(t, sibling.InstanceOf(custom), "override only affects m's own children")
}

func TestExtend_InitializeBeforeDefinition(t *testing.T) {
	var order []string
	custom := module.Base.Extend(module.Proto{
		Initialize: func(m *module.Module) error {
			order = append(order, "initialize")
			m.Set("ready", true)
			return nil
		},
	}, nil)

	_, err := custom.New("App",
		module.WithRegistry(dependency.New()),
		module.WithDefinition(module.Define(func(App *module.Module) {
			ready, _ := App.Get("ready")
			order = append(order, "definition")
			if ready != true {
				t.Error("definition ran before initialize")
			}
		})),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"initialize", "definition"}, order)
}

func TestExtend_InitializeReadsTree(t *testing.T) {
	var seen []int
	emitting := module.Base.Extend(module.Proto{
		Name: "Emitting",
		Initialize: func(m *module.Module) error {
			if m.Parent() == nil {
				return nil
			}
			seen = append(seen, len(m.Parent().Children()))
			_ = m.Parent().ModuleClass()
			_ = m.Root().Snapshot()
			if m.Name() == "Views" {
				_, err := m.Parent().Module("Siblings")
				return err
			}
			return nil
		},
	}, nil)

	app, err := emitting.New("App", module.WithRegistry(dependency.New()))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := app.Module("Views")
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Module(\"Views\") did not return while Initialize read its parent")
	}

	assert.Equal(t, []int{0, 0}, seen, "a child is listed only after it is initialized")
	var names []string
	for _, c := range app.Children() {
		names = append(names, c.Name())
	}
	assert.Equal(t, []string{"Siblings", "Views"}, names)
}

func TestExtend_InitializeError(t *testing.T) {
	boom := errors.New("boom")
	failing := module.Base.Extend(module.Proto{
		Initialize: func(*module.Module) error { return boom },
	}, nil)

	ran := false
	_, err := failing.New("App",
		module.WithRegistry(dependency.New()),
		module.WithDefinition(module.Define(func(App *module.Module) { ran = true })),
	)
	assert.ErrorIs(t, err, boom)
	assert.False(t, ran)
}

func TestExtend_SuperDelegation(t *testing.T) {
	var calls []string
	parent := module.Base.Extend(module.Proto{
		Name: "Parent",
		Initialize: func(*module.Module) error {
			calls = append(calls, "parent")
			return nil
		},
	}, nil)

	var child *module.Class
	child = parent.Extend(module.Proto{
		Name: "Child",
		Initialize: func(m *module.Module) error {
			calls = append(calls, "child")
			return child.Super().Initialize(m)
		},
	}, nil)

	_, err := child.New("App", module.WithRegistry(dependency.New()))
	require.NoError(t, err)
	assert.Equal(t, []string{"child", "parent"}, calls)

	plain := parent.Extend(module.Proto{}, nil)
	calls = nil
	_, err = plain.New("App", module.WithRegistry(dependency.New()))
	require.NoError(t, err)
	assert.Equal(t, []string{"parent"}, calls, "without an override the nearest base hook runs")
	assert.Equal(t, "ParentSubclass", plain.Name())
}

func TestExtend_Construct(t *testing.T) {
	var seen []string
	custom := module.Base.Extend(module.Proto{
		Name: "Tagged",
		Construct: func(super module.ConstructFunc, name string, opts ...module.Option) (*module.Module, error) {
			seen = append(seen, name)
			m, err := super(name, opts...)
			if err != nil {
				return nil, err
			}
			m.Set("tagged", true)
			return m, nil
		},
	}, nil)

	m, err := custom.New("App", module.WithRegistry(dependency.New()))
	require.NoError(t, err)
	assert.True(t, m.InstanceOf(custom))

	child, err := m.Module("Child")
	require.NoError(t, err)
	assert.True(t, child.InstanceOf(custom))

	tagged, _ := child.Get("tagged")
	assert.Equal(t, true, tagged)
	assert.Equal(t, []string{"App", "Child"}, seen)
}

func TestExtend_StaticsAndProps(t *testing.T) {
	base := module.Base.Extend(module.Proto{
		Name:  "Service",
		Props: map[string]any{"kind": "service", "replicas": 1},
	}, map[string]any{"version": "1"})

	derived := base.Extend(module.Proto{
		Name:  "Worker",
		Props: map[string]any{"kind": "worker"},
	}, map[string]any{"queue": "jobs"})

	v, ok := derived.Static("version")
	assert.True(t, ok)
	assert.Equal(t, "1", v)
	v, _ = derived.Static("queue")
	assert.Equal(t, "jobs", v)
	_, ok = base.Static("queue")
	assert.False(t, ok, "statics of a derived class do not leak to the base")

	m, err := derived.New("W", module.WithRegistry(dependency.New()))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"kind": "worker", "replicas": 1}, m.Props())

	assert.True(t, derived.IsSubclassOf(base))
	assert.True(t, derived.IsSubclassOf(module.Base))
	assert.False(t, base.IsSubclassOf(derived))
	assert.Same(t, base, derived.Super())
	assert.Nil(t, module.Base.Super())
}
