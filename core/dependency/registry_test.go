package dependency_test

import (
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/artpar/ocky/core/dependency"
)

func TestRegistry_RegisterAndResolve(t *testing.T) {
	reg := dependency.New()
	value := &struct{ name string }{"db"}

	reg.Register("X", value)

	got, err := reg.Resolve("X")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got != value {
		t.Errorf("Resolve() = %v, want %v", got, value)
	}
}

func TestRegistry_RegisterOverwrites(t *testing.T) {
	reg := dependency.New()
	reg.Register("X", 1)
	reg.Register("X", 2)

	got, _ := reg.Resolve("X")
	if got != 2 {
		t.Errorf("Resolve() = %v, want 2", got)
	}
}

func TestRegistry_RegisterAll(t *testing.T) {
	reg := dependency.New()
	reg.Register("a", "old")
	reg.RegisterAll(map[string]any{"a": "new", "b": 2, "c": nil})

	for name, want := range map[string]any{"a": "new", "b": 2, "c": nil} {
		got, err := reg.Resolve(name)
		if err != nil {
			t.Fatalf("Resolve(%q) error = %v", name, err)
		}
		if got != want {
			t.Errorf("Resolve(%q) = %v, want %v", name, got, want)
		}
	}

	if names := reg.Names(); !reflect.DeepEqual(names, []string{"a", "b", "c"}) {
		t.Errorf("Names() = %v, want [a b c]", names)
	}
}

func TestRegistry_NotFound(t *testing.T) {
	reg := dependency.New()

	_, err := reg.Resolve("Y")
	if !errors.Is(err, dependency.ErrNotFound) {
		t.Fatalf("Resolve() error = %v, want ErrNotFound", err)
	}

	var nf *dependency.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("error should be *NotFoundError, got %T", err)
	}
	if nf.Name != "Y" {
		t.Errorf("NotFoundError.Name = %q, want Y", nf.Name)
	}
	if err.Error() != "could not resolve dependency for `Y`" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestRegistry_GlobalFallback(t *testing.T) {
	globals := dependency.GlobalsFunc(func(name string) (any, bool) {
		switch name {
		case "window", "shadowed":
			return "global:" + name, true
		}
		return nil, false
	})
	reg := dependency.New(dependency.WithGlobals(globals))
	reg.Register("shadowed", "registered")

	got, source, err := reg.Lookup("window")
	if err != nil {
		t.Fatalf("Lookup(window) error = %v", err)
	}
	if got != "global:window" || source != dependency.SourceGlobal {
		t.Errorf("Lookup(window) = %v, %v; want global:window, global", got, source)
	}

	got, source, err = reg.Lookup("shadowed")
	if err != nil {
		t.Fatalf("Lookup(shadowed) error = %v", err)
	}
	if got != "registered" || source != dependency.SourceRegistry {
		t.Errorf("Lookup(shadowed) = %v, %v; registration should win over globals", got, source)
	}

	_, source, err = reg.Lookup("absent")
	if !errors.Is(err, dependency.ErrNotFound) || source != dependency.SourceMissing {
		t.Errorf("Lookup(absent) = %v, %v; want missing, ErrNotFound", source, err)
	}
}

func TestRegistry_SetGlobals(t *testing.T) {
	reg := dependency.New()
	if _, err := reg.Resolve("env"); err == nil {
		t.Fatal("Resolve() should fail without globals")
	}

	reg.SetGlobals(dependency.GlobalsFunc(func(name string) (any, bool) { return "value", name == "env" }))
	if got, err := reg.Resolve("env"); err != nil || got != "value" {
		t.Errorf("Resolve() = %v, %v; want value", got, err)
	}

	reg.SetGlobals(nil)
	if _, err := reg.Resolve("env"); err == nil {
		t.Error("Resolve() should fail after globals are removed")
	}
}

func TestRegistry_Reset(t *testing.T) {
	reg := dependency.New(dependency.WithGlobals(dependency.GlobalsFunc(func(name string) (any, bool) {
		return 42, name == "answer"
	})))
	reg.Register("X", 1)
	reg.Reset()

	if reg.Has("X") {
		t.Error("Has(X) should be false after Reset")
	}
	if _, err := reg.Resolve("X"); !errors.Is(err, dependency.ErrNotFound) {
		t.Errorf("Resolve(X) error = %v, want ErrNotFound", err)
	}
	if got, _ := reg.Resolve("answer"); got != 42 {
		t.Errorf("Resolve(answer) = %v; globals should survive Reset", got)
	}
}

func TestDefaultRegistry(t *testing.T) {
	t.Cleanup(dependency.Reset)

	dependency.Register("shared", "value")
	dependency.RegisterAll(map[string]any{"other": 1})

	if got, err := dependency.Resolve("shared"); err != nil || got != "value" {
		t.Errorf("Resolve(shared) = %v, %v", got, err)
	}
	if !dependency.Default().Has("other") {
		t.Error("Default().Has(other) should be true")
	}

	dependency.Reset()
	if dependency.Default().Has("shared") {
		t.Error("Reset() should clear the default registry")
	}
}

type recordingObserver struct {
	mu         sync.Mutex
	registered []string
	resolved   map[string]string
}

func (o *recordingObserver) DependencyRegistered(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.registered = append(o.registered, name)
}

func (o *recordingObserver) DependencyResolved(name, source string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.resolved[name] = source
}

func TestRegistry_Observer(t *testing.T) {
	obs := &recordingObserver{resolved: make(map[string]string)}
	reg := dependency.New(dependency.WithObserver(obs))

	reg.Register("a", 1)
	reg.Resolve("a")
	reg.Resolve("b")

	if !reflect.DeepEqual(obs.registered, []string{"a"}) {
		t.Errorf("registered = %v, want [a]", obs.registered)
	}
	if obs.resolved["a"] != "registry" || obs.resolved["b"] != "missing" {
		t.Errorf("resolved = %v", obs.resolved)
	}
}

func TestRegistry_PeekDoesNotObserve(t *testing.T) {
	obs := &recordingObserver{resolved: make(map[string]string)}
	reg := dependency.New(
		dependency.WithObserver(obs),
		dependency.WithGlobals(dependency.GlobalsFunc(func(name string) (any, bool) {
			return "from-global", name == "g"
		})),
	)
	reg.Register("a", 1)

	tests := []struct {
		name   string
		want   any
		source dependency.Source
	}{
		{"a", 1, dependency.SourceRegistry},
		{"g", "from-global", dependency.SourceGlobal},
		{"b", nil, dependency.SourceMissing},
	}
	for _, tt := range tests {
		value, source, err := reg.Peek(tt.name)
		if value != tt.want || source != tt.source {
			t.Errorf("Peek(%q) = %v, %s, want %v, %s", tt.name, value, source, tt.want, tt.source)
		}
		if (err != nil) != (tt.source == dependency.SourceMissing) {
			t.Errorf("Peek(%q) error = %v", tt.name, err)
		}
	}

	if len(obs.resolved) != 0 {
		t.Errorf("resolved = %v, want no notifications", obs.resolved)
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	reg := dependency.New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			reg.Register("shared", i)
			reg.Resolve("shared")
			reg.Names()
		}(i)
	}
	wg.Wait()

	if !reg.Has("shared") {
		t.Error("Has(shared) should be true")
	}
}
