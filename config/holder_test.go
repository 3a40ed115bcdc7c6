package config_test

import (
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/artpar/ocky/config"
)

const validManifest = `
root: App
modules:
  - path: Views
`

func TestHolder_Get(t *testing.T) {
	h, err := config.NewHolder(writeConfig(t, validManifest), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	cfg := h.Get()
	if cfg == nil {
		t.Fatal("Get returned nil")
	}
	if cfg.Root != "App" || len(cfg.Modules) != 1 {
		t.Errorf("Get() = %+v", cfg)
	}
}

func TestHolder_ReloadAndOnChange(t *testing.T) {
	path := writeConfig(t, validManifest)
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	h, err := config.NewHolder(path, zerolog.Nop(), config.WithNow(func() time.Time { return at }))
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	var received []config.Update
	h.OnChange(func(u config.Update) { received = append(received, u) })

	if err := os.WriteFile(path, []byte("root: Shop\nmodules:\n  - path: A\n  - path: B\n"), 0644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	if err := h.Reload(); err != nil {
		t.Fatalf("Reload error: %v", err)
	}

	if got := h.Get(); got.Root != "Shop" || len(got.Modules) != 2 {
		t.Errorf("after reload Get() = %+v", got)
	}
	if len(received) != 1 {
		t.Fatalf("OnChange called %d times, want 1", len(received))
	}
	u := received[0]
	if u.Config.Root != "Shop" || u.Previous.Root != "App" {
		t.Errorf("update configs = %s -> %s", u.Previous.Root, u.Config.Root)
	}
	if u.Trigger != config.TriggerManual || !u.At.Equal(at) {
		t.Errorf("update trigger = %q at %v", u.Trigger, u.At)
	}

	var fields []string
	for _, c := range u.Changes {
		fields = append(fields, c.Field)
	}
	if strings.Join(fields, ",") != "root,modules" {
		t.Errorf("changed fields = %v, want [root modules]", fields)
	}
	if len(u.RestartRequired()) != 0 {
		t.Errorf("RestartRequired() = %v, want none", u.RestartRequired())
	}
}

func TestHolder_ReloadUnchangedSkipsListeners(t *testing.T) {
	path := writeConfig(t, validManifest)

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	calls := 0
	h.OnChange(func(config.Update) { calls++ })

	if err := h.Reload(); err != nil {
		t.Fatalf("Reload error: %v", err)
	}
	if calls != 0 {
		t.Errorf("OnChange called %d times for an unchanged manifest", calls)
	}
}

func TestHolder_RestartRequired(t *testing.T) {
	path := writeConfig(t, validManifest)

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	var got config.Update
	h.OnChange(func(u config.Update) { got = u })

	next := validManifest + "server:\n  port: 9191\nlogging:\n  level: debug\n"
	if err := os.WriteFile(path, []byte(next), 0644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	if err := h.Reload(); err != nil {
		t.Fatalf("Reload error: %v", err)
	}

	restart := got.RestartRequired()
	if len(restart) != 1 || restart[0] != "server.port" {
		t.Errorf("RestartRequired() = %v, want [server.port]", restart)
	}
}

func TestDiff(t *testing.T) {
	base := func() *config.Config {
		return &config.Config{
			Root:         "App",
			Globals:      map[string]string{"a": "1", "b": "2"},
			Dependencies: map[string]any{"port": 8080},
			Modules:      []config.ModuleConfig{{Path: "Views", Props: map[string]any{"x": 1}}},
		}
	}

	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   []string
	}{
		{"identical", func(*config.Config) {}, nil},
		{"global value", func(c *config.Config) { c.Globals["b"] = "3" }, []string{"globals"}},
		{"dependency added", func(c *config.Config) { c.Dependencies["db"] = "pg" }, []string{"dependencies"}},
		{"module prop", func(c *config.Config) { c.Modules[0].Props["x"] = 2 }, []string{"modules"}},
		{"listener", func(c *config.Config) {
			c.Server.Host = "0.0.0.0"
			c.Metrics.Enabled = true
		}, []string{"server.host", "metrics.enabled"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := base()
			tt.mutate(next)

			var got []string
			for _, c := range config.Diff(base(), next) {
				got = append(got, c.Field)
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("Diff() fields = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHolder_ReloadInvalidKeepsOld(t *testing.T) {
	path := writeConfig(t, validManifest)

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	var reloadErr error
	h.OnError(func(err error) { reloadErr = err })

	if err := os.WriteFile(path, []byte("root: Not.Valid\n"), 0644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	if err := h.Reload(); err == nil {
		t.Error("Reload should fail for an invalid manifest")
	}
	if reloadErr == nil {
		t.Error("OnError listener was not called")
	}
	if h.Get().Root != "App" {
		t.Errorf("should keep old manifest, got Root = %s", h.Get().Root)
	}
}

func TestHolder_WatchFile(t *testing.T) {
	path := writeConfig(t, validManifest)

	h, err := config.NewHolder(path, zerolog.Nop(), config.WithDebounce(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	changed := make(chan config.Update, 8)
	h.OnChange(func(u config.Update) { changed <- u })

	if err := h.WatchFile(); err != nil {
		t.Fatalf("WatchFile error: %v", err)
	}

	if err := os.WriteFile(path, []byte("root: Watched\n"), 0644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	select {
	case u := <-changed:
		if u.Trigger != config.TriggerFile {
			t.Errorf("Trigger = %q, want %q", u.Trigger, config.TriggerFile)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("file watcher did not trigger reload")
	}

	deadline := time.Now().Add(2 * time.Second)
	for h.Get().Root != "Watched" && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if h.Get().Root != "Watched" {
		t.Errorf("after file watch, Root = %s, want Watched", h.Get().Root)
	}
}

func TestHolder_StopTwice(t *testing.T) {
	h, err := config.NewHolder(writeConfig(t, validManifest), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	h.WatchSignals()
	h.Stop()
	h.Stop()
}

func TestHolder_ConcurrentAccess(t *testing.T) {
	h, err := config.NewHolder(writeConfig(t, validManifest), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if h.Get() == nil {
					t.Error("concurrent Get returned nil")
				}
			}
		}()
	}
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.Reload()
		}()
	}
	wg.Wait()
}

func TestReloadableFields(t *testing.T) {
	reloadable := make(map[string]bool)
	for _, f := range config.ReloadableFields() {
		reloadable[f] = true
	}
	for _, f := range []string{"modules", "dependencies", "globals", "logging.level"} {
		if !reloadable[f] {
			t.Errorf("%s not in ReloadableFields", f)
		}
	}

	for _, f := range config.NonReloadableFields() {
		if reloadable[f] {
			t.Errorf("%s is both reloadable and non-reloadable", f)
		}
	}
}
