package config

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Reload triggers reported in Update.Trigger.
const (
	TriggerManual = "manual"
	TriggerFile   = "file"
	TriggerSignal = "signal"
)

// DefaultDebounce coalesces the burst of events an editor emits on save.
const DefaultDebounce = 100 * time.Millisecond

// Change is one manifest field that differs between two loads.
type Change struct {
	Field   string
	Old     string
	New     string
	Restart bool // applied only after a restart
}

// Update is passed to change listeners after a manifest reload.
type Update struct {
	Config   *Config
	Previous *Config
	Changes  []Change
	Trigger  string
	At       time.Time
}

// RestartRequired lists the changed fields a reload cannot apply.
func (u Update) RestartRequired() []string {
	var fields []string
	for _, c := range u.Changes {
		if c.Restart {
			fields = append(fields, c.Field)
		}
	}
	return fields
}

type field struct {
	name    string
	restart bool
	value   func(*Config) string
}

// manifestFields covers every field of Config, in manifest order.
var manifestFields = []field{
	{"root", false, func(c *Config) string { return c.Root }},
	{"injection", false, func(c *Config) string { return c.Injection }},
	{"ids", false, func(c *Config) string { return c.IDs.Kind + " " + c.IDs.Prefix }},
	{"globals", false, func(c *Config) string { return keyed(c.Globals) }},
	{"env_globals", false, func(c *Config) string {
		return fmt.Sprintf("%t %s", c.EnvGlobals.Enabled, c.EnvGlobals.Prefix)
	}},
	{"dependencies", false, func(c *Config) string { return keyed(c.Dependencies) }},
	{"modules", false, func(c *Config) string { return fmt.Sprintf("%v", c.Modules) }},
	{"logging.level", false, func(c *Config) string { return c.Logging.Level }},
	{"logging.format", false, func(c *Config) string { return c.Logging.Format }},
	{"server.host", true, func(c *Config) string { return c.Server.Host }},
	{"server.port", true, func(c *Config) string { return fmt.Sprint(c.Server.Port) }},
	{"server.read_timeout", true, func(c *Config) string { return c.Server.ReadTimeout.String() }},
	{"server.write_timeout", true, func(c *Config) string { return c.Server.WriteTimeout.String() }},
	{"metrics.enabled", true, func(c *Config) string { return fmt.Sprint(c.Metrics.Enabled) }},
	{"metrics.path", true, func(c *Config) string { return c.Metrics.Path }},
}

func keyed[V any](m map[string]V) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s=%v", k, m[k])
	}
	return b.String()
}

// Diff lists the fields that differ between old and new.
func Diff(old, new *Config) []Change {
	var changes []Change
	for _, f := range manifestFields {
		before, after := f.value(old), f.value(new)
		if before != after {
			changes = append(changes, Change{Field: f.name, Old: before, New: after, Restart: f.restart})
		}
	}
	return changes
}

// ReloadableFields returns the manifest fields applied without restart.
// A reload rebuilds the tree, so everything but the listener is reloadable.
func ReloadableFields() []string {
	return fieldNames(false)
}

// NonReloadableFields returns the manifest fields that require a restart.
func NonReloadableFields() []string {
	return fieldNames(true)
}

func fieldNames(restart bool) []string {
	var names []string
	for _, f := range manifestFields {
		if f.restart == restart {
			names = append(names, f.name)
		}
	}
	return names
}

// HolderOption configures a Holder.
type HolderOption func(*Holder)

// WithDebounce sets how long the holder waits for file and signal events
// to settle before reloading.
func WithDebounce(d time.Duration) HolderOption {
	return func(h *Holder) { h.debounce = d }
}

// WithNow sets the clock used to stamp updates.
func WithNow(now func() time.Time) HolderOption {
	return func(h *Holder) { h.now = now }
}

// Holder keeps the current manifest and reloads it on demand, on file
// changes and on SIGHUP. Reloads are serialized.
type Holder struct {
	path     string
	logger   zerolog.Logger
	debounce time.Duration
	now      func() time.Time

	mu        sync.RWMutex
	current   *Config
	listeners []func(Update)
	failures  []func(error)

	reloadMu sync.Mutex

	requests chan string
	loopOnce sync.Once
	stopOnce sync.Once
	done     chan struct{}
	watcher  *fsnotify.Watcher
}

// NewHolder loads the manifest at path.
func NewHolder(path string, logger zerolog.Logger, opts ...HolderOption) (*Holder, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	cfg, err := Load(abs)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	h := &Holder{
		path:     abs,
		logger:   logger.With().Str("manifest", abs).Logger(),
		debounce: DefaultDebounce,
		now:      time.Now,
		current:  cfg,
		requests: make(chan string, 1),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Get returns the current manifest.
func (h *Holder) Get() *Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Path returns the absolute manifest path.
func (h *Holder) Path() string {
	return h.path
}

// OnChange registers fn to run after every reload that changed the
// manifest.
func (h *Holder) OnChange(fn func(Update)) {
	h.mu.Lock()
	h.listeners = append(h.listeners, fn)
	h.mu.Unlock()
}

// OnError registers fn to run after every reload that could not load the
// manifest.
func (h *Holder) OnError(fn func(error)) {
	h.mu.Lock()
	h.failures = append(h.failures, fn)
	h.mu.Unlock()
}

// Reload re-reads the manifest now. On failure the previous manifest is
// kept. A manifest identical to the current one is not reported to
// listeners.
func (h *Holder) Reload() error {
	return h.reload(TriggerManual)
}

func (h *Holder) reload(trigger string) error {
	h.reloadMu.Lock()
	defer h.reloadMu.Unlock()

	log := h.logger.With().Str("trigger", trigger).Logger()

	next, err := Load(h.path)
	if err != nil {
		log.Error().Err(err).Msg("manifest reload failed, keeping current manifest")
		h.mu.RLock()
		failures := append([]func(error){}, h.failures...)
		h.mu.RUnlock()
		for _, fn := range failures {
			fn(err)
		}
		return fmt.Errorf("reload config: %w", err)
	}

	h.mu.Lock()
	update := Update{
		Config:   next,
		Previous: h.current,
		Changes:  Diff(h.current, next),
		Trigger:  trigger,
		At:       h.now(),
	}
	h.current = next
	listeners := append([]func(Update){}, h.listeners...)
	h.mu.Unlock()

	if len(update.Changes) == 0 {
		log.Debug().Msg("manifest unchanged")
		return nil
	}

	for _, c := range update.Changes {
		ev := log.Info()
		if c.Restart {
			ev = log.Warn().Bool("restart_required", true)
		}
		ev.Str("field", c.Field).Str("old", c.Old).Str("new", c.New).Msg("manifest field changed")
	}
	for _, fn := range listeners {
		fn(update)
	}
	return nil
}

// WatchFile reloads after the manifest file is written or replaced.
func (h *Holder) WatchFile() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	// Atomic saves replace the file, so the directory is watched.
	if err := watcher.Add(filepath.Dir(h.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch directory: %w", err)
	}

	h.mu.Lock()
	h.watcher = watcher
	h.mu.Unlock()

	h.startLoop()
	go func() {
		name := filepath.Base(h.path)
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) == name && ev.Has(fsnotify.Write|fsnotify.Create) {
					h.request(TriggerFile)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				h.logger.Error().Err(err).Msg("file watcher error")
			case <-h.done:
				return
			}
		}
	}()

	h.logger.Info().Msg("watching manifest for changes")
	return nil
}

// WatchSignals reloads on SIGHUP.
func (h *Holder) WatchSignals() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP)

	h.startLoop()
	go func() {
		defer signal.Stop(sig)
		for {
			select {
			case <-sig:
				h.request(TriggerSignal)
			case <-h.done:
				return
			}
		}
	}()

	h.logger.Info().Msg("listening for SIGHUP to reload manifest")
}

// Stop ends file and signal watching. It is safe to call more than once.
func (h *Holder) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.mu.Lock()
		if h.watcher != nil {
			h.watcher.Close()
		}
		h.mu.Unlock()
	})
}

// request queues a reload. A request made while one is queued is merged
// into it.
func (h *Holder) request(trigger string) {
	select {
	case h.requests <- trigger:
	default:
	}
}

func (h *Holder) startLoop() {
	h.loopOnce.Do(func() { go h.loop() })
}

// loop runs queued reloads once events have been quiet for the debounce
// interval.
func (h *Holder) loop() {
	timer := time.NewTimer(h.debounce)
	timer.Stop()

	var trigger string
	for {
		select {
		case t := <-h.requests:
			trigger = t
			timer.Reset(h.debounce)
		case <-timer.C:
			_ = h.reload(trigger)
		case <-h.done:
			timer.Stop()
			return
		}
	}
}
