// Package http serves a read-only inspector for a running module tree.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/artpar/ocky/adapters/metrics"
	"github.com/artpar/ocky/core/dependency"
	"github.com/artpar/ocky/core/formatter"
	"github.com/artpar/ocky/core/module"
)

// Version is reported by /version. Set at build time.
var Version = "dev"

// Source supplies the tree being inspected. It is consulted on every
// request so a rebuilt tree is served as soon as it is swapped in.
type Source interface {
	Root() *module.Module
	Registry() *dependency.Registry
}

// RouterConfig holds optional configuration for the router.
type RouterConfig struct {
	Metrics     *metrics.Collector
	Gatherer    prometheus.Gatherer // serves MetricsPath when set
	MetricsPath string
	Formatters  *formatter.Registry // defaults to formatter.DefaultRegistry
}

// Inspector handles the inspection endpoints.
type Inspector struct {
	source     Source
	formatters *formatter.Registry
	logger     zerolog.Logger
}

// NewInspector creates an inspector over source.
func NewInspector(source Source, formatters *formatter.Registry, logger zerolog.Logger) *Inspector {
	if formatters == nil {
		formatters = formatter.DefaultRegistry
	}
	return &Inspector{source: source, formatters: formatters, logger: logger}
}

// NewRouter creates the inspector router.
func NewRouter(source Source, logger zerolog.Logger, cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewLoggingMiddleware(logger))
	r.Use(middleware.Recoverer)

	if cfg.Metrics != nil {
		r.Use(NewMetricsMiddleware(cfg.Metrics))
	}

	in := NewInspector(source, cfg.Formatters, logger)

	r.Get("/healthz", Health)
	r.Get("/version", VersionHandler)

	r.Get("/modules", in.Tree)
	r.Get("/modules/{path}", in.Module)
	r.Get("/dependencies", in.Dependencies)
	r.Get("/dependencies/{name}", in.Dependency)

	if cfg.Gatherer != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	return r
}

// Health reports that the process is serving.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// VersionResponse is the /version body.
type VersionResponse struct {
	Version string `json:"version"`
	Service string `json:"service"`
}

// VersionHandler returns the service version.
func VersionHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: Version, Service: "ocky"})
}

// Tree renders the whole tree.
func (in *Inspector) Tree(w http.ResponseWriter, r *http.Request) {
	f, ok := in.formatter(w, r)
	if !ok {
		return
	}
	in.render(w, f, func() error {
		return f.FormatTree(w, in.source.Root().Snapshot(), formatter.FormatOptions{})
	})
}

// Module renders the subtree at {path}. The path may start with the root's
// name.
func (in *Inspector) Module(w http.ResponseWriter, r *http.Request) {
	f, ok := in.formatter(w, r)
	if !ok {
		return
	}

	path := chi.URLParam(r, "path")
	node, found := lookup(in.source.Root(), path)
	if !found {
		in.fail(w, f, http.StatusNotFound, fmt.Errorf("module %q not found", path))
		return
	}

	in.render(w, f, func() error {
		return f.FormatTree(w, node.Snapshot(), formatter.FormatOptions{})
	})
}

// Dependencies lists every registered dependency. Inspection does not
// count as resolution in the registry's observer.
func (in *Inspector) Dependencies(w http.ResponseWriter, r *http.Request) {
	f, ok := in.formatter(w, r)
	if !ok {
		return
	}

	reg := in.source.Registry()
	names := reg.Names()
	sort.Strings(names)

	records := make([]map[string]any, 0, len(names))
	for _, name := range names {
		value, source, err := reg.Peek(name)
		if err != nil {
			continue
		}
		records = append(records, describe(name, value, source))
	}

	in.render(w, f, func() error {
		return f.FormatList(w, "dependencies", records, formatter.FormatOptions{
			Columns: []string{"name", "source", "type", "value"},
		})
	})
}

// Dependency resolves one name, consulting globals when it is not
// registered.
func (in *Inspector) Dependency(w http.ResponseWriter, r *http.Request) {
	f, ok := in.formatter(w, r)
	if !ok {
		return
	}

	name := chi.URLParam(r, "name")
	value, source, err := in.source.Registry().Peek(name)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, dependency.ErrNotFound) {
			status = http.StatusNotFound
		}
		in.fail(w, f, status, err)
		return
	}

	in.render(w, f, func() error {
		return f.FormatList(w, "dependencies", []map[string]any{describe(name, value, source)}, formatter.FormatOptions{
			Columns: []string{"name", "source", "type", "value"},
		})
	})
}

func (in *Inspector) formatter(w http.ResponseWriter, r *http.Request) (formatter.Formatter, bool) {
	name := r.URL.Query().Get("format")
	if name == "" {
		name = "json"
	}
	f, ok := in.formatters.Get(name)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("unknown format %q, want one of %s", name, strings.Join(in.formatters.List(), ", ")),
		})
		return nil, false
	}
	return f, true
}

func (in *Inspector) render(w http.ResponseWriter, f formatter.Formatter, write func() error) {
	w.Header().Set("Content-Type", contentType(f.Name()))
	if err := write(); err != nil {
		in.logger.Error().Err(err).Str("format", f.Name()).Msg("render failed")
	}
}

func (in *Inspector) fail(w http.ResponseWriter, f formatter.Formatter, status int, err error) {
	w.Header().Set("Content-Type", contentType(f.Name()))
	w.WriteHeader(status)
	if ferr := f.FormatError(w, err); ferr != nil {
		in.logger.Error().Err(ferr).Msg("render error failed")
	}
}

func lookup(root *module.Module, path string) (*module.Module, bool) {
	if path == root.Name() {
		return root, true
	}
	return root.Lookup(strings.TrimPrefix(path, root.Name()+"."))
}

func describe(name string, value any, source dependency.Source) map[string]any {
	typ := "nil"
	if value != nil {
		typ = reflect.TypeOf(value).String()
	}
	return map[string]any{
		"name":   name,
		"source": string(source),
		"type":   typ,
		"value":  fmt.Sprint(value),
	}
}

func contentType(format string) string {
	switch format {
	case "json":
		return "application/json"
	case "yaml":
		return "application/yaml"
	default:
		return "text/plain; charset=utf-8"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// NewMetricsMiddleware creates middleware that records request metrics
// labelled by route pattern.
func NewMetricsMiddleware(m *metrics.Collector) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			m.RecordRequest(r.Method, route, ww.Status(), time.Since(start))
		})
	}
}

// NewLoggingMiddleware creates a new logging middleware.
func NewLoggingMiddleware(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			// Skip logging for health checks
			if r.URL.Path == "/healthz" {
				return
			}

			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("http request")
		})
	}
}
