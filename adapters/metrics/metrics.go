// Package metrics provides Prometheus metrics for module trees, the
// dependency registry, the inspector and config reloads.
package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/artpar/ocky/core/dependency"
	"github.com/artpar/ocky/core/module"
)

const namespace = "ocky"

// Collector holds all Prometheus metrics. It implements module.Observer and
// dependency.Observer.
type Collector struct {
	// Module metrics
	ModulesCreated     *prometheus.CounterVec
	DefinitionsTotal   *prometheus.CounterVec
	DefinitionDuration *prometheus.HistogramVec

	// Dependency metrics
	Registrations prometheus.Counter
	Resolutions   *prometheus.CounterVec

	// Inspector metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Config metrics
	ConfigReloads      prometheus.Counter
	ConfigReloadErrors prometheus.Counter
	ConfigLastReload   prometheus.Gauge
}

// New creates a collector registered with the default Prometheus registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a collector registered with reg.
// Useful for testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		ModulesCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "modules_created_total",
				Help:      "Total number of module nodes created",
			},
			[]string{"class"},
		),
		DefinitionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "definitions_total",
				Help:      "Total number of definitions run",
			},
			[]string{"mode", "result"},
		),
		DefinitionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "definition_duration_seconds",
				Help:      "Definition run duration in seconds, injection included",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"mode"},
		),

		Registrations: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dependency_registrations_total",
				Help:      "Total number of dependency registrations",
			},
		),
		Resolutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dependency_resolutions_total",
				Help:      "Total number of dependency resolutions by source",
			},
			[]string{"source"},
		),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "inspector_requests_total",
				Help:      "Total number of inspector requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "inspector_request_duration_seconds",
				Help:      "Inspector request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"method", "route"},
		),

		ConfigReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reloads_total",
				Help:      "Total number of successful config reloads",
			},
		),
		ConfigReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reload_errors_total",
				Help:      "Total number of config reload errors",
			},
		),
		ConfigLastReload: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "config_last_reload_timestamp",
				Help:      "Unix timestamp of last successful config reload",
			},
		),
	}
}

// ModuleCreated implements module.Observer.
func (c *Collector) ModuleCreated(class string) {
	c.ModulesCreated.WithLabelValues(class).Inc()
}

// DefinitionRun implements module.Observer.
func (c *Collector) DefinitionRun(mode string, elapsed time.Duration, err error) {
	c.DefinitionsTotal.WithLabelValues(mode, result(err)).Inc()
	c.DefinitionDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

// DependencyRegistered implements dependency.Observer.
func (c *Collector) DependencyRegistered(string) {
	c.Registrations.Inc()
}

// DependencyResolved implements dependency.Observer. Names are not used as
// labels to keep cardinality bounded.
func (c *Collector) DependencyResolved(_ string, source string) {
	c.Resolutions.WithLabelValues(source).Inc()
}

// RecordRequest records one inspector request.
func (c *Collector) RecordRequest(method, route string, status int, elapsed time.Duration) {
	c.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.RequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// RecordReload records the outcome of a config reload.
func (c *Collector) RecordReload(at time.Time, err error) {
	if err != nil {
		c.ConfigReloadErrors.Inc()
		return
	}
	c.ConfigReloads.Inc()
	c.ConfigLastReload.Set(float64(at.Unix()))
}

func result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, dependency.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

var (
	_ module.Observer     = (*Collector)(nil)
	_ dependency.Observer = (*Collector)(nil)
)
