// Package metrics records container activity as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder receives container events. The zero-cost implementation returned by
// NewNoop is used when metrics are disabled.
type Recorder interface {
	BeanCreated(scope string, duration time.Duration)
	BeanDestroyed(scope string)
	DestructionFailed(scope string)
	ResolutionFailed(kind string)
	ScopeLookup(scope string, hit bool)
	CacheLookup(cache string, hit bool)
	CachesInvalidated()
}

// NewNoop returns a Recorder that discards everything.
func NewNoop() Recorder {
	return noop{}
}

type noop struct{}

func (noop) BeanCreated(string, time.Duration) {}
func (noop) BeanDestroyed(string)              {}
func (noop) DestructionFailed(string)          {}
func (noop) ResolutionFailed(string)           {}
func (noop) ScopeLookup(string, bool)          {}
func (noop) CacheLookup(string, bool)          {}
func (noop) CachesInvalidated()                {}

// Prometheus is a Recorder backed by Prometheus collectors.
type Prometheus struct {
	created          *prometheus.CounterVec
	creationDuration *prometheus.HistogramVec
	destroyed        *prometheus.CounterVec
	destroyFailures  *prometheus.CounterVec
	resolveFailures  *prometheus.CounterVec
	scopeLookups     *prometheus.CounterVec
	cacheLookups     *prometheus.CounterVec
	invalidations    prometheus.Counter
	liveBeans        *prometheus.GaugeVec
}

// NewPrometheus creates the collectors under namespace and registers them with reg.
func NewPrometheus(reg prometheus.Registerer, namespace string) (*Prometheus, error) {
	const subsystem = "beans"

	p := &Prometheus{
		created: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "created_total",
				Help:      "Total number of bean instances created",
			},
			[]string{"scope"},
		),
		creationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "creation_duration_seconds",
				Help:      "Time spent constructing a bean, dependencies included",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"scope"},
		),
		destroyed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "destroyed_total",
				Help:      "Total number of bean instances destroyed",
			},
			[]string{"scope"},
		),
		destroyFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "destruction_failures_total",
				Help:      "Total number of bean teardown failures",
			},
			[]string{"scope"},
		),
		resolveFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "resolution_failures_total",
				Help:      "Total number of failed resolutions by error kind",
			},
			[]string{"kind"},
		),
		scopeLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "scope_lookups_total",
				Help:      "Scope cache lookups by result",
			},
			[]string{"scope", "result"},
		),
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cache_lookups_total",
				Help:      "Lookup cache reads by cache and result",
			},
			[]string{"cache", "result"},
		),
		invalidations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cache_invalidations_total",
				Help:      "Number of times the candidate caches were invalidated",
			},
		),
		liveBeans: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "live",
				Help:      "Number of live bean instances held by caching scopes",
			},
			[]string{"scope"},
		),
	}

	collectors := []prometheus.Collector{
		p.created, p.creationDuration, p.destroyed, p.destroyFailures,
		p.resolveFailures, p.scopeLookups, p.cacheLookups, p.invalidations, p.liveBeans,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return p, nil
}

func (p *Prometheus) BeanCreated(scope string, duration time.Duration) {
	p.created.WithLabelValues(scope).Inc()
	p.creationDuration.WithLabelValues(scope).Observe(duration.Seconds())
	if scope != "prototype" {
		p.liveBeans.WithLabelValues(scope).Inc()
	}
}

func (p *Prometheus) BeanDestroyed(scope string) {
	p.destroyed.WithLabelValues(scope).Inc()
	if scope != "prototype" {
		p.liveBeans.WithLabelValues(scope).Dec()
	}
}

func (p *Prometheus) DestructionFailed(scope string) {
	p.destroyFailures.WithLabelValues(scope).Inc()
}

func (p *Prometheus) ResolutionFailed(kind string) {
	p.resolveFailures.WithLabelValues(kind).Inc()
}

func (p *Prometheus) ScopeLookup(scope string, hit bool) {
	p.scopeLookups.WithLabelValues(scope, result(hit)).Inc()
}

func (p *Prometheus) CacheLookup(cache string, hit bool) {
	p.cacheLookups.WithLabelValues(cache, result(hit)).Inc()
}

func result(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}

func (p *Prometheus) CachesInvalidated() {
	p.invalidations.Inc()
}
