// Package metrics exposes tracked stats with Prometheus.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bool64/stats"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Tracker implements stats.Tracker with lazily registered Prometheus collectors.
//
// Label names of a metric are fixed by its first occurrence,
// later occurrences with different label names are dropped.
type Tracker struct {
	namespace string
	registry  *prometheus.Registry

	mu       sync.Mutex
	counters map[string]*prometheus.CounterVec
	gauges   map[string]*prometheus.GaugeVec
	labels   map[string]string

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var _ stats.Tracker = &Tracker{}

// NewTracker creates tracker with its own registry that also collects process and runtime metrics.
func NewTracker(namespace string) *Tracker {
	t := &Tracker{
		namespace: namespace,
		registry:  prometheus.NewRegistry(),
		counters:  make(map[string]*prometheus.CounterVec),
		gauges:    make(map[string]*prometheus.GaugeVec),
		labels:    make(map[string]string),
	}

	t.requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	t.duration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	t.registry.MustRegister(
		t.requests,
		t.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return t
}

// Registry returns Prometheus registry.
func (t *Tracker) Registry() *prometheus.Registry {
	return t.registry
}

// Handler serves metrics in exposition format.
func (t *Tracker) Handler() http.Handler {
	return promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{})
}

// Add increments counter, negative increments are ignored.
func (t *Tracker) Add(ctx context.Context, name string, increment float64, labelsAndValues ...string) {
	if increment < 0 {
		return
	}

	names, values := split(labelsAndValues)

	t.mu.Lock()
	defer t.mu.Unlock()

	c, ok := t.counters[name]
	if !ok {
		if !t.claim(name, names) {
			return
		}

		c = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: t.namespace,
			Name:      name,
			Help:      name,
		}, names)

		if err := t.registry.Register(c); err != nil {
			return
		}

		t.counters[name] = c
	} else if t.labels[name] != strings.Join(names, ",") {
		return
	}

	c.WithLabelValues(values...).Add(increment)
}

// Set updates gauge value.
func (t *Tracker) Set(ctx context.Context, name string, absolute float64, labelsAndValues ...string) {
	names, values := split(labelsAndValues)

	t.mu.Lock()
	defer t.mu.Unlock()

	g, ok := t.gauges[name]
	if !ok {
		if !t.claim(name, names) {
			return
		}

		g = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: t.namespace,
			Name:      name,
			Help:      name,
		}, names)

		if err := t.registry.Register(g); err != nil {
			return
		}

		t.gauges[name] = g
	} else if t.labels[name] != strings.Join(names, ",") {
		return
	}

	g.WithLabelValues(values...).Set(absolute)
}

// claim reserves metric name for a label set, it fails if name is taken by another kind of collector.
func (t *Tracker) claim(name string, names []string) bool {
	if _, ok := t.labels[name]; ok {
		return false
	}

	t.labels[name] = strings.Join(names, ",")

	return true
}

func split(labelsAndValues []string) (names, values []string) {
	n := len(labelsAndValues) / 2
	names = make([]string, 0, n)
	values = make([]string, 0, n)

	for i := 0; i+1 < len(labelsAndValues); i += 2 {
		names = append(names, labelsAndValues[i])
		values = append(values, labelsAndValues[i+1])
	}

	return names, values
}

// Middleware counts HTTP requests by chi route pattern.
func (t *Tracker) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unknown"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		t.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		t.duration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
