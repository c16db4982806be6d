// Package metrics exposes Prometheus collectors for the bridge: question
// listings, answer submissions, change events, connected watchers, and the
// HTTP requests that drive them.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a private registry so tests and multiple daemons in one
// process never collide.
type Collector struct {
	registry *prometheus.Registry

	listings      *prometheus.CounterVec
	answers       *prometheus.CounterVec
	changeEvents  prometheus.Counter
	watchers      prometheus.Gauge
	httpInFlight  prometheus.Gauge
	httpRequests  *prometheus.CounterVec
	httpDurations *prometheus.HistogramVec
}

// NewCollector registers every collector under namespace ("qbridge" when
// empty) together with the Go and process collectors.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "qbridge"
	}
	c := &Collector{registry: prometheus.NewRegistry()}

	c.listings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "questions",
			Name:      "listings_total",
			Help:      "Question listings by result.",
		},
		[]string{"result"},
	)
	c.answers = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "questions",
			Name:      "answers_total",
			Help:      "Answer submissions by result and variant.",
		},
		[]string{"result", "variant"},
	)
	c.changeEvents = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "questions",
			Name:      "change_events_total",
			Help:      "QuestionsChanged events delivered to watchers.",
		},
	)
	c.watchers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "questions",
			Name:      "watchers",
			Help:      "Currently connected change watchers.",
		},
	)
	c.httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)
	c.httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)
	c.httpDurations = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	c.registry.MustRegister(
		c.listings,
		c.answers,
		c.changeEvents,
		c.watchers,
		c.httpInFlight,
		c.httpRequests,
		c.httpDurations,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
	return c
}

// Handler exposes the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordListing counts one List call.
func (c *Collector) RecordListing(err error) {
	c.listings.WithLabelValues(result(err)).Inc()
}

// RecordAnswer counts one SubmitAnswer call.
func (c *Collector) RecordAnswer(variant string, err error) {
	if variant == "" {
		variant = "unknown"
	}
	c.answers.WithLabelValues(result(err), variant).Inc()
}

// RecordChangeEvent counts one event pushed to a watcher.
func (c *Collector) RecordChangeEvent() {
	c.changeEvents.Inc()
}

// WatcherConnected and WatcherDisconnected track live change feeds.
func (c *Collector) WatcherConnected() { c.watchers.Inc() }

func (c *Collector) WatcherDisconnected() { c.watchers.Dec() }

// InstrumentHandler records request counts and durations labelled with the
// chi route pattern, so /api/questions/7/answer and /api/questions/9/answer
// share a series.
func (c *Collector) InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		c.httpInFlight.Inc()
		defer c.httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		route := routePattern(r)
		method := strings.ToUpper(r.Method)
		c.httpRequests.WithLabelValues(method, route, strconv.Itoa(rec.status)).Inc()
		c.httpDurations.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// Hijack lets the WebSocket upgrader take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

func (r *statusRecorder) Flush() {
	if flusher, ok := r.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
