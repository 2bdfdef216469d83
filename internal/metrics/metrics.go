package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultBuckets are default histogram buckets in seconds
var DefaultBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0}

// Collector tracks request and counter-tracking metrics on its own registry.
// All methods are safe on a nil *Collector.
type Collector struct {
	registry *prometheus.Registry

	requestsTotal    *prometheus.CounterVec
	requestDurations *prometheus.HistogramVec

	sessionsStarted *prometheus.CounterVec
	actionsRecorded *prometheus.CounterVec
	decodeFailures  *prometheus.CounterVec
	cookieOversize  prometheus.Counter
	cookieWrites    prometheus.Counter
	lostUpdates     *prometheus.CounterVec
}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pagecount_requests_total",
			Help: "Total number of requests",
		}, []string{"route", "method", "status"}),
		requestDurations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pagecount_request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: DefaultBuckets,
		}, []string{"route"}),
		sessionsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pagecount_sessions_started_total",
			Help: "Browsing sessions charged against totalSessions",
		}, []string{"reset"}),
		actionsRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pagecount_actions_recorded_total",
			Help: "Route invocations tallied into the visitor cookie",
		}, []string{"route"}),
		decodeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pagecount_counter_decode_failures_total",
			Help: "Counter cookie values or members discarded while decoding",
		}, []string{"kind"}),
		cookieOversize: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pagecount_cookie_oversize_total",
			Help: "Counter cookie writes exceeding the configured size limit",
		}),
		cookieWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pagecount_cookie_writes_total",
			Help: "Counter cookie values written to responses",
		}),
		lostUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pagecount_lost_updates_total",
			Help: "Counter updates dropped because the response was already committed",
		}, []string{"reason"}),
	}
	c.registry.MustRegister(
		c.requestsTotal,
		c.requestDurations,
		c.sessionsStarted,
		c.actionsRecorded,
		c.decodeFailures,
		c.cookieOversize,
		c.cookieWrites,
		c.lostUpdates,
	)
	return c
}

// Registry exposes the underlying registry, mainly for tests.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// RecordRequest records a completed request
func (c *Collector) RecordRequest(route, method string, statusCode int, duration time.Duration) {
	if c == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	c.requestsTotal.WithLabelValues(route, method, strconv.Itoa(statusCode)).Inc()
	c.requestDurations.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordSessionStart records a new browsing session. reset tells whether the
// session-scoped counters were cleared.
func (c *Collector) RecordSessionStart(reset bool) {
	if c == nil {
		return
	}
	c.sessionsStarted.WithLabelValues(strconv.FormatBool(reset)).Inc()
}

// RecordAction records one tallied route invocation.
func (c *Collector) RecordAction(route string) {
	if c == nil {
		return
	}
	c.actionsRecorded.WithLabelValues(route).Inc()
}

// RecordDecodeRejected records a whole cookie value that was not a counter object.
func (c *Collector) RecordDecodeRejected() {
	if c == nil {
		return
	}
	c.decodeFailures.WithLabelValues("value").Inc()
}

// RecordDecodeDropped records members discarded from an otherwise readable value.
func (c *Collector) RecordDecodeDropped(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.decodeFailures.WithLabelValues("member").Add(float64(n))
}

// RecordCookieWrite records a counter cookie write and whether it was oversized.
func (c *Collector) RecordCookieWrite(oversize bool) {
	if c == nil {
		return
	}
	c.cookieWrites.Inc()
	if oversize {
		c.cookieOversize.Inc()
	}
}

// RecordLostUpdate records a counter update that could not reach the response.
func (c *Collector) RecordLostUpdate(reason string) {
	if c == nil {
		return
	}
	c.lostUpdates.WithLabelValues(reason).Inc()
}

// Handler serves the registry in Prometheus text exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
