// Package metrics exposes request and domain counters for Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Theadedamola/snapcode-backend/internal/pkg/router"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	requests      *prometheus.CounterVec
	latency       prometheus.Histogram
	loginSuccess  prometheus.Counter
	loginFailure  prometheus.Counter
	exportsServed prometheus.Counter
	rendersFailed prometheus.Counter
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "snapcode_http_requests_total",
			Help: "HTTP responses by method and status code.",
		}, []string{"method", "status"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "snapcode_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		loginSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "snapcode_login_success_total",
			Help: "Completed Google sign-ins.",
		}),
		loginFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "snapcode_login_failure_total",
			Help: "Google sign-ins that failed at the provider or callback.",
		}),
		exportsServed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "snapcode_exports_served_total",
			Help: "Export downloads served.",
		}),
		rendersFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "snapcode_renders_failed_total",
			Help: "Snippet renders that failed at the render backend.",
		}),
	}

	reg.MustRegister(
		c.requests,
		c.latency,
		c.loginSuccess,
		c.loginFailure,
		c.exportsServed,
		c.rendersFailed,
	)

	return c
}

func (c *Collector) RecordLoginSuccess()  { c.loginSuccess.Inc() }
func (c *Collector) RecordLoginFailure()  { c.loginFailure.Inc() }
func (c *Collector) RecordExportServed()  { c.exportsServed.Inc() }
func (c *Collector) RecordRenderFailure() { c.rendersFailed.Inc() }

type statusWriter struct {
	status int
	inner  http.ResponseWriter
}

func (sw *statusWriter) Header() http.Header { return sw.inner.Header() }

func (sw *statusWriter) WriteHeader(status int) {
	sw.status = status
	sw.inner.WriteHeader(status)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	if sw.status == 0 {
		sw.status = http.StatusOK
	}
	return sw.inner.Write(b)
}

// Middleware records count and latency for every request passing through it.
func (c *Collector) Middleware() router.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &statusWriter{inner: w}
			t := time.Now()

			next.ServeHTTP(sw, r)

			c.requests.WithLabelValues(r.Method, strconv.Itoa(sw.status)).Inc()
			c.latency.Observe(time.Since(t).Seconds())
		})
	}
}

// Handler serves the scrape endpoint for the given gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
