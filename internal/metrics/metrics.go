// Package metrics collects and exposes the Prometheus metrics of the service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the services report to.
type Recorder interface {
	RecordCertificateIssued(products int)
	RecordLoginAttempt(success bool)
	RecordEventPublished(entity string, ok bool)
	RecordExpiryNotices(count int)
}

// Collector is the Prometheus implementation of Recorder.
type Collector struct {
	requests      *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	certificates  prometheus.Counter
	warranties    prometheus.Counter
	logins        *prometheus.CounterVec
	events        *prometheus.CounterVec
	expiryNotices prometheus.Counter
}

// NewCollector creates a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "warranty_http_requests_total",
			Help: "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "status_code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "warranty_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		certificates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "warranty_certificates_issued_total",
			Help: "Issued warranty certificates.",
		}),
		warranties: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "warranty_warranties_created_total",
			Help: "Warranty rows created by issued certificates.",
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "warranty_login_attempts_total",
			Help: "Sign in attempts by result.",
		}, []string{"result"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "warranty_events_published_total",
			Help: "Change events by entity and result.",
		}, []string{"entity", "result"}),
		expiryNotices: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "warranty_expiry_notices_total",
			Help: "Expiring soon notices published by the scheduler.",
		}),
	}

	reg.MustRegister(
		c.requests,
		c.latency,
		c.certificates,
		c.warranties,
		c.logins,
		c.events,
		c.expiryNotices,
	)
	return c
}

// RecordCertificateIssued counts one certificate covering products rows.
func (c *Collector) RecordCertificateIssued(products int) {
	c.certificates.Inc()
	c.warranties.Add(float64(products))
}

// RecordLoginAttempt counts a sign in attempt.
func (c *Collector) RecordLoginAttempt(success bool) {
	c.logins.WithLabelValues(result(success)).Inc()
}

// RecordEventPublished counts a change event.
func (c *Collector) RecordEventPublished(entity string, ok bool) {
	c.events.WithLabelValues(entity, result(ok)).Inc()
}

// RecordExpiryNotices counts published expiry notices.
func (c *Collector) RecordExpiryNotices(count int) {
	c.expiryNotices.Add(float64(count))
}

// Middleware records the count and latency of every request by route pattern.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		c.requests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		c.latency.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

// Handler returns the scrape endpoint for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) RecordCertificateIssued(int)       {}
func (Nop) RecordLoginAttempt(bool)           {}
func (Nop) RecordEventPublished(string, bool) {}
func (Nop) RecordExpiryNotices(int)           {}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
