// Package metrics collects and exposes Prometheus metrics for the API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector registers and records the application's Prometheus metrics.
// All metrics live on the registry passed to NewCollector, so tests use
// a private registry instead of the process-global default.
type Collector struct {
	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
	logins       *prometheus.CounterVec
	registers    prometheus.Counter
	chatRequests prometheus.Counter
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bienestar_http_requests_total",
			Help: "HTTP requests, by method, route pattern, and status code.",
		}, []string{"method", "route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bienestar_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds, by route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bienestar_logins_total",
			Help: "Successful logins, by method (password or google).",
		}, []string{"method"}),
		registers: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bienestar_registrations_total",
			Help: "Successful local account registrations.",
		}),
		chatRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bienestar_chat_requests_total",
			Help: "Chat messages handled by the wellbeing assistant.",
		}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpLatency,
		c.logins,
		c.registers,
		c.chatRequests,
	)

	return c
}

// RecordRequest records one served HTTP request. route is the chi route
// pattern, not the raw path, to keep cardinality bounded.
func (c *Collector) RecordRequest(method, route string, status int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpLatency.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordLogin records a successful login. method is "password" or
// "google".
func (c *Collector) RecordLogin(method string) {
	c.logins.WithLabelValues(method).Inc()
}

// RecordRegistration records a successful local registration.
func (c *Collector) RecordRegistration() {
	c.registers.Inc()
}

// RecordChatRequest records one handled chat message.
func (c *Collector) RecordChatRequest() {
	c.chatRequests.Inc()
}

// Handler returns the Prometheus scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
