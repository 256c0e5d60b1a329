// Package metrics exposes Prometheus collectors for the HTTP surface, outbound
// notifications, scheduled jobs and business events.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"glasserp/internal/core/events"
)

const namespace = "glasserp"

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	notifications   *prometheus.CounterVec
	jobRuns         *prometheus.CounterVec
	jobDuration     *prometheus.HistogramVec
	events          *prometheus.CounterVec
	amounts         *prometheus.CounterVec
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_attempts_total",
			Help:      "Notification delivery attempts by channel and outcome",
		}, []string{"channel", "result"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Scheduled job runs by outcome",
		}, []string{"job", "result"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Duration of scheduled job runs",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		}, []string{"job"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "business_events_total",
			Help:      "Committed business events by name",
		}, []string{"event"}),
		amounts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "business_amount_rupees_total",
			Help:      "Money moved by committed business events, in rupees",
		}, []string{"event"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.requestDuration,
		m.notifications,
		m.jobRuns, m.jobDuration,
		m.events, m.amounts,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request count and latency. Unmatched routes share one
// label to keep cardinality bounded.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		m.requests.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

// GaugeFunc registers a gauge sampled from fn at scrape time.
func (m *Metrics) GaugeFunc(name, help string, fn func() float64) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, fn))
}

// NotificationAttempt counts one delivery attempt.
func (m *Metrics) NotificationAttempt(channel string, success bool) {
	m.notifications.WithLabelValues(channel, outcome(success)).Inc()
}

// JobRun records one scheduled job execution.
func (m *Metrics) JobRun(name string, d time.Duration, err error) {
	m.jobRuns.WithLabelValues(name, outcome(err == nil)).Inc()
	m.jobDuration.WithLabelValues(name).Observe(d.Seconds())
}

// Subscribe counts committed business events.
func (m *Metrics) Subscribe(bus *events.Bus) {
	bus.Subscribe(events.AfterCommit, "metrics", m.observe,
		events.NameOrderCreated,
		events.NameOrderPaymentReceived,
		events.NameOrderCancelled,
		events.NameDispatchSlipCreated,
		events.NameInvoiceIssued,
		events.NameInvoicePaymentRecorded,
		events.NamePurchaseOrderReceived,
		events.NameVendorPaymentCompleted,
		events.NameJobWorkPaymentRecorded,
		events.NameStockMoved,
	)
}

func (m *Metrics) observe(_ context.Context, e events.Event) error {
	name := e.EventName()
	m.events.WithLabelValues(name).Inc()

	switch ev := e.(type) {
	case events.OrderCreated:
		m.amounts.WithLabelValues(name).Add(ev.Total.Float64())
	case events.OrderPaymentReceived:
		m.amounts.WithLabelValues(name).Add(ev.Amount.Float64())
	case events.InvoicePaymentRecorded:
		m.amounts.WithLabelValues(name).Add(ev.Amount.Float64())
	case events.VendorPaymentCompleted:
		m.amounts.WithLabelValues(name).Add(ev.Amount.Float64())
	case events.JobWorkPaymentRecorded:
		m.amounts.WithLabelValues(name).Add(ev.Amount.Float64())
	}
	return nil
}

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
