package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestsActive  prometheus.Gauge

	// Monitoring metrics
	ProviderQueriesTotal  *prometheus.CounterVec
	ProviderQueryDuration *prometheus.HistogramVec
	MentionsDetected      *prometheus.CounterVec
	RunsTotal             *prometheus.CounterVec
	ReportEmailsSent      *prometheus.CounterVec

	// System metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge
}

// NewMetrics creates a new metrics instance with all Prometheus metrics registered
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "geowatch"
	}

	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_active",
				Help:      "Number of active HTTP requests",
			},
		),

		ProviderQueriesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_queries_total",
				Help:      "Total number of answer engine queries",
			},
			[]string{"provider", "status"},
		),
		ProviderQueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "provider_query_duration_seconds",
				Help:      "Answer engine query duration in seconds",
				Buckets:   []float64{1, 5, 10, 30, 60, 120, 180, 300},
			},
			[]string{"provider"},
		),
		MentionsDetected: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "mentions_detected_total",
				Help:      "Total number of brand mentions detected",
			},
			[]string{"provider"},
		),
		RunsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "monitoring_runs_total",
				Help:      "Total number of monitoring runs",
			},
			[]string{"trigger", "status"},
		),
		ReportEmailsSent: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "report_emails_sent_total",
				Help:      "Total number of report emails sent",
			},
			[]string{"status"},
		),

		DBConnectionsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "db_connections_active",
				Help:      "Number of active database connections",
			},
		),
		DBConnectionsIdle: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "db_connections_idle",
				Help:      "Number of idle database connections",
			},
		),
	}
}

// Handler returns the Prometheus metrics HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordProviderQuery records one answer engine query outcome
func (m *Metrics) RecordProviderQuery(provider string, err error, duration time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.ProviderQueriesTotal.WithLabelValues(provider, status).Inc()
	m.ProviderQueryDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordMention records a detected brand mention
func (m *Metrics) RecordMention(provider string) {
	m.MentionsDetected.WithLabelValues(provider).Inc()
}

// RecordRun records a completed monitoring run
func (m *Metrics) RecordRun(trigger, status string) {
	m.RunsTotal.WithLabelValues(trigger, status).Inc()
}

// RecordReportEmail records a report email attempt
func (m *Metrics) RecordReportEmail(err error) {
	status := "sent"
	if err != nil {
		status = "failed"
	}
	m.ReportEmailsSent.WithLabelValues(status).Inc()
}
