package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics stores Prometheus collectors used by API and worker flows.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal      *prometheus.CounterVec
	httpRequestDuration    *prometheus.HistogramVec
	pushDeliveredTotal     *prometheus.CounterVec
	pushFailedTotal        *prometheus.CounterVec
	pushDeliveryDuration   *prometheus.HistogramVec
	resolutionsTotal       *prometheus.CounterVec
	tokensDeactivatedTotal *prometheus.CounterVec
	maintenanceRunsTotal   *prometheus.CounterVec
	maintenanceRunDuration prometheus.Histogram
	workerInflight         prometheus.Gauge
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "push_engine",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "push_engine",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		pushDeliveredTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "push_engine",
				Name:      "push_delivered_total",
				Help:      "Total number of push messages accepted by the gateway.",
			},
			[]string{"platform"},
		),
		pushFailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "push_engine",
				Name:      "push_failed_total",
				Help:      "Total number of push messages that ended in failed state.",
			},
			[]string{"platform", "reason"},
		),
		pushDeliveryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "push_engine",
				Name:      "push_delivery_duration_seconds",
				Help:      "Gateway delivery duration in seconds per notification.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"recipient_type"},
		),
		resolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "push_engine",
				Name:      "recipient_resolutions_total",
				Help:      "Total number of recipient resolutions grouped by data source.",
			},
			[]string{"source"},
		),
		tokensDeactivatedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "push_engine",
				Name:      "tokens_deactivated_total",
				Help:      "Total number of tokens deactivated grouped by cause.",
			},
			[]string{"cause"},
		),
		maintenanceRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "push_engine",
				Name:      "maintenance_runs_total",
				Help:      "Total number of maintenance runs grouped by outcome.",
			},
			[]string{"outcome"},
		),
		maintenanceRunDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "push_engine",
				Name:      "maintenance_run_duration_seconds",
				Help:      "Maintenance run duration in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
			},
		),
		workerInflight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "push_engine",
				Name:      "worker_inflight",
				Help:      "Current number of in-flight activity deliveries.",
			},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.pushDeliveredTotal,
		m.pushFailedTotal,
		m.pushDeliveryDuration,
		m.resolutionsTotal,
		m.tokensDeactivatedTotal,
		m.maintenanceRunsTotal,
		m.maintenanceRunDuration,
		m.workerInflight,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

func (m *Metrics) IncPushDelivered(platform string) {
	if m == nil {
		return
	}
	m.pushDeliveredTotal.WithLabelValues(normalizeLabel(platform)).Inc()
}

func (m *Metrics) IncPushFailed(platform string, reason string) {
	if m == nil {
		return
	}
	reasonLabel := strings.TrimSpace(strings.ToLower(reason))
	if reasonLabel == "" {
		reasonLabel = "unknown"
	}
	m.pushFailedTotal.WithLabelValues(normalizeLabel(platform), reasonLabel).Inc()
}

func (m *Metrics) ObservePushDeliveryDuration(recipientType string, duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.pushDeliveryDuration.WithLabelValues(normalizeLabel(recipientType)).Observe(seconds)
}

func (m *Metrics) IncResolution(source string) {
	if m == nil {
		return
	}
	m.resolutionsTotal.WithLabelValues(normalizeLabel(source)).Inc()
}

func (m *Metrics) IncTokensDeactivated(cause string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.tokensDeactivatedTotal.WithLabelValues(normalizeLabel(cause)).Add(float64(count))
}

func (m *Metrics) IncMaintenanceRun(outcome string) {
	if m == nil {
		return
	}
	m.maintenanceRunsTotal.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *Metrics) ObserveMaintenanceRunDuration(duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.maintenanceRunDuration.Observe(seconds)
}

func (m *Metrics) IncWorkerInFlight() {
	if m == nil {
		return
	}
	m.workerInflight.Inc()
}

func (m *Metrics) DecWorkerInFlight() {
	if m == nil {
		return
	}
	m.workerInflight.Dec()
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, pathLabel).Observe(duration.Seconds())
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return "unmatched"
	}

	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" {
			return path
		}
	}
	return "unmatched"
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}

	if c == nil {
		return fiber.StatusOK
	}

	status := c.Response().StatusCode()
	if status == 0 {
		return fiber.StatusOK
	}
	return status
}

func normalizeLabel(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
