package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Booking outcomes recorded by RecordOrder.
const (
	OutcomeCreated    = "created"
	OutcomeValidation = "validation_error"
	OutcomeConflict   = "conflict"
	OutcomeError      = "error"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "train_station",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "train_station",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "train_station",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	orders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "train_station",
			Subsystem: "booking",
			Name:      "orders_total",
			Help:      "Order placement attempts by outcome.",
		},
		[]string{"outcome"},
	)

	ticketsBooked = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "train_station",
			Subsystem: "booking",
			Name:      "tickets_booked_total",
			Help:      "Tickets committed as part of an order.",
		},
	)

	orderDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "train_station",
			Subsystem: "booking",
			Name:      "order_duration_seconds",
			Help:      "Duration of the order transaction.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
	)

	eventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "train_station",
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Order events handed to the broker.",
		},
		[]string{"success"},
	)

	jobRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "train_station",
			Subsystem: "jobs",
			Name:      "runs_total",
			Help:      "Scheduled job runs.",
		},
		[]string{"job", "success"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		orders,
		ticketsBooked,
		orderDuration,
		eventsPublished,
		jobRuns,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware records request count, latency and in-flight requests.  The
// path label is the matched route template so ids do not explode the
// label cardinality.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().URL.Path == "/metrics" {
				return next(c)
			}
			start := time.Now()
			httpInFlight.Inc()
			defer httpInFlight.Dec()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			method := strings.ToUpper(c.Request().Method)
			httpRequests.WithLabelValues(method, path, strconv.Itoa(c.Response().Status)).Inc()
			httpDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

// RecordOrder records the outcome of one order placement.
func RecordOrder(outcome string, tickets int, duration time.Duration) {
	orders.WithLabelValues(outcome).Inc()
	if outcome == OutcomeCreated && tickets > 0 {
		ticketsBooked.Add(float64(tickets))
	}
	if duration > 0 {
		orderDuration.Observe(duration.Seconds())
	}
}

// RecordPublish records an order event publish attempt.
func RecordPublish(success bool) {
	eventsPublished.WithLabelValues(strconv.FormatBool(success)).Inc()
}

// RecordJobRun records one run of a scheduled job.
func RecordJobRun(job string, success bool) {
	if job == "" {
		job = "unknown"
	}
	jobRuns.WithLabelValues(job, strconv.FormatBool(success)).Inc()
}
