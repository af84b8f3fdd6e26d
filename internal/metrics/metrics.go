package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bookstore"

type Metrics struct {
	Requests        *prometheus.CounterVec
	LatencyMS       *prometheus.HistogramVec
	Checkouts       *prometheus.CounterVec
	CheckoutLatency *prometheus.HistogramVec
	TxRetries       prometheus.Counter

	registry *prometheus.Registry
}

// New builds the collectors on a private registry so several instances can
// live in one process.
func New() *Metrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"method", "path", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"path"})
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "checkout",
		Name:      "total",
		Help:      "Finished checkouts by channel and outcome.",
	}, []string{"channel", "outcome"})
	checkoutLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "checkout",
		Name:      "duration_ms",
		Help:      "Checkout latency in milliseconds, retries included.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"channel"})
	retries := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "checkout",
		Name:      "tx_retries_total",
		Help:      "Checkout transactions retried after a transient database error.",
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		requests, latency, checkouts, checkoutLatency, retries,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Metrics{
		Requests:        requests,
		LatencyMS:       latency,
		Checkouts:       checkouts,
		CheckoutLatency: checkoutLatency,
		TxRetries:       retries,
		registry:        reg,
	}
}

func (m *Metrics) ObserveCheckout(channel, outcome string, duration time.Duration) {
	m.Checkouts.WithLabelValues(channel, outcome).Inc()
	m.CheckoutLatency.WithLabelValues(channel).Observe(float64(duration.Milliseconds()))
}

// ObserveRetry matches the transaction retry hook.
func (m *Metrics) ObserveRetry(attempt int, err error) {
	m.TxRetries.Inc()
}

func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "undefined"
		}

		m.Requests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.LatencyMS.WithLabelValues(path).Observe(float64(time.Since(start).Milliseconds()))
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
