package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_http_requests_total",
			Help: "Total number of HTTP requests processed by the hub service.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hub_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	activeConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_active_connections",
			Help: "Number of live connections in the registry.",
		},
	)
	registerRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_register_rejected_total",
			Help: "Total number of registrations rejected at the per-user cap.",
		},
	)
	routedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_messages_routed_total",
			Help: "Total number of message deliveries by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)
	queueEvictionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_queue_evictions_total",
			Help: "Total number of offline-queue messages dropped on overflow.",
		},
	)
	presenceTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_presence_transitions_total",
			Help: "Total number of presence transitions by resulting state.",
		},
		[]string{"state"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		activeConnections,
		registerRejectedTotal,
		routedTotal,
		queueEvictionsTotal,
		presenceTransitionsTotal,
		amqpPublishErrorsTotal,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func IncActiveConnections() {
	activeConnections.Inc()
}

func DecActiveConnections() {
	activeConnections.Dec()
}

func IncRegisterRejected() {
	registerRejectedTotal.Inc()
}

func IncRouted(kind, outcome string) {
	routedTotal.WithLabelValues(kind, outcome).Inc()
}

func AddRouted(kind, outcome string, n int) {
	routedTotal.WithLabelValues(kind, outcome).Add(float64(n))
}

func IncQueueEviction() {
	queueEvictionsTotal.Inc()
}

func IncPresenceTransition(state string) {
	presenceTransitionsTotal.WithLabelValues(state).Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
