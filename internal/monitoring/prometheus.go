// Package monitoring exposes the Prometheus scrape endpoint and the
// connection and error counters that sit next to it.
//
// Usage:
//
//	router := gin.New()
//	router.Use(monitoring.HTTPMetricsMiddleware())
//	monitoring.SetupPrometheusMetrics(router, "/metrics", config.ServiceVersion)
//
// Available Metrics:
//   - ga4_insights_active_connections
//   - ga4_insights_errors_total{type, component}
//   - ga4_insights_version_info{version, component, go_version}
//
// Request, backend and model metrics live in internal/metrics.
package monitoring

import (
	"runtime"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	activeConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ga4_insights_active_connections",
			Help: "Number of in-flight HTTP requests",
		},
	)

	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ga4_insights_errors_total",
			Help: "Total number of errors",
		},
		[]string{"type", "component"}, // type: http, validation, extraction, backend, summarization
	)
)

// SetupPrometheusMetrics registers the package collectors on the default
// registry and serves them at path.
func SetupPrometheusMetrics(router gin.IRoutes, path, version string) {
	if path == "" {
		path = "/metrics"
	}

	// Registration errors mean the collector is already registered.
	_ = prometheus.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "ga4_insights_version_info",
		Help: "Version information for ga4-insights",
		ConstLabels: prometheus.Labels{
			"version":    version,
			"component":  "ga4-insights",
			"go_version": runtime.Version(),
		},
	}, func() float64 { return 1 }))
	_ = prometheus.Register(activeConnections)
	_ = prometheus.Register(errorsTotal)

	router.GET(path, gin.WrapH(promhttp.Handler()))
}

// HTTPMetricsMiddleware tracks in-flight requests and counts error responses.
func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		activeConnections.Inc()
		defer activeConnections.Dec()

		c.Next()

		if c.Writer.Status() >= 400 {
			errorsTotal.WithLabelValues("http", normalizeEndpoint(c.FullPath(), c.Request.URL.Path)).Inc()
		}
	}
}

// RecordError counts one error of the given category.
func RecordError(errType, component string) {
	errorsTotal.WithLabelValues(errType, component).Inc()
}

// normalizeEndpoint prefers the route template so label cardinality stays
// bounded; unmatched paths collapse to "unmatched".
func normalizeEndpoint(route, path string) string {
	if route != "" {
		return route
	}
	if strings.HasPrefix(path, "/") {
		return "unmatched"
	}
	return path
}
