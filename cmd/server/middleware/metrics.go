package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// MetricsCollector defines the interface for collecting metrics.
type MetricsCollector interface {
	IncrementCounter(name string, labels ...string)
	RecordHistogram(name string, value float64, labels ...string)
	RecordGauge(name string, value float64, labels ...string)
	StartTimer(name string) Timer
}

// Timer represents a timing measurement.
type Timer interface {
	Stop() float64
}

// MetricsMiddleware provides metrics collection middleware.
type MetricsMiddleware struct {
	collector MetricsCollector
}

// NewMetricsMiddleware creates a new metrics middleware.
func NewMetricsMiddleware(collector MetricsCollector) *MetricsMiddleware {
	return &MetricsMiddleware{
		collector: collector,
	}
}

// Handler returns the gin handler. Routes are labelled by their pattern so
// unknown paths cannot blow up label cardinality.
func (m *MetricsMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		timer := m.collector.StartTimer("http_request_duration")

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		m.collector.RecordHistogram("http_request_duration_seconds", timer.Stop(), "method", c.Request.Method, "route", route)
		m.collector.IncrementCounter("http_requests_total", "method", c.Request.Method, "route", route, "status", status)
	}
}
