package middleware

import (
	"context"
	"strconv"
	"time"

	awspkg "github.com/Templasan/MarketPlacer/pkg/aws"
	"github.com/Templasan/MarketPlacer/pkg/metrics"
	"github.com/gin-gonic/gin"
)

// PrometheusMetrics records request counts and latency keyed by route template.
func PrometheusMetrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		handler := c.FullPath()
		if handler == "" {
			handler = "unmatched"
		}
		m.ObserveRequest(handler, strconv.Itoa(c.Writer.Status()), float64(time.Since(start).Milliseconds()))
	}
}

// CloudWatchMetrics pushes HTTP metrics asynchronously so requests never wait on CloudWatch.
func CloudWatchMetrics(client *awspkg.MetricsClient, serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !client.IsEnabled() {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()
		dims := map[string]string{
			"Service": serviceName,
			"Method":  c.Request.Method,
			"Path":    c.FullPath(),
			"Status":  statusCodeToRange(status),
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			_ = client.RecordCount(ctx, awspkg.MetricHTTPRequests, dims)
			_ = client.RecordLatency(ctx, awspkg.MetricHTTPLatency, duration, dims)
			if status >= 400 {
				_ = client.RecordCount(ctx, awspkg.MetricHTTPErrors, dims)
				if status >= 500 {
					_ = client.RecordCount(ctx, awspkg.MetricHTTP5xx, dims)
				} else {
					_ = client.RecordCount(ctx, awspkg.MetricHTTP4xx, dims)
				}
			}
		}()
	}
}

func statusCodeToRange(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "2xx"
	case statusCode >= 300 && statusCode < 400:
		return "3xx"
	case statusCode >= 400 && statusCode < 500:
		return "4xx"
	case statusCode >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
