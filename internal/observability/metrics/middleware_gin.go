package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HTTPMetrics instruments the inbound HTTP surface.
type HTTPMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

var allowedHTTPLabels = map[string]struct{}{
	"http.method": {},
	"http.route":  {},
	"http.status": {},
}

// NewHTTP configures the HTTP request instruments.
func NewHTTP(cfg Config, provider metric.MeterProvider) (*HTTPMetrics, error) {
	name := cfg.ServiceName
	if name == "" {
		name = "kanisa"
	}
	meter := provider.Meter(name)

	requests, err := meter.Int64Counter("kanisa_http_requests_total")
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("kanisa_http_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &HTTPMetrics{requests: requests, duration: duration}, nil
}

// FilterAttributes drops attributes outside the allowed label set to keep
// cardinality bounded.
func FilterAttributes(attrs []attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedHTTPLabels[string(attr.Key)]; ok {
			filtered = append(filtered, attr)
		}
	}
	return filtered
}

// GinMiddleware records request counts and latency per method/route/status.
func GinMiddleware(m *HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		attrs := FilterAttributes([]attribute.KeyValue{
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", route),
			attribute.String("http.status", strconv.Itoa(c.Writer.Status())),
		})

		ctx := c.Request.Context()
		m.requests.Add(ctx, 1, metric.WithAttributes(attrs...))
		m.duration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(attrs...))
	}
}
