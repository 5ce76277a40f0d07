package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/streamgate/logger"
	"github.com/kbukum/streamgate/observability"
)

// Metrics records request counters and a server span per request, labeled
// by gin's route template so ids do not explode cardinality. A nil metrics
// still produces spans.
func Metrics(metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		ctx, span := observability.StartSpan(c.Request.Context(), observability.SpanHTTPRequest,
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", route),
		)
		if traceID, spanID := observability.TraceIDs(ctx); traceID != "" {
			ctx = logger.ContextWithTrace(ctx, traceID, spanID)
		}
		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		metrics.RecordRequestStart(ctx)
		c.Next()

		status := c.Writer.Status()
		metrics.RecordRequestEnd(ctx, c.Request.Method, route, status, time.Since(start))
		span.SetAttributes(attribute.Int("http.status_code", status))
		var err error
		if len(c.Errors) > 0 {
			err = c.Errors.Last()
		}
		observability.EndSpan(span, err)
	}
}
