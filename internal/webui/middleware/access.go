package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"runsettings/internal/logging"
	"runsettings/internal/observability"
)

// RequestObserver records request latency.
type RequestObserver interface {
	ObserveHTTPRequest(method, route string, status int, duration time.Duration)
}

// AccessLog logs one line per request and feeds observer, which may be nil.
func AccessLog(logger logging.Logger, observer RequestObserver) gin.HandlerFunc {
	logger = logging.OrNop(logger)
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		if observer != nil {
			observer.ObserveHTTPRequest(c.Request.Method, c.FullPath(), status, latency)
		}
		line := logging.FromContext(c.Request.Context(), logger)
		if status >= 500 {
			line.Error("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, status, latency)
			return
		}
		line.Info("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, status, latency)
	}
}

// Tracing wraps each request in a server span.
func Tracing(tp *observability.TracerProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tp.StartSpan(c.Request.Context(), observability.SpanHTTPServer,
			attribute.String("http.method", c.Request.Method),
			attribute.String(observability.AttrRoute, c.FullPath()),
		)
		defer span.End()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int(observability.AttrStatus, status))
		if status >= 500 {
			span.SetStatus(codes.Error, "server error")
		}
		if err := c.Errors.Last(); err != nil {
			span.SetAttributes(observability.ErrorAttrs(err.Err)...)
		}
	}
}
