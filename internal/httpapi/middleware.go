package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/signalsfoundry/iot-netselect/internal/logging"
	"github.com/signalsfoundry/iot-netselect/internal/observability"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// RequestID adopts the caller's X-Request-ID or generates one, echoes it on
// the response and attaches a request-scoped logger to the context.
func RequestID(base logging.Logger) gin.HandlerFunc {
	base = logging.OrNoop(base)
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if incoming := c.GetHeader(RequestIDHeader); incoming != "" {
			ctx = logging.ContextWithRequestID(ctx, incoming)
		}
		ctx, reqLog := logging.WithRequestLogger(ctx, base.With(
			logging.String("method", c.Request.Method),
			logging.String("path", c.Request.URL.Path),
		))
		ctx = logging.ContextWithLogger(ctx, reqLog)

		c.Header(RequestIDHeader, logging.RequestIDFromContext(ctx))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// AccessLog logs each completed request with its status and duration.
func AccessLog(base logging.Logger) gin.HandlerFunc {
	base = logging.OrNoop(base)
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		ctx := c.Request.Context()
		log := logging.FromContext(ctx, base)
		code := c.Writer.Status()
		fields := []logging.Field{
			logging.String("route", c.FullPath()),
			logging.Int("status", code),
			logging.Duration("duration", time.Since(start)),
		}
		switch {
		case code >= http.StatusInternalServerError:
			log.Error(ctx, "request failed", fields...)
		case code >= http.StatusBadRequest:
			log.Warn(ctx, "request rejected", fields...)
		default:
			log.Debug(ctx, "request completed", fields...)
		}
	}
}

// Metrics records request counts and latency by matched route. A nil
// collector disables recording.
func Metrics(m *observability.APICollector) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		m.ObserveHTTPRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}

// Recovery turns handler panics into a 500 JSON response.
func Recovery(base logging.Logger) gin.HandlerFunc {
	base = logging.OrNoop(base)
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		ctx := c.Request.Context()
		logging.FromContext(ctx, base).Error(ctx, "panic recovered", logging.Any("panic", recovered))
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody{
			Error:     "internal server error",
			Code:      "Internal",
			RequestID: logging.RequestIDFromContext(ctx),
		})
	})
}
