package httpserver

import (
	"strconv"
	"time"

	"commandmail/internal/apperr"
	"commandmail/pkg/logger"
	"commandmail/pkg/metrics"
	"commandmail/pkg/trace"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TraceMiddleware reuses an incoming X-Trace-ID (or X-Request-ID) or mints
// one, stores it on the request context and echoes it back.
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := trace.FromHeader(c.Request.Header)
		if traceID == "" {
			traceID = trace.GenerateTraceID()
		}
		c.Request = c.Request.WithContext(trace.WithContext(c.Request.Context(), traceID))
		c.Header(trace.HeaderName, traceID)
		c.Next()
	}
}

// RequestLogger 请求日志中间件
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logger.WithTrace(c.Request.Context(), log).Info("HTTP Request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("origin", c.GetHeader("Origin")),
		)
	}
}

// MetricsMiddleware records request durations by route template.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordHTTPRequestDuration(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

// ErrorHandler turns the last handler error into a JSON response.
func ErrorHandler(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		status, kind := apperr.Classify(err)

		l := logger.WithTrace(c.Request.Context(), log).With(
			zap.String("path", c.Request.URL.Path),
			zap.String("kind", kind),
			zap.Error(err),
		)
		if status >= 500 {
			l.Error("Request failed")
		} else {
			l.Warn("Request rejected")
		}

		c.JSON(status, gin.H{
			"error": err.Error(),
			"path":  c.Request.URL.Path,
		})
	}
}

// NotFound answers unknown routes.
func NotFound(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger.WithTrace(c.Request.Context(), log).Warn("Route not found",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
		)
		c.JSON(404, gin.H{
			"error":  "Route not found",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	}
}
