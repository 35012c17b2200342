package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// RequestIDHeader carries the request id in both directions.
	RequestIDHeader = "X-Request-ID"
	// RequestIDKey is the gin context key holding the request id.
	RequestIDKey = "request_id"
)

// ZapLoggingMiddlewareForGin logs every request with zap.
// /health and /metrics are not logged.
func ZapLoggingMiddlewareForGin(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(RequestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)

		if path == "/health" || path == "/metrics" {
			c.Next()
			return
		}

		c.Next()

		if rawQuery := c.Request.URL.RawQuery; rawQuery != "" {
			path = path + "?" + rawQuery
		}

		fields := []zap.Field{
			zap.Int("status", c.Writer.Status()),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
			zap.String("user_agent", c.Request.UserAgent()),
			zap.String("request_id", requestID),
		}

		if len(c.Errors) > 0 {
			for _, ginErr := range c.Errors.ByType(gin.ErrorTypeAny) {
				log.Error("Request error", append(fields, zap.Error(ginErr.Err))...)
			}
			return
		}

		status := c.Writer.Status()
		switch {
		case status >= http.StatusInternalServerError:
			log.Error("Server error", fields...)
		case status >= http.StatusBadRequest:
			log.Warn("Client error", fields...)
		default:
			log.Info("Request completed", fields...)
		}
	}
}
