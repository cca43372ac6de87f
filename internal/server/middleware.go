package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yourusername/book-catalog/internal/auth"
	"github.com/yourusername/book-catalog/internal/logging"
)

const requestIDHeader = "X-Request-Id"

// RequestLogger はリクエスト ID を払い出し、リクエストごとに 1 行のログを出力します。
func RequestLogger(log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader(requestIDHeader)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)

		c.Next()

		args := []any{
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
		}
		if user, ok := auth.CurrentUser(c); ok {
			args = append(args, "user", user)
		}

		ctx := c.Request.Context()
		switch status := c.Writer.Status(); {
		case status >= 500:
			log.Error(ctx, "request", args...)
		case status >= 400:
			log.Warn(ctx, "request", args...)
		default:
			log.Info(ctx, "request", args...)
		}
	}
}
