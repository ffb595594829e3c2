package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"career-hub/internal/shared/telemetry"
)

// Context keys handlers may set so the access log can correlate resources.
const (
	ConversationIDKey = "conversationId"
	ReportIDKey       = "reportId"
	SessionIDKey      = "sessionId"
	RouteKey          = "route"
)

// Logging emits a structured log per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.EqualFold(c.Request.Method, "OPTIONS") {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		fields := map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": float64(latency.Microseconds()) / 1000.0,
			"user_id":     UserIDFromContext(c),
			"is_guest":    IsGuest(c),
			"client_ip":   c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		}
		for key, field := range map[string]string{
			ConversationIDKey: "conversation_id",
			ReportIDKey:       "report_id",
			SessionIDKey:      "session_id",
			RouteKey:          "route",
		} {
			if v := c.GetString(key); v != "" {
				fields[field] = v
			}
		}
		telemetry.Info("request.complete", fields)
	}
}
