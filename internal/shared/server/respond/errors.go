package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"career-hub/internal/shared/telemetry"
)

// ErrorBody is the error envelope every endpoint returns.
type ErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
	Details   any    `json:"details,omitempty"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Error aborts the request with the error envelope. Client errors are logged
// at warn level and server errors at error level.
func Error(c *gin.Context, status int, code, message string, details any) {
	requestID := telemetry.RequestIDFrom(c.Request.Context())
	if requestID == "" {
		requestID = c.GetString("requestId")
	}

	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"route":      c.FullPath(),
		"method":     c.Request.Method,
		"request_id": requestID,
	}
	if userID := c.GetString("userId"); userID != "" {
		fields["user_id"] = userID
	}
	if status >= http.StatusInternalServerError {
		telemetry.Error("http.error", fields)
	} else {
		telemetry.Warn("http.client_error", fields)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{Error: ErrorBody{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Details:   details,
	}})
}

// Unavailable reports a dependency that is not configured or not reachable,
// such as the LLM provider or the jobs database.
func Unavailable(c *gin.Context, code, message string) {
	Error(c, http.StatusServiceUnavailable, code, message, nil)
}
