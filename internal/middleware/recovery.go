package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/revenue/api/internal/logger"
)

// CodeInternalServer is the error code of an unexpected failure. The
// errors package reuses it so panics and handled failures look alike.
const CodeInternalServer = "INTERNAL_SERVER_ERROR"

// Recovery turns a panic into a 500 reply and logs it with the stack.
// Payment callback routes reply in the callback shape; every other route
// gets the API error envelope.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			requestID := GetRequestID(c)
			requestLogger := GetLogger(c)
			if requestLogger == nil {
				requestLogger = log
			}
			requestLogger.Error("Panic recovered", fmt.Errorf("panic: %v", rec), map[string]interface{}{
				"request_id": requestID,
				"method":     c.Request.Method,
				"route":      c.FullPath(),
				"stack":      string(debug.Stack()),
			})

			if c.Writer.Written() {
				c.Abort()
				return
			}
			if c.GetBool(webhookRouteKey) {
				AbortWebhook(c, http.StatusInternalServerError, "Failed to apply payment callback")
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": gin.H{
					"code":       CodeInternalServer,
					"message":    "An unexpected error occurred",
					"request_id": requestID,
				},
			})
		}()

		c.Next()
	}
}
