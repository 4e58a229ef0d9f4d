package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// WebhookSecretHeader carries the shared secret on inbound payment callbacks.
const WebhookSecretHeader = "X-Webhook-Secret"

// webhookRouteKey marks a request as a payment callback so failures reply
// in the callback shape.
const webhookRouteKey = "webhook_route"

// WebhookFailure is the reply to a payment callback that was not applied.
// Callers of the webhook read success and message only.
type WebhookFailure struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// AbortWebhook writes a failed callback reply with status and stops the chain.
func AbortWebhook(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, WebhookFailure{
		Success:   false,
		Message:   message,
		RequestID: GetRequestID(c),
	})
}

// WebhookSecret rejects requests whose X-Webhook-Secret header does not match
// secret. An empty secret disables the check.
func WebhookSecret(secret string) gin.HandlerFunc {
	expected := []byte(secret)

	return func(c *gin.Context) {
		c.Set(webhookRouteKey, true)

		if len(expected) == 0 {
			c.Next()
			return
		}

		provided := []byte(c.GetHeader(WebhookSecretHeader))
		if subtle.ConstantTimeCompare(provided, expected) != 1 {
			if log := GetLogger(c); log != nil {
				log.Warn("Rejected webhook with invalid secret", map[string]interface{}{
					"path": c.Request.URL.Path,
					"ip":   c.ClientIP(),
				})
			}

			AbortWebhook(c, http.StatusUnauthorized, "Invalid webhook secret")
			return
		}

		c.Next()
	}
}
