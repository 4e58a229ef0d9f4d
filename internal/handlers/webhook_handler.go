package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stwalsh4118/revenue/api/internal/middleware"
	"github.com/stwalsh4118/revenue/api/internal/models"
	"github.com/stwalsh4118/revenue/api/internal/services"
)

// WebhookHandler receives payment callbacks from the payment gateway.
type WebhookHandler struct {
	service services.WebhookService
}

// NewWebhookHandler creates a new WebhookHandler instance.
func NewWebhookHandler(service services.WebhookService) *WebhookHandler {
	return &WebhookHandler{service: service}
}

// Payment handles POST /api/v1/webhooks/payments. Failures reply with
// {success:false, message} rather than the API error envelope.
func (h *WebhookHandler) Payment(c *gin.Context) {
	var cb models.PaymentCallback
	if err := c.ShouldBindJSON(&cb); err != nil {
		message := "Invalid payment callback"
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			fields := make([]string, 0, len(validationErrors))
			for _, fe := range validationErrors {
				fields = append(fields, fe.Field())
			}
			message += ": invalid " + strings.Join(fields, ", ")
		}
		if log := middleware.GetLogger(c); log != nil {
			log.Warn("Rejected malformed payment callback", map[string]interface{}{
				"error": err.Error(),
			})
		}
		middleware.AbortWebhook(c, http.StatusBadRequest, message)
		return
	}

	if log := middleware.GetLogger(c); log != nil {
		log.Info("Received payment callback", map[string]interface{}{
			"payment_id":     cb.PaymentID,
			"receipt_number": cb.ReceiptNumber,
			"is_annual":      cb.IsAnnual,
		})
	}

	result, err := h.service.Apply(c.Request.Context(), cb)
	if err != nil {
		status := errorStatus(err)
		message := err.Error()
		if status == http.StatusInternalServerError {
			message = "Failed to apply payment callback"
			if log := middleware.GetLogger(c); log != nil {
				log.Error("Payment callback failed", err, map[string]interface{}{
					"payment_id": cb.PaymentID,
				})
			}
		}
		middleware.AbortWebhook(c, status, message)
		return
	}

	c.JSON(http.StatusOK, result)
}
