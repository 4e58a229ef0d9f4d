package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/revenue/api/internal/services"
)

// PaymentHandler serves the simulated wallet payment flow.
type PaymentHandler struct {
	service services.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler instance.
func NewPaymentHandler(service services.PaymentService) *PaymentHandler {
	return &PaymentHandler{service: service}
}

// MethodsResponse lists the supported wallets.
type MethodsResponse struct {
	Methods []services.PaymentMethod `json:"methods"`
}

// Methods handles GET /api/v1/payments/methods.
func (h *PaymentHandler) Methods(c *gin.Context) {
	c.JSON(http.StatusOK, MethodsResponse{Methods: h.service.Methods()})
}

// Create handles POST /api/v1/payments.
func (h *PaymentHandler) Create(c *gin.Context) {
	var req services.CreatePaymentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "Invalid payment body")
		return
	}

	created, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Failed to create payment")
		return
	}

	c.JSON(http.StatusCreated, created)
}

// Verify handles POST /api/v1/payments/verify.
func (h *PaymentHandler) Verify(c *gin.Context) {
	var req services.VerifyPaymentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "Invalid verification body")
		return
	}

	outcome, err := h.service.Verify(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Failed to verify payment")
		return
	}

	c.JSON(http.StatusOK, outcome)
}

// Notify handles POST /api/v1/payments/:id/notify.
func (h *PaymentHandler) Notify(c *gin.Context) {
	outcome, err := h.service.Notify(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to notify payment")
		return
	}

	c.JSON(http.StatusOK, outcome)
}

// Get handles GET /api/v1/payments/:id.
func (h *PaymentHandler) Get(c *gin.Context) {
	payment, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to load payment")
		return
	}

	c.JSON(http.StatusOK, payment)
}
