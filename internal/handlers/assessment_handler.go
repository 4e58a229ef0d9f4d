package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/revenue/api/internal/services"
)

// AssessmentHandler serves unsaved valuation previews.
type AssessmentHandler struct {
	service services.AssessmentService
}

// NewAssessmentHandler creates a new AssessmentHandler instance.
func NewAssessmentHandler(service services.AssessmentService) *AssessmentHandler {
	return &AssessmentHandler{service: service}
}

// Preview handles POST /api/v1/assessments/preview.
func (h *AssessmentHandler) Preview(c *gin.Context) {
	var req services.PreviewInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "Invalid preview body")
		return
	}

	result, err := h.service.Preview(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Failed to compute assessment")
		return
	}

	c.JSON(http.StatusOK, result)
}
