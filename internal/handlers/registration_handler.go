package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	apierrors "github.com/stwalsh4118/revenue/api/internal/errors"
	"github.com/stwalsh4118/revenue/api/internal/middleware"
	"github.com/stwalsh4118/revenue/api/internal/models"
	"github.com/stwalsh4118/revenue/api/internal/services"
)

// RegistrationHandler handles registration, assessment, approval and
// billing statement requests.
type RegistrationHandler struct {
	service services.RegistrationService
	billing services.BillingService
}

// NewRegistrationHandler creates a new RegistrationHandler instance.
func NewRegistrationHandler(service services.RegistrationService, billing services.BillingService) *RegistrationHandler {
	return &RegistrationHandler{service: service, billing: billing}
}

// ListRegistrationsRequest represents the query parameters for the list endpoint.
type ListRegistrationsRequest struct {
	Status   string `form:"status"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// CorrectionRequest is the body of a correction request.
type CorrectionRequest struct {
	CorrectionNotes string `json:"correction_notes" binding:"required"`
}

// Submit handles POST /api/v1/registrations.
func (h *RegistrationHandler) Submit(c *gin.Context) {
	var req services.SubmitRegistrationInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "Invalid registration body")
		return
	}

	reg, err := h.service.Submit(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Failed to submit registration")
		return
	}

	c.JSON(http.StatusCreated, reg)
}

// List handles GET /api/v1/registrations.
func (h *RegistrationHandler) List(c *gin.Context) {
	var req ListRegistrationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err, "Invalid query parameters")
		return
	}

	page, err := h.service.List(c.Request.Context(), services.ListRegistrationsInput{
		Status:   models.RegistrationStatus(req.Status),
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		respondError(c, err, "Failed to list registrations")
		return
	}

	c.JSON(http.StatusOK, page)
}

// Get handles GET /api/v1/registrations/:id.
func (h *RegistrationHandler) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	detail, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to load registration")
		return
	}

	c.JSON(http.StatusOK, detail)
}

// ScheduleInspection handles POST /api/v1/registrations/:id/schedule-inspection.
func (h *RegistrationHandler) ScheduleInspection(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req services.ScheduleInspectionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "Invalid inspection body")
		return
	}

	h.respondTransition(c, id, "schedule_inspection", func() (*services.TransitionResult, error) {
		return h.service.ScheduleInspection(c.Request.Context(), id, req)
	})
}

// MarkAssessed handles POST /api/v1/registrations/:id/mark-assessed.
func (h *RegistrationHandler) MarkAssessed(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	h.respondTransition(c, id, "mark_assessed", func() (*services.TransitionResult, error) {
		return h.service.MarkAssessed(c.Request.Context(), id)
	})
}

// RequestCorrection handles POST /api/v1/registrations/:id/request-correction.
func (h *RegistrationHandler) RequestCorrection(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req CorrectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "Invalid correction body")
		return
	}

	h.respondTransition(c, id, "request_correction", func() (*services.TransitionResult, error) {
		return h.service.RequestCorrection(c.Request.Context(), id, req.CorrectionNotes)
	})
}

// Resubmit handles POST /api/v1/registrations/:id/resubmit.
func (h *RegistrationHandler) Resubmit(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	h.respondTransition(c, id, "resubmit", func() (*services.TransitionResult, error) {
		return h.service.Resubmit(c.Request.Context(), id)
	})
}

func (h *RegistrationHandler) respondTransition(c *gin.Context, id int64, action string, run func() (*services.TransitionResult, error)) {
	if log := middleware.GetLogger(c); log != nil {
		log.Info("Processing registration action", map[string]interface{}{
			"registration_id": id,
			"action":          action,
		})
	}

	result, err := run()
	if err != nil {
		respondError(c, err, "Failed to update registration")
		return
	}

	c.JSON(http.StatusOK, result)
}

// SaveLandAssessment handles PUT /api/v1/registrations/:id/land-assessment.
func (h *RegistrationHandler) SaveLandAssessment(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req services.LandAssessmentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "Invalid land assessment body")
		return
	}

	land, err := h.service.SaveLandAssessment(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err, "Failed to save land assessment")
		return
	}

	c.JSON(http.StatusOK, land)
}

// SaveBuildingAssessment handles PUT /api/v1/registrations/:id/building-assessment.
func (h *RegistrationHandler) SaveBuildingAssessment(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req services.BuildingAssessmentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "Invalid building assessment body")
		return
	}

	result, err := h.service.SaveBuildingAssessment(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err, "Failed to save building assessment")
		return
	}

	c.JSON(http.StatusOK, result)
}

// Approve handles POST /api/v1/registrations/:id/approve.
func (h *RegistrationHandler) Approve(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	result, err := h.service.Approve(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to approve registration")
		return
	}

	c.JSON(http.StatusOK, result)
}

// Billing handles GET /api/v1/registrations/:id/billing.
// The optional year query selects a billing year; the latest is the default.
func (h *RegistrationHandler) Billing(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	year := 0
	if raw := c.Query("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1900 {
			apierrors.BadRequest(c, "Invalid year", map[string]interface{}{"year": raw})
			return
		}
		year = parsed
	}

	statement, err := h.billing.Statement(c.Request.Context(), id, year)
	if err != nil {
		respondError(c, err, "Failed to load billing")
		return
	}

	c.JSON(http.StatusOK, statement)
}
