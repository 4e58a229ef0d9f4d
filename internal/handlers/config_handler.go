package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	apierrors "github.com/stwalsh4118/revenue/api/internal/errors"
	"github.com/stwalsh4118/revenue/api/internal/middleware"
	"github.com/stwalsh4118/revenue/api/internal/models"
	"github.com/stwalsh4118/revenue/api/internal/services"
)

// ConfigHandler handles the administrative rate configuration endpoints.
type ConfigHandler struct {
	service services.ConfigService
	loc     *time.Location
}

// NewConfigHandler creates a new ConfigHandler instance.
// loc is the timezone date-only fields are interpreted in.
func NewConfigHandler(service services.ConfigService, loc *time.Location) *ConfigHandler {
	return &ConfigHandler{service: service, loc: loc}
}

// RateConfigRequest is the body of a create or update. Only the fields that
// apply to the path's kind are read.
type RateConfigRequest struct {
	EffectiveDate    string              `json:"effective_date" binding:"required,datetime=2006-01-02"`
	ExpirationDate   *string             `json:"expiration_date" binding:"omitempty,datetime=2006-01-02"`
	Status           string              `json:"status" binding:"omitempty,oneof=active expired"`
	Classification   string              `json:"classification" binding:"max=100"`
	Material         string              `json:"material" binding:"max=100"`
	Name             string              `json:"name" binding:"max=100"`
	MarketValue      decimal.NullDecimal `json:"market_value"`
	AssessmentLevel  decimal.NullDecimal `json:"assessment_level"`
	UnitCost         decimal.NullDecimal `json:"unit_cost"`
	DepreciationRate decimal.NullDecimal `json:"depreciation_rate"`
	MinValue         decimal.NullDecimal `json:"min_value"`
	MaxValue         decimal.NullDecimal `json:"max_value"`
	Percent          decimal.NullDecimal `json:"percent"`
	MaxPercent       decimal.NullDecimal `json:"max_percent"`
	Amount           decimal.NullDecimal `json:"amount"`
}

// ConfigListResponse is the response for the list endpoint.
type ConfigListResponse struct {
	Kind    models.RateKind     `json:"kind"`
	Configs []models.RateConfig `json:"configs"`
	Count   int                 `json:"count"`
}

// List handles GET /api/v1/configs/:kind.
func (h *ConfigHandler) List(c *gin.Context) {
	kind := models.RateKind(c.Param("kind"))
	activeOnly := c.Query("active") == "true"

	rows, err := h.service.List(c.Request.Context(), kind, activeOnly)
	if err != nil {
		respondError(c, err, "Failed to list configurations")
		return
	}

	c.JSON(http.StatusOK, ConfigListResponse{Kind: kind, Configs: rows, Count: len(rows)})
}

// Get handles GET /api/v1/configs/:kind/:id.
func (h *ConfigHandler) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	cfg, err := h.service.Get(c.Request.Context(), models.RateKind(c.Param("kind")), id)
	if err != nil {
		respondError(c, err, "Failed to load configuration")
		return
	}

	c.JSON(http.StatusOK, cfg)
}

// Create handles POST /api/v1/configs/:kind.
func (h *ConfigHandler) Create(c *gin.Context) {
	cfg, ok := h.bindConfig(c)
	if !ok {
		return
	}

	created, err := h.service.Create(c.Request.Context(), cfg)
	if err != nil {
		respondError(c, err, "Failed to create configuration")
		return
	}

	c.JSON(http.StatusCreated, created)
}

// Update handles PUT /api/v1/configs/:kind/:id.
func (h *ConfigHandler) Update(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	cfg, ok := h.bindConfig(c)
	if !ok {
		return
	}

	updated, err := h.service.Update(c.Request.Context(), cfg.Kind, id, cfg)
	if err != nil {
		respondError(c, err, "Failed to update configuration")
		return
	}

	c.JSON(http.StatusOK, updated)
}

// Expire handles POST /api/v1/configs/:kind/:id/expire.
func (h *ConfigHandler) Expire(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	expired, err := h.service.Expire(c.Request.Context(), models.RateKind(c.Param("kind")), id)
	if err != nil {
		respondError(c, err, "Failed to expire configuration")
		return
	}

	c.JSON(http.StatusOK, expired)
}

// Delete handles DELETE /api/v1/configs/:kind/:id.
func (h *ConfigHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), models.RateKind(c.Param("kind")), id); err != nil {
		respondError(c, err, "Failed to delete configuration")
		return
	}

	c.Status(http.StatusNoContent)
}

// bindConfig binds the request body into a RateConfig of the path's kind.
func (h *ConfigHandler) bindConfig(c *gin.Context) (*models.RateConfig, bool) {
	kind := models.RateKind(c.Param("kind"))
	if !kind.Valid() {
		apierrors.BadRequest(c, "Unknown configuration kind", map[string]interface{}{"kind": kind})
		return nil, false
	}

	var req RateConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "Invalid configuration body")
		return nil, false
	}

	// Binding already checked the layout.
	effective, _ := time.ParseInLocation(time.DateOnly, req.EffectiveDate, h.loc)
	cfg := &models.RateConfig{
		Kind:             kind,
		Status:           req.Status,
		EffectiveDate:    effective,
		Classification:   req.Classification,
		Material:         req.Material,
		Name:             req.Name,
		MarketValue:      req.MarketValue,
		AssessmentLevel:  req.AssessmentLevel,
		UnitCost:         req.UnitCost,
		DepreciationRate: req.DepreciationRate,
		MinValue:         req.MinValue,
		MaxValue:         req.MaxValue,
		Percent:          req.Percent,
		MaxPercent:       req.MaxPercent,
		Amount:           req.Amount,
	}
	if req.ExpirationDate != nil {
		expiration, _ := time.ParseInLocation(time.DateOnly, *req.ExpirationDate, h.loc)
		cfg.ExpirationDate = &expiration
	}

	if log := middleware.GetLogger(c); log != nil {
		log.Info("Processing rate config write", map[string]interface{}{
			"kind":           kind,
			"effective_date": req.EffectiveDate,
		})
	}
	return cfg, true
}
