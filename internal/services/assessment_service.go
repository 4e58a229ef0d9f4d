package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stwalsh4118/revenue/api/internal/assessment"
	"github.com/stwalsh4118/revenue/api/internal/logger"
	"github.com/stwalsh4118/revenue/api/internal/models"
	"github.com/stwalsh4118/revenue/api/internal/repository"
)

// PreviewInput is an unsaved assessment form. Building is optional.
type PreviewInput struct {
	Land     LandAssessmentInput      `json:"land"`
	Building *BuildingAssessmentInput `json:"building"`
}

// BuildingPreview is a computed building valuation with its bracket warning.
type BuildingPreview struct {
	*assessment.BuildingResult
	Warning string `json:"warning,omitempty"`
}

// PreviewResult mirrors what approval would compute from the current rates.
type PreviewResult struct {
	Land               *assessment.LandResult `json:"land"`
	Building           *BuildingPreview       `json:"building,omitempty"`
	TotalAssessedValue *decimal.Decimal       `json:"total_assessed_value"`
	Tax                *assessment.AnnualTax  `json:"tax"`
	AsOf               string                 `json:"as_of"`
}

// AssessmentService previews valuations without persisting anything.
type AssessmentService interface {
	// Preview computes land, building and annual tax. Total and tax are nil
	// while the building's assessed value is pending.
	Preview(ctx context.Context, in PreviewInput) (*PreviewResult, error)
}

type assessmentService struct {
	repo repository.RateConfigRepository
	log  *logger.Logger
	loc  *time.Location
	now  clock
}

// NewAssessmentService creates a new instance of AssessmentService.
func NewAssessmentService(repo repository.RateConfigRepository, loc *time.Location, log *logger.Logger) AssessmentService {
	return &assessmentService{repo: repo, log: log, loc: loc, now: time.Now}
}

func (s *assessmentService) Preview(ctx context.Context, in PreviewInput) (*PreviewResult, error) {
	now := s.now().In(s.loc)
	snap, err := loadSnapshot(ctx, s.repo, now)
	if err != nil {
		s.log.Error("Failed to load rates for preview", err, nil)
		return nil, err
	}

	land, err := assessment.ComputeLand(in.Land.LandAreaSqm, in.Land.Classification, snap)
	if err != nil {
		return nil, err
	}
	result := &PreviewResult{Land: land, AsOf: now.Format(time.DateOnly)}
	total := land.AssessedValue

	if in.Building != nil {
		b, err := assessment.ComputeBuilding(assessment.BuildingInput{
			AssessmentLevelOverride: in.Building.AssessmentLevelOverride,
			FloorAreaSqm:            in.Building.FloorAreaSqm,
			Material:                in.Building.ConstructionType,
			Classification:          in.Building.Classification,
			YearBuilt:               in.Building.YearBuilt,
			CurrentYear:             now.Year(),
		}, snap)
		if err != nil {
			return nil, err
		}
		result.Building = &BuildingPreview{BuildingResult: b}
		if b.Warning != nil {
			result.Building.Warning = b.Warning.Error()
		}
		if b.Pending() {
			return result, nil
		}
		total = total.Add(*b.AssessedValue)
	}

	basic, err := snap.Tax(models.TaxNameBasic)
	if err != nil {
		return nil, err
	}
	sef, err := snap.Tax(models.TaxNameSEF)
	if err != nil {
		return nil, err
	}

	tax := assessment.ComputeAnnualTax(total, basic.Percent.Decimal, sef.Percent.Decimal)
	result.TotalAssessedValue = &total
	result.Tax = &tax
	return result, nil
}
