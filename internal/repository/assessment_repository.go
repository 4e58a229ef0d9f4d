package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/stwalsh4118/revenue/api/internal/database"
	"github.com/stwalsh4118/revenue/api/internal/models"
)

// AssessmentRepository defines the data access operations for land and building assessments.
// A registration has at most one of each.
type AssessmentRepository interface {
	// FindLand returns nil, nil when the registration has no land assessment.
	FindLand(ctx context.Context, registrationID int64) (*models.LandAssessment, error)

	// UpsertLand inserts or replaces the land assessment. An assigned TDN is kept.
	UpsertLand(ctx context.Context, land *models.LandAssessment) error

	// FindBuilding returns nil, nil when the registration has no building assessment.
	FindBuilding(ctx context.Context, registrationID int64) (*models.BuildingAssessment, error)

	// UpsertBuilding inserts or replaces the building assessment. An assigned TDN is kept.
	UpsertBuilding(ctx context.Context, building *models.BuildingAssessment) error

	// AssignTDNs stores the land TDN and, when buildingTDN is non-nil, the building TDN.
	AssignTDNs(ctx context.Context, registrationID int64, landTDN string, buildingTDN *string) error
}

type assessmentRepository struct {
	q database.Querier
}

// NewAssessmentRepository creates a new instance of AssessmentRepository.
func NewAssessmentRepository(q database.Querier) AssessmentRepository {
	return &assessmentRepository{q: q}
}

func (r *assessmentRepository) FindLand(ctx context.Context, registrationID int64) (*models.LandAssessment, error) {
	query := `
		SELECT registration_id, tdn, classification, land_area_sqm, land_market_value,
			land_assessed_value, assessment_level, created_at, updated_at
		FROM land_assessments
		WHERE registration_id = $1`

	var land models.LandAssessment
	err := r.q.QueryRow(ctx, query, registrationID).Scan(
		&land.RegistrationID,
		&land.TDN,
		&land.Classification,
		&land.LandAreaSqm,
		&land.MarketValue,
		&land.AssessedValue,
		&land.AssessmentLevel,
		&land.CreatedAt,
		&land.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query land assessment for registration %d: %w", registrationID, err)
	}
	return &land, nil
}

func (r *assessmentRepository) UpsertLand(ctx context.Context, land *models.LandAssessment) error {
	query := `
		INSERT INTO land_assessments (
			registration_id, classification, land_area_sqm, land_market_value,
			land_assessed_value, assessment_level
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (registration_id) DO UPDATE SET
			classification = EXCLUDED.classification,
			land_area_sqm = EXCLUDED.land_area_sqm,
			land_market_value = EXCLUDED.land_market_value,
			land_assessed_value = EXCLUDED.land_assessed_value,
			assessment_level = EXCLUDED.assessment_level,
			updated_at = NOW()
		RETURNING tdn, created_at, updated_at`

	err := r.q.QueryRow(ctx, query,
		land.RegistrationID,
		land.Classification,
		land.LandAreaSqm,
		land.MarketValue,
		land.AssessedValue,
		land.AssessmentLevel,
	).Scan(&land.TDN, &land.CreatedAt, &land.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert land assessment for registration %d: %w", land.RegistrationID, err)
	}
	return nil
}

func (r *assessmentRepository) FindBuilding(ctx context.Context, registrationID int64) (*models.BuildingAssessment, error) {
	query := `
		SELECT registration_id, tdn, construction_type, classification, floor_area_sqm, year_built,
			building_market_value, depreciation_percent, building_depreciated_value,
			building_assessed_value, assessment_level, level_overridden, assessment_note,
			created_at, updated_at
		FROM building_assessments
		WHERE registration_id = $1`

	var b models.BuildingAssessment
	err := r.q.QueryRow(ctx, query, registrationID).Scan(
		&b.RegistrationID,
		&b.TDN,
		&b.ConstructionType,
		&b.Classification,
		&b.FloorAreaSqm,
		&b.YearBuilt,
		&b.MarketValue,
		&b.DepreciationPercent,
		&b.DepreciatedValue,
		&b.AssessedValue,
		&b.AssessmentLevel,
		&b.LevelOverridden,
		&b.AssessmentNote,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query building assessment for registration %d: %w", registrationID, err)
	}
	return &b, nil
}

func (r *assessmentRepository) UpsertBuilding(ctx context.Context, b *models.BuildingAssessment) error {
	query := `
		INSERT INTO building_assessments (
			registration_id, construction_type, classification, floor_area_sqm, year_built,
			building_market_value, depreciation_percent, building_depreciated_value,
			building_assessed_value, assessment_level, level_overridden, assessment_note
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (registration_id) DO UPDATE SET
			construction_type = EXCLUDED.construction_type,
			classification = EXCLUDED.classification,
			floor_area_sqm = EXCLUDED.floor_area_sqm,
			year_built = EXCLUDED.year_built,
			building_market_value = EXCLUDED.building_market_value,
			depreciation_percent = EXCLUDED.depreciation_percent,
			building_depreciated_value = EXCLUDED.building_depreciated_value,
			building_assessed_value = EXCLUDED.building_assessed_value,
			assessment_level = EXCLUDED.assessment_level,
			level_overridden = EXCLUDED.level_overridden,
			assessment_note = EXCLUDED.assessment_note,
			updated_at = NOW()
		RETURNING tdn, created_at, updated_at`

	err := r.q.QueryRow(ctx, query,
		b.RegistrationID,
		b.ConstructionType,
		b.Classification,
		b.FloorAreaSqm,
		b.YearBuilt,
		b.MarketValue,
		b.DepreciationPercent,
		b.DepreciatedValue,
		b.AssessedValue,
		b.AssessmentLevel,
		b.LevelOverridden,
		b.AssessmentNote,
	).Scan(&b.TDN, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert building assessment for registration %d: %w", b.RegistrationID, err)
	}
	return nil
}

func (r *assessmentRepository) AssignTDNs(ctx context.Context, registrationID int64, landTDN string, buildingTDN *string) error {
	if _, err := r.q.Exec(ctx,
		`UPDATE land_assessments SET tdn = $2, updated_at = NOW() WHERE registration_id = $1`,
		registrationID, landTDN,
	); err != nil {
		return fmt.Errorf("failed to assign land TDN for registration %d: %w", registrationID, err)
	}

	if buildingTDN == nil {
		return nil
	}
	if _, err := r.q.Exec(ctx,
		`UPDATE building_assessments SET tdn = $2, updated_at = NOW() WHERE registration_id = $1`,
		registrationID, *buildingTDN,
	); err != nil {
		return fmt.Errorf("failed to assign building TDN for registration %d: %w", registrationID, err)
	}
	return nil
}
