package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/stwalsh4118/revenue/api/internal/database"
	"github.com/stwalsh4118/revenue/api/internal/models"
)

// RateConfigRepository defines the data access operations for rate configuration rows.
type RateConfigRepository interface {
	// ListByKind returns every row of the given kind, newest effective date first.
	ListByKind(ctx context.Context, kind models.RateKind) ([]models.RateConfig, error)

	// ListActive returns every row with status active across all kinds.
	// Date filtering is left to rates.NewSnapshot.
	ListActive(ctx context.Context) ([]models.RateConfig, error)

	// FindByID returns nil, nil when no row exists.
	FindByID(ctx context.Context, id int64) (*models.RateConfig, error)

	// Create inserts the row and fills in ID, CreatedAt and UpdatedAt.
	Create(ctx context.Context, cfg *models.RateConfig) error

	// Update overwrites every mutable column and refreshes UpdatedAt.
	Update(ctx context.Context, cfg *models.RateConfig) error

	// Delete removes the row. It reports false when nothing was deleted.
	Delete(ctx context.Context, id int64) (bool, error)

	// LockKind serializes writers of one kind until the surrounding
	// transaction ends. It must run inside a transaction.
	LockKind(ctx context.Context, kind models.RateKind) error
}

type rateConfigRepository struct {
	q database.Querier
}

// NewRateConfigRepository creates a new instance of RateConfigRepository.
func NewRateConfigRepository(q database.Querier) RateConfigRepository {
	return &rateConfigRepository{q: q}
}

const rateConfigColumns = `
	id, kind, classification, material, name,
	market_value, assessment_level, unit_cost, depreciation_rate,
	min_value, max_value, percent, max_percent, amount,
	effective_date, expiration_date, status, created_at, updated_at`

func scanRateConfig(row pgx.Row) (*models.RateConfig, error) {
	var cfg models.RateConfig
	err := row.Scan(
		&cfg.ID,
		&cfg.Kind,
		&cfg.Classification,
		&cfg.Material,
		&cfg.Name,
		&cfg.MarketValue,
		&cfg.AssessmentLevel,
		&cfg.UnitCost,
		&cfg.DepreciationRate,
		&cfg.MinValue,
		&cfg.MaxValue,
		&cfg.Percent,
		&cfg.MaxPercent,
		&cfg.Amount,
		&cfg.EffectiveDate,
		&cfg.ExpirationDate,
		&cfg.Status,
		&cfg.CreatedAt,
		&cfg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func collectRateConfigs(rows pgx.Rows) ([]models.RateConfig, error) {
	defer rows.Close()

	results := []models.RateConfig{}
	for rows.Next() {
		cfg, err := scanRateConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rate config: %w", err)
		}
		results = append(results, *cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rate config rows: %w", err)
	}
	return results, nil
}

func (r *rateConfigRepository) ListByKind(ctx context.Context, kind models.RateKind) ([]models.RateConfig, error) {
	query := `SELECT ` + rateConfigColumns + `
		FROM rate_configs
		WHERE kind = $1
		ORDER BY effective_date DESC, id DESC`

	rows, err := r.q.Query(ctx, query, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s rate configs: %w", kind, err)
	}
	return collectRateConfigs(rows)
}

func (r *rateConfigRepository) ListActive(ctx context.Context) ([]models.RateConfig, error) {
	query := `SELECT ` + rateConfigColumns + `
		FROM rate_configs
		WHERE status = $1
		ORDER BY kind, effective_date DESC, id DESC`

	rows, err := r.q.Query(ctx, query, models.RateStatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to list active rate configs: %w", err)
	}
	return collectRateConfigs(rows)
}

func (r *rateConfigRepository) FindByID(ctx context.Context, id int64) (*models.RateConfig, error) {
	query := `SELECT ` + rateConfigColumns + ` FROM rate_configs WHERE id = $1`

	cfg, err := scanRateConfig(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query rate config %d: %w", id, err)
	}
	return cfg, nil
}

func (r *rateConfigRepository) Create(ctx context.Context, cfg *models.RateConfig) error {
	query := `
		INSERT INTO rate_configs (
			kind, classification, material, name,
			market_value, assessment_level, unit_cost, depreciation_rate,
			min_value, max_value, percent, max_percent, amount,
			effective_date, expiration_date, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id, created_at, updated_at`

	err := r.q.QueryRow(ctx, query,
		cfg.Kind,
		cfg.Classification,
		cfg.Material,
		cfg.Name,
		cfg.MarketValue,
		cfg.AssessmentLevel,
		cfg.UnitCost,
		cfg.DepreciationRate,
		cfg.MinValue,
		cfg.MaxValue,
		cfg.Percent,
		cfg.MaxPercent,
		cfg.Amount,
		cfg.EffectiveDate,
		cfg.ExpirationDate,
		cfg.Status,
	).Scan(&cfg.ID, &cfg.CreatedAt, &cfg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert %s rate config: %w", cfg.Kind, err)
	}
	return nil
}

func (r *rateConfigRepository) Update(ctx context.Context, cfg *models.RateConfig) error {
	query := `
		UPDATE rate_configs SET
			classification = $2, material = $3, name = $4,
			market_value = $5, assessment_level = $6, unit_cost = $7, depreciation_rate = $8,
			min_value = $9, max_value = $10, percent = $11, max_percent = $12, amount = $13,
			effective_date = $14, expiration_date = $15, status = $16,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.q.QueryRow(ctx, query,
		cfg.ID,
		cfg.Classification,
		cfg.Material,
		cfg.Name,
		cfg.MarketValue,
		cfg.AssessmentLevel,
		cfg.UnitCost,
		cfg.DepreciationRate,
		cfg.MinValue,
		cfg.MaxValue,
		cfg.Percent,
		cfg.MaxPercent,
		cfg.Amount,
		cfg.EffectiveDate,
		cfg.ExpirationDate,
		cfg.Status,
	).Scan(&cfg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update rate config %d: %w", cfg.ID, err)
	}
	return nil
}

func (r *rateConfigRepository) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM rate_configs WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete rate config %d: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *rateConfigRepository) LockKind(ctx context.Context, kind models.RateKind) error {
	if _, err := r.q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "rate_configs:"+string(kind)); err != nil {
		return fmt.Errorf("failed to lock %s rate configs: %w", kind, err)
	}
	return nil
}
