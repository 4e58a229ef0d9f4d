package services

import (
	"context"
	"fmt"
	"time"

	"github.com/stwalsh4118/revenue/api/internal/logger"
	"github.com/stwalsh4118/revenue/api/internal/models"
	"github.com/stwalsh4118/revenue/api/internal/rates"
	"github.com/stwalsh4118/revenue/api/internal/repository"
)

// ConfigService defines the administrative operations on rate configuration.
type ConfigService interface {
	// List returns rows of one kind. With activeOnly, only rows in force today are returned.
	List(ctx context.Context, kind models.RateKind, activeOnly bool) ([]models.RateConfig, error)

	// Get returns ErrNotFound when the id does not exist or belongs to another kind.
	Get(ctx context.Context, kind models.RateKind, id int64) (*models.RateConfig, error)

	// Create validates the row and rejects it with rates.ErrConfigConflict when
	// it would overlap an active row for the same key.
	Create(ctx context.Context, cfg *models.RateConfig) (*models.RateConfig, error)

	// Update replaces the values of an existing row under the same rules as Create.
	Update(ctx context.Context, kind models.RateKind, id int64, cfg *models.RateConfig) (*models.RateConfig, error)

	// Expire ends a row today and marks it expired.
	Expire(ctx context.Context, kind models.RateKind, id int64) (*models.RateConfig, error)

	// Delete removes a row.
	Delete(ctx context.Context, kind models.RateKind, id int64) error

	// Snapshot loads every row active on asOf.
	Snapshot(ctx context.Context, asOf time.Time) (*rates.Snapshot, error)
}

type configService struct {
	repo repository.RateConfigRepository
	tx   repository.Transactor
	log  *logger.Logger
	loc  *time.Location
	now  clock
}

// NewConfigService creates a new instance of ConfigService.
func NewConfigService(repo repository.RateConfigRepository, tx repository.Transactor, loc *time.Location, log *logger.Logger) ConfigService {
	return &configService{
		repo: repo,
		tx:   tx,
		log:  log,
		loc:  loc,
		now:  time.Now,
	}
}

func (s *configService) today() time.Time {
	return models.DateOf(s.now().In(s.loc))
}

func (s *configService) List(ctx context.Context, kind models.RateKind, activeOnly bool) ([]models.RateConfig, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown configuration kind %q", ErrValidation, kind)
	}

	rows, err := s.repo.ListByKind(ctx, kind)
	if err != nil {
		s.log.Error("Failed to list rate configs", err, map[string]interface{}{"kind": kind})
		return nil, fmt.Errorf("failed to list rate configs: %w", err)
	}
	if !activeOnly {
		return rows, nil
	}

	today := s.today()
	active := make([]models.RateConfig, 0, len(rows))
	for i := range rows {
		if rows[i].ActiveOn(today) {
			active = append(active, rows[i])
		}
	}
	return active, nil
}

func (s *configService) Get(ctx context.Context, kind models.RateKind, id int64) (*models.RateConfig, error) {
	cfg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query rate config: %w", err)
	}
	if cfg == nil || cfg.Kind != kind {
		return nil, fmt.Errorf("%w: %s configuration %d", ErrNotFound, kind, id)
	}
	return cfg, nil
}

func (s *configService) Create(ctx context.Context, cfg *models.RateConfig) (*models.RateConfig, error) {
	if cfg.Status == "" {
		cfg.Status = models.RateStatusActive
	}
	cfg.ID = 0
	if err := rates.Validate(cfg); err != nil {
		s.log.Warn("Rejected invalid rate config", map[string]interface{}{
			"kind":  cfg.Kind,
			"error": err.Error(),
		})
		return nil, err
	}

	err := s.tx.InTx(ctx, func(ctx context.Context, store *repository.Store) error {
		if err := s.checkConflict(ctx, store, cfg); err != nil {
			return err
		}
		return store.Rates.Create(ctx, cfg)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Rate config created", map[string]interface{}{
		"id":             cfg.ID,
		"kind":           cfg.Kind,
		"effective_date": cfg.EffectiveDate.Format(time.DateOnly),
	})
	return cfg, nil
}

func (s *configService) Update(ctx context.Context, kind models.RateKind, id int64, cfg *models.RateConfig) (*models.RateConfig, error) {
	err := s.tx.InTx(ctx, func(ctx context.Context, store *repository.Store) error {
		current, err := store.Rates.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if current == nil || current.Kind != kind {
			return fmt.Errorf("%w: %s configuration %d", ErrNotFound, kind, id)
		}

		cfg.ID = current.ID
		cfg.Kind = current.Kind
		cfg.CreatedAt = current.CreatedAt
		if cfg.Status == "" {
			cfg.Status = current.Status
		}
		if err := rates.Validate(cfg); err != nil {
			return err
		}
		if err := s.checkConflict(ctx, store, cfg); err != nil {
			return err
		}
		return store.Rates.Update(ctx, cfg)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Rate config updated", map[string]interface{}{"id": id, "kind": kind})
	return cfg, nil
}

func (s *configService) Expire(ctx context.Context, kind models.RateKind, id int64) (*models.RateConfig, error) {
	var expired *models.RateConfig
	err := s.tx.InTx(ctx, func(ctx context.Context, store *repository.Store) error {
		current, err := store.Rates.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if current == nil || current.Kind != kind {
			return fmt.Errorf("%w: %s configuration %d", ErrNotFound, kind, id)
		}

		today := s.today()
		if current.ExpirationDate == nil || current.ExpirationDate.After(today) {
			current.ExpirationDate = &today
		}
		current.Status = models.RateStatusExpired
		if err := store.Rates.Update(ctx, current); err != nil {
			return err
		}
		expired = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Rate config expired", map[string]interface{}{"id": id, "kind": kind})
	return expired, nil
}

func (s *configService) Delete(ctx context.Context, kind models.RateKind, id int64) error {
	if _, err := s.Get(ctx, kind, id); err != nil {
		return err
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		s.log.Error("Failed to delete rate config", err, map[string]interface{}{"id": id})
		return fmt.Errorf("failed to delete rate config: %w", err)
	}
	if !deleted {
		return fmt.Errorf("%w: %s configuration %d", ErrNotFound, kind, id)
	}

	s.log.Info("Rate config deleted", map[string]interface{}{"id": id, "kind": kind})
	return nil
}

func (s *configService) Snapshot(ctx context.Context, asOf time.Time) (*rates.Snapshot, error) {
	return loadSnapshot(ctx, s.repo, asOf)
}

// checkConflict must run inside the transaction that writes cfg.
func (s *configService) checkConflict(ctx context.Context, store *repository.Store, cfg *models.RateConfig) error {
	if err := store.Rates.LockKind(ctx, cfg.Kind); err != nil {
		return err
	}
	existing, err := store.Rates.ListByKind(ctx, cfg.Kind)
	if err != nil {
		return err
	}
	if err := rates.CheckConflict(existing, cfg); err != nil {
		s.log.Warn("Rejected conflicting rate config", map[string]interface{}{
			"kind":  cfg.Kind,
			"error": err.Error(),
		})
		return err
	}
	return nil
}

// loadSnapshot reads the active rows and resolves them for asOf.
func loadSnapshot(ctx context.Context, repo repository.RateConfigRepository, asOf time.Time) (*rates.Snapshot, error) {
	rows, err := repo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load rate configuration: %w", err)
	}
	return rates.NewSnapshot(rows, asOf), nil
}
