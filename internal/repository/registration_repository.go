package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/stwalsh4118/revenue/api/internal/database"
	"github.com/stwalsh4118/revenue/api/internal/models"
)

// RegistrationFilter narrows a registration listing. A zero Status matches every status.
type RegistrationFilter struct {
	Status models.RegistrationStatus
	Limit  int
	Offset int
}

// RegistrationRepository defines the data access operations for property registrations.
type RegistrationRepository interface {
	// Create inserts a registration and fills in ID, DateRegistered and LastUpdated.
	Create(ctx context.Context, reg *models.Registration) error

	// FindByID returns nil, nil when no registration exists.
	FindByID(ctx context.Context, id int64) (*models.Registration, error)

	// FindByIDForUpdate is FindByID holding a row lock until the transaction ends.
	FindByIDForUpdate(ctx context.Context, id int64) (*models.Registration, error)

	// List returns one page of registrations, newest first, plus the total match count.
	List(ctx context.Context, filter RegistrationFilter) ([]models.Registration, int, error)

	// UpdateWorkflow persists status, assessor, inspection date and correction
	// notes, and refreshes LastUpdated.
	UpdateWorkflow(ctx context.Context, reg *models.Registration) error
}

type registrationRepository struct {
	q database.Querier
}

// NewRegistrationRepository creates a new instance of RegistrationRepository.
func NewRegistrationRepository(q database.Querier) RegistrationRepository {
	return &registrationRepository{q: q}
}

const registrationColumns = `
	id, reference_number, owner_name, owner_address, contact_number, email_address,
	property_type, location_address, barangay, district, municipality_city, province, zip_code,
	has_building, status, correction_notes, assessor_name, inspection_date,
	date_registered, last_updated`

func scanRegistration(row pgx.Row) (*models.Registration, error) {
	var reg models.Registration
	err := row.Scan(
		&reg.ID,
		&reg.ReferenceNumber,
		&reg.OwnerName,
		&reg.OwnerAddress,
		&reg.ContactNumber,
		&reg.EmailAddress,
		&reg.PropertyType,
		&reg.LocationAddress,
		&reg.Barangay,
		&reg.District,
		&reg.MunicipalityCity,
		&reg.Province,
		&reg.ZipCode,
		&reg.HasBuilding,
		&reg.Status,
		&reg.CorrectionNotes,
		&reg.AssessorName,
		&reg.InspectionDate,
		&reg.DateRegistered,
		&reg.LastUpdated,
	)
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *registrationRepository) Create(ctx context.Context, reg *models.Registration) error {
	query := `
		INSERT INTO registrations (
			reference_number, owner_name, owner_address, contact_number, email_address,
			property_type, location_address, barangay, district, municipality_city,
			province, zip_code, has_building, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, date_registered, last_updated`

	err := r.q.QueryRow(ctx, query,
		reg.ReferenceNumber,
		reg.OwnerName,
		reg.OwnerAddress,
		reg.ContactNumber,
		reg.EmailAddress,
		reg.PropertyType,
		reg.LocationAddress,
		reg.Barangay,
		reg.District,
		reg.MunicipalityCity,
		reg.Province,
		reg.ZipCode,
		reg.HasBuilding,
		reg.Status,
	).Scan(&reg.ID, &reg.DateRegistered, &reg.LastUpdated)
	if err != nil {
		return fmt.Errorf("failed to insert registration %s: %w", reg.ReferenceNumber, err)
	}
	return nil
}

func (r *registrationRepository) FindByID(ctx context.Context, id int64) (*models.Registration, error) {
	return r.findByID(ctx, id, "")
}

func (r *registrationRepository) FindByIDForUpdate(ctx context.Context, id int64) (*models.Registration, error) {
	return r.findByID(ctx, id, " FOR UPDATE")
}

func (r *registrationRepository) findByID(ctx context.Context, id int64, suffix string) (*models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE id = $1` + suffix

	reg, err := scanRegistration(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query registration %d: %w", id, err)
	}
	return reg, nil
}

func (r *registrationRepository) List(ctx context.Context, filter RegistrationFilter) ([]models.Registration, int, error) {
	var total int
	err := r.q.QueryRow(ctx,
		`SELECT COUNT(*) FROM registrations WHERE ($1 = '' OR status = $1)`,
		string(filter.Status),
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count registrations: %w", err)
	}

	query := `SELECT ` + registrationColumns + `
		FROM registrations
		WHERE ($1 = '' OR status = $1)
		ORDER BY date_registered DESC, id DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.q.Query(ctx, query, string(filter.Status), filter.Limit, filter.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list registrations: %w", err)
	}
	defer rows.Close()

	results := []models.Registration{}
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan registration: %w", err)
		}
		results = append(results, *reg)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating registration rows: %w", err)
	}

	return results, total, nil
}

func (r *registrationRepository) UpdateWorkflow(ctx context.Context, reg *models.Registration) error {
	query := `
		UPDATE registrations SET
			status = $2,
			assessor_name = $3,
			inspection_date = $4,
			correction_notes = $5,
			last_updated = NOW()
		WHERE id = $1
		RETURNING last_updated`

	err := r.q.QueryRow(ctx, query,
		reg.ID,
		reg.Status,
		reg.AssessorName,
		reg.InspectionDate,
		reg.CorrectionNotes,
	).Scan(&reg.LastUpdated)
	if err != nil {
		return fmt.Errorf("failed to update registration %d: %w", reg.ID, err)
	}
	return nil
}
