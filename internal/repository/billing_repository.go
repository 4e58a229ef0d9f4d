package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stwalsh4118/revenue/api/internal/database"
	"github.com/stwalsh4118/revenue/api/internal/models"
)

// BillingRepository defines the data access operations for approved property
// totals and their quarterly bills.
type BillingRepository interface {
	// CreatePropertyTotal inserts the totals row and fills in ID and ApprovedAt.
	CreatePropertyTotal(ctx context.Context, total *models.PropertyTotal) error

	// CreateBills inserts the quarter rows and fills in their IDs.
	CreateBills(ctx context.Context, bills []models.QuarterlyBill) error

	// FindPropertyTotal returns the totals row for a registration and year, or nil, nil.
	FindPropertyTotal(ctx context.Context, registrationID int64, year int) (*models.PropertyTotal, error)

	// LatestPropertyTotal returns the most recent year's totals row, or nil, nil.
	LatestPropertyTotal(ctx context.Context, registrationID int64) (*models.PropertyTotal, error)

	// FindPropertyTotalByID returns nil, nil when no row exists.
	FindPropertyTotalByID(ctx context.Context, id int64) (*models.PropertyTotal, error)

	// ListBills returns the bills of a property total for a year in quarter order.
	ListBills(ctx context.Context, propertyTotalID int64, year int) ([]models.QuarterlyBill, error)

	// FindBill returns nil, nil when no bill exists.
	FindBill(ctx context.Context, id int64) (*models.QuarterlyBill, error)

	// ReceiptRecorded reports whether any bill already carries the receipt number.
	ReceiptRecorded(ctx context.Context, receipt string) (bool, error)

	// MarkBillPaid settles one bill if it is still unpaid, recording the
	// penalty charged with it, and returns the rows changed.
	MarkBillPaid(ctx context.Context, billID int64, receipt string, paidAt time.Time, penalty decimal.Decimal) (int64, error)
}

type billingRepository struct {
	q database.Querier
}

// NewBillingRepository creates a new instance of BillingRepository.
func NewBillingRepository(q database.Querier) BillingRepository {
	return &billingRepository{q: q}
}

const propertyTotalColumns = `
	id, registration_id, year, land_tdn, building_tdn, land_assessed_value,
	building_assessed_value, total_assessed_value, basic_tax, sef_tax, annual_tax, approved_at`

const billColumns = `
	id, property_total_id, quarter, year, total_quarterly_tax, penalty_amount,
	payment_status, due_date, receipt_number, payment_date, created_at`

func scanPropertyTotal(row pgx.Row) (*models.PropertyTotal, error) {
	var t models.PropertyTotal
	err := row.Scan(
		&t.ID,
		&t.RegistrationID,
		&t.Year,
		&t.LandTDN,
		&t.BuildingTDN,
		&t.LandAssessedValue,
		&t.BldgAssessedValue,
		&t.TotalAssessedValue,
		&t.BasicTax,
		&t.SEFTax,
		&t.AnnualTax,
		&t.ApprovedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func scanBill(row pgx.Row) (*models.QuarterlyBill, error) {
	var b models.QuarterlyBill
	err := row.Scan(
		&b.ID,
		&b.PropertyTotalID,
		&b.Quarter,
		&b.Year,
		&b.QuarterlyTax,
		&b.PenaltyAmount,
		&b.PaymentStatus,
		&b.DueDate,
		&b.ReceiptNumber,
		&b.PaymentDate,
		&b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *billingRepository) CreatePropertyTotal(ctx context.Context, t *models.PropertyTotal) error {
	query := `
		INSERT INTO property_totals (
			registration_id, year, land_tdn, building_tdn, land_assessed_value,
			building_assessed_value, total_assessed_value, basic_tax, sef_tax, annual_tax
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, approved_at`

	err := r.q.QueryRow(ctx, query,
		t.RegistrationID,
		t.Year,
		t.LandTDN,
		t.BuildingTDN,
		t.LandAssessedValue,
		t.BldgAssessedValue,
		t.TotalAssessedValue,
		t.BasicTax,
		t.SEFTax,
		t.AnnualTax,
	).Scan(&t.ID, &t.ApprovedAt)
	if err != nil {
		return fmt.Errorf("failed to insert property total for registration %d: %w", t.RegistrationID, err)
	}
	return nil
}

func (r *billingRepository) CreateBills(ctx context.Context, bills []models.QuarterlyBill) error {
	query := `
		INSERT INTO quarterly_bills (
			property_total_id, quarter, year, total_quarterly_tax, penalty_amount,
			payment_status, due_date
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	for i := range bills {
		b := &bills[i]
		err := r.q.QueryRow(ctx, query,
			b.PropertyTotalID,
			b.Quarter,
			b.Year,
			b.QuarterlyTax,
			b.PenaltyAmount,
			b.PaymentStatus,
			b.DueDate,
		).Scan(&b.ID, &b.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert %s bill for property total %d: %w", b.Quarter, b.PropertyTotalID, err)
		}
	}
	return nil
}

func (r *billingRepository) FindPropertyTotal(ctx context.Context, registrationID int64, year int) (*models.PropertyTotal, error) {
	query := `SELECT ` + propertyTotalColumns + `
		FROM property_totals
		WHERE registration_id = $1 AND year = $2`

	t, err := scanPropertyTotal(r.q.QueryRow(ctx, query, registrationID, year))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query property total (registration=%d, year=%d): %w", registrationID, year, err)
	}
	return t, nil
}

func (r *billingRepository) LatestPropertyTotal(ctx context.Context, registrationID int64) (*models.PropertyTotal, error) {
	query := `SELECT ` + propertyTotalColumns + `
		FROM property_totals
		WHERE registration_id = $1
		ORDER BY year DESC
		LIMIT 1`

	t, err := scanPropertyTotal(r.q.QueryRow(ctx, query, registrationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query latest property total for registration %d: %w", registrationID, err)
	}
	return t, nil
}

func (r *billingRepository) FindPropertyTotalByID(ctx context.Context, id int64) (*models.PropertyTotal, error) {
	query := `SELECT ` + propertyTotalColumns + ` FROM property_totals WHERE id = $1`

	t, err := scanPropertyTotal(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query property total %d: %w", id, err)
	}
	return t, nil
}

func (r *billingRepository) ListBills(ctx context.Context, propertyTotalID int64, year int) ([]models.QuarterlyBill, error) {
	query := `SELECT ` + billColumns + `
		FROM quarterly_bills
		WHERE property_total_id = $1 AND year = $2
		ORDER BY quarter`

	rows, err := r.q.Query(ctx, query, propertyTotalID, year)
	if err != nil {
		return nil, fmt.Errorf("failed to list bills (property_total=%d, year=%d): %w", propertyTotalID, year, err)
	}
	defer rows.Close()

	results := []models.QuarterlyBill{}
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bill: %w", err)
		}
		results = append(results, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bill rows: %w", err)
	}
	return results, nil
}

func (r *billingRepository) FindBill(ctx context.Context, id int64) (*models.QuarterlyBill, error) {
	query := `SELECT ` + billColumns + ` FROM quarterly_bills WHERE id = $1`

	b, err := scanBill(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query bill %d: %w", id, err)
	}
	return b, nil
}

func (r *billingRepository) ReceiptRecorded(ctx context.Context, receipt string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM quarterly_bills WHERE receipt_number = $1)`,
		receipt,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check receipt %s: %w", receipt, err)
	}
	return exists, nil
}

func (r *billingRepository) MarkBillPaid(ctx context.Context, billID int64, receipt string, paidAt time.Time, penalty decimal.Decimal) (int64, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE quarterly_bills
		SET payment_status = $2, receipt_number = $3, payment_date = $4, penalty_amount = $5
		WHERE id = $1 AND payment_status <> $2`,
		billID, models.PaymentStatusPaid, receipt, paidAt, penalty,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark bill %d paid: %w", billID, err)
	}
	return tag.RowsAffected(), nil
}
