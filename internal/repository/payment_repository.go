package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stwalsh4118/revenue/api/internal/database"
	"github.com/stwalsh4118/revenue/api/internal/models"
)

// PaymentRepository defines the data access operations for simulated wallet transactions.
type PaymentRepository interface {
	// Create inserts a pending transaction and fills in CreatedAt.
	Create(ctx context.Context, p *models.PaymentTransaction) error

	// FindByID returns nil, nil when no transaction exists.
	FindByID(ctx context.Context, paymentID string) (*models.PaymentTransaction, error)

	// FindByIDForUpdate is FindByID holding a row lock until the transaction ends.
	FindByIDForUpdate(ctx context.Context, paymentID string) (*models.PaymentTransaction, error)

	// MarkPaid records the receipt and settlement time on a pending transaction.
	MarkPaid(ctx context.Context, paymentID, receipt string, paidAt time.Time) error

	// SetWebhookResult records the outcome of the latest callback attempt.
	SetWebhookResult(ctx context.Context, paymentID, status string, webhookErr *string) error
}

type paymentRepository struct {
	q database.Querier
}

// NewPaymentRepository creates a new instance of PaymentRepository.
func NewPaymentRepository(q database.Querier) PaymentRepository {
	return &paymentRepository{q: q}
}

const paymentColumns = `
	payment_id, client_system, client_reference, purpose, amount, phone, payment_method,
	webhook_url, otp_code, is_annual, property_total_id, tax_id, quarter, year,
	payment_status, receipt_number, webhook_status, webhook_error, created_at, paid_at`

func scanPayment(row pgx.Row) (*models.PaymentTransaction, error) {
	var p models.PaymentTransaction
	err := row.Scan(
		&p.PaymentID,
		&p.ClientSystem,
		&p.ClientReference,
		&p.Purpose,
		&p.Amount,
		&p.Phone,
		&p.PaymentMethod,
		&p.WebhookURL,
		&p.OTPCode,
		&p.IsAnnual,
		&p.PropertyTotalID,
		&p.TaxID,
		&p.Quarter,
		&p.Year,
		&p.PaymentStatus,
		&p.ReceiptNumber,
		&p.WebhookStatus,
		&p.WebhookError,
		&p.CreatedAt,
		&p.PaidAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepository) Create(ctx context.Context, p *models.PaymentTransaction) error {
	query := `
		INSERT INTO payment_transactions (
			payment_id, client_system, client_reference, purpose, amount, phone,
			payment_method, webhook_url, otp_code, is_annual, property_total_id,
			tax_id, quarter, year, payment_status, webhook_status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING created_at`

	err := r.q.QueryRow(ctx, query,
		p.PaymentID,
		p.ClientSystem,
		p.ClientReference,
		p.Purpose,
		p.Amount,
		p.Phone,
		p.PaymentMethod,
		p.WebhookURL,
		p.OTPCode,
		p.IsAnnual,
		p.PropertyTotalID,
		p.TaxID,
		p.Quarter,
		p.Year,
		p.PaymentStatus,
		p.WebhookStatus,
	).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert payment %s: %w", p.PaymentID, err)
	}
	return nil
}

func (r *paymentRepository) FindByID(ctx context.Context, paymentID string) (*models.PaymentTransaction, error) {
	return r.findByID(ctx, paymentID, "")
}

func (r *paymentRepository) FindByIDForUpdate(ctx context.Context, paymentID string) (*models.PaymentTransaction, error) {
	return r.findByID(ctx, paymentID, " FOR UPDATE")
}

func (r *paymentRepository) findByID(ctx context.Context, paymentID, suffix string) (*models.PaymentTransaction, error) {
	query := `SELECT ` + paymentColumns + ` FROM payment_transactions WHERE payment_id = $1` + suffix

	p, err := scanPayment(r.q.QueryRow(ctx, query, paymentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query payment %s: %w", paymentID, err)
	}
	return p, nil
}

func (r *paymentRepository) MarkPaid(ctx context.Context, paymentID, receipt string, paidAt time.Time) error {
	_, err := r.q.Exec(ctx, `
		UPDATE payment_transactions
		SET payment_status = $2, receipt_number = $3, paid_at = $4
		WHERE payment_id = $1 AND payment_status <> $2`,
		paymentID, models.PaymentStatusPaid, receipt, paidAt,
	)
	if err != nil {
		return fmt.Errorf("failed to mark payment %s paid: %w", paymentID, err)
	}
	return nil
}

func (r *paymentRepository) SetWebhookResult(ctx context.Context, paymentID, status string, webhookErr *string) error {
	_, err := r.q.Exec(ctx, `
		UPDATE payment_transactions
		SET webhook_status = $2, webhook_error = $3
		WHERE payment_id = $1`,
		paymentID, status, webhookErr,
	)
	if err != nil {
		return fmt.Errorf("failed to record webhook result for payment %s: %w", paymentID, err)
	}
	return nil
}
