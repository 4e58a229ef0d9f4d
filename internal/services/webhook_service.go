package services

import (
	"context"
	"fmt"
	"time"

	"github.com/stwalsh4118/revenue/api/internal/billing"
	"github.com/stwalsh4118/revenue/api/internal/logger"
	"github.com/stwalsh4118/revenue/api/internal/models"
	"github.com/stwalsh4118/revenue/api/internal/repository"
)

// WebhookResult is the reply to a payment callback.
type WebhookResult struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	RowsAffected int64  `json:"rows_affected"`
	Duplicate    bool   `json:"duplicate,omitempty"`
}

// WebhookService records payment callbacks against quarterly bills.
type WebhookService interface {
	// Apply marks the paid quarters. A receipt number seen before is a
	// successful no-op so retried callbacks are safe.
	Apply(ctx context.Context, cb models.PaymentCallback) (*WebhookResult, error)
}

type webhookService struct {
	tx  repository.Transactor
	log *logger.Logger
	loc *time.Location
	now clock
}

// NewWebhookService creates a new instance of WebhookService.
func NewWebhookService(tx repository.Transactor, loc *time.Location, log *logger.Logger) WebhookService {
	return &webhookService{tx: tx, log: log, loc: loc, now: time.Now}
}

func (s *webhookService) Apply(ctx context.Context, cb models.PaymentCallback) (*WebhookResult, error) {
	if cb.Status != models.PaymentStatusPaid {
		return nil, fmt.Errorf("%w: status must be %q", ErrValidation, models.PaymentStatusPaid)
	}
	if cb.IsAnnual && (cb.PropertyTotalID == nil || cb.Year == nil) {
		return nil, fmt.Errorf("%w: annual payments need property_total_id and year", ErrValidation)
	}
	if !cb.IsAnnual && cb.TaxID == nil {
		return nil, fmt.Errorf("%w: quarterly payments need tax_id", ErrValidation)
	}

	result := &WebhookResult{Success: true}
	paidAt := s.now().In(s.loc)

	err := s.tx.InTx(ctx, func(ctx context.Context, store *repository.Store) error {
		recorded, err := store.Billing.ReceiptRecorded(ctx, cb.ReceiptNumber)
		if err != nil {
			return err
		}
		if recorded {
			result.Duplicate = true
			result.Message = "Receipt already recorded"
			return nil
		}

		var unpaid []models.QuarterlyBill
		if cb.IsAnnual {
			unpaid, err = s.annualBills(ctx, store, *cb.PropertyTotalID, *cb.Year)
		} else {
			unpaid, err = s.quarterBill(ctx, store, cb)
		}
		if err != nil || len(unpaid) == 0 {
			return err
		}

		rule, err := s.penaltyRule(ctx, store, paidAt)
		if err != nil {
			return err
		}
		for _, bill := range unpaid {
			charged := billing.Evaluate(bill, paidAt, rule).Penalty
			n, err := store.Billing.MarkBillPaid(ctx, bill.ID, cb.ReceiptNumber, paidAt, charged)
			if err != nil {
				return err
			}
			result.RowsAffected += n
		}
		return nil
	})
	if err != nil {
		if isClientError(err) {
			s.log.Warn("Payment callback rejected", map[string]interface{}{
				"payment_id": cb.PaymentID,
				"error":      err.Error(),
			})
		} else {
			s.log.Error("Failed to apply payment callback", err, map[string]interface{}{
				"payment_id": cb.PaymentID,
			})
		}
		return nil, err
	}

	if result.Message == "" {
		if result.RowsAffected > 0 {
			result.Message = "Payment recorded"
		} else {
			result.Message = "Already paid"
		}
	}

	s.log.Info("Payment callback applied", map[string]interface{}{
		"payment_id":     cb.PaymentID,
		"client_system":  cb.ClientSystem,
		"receipt_number": cb.ReceiptNumber,
		"is_annual":      cb.IsAnnual,
		"rows_affected":  result.RowsAffected,
		"duplicate":      result.Duplicate,
	})
	return result, nil
}

// annualBills returns the unpaid bills of a property total for a year.
func (s *webhookService) annualBills(ctx context.Context, store *repository.Store, totalID int64, year int) ([]models.QuarterlyBill, error) {
	total, err := store.Billing.FindPropertyTotalByID(ctx, totalID)
	if err != nil {
		return nil, err
	}
	if total == nil {
		return nil, fmt.Errorf("%w: property total %d", ErrNotFound, totalID)
	}

	bills, err := store.Billing.ListBills(ctx, total.ID, year)
	if err != nil {
		return nil, err
	}
	if len(bills) == 0 {
		return nil, fmt.Errorf("%w: no bills for property total %d in %d", ErrNotFound, total.ID, year)
	}

	unpaid := make([]models.QuarterlyBill, 0, len(bills))
	for _, b := range bills {
		if !b.IsPaid() {
			unpaid = append(unpaid, b)
		}
	}
	return unpaid, nil
}

// quarterBill returns the bill named by tax_id when it is still unpaid. The
// optional property_total_id, year and quarter must agree with that bill.
func (s *webhookService) quarterBill(ctx context.Context, store *repository.Store, cb models.PaymentCallback) ([]models.QuarterlyBill, error) {
	bill, err := store.Billing.FindBill(ctx, *cb.TaxID)
	if err != nil {
		return nil, err
	}
	if bill == nil {
		return nil, fmt.Errorf("%w: quarterly bill %d", ErrNotFound, *cb.TaxID)
	}

	if cb.PropertyTotalID != nil && *cb.PropertyTotalID != bill.PropertyTotalID {
		return nil, fmt.Errorf("%w: bill %d belongs to property total %d, not %d", ErrValidation, bill.ID, bill.PropertyTotalID, *cb.PropertyTotalID)
	}
	if cb.Year != nil && *cb.Year != bill.Year {
		return nil, fmt.Errorf("%w: bill %d is for %d, not %d", ErrValidation, bill.ID, bill.Year, *cb.Year)
	}
	if cb.Quarter != nil && *cb.Quarter != "" && *cb.Quarter != bill.Quarter {
		return nil, fmt.Errorf("%w: bill %d is %s, not %s", ErrValidation, bill.ID, bill.Quarter, *cb.Quarter)
	}

	if bill.IsPaid() {
		return nil, nil
	}
	return []models.QuarterlyBill{*bill}, nil
}

// penaltyRule loads the late payment rule in force on the payment day. Without
// one the bills settle with no surcharge.
func (s *webhookService) penaltyRule(ctx context.Context, store *repository.Store, paidAt time.Time) (billing.PenaltyRule, error) {
	snap, err := loadSnapshot(ctx, store.Rates, paidAt)
	if err != nil {
		return billing.PenaltyRule{}, err
	}
	row, err := snap.Penalty(models.PenaltyNameLate)
	if err != nil {
		s.log.Warn("No active late payment penalty, settling without surcharge", map[string]interface{}{
			"as_of": paidAt.Format(time.DateOnly),
		})
		return billing.PenaltyRule{}, nil
	}
	return billing.PenaltyRuleFrom(row), nil
}
