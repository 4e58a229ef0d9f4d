package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stwalsh4118/revenue/api/internal/billing"
	"github.com/stwalsh4118/revenue/api/internal/logger"
	"github.com/stwalsh4118/revenue/api/internal/models"
	"github.com/stwalsh4118/revenue/api/internal/repository"
)

// BillingHeader identifies the property a statement is for.
type BillingHeader struct {
	RegistrationID        int64           `json:"registration_id"`
	ReferenceNumber       string          `json:"reference_number"`
	OwnerName             string          `json:"owner_name"`
	LocationAddress       string          `json:"location_address"`
	PropertyTotalID       int64           `json:"property_total_id"`
	LandTDN               string          `json:"land_tdn"`
	BuildingTDN           *string         `json:"building_tdn,omitempty"`
	LandAssessedValue     decimal.Decimal `json:"land_assessed_value"`
	BuildingAssessedValue decimal.Decimal `json:"building_assessed_value"`
	TotalAssessedValue    decimal.Decimal `json:"total_assessed_value"`
	Year                  int             `json:"year"`
}

// BillingTotals summarizes the quarters of a statement.
type BillingTotals struct {
	AnnualTax   decimal.Decimal `json:"annual_tax"`
	BasicTax    decimal.Decimal `json:"basic_tax"`
	SEFTax      decimal.Decimal `json:"sef_tax"`
	Paid        decimal.Decimal `json:"paid"`
	Outstanding decimal.Decimal `json:"outstanding"`
	Penalties   decimal.Decimal `json:"penalties"`
	AmountDue   decimal.Decimal `json:"amount_due"`
}

// BillingStatement is the citizen-facing view of one year's bills.
type BillingStatement struct {
	Header   BillingHeader        `json:"header"`
	Quarters []billing.BillStatus `json:"quarters"`
	Totals   BillingTotals        `json:"totals"`
	Discount billing.Discount     `json:"discount"`
	AsOf     string               `json:"as_of"`
	// Warnings names rate configuration the statement had to do without.
	Warnings []string `json:"warnings,omitempty"`
}

// BillingService builds billing statements with read-time penalties and discount.
type BillingService interface {
	// Statement returns the statement for a year; year 0 selects the latest
	// approved year. Returns ErrNotFound when the registration has no billing.
	Statement(ctx context.Context, registrationID int64, year int) (*BillingStatement, error)
}

type billingService struct {
	store *repository.Store
	log   *logger.Logger
	loc   *time.Location
	now   clock
}

// NewBillingService creates a new instance of BillingService.
func NewBillingService(store *repository.Store, loc *time.Location, log *logger.Logger) BillingService {
	return &billingService{store: store, log: log, loc: loc, now: time.Now}
}

func (s *billingService) Statement(ctx context.Context, registrationID int64, year int) (*BillingStatement, error) {
	reg, err := s.store.Registrations.FindByID(ctx, registrationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query registration: %w", err)
	}
	if reg == nil {
		return nil, fmt.Errorf("%w: registration %d", ErrNotFound, registrationID)
	}

	var total *models.PropertyTotal
	if year == 0 {
		total, err = s.store.Billing.LatestPropertyTotal(ctx, registrationID)
	} else {
		total, err = s.store.Billing.FindPropertyTotal(ctx, registrationID, year)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query property total: %w", err)
	}
	if total == nil {
		return nil, fmt.Errorf("%w: no billing for registration %d", ErrNotFound, registrationID)
	}

	bills, err := s.store.Billing.ListBills(ctx, total.ID, total.Year)
	if err != nil {
		return nil, fmt.Errorf("failed to list bills: %w", err)
	}

	asOf := s.now().In(s.loc)
	snap, err := loadSnapshot(ctx, s.store.Rates, asOf)
	if err != nil {
		return nil, err
	}

	var warnings []string
	penaltyRow, err := snap.Penalty(models.PenaltyNameLate)
	if err != nil {
		s.log.Warn("No active late payment penalty, overdue quarters carry no surcharge", map[string]interface{}{
			"registration_id": registrationID,
		})
		warnings = append(warnings, fmt.Sprintf("%s; penalties are not computed", err))
		penaltyRow = nil
	}
	rule := billing.PenaltyRuleFrom(penaltyRow)

	statement := &BillingStatement{
		Header: BillingHeader{
			RegistrationID:        reg.ID,
			ReferenceNumber:       reg.ReferenceNumber,
			OwnerName:             reg.OwnerName,
			LocationAddress:       reg.LocationAddress,
			PropertyTotalID:       total.ID,
			LandTDN:               total.LandTDN,
			BuildingTDN:           total.BuildingTDN,
			LandAssessedValue:     total.LandAssessedValue,
			BuildingAssessedValue: total.BldgAssessedValue,
			TotalAssessedValue:    total.TotalAssessedValue,
			Year:                  total.Year,
		},
		Quarters: make([]billing.BillStatus, 0, len(bills)),
		Totals: BillingTotals{
			AnnualTax:   total.AnnualTax,
			BasicTax:    total.BasicTax,
			SEFTax:      total.SEFTax,
			Paid:        decimal.Zero,
			Outstanding: decimal.Zero,
			Penalties:   decimal.Zero,
			AmountDue:   decimal.Zero,
		},
		AsOf:     asOf.Format(time.DateOnly),
		Warnings: warnings,
	}

	for _, bill := range bills {
		status := billing.Evaluate(bill, asOf, rule)
		statement.Quarters = append(statement.Quarters, status)

		if bill.IsPaid() {
			statement.Totals.Paid = statement.Totals.Paid.Add(bill.QuarterlyTax)
			continue
		}
		statement.Totals.Outstanding = statement.Totals.Outstanding.Add(bill.QuarterlyTax)
		statement.Totals.Penalties = statement.Totals.Penalties.Add(status.Penalty)
		statement.Totals.AmountDue = statement.Totals.AmountDue.Add(status.AmountDue)
	}

	discountRow, err := snap.Discount(models.DiscountNameAnnual)
	if err != nil {
		discountRow = nil
	}
	statement.Discount = billing.ComputeDiscount(bills, total.AnnualTax, total.Year, asOf, discountRow)

	return statement, nil
}
