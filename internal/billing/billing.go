// Package billing splits an approved annual tax into quarterly bills and
// derives the read-time status of those bills: overdue days, penalties and
// the January whole-year discount.
package billing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stwalsh4118/revenue/api/internal/assessment"
	"github.com/stwalsh4118/revenue/api/internal/models"
)

// Quarters are the bill labels in calendar order.
var Quarters = [4]string{"Q1", "Q2", "Q3", "Q4"}

var (
	four    = decimal.NewFromInt(4)
	hundred = decimal.NewFromInt(100)
)

// DueDate is the last day of the quarter (1..4) in the given year.
func DueDate(year, quarter int, loc *time.Location) time.Time {
	// Day 0 of the month after the quarter is the quarter's last day.
	return time.Date(year, time.Month(quarter*3+1), 0, 0, 0, 0, 0, loc)
}

// Schedule builds the four quarterly bills for an annual tax. Q1–Q3 get the
// rounded quarter share and Q4 absorbs the rounding remainder, so the rows
// always sum to the annual amount exactly.
func Schedule(propertyTotalID int64, annual decimal.Decimal, year int, loc *time.Location, now time.Time) []models.QuarterlyBill {
	share := assessment.Money(annual.Div(four))
	remainder := annual.Sub(share.Mul(decimal.NewFromInt(3)))

	bills := make([]models.QuarterlyBill, 0, len(Quarters))
	for i, q := range Quarters {
		amount := share
		if i == len(Quarters)-1 {
			amount = remainder
		}
		bills = append(bills, models.QuarterlyBill{
			PropertyTotalID: propertyTotalID,
			Quarter:         q,
			Year:            year,
			QuarterlyTax:    amount,
			PenaltyAmount:   decimal.Zero,
			PaymentStatus:   models.PaymentStatusPending,
			DueDate:         DueDate(year, i+1, loc),
			CreatedAt:       now,
		})
	}
	return bills
}

// QuarterIndex parses "Q1".."Q4" into 1..4.
func QuarterIndex(label string) (int, error) {
	for i, q := range Quarters {
		if q == label {
			return i + 1, nil
		}
	}
	return 0, fmt.Errorf("unknown quarter %q", label)
}

// PenaltyRule is the monthly surcharge applied to overdue quarters.
type PenaltyRule struct {
	PercentPerMonth decimal.Decimal
	// MaxPercent caps the accumulated surcharge; zero means uncapped.
	MaxPercent decimal.Decimal
}

// PenaltyRuleFrom converts a penalty rate row. A nil row means no penalty.
func PenaltyRuleFrom(row *models.RateConfig) PenaltyRule {
	if row == nil {
		return PenaltyRule{}
	}
	rule := PenaltyRule{PercentPerMonth: row.Percent.Decimal}
	if row.MaxPercent.Valid {
		rule.MaxPercent = row.MaxPercent.Decimal
	}
	return rule
}

// BillStatus is a quarterly bill with its read-time status.
type BillStatus struct {
	models.QuarterlyBill
	Status     string          `json:"status"`
	Overdue    bool            `json:"overdue"`
	DaysLate   int             `json:"days_late"`
	MonthsLate int             `json:"months_late"`
	Penalty    decimal.Decimal `json:"computed_penalty"`
	AmountDue  decimal.Decimal `json:"amount_due"`
}

// Evaluate derives overdue state and penalty for one bill as of a day.
// Paid bills report their stored penalty and nothing due.
func Evaluate(bill models.QuarterlyBill, asOf time.Time, rule PenaltyRule) BillStatus {
	status := BillStatus{
		QuarterlyBill: bill,
		Status:        bill.PaymentStatus,
		Penalty:       bill.PenaltyAmount,
		AmountDue:     decimal.Zero,
	}
	if bill.IsPaid() {
		return status
	}

	today := models.DateOf(asOf)
	y, m, dd := bill.DueDate.Date()
	due := time.Date(y, m, dd, 0, 0, 0, 0, asOf.Location())
	status.Status = models.PaymentStatusPending
	status.AmountDue = bill.QuarterlyTax

	if !due.Before(today) {
		return status
	}

	status.Overdue = true
	status.Status = models.PaymentStatusOverdue
	status.DaysLate = int(today.Sub(due).Hours() / 24)
	status.MonthsLate = monthsLate(due, today)
	status.Penalty = penalty(bill.QuarterlyTax, status.MonthsLate, rule)
	status.AmountDue = bill.QuarterlyTax.Add(status.Penalty)
	return status
}

// monthsLate counts started months past the due date.
func monthsLate(due, today time.Time) int {
	months := (today.Year()-due.Year())*12 + int(today.Month()-due.Month())
	if today.Day() > due.Day() || months == 0 {
		months++
	}
	return months
}

func penalty(amount decimal.Decimal, months int, rule PenaltyRule) decimal.Decimal {
	if months <= 0 || rule.PercentPerMonth.IsZero() {
		return decimal.Zero
	}
	pct := rule.PercentPerMonth.Mul(decimal.NewFromInt(int64(months)))
	if rule.MaxPercent.IsPositive() && pct.GreaterThan(rule.MaxPercent) {
		pct = rule.MaxPercent
	}
	return assessment.Money(amount.Mul(pct).Div(hundred))
}

// Discount is the advisory whole-year discount offer.
type Discount struct {
	Eligible        bool            `json:"eligible"`
	Reason          string          `json:"reason,omitempty"`
	Percent         decimal.Decimal `json:"percent"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	DiscountedTotal decimal.Decimal `json:"discounted_total"`
}

// DiscountEligible reports whether a year's bills qualify for the whole-year
// discount: the day must fall in January of that year and no quarter may be
// paid yet.
func DiscountEligible(bills []models.QuarterlyBill, year int, asOf time.Time) (bool, string) {
	if asOf.Year() != year || asOf.Month() != time.January {
		return false, "the annual discount is only offered in January of the billing year"
	}
	if len(bills) == 0 {
		return false, "no bills for this year"
	}
	for i := range bills {
		if bills[i].IsPaid() {
			return false, "a quarter has already been paid"
		}
	}
	return true, ""
}

// ComputeDiscount applies an active discount row to the annual tax. The
// quarterly bills are not modified; the result is an alternative total.
func ComputeDiscount(bills []models.QuarterlyBill, annual decimal.Decimal, year int, asOf time.Time, row *models.RateConfig) Discount {
	eligible, reason := DiscountEligible(bills, year, asOf)
	if !eligible {
		return Discount{Reason: reason}
	}
	if row == nil {
		return Discount{Reason: "no active annual discount is configured"}
	}

	amount := assessment.Money(annual.Mul(row.Percent.Decimal).Div(hundred))
	return Discount{
		Eligible:        true,
		Percent:         row.Percent.Decimal,
		DiscountAmount:  amount,
		DiscountedTotal: annual.Sub(amount),
	}
}
