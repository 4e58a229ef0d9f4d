package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/revenue/api/internal/billing"
	"github.com/stwalsh4118/revenue/api/internal/logger"
	"github.com/stwalsh4118/revenue/api/internal/models"
)

func newTestBillingService(now time.Time) (*billingService, *mockStore) {
	ms := newMockStore()
	svc := NewBillingService(ms.Store(), manila, logger.New("test")).(*billingService)
	svc.now = fixedClock(now)
	return svc, ms
}

func landOnlyTotal() *models.PropertyTotal {
	return &models.PropertyTotal{
		ID:                 77,
		RegistrationID:     1,
		Year:               2025,
		LandTDN:            "TDN-L-2025-0000AAAA",
		LandAssessedValue:  d("60000"),
		BldgAssessedValue:  d("0"),
		TotalAssessedValue: d("60000"),
		BasicTax:           d("600"),
		SEFTax:             d("600"),
		AnnualTax:          d("1200"),
	}
}

func scheduledBills() []models.QuarterlyBill {
	bills := billing.Schedule(77, d("1200"), 2025, manila, time.Date(2025, 1, 2, 9, 0, 0, 0, manila))
	for i := range bills {
		bills[i].ID = int64(i + 1)
	}
	return bills
}

func expectStatementReads(ms *mockStore, bills []models.QuarterlyBill, rateRows []models.RateConfig) {
	ms.registrations.On("FindByID", context.Background(), int64(1)).Return(registrationIn(models.StatusApproved, false), nil)
	ms.billing.On("LatestPropertyTotal", context.Background(), int64(1)).Return(landOnlyTotal(), nil)
	ms.billing.On("ListBills", context.Background(), int64(77), 2025).Return(bills, nil)
	ms.rates.On("ListActive", context.Background()).Return(rateRows, nil)
}

func TestStatement_OverdueQuarterAccruesPenalty(t *testing.T) {
	svc, ms := newTestBillingService(time.Date(2025, 5, 15, 12, 0, 0, 0, manila))
	expectStatementReads(ms, scheduledBills(), standardRates())

	st, err := svc.Statement(context.Background(), 1, 0)

	require.NoError(t, err)
	require.Len(t, st.Quarters, 4)

	q1 := st.Quarters[0]
	assert.True(t, q1.Overdue)
	assert.Equal(t, models.PaymentStatusOverdue, q1.Status)
	assert.Equal(t, 2, q1.MonthsLate)
	assert.True(t, q1.Penalty.Equal(d("12")), "2%% for two started months of 300, got %s", q1.Penalty)
	assert.False(t, st.Quarters[1].Overdue)

	assert.True(t, st.Totals.Outstanding.Equal(d("1200")))
	assert.True(t, st.Totals.Penalties.Equal(d("12")))
	assert.True(t, st.Totals.AmountDue.Equal(d("1212")))
	assert.False(t, st.Discount.Eligible)
	assert.Equal(t, "2025-05-15", st.AsOf)
	assert.Empty(t, st.Warnings)
	ms.assertExpectations(t)
}

func TestStatement_PaidQuarterIsNotPenalized(t *testing.T) {
	svc, ms := newTestBillingService(time.Date(2025, 5, 15, 12, 0, 0, 0, manila))
	bills := scheduledBills()
	receipt := "OR-20250310-ABCDEF12"
	paidAt := time.Date(2025, 3, 10, 0, 0, 0, 0, manila)
	bills[0].PaymentStatus = models.PaymentStatusPaid
	bills[0].ReceiptNumber = &receipt
	bills[0].PaymentDate = &paidAt
	expectStatementReads(ms, bills, standardRates())

	st, err := svc.Statement(context.Background(), 1, 0)

	require.NoError(t, err)
	assert.False(t, st.Quarters[0].Overdue)
	assert.True(t, st.Totals.Paid.Equal(d("300")))
	assert.True(t, st.Totals.Outstanding.Equal(d("900")))
	assert.True(t, st.Totals.Penalties.IsZero())
	assert.True(t, st.Totals.AmountDue.Equal(d("900")))
}

func TestStatement_MissingPenaltyConfigIsReported(t *testing.T) {
	svc, ms := newTestBillingService(time.Date(2025, 5, 15, 12, 0, 0, 0, manila))
	expectStatementReads(ms, scheduledBills(), withoutKind(standardRates(), models.RateKindPenalty, ""))

	st, err := svc.Statement(context.Background(), 1, 0)

	require.NoError(t, err)
	assert.True(t, st.Quarters[0].Overdue)
	assert.True(t, st.Totals.Penalties.IsZero())
	assert.True(t, st.Totals.AmountDue.Equal(d("1200")))
	require.Len(t, st.Warnings, 1)
	assert.Contains(t, st.Warnings[0], "penalty")
	assert.Contains(t, st.Warnings[0], models.PenaltyNameLate)

	body, err := json.Marshal(st)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"warnings":[`)
}

func TestStatement_JanuaryDiscount(t *testing.T) {
	svc, ms := newTestBillingService(time.Date(2025, 1, 10, 8, 0, 0, 0, manila))
	expectStatementReads(ms, scheduledBills(), standardRates())

	st, err := svc.Statement(context.Background(), 1, 0)

	require.NoError(t, err)
	assert.True(t, st.Discount.Eligible)
	assert.True(t, st.Discount.DiscountAmount.Equal(d("120")))
	assert.True(t, st.Discount.DiscountedTotal.Equal(d("1080")))
	assert.True(t, st.Totals.AmountDue.Equal(d("1200")), "bills are not changed by the discount")
}

func TestStatement_JanuaryWithoutDiscountConfig(t *testing.T) {
	svc, ms := newTestBillingService(time.Date(2025, 1, 10, 8, 0, 0, 0, manila))
	expectStatementReads(ms, scheduledBills(), withoutKind(standardRates(), models.RateKindDiscount, ""))

	st, err := svc.Statement(context.Background(), 1, 0)

	require.NoError(t, err)
	assert.False(t, st.Discount.Eligible)
	assert.NotEmpty(t, st.Discount.Reason)
}

func TestStatement_NoBilling(t *testing.T) {
	svc, ms := newTestBillingService(time.Date(2025, 5, 15, 12, 0, 0, 0, manila))
	ctx := context.Background()

	ms.registrations.On("FindByID", ctx, int64(1)).Return(registrationIn(models.StatusAssessed, false), nil)
	ms.billing.On("FindPropertyTotal", ctx, int64(1), 2024).Return(nil, nil)

	_, err := svc.Statement(ctx, 1, 2024)

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStatement_UnknownRegistration(t *testing.T) {
	svc, ms := newTestBillingService(time.Date(2025, 5, 15, 12, 0, 0, 0, manila))
	ctx := context.Background()

	ms.registrations.On("FindByID", ctx, int64(9)).Return(nil, nil)

	_, err := svc.Statement(ctx, 9, 0)

	assert.ErrorIs(t, err, ErrNotFound)
}
