package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/revenue/api/internal/config"
	"github.com/stwalsh4118/revenue/api/internal/database"
	"github.com/stwalsh4118/revenue/api/internal/logger"
	"github.com/stwalsh4118/revenue/api/internal/models"
)

// errRollback aborts the test transaction so no rows outlive a test.
var errRollback = errors.New("rollback")

// getTestConfig returns database configuration for integration tests.
func getTestConfig() config.DatabaseConfig {
	return config.DatabaseConfig{
		Host:     getEnvOrDefault("DB_HOST", "host.docker.internal"),
		Port:     getEnvOrDefault("DB_PORT", "5432"),
		Name:     getEnvOrDefault("DB_NAME", "revenue"),
		User:     getEnvOrDefault("DB_USER", "postgres"),
		Password: getEnvOrDefault("DB_PASSWORD", "postgres"),
		PoolMin:  2,
		PoolMax:  5,
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// inRolledBackTx runs fn against a Store inside a transaction that is always rolled back.
func inRolledBackTx(t *testing.T, fn func(ctx context.Context, store *Store)) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	db, err := database.NewPostgresPool(ctx, getTestConfig(), logger.New("test"))
	require.NoError(t, err, "Failed to create database connection")
	defer db.Close()
	require.NoError(t, db.Migrate(ctx))

	err = NewTransactor(db).InTx(ctx, func(ctx context.Context, store *Store) error {
		fn(ctx, store)
		return errRollback
	})
	require.ErrorIs(t, err, errRollback)
}

func newTestRegistration(hasBuilding bool) *models.Registration {
	return &models.Registration{
		ReferenceNumber: "RPT-TEST-" + uuid.NewString()[:8],
		OwnerName:       "Juan Dela Cruz",
		OwnerAddress:    "12 Rizal St",
		PropertyType:    "residential",
		LocationAddress: "Lot 4 Mabini Ave",
		Barangay:        "Poblacion",
		Status:          models.StatusPending,
		HasBuilding:     hasBuilding,
	}
}

func TestRateConfigRepository_CRUD(t *testing.T) {
	inRolledBackTx(t, func(ctx context.Context, store *Store) {
		cfg := &models.RateConfig{
			Kind:            models.RateKindLand,
			Classification:  "repo-test-residential",
			MarketValue:     decimal.NewNullDecimal(decimal.NewFromInt(1500)),
			AssessmentLevel: decimal.NewNullDecimal(decimal.NewFromInt(20)),
			EffectiveDate:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			Status:          models.RateStatusActive,
		}
		require.NoError(t, store.Rates.LockKind(ctx, cfg.Kind))
		require.NoError(t, store.Rates.Create(ctx, cfg))
		assert.NotZero(t, cfg.ID)

		found, err := store.Rates.FindByID(ctx, cfg.ID)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "repo-test-residential", found.Classification)
		assert.True(t, found.MarketValue.Decimal.Equal(decimal.NewFromInt(1500)))
		assert.False(t, found.UnitCost.Valid)

		found.Status = models.RateStatusExpired
		require.NoError(t, store.Rates.Update(ctx, found))

		active, err := store.Rates.ListActive(ctx)
		require.NoError(t, err)
		for _, row := range active {
			assert.NotEqual(t, cfg.ID, row.ID, "expired row must not be listed as active")
		}

		deleted, err := store.Rates.Delete(ctx, cfg.ID)
		require.NoError(t, err)
		assert.True(t, deleted)

		missing, err := store.Rates.FindByID(ctx, cfg.ID)
		require.NoError(t, err)
		assert.Nil(t, missing)
	})
}

func TestRegistrationRepository_Workflow(t *testing.T) {
	inRolledBackTx(t, func(ctx context.Context, store *Store) {
		reg := newTestRegistration(false)
		require.NoError(t, store.Registrations.Create(ctx, reg))
		assert.NotZero(t, reg.ID)

		assessor := "Inspector Santos"
		inspection := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
		reg.Status = models.StatusForInspection
		reg.AssessorName = &assessor
		reg.InspectionDate = &inspection
		require.NoError(t, store.Registrations.UpdateWorkflow(ctx, reg))

		locked, err := store.Registrations.FindByIDForUpdate(ctx, reg.ID)
		require.NoError(t, err)
		require.NotNil(t, locked)
		assert.Equal(t, models.StatusForInspection, locked.Status)
		require.NotNil(t, locked.AssessorName)
		assert.Equal(t, assessor, *locked.AssessorName)

		list, total, err := store.Registrations.List(ctx, RegistrationFilter{
			Status: models.StatusForInspection,
			Limit:  50,
		})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, total, 1)
		for _, r := range list {
			assert.Equal(t, models.StatusForInspection, r.Status)
		}

		missing, err := store.Registrations.FindByID(ctx, -1)
		require.NoError(t, err)
		assert.Nil(t, missing)
	})
}

func TestAssessmentRepository_UpsertKeepsTDN(t *testing.T) {
	inRolledBackTx(t, func(ctx context.Context, store *Store) {
		reg := newTestRegistration(true)
		require.NoError(t, store.Registrations.Create(ctx, reg))

		land := &models.LandAssessment{
			RegistrationID:  reg.ID,
			Classification:  "residential",
			LandAreaSqm:     decimal.NewFromInt(200),
			MarketValue:     decimal.NewFromInt(300000),
			AssessedValue:   decimal.NewFromInt(60000),
			AssessmentLevel: decimal.NewFromInt(20),
		}
		require.NoError(t, store.Assessments.UpsertLand(ctx, land))
		assert.Nil(t, land.TDN)

		building := &models.BuildingAssessment{
			RegistrationID:      reg.ID,
			ConstructionType:    "concrete",
			Classification:      "residential",
			FloorAreaSqm:        decimal.NewFromInt(100),
			YearBuilt:           2015,
			MarketValue:         decimal.NewFromInt(800000),
			DepreciationPercent: decimal.NewFromInt(20),
			DepreciatedValue:    decimal.NewFromInt(640000),
		}
		require.NoError(t, store.Assessments.UpsertBuilding(ctx, building))

		buildingTDN := "TDN-B-TEST-" + uuid.NewString()[:8]
		require.NoError(t, store.Assessments.AssignTDNs(ctx, reg.ID, "TDN-L-TEST-"+uuid.NewString()[:8], &buildingTDN))

		land.AssessedValue = decimal.NewFromInt(61000)
		require.NoError(t, store.Assessments.UpsertLand(ctx, land))
		require.NotNil(t, land.TDN, "re-assessment must keep the assigned TDN")

		storedBuilding, err := store.Assessments.FindBuilding(ctx, reg.ID)
		require.NoError(t, err)
		require.NotNil(t, storedBuilding)
		assert.Equal(t, buildingTDN, *storedBuilding.TDN)
		assert.False(t, storedBuilding.AssessedValue.Valid)
	})
}

func TestBillingRepository_PaymentIdempotency(t *testing.T) {
	inRolledBackTx(t, func(ctx context.Context, store *Store) {
		reg := newTestRegistration(false)
		require.NoError(t, store.Registrations.Create(ctx, reg))

		total := &models.PropertyTotal{
			RegistrationID:     reg.ID,
			Year:               2025,
			LandTDN:            "TDN-L-TEST-" + uuid.NewString()[:8],
			LandAssessedValue:  decimal.NewFromInt(60000),
			TotalAssessedValue: decimal.NewFromInt(60000),
			BasicTax:           decimal.NewFromInt(600),
			SEFTax:             decimal.NewFromInt(600),
			AnnualTax:          decimal.NewFromInt(1200),
		}
		require.NoError(t, store.Billing.CreatePropertyTotal(ctx, total))

		bills := make([]models.QuarterlyBill, 0, 4)
		for i, q := range []string{"Q1", "Q2", "Q3", "Q4"} {
			bills = append(bills, models.QuarterlyBill{
				PropertyTotalID: total.ID,
				Quarter:         q,
				Year:            2025,
				QuarterlyTax:    decimal.NewFromInt(300),
				PenaltyAmount:   decimal.Zero,
				PaymentStatus:   models.PaymentStatusPending,
				DueDate:         time.Date(2025, time.Month(3*(i+1)), 28, 0, 0, 0, 0, time.UTC),
			})
		}
		require.NoError(t, store.Billing.CreateBills(ctx, bills))

		listed, err := store.Billing.ListBills(ctx, total.ID, 2025)
		require.NoError(t, err)
		require.Len(t, listed, 4)
		assert.Equal(t, "Q1", listed[0].Quarter)

		receipt := "OR-TEST-" + uuid.NewString()[:8]
		paidAt := time.Now()

		n, err := store.Billing.MarkBillPaid(ctx, bills[0].ID, receipt, paidAt, decimal.NewFromInt(6))
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		n, err = store.Billing.MarkBillPaid(ctx, bills[0].ID, receipt, paidAt, decimal.NewFromInt(12))
		require.NoError(t, err)
		assert.Equal(t, int64(0), n, "already paid bill must not change")

		settled, err := store.Billing.FindBill(ctx, bills[0].ID)
		require.NoError(t, err)
		require.NotNil(t, settled)
		assert.True(t, settled.PenaltyAmount.Equal(decimal.NewFromInt(6)), "penalty charged at payment is kept, got %s", settled.PenaltyAmount)

		recorded, err := store.Billing.ReceiptRecorded(ctx, receipt)
		require.NoError(t, err)
		assert.True(t, recorded)

		annualReceipt := "OR-TEST-" + uuid.NewString()[:8]
		for _, b := range bills[1:] {
			n, err = store.Billing.MarkBillPaid(ctx, b.ID, annualReceipt, paidAt, decimal.Zero)
			require.NoError(t, err)
			assert.Equal(t, int64(1), n)
		}

		latest, err := store.Billing.LatestPropertyTotal(ctx, reg.ID)
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, total.ID, latest.ID)
	})
}

func TestPaymentRepository_Lifecycle(t *testing.T) {
	inRolledBackTx(t, func(ctx context.Context, store *Store) {
		p := &models.PaymentTransaction{
			PaymentID:       "PAY-" + uuid.NewString(),
			ClientSystem:    "rpt",
			ClientReference: "RPT-2025-TEST",
			Purpose:         "Real property tax Q1 2025",
			Amount:          decimal.NewFromInt(300),
			Phone:           "09171234567",
			PaymentMethod:   models.PaymentMethodGCash,
			WebhookURL:      "http://localhost/webhook",
			OTPCode:         "123456",
			PaymentStatus:   models.PaymentStatusPending,
			WebhookStatus:   models.WebhookStatusPending,
		}
		require.NoError(t, store.Payments.Create(ctx, p))

		receipt := "OR-TEST-" + uuid.NewString()[:8]
		require.NoError(t, store.Payments.MarkPaid(ctx, p.PaymentID, receipt, time.Now()))

		failure := "connection refused"
		require.NoError(t, store.Payments.SetWebhookResult(ctx, p.PaymentID, models.WebhookStatusFailed, &failure))

		stored, err := store.Payments.FindByIDForUpdate(ctx, p.PaymentID)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.True(t, stored.IsPaid())
		assert.Equal(t, receipt, *stored.ReceiptNumber)
		assert.Equal(t, models.WebhookStatusFailed, stored.WebhookStatus)
		assert.Equal(t, "123456", stored.OTPCode)

		missing, err := store.Payments.FindByID(ctx, "PAY-missing")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})
}
