package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/revenue/api/internal/logger"
	"github.com/stwalsh4118/revenue/api/internal/models"
	"github.com/stwalsh4118/revenue/api/internal/rates"
)

func newTestConfigService(now time.Time) (*configService, *mockStore, *fakeTransactor) {
	ms := newMockStore()
	tx := &fakeTransactor{store: ms.Store()}
	svc := NewConfigService(ms.rates, tx, manila, logger.New("test")).(*configService)
	svc.now = fixedClock(now)
	return svc, ms, tx
}

func landRow(classification, effective string) *models.RateConfig {
	eff, _ := time.ParseInLocation(time.DateOnly, effective, manila)
	return &models.RateConfig{
		Kind:            models.RateKindLand,
		Classification:  classification,
		MarketValue:     nd("1500"),
		AssessmentLevel: nd("20"),
		EffectiveDate:   eff,
	}
}

func TestConfigCreate_Success(t *testing.T) {
	svc, ms, tx := newTestConfigService(time.Date(2025, 2, 1, 9, 0, 0, 0, manila))
	ctx := context.Background()

	ms.rates.On("LockKind", mock.Anything, models.RateKindLand).Return(nil)
	ms.rates.On("ListByKind", mock.Anything, models.RateKindLand).Return([]models.RateConfig{}, nil)
	ms.rates.On("Create", mock.Anything, mock.AnythingOfType("*models.RateConfig")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*models.RateConfig).ID = 42
		}).
		Return(nil)

	created, err := svc.Create(ctx, landRow("residential", "2025-01-01"))

	require.NoError(t, err)
	assert.Equal(t, int64(42), created.ID)
	assert.Equal(t, models.RateStatusActive, created.Status, "status defaults to active")
	assert.Equal(t, 1, tx.calls)
	ms.assertExpectations(t)
}

func TestConfigCreate_RejectsOverlap(t *testing.T) {
	svc, ms, _ := newTestConfigService(time.Date(2025, 2, 1, 9, 0, 0, 0, manila))
	ctx := context.Background()

	existing := *landRow("Residential", "2024-01-01")
	existing.ID = 7
	existing.Status = models.RateStatusActive

	ms.rates.On("LockKind", mock.Anything, models.RateKindLand).Return(nil)
	ms.rates.On("ListByKind", mock.Anything, models.RateKindLand).Return([]models.RateConfig{existing}, nil)

	_, err := svc.Create(ctx, landRow("residential", "2025-01-01"))

	assert.ErrorIs(t, err, rates.ErrConfigConflict)
	ms.rates.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestConfigCreate_RejectsInvalidRow(t *testing.T) {
	svc, ms, tx := newTestConfigService(time.Now())

	row := landRow("", "2025-01-01")
	_, err := svc.Create(context.Background(), row)

	assert.ErrorIs(t, err, rates.ErrInvalidConfig)
	assert.Equal(t, 0, tx.calls, "invalid rows never open a transaction")
	ms.assertExpectations(t)
}

func TestConfigGet_WrongKindIsNotFound(t *testing.T) {
	svc, ms, _ := newTestConfigService(time.Now())
	ctx := context.Background()

	row := landRow("residential", "2025-01-01")
	row.ID = 3
	ms.rates.On("FindByID", ctx, int64(3)).Return(row, nil)

	_, err := svc.Get(ctx, models.RateKindTax, 3)

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConfigList_ActiveOnlyFiltersByDate(t *testing.T) {
	svc, ms, _ := newTestConfigService(time.Date(2025, 6, 15, 12, 0, 0, 0, manila))
	ctx := context.Background()

	current := *landRow("residential", "2025-01-01")
	current.Status = models.RateStatusActive
	future := *landRow("commercial", "2026-01-01")
	future.Status = models.RateStatusActive
	expired := *landRow("agricultural", "2020-01-01")
	expired.Status = models.RateStatusExpired

	ms.rates.On("ListByKind", ctx, models.RateKindLand).Return([]models.RateConfig{current, future, expired}, nil)

	all, err := svc.List(ctx, models.RateKindLand, false)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	active, err := svc.List(ctx, models.RateKindLand, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "residential", active[0].Classification)
}

func TestConfigList_UnknownKind(t *testing.T) {
	svc, _, _ := newTestConfigService(time.Now())

	_, err := svc.List(context.Background(), models.RateKind("bogus"), false)

	assert.ErrorIs(t, err, ErrValidation)
}

func TestConfigExpire_SetsTodayAndStatus(t *testing.T) {
	now := time.Date(2025, 3, 10, 15, 30, 0, 0, manila)
	svc, ms, _ := newTestConfigService(now)
	ctx := context.Background()

	row := landRow("residential", "2024-01-01")
	row.ID = 9
	row.Status = models.RateStatusActive
	ms.rates.On("FindByID", mock.Anything, int64(9)).Return(row, nil)
	ms.rates.On("Update", mock.Anything, row).Return(nil)

	expired, err := svc.Expire(ctx, models.RateKindLand, 9)

	require.NoError(t, err)
	assert.Equal(t, models.RateStatusExpired, expired.Status)
	require.NotNil(t, expired.ExpirationDate)
	assert.Equal(t, "2025-03-10", expired.ExpirationDate.Format(time.DateOnly))
	ms.assertExpectations(t)
}

func TestConfigUpdate_KeepsIdentity(t *testing.T) {
	svc, ms, _ := newTestConfigService(time.Now())
	ctx := context.Background()

	current := landRow("residential", "2024-01-01")
	current.ID = 11
	current.Status = models.RateStatusActive
	ms.rates.On("FindByID", mock.Anything, int64(11)).Return(current, nil)
	ms.rates.On("LockKind", mock.Anything, models.RateKindLand).Return(nil)
	ms.rates.On("ListByKind", mock.Anything, models.RateKindLand).Return([]models.RateConfig{*current}, nil)
	ms.rates.On("Update", mock.Anything, mock.AnythingOfType("*models.RateConfig")).Return(nil)

	change := landRow("residential", "2024-01-01")
	change.MarketValue = nd("1800")
	change.Kind = models.RateKindTax

	updated, err := svc.Update(ctx, models.RateKindLand, 11, change)

	require.NoError(t, err, "a row never conflicts with itself")
	assert.Equal(t, int64(11), updated.ID)
	assert.Equal(t, models.RateKindLand, updated.Kind, "kind cannot be changed by update")
	assert.True(t, updated.MarketValue.Decimal.Equal(d("1800")))
	ms.assertExpectations(t)
}

func TestConfigDelete_NotFound(t *testing.T) {
	svc, ms, _ := newTestConfigService(time.Now())
	ctx := context.Background()

	ms.rates.On("FindByID", ctx, int64(99)).Return(nil, nil)

	err := svc.Delete(ctx, models.RateKindLand, 99)

	assert.ErrorIs(t, err, ErrNotFound)
	ms.rates.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}
