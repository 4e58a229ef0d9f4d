package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stwalsh4118/revenue/api/internal/models"
	"github.com/stwalsh4118/revenue/api/internal/repository"
)

// MockRateConfigRepository is a mock implementation of RateConfigRepository for testing
type MockRateConfigRepository struct {
	mock.Mock
}

func (m *MockRateConfigRepository) ListByKind(ctx context.Context, kind models.RateKind) ([]models.RateConfig, error) {
	args := m.Called(ctx, kind)
	rows, _ := args.Get(0).([]models.RateConfig)
	return rows, args.Error(1)
}

func (m *MockRateConfigRepository) ListActive(ctx context.Context) ([]models.RateConfig, error) {
	args := m.Called(ctx)
	rows, _ := args.Get(0).([]models.RateConfig)
	return rows, args.Error(1)
}

func (m *MockRateConfigRepository) FindByID(ctx context.Context, id int64) (*models.RateConfig, error) {
	args := m.Called(ctx, id)
	cfg, _ := args.Get(0).(*models.RateConfig)
	return cfg, args.Error(1)
}

func (m *MockRateConfigRepository) Create(ctx context.Context, cfg *models.RateConfig) error {
	return m.Called(ctx, cfg).Error(0)
}

func (m *MockRateConfigRepository) Update(ctx context.Context, cfg *models.RateConfig) error {
	return m.Called(ctx, cfg).Error(0)
}

func (m *MockRateConfigRepository) Delete(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockRateConfigRepository) LockKind(ctx context.Context, kind models.RateKind) error {
	return m.Called(ctx, kind).Error(0)
}

// MockRegistrationRepository is a mock implementation of RegistrationRepository for testing
type MockRegistrationRepository struct {
	mock.Mock
}

func (m *MockRegistrationRepository) Create(ctx context.Context, reg *models.Registration) error {
	return m.Called(ctx, reg).Error(0)
}

func (m *MockRegistrationRepository) FindByID(ctx context.Context, id int64) (*models.Registration, error) {
	args := m.Called(ctx, id)
	reg, _ := args.Get(0).(*models.Registration)
	return reg, args.Error(1)
}

func (m *MockRegistrationRepository) FindByIDForUpdate(ctx context.Context, id int64) (*models.Registration, error) {
	args := m.Called(ctx, id)
	reg, _ := args.Get(0).(*models.Registration)
	return reg, args.Error(1)
}

func (m *MockRegistrationRepository) List(ctx context.Context, filter repository.RegistrationFilter) ([]models.Registration, int, error) {
	args := m.Called(ctx, filter)
	regs, _ := args.Get(0).([]models.Registration)
	return regs, args.Int(1), args.Error(2)
}

func (m *MockRegistrationRepository) UpdateWorkflow(ctx context.Context, reg *models.Registration) error {
	return m.Called(ctx, reg).Error(0)
}

// MockAssessmentRepository is a mock implementation of AssessmentRepository for testing
type MockAssessmentRepository struct {
	mock.Mock
}

func (m *MockAssessmentRepository) FindLand(ctx context.Context, registrationID int64) (*models.LandAssessment, error) {
	args := m.Called(ctx, registrationID)
	land, _ := args.Get(0).(*models.LandAssessment)
	return land, args.Error(1)
}

func (m *MockAssessmentRepository) UpsertLand(ctx context.Context, land *models.LandAssessment) error {
	return m.Called(ctx, land).Error(0)
}

func (m *MockAssessmentRepository) FindBuilding(ctx context.Context, registrationID int64) (*models.BuildingAssessment, error) {
	args := m.Called(ctx, registrationID)
	b, _ := args.Get(0).(*models.BuildingAssessment)
	return b, args.Error(1)
}

func (m *MockAssessmentRepository) UpsertBuilding(ctx context.Context, b *models.BuildingAssessment) error {
	return m.Called(ctx, b).Error(0)
}

func (m *MockAssessmentRepository) AssignTDNs(ctx context.Context, registrationID int64, landTDN string, buildingTDN *string) error {
	return m.Called(ctx, registrationID, landTDN, buildingTDN).Error(0)
}

// MockBillingRepository is a mock implementation of BillingRepository for testing
type MockBillingRepository struct {
	mock.Mock
}

func (m *MockBillingRepository) CreatePropertyTotal(ctx context.Context, total *models.PropertyTotal) error {
	return m.Called(ctx, total).Error(0)
}

func (m *MockBillingRepository) CreateBills(ctx context.Context, bills []models.QuarterlyBill) error {
	return m.Called(ctx, bills).Error(0)
}

func (m *MockBillingRepository) FindPropertyTotal(ctx context.Context, registrationID int64, year int) (*models.PropertyTotal, error) {
	args := m.Called(ctx, registrationID, year)
	t, _ := args.Get(0).(*models.PropertyTotal)
	return t, args.Error(1)
}

func (m *MockBillingRepository) LatestPropertyTotal(ctx context.Context, registrationID int64) (*models.PropertyTotal, error) {
	args := m.Called(ctx, registrationID)
	t, _ := args.Get(0).(*models.PropertyTotal)
	return t, args.Error(1)
}

func (m *MockBillingRepository) FindPropertyTotalByID(ctx context.Context, id int64) (*models.PropertyTotal, error) {
	args := m.Called(ctx, id)
	t, _ := args.Get(0).(*models.PropertyTotal)
	return t, args.Error(1)
}

func (m *MockBillingRepository) ListBills(ctx context.Context, propertyTotalID int64, year int) ([]models.QuarterlyBill, error) {
	args := m.Called(ctx, propertyTotalID, year)
	bills, _ := args.Get(0).([]models.QuarterlyBill)
	return bills, args.Error(1)
}

func (m *MockBillingRepository) FindBill(ctx context.Context, id int64) (*models.QuarterlyBill, error) {
	args := m.Called(ctx, id)
	b, _ := args.Get(0).(*models.QuarterlyBill)
	return b, args.Error(1)
}

func (m *MockBillingRepository) ReceiptRecorded(ctx context.Context, receipt string) (bool, error) {
	args := m.Called(ctx, receipt)
	return args.Bool(0), args.Error(1)
}

func (m *MockBillingRepository) MarkBillPaid(ctx context.Context, billID int64, receipt string, paidAt time.Time, penalty decimal.Decimal) (int64, error) {
	args := m.Called(ctx, billID, receipt, paidAt, penalty)
	return args.Get(0).(int64), args.Error(1)
}

// MockPaymentRepository is a mock implementation of PaymentRepository for testing
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, p *models.PaymentTransaction) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockPaymentRepository) FindByID(ctx context.Context, paymentID string) (*models.PaymentTransaction, error) {
	args := m.Called(ctx, paymentID)
	p, _ := args.Get(0).(*models.PaymentTransaction)
	return p, args.Error(1)
}

func (m *MockPaymentRepository) FindByIDForUpdate(ctx context.Context, paymentID string) (*models.PaymentTransaction, error) {
	args := m.Called(ctx, paymentID)
	p, _ := args.Get(0).(*models.PaymentTransaction)
	return p, args.Error(1)
}

func (m *MockPaymentRepository) MarkPaid(ctx context.Context, paymentID, receipt string, paidAt time.Time) error {
	return m.Called(ctx, paymentID, receipt, paidAt).Error(0)
}

func (m *MockPaymentRepository) SetWebhookResult(ctx context.Context, paymentID, status string, webhookErr *string) error {
	return m.Called(ctx, paymentID, status, webhookErr).Error(0)
}

// MockNotifier is a mock implementation of notifier.Notifier for testing
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, url string, callback models.PaymentCallback) error {
	return m.Called(ctx, url, callback).Error(0)
}

// mockStore bundles one mock per repository.
type mockStore struct {
	rates         *MockRateConfigRepository
	registrations *MockRegistrationRepository
	assessments   *MockAssessmentRepository
	billing       *MockBillingRepository
	payments      *MockPaymentRepository
}

func newMockStore() *mockStore {
	return &mockStore{
		rates:         new(MockRateConfigRepository),
		registrations: new(MockRegistrationRepository),
		assessments:   new(MockAssessmentRepository),
		billing:       new(MockBillingRepository),
		payments:      new(MockPaymentRepository),
	}
}

func (m *mockStore) Store() *repository.Store {
	return &repository.Store{
		Rates:         m.rates,
		Registrations: m.registrations,
		Assessments:   m.assessments,
		Billing:       m.billing,
		Payments:      m.payments,
	}
}

func (m *mockStore) assertExpectations(t mock.TestingT) {
	m.rates.AssertExpectations(t)
	m.registrations.AssertExpectations(t)
	m.assessments.AssertExpectations(t)
	m.billing.AssertExpectations(t)
	m.payments.AssertExpectations(t)
}

// fakeTransactor runs the unit of work against the mock store without a database.
type fakeTransactor struct {
	store *repository.Store
	calls int
}

func (f *fakeTransactor) InTx(ctx context.Context, fn func(ctx context.Context, store *repository.Store) error) error {
	f.calls++
	return fn(ctx, f.store)
}

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func nd(v string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(v))
}

var manila = time.FixedZone("PST", 8*60*60)

// fixedClock pins a service's notion of now.
func fixedClock(t time.Time) clock {
	return func() time.Time { return t }
}

// standardRates is an active rate table effective since 2020.
func standardRates() []models.RateConfig {
	effective := time.Date(2020, 1, 1, 0, 0, 0, 0, manila)
	active := func(r models.RateConfig) models.RateConfig {
		r.EffectiveDate = effective
		r.Status = models.RateStatusActive
		return r
	}
	return []models.RateConfig{
		active(models.RateConfig{ID: 1, Kind: models.RateKindLand, Classification: "residential", MarketValue: nd("1500"), AssessmentLevel: nd("20")}),
		active(models.RateConfig{ID: 2, Kind: models.RateKindProperty, Material: "concrete", Classification: "residential", UnitCost: nd("8000"), DepreciationRate: nd("2")}),
		active(models.RateConfig{ID: 3, Kind: models.RateKindBuildingBracket, Classification: "residential", MinValue: nd("0"), MaxValue: nd("1000000"), AssessmentLevel: nd("35")}),
		active(models.RateConfig{ID: 4, Kind: models.RateKindTax, Name: models.TaxNameBasic, Percent: nd("1")}),
		active(models.RateConfig{ID: 5, Kind: models.RateKindTax, Name: models.TaxNameSEF, Percent: nd("1")}),
		active(models.RateConfig{ID: 6, Kind: models.RateKindPenalty, Name: models.PenaltyNameLate, Percent: nd("2"), MaxPercent: nd("36")}),
		active(models.RateConfig{ID: 7, Kind: models.RateKindDiscount, Name: models.DiscountNameAnnual, Percent: nd("10")}),
	}
}

// withoutKind drops every row of a kind from a rate table.
func withoutKind(rows []models.RateConfig, kind models.RateKind, name string) []models.RateConfig {
	out := make([]models.RateConfig, 0, len(rows))
	for _, r := range rows {
		if r.Kind == kind && (name == "" || r.Name == name) {
			continue
		}
		out = append(out, r)
	}
	return out
}
