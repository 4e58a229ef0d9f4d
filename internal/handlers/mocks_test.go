package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stwalsh4118/revenue/api/internal/logger"
	"github.com/stwalsh4118/revenue/api/internal/middleware"
	"github.com/stwalsh4118/revenue/api/internal/models"
	"github.com/stwalsh4118/revenue/api/internal/rates"
	"github.com/stwalsh4118/revenue/api/internal/services"
)

// MockConfigService is a mock implementation of services.ConfigService for testing
type MockConfigService struct {
	mock.Mock
}

func (m *MockConfigService) List(ctx context.Context, kind models.RateKind, activeOnly bool) ([]models.RateConfig, error) {
	args := m.Called(ctx, kind, activeOnly)
	rows, _ := args.Get(0).([]models.RateConfig)
	return rows, args.Error(1)
}

func (m *MockConfigService) Get(ctx context.Context, kind models.RateKind, id int64) (*models.RateConfig, error) {
	args := m.Called(ctx, kind, id)
	cfg, _ := args.Get(0).(*models.RateConfig)
	return cfg, args.Error(1)
}

func (m *MockConfigService) Create(ctx context.Context, cfg *models.RateConfig) (*models.RateConfig, error) {
	args := m.Called(ctx, cfg)
	out, _ := args.Get(0).(*models.RateConfig)
	return out, args.Error(1)
}

func (m *MockConfigService) Update(ctx context.Context, kind models.RateKind, id int64, cfg *models.RateConfig) (*models.RateConfig, error) {
	args := m.Called(ctx, kind, id, cfg)
	out, _ := args.Get(0).(*models.RateConfig)
	return out, args.Error(1)
}

func (m *MockConfigService) Expire(ctx context.Context, kind models.RateKind, id int64) (*models.RateConfig, error) {
	args := m.Called(ctx, kind, id)
	out, _ := args.Get(0).(*models.RateConfig)
	return out, args.Error(1)
}

func (m *MockConfigService) Delete(ctx context.Context, kind models.RateKind, id int64) error {
	return m.Called(ctx, kind, id).Error(0)
}

func (m *MockConfigService) Snapshot(ctx context.Context, asOf time.Time) (*rates.Snapshot, error) {
	args := m.Called(ctx, asOf)
	snap, _ := args.Get(0).(*rates.Snapshot)
	return snap, args.Error(1)
}

// MockRegistrationService is a mock implementation of services.RegistrationService for testing
type MockRegistrationService struct {
	mock.Mock
}

func (m *MockRegistrationService) Submit(ctx context.Context, in services.SubmitRegistrationInput) (*models.Registration, error) {
	args := m.Called(ctx, in)
	reg, _ := args.Get(0).(*models.Registration)
	return reg, args.Error(1)
}

func (m *MockRegistrationService) List(ctx context.Context, in services.ListRegistrationsInput) (*services.RegistrationPage, error) {
	args := m.Called(ctx, in)
	page, _ := args.Get(0).(*services.RegistrationPage)
	return page, args.Error(1)
}

func (m *MockRegistrationService) Get(ctx context.Context, id int64) (*services.RegistrationDetail, error) {
	args := m.Called(ctx, id)
	detail, _ := args.Get(0).(*services.RegistrationDetail)
	return detail, args.Error(1)
}

func (m *MockRegistrationService) ScheduleInspection(ctx context.Context, id int64, in services.ScheduleInspectionInput) (*services.TransitionResult, error) {
	args := m.Called(ctx, id, in)
	result, _ := args.Get(0).(*services.TransitionResult)
	return result, args.Error(1)
}

func (m *MockRegistrationService) MarkAssessed(ctx context.Context, id int64) (*services.TransitionResult, error) {
	args := m.Called(ctx, id)
	result, _ := args.Get(0).(*services.TransitionResult)
	return result, args.Error(1)
}

func (m *MockRegistrationService) RequestCorrection(ctx context.Context, id int64, notes string) (*services.TransitionResult, error) {
	args := m.Called(ctx, id, notes)
	result, _ := args.Get(0).(*services.TransitionResult)
	return result, args.Error(1)
}

func (m *MockRegistrationService) Resubmit(ctx context.Context, id int64) (*services.TransitionResult, error) {
	args := m.Called(ctx, id)
	result, _ := args.Get(0).(*services.TransitionResult)
	return result, args.Error(1)
}

func (m *MockRegistrationService) SaveLandAssessment(ctx context.Context, id int64, in services.LandAssessmentInput) (*models.LandAssessment, error) {
	args := m.Called(ctx, id, in)
	land, _ := args.Get(0).(*models.LandAssessment)
	return land, args.Error(1)
}

func (m *MockRegistrationService) SaveBuildingAssessment(ctx context.Context, id int64, in services.BuildingAssessmentInput) (*services.BuildingAssessmentResult, error) {
	args := m.Called(ctx, id, in)
	result, _ := args.Get(0).(*services.BuildingAssessmentResult)
	return result, args.Error(1)
}

func (m *MockRegistrationService) Approve(ctx context.Context, id int64) (*services.ApprovalResult, error) {
	args := m.Called(ctx, id)
	result, _ := args.Get(0).(*services.ApprovalResult)
	return result, args.Error(1)
}

// MockBillingService is a mock implementation of services.BillingService for testing
type MockBillingService struct {
	mock.Mock
}

func (m *MockBillingService) Statement(ctx context.Context, registrationID int64, year int) (*services.BillingStatement, error) {
	args := m.Called(ctx, registrationID, year)
	st, _ := args.Get(0).(*services.BillingStatement)
	return st, args.Error(1)
}

// MockAssessmentService is a mock implementation of services.AssessmentService for testing
type MockAssessmentService struct {
	mock.Mock
}

func (m *MockAssessmentService) Preview(ctx context.Context, in services.PreviewInput) (*services.PreviewResult, error) {
	args := m.Called(ctx, in)
	result, _ := args.Get(0).(*services.PreviewResult)
	return result, args.Error(1)
}

// MockWebhookService is a mock implementation of services.WebhookService for testing
type MockWebhookService struct {
	mock.Mock
}

func (m *MockWebhookService) Apply(ctx context.Context, cb models.PaymentCallback) (*services.WebhookResult, error) {
	args := m.Called(ctx, cb)
	result, _ := args.Get(0).(*services.WebhookResult)
	return result, args.Error(1)
}

// MockPaymentService is a mock implementation of services.PaymentService for testing
type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) Methods() []services.PaymentMethod {
	return m.Called().Get(0).([]services.PaymentMethod)
}

func (m *MockPaymentService) Create(ctx context.Context, in services.CreatePaymentInput) (*services.CreatedPayment, error) {
	args := m.Called(ctx, in)
	created, _ := args.Get(0).(*services.CreatedPayment)
	return created, args.Error(1)
}

func (m *MockPaymentService) Verify(ctx context.Context, in services.VerifyPaymentInput) (*services.PaymentOutcome, error) {
	args := m.Called(ctx, in)
	outcome, _ := args.Get(0).(*services.PaymentOutcome)
	return outcome, args.Error(1)
}

func (m *MockPaymentService) Notify(ctx context.Context, paymentID string) (*services.PaymentOutcome, error) {
	args := m.Called(ctx, paymentID)
	outcome, _ := args.Get(0).(*services.PaymentOutcome)
	return outcome, args.Error(1)
}

func (m *MockPaymentService) Get(ctx context.Context, paymentID string) (*models.PaymentTransaction, error) {
	args := m.Called(ctx, paymentID)
	p, _ := args.Get(0).(*models.PaymentTransaction)
	return p, args.Error(1)
}

// newTestRouter creates a router with the request ID and logger middleware
// that the error envelope relies on.
func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger.New("test")))
	return router
}
