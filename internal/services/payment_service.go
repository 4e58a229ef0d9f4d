package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stwalsh4118/revenue/api/internal/lifecycle"
	"github.com/stwalsh4118/revenue/api/internal/logger"
	"github.com/stwalsh4118/revenue/api/internal/models"
	"github.com/stwalsh4118/revenue/api/internal/notifier"
	"github.com/stwalsh4118/revenue/api/internal/paytoken"
	"github.com/stwalsh4118/revenue/api/internal/repository"
)

// otpDigits is the length of the simulated wallet's one-time password.
const otpDigits = 6

// PaymentMethod is a wallet the simulator accepts.
type PaymentMethod struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// PaymentMethods lists the supported wallets.
var PaymentMethods = []PaymentMethod{
	{Code: models.PaymentMethodGCash, Name: "GCash"},
	{Code: models.PaymentMethodPayMaya, Name: "PayMaya"},
}

// CreatePaymentInput starts a wallet payment for a client system.
type CreatePaymentInput struct {
	PropertyTotalID *int64          `json:"property_total_id"`
	TaxID           *int64          `json:"tax_id"`
	Quarter         *string         `json:"quarter" binding:"omitempty,oneof=Q1 Q2 Q3 Q4"`
	Year            *int            `json:"year" binding:"omitempty,gte=1900"`
	ClientSystem    string          `json:"client_system" binding:"required,max=50"`
	ClientReference string          `json:"client_reference" binding:"required,max=100"`
	Purpose         string          `json:"purpose" binding:"required,max=200"`
	Phone           string          `json:"phone" binding:"required,numeric,min=10,max=13"`
	PaymentMethod   string          `json:"payment_method" binding:"required,oneof=gcash paymaya"`
	WebhookURL      string          `json:"webhook_url" binding:"required,url"`
	Amount          decimal.Decimal `json:"amount"`
	IsAnnual        bool            `json:"is_annual"`
}

// CreatedPayment is a pending payment and the token that authorizes its verification.
type CreatedPayment struct {
	Payment   *models.PaymentTransaction `json:"payment"`
	Token     string                     `json:"token"`
	ExpiresAt time.Time                  `json:"expires_at"`
	// OTP is only populated when the simulator echoes it back.
	OTP string `json:"otp,omitempty"`
}

// VerifyPaymentInput confirms a payment with the OTP sent to the phone.
type VerifyPaymentInput struct {
	Token string `json:"token" binding:"required"`
	OTP   string `json:"otp" binding:"required,len=6,numeric"`
}

// PaymentOutcome is a paid transaction and the delivery state of its callback.
type PaymentOutcome struct {
	Payment      *models.PaymentTransaction `json:"payment"`
	Notified     bool                       `json:"notified"`
	WebhookError string                     `json:"webhook_error,omitempty"`
}

// PaymentService runs the simulated wallet: create, OTP verification and
// callback delivery.
type PaymentService interface {
	Methods() []PaymentMethod
	Create(ctx context.Context, in CreatePaymentInput) (*CreatedPayment, error)

	// Verify settles the payment named by the token. Verifying a paid
	// payment again returns the stored receipt without notifying again.
	// Callback failures are reported in the outcome and never undo the payment.
	Verify(ctx context.Context, in VerifyPaymentInput) (*PaymentOutcome, error)

	// Notify re-sends the callback of a paid payment.
	Notify(ctx context.Context, paymentID string) (*PaymentOutcome, error)

	Get(ctx context.Context, paymentID string) (*models.PaymentTransaction, error)
}

type paymentService struct {
	repo     repository.PaymentRepository
	tx       repository.Transactor
	signer   *paytoken.Signer
	notifier notifier.Notifier
	echoOTP  bool
	log      *logger.Logger
	loc      *time.Location
	now      clock
}

// NewPaymentService creates a new instance of PaymentService.
func NewPaymentService(
	repo repository.PaymentRepository,
	tx repository.Transactor,
	signer *paytoken.Signer,
	n notifier.Notifier,
	echoOTP bool,
	loc *time.Location,
	log *logger.Logger,
) PaymentService {
	return &paymentService{
		repo:     repo,
		tx:       tx,
		signer:   signer,
		notifier: n,
		echoOTP:  echoOTP,
		log:      log,
		loc:      loc,
		now:      time.Now,
	}
}

func (s *paymentService) Methods() []PaymentMethod {
	return PaymentMethods
}

func (s *paymentService) Create(ctx context.Context, in CreatePaymentInput) (*CreatedPayment, error) {
	if !in.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be greater than zero", ErrValidation)
	}
	if !validMethod(in.PaymentMethod) {
		return nil, fmt.Errorf("%w: unsupported payment method %q", ErrValidation, in.PaymentMethod)
	}

	otp, err := newOTP()
	if err != nil {
		return nil, fmt.Errorf("failed to generate OTP: %w", err)
	}

	payment := &models.PaymentTransaction{
		PaymentID:       "PAY-" + uuid.NewString(),
		ClientSystem:    in.ClientSystem,
		ClientReference: in.ClientReference,
		Purpose:         in.Purpose,
		Amount:          in.Amount.Round(2),
		Phone:           in.Phone,
		PaymentMethod:   in.PaymentMethod,
		WebhookURL:      in.WebhookURL,
		OTPCode:         otp,
		IsAnnual:        in.IsAnnual,
		PropertyTotalID: in.PropertyTotalID,
		TaxID:           in.TaxID,
		Quarter:         in.Quarter,
		Year:            in.Year,
		PaymentStatus:   models.PaymentStatusPending,
		WebhookStatus:   models.WebhookStatusPending,
	}

	if err := s.repo.Create(ctx, payment); err != nil {
		s.log.Error("Failed to create payment", err, map[string]interface{}{
			"client_system":    in.ClientSystem,
			"client_reference": in.ClientReference,
		})
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}

	token, expires, err := s.signer.Issue(payment.PaymentID)
	if err != nil {
		return nil, err
	}

	s.log.Info("Payment created", map[string]interface{}{
		"payment_id":       payment.PaymentID,
		"client_system":    payment.ClientSystem,
		"client_reference": payment.ClientReference,
		"amount":           payment.Amount.String(),
		"payment_method":   payment.PaymentMethod,
		"phone":            payment.Phone,
	})
	s.log.Debug("Simulated wallet OTP issued", map[string]interface{}{
		"payment_id": payment.PaymentID,
		"otp":        otp,
	})

	created := &CreatedPayment{Payment: payment, Token: token, ExpiresAt: expires}
	if s.echoOTP {
		created.OTP = otp
	}
	return created, nil
}

func (s *paymentService) Verify(ctx context.Context, in VerifyPaymentInput) (*PaymentOutcome, error) {
	paymentID, err := s.signer.Verify(in.Token)
	if err != nil {
		s.log.Warn("Rejected payment token", map[string]interface{}{"error": err.Error()})
		return nil, err
	}

	var (
		payment     *models.PaymentTransaction
		alreadyPaid bool
	)
	err = s.tx.InTx(ctx, func(ctx context.Context, store *repository.Store) error {
		p, err := store.Payments.FindByIDForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		if p == nil {
			return fmt.Errorf("%w: payment %s", ErrNotFound, paymentID)
		}
		payment = p

		if p.IsPaid() {
			alreadyPaid = true
			return nil
		}
		if subtle.ConstantTimeCompare([]byte(in.OTP), []byte(p.OTPCode)) != 1 {
			return ErrInvalidOTP
		}

		paidAt := s.now()
		receipt := newReceiptNumber(paidAt.In(s.loc))
		if err := store.Payments.MarkPaid(ctx, p.PaymentID, receipt, paidAt); err != nil {
			return err
		}
		p.PaymentStatus = models.PaymentStatusPaid
		p.ReceiptNumber = &receipt
		p.PaidAt = &paidAt
		return nil
	})
	if err != nil {
		s.log.Warn("Payment verification failed", map[string]interface{}{
			"payment_id": paymentID,
			"error":      err.Error(),
		})
		return nil, err
	}

	if alreadyPaid {
		s.log.Info("Payment already verified", map[string]interface{}{"payment_id": paymentID})
		return &PaymentOutcome{
			Payment:  payment,
			Notified: payment.WebhookStatus == models.WebhookStatusDelivered,
		}, nil
	}

	s.log.Info("Payment verified", map[string]interface{}{
		"payment_id":     paymentID,
		"receipt_number": *payment.ReceiptNumber,
	})
	return s.deliver(ctx, payment), nil
}

func (s *paymentService) Notify(ctx context.Context, paymentID string) (*PaymentOutcome, error) {
	payment, err := s.Get(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if !payment.IsPaid() {
		return nil, fmt.Errorf("%w: payment %s has not been paid", lifecycle.ErrPreconditionFailed, paymentID)
	}
	return s.deliver(ctx, payment), nil
}

func (s *paymentService) Get(ctx context.Context, paymentID string) (*models.PaymentTransaction, error) {
	payment, err := s.repo.FindByID(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query payment: %w", err)
	}
	if payment == nil {
		return nil, fmt.Errorf("%w: payment %s", ErrNotFound, paymentID)
	}
	return payment, nil
}

// deliver posts the callback and records the result. A failure is logged and
// stored on the payment for later reconciliation.
func (s *paymentService) deliver(ctx context.Context, payment *models.PaymentTransaction) *PaymentOutcome {
	outcome := &PaymentOutcome{Payment: payment}

	notifyErr := s.notifier.Notify(ctx, payment.WebhookURL, models.CallbackFor(payment))

	status := models.WebhookStatusDelivered
	var webhookErr *string
	if notifyErr != nil {
		status = models.WebhookStatusFailed
		msg := notifyErr.Error()
		webhookErr = &msg
		outcome.WebhookError = msg
		s.log.Error("Payment callback delivery failed", notifyErr, map[string]interface{}{
			"payment_id":  payment.PaymentID,
			"webhook_url": payment.WebhookURL,
		})
	} else {
		outcome.Notified = true
		s.log.Info("Payment callback delivered", map[string]interface{}{
			"payment_id":    payment.PaymentID,
			"client_system": payment.ClientSystem,
		})
	}

	if err := s.repo.SetWebhookResult(ctx, payment.PaymentID, status, webhookErr); err != nil {
		s.log.Error("Failed to record webhook result", err, map[string]interface{}{
			"payment_id": payment.PaymentID,
		})
	}
	payment.WebhookStatus = status
	payment.WebhookError = webhookErr
	return outcome
}

func validMethod(code string) bool {
	for _, m := range PaymentMethods {
		if m.Code == code {
			return true
		}
	}
	return false
}

// newOTP returns a uniformly random numeric code of otpDigits digits.
func newOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", otpDigits, n.Int64()), nil
}

// newReceiptNumber returns OR-<yyyymmdd>-<8 hex chars>.
func newReceiptNumber(paidAt time.Time) string {
	return fmt.Sprintf("OR-%s-%s", paidAt.Format("20060102"), shortID())
}
