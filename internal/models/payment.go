package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Supported wallet methods for the simulated payment gateway.
const (
	PaymentMethodGCash   = "gcash"
	PaymentMethodPayMaya = "paymaya"
)

// Webhook delivery states recorded on a paid transaction.
const (
	WebhookStatusPending   = "pending"
	WebhookStatusDelivered = "delivered"
	WebhookStatusFailed    = "failed"
)

// PaymentTransaction is a wallet payment held by the simulated gateway.
type PaymentTransaction struct {
	CreatedAt       time.Time       `gorm:"column:created_at" json:"created_at"`
	PaidAt          *time.Time      `gorm:"column:paid_at" json:"paid_at,omitempty"`
	ReceiptNumber   *string         `gorm:"size:60;uniqueIndex;column:receipt_number" json:"receipt_number,omitempty"`
	WebhookError    *string         `gorm:"type:text;column:webhook_error" json:"webhook_error,omitempty"`
	PropertyTotalID *int64          `gorm:"column:property_total_id" json:"property_total_id,omitempty"`
	TaxID           *int64          `gorm:"column:tax_id" json:"tax_id,omitempty"`
	Quarter         *string         `gorm:"size:2;column:quarter" json:"quarter,omitempty"`
	Year            *int            `gorm:"column:year" json:"year,omitempty"`
	PaymentID       string          `gorm:"primaryKey;size:40;column:payment_id" json:"payment_id"`
	ClientSystem    string          `gorm:"size:50;column:client_system" json:"client_system"`
	ClientReference string          `gorm:"size:100;column:client_reference" json:"client_reference"`
	Purpose         string          `gorm:"size:200;column:purpose" json:"purpose"`
	Phone           string          `gorm:"size:20;column:phone" json:"phone"`
	PaymentMethod   string          `gorm:"size:20;column:payment_method" json:"payment_method"`
	WebhookURL      string          `gorm:"type:text;column:webhook_url" json:"webhook_url"`
	OTPCode         string          `gorm:"size:6;column:otp_code" json:"-"`
	PaymentStatus   string          `gorm:"size:20;column:payment_status" json:"payment_status"`
	WebhookStatus   string          `gorm:"size:20;column:webhook_status" json:"webhook_status"`
	Amount          decimal.Decimal `gorm:"type:numeric(14,2);column:amount" json:"amount"`
	IsAnnual        bool            `gorm:"column:is_annual" json:"is_annual"`
}

// TableName specifies the table name for GORM.
func (PaymentTransaction) TableName() string {
	return "payment_transactions"
}

// IsPaid reports whether the OTP has been verified.
func (p *PaymentTransaction) IsPaid() bool {
	return p.PaymentStatus == PaymentStatusPaid
}

// PaymentCallback is the webhook body the payment gateway posts to the
// owning system once a payment is verified.
type PaymentCallback struct {
	PropertyTotalID *int64          `json:"property_total_id,omitempty"`
	TaxID           *int64          `json:"tax_id,omitempty"`
	Quarter         *string         `json:"quarter,omitempty"`
	Year            *int            `json:"year,omitempty"`
	PaymentID       string          `json:"payment_id" binding:"required"`
	ClientSystem    string          `json:"client_system" binding:"required"`
	ClientReference string          `json:"client_reference"`
	ReceiptNumber   string          `json:"receipt_number" binding:"required"`
	Status          string          `json:"status" binding:"required,eq=paid"`
	Amount          decimal.Decimal `json:"amount"`
	IsAnnual        bool            `json:"is_annual"`
}

// CallbackFor builds the webhook body for a paid transaction.
func CallbackFor(p *PaymentTransaction) PaymentCallback {
	cb := PaymentCallback{
		PaymentID:       p.PaymentID,
		ClientSystem:    p.ClientSystem,
		ClientReference: p.ClientReference,
		Amount:          p.Amount,
		Status:          p.PaymentStatus,
		IsAnnual:        p.IsAnnual,
		PropertyTotalID: p.PropertyTotalID,
		TaxID:           p.TaxID,
		Quarter:         p.Quarter,
		Year:            p.Year,
	}
	if p.ReceiptNumber != nil {
		cb.ReceiptNumber = *p.ReceiptNumber
	}
	return cb
}
