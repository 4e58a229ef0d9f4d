package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment status values for quarterly bills.
const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusOverdue = "overdue"
)

// PropertyTotal is the approved annual tax for one registration and year.
type PropertyTotal struct {
	ApprovedAt         time.Time       `gorm:"column:approved_at" json:"approved_at"`
	BuildingTDN        *string         `gorm:"size:40;column:building_tdn" json:"building_tdn,omitempty"`
	LandTDN            string          `gorm:"size:40;column:land_tdn" json:"land_tdn"`
	LandAssessedValue  decimal.Decimal `gorm:"type:numeric(16,2);column:land_assessed_value" json:"land_assessed_value"`
	BldgAssessedValue  decimal.Decimal `gorm:"type:numeric(16,2);column:building_assessed_value" json:"building_assessed_value"`
	TotalAssessedValue decimal.Decimal `gorm:"type:numeric(16,2);column:total_assessed_value" json:"total_assessed_value"`
	BasicTax           decimal.Decimal `gorm:"type:numeric(14,2);column:basic_tax" json:"basic_tax"`
	SEFTax             decimal.Decimal `gorm:"type:numeric(14,2);column:sef_tax" json:"sef_tax"`
	AnnualTax          decimal.Decimal `gorm:"type:numeric(14,2);column:annual_tax" json:"annual_tax"`
	ID                 int64           `gorm:"primaryKey" json:"id"`
	RegistrationID     int64           `gorm:"index;column:registration_id" json:"registration_id"`
	Year               int             `gorm:"column:year" json:"year"`
}

// TableName specifies the table name for GORM.
func (PropertyTotal) TableName() string {
	return "property_totals"
}

// QuarterlyBill is one of the four per-year bill rows derived at approval.
// Overdue state and days late are derived at read time and not stored.
type QuarterlyBill struct {
	DueDate         time.Time       `gorm:"type:date;column:due_date" json:"due_date"`
	CreatedAt       time.Time       `gorm:"column:created_at" json:"created_at"`
	PaymentDate     *time.Time      `gorm:"column:payment_date" json:"payment_date,omitempty"`
	ReceiptNumber   *string         `gorm:"size:60;index;column:receipt_number" json:"receipt_number,omitempty"`
	Quarter         string          `gorm:"size:2;column:quarter" json:"quarter"`
	PaymentStatus   string          `gorm:"size:20;column:payment_status" json:"payment_status"`
	QuarterlyTax    decimal.Decimal `gorm:"type:numeric(14,2);column:total_quarterly_tax" json:"total_quarterly_tax"`
	PenaltyAmount   decimal.Decimal `gorm:"type:numeric(14,2);column:penalty_amount" json:"penalty_amount"`
	ID              int64           `gorm:"primaryKey" json:"id"`
	PropertyTotalID int64           `gorm:"index;column:property_total_id" json:"property_total_id"`
	Year            int             `gorm:"column:year" json:"year"`
}

// TableName specifies the table name for GORM.
func (QuarterlyBill) TableName() string {
	return "quarterly_bills"
}

// IsPaid reports whether the quarter has been settled.
func (b *QuarterlyBill) IsPaid() bool {
	return b.PaymentStatus == PaymentStatusPaid
}
