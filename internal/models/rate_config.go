package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RateKind discriminates the configuration tables managed by administrators.
type RateKind string

const (
	RateKindLand            RateKind = "land"
	RateKindProperty        RateKind = "property"
	RateKindBuildingBracket RateKind = "building_bracket"
	RateKindTax             RateKind = "tax"
	RateKindDiscount        RateKind = "discount"
	RateKindPenalty         RateKind = "penalty"
	RateKindRegulatoryFee   RateKind = "regulatory_fee"
)

// RateKinds lists every supported kind in display order.
var RateKinds = []RateKind{
	RateKindLand,
	RateKindProperty,
	RateKindBuildingBracket,
	RateKindTax,
	RateKindDiscount,
	RateKindPenalty,
	RateKindRegulatoryFee,
}

// Valid reports whether k is a known kind.
func (k RateKind) Valid() bool {
	for _, known := range RateKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Well-known names for the name-keyed kinds.
const (
	TaxNameBasic       = "basic"
	TaxNameSEF         = "sef"
	DiscountNameAnnual = "annual"
	PenaltyNameLate    = "late_payment"
)

// Rate status values.
const (
	RateStatusActive  = "active"
	RateStatusExpired = "expired"
)

// RateConfig is one versioned row of a rate table. Key and value fields that
// do not apply to the row's Kind are left empty.
type RateConfig struct {
	EffectiveDate  time.Time  `gorm:"type:date;not null;column:effective_date" json:"effective_date"`
	CreatedAt      time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"column:updated_at" json:"updated_at"`
	ExpirationDate *time.Time `gorm:"type:date;column:expiration_date" json:"expiration_date,omitempty"`

	// Key fields
	Classification string `gorm:"size:100;index;column:classification" json:"classification,omitempty"`
	Material       string `gorm:"size:100;column:material" json:"material,omitempty"`
	Name           string `gorm:"size:100;column:name" json:"name,omitempty"`

	// Value fields
	MarketValue      decimal.NullDecimal `gorm:"type:numeric(14,2);column:market_value" json:"market_value"`
	AssessmentLevel  decimal.NullDecimal `gorm:"type:numeric(7,4);column:assessment_level" json:"assessment_level"`
	UnitCost         decimal.NullDecimal `gorm:"type:numeric(14,2);column:unit_cost" json:"unit_cost"`
	DepreciationRate decimal.NullDecimal `gorm:"type:numeric(7,4);column:depreciation_rate" json:"depreciation_rate"`
	MinValue         decimal.NullDecimal `gorm:"type:numeric(16,2);column:min_value" json:"min_value"`
	MaxValue         decimal.NullDecimal `gorm:"type:numeric(16,2);column:max_value" json:"max_value"`
	Percent          decimal.NullDecimal `gorm:"type:numeric(7,4);column:percent" json:"percent"`
	MaxPercent       decimal.NullDecimal `gorm:"type:numeric(7,4);column:max_percent" json:"max_percent"`
	Amount           decimal.NullDecimal `gorm:"type:numeric(14,2);column:amount" json:"amount"`

	Kind   RateKind `gorm:"size:30;not null;index;column:kind" json:"kind"`
	Status string   `gorm:"size:20;not null;column:status" json:"status"`
	ID     int64    `gorm:"primaryKey" json:"id"`
}

// TableName specifies the table name for GORM.
func (RateConfig) TableName() string {
	return "rate_configs"
}

// ActiveOn reports whether the row is in force on the given day.
// Dates are compared at day granularity in the location of asOf.
func (r *RateConfig) ActiveOn(asOf time.Time) bool {
	if r.Status != RateStatusActive {
		return false
	}
	day := DateOf(asOf)
	if DateOf(r.EffectiveDate).After(day) {
		return false
	}
	if r.ExpirationDate != nil && !DateOf(*r.ExpirationDate).After(day) {
		return false
	}
	return true
}

// DateOf truncates t to midnight in its own location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
