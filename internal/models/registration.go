package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RegistrationStatus is the lifecycle state of a property registration.
type RegistrationStatus string

const (
	StatusPending         RegistrationStatus = "pending"
	StatusForInspection   RegistrationStatus = "for_inspection"
	StatusNeedsCorrection RegistrationStatus = "needs_correction"
	StatusResubmitted     RegistrationStatus = "resubmitted"
	StatusAssessed        RegistrationStatus = "assessed"
	StatusApproved        RegistrationStatus = "approved"
)

// Valid reports whether s is a known status.
func (s RegistrationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusForInspection, StatusNeedsCorrection,
		StatusResubmitted, StatusAssessed, StatusApproved:
		return true
	}
	return false
}

// Registration is a citizen's real-property registration.
// All nullable fields use pointers to distinguish between zero values and NULL.
type Registration struct {
	DateRegistered   time.Time          `gorm:"column:date_registered" json:"date_registered"`
	LastUpdated      time.Time          `gorm:"column:last_updated" json:"last_updated"`
	InspectionDate   *time.Time         `gorm:"type:date;column:inspection_date" json:"inspection_date,omitempty"`
	CorrectionNotes  *string            `gorm:"type:text;column:correction_notes" json:"correction_notes,omitempty"`
	AssessorName     *string            `gorm:"size:200;column:assessor_name" json:"assessor_name,omitempty"`
	ContactNumber    *string            `gorm:"size:30;column:contact_number" json:"contact_number,omitempty"`
	EmailAddress     *string            `gorm:"size:200;column:email_address" json:"email_address,omitempty"`
	ReferenceNumber  string             `gorm:"size:40;uniqueIndex;column:reference_number" json:"reference_number"`
	OwnerName        string             `gorm:"size:200;index;column:owner_name" json:"owner_name"`
	OwnerAddress     string             `gorm:"type:text;column:owner_address" json:"owner_address"`
	PropertyType     string             `gorm:"size:100;column:property_type" json:"property_type"`
	LocationAddress  string             `gorm:"type:text;column:location_address" json:"location_address"`
	Barangay         string             `gorm:"size:100;column:barangay" json:"barangay"`
	District         string             `gorm:"size:100;column:district" json:"district"`
	MunicipalityCity string             `gorm:"size:100;column:municipality_city" json:"municipality_city"`
	Province         string             `gorm:"size:100;column:province" json:"province"`
	ZipCode          string             `gorm:"size:10;column:zip_code" json:"zip_code"`
	Status           RegistrationStatus `gorm:"size:30;index;column:status" json:"status"`
	ID               int64              `gorm:"primaryKey" json:"id"`
	HasBuilding      bool               `gorm:"column:has_building" json:"has_building"`
}

// TableName specifies the table name for GORM.
func (Registration) TableName() string {
	return "registrations"
}

// LandAssessment holds the computed land valuation for a registration.
type LandAssessment struct {
	CreatedAt       time.Time       `gorm:"column:created_at" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"column:updated_at" json:"updated_at"`
	TDN             *string         `gorm:"size:40;uniqueIndex;column:tdn" json:"tdn,omitempty"`
	Classification  string          `gorm:"size:100;column:classification" json:"classification"`
	LandAreaSqm     decimal.Decimal `gorm:"type:numeric(14,2);column:land_area_sqm" json:"land_area_sqm"`
	MarketValue     decimal.Decimal `gorm:"type:numeric(16,2);column:land_market_value" json:"land_market_value"`
	AssessedValue   decimal.Decimal `gorm:"type:numeric(16,2);column:land_assessed_value" json:"land_assessed_value"`
	AssessmentLevel decimal.Decimal `gorm:"type:numeric(7,4);column:assessment_level" json:"assessment_level"`
	RegistrationID  int64           `gorm:"uniqueIndex;column:registration_id" json:"registration_id"`
}

// TableName specifies the table name for GORM.
func (LandAssessment) TableName() string {
	return "land_assessments"
}

// BuildingAssessment holds the computed building valuation. AssessedValue
// and AssessmentLevel stay nil when no bracket matched and no override was given.
type BuildingAssessment struct {
	CreatedAt           time.Time           `gorm:"column:created_at" json:"created_at"`
	UpdatedAt           time.Time           `gorm:"column:updated_at" json:"updated_at"`
	TDN                 *string             `gorm:"size:40;uniqueIndex;column:tdn" json:"tdn,omitempty"`
	AssessmentNote      *string             `gorm:"type:text;column:assessment_note" json:"assessment_note,omitempty"`
	ConstructionType    string              `gorm:"size:100;column:construction_type" json:"construction_type"`
	Classification      string              `gorm:"size:100;column:classification" json:"classification"`
	FloorAreaSqm        decimal.Decimal     `gorm:"type:numeric(14,2);column:floor_area_sqm" json:"floor_area_sqm"`
	MarketValue         decimal.Decimal     `gorm:"type:numeric(16,2);column:building_market_value" json:"building_market_value"`
	DepreciatedValue    decimal.Decimal     `gorm:"type:numeric(16,2);column:building_depreciated_value" json:"building_depreciated_value"`
	DepreciationPercent decimal.Decimal     `gorm:"type:numeric(7,4);column:depreciation_percent" json:"depreciation_percent"`
	AssessedValue       decimal.NullDecimal `gorm:"type:numeric(16,2);column:building_assessed_value" json:"building_assessed_value"`
	AssessmentLevel     decimal.NullDecimal `gorm:"type:numeric(7,4);column:assessment_level" json:"assessment_level"`
	RegistrationID      int64               `gorm:"uniqueIndex;column:registration_id" json:"registration_id"`
	YearBuilt           int                 `gorm:"column:year_built" json:"year_built"`
	LevelOverridden     bool                `gorm:"column:level_overridden" json:"level_overridden"`
}

// TableName specifies the table name for GORM.
func (BuildingAssessment) TableName() string {
	return "building_assessments"
}
