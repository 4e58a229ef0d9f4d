package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stwalsh4118/revenue/api/internal/assessment"
	"github.com/stwalsh4118/revenue/api/internal/billing"
	"github.com/stwalsh4118/revenue/api/internal/lifecycle"
	"github.com/stwalsh4118/revenue/api/internal/logger"
	"github.com/stwalsh4118/revenue/api/internal/models"
	"github.com/stwalsh4118/revenue/api/internal/repository"
)

// Pagination bounds for registration listings.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// SubmitRegistrationInput is a citizen's property registration.
type SubmitRegistrationInput struct {
	OwnerName        string  `json:"owner_name" binding:"required,max=200"`
	OwnerAddress     string  `json:"owner_address" binding:"required"`
	ContactNumber    *string `json:"contact_number" binding:"omitempty,max=30"`
	EmailAddress     *string `json:"email_address" binding:"omitempty,email"`
	PropertyType     string  `json:"property_type" binding:"required,max=100"`
	LocationAddress  string  `json:"location_address" binding:"required"`
	Barangay         string  `json:"barangay" binding:"required,max=100"`
	District         string  `json:"district" binding:"max=100"`
	MunicipalityCity string  `json:"municipality_city" binding:"max=100"`
	Province         string  `json:"province" binding:"max=100"`
	ZipCode          string  `json:"zip_code" binding:"max=10"`
	HasBuilding      bool    `json:"has_building"`
}

// ListRegistrationsInput selects one page of registrations.
type ListRegistrationsInput struct {
	Status   models.RegistrationStatus
	Page     int
	PageSize int
}

// RegistrationPage is one page of a registration listing.
type RegistrationPage struct {
	Registrations []models.Registration `json:"registrations"`
	Total         int                   `json:"total"`
	Page          int                   `json:"page"`
	PageSize      int                   `json:"page_size"`
}

// RegistrationDetail is a registration with its assessments.
type RegistrationDetail struct {
	Registration *models.Registration       `json:"registration"`
	Land         *models.LandAssessment     `json:"land_assessment"`
	Building     *models.BuildingAssessment `json:"building_assessment"`
	// CanApprove is false with ApprovalBlocker naming the missing piece.
	CanApprove      bool   `json:"can_approve"`
	ApprovalBlocker string `json:"approval_blocker,omitempty"`
}

// ScheduleInspectionInput assigns an assessor and an inspection day.
type ScheduleInspectionInput struct {
	AssessorName   string `json:"assessor_name" binding:"required,max=200"`
	InspectionDate string `json:"inspection_date" binding:"required,datetime=2006-01-02"`
}

// TransitionResult reports the registration after a workflow action.
// Changed is false when the action was a no-op.
type TransitionResult struct {
	Registration *models.Registration `json:"registration"`
	Changed      bool                 `json:"changed"`
}

// LandAssessmentInput is the land part of an assessment form.
type LandAssessmentInput struct {
	Classification string          `json:"classification" binding:"required"`
	LandAreaSqm    decimal.Decimal `json:"land_area_sqm"`
}

// BuildingAssessmentInput is the building part of an assessment form.
type BuildingAssessmentInput struct {
	AssessmentLevelOverride *decimal.Decimal `json:"assessment_level_override"`
	ConstructionType        string           `json:"construction_type" binding:"required"`
	Classification          string           `json:"classification" binding:"required"`
	FloorAreaSqm            decimal.Decimal  `json:"floor_area_sqm"`
	YearBuilt               int              `json:"year_built" binding:"required,gt=0"`
}

// BuildingAssessmentResult is the stored building assessment plus any
// bracket warning that left the assessed value pending.
type BuildingAssessmentResult struct {
	Assessment *models.BuildingAssessment `json:"building_assessment"`
	Warning    string                     `json:"warning,omitempty"`
}

// ApprovalResult is the billing generated by an approval.
type ApprovalResult struct {
	Registration  *models.Registration   `json:"registration"`
	PropertyTotal *models.PropertyTotal  `json:"property_total"`
	Bills         []models.QuarterlyBill `json:"quarterly_bills"`
}

// RegistrationService defines the registration workflow from citizen
// submission through approval.
type RegistrationService interface {
	Submit(ctx context.Context, in SubmitRegistrationInput) (*models.Registration, error)
	List(ctx context.Context, in ListRegistrationsInput) (*RegistrationPage, error)
	Get(ctx context.Context, id int64) (*RegistrationDetail, error)

	ScheduleInspection(ctx context.Context, id int64, in ScheduleInspectionInput) (*TransitionResult, error)
	MarkAssessed(ctx context.Context, id int64) (*TransitionResult, error)
	RequestCorrection(ctx context.Context, id int64, notes string) (*TransitionResult, error)
	Resubmit(ctx context.Context, id int64) (*TransitionResult, error)

	// SaveLandAssessment and SaveBuildingAssessment are only allowed while
	// the registration is assessed.
	SaveLandAssessment(ctx context.Context, id int64, in LandAssessmentInput) (*models.LandAssessment, error)
	SaveBuildingAssessment(ctx context.Context, id int64, in BuildingAssessmentInput) (*BuildingAssessmentResult, error)

	// Approve assigns TDNs and generates the property total and four
	// quarterly bills in one transaction. Approving twice fails with
	// lifecycle.ErrPreconditionFailed and writes nothing.
	Approve(ctx context.Context, id int64) (*ApprovalResult, error)
}

type registrationService struct {
	repo  repository.RegistrationRepository
	store *repository.Store
	tx    repository.Transactor
	log   *logger.Logger
	loc   *time.Location
	now   clock
}

// NewRegistrationService creates a new instance of RegistrationService.
// store serves reads outside a transaction.
func NewRegistrationService(store *repository.Store, tx repository.Transactor, loc *time.Location, log *logger.Logger) RegistrationService {
	return &registrationService{
		repo:  store.Registrations,
		store: store,
		tx:    tx,
		log:   log,
		loc:   loc,
		now:   time.Now,
	}
}

func (s *registrationService) Submit(ctx context.Context, in SubmitRegistrationInput) (*models.Registration, error) {
	if strings.TrimSpace(in.OwnerName) == "" || strings.TrimSpace(in.LocationAddress) == "" {
		return nil, fmt.Errorf("%w: owner_name and location_address are required", ErrValidation)
	}

	now := s.now().In(s.loc)
	reg := &models.Registration{
		ReferenceNumber:  newReferenceNumber(now),
		OwnerName:        strings.TrimSpace(in.OwnerName),
		OwnerAddress:     strings.TrimSpace(in.OwnerAddress),
		ContactNumber:    in.ContactNumber,
		EmailAddress:     in.EmailAddress,
		PropertyType:     strings.TrimSpace(in.PropertyType),
		LocationAddress:  strings.TrimSpace(in.LocationAddress),
		Barangay:         strings.TrimSpace(in.Barangay),
		District:         strings.TrimSpace(in.District),
		MunicipalityCity: strings.TrimSpace(in.MunicipalityCity),
		Province:         strings.TrimSpace(in.Province),
		ZipCode:          strings.TrimSpace(in.ZipCode),
		HasBuilding:      in.HasBuilding,
		Status:           models.StatusPending,
	}

	if err := s.repo.Create(ctx, reg); err != nil {
		s.log.Error("Failed to create registration", err, map[string]interface{}{
			"reference_number": reg.ReferenceNumber,
		})
		return nil, fmt.Errorf("failed to create registration: %w", err)
	}

	s.log.Info("Registration submitted", map[string]interface{}{
		"registration_id":  reg.ID,
		"reference_number": reg.ReferenceNumber,
		"has_building":     reg.HasBuilding,
	})
	return reg, nil
}

func (s *registrationService) List(ctx context.Context, in ListRegistrationsInput) (*RegistrationPage, error) {
	if in.Status != "" && !in.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, in.Status)
	}
	if in.Page < 1 {
		in.Page = 1
	}
	if in.PageSize < 1 {
		in.PageSize = DefaultPageSize
	}
	if in.PageSize > MaxPageSize {
		in.PageSize = MaxPageSize
	}

	regs, total, err := s.repo.List(ctx, repository.RegistrationFilter{
		Status: in.Status,
		Limit:  in.PageSize,
		Offset: (in.Page - 1) * in.PageSize,
	})
	if err != nil {
		s.log.Error("Failed to list registrations", err, map[string]interface{}{"status": in.Status})
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}

	return &RegistrationPage{
		Registrations: regs,
		Total:         total,
		Page:          in.Page,
		PageSize:      in.PageSize,
	}, nil
}

func (s *registrationService) Get(ctx context.Context, id int64) (*RegistrationDetail, error) {
	reg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query registration: %w", err)
	}
	if reg == nil {
		return nil, fmt.Errorf("%w: registration %d", ErrNotFound, id)
	}

	land, err := s.store.Assessments.FindLand(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query land assessment: %w", err)
	}
	var building *models.BuildingAssessment
	if reg.HasBuilding {
		if building, err = s.store.Assessments.FindBuilding(ctx, id); err != nil {
			return nil, fmt.Errorf("failed to query building assessment: %w", err)
		}
	}

	detail := &RegistrationDetail{Registration: reg, Land: land, Building: building}
	blocker := approvalBlocker(reg, land, building)
	if blocker == nil {
		detail.CanApprove = true
	} else {
		detail.ApprovalBlocker = blocker.Error()
	}
	return detail, nil
}

// approvalBlocker returns why approval is not possible yet, or nil.
func approvalBlocker(reg *models.Registration, land *models.LandAssessment, building *models.BuildingAssessment) error {
	if _, _, err := lifecycle.Next(reg.Status, lifecycle.ActionApprove); err != nil {
		return err
	}
	return lifecycle.CheckApproval(lifecycle.ApprovalRequirements{
		HasBuilding:          reg.HasBuilding,
		LandAssessed:         land != nil,
		BuildingAssessed:     building != nil,
		BuildingValuePending: building != nil && !building.AssessedValue.Valid,
	})
}

func (s *registrationService) ScheduleInspection(ctx context.Context, id int64, in ScheduleInspectionInput) (*TransitionResult, error) {
	assessor := strings.TrimSpace(in.AssessorName)
	if assessor == "" {
		return nil, fmt.Errorf("%w: assessor_name is required", ErrValidation)
	}
	date, err := time.ParseInLocation(time.DateOnly, in.InspectionDate, s.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: inspection_date must be YYYY-MM-DD", ErrValidation)
	}

	return s.transition(ctx, id, lifecycle.ActionScheduleInspection, func(reg *models.Registration) {
		reg.AssessorName = &assessor
		reg.InspectionDate = &date
	})
}

func (s *registrationService) MarkAssessed(ctx context.Context, id int64) (*TransitionResult, error) {
	return s.transition(ctx, id, lifecycle.ActionMarkAssessed, nil)
}

func (s *registrationService) RequestCorrection(ctx context.Context, id int64, notes string) (*TransitionResult, error) {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return nil, fmt.Errorf("%w: correction_notes is required", ErrValidation)
	}

	return s.transition(ctx, id, lifecycle.ActionRequestCorrection, func(reg *models.Registration) {
		reg.CorrectionNotes = &notes
	})
}

func (s *registrationService) Resubmit(ctx context.Context, id int64) (*TransitionResult, error) {
	return s.transition(ctx, id, lifecycle.ActionResubmit, nil)
}

// transition applies a workflow action under a row lock. apply sets the
// action's extra fields and only runs when the status actually changes.
func (s *registrationService) transition(ctx context.Context, id int64, action lifecycle.Action, apply func(*models.Registration)) (*TransitionResult, error) {
	result := &TransitionResult{}

	err := s.tx.InTx(ctx, func(ctx context.Context, store *repository.Store) error {
		reg, err := store.Registrations.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if reg == nil {
			return fmt.Errorf("%w: registration %d", ErrNotFound, id)
		}
		result.Registration = reg

		next, changed, err := lifecycle.Next(reg.Status, action)
		if err != nil || !changed {
			return err
		}

		reg.Status = next
		if apply != nil {
			apply(reg)
		}
		if err := store.Registrations.UpdateWorkflow(ctx, reg); err != nil {
			return err
		}
		result.Changed = true
		return nil
	})
	if err != nil {
		s.log.Warn("Registration transition rejected", map[string]interface{}{
			"registration_id": id,
			"action":          action,
			"error":           err.Error(),
		})
		return nil, err
	}

	s.log.Info("Registration transition applied", map[string]interface{}{
		"registration_id": id,
		"action":          action,
		"status":          result.Registration.Status,
		"changed":         result.Changed,
	})
	return result, nil
}

func (s *registrationService) SaveLandAssessment(ctx context.Context, id int64, in LandAssessmentInput) (*models.LandAssessment, error) {
	var land *models.LandAssessment

	err := s.tx.InTx(ctx, func(ctx context.Context, store *repository.Store) error {
		if _, err := s.lockEditable(ctx, store, id); err != nil {
			return err
		}

		snap, err := loadSnapshot(ctx, store.Rates, s.now().In(s.loc))
		if err != nil {
			return err
		}
		computed, err := assessment.ComputeLand(in.LandAreaSqm, in.Classification, snap)
		if err != nil {
			return err
		}

		land = &models.LandAssessment{
			RegistrationID:  id,
			Classification:  in.Classification,
			LandAreaSqm:     in.LandAreaSqm,
			MarketValue:     computed.MarketValue,
			AssessedValue:   computed.AssessedValue,
			AssessmentLevel: computed.AssessmentLevel,
		}
		return store.Assessments.UpsertLand(ctx, land)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Land assessment saved", map[string]interface{}{
		"registration_id": id,
		"assessed_value":  land.AssessedValue.String(),
	})
	return land, nil
}

func (s *registrationService) SaveBuildingAssessment(ctx context.Context, id int64, in BuildingAssessmentInput) (*BuildingAssessmentResult, error) {
	result := &BuildingAssessmentResult{}

	err := s.tx.InTx(ctx, func(ctx context.Context, store *repository.Store) error {
		reg, err := s.lockEditable(ctx, store, id)
		if err != nil {
			return err
		}
		if !reg.HasBuilding {
			return fmt.Errorf("%w: registration %d was submitted without a building", lifecycle.ErrPreconditionFailed, id)
		}

		now := s.now().In(s.loc)
		snap, err := loadSnapshot(ctx, store.Rates, now)
		if err != nil {
			return err
		}
		computed, err := assessment.ComputeBuilding(assessment.BuildingInput{
			AssessmentLevelOverride: in.AssessmentLevelOverride,
			FloorAreaSqm:            in.FloorAreaSqm,
			Material:                in.ConstructionType,
			Classification:          in.Classification,
			YearBuilt:               in.YearBuilt,
			CurrentYear:             now.Year(),
		}, snap)
		if err != nil {
			return err
		}

		building := &models.BuildingAssessment{
			RegistrationID:      id,
			ConstructionType:    in.ConstructionType,
			Classification:      in.Classification,
			FloorAreaSqm:        in.FloorAreaSqm,
			YearBuilt:           in.YearBuilt,
			MarketValue:         computed.MarketValue,
			DepreciationPercent: computed.DepreciationPercent,
			DepreciatedValue:    computed.DepreciatedValue,
			LevelOverridden:     computed.LevelOverridden,
		}
		if computed.AssessedValue != nil {
			building.AssessedValue = decimal.NewNullDecimal(*computed.AssessedValue)
			building.AssessmentLevel = decimal.NewNullDecimal(*computed.AssessmentLevel)
		}
		if computed.Warning != nil {
			note := computed.Warning.Error()
			building.AssessmentNote = &note
			result.Warning = note
		}

		result.Assessment = building
		return store.Assessments.UpsertBuilding(ctx, building)
	})
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{
		"registration_id":   id,
		"depreciated_value": result.Assessment.DepreciatedValue.String(),
		"pending":           !result.Assessment.AssessedValue.Valid,
	}
	if result.Warning != "" {
		fields["warning"] = result.Warning
		s.log.Warn("Building assessment saved with bracket warning", fields)
	} else {
		s.log.Info("Building assessment saved", fields)
	}
	return result, nil
}

// lockEditable loads and locks a registration whose assessments may be written.
func (s *registrationService) lockEditable(ctx context.Context, store *repository.Store, id int64) (*models.Registration, error) {
	reg, err := store.Registrations.FindByIDForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if reg == nil {
		return nil, fmt.Errorf("%w: registration %d", ErrNotFound, id)
	}
	if !lifecycle.AssessmentEditable(reg.Status) {
		return nil, fmt.Errorf("%w: assessments can only be recorded while the registration is %s, it is %s",
			lifecycle.ErrPreconditionFailed, models.StatusAssessed, reg.Status)
	}
	return reg, nil
}

func (s *registrationService) Approve(ctx context.Context, id int64) (*ApprovalResult, error) {
	result := &ApprovalResult{}

	err := s.tx.InTx(ctx, func(ctx context.Context, store *repository.Store) error {
		reg, err := store.Registrations.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if reg == nil {
			return fmt.Errorf("%w: registration %d", ErrNotFound, id)
		}

		next, _, err := lifecycle.Next(reg.Status, lifecycle.ActionApprove)
		if err != nil {
			return err
		}

		land, err := store.Assessments.FindLand(ctx, id)
		if err != nil {
			return err
		}
		var building *models.BuildingAssessment
		if reg.HasBuilding {
			if building, err = store.Assessments.FindBuilding(ctx, id); err != nil {
				return err
			}
		}
		if err := approvalBlocker(reg, land, building); err != nil {
			return err
		}

		now := s.now().In(s.loc)
		year := now.Year()

		existing, err := store.Billing.FindPropertyTotal(ctx, id, year)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: billing for %d already exists", lifecycle.ErrPreconditionFailed, year)
		}

		snap, err := loadSnapshot(ctx, store.Rates, now)
		if err != nil {
			return err
		}
		basic, err := snap.Tax(models.TaxNameBasic)
		if err != nil {
			return err
		}
		sef, err := snap.Tax(models.TaxNameSEF)
		if err != nil {
			return err
		}

		buildingValue := decimal.Zero
		var buildingTDN *string
		if building != nil {
			buildingValue = building.AssessedValue.Decimal
			tdn := newTDN("B", year)
			buildingTDN = &tdn
		}
		landTDN := newTDN("L", year)
		if err := store.Assessments.AssignTDNs(ctx, id, landTDN, buildingTDN); err != nil {
			return err
		}

		totalAssessed := land.AssessedValue.Add(buildingValue)
		tax := assessment.ComputeAnnualTax(totalAssessed, basic.Percent.Decimal, sef.Percent.Decimal)

		total := &models.PropertyTotal{
			RegistrationID:     id,
			Year:               year,
			LandTDN:            landTDN,
			BuildingTDN:        buildingTDN,
			LandAssessedValue:  land.AssessedValue,
			BldgAssessedValue:  buildingValue,
			TotalAssessedValue: totalAssessed,
			BasicTax:           tax.Basic,
			SEFTax:             tax.SEF,
			AnnualTax:          tax.Annual,
		}
		if err := store.Billing.CreatePropertyTotal(ctx, total); err != nil {
			return err
		}

		bills := billing.Schedule(total.ID, tax.Annual, year, s.loc, now)
		if err := store.Billing.CreateBills(ctx, bills); err != nil {
			return err
		}

		reg.Status = next
		if err := store.Registrations.UpdateWorkflow(ctx, reg); err != nil {
			return err
		}

		result.Registration = reg
		result.PropertyTotal = total
		result.Bills = bills
		return nil
	})
	if err != nil {
		fields := map[string]interface{}{"registration_id": id, "error": err.Error()}
		if isClientError(err) {
			s.log.Warn("Approval rejected", fields)
		} else {
			s.log.Error("Approval failed", err, map[string]interface{}{"registration_id": id})
		}
		return nil, err
	}

	s.log.Info("Registration approved", map[string]interface{}{
		"registration_id":   id,
		"property_total_id": result.PropertyTotal.ID,
		"annual_tax":        result.PropertyTotal.AnnualTax.String(),
		"bills":             len(result.Bills),
	})
	return result, nil
}

// newReferenceNumber returns RPT-<year>-<8 hex chars>.
func newReferenceNumber(now time.Time) string {
	return fmt.Sprintf("RPT-%d-%s", now.Year(), shortID())
}

// newTDN returns a tax declaration number, TDN-L-<year>-<8 hex chars> for land
// and TDN-B-... for buildings.
func newTDN(prefix string, year int) string {
	return fmt.Sprintf("TDN-%s-%d-%s", prefix, year, shortID())
}

func shortID() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
