package rates

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stwalsh4118/revenue/api/internal/models"
)

var hundred = decimal.NewFromInt(100)

// farFuture stands in for an open-ended expiration date in range checks.
var farFuture = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

// Validate checks that a row carries the key and value fields its kind needs.
func Validate(r *models.RateConfig) error {
	if !r.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidConfig, r.Kind)
	}
	if r.EffectiveDate.IsZero() {
		return fmt.Errorf("%w: effective_date is required", ErrInvalidConfig)
	}
	if r.ExpirationDate != nil && !r.ExpirationDate.After(r.EffectiveDate) {
		return fmt.Errorf("%w: expiration_date must be after effective_date", ErrInvalidConfig)
	}
	if r.Status != models.RateStatusActive && r.Status != models.RateStatusExpired {
		return fmt.Errorf("%w: status must be active or expired", ErrInvalidConfig)
	}

	switch r.Kind {
	case models.RateKindLand:
		return all(
			required("classification", r.Classification),
			nonNegative("market_value", r.MarketValue),
			percent("assessment_level", r.AssessmentLevel),
		)
	case models.RateKindProperty:
		return all(
			required("material", r.Material),
			required("classification", r.Classification),
			nonNegative("unit_cost", r.UnitCost),
			percent("depreciation_rate", r.DepreciationRate),
		)
	case models.RateKindBuildingBracket:
		if err := all(
			required("classification", r.Classification),
			nonNegative("min_value", r.MinValue),
			nonNegative("max_value", r.MaxValue),
			percent("assessment_level", r.AssessmentLevel),
		); err != nil {
			return err
		}
		if r.MinValue.Decimal.GreaterThan(r.MaxValue.Decimal) {
			return fmt.Errorf("%w: min_value must not exceed max_value", ErrInvalidConfig)
		}
		return nil
	case models.RateKindTax, models.RateKindDiscount:
		return all(required("name", r.Name), percent("percent", r.Percent))
	case models.RateKindPenalty:
		if err := all(required("name", r.Name), percent("percent", r.Percent)); err != nil {
			return err
		}
		if r.MaxPercent.Valid {
			return percent("max_percent", r.MaxPercent)
		}
		return nil
	case models.RateKindRegulatoryFee:
		return all(required("name", r.Name), nonNegative("amount", r.Amount))
	}
	return nil
}

// CheckConflict rejects a candidate that would overlap an active row for the
// same key. Rows with the candidate's own ID are ignored so updates can be
// checked against the stored table. Brackets only conflict when their value
// ranges also overlap.
func CheckConflict(existing []models.RateConfig, candidate *models.RateConfig) error {
	if candidate.Status != models.RateStatusActive {
		return nil
	}
	for i := range existing {
		other := &existing[i]
		if other.ID == candidate.ID || other.Kind != candidate.Kind || other.Status != models.RateStatusActive {
			continue
		}
		if !sameRateKey(other, candidate) || !datesOverlap(other, candidate) {
			continue
		}
		if candidate.Kind == models.RateKindBuildingBracket && !valuesOverlap(other, candidate) {
			continue
		}
		return fmt.Errorf("%w: overlaps %s rate #%d", ErrConfigConflict, other.Kind, other.ID)
	}
	return nil
}

func sameRateKey(a, b *models.RateConfig) bool {
	switch a.Kind {
	case models.RateKindLand, models.RateKindBuildingBracket:
		return sameKey(a.Classification, b.Classification)
	case models.RateKindProperty:
		return sameKey(a.Material, b.Material) && sameKey(a.Classification, b.Classification)
	default:
		return sameKey(a.Name, b.Name)
	}
}

func datesOverlap(a, b *models.RateConfig) bool {
	aEnd, bEnd := farFuture, farFuture
	if a.ExpirationDate != nil {
		aEnd = *a.ExpirationDate
	}
	if b.ExpirationDate != nil {
		bEnd = *b.ExpirationDate
	}
	// Expiration is exclusive: a row expiring on day D is not active on D.
	return a.EffectiveDate.Before(bEnd) && b.EffectiveDate.Before(aEnd)
}

func valuesOverlap(a, b *models.RateConfig) bool {
	return a.MinValue.Decimal.LessThanOrEqual(b.MaxValue.Decimal) &&
		b.MinValue.Decimal.LessThanOrEqual(a.MaxValue.Decimal)
}

func all(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func required(field, value string) error {
	if value == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidConfig, field)
	}
	return nil
}

func nonNegative(field string, value decimal.NullDecimal) error {
	if !value.Valid {
		return fmt.Errorf("%w: %s is required", ErrInvalidConfig, field)
	}
	if value.Decimal.IsNegative() {
		return fmt.Errorf("%w: %s must not be negative", ErrInvalidConfig, field)
	}
	return nil
}

func percent(field string, value decimal.NullDecimal) error {
	if err := nonNegative(field, value); err != nil {
		return err
	}
	if value.Decimal.GreaterThan(hundred) {
		return fmt.Errorf("%w: %s must be at most 100", ErrInvalidConfig, field)
	}
	return nil
}
