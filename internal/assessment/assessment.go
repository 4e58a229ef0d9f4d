// Package assessment computes land and building valuations and the annual
// real-property tax from a snapshot of the configured rates.
//
// Every monetary result is rounded half-up to centavos; intermediate
// arithmetic is exact decimal.
package assessment

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/stwalsh4118/revenue/api/internal/rates"
)

// MoneyPlaces is the number of decimal places kept for money.
const MoneyPlaces = 2

var (
	// ErrBracketNotFound means no building bracket covers the depreciated value.
	ErrBracketNotFound = errors.New("no assessment bracket covers the depreciated value")
	// ErrAmbiguousBracket means more than one bracket covers the depreciated value.
	ErrAmbiguousBracket = errors.New("multiple assessment brackets cover the depreciated value")
	// ErrInvalidInput means a measurement was missing or out of range.
	ErrInvalidInput = errors.New("invalid assessment input")
)

var hundred = decimal.NewFromInt(100)

// Money rounds a value to centavos.
func Money(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// LandResult is the outcome of ComputeLand.
type LandResult struct {
	MarketValue     decimal.Decimal `json:"market_value"`
	AssessedValue   decimal.Decimal `json:"assessed_value"`
	AssessmentLevel decimal.Decimal `json:"assessment_level"`
}

// ComputeLand values a parcel of land of the given classification.
func ComputeLand(areaSqm decimal.Decimal, classification string, snap *rates.Snapshot) (*LandResult, error) {
	if !areaSqm.IsPositive() {
		return nil, fmt.Errorf("%w: land area must be greater than zero", ErrInvalidInput)
	}

	row, err := snap.Land(classification)
	if err != nil {
		return nil, err
	}

	market := Money(areaSqm.Mul(row.MarketValue.Decimal))
	level := row.AssessmentLevel.Decimal

	return &LandResult{
		MarketValue:     market,
		AssessedValue:   Money(market.Mul(level).Div(hundred)),
		AssessmentLevel: level,
	}, nil
}

// BuildingInput describes a building to be valued.
type BuildingInput struct {
	// AssessmentLevelOverride is applied when set, letting an administrator
	// proceed past a missing or ambiguous bracket.
	AssessmentLevelOverride *decimal.Decimal
	FloorAreaSqm            decimal.Decimal
	Material                string
	Classification          string
	YearBuilt               int
	CurrentYear             int
}

// BuildingResult is the outcome of ComputeBuilding. AssessedValue and
// AssessmentLevel are nil when the bracket lookup failed; Warning then holds
// ErrBracketNotFound or ErrAmbiguousBracket.
type BuildingResult struct {
	Warning             error            `json:"-"`
	AssessedValue       *decimal.Decimal `json:"assessed_value"`
	AssessmentLevel     *decimal.Decimal `json:"assessment_level"`
	MarketValue         decimal.Decimal  `json:"market_value"`
	DepreciatedValue    decimal.Decimal  `json:"depreciated_value"`
	DepreciationPercent decimal.Decimal  `json:"depreciation_percent"`
	Age                 int              `json:"age"`
	LevelOverridden     bool             `json:"level_overridden"`
}

// Pending reports whether the tax fields could not be computed.
func (r *BuildingResult) Pending() bool {
	return r.AssessedValue == nil
}

// ComputeBuilding values a building. A missing unit-cost row is an error;
// a failed bracket lookup is reported through Warning so the market and
// depreciated values can still be shown.
func ComputeBuilding(in BuildingInput, snap *rates.Snapshot) (*BuildingResult, error) {
	if !in.FloorAreaSqm.IsPositive() {
		return nil, fmt.Errorf("%w: floor area must be greater than zero", ErrInvalidInput)
	}
	if in.YearBuilt <= 0 || in.YearBuilt > in.CurrentYear {
		return nil, fmt.Errorf("%w: year built must be between 1 and %d", ErrInvalidInput, in.CurrentYear)
	}
	if o := in.AssessmentLevelOverride; o != nil && (o.IsNegative() || o.GreaterThan(hundred)) {
		return nil, fmt.Errorf("%w: assessment level override must be between 0 and 100, got %s", ErrInvalidInput, o)
	}

	row, err := snap.Property(in.Material, in.Classification)
	if err != nil {
		return nil, err
	}

	age := in.CurrentYear - in.YearBuilt
	depreciation := DepreciationPercent(age, row.DepreciationRate.Decimal)
	market := Money(in.FloorAreaSqm.Mul(row.UnitCost.Decimal))
	depreciated := Money(market.Mul(hundred.Sub(depreciation)).Div(hundred))

	result := &BuildingResult{
		MarketValue:         market,
		DepreciatedValue:    depreciated,
		DepreciationPercent: depreciation,
		Age:                 age,
	}

	level, lookupErr := matchBracket(depreciated, in.Classification, snap)
	if in.AssessmentLevelOverride != nil {
		level = in.AssessmentLevelOverride
		result.LevelOverridden = true
	}
	result.Warning = lookupErr

	if level != nil {
		assessed := Money(depreciated.Mul(*level).Div(hundred))
		result.AssessedValue = &assessed
		result.AssessmentLevel = level
	}

	return result, nil
}

// DepreciationPercent is min(100, age × rate), never negative.
func DepreciationPercent(age int, ratePerYear decimal.Decimal) decimal.Decimal {
	if age <= 0 {
		return decimal.Zero
	}
	pct := decimal.NewFromInt(int64(age)).Mul(ratePerYear)
	if pct.GreaterThan(hundred) {
		return hundred
	}
	return pct
}

func matchBracket(value decimal.Decimal, classification string, snap *rates.Snapshot) (*decimal.Decimal, error) {
	var matches []decimal.Decimal
	for _, b := range snap.Brackets(classification) {
		if b.MinValue.Decimal.LessThanOrEqual(value) && value.LessThanOrEqual(b.MaxValue.Decimal) {
			matches = append(matches, b.AssessmentLevel.Decimal)
		}
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s for %q", ErrBracketNotFound, value.StringFixed(MoneyPlaces), classification)
	case 1:
		return &matches[0], nil
	default:
		return nil, fmt.Errorf("%w: %d brackets match %s for %q", ErrAmbiguousBracket, len(matches), value.StringFixed(MoneyPlaces), classification)
	}
}

// AnnualTax is the yearly real-property tax split into its two components.
type AnnualTax struct {
	Annual decimal.Decimal `json:"annual_tax"`
	Basic  decimal.Decimal `json:"basic_tax"`
	SEF    decimal.Decimal `json:"sef_tax"`
}

// ComputeAnnualTax applies the basic and SEF percentages to an assessed value.
// A zero combined rate yields all zeros.
func ComputeAnnualTax(assessed, basicPct, sefPct decimal.Decimal) AnnualTax {
	total := basicPct.Add(sefPct)
	if total.IsZero() {
		return AnnualTax{Annual: decimal.Zero, Basic: decimal.Zero, SEF: decimal.Zero}
	}

	annual := Money(assessed.Mul(total).Div(hundred))
	basic := Money(annual.Mul(basicPct).Div(total))

	// SEF takes the remainder so the parts always add up to the annual total.
	return AnnualTax{
		Annual: annual,
		Basic:  basic,
		SEF:    annual.Sub(basic),
	}
}
