package assessment

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/revenue/api/internal/models"
	"github.com/stwalsh4118/revenue/api/internal/rates"
)

var asOf = time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func nd(v string) decimal.NullDecimal {
	return decimal.NewNullDecimal(d(v))
}

func active(r models.RateConfig) models.RateConfig {
	r.Status = models.RateStatusActive
	r.EffectiveDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return r
}

func testSnapshot(brackets ...models.RateConfig) *rates.Snapshot {
	rows := []models.RateConfig{
		active(models.RateConfig{ID: 1, Kind: models.RateKindLand, Classification: "Residential",
			MarketValue: nd("1500"), AssessmentLevel: nd("20")}),
		active(models.RateConfig{ID: 2, Kind: models.RateKindProperty, Material: "Concrete", Classification: "Residential",
			UnitCost: nd("8000"), DepreciationRate: nd("2")}),
	}
	rows = append(rows, brackets...)
	return rates.NewSnapshot(rows, asOf)
}

func bracket(id int64, min, max, level string) models.RateConfig {
	return active(models.RateConfig{ID: id, Kind: models.RateKindBuildingBracket, Classification: "Residential",
		MinValue: nd(min), MaxValue: nd(max), AssessmentLevel: nd(level)})
}

func TestComputeLand_ExampleScenario(t *testing.T) {
	result, err := ComputeLand(d("200"), "Residential", testSnapshot())
	require.NoError(t, err)

	assert.True(t, d("300000").Equal(result.MarketValue), "market value: %s", result.MarketValue)
	assert.True(t, d("60000").Equal(result.AssessedValue), "assessed value: %s", result.AssessedValue)
	assert.True(t, d("20").Equal(result.AssessmentLevel))

	tax := ComputeAnnualTax(result.AssessedValue, d("1"), d("1"))
	assert.True(t, d("1200").Equal(tax.Annual))
	assert.True(t, d("600").Equal(tax.Basic))
	assert.True(t, d("600").Equal(tax.SEF))
}

func TestComputeLand_AssessedEqualsAreaTimesRateTimesLevel(t *testing.T) {
	for _, area := range []string{"1", "0.5", "123.45", "9999.99"} {
		result, err := ComputeLand(d(area), "Residential", testSnapshot())
		require.NoError(t, err)

		want := Money(d(area).Mul(d("1500")).Mul(d("20")).Div(d("100")))
		assert.True(t, want.Sub(result.AssessedValue).Abs().LessThanOrEqual(d("0.01")),
			"area %s: want %s got %s", area, want, result.AssessedValue)
	}
}

func TestComputeLand_MissingConfig(t *testing.T) {
	_, err := ComputeLand(d("100"), "Agricultural", testSnapshot())
	assert.ErrorIs(t, err, rates.ErrConfigNotFound)
}

func TestComputeLand_InvalidArea(t *testing.T) {
	_, err := ComputeLand(d("0"), "Residential", testSnapshot())
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestComputeBuilding_ExampleScenario(t *testing.T) {
	in := BuildingInput{
		FloorAreaSqm:   d("100"),
		Material:       "Concrete",
		Classification: "Residential",
		YearBuilt:      2016,
		CurrentYear:    2026,
	}

	t.Run("bracket covers value", func(t *testing.T) {
		result, err := ComputeBuilding(in, testSnapshot(bracket(10, "500000.01", "750000", "35")))
		require.NoError(t, err)

		assert.True(t, d("800000").Equal(result.MarketValue))
		assert.True(t, d("20").Equal(result.DepreciationPercent))
		assert.True(t, d("640000").Equal(result.DepreciatedValue))
		require.NotNil(t, result.AssessedValue)
		assert.True(t, d("224000").Equal(*result.AssessedValue))
		assert.NoError(t, result.Warning)
		assert.False(t, result.Pending())
	})

	t.Run("no bracket covers value", func(t *testing.T) {
		result, err := ComputeBuilding(in, testSnapshot(bracket(10, "0", "175000", "0")))
		require.NoError(t, err)

		assert.True(t, d("640000").Equal(result.DepreciatedValue))
		assert.Nil(t, result.AssessedValue)
		assert.Nil(t, result.AssessmentLevel)
		assert.ErrorIs(t, result.Warning, ErrBracketNotFound)
		assert.True(t, result.Pending())
	})

	t.Run("overlapping brackets are ambiguous", func(t *testing.T) {
		result, err := ComputeBuilding(in, testSnapshot(
			bracket(10, "500000", "700000", "35"),
			bracket(11, "600000", "900000", "40"),
		))
		require.NoError(t, err)

		assert.Nil(t, result.AssessedValue)
		assert.ErrorIs(t, result.Warning, ErrAmbiguousBracket)
	})

	t.Run("override proceeds past missing bracket", func(t *testing.T) {
		level := d("30")
		withOverride := in
		withOverride.AssessmentLevelOverride = &level

		result, err := ComputeBuilding(withOverride, testSnapshot())
		require.NoError(t, err)

		require.NotNil(t, result.AssessedValue)
		assert.True(t, d("192000").Equal(*result.AssessedValue))
		assert.True(t, result.LevelOverridden)
		assert.ErrorIs(t, result.Warning, ErrBracketNotFound)
	})
}

func TestComputeBuilding_MissingPropertyConfig(t *testing.T) {
	_, err := ComputeBuilding(BuildingInput{
		FloorAreaSqm: d("50"), Material: "Wood", Classification: "Residential",
		YearBuilt: 2020, CurrentYear: 2026,
	}, testSnapshot())
	assert.ErrorIs(t, err, rates.ErrConfigNotFound)
}

func TestComputeBuilding_InvalidInput(t *testing.T) {
	base := BuildingInput{FloorAreaSqm: d("50"), Material: "Concrete", Classification: "Residential", YearBuilt: 2020, CurrentYear: 2026}

	noArea := base
	noArea.FloorAreaSqm = decimal.Zero
	_, err := ComputeBuilding(noArea, testSnapshot())
	assert.ErrorIs(t, err, ErrInvalidInput)

	future := base
	future.YearBuilt = 2030
	_, err = ComputeBuilding(future, testSnapshot())
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestComputeBuilding_OverrideRange(t *testing.T) {
	in := BuildingInput{
		FloorAreaSqm: d("100"), Material: "Concrete", Classification: "Residential",
		YearBuilt: 2015, CurrentYear: 2025,
	}

	tests := []struct {
		name    string
		level   string
		wantErr bool
	}{
		{name: "negative level", level: "-50", wantErr: true},
		{name: "above one hundred", level: "100.01", wantErr: true},
		{name: "zero level", level: "0"},
		{name: "full level", level: "100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level := d(tt.level)
			withOverride := in
			withOverride.AssessmentLevelOverride = &level

			result, err := ComputeBuilding(withOverride, testSnapshot())
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
				assert.Nil(t, result)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, result.AssessedValue)
			assert.False(t, result.AssessedValue.IsNegative())
			assert.False(t, result.AssessedValue.GreaterThan(result.DepreciatedValue))
		})
	}
}

func TestDepreciationPercent(t *testing.T) {
	rate := d("2")

	assert.True(t, decimal.Zero.Equal(DepreciationPercent(0, rate)))
	assert.True(t, d("20").Equal(DepreciationPercent(10, rate)))
	assert.True(t, d("100").Equal(DepreciationPercent(50, rate)))
	assert.True(t, d("100").Equal(DepreciationPercent(80, rate)), "capped at 100")

	prev := decimal.Zero
	for age := 0; age <= 120; age++ {
		got := DepreciationPercent(age, d("1.75"))
		assert.True(t, got.GreaterThanOrEqual(prev), "non-decreasing at age %d", age)
		assert.True(t, got.LessThanOrEqual(d("100")))
		prev = got
	}
}

func TestComputeAnnualTax(t *testing.T) {
	t.Run("zero rates", func(t *testing.T) {
		tax := ComputeAnnualTax(d("60000"), decimal.Zero, decimal.Zero)
		assert.True(t, tax.Annual.IsZero())
		assert.True(t, tax.Basic.IsZero())
		assert.True(t, tax.SEF.IsZero())
	})

	t.Run("unequal split adds up", func(t *testing.T) {
		tax := ComputeAnnualTax(d("123456.78"), d("2"), d("1"))
		assert.True(t, d("3703.70").Equal(tax.Annual), "annual %s", tax.Annual)
		assert.True(t, tax.Annual.Equal(tax.Basic.Add(tax.SEF)))
		assert.True(t, d("2469.13").Equal(tax.Basic), "basic %s", tax.Basic)
	})
}
