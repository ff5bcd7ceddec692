package validation

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/indielance/cra/internal/clock"
)

func newTestEngine(policy Policy) *Engine {
	clk := clock.NewFakeClock(time.Date(2025, 1, 20, 12, 0, 0, 0, time.UTC))
	return NewEngineWithPolicy(policy, clk, []string{"EUR", "USD"})
}

func TestValidateMonth(t *testing.T) {
	e := newTestEngine(CurrentPolicy())

	assert.NoError(t, e.ValidateMonth(1))
	assert.NoError(t, e.ValidateMonth(12))
	assert.ErrorIs(t, e.ValidateMonth(0), ErrInvalidMonth)
	assert.ErrorIs(t, e.ValidateMonth(13), ErrInvalidMonth)
}

func TestValidateYearCurrentProfile(t *testing.T) {
	e := newTestEngine(CurrentPolicy())

	assert.ErrorIs(t, e.ValidateYear(2014), ErrInvalidYear)
	assert.NoError(t, e.ValidateYear(2015))
	assert.NoError(t, e.ValidateYear(2025))
	// current year plus one is the ceiling
	assert.NoError(t, e.ValidateYear(2026))
	assert.ErrorIs(t, e.ValidateYear(2027), ErrInvalidYear)
}

func TestValidateYearLegacyProfile(t *testing.T) {
	e := newTestEngine(LegacyPolicy())

	assert.ErrorIs(t, e.ValidateYear(1969), ErrInvalidYear)
	assert.NoError(t, e.ValidateYear(1970))
	assert.NoError(t, e.ValidateYear(2100))
	assert.ErrorIs(t, e.ValidateYear(2101), ErrInvalidYear)
}

func TestValidateCurrency(t *testing.T) {
	e := newTestEngine(CurrentPolicy())

	code, err := e.ValidateCurrency(" eur ")
	assert.NoError(t, err)
	assert.Equal(t, "EUR", code)

	_, err = e.ValidateCurrency("JPY")
	assert.ErrorIs(t, err, ErrInvalidCurrency)

	_, err = e.ValidateCurrency("")
	assert.ErrorIs(t, err, ErrInvalidCurrency)
}

func TestValidateDate(t *testing.T) {
	e := newTestEngine(CurrentPolicy())

	_, err := e.ValidateDate("")
	assert.ErrorIs(t, err, ErrMissingDate)

	_, err = e.ValidateDate("10/01/2025")
	assert.ErrorIs(t, err, ErrInvalidDateFormat)

	_, err = e.ValidateDate("2025-01-21")
	assert.ErrorIs(t, err, ErrFutureDate)

	date, err := e.ValidateDate("2025-01-20")
	assert.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC), date)

	date, err = e.ValidateDate("2025-01-10")
	assert.NoError(t, err)
	assert.Equal(t, time.UTC, date.Location())
}

func TestValidateQuantity(t *testing.T) {
	e := newTestEngine(CurrentPolicy())

	assert.ErrorIs(t, e.ValidateQuantity(decimal.Zero), ErrInvalidQuantity)
	assert.ErrorIs(t, e.ValidateQuantity(decimal.NewFromInt(-1)), ErrInvalidQuantity)
	assert.NoError(t, e.ValidateQuantity(decimal.RequireFromString("0.5")))
	assert.NoError(t, e.ValidateQuantity(decimal.NewFromInt(365)))
	assert.ErrorIs(t, e.ValidateQuantity(decimal.RequireFromString("365.5")), ErrQuantityExceedsLimit)

	legacy := newTestEngine(LegacyPolicy())
	assert.NoError(t, legacy.ValidateQuantity(decimal.NewFromInt(1000)))
	assert.ErrorIs(t, legacy.ValidateQuantity(decimal.NewFromInt(1001)), ErrQuantityExceedsLimit)
}

func TestValidateUnitPrice(t *testing.T) {
	e := newTestEngine(CurrentPolicy())

	assert.ErrorIs(t, e.ValidateUnitPrice(-1), ErrInvalidUnitPrice)
	assert.ErrorIs(t, e.ValidateUnitPrice(0), ErrInvalidUnitPrice)
	assert.NoError(t, e.ValidateUnitPrice(50_000))
	assert.NoError(t, e.ValidateUnitPrice(1_000_000))
	assert.ErrorIs(t, e.ValidateUnitPrice(1_000_001), ErrPriceExceedsLimit)
}

func TestValidateUnitPriceZeroAllowed(t *testing.T) {
	policy := CurrentPolicy()
	policy.AllowZeroUnitPrice = true
	e := newTestEngine(policy)

	assert.NoError(t, e.ValidateUnitPrice(0))
	assert.ErrorIs(t, e.ValidateUnitPrice(-1), ErrInvalidUnitPrice)
}

func TestValidateUnitPriceLegacyCeiling(t *testing.T) {
	e := newTestEngine(LegacyPolicy())

	assert.NoError(t, e.ValidateUnitPrice(100_000_000))
	assert.ErrorIs(t, e.ValidateUnitPrice(100_000_001), ErrPriceExceedsLimit)
}

func TestValidateDescription(t *testing.T) {
	e := newTestEngine(CurrentPolicy())

	assert.NoError(t, e.ValidateDescription(""))
	assert.NoError(t, e.ValidateDescription(strings.Repeat("x", 500)))
	assert.ErrorIs(t, e.ValidateDescription(strings.Repeat("x", 501)), ErrDescriptionTooLong)

	// the limit counts characters, so multibyte text up to 500 runes passes
	assert.NoError(t, e.ValidateDescription(strings.Repeat("é", 500)))
	assert.ErrorIs(t, e.ValidateDescription(strings.Repeat("é", 501)), ErrDescriptionTooLong)
}
