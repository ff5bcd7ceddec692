package validation

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"go.uber.org/fx"

	"github.com/indielance/cra/internal/clock"
	"github.com/indielance/cra/internal/config"
)

// Validation sentinels. Codes double as the failure code on the wire.
var (
	ErrInvalidMonth         = errors.New("invalid_month")
	ErrInvalidYear          = errors.New("invalid_year")
	ErrInvalidCurrency      = errors.New("invalid_currency")
	ErrMissingDate          = errors.New("missing_date")
	ErrInvalidDateFormat    = errors.New("invalid_date_format")
	ErrFutureDate           = errors.New("future_date_not_allowed")
	ErrInvalidQuantity      = errors.New("invalid_quantity")
	ErrQuantityExceedsLimit = errors.New("quantity_exceeds_limit")
	ErrInvalidUnitPrice     = errors.New("invalid_unit_price")
	ErrPriceExceedsLimit    = errors.New("unit_price_exceeds_limit")
	ErrDescriptionTooLong   = errors.New("description_too_long")
)

// DateLayout is the only accepted entry date format.
const DateLayout = "2006-01-02"

// Engine applies the configured policy to raw inputs. All methods are pure
// apart from clock reads.
type Engine struct {
	policy     Policy
	clock      clock.Clock
	currencies map[string]struct{}
}

type EngineParam struct {
	fx.In

	Config config.Config
	Clock  clock.Clock
}

func NewEngine(p EngineParam) *Engine {
	policy := CurrentPolicy()
	if p.Config.ValidationProfile == config.ProfileLegacy {
		policy = LegacyPolicy()
	}
	policy.AllowZeroUnitPrice = p.Config.AllowZeroUnitPrice

	currencies := make(map[string]struct{}, len(p.Config.Currencies))
	for _, c := range p.Config.Currencies {
		currencies[c] = struct{}{}
	}
	return &Engine{policy: policy, clock: p.Clock, currencies: currencies}
}

// NewEngineWithPolicy builds an engine around an explicit policy. Used by
// tests and callers that bypass configuration.
func NewEngineWithPolicy(policy Policy, clk clock.Clock, currencies []string) *Engine {
	set := make(map[string]struct{}, len(currencies))
	for _, c := range currencies {
		set[strings.ToUpper(c)] = struct{}{}
	}
	return &Engine{policy: policy, clock: clk, currencies: set}
}

// Policy exposes the active policy, mainly for logging at startup.
func (e *Engine) Policy() Policy { return e.policy }

func (e *Engine) yearMax() int {
	if e.policy.YearMaxFromClock {
		return e.clock.Now().Year() + 1
	}
	return e.policy.YearMax
}

// ValidateMonth checks a report month.
func (e *Engine) ValidateMonth(month int) error {
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// ValidateYear checks a report year against the policy bounds.
func (e *Engine) ValidateYear(year int) error {
	if year < e.policy.YearMin || year > e.yearMax() {
		return ErrInvalidYear
	}
	return nil
}

// ValidateCurrency normalizes and checks a currency code against the
// configured allow-list.
func (e *Engine) ValidateCurrency(raw string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if _, ok := e.currencies[code]; !ok {
		return "", ErrInvalidCurrency
	}
	return code, nil
}

// ValidateDate parses an entry date and rejects dates in the future. The
// returned time is normalized to midnight UTC so equality comparisons and
// the duplicate guard behave the same across database drivers.
func (e *Engine) ValidateDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, ErrMissingDate
	}
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, ErrInvalidDateFormat
	}
	t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	now := e.clock.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if t.After(today) {
		return time.Time{}, ErrFutureDate
	}
	return t, nil
}

// ValidateQuantity checks an entry quantity: strictly positive and within
// the policy ceiling.
func (e *Engine) ValidateQuantity(q decimal.Decimal) error {
	if q.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidQuantity
	}
	if q.GreaterThan(e.policy.QuantityCeiling) {
		return ErrQuantityExceedsLimit
	}
	return nil
}

// ValidateUnitPrice checks a unit price in minor units. Zero is allowed
// only when the policy says so.
func (e *Engine) ValidateUnitPrice(price int64) error {
	if price < 0 {
		return ErrInvalidUnitPrice
	}
	if price == 0 && !e.policy.AllowZeroUnitPrice {
		return ErrInvalidUnitPrice
	}
	if price > e.policy.UnitPriceCeiling {
		return ErrPriceExceedsLimit
	}
	return nil
}

// ValidateDescription bounds free-text descriptions. The limit counts
// characters, not bytes, so accented text is not penalized.
func (e *Engine) ValidateDescription(desc string) error {
	if utf8.RuneCountInString(desc) > e.policy.MaxDescriptionLen {
		return ErrDescriptionTooLong
	}
	return nil
}

var Module = fx.Module("cra.validation",
	fx.Provide(NewEngine),
)
