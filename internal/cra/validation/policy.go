// Package validation holds the pure input checks applied to report and
// entry fields before any row is written.
package validation

import "github.com/shopspring/decimal"

// Policy bundles the tunable bounds of field validation. Two policies ship:
// the current one with tight, realistic ceilings, and a permissive legacy
// one kept for tenants migrated from the previous system.
type Policy struct {
	Name string

	// QuantityCeiling is the inclusive upper bound on a single entry's
	// quantity (days). Quantity must be > 0 and <= the ceiling.
	QuantityCeiling decimal.Decimal

	// UnitPriceCeiling bounds unit_price in minor currency units.
	UnitPriceCeiling int64

	// AllowZeroUnitPrice relaxes unit_price > 0 to unit_price >= 0, for
	// non-billable activity lines.
	AllowZeroUnitPrice bool

	// YearMin and YearMax bound the report year. When YearMaxFromClock is
	// set, YearMax is ignored and the bound is the current year plus one.
	YearMin          int
	YearMax          int
	YearMaxFromClock bool

	// MaxDescriptionLen caps entry descriptions, in characters.
	MaxDescriptionLen int
}

// CurrentPolicy is the default validation profile.
func CurrentPolicy() Policy {
	return Policy{
		Name:              "current",
		QuantityCeiling:   decimal.NewFromInt(365),
		UnitPriceCeiling:  1_000_000,
		YearMin:           2015,
		YearMaxFromClock:  true,
		MaxDescriptionLen: 500,
	}
}

// LegacyPolicy mirrors the bounds of the system this one replaced.
func LegacyPolicy() Policy {
	return Policy{
		Name:              "legacy",
		QuantityCeiling:   decimal.NewFromInt(1000),
		UnitPriceCeiling:  100_000_000,
		YearMin:           1970,
		YearMax:           2100,
		MaxDescriptionLen: 500,
	}
}
