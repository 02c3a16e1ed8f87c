package allowance

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RATE TABLE
// =============================================================================

// Rate is the per-person-per-day money pair for one meal type.
//
// Full is the complete daily ration value. Supplement is the PREPARATION
// complement (20% of the reference ration value, e.g. 20% of 6.00 = 1.40).
type Rate struct {
	Full       decimal.Decimal
	Supplement decimal.Decimal
}

// Fractional is the value of one intermediate meal: a third of the full rate.
// Kept at full precision (7/3 = 2.333...).
func (r Rate) Fractional() decimal.Decimal {
	return r.Full.Div(decimal.NewFromInt(3))
}

// RateTable maps meal types to rates.
type RateTable map[MealType]Rate

// DefaultRates are the rates in force when no override file is configured.
func DefaultRates() RateTable {
	return RateTable{
		MealQR: {Full: decimal.RequireFromString("7.00"), Supplement: decimal.RequireFromString("1.40")},
		MealQS: {Full: decimal.RequireFromString("10.00"), Supplement: decimal.RequireFromString("2.00")},
	}
}

// Lookup returns the rate for a meal type.
func (t RateTable) Lookup(m MealType) (Rate, error) {
	r, ok := t[m]
	if !ok {
		return Rate{}, &ValidationError{Field: "meal_type", Reason: fmt.Sprintf("no rate configured for %q", m)}
	}
	return r, nil
}

// Validate checks that every configured rate is positive.
func (t RateTable) Validate() error {
	for m, r := range t {
		if !m.Valid() {
			return fmt.Errorf("rate table: unknown meal type %q", m)
		}
		if !r.Full.IsPositive() {
			return fmt.Errorf("rate table: %s full rate must be positive", m)
		}
		if r.Supplement.IsNegative() {
			return fmt.Errorf("rate table: %s supplement must not be negative", m)
		}
	}
	return nil
}
