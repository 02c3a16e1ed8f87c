/*
calculator.go - Tiered day-based allowance formula

PURPOSE:
  Turns a Request into a Result following the compensation rule used by
  the approving organization. Both operation modes share the same day
  structure; only the per-day rates differ.

DAY TIERS (per 30-day period):
  Tier 1: days 1-22
  Tier 2: days 23-30, never more than 8 days

  EMPLOYMENT:
    tier 1 = strength × meals × (full ÷ 3) × days
    tier 2 = strength × full × days
  PREPARATION:
    tier 1 = strength × supplement × days
    tier 2 = strength × full × days + strength × supplement × days

LONG OPERATIONS (> 30 days):
  first   = one full period (22 + 8 days)
  whole   = (days - 30) / 30 complete periods, each worth one full period
  partial = (days - 30) % 30 days, split again into tier 1 / tier 2
  total   = first + whole + partial

EXAMPLE:
  100 people, 45 days, 2 intermediate meals, QR (7.00), EMPLOYMENT
    first:   100 × 2 × 2.333.. × 22 = 10266.67   100 × 7.00 × 8 = 5600.00
    partial: 100 × 2 × 2.333.. × 15 =  7000.00
    total = 22866.67

SEE ALSO:
  - types.go: SplitDays
  - breakdown.go: Rendering the lines as audit text
*/
package allowance

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CALCULATOR
// =============================================================================

// Calculator is stateless apart from its rate table and may be shared.
type Calculator struct {
	Rates RateTable
}

// NewCalculator creates a calculator. A nil table means DefaultRates.
func NewCalculator(rates RateTable) *Calculator {
	if rates == nil {
		rates = DefaultRates()
	}
	return &Calculator{Rates: rates}
}

// Validate checks a request without computing it.
func (c *Calculator) Validate(req Request) error {
	if req.Strength <= 0 {
		return &ValidationError{Field: "strength", Reason: "must be positive"}
	}
	if req.Days <= 0 {
		return &ValidationError{Field: "days", Reason: "must be positive"}
	}
	if !req.MealType.Valid() {
		return &ValidationError{Field: "meal_type", Reason: fmt.Sprintf("unknown meal type %q", req.MealType)}
	}
	if !req.Mode.Valid() {
		return &ValidationError{Field: "mode", Reason: fmt.Sprintf("unknown mode %q", req.Mode)}
	}
	if req.Mode == ModeEmployment && (req.Meals < MinMeals || req.Meals > MaxMeals) {
		return &ValidationError{Field: "meals", Reason: fmt.Sprintf("must be between %d and %d", MinMeals, MaxMeals)}
	}
	return nil
}

// Compute applies the tiered formula.
func (c *Calculator) Compute(req Request) (Result, error) {
	if err := c.Validate(req); err != nil {
		return Result{}, err
	}
	rate, err := c.Rates.Lookup(req.MealType)
	if err != nil {
		return Result{}, err
	}
	if req.Mode == ModePreparation {
		req.Meals = 0
	}

	split := SplitDays(req.Days)
	res := Result{
		Request:   req,
		FullRate:  rate.Full,
		UnitValue: unitValue(req.Mode, rate),
	}

	if req.Days <= PeriodDays {
		res.Segments = append(res.Segments, Segment{
			Kind:    SegmentSingle,
			Days:    req.Days,
			Periods: 1,
			Lines:   tierLines(req, rate, split.Tier1, split.Tier2, 1),
		})
	} else {
		res.Segments = append(res.Segments, Segment{
			Kind:    SegmentFirst,
			Days:    PeriodDays,
			Periods: 1,
			Lines:   tierLines(req, rate, Tier1Days, Tier2Days, 1),
		})
		if split.WholePeriods > 0 {
			res.Segments = append(res.Segments, Segment{
				Kind:    SegmentWhole,
				Days:    PeriodDays,
				Periods: split.WholePeriods,
				Lines:   tierLines(req, rate, Tier1Days, Tier2Days, split.WholePeriods),
			})
		}
		if split.Rest > 0 {
			res.Segments = append(res.Segments, Segment{
				Kind:    SegmentPartial,
				Days:    split.Rest,
				Periods: 1,
				Lines:   tierLines(req, rate, split.RestTier1, split.RestTier2, 1),
			})
		}
	}

	res.Total = decimal.Zero
	for _, s := range res.Segments {
		res.Total = res.Total.Add(s.Subtotal())
	}
	return res, nil
}

func unitValue(mode Mode, rate Rate) decimal.Decimal {
	if mode == ModeEmployment {
		return rate.Fractional()
	}
	return rate.Supplement
}

// tierLines builds the lines for one period shape repeated `periods` times.
func tierLines(req Request, rate Rate, tier1, tier2, periods int) []Line {
	var lines []Line
	switch req.Mode {
	case ModeEmployment:
		if tier1 > 0 {
			lines = append(lines, newLine(LabelIntermediateMeal, req.Strength, req.Meals, rate.Fractional(), tier1, periods))
		}
		if tier2 > 0 {
			lines = append(lines, newLine(LabelFullRation, req.Strength, 0, rate.Full, tier2, periods))
		}
	case ModePreparation:
		if tier1 > 0 {
			lines = append(lines, newLine(LabelSupplement, req.Strength, 0, rate.Supplement, tier1, periods))
		}
		if tier2 > 0 {
			lines = append(lines,
				newLine(LabelFullRation, req.Strength, 0, rate.Full, tier2, periods),
				newLine(LabelSupplement, req.Strength, 0, rate.Supplement, tier2, periods),
			)
		}
	}
	return lines
}

// Line labels.
const (
	LabelIntermediateMeal = "Ref Itr"
	LabelFullRation       = "Etapa"
	LabelSupplement       = "Complemento"
)

func newLine(label string, strength, meals int, rate decimal.Decimal, days, periods int) Line {
	l := Line{
		Label:    label,
		Strength: strength,
		Meals:    meals,
		Rate:     rate,
		Days:     days,
		Periods:  periods,
	}
	l.Amount = l.Recompute()
	return l
}

// Recompute derives the line amount from its displayed factors.
func (l Line) Recompute() decimal.Decimal {
	factor := int64(l.Strength) * int64(l.Days) * int64(max(l.Periods, 1))
	if l.Meals > 0 {
		factor *= int64(l.Meals)
	}
	return l.Rate.Mul(decimal.NewFromInt(factor))
}
