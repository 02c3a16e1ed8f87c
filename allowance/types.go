/*
Package allowance computes per-diem meal allowances for operation work plans.

PURPOSE:
  Converts an operation's effective strength, duration and ration type into
  a monetary value plus an audit breakdown ("memória de cálculo"). The same
  calculator serves the preview path (API/CLI) and the plan submission path,
  so the number printed on a plan is always the number that gets debited.

KEY CONCEPTS IN THIS FILE (types.go):
  - MealType: QR / QS ration types, each with its own rate pair
  - Mode: EMPLOYMENT vs PREPARATION operations
  - Request / Result: calculator input and output
  - Line: one reproducible term of the breakdown

DESIGN PRINCIPLES:
  1. Pure: no I/O, no shared state, safe for concurrent use
  2. Precision: decimal.Decimal everywhere, rounding only for display
  3. Auditability: every sub-amount is strength × meals × rate × days × periods

SEE ALSO:
  - calculator.go: Tiering rules
  - breakdown.go: Audit text rendering
  - rations.go: Quantity-only operational rations
*/
package allowance

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// ENUMERATIONS
// =============================================================================

// MealType identifies the ration category an allowance is paid for.
type MealType string

const (
	MealQR MealType = "QR" // ration type A
	MealQS MealType = "QS" // ration type B
)

func (m MealType) Valid() bool { return m == MealQR || m == MealQS }

// Mode selects which formula constants apply.
type Mode string

const (
	ModeEmployment  Mode = "EMPLOYMENT"
	ModePreparation Mode = "PREPARATION"
)

func (m Mode) Valid() bool { return m == ModeEmployment || m == ModePreparation }

// Tier boundaries. Tier 2 is a regulatory ceiling and never exceeds 8 days
// inside a single 30-day period.
const (
	Tier1Days  = 22
	Tier2Days  = 8
	PeriodDays = Tier1Days + Tier2Days

	MinMeals = 1
	MaxMeals = 3
)

// =============================================================================
// REQUEST / RESULT
// =============================================================================

// Request is the calculator input.
type Request struct {
	Strength int
	Days     int
	MealType MealType
	Meals    int // intermediate meals per day, EMPLOYMENT only
	Mode     Mode
}

// Line is one term of the breakdown. Amount is always
// Strength × max(Meals,1) × Rate × Days × Periods, computed at full precision.
type Line struct {
	Label    string
	Strength int
	Meals    int // 0 when the rate already is per-person-per-day
	Rate     decimal.Decimal
	Days     int
	Periods  int
	Amount   decimal.Decimal
}

// Segment groups the lines that belong to one period of the operation.
type Segment struct {
	Kind    SegmentKind
	Days    int // calendar days covered by one repetition of the segment
	Periods int
	Lines   []Line
}

type SegmentKind string

const (
	SegmentSingle  SegmentKind = "single"  // operations of up to 30 days
	SegmentFirst   SegmentKind = "first"   // days 1-30 of a longer operation
	SegmentWhole   SegmentKind = "whole"   // repeated complete 30-day periods
	SegmentPartial SegmentKind = "partial" // trailing period shorter than 30 days
)

// Subtotal sums the segment's lines.
func (s Segment) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range s.Lines {
		total = total.Add(l.Amount)
	}
	return total
}

// Result is the calculator output.
type Result struct {
	Request   Request
	FullRate  decimal.Decimal
	UnitValue decimal.Decimal
	Segments  []Segment
	Total     decimal.Decimal
}

// Lines flattens every segment in order.
func (r Result) Lines() []Line {
	var lines []Line
	for _, s := range r.Segments {
		lines = append(lines, s.Lines...)
	}
	return lines
}

// Rounded returns the total as presented on documents.
func (r Result) Rounded() decimal.Decimal { return r.Total.Round(2) }

// =============================================================================
// PERIOD SPLIT
// =============================================================================

// Split describes how a duration decomposes into tiers.
type Split struct {
	Tier1        int // tier-1 days of the first period
	Tier2        int // tier-2 days of the first period
	WholePeriods int // complete 30-day periods after the first
	Rest         int // days after the whole periods
	RestTier1    int
	RestTier2    int
}

// SplitDays decomposes a duration. Whole periods are counted from day 31,
// i.e. (days-30)/30, so a 60-day operation is one first period plus one
// whole period and a 45-day operation has no whole period.
func SplitDays(days int) Split {
	var s Split
	s.Tier1 = min(days, Tier1Days)
	s.Tier2 = min(max(days-Tier1Days, 0), Tier2Days)
	if days <= PeriodDays {
		return s
	}
	extra := days - PeriodDays
	s.WholePeriods = extra / PeriodDays
	s.Rest = extra % PeriodDays
	s.RestTier1 = min(s.Rest, Tier1Days)
	s.RestTier2 = min(max(s.Rest-Tier1Days, 0), Tier2Days)
	return s
}
