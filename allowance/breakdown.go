/*
breakdown.go - Audit text for allowance results

PURPOSE:
  Renders a Result as the calculation memo printed on the work plan. Each
  line shows every factor of its sub-amount so a reviewer can reproduce it
  by hand; intermediate-meal rates are shown as "(R$ 7,00 ÷ 3)" rather than
  a rounded 2,33 for the same reason.

FORMAT:
  PRIMEIROS 30 DIAS:
    Ref Itr: 100 × 2 × (R$ 7,00 ÷ 3) × 22 dias = R$ 10.266,67
    Etapa: 100 × R$ 7,00 × 8 dias = R$ 5.600,00
    Subtotal: R$ 15.866,67
  PERÍODO PARCIAL DE 15 DIAS:
    Ref Itr: 100 × 2 × (R$ 7,00 ÷ 3) × 15 dias = R$ 7.000,00
    Subtotal: R$ 7.000,00
  TOTAL: R$ 22.866,67
*/
package allowance

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Title returns the heading printed above a segment's lines.
func (s Segment) Title() string {
	switch s.Kind {
	case SegmentFirst:
		return "PRIMEIROS 30 DIAS"
	case SegmentWhole:
		return fmt.Sprintf("%d PERÍODO(S) COMPLETO(S) DE 30 DIAS", s.Periods)
	case SegmentPartial:
		return fmt.Sprintf("PERÍODO PARCIAL DE %d DIAS", s.Days)
	default:
		return fmt.Sprintf("%d DIAS", s.Days)
	}
}

// Formula renders one line without its label.
func (l Line) Formula(fullRate decimal.Decimal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d", l.Strength)
	if l.Meals > 0 {
		fmt.Fprintf(&b, " × %d", l.Meals)
	}
	if l.Label == LabelIntermediateMeal {
		fmt.Fprintf(&b, " × (%s ÷ 3)", FormatBRL(fullRate))
	} else {
		fmt.Fprintf(&b, " × %s", FormatBRL(l.Rate))
	}
	fmt.Fprintf(&b, " × %d dias", l.Days)
	if l.Periods > 1 {
		fmt.Fprintf(&b, " × %d", l.Periods)
	}
	fmt.Fprintf(&b, " = %s", FormatBRL(l.Amount))
	return b.String()
}

// Text renders the full calculation memo.
func (r Result) Text() string {
	var b strings.Builder
	multi := len(r.Segments) > 1
	for _, s := range r.Segments {
		indent := ""
		if multi {
			fmt.Fprintf(&b, "%s:\n", s.Title())
			indent = "  "
		}
		for _, l := range s.Lines {
			fmt.Fprintf(&b, "%s%s: %s\n", indent, l.Label, l.Formula(r.FullRate))
		}
		if multi {
			fmt.Fprintf(&b, "%sSubtotal: %s\n", indent, FormatBRL(s.Subtotal()))
		}
	}
	fmt.Fprintf(&b, "TOTAL: %s", FormatBRL(r.Total))
	return b.String()
}
