package allowance

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// FormatBRL formats money the Brazilian way: "R$ 1.234,56".
func FormatBRL(d decimal.Decimal) string {
	s := d.StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign = "-"
		s = s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	lead := len(intPart) % 3
	if lead > 0 {
		b.WriteString(intPart[:lead])
	}
	for i := lead; i < len(intPart); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(intPart[i : i+3])
	}
	return "R$ " + sign + b.String() + "," + frac
}

// =============================================================================
// OPERATION PERIOD
// =============================================================================

// DateLayout is the date format used on plan forms.
const DateLayout = "02/01/2006"

// Period is an operation's date range, both ends inclusive.
type Period struct {
	Start time.Time
	End   time.Time
}

// Days counts calendar days including the first and the last.
func (p Period) Days() int {
	return int(p.End.Sub(p.Start).Hours()/24) + 1
}

func (p Period) String() string {
	return p.Start.Format(DateLayout) + " A " + p.End.Format(DateLayout)
}

// ParsePeriod reads "dd/mm/yyyy A dd/mm/yyyy".
func ParsePeriod(s string) (Period, error) {
	s = strings.TrimSpace(s)
	sep := " A "
	if !strings.Contains(s, sep) {
		sep = " a "
	}
	from, to, ok := strings.Cut(s, sep)
	if !ok {
		return Period{}, &ValidationError{Field: "period", Reason: fmt.Sprintf("expected %q, got %q", "dd/mm/yyyy A dd/mm/yyyy", s)}
	}
	start, err := time.Parse(DateLayout, strings.TrimSpace(from))
	if err != nil {
		return Period{}, &ValidationError{Field: "period", Reason: "invalid start date " + strings.TrimSpace(from)}
	}
	end, err := time.Parse(DateLayout, strings.TrimSpace(to))
	if err != nil {
		return Period{}, &ValidationError{Field: "period", Reason: "invalid end date " + strings.TrimSpace(to)}
	}
	if end.Before(start) {
		return Period{}, &ValidationError{Field: "period", Reason: "end date before start date"}
	}
	return Period{Start: start, End: end}, nil
}
