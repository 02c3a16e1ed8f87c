// Package cli renders calculator results and ledger statements for the
// terminal.
package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/warp/ptrab-engine/allowance"
	"github.com/warp/ptrab-engine/ledger"
)

// Theme colors
var (
	ColorBorder    = lipgloss.Color("#282726")
	ColorTextDim   = lipgloss.Color("#575653")
	ColorTextMuted = lipgloss.Color("#6F6E69")
	ColorText      = lipgloss.Color("#FFFCF0")
	ColorAccent    = lipgloss.Color("#3AA99F")
	ColorGreen     = lipgloss.Color("#879A39")
	ColorRed       = lipgloss.Color("#D14D41")
	ColorOrange    = lipgloss.Color("#DA702C")
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorText).
			Align(lipgloss.Center)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent)

	valueStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	mutedStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	moneyStyle = lipgloss.NewStyle().
			Foreground(ColorGreen)

	debitStyle = lipgloss.NewStyle().
			Foreground(ColorRed)

	warnStyle = lipgloss.NewStyle().
			Foreground(ColorOrange)

	dimStyle = lipgloss.NewStyle().
			Foreground(ColorTextDim)
)

// Table is a bordered text table. The first column is left-aligned, the
// rest right-aligned.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// RenderTitle renders a centered title in a rounded box.
func RenderTitle(title string) string {
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Width(55).
		Align(lipgloss.Center).
		Padding(0, 1)

	return border.Render(titleStyle.Render(title))
}

func RenderTable(t Table) string {
	numCols := len(t.Headers)
	if numCols == 0 && len(t.Rows) > 0 {
		numCols = len(t.Rows[0])
	}
	if numCols == 0 {
		return ""
	}

	widths := make([]int, numCols)
	for i, h := range t.Headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < numCols && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}

	var b strings.Builder
	if t.Title != "" {
		b.WriteString("  ")
		b.WriteString(headerStyle.Render(t.Title))
		b.WriteString("\n")
	}

	rule := func(left, mid, right string) {
		b.WriteString(dimStyle.Render(left))
		for i, w := range widths {
			b.WriteString(dimStyle.Render(strings.Repeat("─", w+2)))
			if i < numCols-1 {
				b.WriteString(dimStyle.Render(mid))
			}
		}
		b.WriteString(dimStyle.Render(right))
		b.WriteString("\n")
	}

	rule("╭", "┬", "╮")
	if len(t.Headers) > 0 {
		b.WriteString(dimStyle.Render("│"))
		for i, h := range t.Headers {
			b.WriteString(headerStyle.Render(pad(h, widths[i], i == 0)))
			b.WriteString(dimStyle.Render("│"))
		}
		b.WriteString("\n")
		rule("├", "┼", "┤")
	}
	for _, row := range t.Rows {
		b.WriteString(dimStyle.Render("│"))
		for i := 0; i < numCols; i++ {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			b.WriteString(valueStyle.Render(pad(cell, widths[i], i == 0)))
			b.WriteString(dimStyle.Render("│"))
		}
		b.WriteString("\n")
	}
	rule("╰", "┴", "╯")

	return b.String()
}

func pad(s string, width int, left bool) string {
	gap := strings.Repeat(" ", max(width-lipgloss.Width(s), 0))
	if left {
		return " " + s + gap + " "
	}
	return " " + gap + s + " "
}

// =============================================================================
// DOMAIN VIEWS
// =============================================================================

// RenderAllowance shows one row per breakdown line and the total.
func RenderAllowance(res allowance.Result) string {
	t := Table{
		Title:   fmt.Sprintf("%s %s - %d militares, %d dia(s)", res.Request.Mode, res.Request.MealType, res.Request.Strength, res.Request.Days),
		Headers: []string{"Parcela", "Fórmula", "Valor"},
	}
	for _, seg := range res.Segments {
		for _, l := range seg.Lines {
			t.Rows = append(t.Rows, []string{
				seg.Title() + " " + l.Label,
				l.Formula(res.FullRate),
				allowance.FormatBRL(l.Amount),
			})
		}
	}

	var b strings.Builder
	b.WriteString(RenderTable(t))
	b.WriteString("  Total: ")
	b.WriteString(moneyStyle.Render(allowance.FormatBRL(res.Total)))
	b.WriteString("\n")
	return b.String()
}

// RenderBalance shows the current and initial balance.
func RenderBalance(state ledger.State) string {
	var b strings.Builder
	b.WriteString(RenderTitle("SALDO DE PREPARO"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  Saldo atual:   %s\n", moneyStyle.Render(allowance.FormatBRL(state.CurrentBalance)))
	fmt.Fprintf(&b, "  Saldo inicial: %s\n", mutedStyle.Render(allowance.FormatBRL(state.InitialBalance)))
	if state.CurrentBalance.IsZero() {
		b.WriteString("  ")
		b.WriteString(warnStyle.Render("Saldo esgotado"))
		b.WriteString("\n")
	}
	if !state.UpdatedAt.IsZero() {
		fmt.Fprintf(&b, "  Atualizado em: %s\n", mutedStyle.Render(state.UpdatedAt.Local().Format("02/01/2006 15:04")))
	}
	return b.String()
}

// RenderStatement lists transactions newest first.
func RenderStatement(txs []ledger.Transaction) string {
	if len(txs) == 0 {
		return mutedStyle.Render("  Nenhuma movimentação registrada.") + "\n"
	}

	t := Table{
		Title:   "Movimentações",
		Headers: []string{"Data", "Tipo", "Documento", "Valor", "Saldo"},
	}
	for _, tx := range txs {
		amount := allowance.FormatBRL(tx.Amount)
		switch tx.Kind {
		case ledger.KindDebit:
			amount = debitStyle.Render("-" + amount)
		case ledger.KindCredit:
			amount = moneyStyle.Render("+" + amount)
		}
		t.Rows = append(t.Rows, []string{
			tx.Timestamp.Local().Format("02/01/2006 15:04"),
			string(tx.Kind),
			tx.Key,
			amount,
			allowance.FormatBRL(tx.BalanceAfter),
		})
	}
	return RenderTable(t)
}
