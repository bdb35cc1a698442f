// Package report renders a valuation result as Markdown and HTML.
package report

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"stockcheckertool/pkg/core/valuation"
)

var printer = message.NewPrinter(language.English)

// Symbol returns the display prefix for an ISO currency code.
func Symbol(currency string) string {
	switch strings.ToUpper(currency) {
	case "", "USD":
		return "$"
	case "KRW":
		return "₩"
	default:
		return strings.ToUpper(currency) + " "
	}
}

// Money formats v with the currency prefix and thousands separators.
func Money(currency string, v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = math.Abs(v)
	}
	return sign + Symbol(currency) + printer.Sprintf("%.2f", v)
}

func pct(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

// Markdown builds the valuation summary for ticker.
func Markdown(ticker, currency string, r valuation.ValuationResult) string {
	var b strings.Builder
	a := r.Assumptions

	fmt.Fprintf(&b, "# %s DCF Valuation\n\n", strings.ToUpper(ticker))

	if r.LowConfidence {
		b.WriteString("> **Low confidence:** base free cash flow is not positive, so the projection ")
		b.WriteString("compounds a loss. Treat the value below with caution.\n\n")
	}
	if r.RateSource == valuation.RateFallback {
		b.WriteString("> No beta was published for this ticker; a fallback discount rate was used.\n\n")
	}

	b.WriteString("## Assumptions\n\n")
	b.WriteString("| Input | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Growth rate | %s |\n", pct(a.GrowthRate))
	fmt.Fprintf(&b, "| Terminal growth rate | %s |\n", pct(a.TerminalGrowthRate))
	fmt.Fprintf(&b, "| Horizon | %d years |\n", a.HorizonYears)
	schedule := "flat"
	if a.GrowthFadeToTerminal {
		schedule = "linear fade to terminal"
	}
	fmt.Fprintf(&b, "| Growth schedule | %s |\n", schedule)
	if a.MidYear {
		b.WriteString("| Discounting | mid-year |\n")
	}
	fmt.Fprintf(&b, "| Discount rate | %s (%s) |\n", pct(r.WACC), r.RateSource)
	if r.RateSource == valuation.RateEstimated {
		fmt.Fprintf(&b, "| Cost of equity | %s |\n", pct(r.CostOfEquity))
		fmt.Fprintf(&b, "| After-tax cost of debt | %s |\n", pct(r.AfterTaxCostOfDebt))
		fmt.Fprintf(&b, "| Weights (E / D) | %s / %s |\n", pct(r.EquityWeight), pct(r.DebtWeight))
	}

	b.WriteString("\n## Projected Free Cash Flow\n\n")
	b.WriteString("| Year | Growth | FCF | Discount factor | Present value |\n|---:|---:|---:|---:|---:|\n")
	fmt.Fprintf(&b, "| 0 | | %s | | |\n", Money(currency, r.BaseFreeCashFlow))
	for _, y := range r.Projection {
		fmt.Fprintf(&b, "| %d | %s | %s | %.4f | %s |\n",
			y.Year, pct(y.GrowthRate), Money(currency, y.FreeCashFlow), y.DiscountFactor, Money(currency, y.PresentValue))
	}

	b.WriteString("\n## Enterprise to Equity Bridge\n\n")
	b.WriteString("| Item | Value |\n|---|---:|\n")
	fmt.Fprintf(&b, "| PV of cash flows | %s |\n", Money(currency, r.SumPVCashFlows))
	fmt.Fprintf(&b, "| Terminal value | %s |\n", Money(currency, r.TerminalValue))
	fmt.Fprintf(&b, "| PV of terminal value | %s |\n", Money(currency, r.PVTerminalValue))
	fmt.Fprintf(&b, "| Enterprise value | %s |\n", Money(currency, r.EnterpriseValue))
	fmt.Fprintf(&b, "| Equity value | %s |\n", Money(currency, r.EquityValue))
	fmt.Fprintf(&b, "| Terminal share of EV | %s |\n", pct(r.TerminalShare()))

	fmt.Fprintf(&b, "\n**Intrinsic value per share: %s**", Money(currency, r.ValuePerShare))
	if r.UpsidePercent != 0 {
		fmt.Fprintf(&b, " (%+.2f%% vs market)", r.UpsidePercent)
	}
	b.WriteString("\n")
	return b.String()
}

// RenderHTML converts Markdown to HTML with GFM tables enabled.
func RenderHTML(md string) (string, error) {
	gm := goldmark.New(goldmark.WithExtensions(extension.Table))
	var buf bytes.Buffer
	if err := gm.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return buf.String(), nil
}

// WithWarnings appends a data checks section listing warnings to md.
func WithWarnings(md string, warnings []string) string {
	if len(warnings) == 0 {
		return md
	}
	var b strings.Builder
	b.WriteString(md)
	b.WriteString("\n## Data Checks\n\n")
	for _, w := range warnings {
		fmt.Fprintf(&b, "- %s\n", w)
	}
	return b.String()
}
