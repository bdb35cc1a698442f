// Package validate runs plausibility checks on fetched fundamentals before
// they are valued. Failed checks are warnings: the valuation still runs,
// but the report says which inputs look wrong.
package validate

import (
	"fmt"
	"math"

	"stockcheckertool/pkg/core/market"
)

// Default tolerances.
const (
	PriceTolerance = 0.10 // relative gap between price and cap/shares
	FCFTolerance   = 0.50 // relative gap between computed and reported FCF
	MaxTaxRate     = 0.50
)

// =============================================================================
// CHECK RESULTS
// =============================================================================

// Check is one named comparison.
type Check struct {
	Name       string  `json:"name"`
	Expected   float64 `json:"expected"`
	Actual     float64 `json:"actual"`
	Difference float64 `json:"difference"` // relative to Expected
	Passed     bool    `json:"passed"`
	Tolerance  float64 `json:"tolerance"`
	Message    string  `json:"message,omitempty"`
}

// Report collects every check run on a snapshot.
type Report struct {
	Checks       []Check  `json:"checks"`
	AllPassed    bool     `json:"all_passed"`
	FailedChecks []string `json:"failed_checks,omitempty"`
}

// Warnings returns the messages of failed checks.
func (r *Report) Warnings() []string {
	var out []string
	for _, c := range r.Checks {
		if !c.Passed {
			out = append(out, c.Message)
		}
	}
	return out
}

func (r *Report) add(c Check) {
	r.Checks = append(r.Checks, c)
	if !c.Passed {
		r.FailedChecks = append(r.FailedChecks, c.Name)
	}
}

// RelativeDifference is (actual - expected) / |expected|. Zero expected gives
// zero when actual is also zero and +Inf otherwise.
func RelativeDifference(expected, actual float64) float64 {
	if expected == 0 {
		if actual == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return (actual - expected) / math.Abs(expected)
}

// =============================================================================
// SNAPSHOT CHECKS
// =============================================================================

// CheckImpliedPrice compares the quoted price with market cap / shares.
// Skipped (passed) when no market cap is published.
func CheckImpliedPrice(price, marketCap, shares, tolerance float64) Check {
	c := Check{Name: "implied_price", Expected: price, Tolerance: tolerance, Passed: true}
	if marketCap <= 0 || shares <= 0 || price <= 0 {
		return c
	}
	c.Actual = marketCap / shares
	c.Difference = RelativeDifference(price, c.Actual)
	c.Passed = math.Abs(c.Difference) <= tolerance
	if !c.Passed {
		c.Message = fmt.Sprintf("market cap / shares implies %.2f per share but the quote is %.2f; share count may be stale or in another class",
			c.Actual, price)
	}
	return c
}

// CheckFreeCashFlow compares the computed unlevered FCF with the reported
// free cash flow. Skipped when nothing is reported.
func CheckFreeCashFlow(computed, reported, tolerance float64) Check {
	c := Check{Name: "free_cash_flow", Expected: reported, Actual: computed, Tolerance: tolerance, Passed: true}
	if reported == 0 {
		return c
	}
	c.Difference = RelativeDifference(reported, computed)
	c.Passed = math.Abs(c.Difference) <= tolerance
	if !c.Passed {
		c.Message = fmt.Sprintf("computed free cash flow %.0f differs from reported %.0f by %.0f%%",
			computed, reported, c.Difference*100)
	}
	return c
}

// CheckTaxRate flags effective tax rates above max.
func CheckTaxRate(rate, max float64) Check {
	c := Check{Name: "tax_rate", Expected: max, Actual: rate, Tolerance: 0, Passed: rate <= max}
	if !c.Passed {
		c.Message = fmt.Sprintf("effective tax rate %.1f%% is unusually high", rate*100)
	}
	return c
}

// CheckRevenue flags operating income larger than revenue.
func CheckRevenue(revenue, operatingIncome float64) Check {
	c := Check{Name: "operating_margin", Expected: revenue, Actual: operatingIncome, Passed: true}
	if revenue > 0 {
		c.Difference = operatingIncome / revenue
		c.Passed = operatingIncome <= revenue
	}
	if !c.Passed {
		c.Message = fmt.Sprintf("operating income %.0f exceeds revenue %.0f", operatingIncome, revenue)
	}
	return c
}

// Fundamentals runs every check on f with the default tolerances.
func Fundamentals(f market.Fundamentals) *Report {
	s, m := f.Snapshot, f.Market
	computed := s.OperatingIncome*(1-s.TaxRate) + s.DepreciationAmortization - s.CapitalExpenditures - s.ChangeInWorkingCapital

	r := &Report{}
	r.add(CheckImpliedPrice(m.SharePrice, m.MarketCap, s.SharesOutstanding, PriceTolerance))
	r.add(CheckFreeCashFlow(computed, f.Profile.ReportedFCF, FCFTolerance))
	r.add(CheckTaxRate(s.TaxRate, MaxTaxRate))
	r.add(CheckRevenue(s.Revenue, s.OperatingIncome))
	r.AllPassed = len(r.FailedChecks) == 0
	return r
}
