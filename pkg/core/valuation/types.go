// Package valuation implements the DCF engine: WACC estimation, free cash
// flow projection, discounting and the Gordon growth terminal value.
// Every function here is pure; fetching inputs is the caller's job.
package valuation

import (
	"time"
)

const DefaultHorizonYears = 5

// FinancialSnapshot is one fiscal period of a company's statements.
// Capex is a positive outflow; ChangeInWorkingCapital is positive when
// working capital absorbs cash.
type FinancialSnapshot struct {
	Ticker                   string  `json:"ticker"`
	Currency                 string  `json:"currency,omitempty"`
	FiscalYear               int     `json:"fiscal_year,omitempty"`
	Revenue                  float64 `json:"revenue"`
	OperatingIncome          float64 `json:"operating_income"`
	TaxRate                  float64 `json:"tax_rate"`
	DepreciationAmortization float64 `json:"depreciation_amortization"`
	CapitalExpenditures      float64 `json:"capital_expenditures"`
	ChangeInWorkingCapital   float64 `json:"change_in_working_capital"`
	TotalDebt                float64 `json:"total_debt"`
	CashAndEquivalents       float64 `json:"cash_and_equivalents"`
	SharesOutstanding        float64 `json:"shares_outstanding"`
	InterestExpense          float64 `json:"interest_expense,omitempty"`
}

// MarketData is a single consistent market observation at valuation time.
type MarketData struct {
	SharePrice        float64   `json:"share_price"`
	RiskFreeRate      float64   `json:"risk_free_rate"`
	EquityRiskPremium float64   `json:"equity_risk_premium"`
	Beta              float64   `json:"beta"`
	CostOfDebt        float64   `json:"cost_of_debt"` // Pre-tax
	MarketCap         float64   `json:"market_cap"`
	AsOf              time.Time `json:"as_of,omitempty"`
}

// CapitalStructure holds market-value weights used by the WACC estimator.
type CapitalStructure struct {
	EquityValue  float64 `json:"equity_value"`
	DebtValue    float64 `json:"debt_value"`
	TaxRate      float64 `json:"tax_rate"`
	EquityWeight float64 `json:"equity_weight"`
	DebtWeight   float64 `json:"debt_weight"`
}

// ProjectedYear is one explicit-horizon year of the projection.
type ProjectedYear struct {
	Year           int     `json:"year"`
	GrowthRate     float64 `json:"growth_rate"`
	FreeCashFlow   float64 `json:"free_cash_flow"`
	DiscountFactor float64 `json:"discount_factor,omitempty"`
	PresentValue   float64 `json:"present_value,omitempty"`
}

// CashFlowProjection is the ordered set of projected free cash flows.
type CashFlowProjection struct {
	BaseFreeCashFlow float64         `json:"base_free_cash_flow"`
	Years            []ProjectedYear `json:"years"`
}

// Final returns the last projected year. The projection is never empty
// once ProjectCashFlows succeeded.
func (p CashFlowProjection) Final() ProjectedYear {
	return p.Years[len(p.Years)-1]
}

// Assumptions is the validated configuration of one valuation run.
type Assumptions struct {
	GrowthRate           float64 `json:"growth_rate" yaml:"growth_rate"`
	TerminalGrowthRate   float64 `json:"terminal_growth_rate" yaml:"terminal_growth_rate"`
	HorizonYears         int     `json:"horizon_years" yaml:"horizon_years"`
	GrowthFadeToTerminal bool    `json:"growth_fade_to_terminal" yaml:"growth_fade_to_terminal"`

	// MidYear discounts each year's flow at t-0.5 instead of t.
	MidYear bool `json:"mid_year,omitempty" yaml:"mid_year,omitempty"`

	// DiscountRate, when set, replaces the estimated WACC.
	DiscountRate *float64 `json:"discount_rate,omitempty" yaml:"discount_rate,omitempty"`
}

// WithDefaults fills the optional fields that were left at their zero value.
func (a Assumptions) WithDefaults() Assumptions {
	if a.HorizonYears == 0 {
		a.HorizonYears = DefaultHorizonYears
	}
	return a
}

// Validate rejects assumptions that can never produce a meaningful value.
// The WACC > terminal growth check happens later, once WACC is known.
func (a Assumptions) Validate() error {
	if err := requireFinite("growth_rate", a.GrowthRate); err != nil {
		return err
	}
	if err := requireFinite("terminal_growth_rate", a.TerminalGrowthRate); err != nil {
		return err
	}
	if a.GrowthRate <= -1 {
		return invalid("growth_rate", a.GrowthRate, "must be greater than -100%")
	}
	if a.TerminalGrowthRate <= -1 {
		return invalid("terminal_growth_rate", a.TerminalGrowthRate, "must be greater than -100%")
	}
	if a.HorizonYears <= 0 {
		return invalid("horizon_years", float64(a.HorizonYears), "must be at least 1")
	}
	if a.DiscountRate != nil {
		if err := requireFinite("discount_rate", *a.DiscountRate); err != nil {
			return err
		}
		if *a.DiscountRate <= -1 {
			return invalid("discount_rate", *a.DiscountRate, "must be greater than -100%")
		}
	}
	return nil
}

// DiscountRateSource records where the rate used for discounting came from.
type DiscountRateSource string

const (
	RateEstimated DiscountRateSource = "estimated"
	RateOverride  DiscountRateSource = "override"
	// RateFallback marks a configured default used when WACC could not be
	// estimated (no beta published).
	RateFallback DiscountRateSource = "fallback"
)

// ValuationResult is the immutable output of one Valuate call.
type ValuationResult struct {
	WACC               float64            `json:"wacc"`
	RateSource         DiscountRateSource `json:"rate_source"`
	CostOfEquity       float64            `json:"cost_of_equity"`
	AfterTaxCostOfDebt float64            `json:"after_tax_cost_of_debt"`
	EquityWeight       float64            `json:"equity_weight"`
	DebtWeight         float64            `json:"debt_weight"`

	BaseFreeCashFlow float64         `json:"base_free_cash_flow"`
	Projection       []ProjectedYear `json:"projection"`

	SumPVCashFlows  float64 `json:"sum_pv_cash_flows"`
	TerminalValue   float64 `json:"terminal_value"`
	PVTerminalValue float64 `json:"pv_terminal_value"`
	EnterpriseValue float64 `json:"enterprise_value"`
	EquityValue     float64 `json:"equity_value"`
	ValuePerShare   float64 `json:"value_per_share"`

	// UpsidePercent compares ValuePerShare to the market price; zero when
	// no price was supplied.
	UpsidePercent float64 `json:"upside_percent"`

	LowConfidence bool        `json:"low_confidence"`
	Assumptions   Assumptions `json:"assumptions"`
}

// WACCPercent returns the discount rate as a percentage.
func (r ValuationResult) WACCPercent() float64 {
	return r.WACC * 100
}

// TerminalShare is the fraction of enterprise value coming from the
// terminal value.
func (r ValuationResult) TerminalShare() float64 {
	if r.EnterpriseValue == 0 {
		return 0
	}
	return r.PVTerminalValue / r.EnterpriseValue
}
