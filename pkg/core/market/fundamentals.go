package market

import (
	"context"
	"fmt"
	"math"
	"time"

	"stockcheckertool/pkg/core/config"
	"stockcheckertool/pkg/core/valuation"
)

// Profile is descriptive quote data shown next to a valuation.
type Profile struct {
	Name             string  `json:"name"`
	Currency         string  `json:"currency"`
	TrailingPE       float64 `json:"trailing_pe,omitempty"`
	FiftyTwoWeekHigh float64 `json:"fifty_two_week_high,omitempty"`
	FiftyTwoWeekLow  float64 `json:"fifty_two_week_low,omitempty"`
	ReportedFCF      float64 `json:"reported_fcf,omitempty"`
}

// Fundamentals is everything the valuation engine needs for one ticker.
type Fundamentals struct {
	Snapshot valuation.FinancialSnapshot `json:"snapshot"`
	Market   valuation.MarketData        `json:"market"`
	Profile  Profile                     `json:"profile"`

	// HasBeta is false when the source publishes no beta. The WACC
	// estimate is then unavailable and a discount rate must be supplied.
	HasBeta bool `json:"has_beta"`
}

// FetchFundamentals loads the quote summary for ticker and maps it into
// valuation inputs. When no price is published the last daily close is used.
func (c *Client) FetchFundamentals(ctx context.Context, ticker string) (Fundamentals, error) {
	t, err := normalizeTicker(ticker)
	if err != nil {
		return Fundamentals{}, err
	}

	qs, err := c.quoteSummary(ctx, t, fundamentalModules)
	if err != nil {
		return Fundamentals{}, err
	}

	var lastClose float64
	if !qs.FinancialData.CurrentPrice.ok() && !qs.Price.RegularMarketPrice.ok() {
		candles, err := c.FetchHistory(ctx, t, "5d", "1d")
		if err != nil {
			c.log.Warn().Err(err).Str("ticker", t).Msg("price fallback to history failed")
		} else if len(candles) > 0 {
			lastClose = candles[len(candles)-1].Close
		}
	}

	f, err := buildFundamentals(t, qs, lastClose, c.defaults, time.Now().UTC())
	if err != nil {
		return Fundamentals{}, err
	}
	c.log.Debug().Str("ticker", t).Float64("price", f.Market.SharePrice).Bool("has_beta", f.HasBeta).Msg("fundamentals fetched")
	return f, nil
}

func firstOK(values ...value) (float64, bool) {
	for _, v := range values {
		if v.ok() && !math.IsNaN(v.get()) {
			return v.get(), true
		}
	}
	return 0, false
}

func buildFundamentals(ticker string, qs quoteSummary, lastClose float64, d config.MarketDefaults, asOf time.Time) (Fundamentals, error) {
	if len(qs.IncomeStatementHistory.Statements) == 0 {
		return Fundamentals{}, fmt.Errorf("%s: no income statement: %w", ticker, ErrNotFound)
	}
	inc := qs.IncomeStatementHistory.Statements[0]

	price, ok := firstOK(qs.FinancialData.CurrentPrice, qs.Price.RegularMarketPrice)
	if !ok {
		price = lastClose
	}
	if price <= 0 {
		return Fundamentals{}, fmt.Errorf("%s: no share price: %w", ticker, ErrNotFound)
	}

	shares, _ := firstOK(qs.DefaultKeyStatistics.SharesOutstanding, qs.DefaultKeyStatistics.ImpliedSharesOutstanding)
	if shares <= 0 {
		return Fundamentals{}, fmt.Errorf("%s: no shares outstanding: %w", ticker, ErrNotFound)
	}

	var bs balanceSheet
	if len(qs.BalanceSheetHistory.Statements) > 0 {
		bs = qs.BalanceSheetHistory.Statements[0]
	}
	var cf cashflowStatement
	if len(qs.CashflowStatementHistory.Statements) > 0 {
		cf = qs.CashflowStatementHistory.Statements[0]
	}

	debt, ok := firstOK(qs.FinancialData.TotalDebt)
	if !ok {
		debt = bs.ShortLongTermDebt.get() + bs.LongTermDebt.get()
	}
	cash, ok := firstOK(qs.FinancialData.TotalCash)
	if !ok {
		cash = bs.Cash.get()
	}

	// Effective tax rate when the statement gives a usable one.
	tax := d.TaxRate
	if pretax := inc.IncomeBeforeTax.get(); pretax > 0 && inc.IncomeTaxExpense.ok() {
		if rate := inc.IncomeTaxExpense.get() / pretax; rate >= 0 && rate < 1 {
			tax = rate
		}
	}

	// Pre-tax cost of debt: |interest| / debt, else the configured fallback.
	kd := d.CostOfDebt
	if interest := math.Abs(inc.InterestExpense.get()); interest > 0 && debt > 0 {
		kd = interest / debt
	}

	ebit, _ := firstOK(inc.OperatingIncome, inc.Ebit)

	workingCapital := cf.ChangeToAccountReceivables.get() + cf.ChangeToInventory.get() +
		cf.ChangeToLiabilities.get() + cf.ChangeToOperatingActivities.get()

	currency := qs.Price.Currency
	if currency == "" {
		currency = qs.FinancialData.FinancialCurrency
	}

	fiscalYear := 0
	if inc.EndDate.ok() {
		fiscalYear = time.Unix(int64(inc.EndDate.get()), 0).UTC().Year()
	}

	beta, hasBeta := firstOK(qs.SummaryDetail.Beta, qs.DefaultKeyStatistics.Beta)
	marketCap, _ := firstOK(qs.Price.MarketCap, qs.SummaryDetail.MarketCap)

	name := qs.Price.LongName
	if name == "" {
		name = qs.Price.ShortName
	}

	return Fundamentals{
		Snapshot: valuation.FinancialSnapshot{
			Ticker:                   ticker,
			Currency:                 currency,
			FiscalYear:               fiscalYear,
			Revenue:                  inc.TotalRevenue.get(),
			OperatingIncome:          ebit,
			TaxRate:                  tax,
			DepreciationAmortization: cf.Depreciation.get(),
			CapitalExpenditures:      math.Abs(cf.CapitalExpenditures.get()),
			ChangeInWorkingCapital:   -workingCapital,
			TotalDebt:                debt,
			CashAndEquivalents:       cash,
			SharesOutstanding:        shares,
			InterestExpense:          math.Abs(inc.InterestExpense.get()),
		},
		Market: valuation.MarketData{
			SharePrice:        price,
			RiskFreeRate:      d.RiskFreeRate,
			EquityRiskPremium: d.EquityRiskPremium,
			Beta:              beta,
			CostOfDebt:        kd,
			MarketCap:         marketCap,
			AsOf:              asOf,
		},
		Profile: Profile{
			Name:             name,
			Currency:         currency,
			TrailingPE:       qs.SummaryDetail.TrailingPE.get(),
			FiftyTwoWeekHigh: qs.SummaryDetail.FiftyTwoWeekHigh.get(),
			FiftyTwoWeekLow:  qs.SummaryDetail.FiftyTwoWeekLow.get(),
			ReportedFCF:      qs.FinancialData.FreeCashflow.get(),
		},
		HasBeta: hasBeta,
	}, nil
}
