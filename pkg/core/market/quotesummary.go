package market

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// value is Yahoo's {"raw": 1.23, "fmt": "1.23"} wrapper. Missing values
// arrive as {} and leave Raw nil.
type value struct {
	Raw *float64 `json:"raw"`
}

func (v value) ok() bool { return v.Raw != nil }

func (v value) get() float64 {
	if v.Raw == nil {
		return 0
	}
	return *v.Raw
}

type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []quoteSummary `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

type quoteSummary struct {
	Price struct {
		ShortName          string `json:"shortName"`
		LongName           string `json:"longName"`
		Currency           string `json:"currency"`
		RegularMarketPrice value  `json:"regularMarketPrice"`
		MarketCap          value  `json:"marketCap"`
	} `json:"price"`

	SummaryDetail struct {
		Beta             value `json:"beta"`
		MarketCap        value `json:"marketCap"`
		TrailingPE       value `json:"trailingPE"`
		FiftyTwoWeekHigh value `json:"fiftyTwoWeekHigh"`
		FiftyTwoWeekLow  value `json:"fiftyTwoWeekLow"`
	} `json:"summaryDetail"`

	DefaultKeyStatistics struct {
		Beta                     value `json:"beta"`
		SharesOutstanding        value `json:"sharesOutstanding"`
		ImpliedSharesOutstanding value `json:"impliedSharesOutstanding"`
	} `json:"defaultKeyStatistics"`

	FinancialData struct {
		CurrentPrice      value  `json:"currentPrice"`
		TotalDebt         value  `json:"totalDebt"`
		TotalCash         value  `json:"totalCash"`
		FreeCashflow      value  `json:"freeCashflow"`
		FinancialCurrency string `json:"financialCurrency"`
	} `json:"financialData"`

	IncomeStatementHistory struct {
		Statements []incomeStatement `json:"incomeStatementHistory"`
	} `json:"incomeStatementHistory"`

	BalanceSheetHistory struct {
		Statements []balanceSheet `json:"balanceSheetStatements"`
	} `json:"balanceSheetHistory"`

	CashflowStatementHistory struct {
		Statements []cashflowStatement `json:"cashflowStatements"`
	} `json:"cashflowStatementHistory"`

	RecommendationTrend struct {
		Trend []recommendationTrend `json:"trend"`
	} `json:"recommendationTrend"`

	UpgradeDowngradeHistory struct {
		History []upgradeDowngrade `json:"history"`
	} `json:"upgradeDowngradeHistory"`
}

type incomeStatement struct {
	EndDate          value `json:"endDate"`
	TotalRevenue     value `json:"totalRevenue"`
	OperatingIncome  value `json:"operatingIncome"`
	Ebit             value `json:"ebit"`
	IncomeBeforeTax  value `json:"incomeBeforeTax"`
	IncomeTaxExpense value `json:"incomeTaxExpense"`
	InterestExpense  value `json:"interestExpense"`
}

type balanceSheet struct {
	EndDate           value `json:"endDate"`
	Cash              value `json:"cash"`
	ShortLongTermDebt value `json:"shortLongTermDebt"`
	LongTermDebt      value `json:"longTermDebt"`
}

type cashflowStatement struct {
	EndDate                     value `json:"endDate"`
	Depreciation                value `json:"depreciation"`
	CapitalExpenditures         value `json:"capitalExpenditures"`
	ChangeToAccountReceivables  value `json:"changeToAccountReceivables"`
	ChangeToInventory           value `json:"changeToInventory"`
	ChangeToLiabilities         value `json:"changeToLiabilities"`
	ChangeToOperatingActivities value `json:"changeToOperatingActivities"`
}

type recommendationTrend struct {
	Period     string `json:"period"`
	StrongBuy  int    `json:"strongBuy"`
	Buy        int    `json:"buy"`
	Hold       int    `json:"hold"`
	Sell       int    `json:"sell"`
	StrongSell int    `json:"strongSell"`
}

type upgradeDowngrade struct {
	EpochGradeDate int64  `json:"epochGradeDate"`
	Firm           string `json:"firm"`
	ToGrade        string `json:"toGrade"`
	FromGrade      string `json:"fromGrade"`
	Action         string `json:"action"`
}

var fundamentalModules = []string{
	"price",
	"summaryDetail",
	"defaultKeyStatistics",
	"financialData",
	"incomeStatementHistory",
	"balanceSheetHistory",
	"cashflowStatementHistory",
}

func (c *Client) quoteSummary(ctx context.Context, ticker string, modules []string) (quoteSummary, error) {
	var resp quoteSummaryResponse
	q := url.Values{"modules": {strings.Join(modules, ",")}}
	if err := c.getJSON(ctx, "/v10/finance/quoteSummary/"+url.PathEscape(ticker), q, &resp); err != nil {
		return quoteSummary{}, fmt.Errorf("quote summary %s: %w", ticker, err)
	}
	if e := resp.QuoteSummary.Error; e != nil {
		return quoteSummary{}, fmt.Errorf("quote summary %s: %s: %w", ticker, e.Description, ErrNotFound)
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return quoteSummary{}, fmt.Errorf("quote summary %s: empty result: %w", ticker, ErrNotFound)
	}
	return resp.QuoteSummary.Result[0], nil
}
