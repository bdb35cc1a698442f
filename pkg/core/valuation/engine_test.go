package valuation

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rate(v float64) *float64 { return &v }

// referenceSnapshot: EBIT 1000, 25% tax, D&A 100, capex 150, ΔWC 50 -> FCF 650
func referenceSnapshot() FinancialSnapshot {
	return FinancialSnapshot{
		Ticker:                   "REF",
		Revenue:                  5000,
		OperatingIncome:          1000,
		TaxRate:                  0.25,
		DepreciationAmortization: 100,
		CapitalExpenditures:      150,
		ChangeInWorkingCapital:   50,
		TotalDebt:                500,
		CashAndEquivalents:       200,
		SharesOutstanding:        1000,
	}
}

func referenceMarket() MarketData {
	return MarketData{
		SharePrice:        9.5,
		RiskFreeRate:      0.04,
		EquityRiskPremium: 0.05,
		Beta:              1.2,
		CostOfDebt:        0.06,
	}
}

func referenceAssumptions() Assumptions {
	return Assumptions{
		GrowthRate:         0.03,
		TerminalGrowthRate: 0.02,
		HorizonYears:       5,
		DiscountRate:       rate(0.10),
	}
}

func assertRelative(t *testing.T, expected, actual float64) {
	t.Helper()
	if math.Abs(actual-expected) > 1e-6*math.Abs(expected) {
		t.Errorf("expected %.12f, got %.12f", expected, actual)
	}
}

func TestValuate_ReferenceScenario(t *testing.T) {
	res, err := Valuate(referenceSnapshot(), referenceMarket(), referenceAssumptions())
	require.NoError(t, err)

	assert.Equal(t, 650.0, res.BaseFreeCashFlow)
	assert.Equal(t, RateOverride, res.RateSource)
	require.Len(t, res.Projection, 5)

	// Spreadsheet: Σ 650*1.03^t/1.1^t, TV = FCF5*1.02/0.08
	assertRelative(t, 2679.7407764900554, res.SumPVCashFlows)
	assertRelative(t, 9607.48389076125, res.TerminalValue)
	assertRelative(t, 5965.491608720993, res.PVTerminalValue)
	assertRelative(t, 8645.23238521105, res.EnterpriseValue)
	assertRelative(t, 8345.23238521105, res.EquityValue)
	assertRelative(t, 8.34523238521105, res.ValuePerShare)
	assert.False(t, res.LowConfidence)

	// Upside against the 9.5 market price
	assertRelative(t, (8.34523238521105-9.5)/9.5*100, res.UpsidePercent)
}

func TestValuate_EstimatedWACC(t *testing.T) {
	a := referenceAssumptions()
	a.DiscountRate = nil

	res, err := Valuate(referenceSnapshot(), referenceMarket(), a)
	require.NoError(t, err)

	// E = 9.5 * 1000, D = 500, Ke = 0.10, Kd after tax = 0.045
	assert.Equal(t, RateEstimated, res.RateSource)
	assert.InDelta(t, 0.09725, res.WACC, 1e-12)
	assert.InDelta(t, 9.725, res.WACCPercent(), 1e-10)
	assert.InDelta(t, 0.10, res.CostOfEquity, 1e-12)
	assert.InDelta(t, 0.045, res.AfterTaxCostOfDebt, 1e-12)
	assert.InDelta(t, 1.0, res.EquityWeight+res.DebtWeight, WeightTolerance)
}

func TestValuate_DefaultsHorizon(t *testing.T) {
	a := referenceAssumptions()
	a.HorizonYears = 0

	res, err := Valuate(referenceSnapshot(), referenceMarket(), a)
	require.NoError(t, err)
	assert.Len(t, res.Projection, DefaultHorizonYears)
	assert.Equal(t, DefaultHorizonYears, res.Assumptions.HorizonYears)
}

func TestValuate_FadeSchedule(t *testing.T) {
	a := referenceAssumptions()
	a.GrowthFadeToTerminal = true

	res, err := Valuate(referenceSnapshot(), referenceMarket(), a)
	require.NoError(t, err)

	assert.InDelta(t, 0.03, res.Projection[0].GrowthRate, 1e-15)
	assert.InDelta(t, 0.02, res.Projection[4].GrowthRate, 1e-15)
	assertRelative(t, 735.3934641421876, res.Projection[4].FreeCashFlow)
	assertRelative(t, 2655.9733243526116, res.SumPVCashFlows)
	assertRelative(t, 8.177897229086446, res.ValuePerShare)
}

func TestValuate_MidYearConvention(t *testing.T) {
	a := referenceAssumptions()
	a.MidYear = true

	res, err := Valuate(referenceSnapshot(), referenceMarket(), a)
	require.NoError(t, err)
	assertRelative(t, 8.767196220096492, res.ValuePerShare)
	assert.InDelta(t, res.Projection[4].DiscountFactor, res.PVTerminalValue/res.TerminalValue, 1e-12)
}

func TestValuate_NegativeBaseFCFIsLowConfidence(t *testing.T) {
	s := referenceSnapshot()
	s.CapitalExpenditures = 2000

	res, err := Valuate(s, referenceMarket(), referenceAssumptions())
	require.NoError(t, err)
	assert.True(t, res.LowConfidence)
	assert.Less(t, res.BaseFreeCashFlow, 0.0)
	assert.Less(t, res.EnterpriseValue, 0.0)
}

func TestValuate_ZeroBaseFCFIsLowConfidence(t *testing.T) {
	s := referenceSnapshot()
	s.CapitalExpenditures = 800 // 750 + 100 - 800 - 50 = 0

	res, err := Valuate(s, referenceMarket(), referenceAssumptions())
	require.NoError(t, err)
	assert.True(t, res.LowConfidence)
}

func TestValuate_InvalidInputs(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *FinancialSnapshot, m *MarketData, a *Assumptions)
		field  string
	}{
		{
			name:   "growth rate of -100%",
			mutate: func(_ *FinancialSnapshot, _ *MarketData, a *Assumptions) { a.GrowthRate = -1 },
			field:  "growth_rate",
		},
		{
			name:   "negative horizon",
			mutate: func(_ *FinancialSnapshot, _ *MarketData, a *Assumptions) { a.HorizonYears = -2 },
			field:  "horizon_years",
		},
		{
			name:   "terminal growth equals WACC",
			mutate: func(_ *FinancialSnapshot, _ *MarketData, a *Assumptions) { a.TerminalGrowthRate = 0.10 },
			field:  "terminal_growth_rate",
		},
		{
			name:   "terminal growth above WACC",
			mutate: func(_ *FinancialSnapshot, _ *MarketData, a *Assumptions) { a.TerminalGrowthRate = 0.12 },
			field:  "terminal_growth_rate",
		},
		{
			name:   "zero shares",
			mutate: func(s *FinancialSnapshot, _ *MarketData, _ *Assumptions) { s.SharesOutstanding = 0 },
			field:  "shares_outstanding",
		},
		{
			name:   "negative shares",
			mutate: func(s *FinancialSnapshot, _ *MarketData, _ *Assumptions) { s.SharesOutstanding = -10 },
			field:  "shares_outstanding",
		},
		{
			name:   "NaN operating income",
			mutate: func(s *FinancialSnapshot, _ *MarketData, _ *Assumptions) { s.OperatingIncome = math.NaN() },
			field:  "operating_income",
		},
		{
			name:   "infinite growth",
			mutate: func(_ *FinancialSnapshot, _ *MarketData, a *Assumptions) { a.GrowthRate = math.Inf(1) },
			field:  "growth_rate",
		},
		{
			name: "non-finite beta",
			mutate: func(_ *FinancialSnapshot, m *MarketData, a *Assumptions) {
				a.DiscountRate = nil
				m.Beta = math.NaN()
			},
			field: "beta",
		},
		{
			name: "no equity value",
			mutate: func(_ *FinancialSnapshot, m *MarketData, a *Assumptions) {
				a.DiscountRate = nil
				m.SharePrice = 0
			},
			field: "market_value_of_equity",
		},
		{
			name: "tax rate of 100%",
			mutate: func(s *FinancialSnapshot, _ *MarketData, a *Assumptions) {
				a.DiscountRate = nil
				s.TaxRate = 1
			},
			field: "tax_rate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, m, a := referenceSnapshot(), referenceMarket(), referenceAssumptions()
			tt.mutate(&s, &m, &a)

			res, err := Valuate(s, m, a)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInput))

			var ie *InvalidInputError
			require.ErrorAs(t, err, &ie)
			assert.Equal(t, tt.field, ie.Field)
			assert.Equal(t, ValuationResult{}, res, "no partial result on failure")
		})
	}
}

func TestValuate_DoesNotMutateInputs(t *testing.T) {
	s, m, a := referenceSnapshot(), referenceMarket(), referenceAssumptions()
	sCopy, mCopy := s, m

	_, err := Valuate(s, m, a)
	require.NoError(t, err)
	assert.Equal(t, sCopy, s)
	assert.Equal(t, mCopy, m)
	assert.Equal(t, 0.10, *a.DiscountRate)
}

func TestValuate_ResultOwnsDiscountRate(t *testing.T) {
	a := referenceAssumptions()
	res, err := Valuate(referenceSnapshot(), referenceMarket(), a)
	require.NoError(t, err)

	*a.DiscountRate = 0.5
	require.NotNil(t, res.Assumptions.DiscountRate)
	assert.Equal(t, 0.10, *res.Assumptions.DiscountRate)
	assert.Equal(t, 0.10, res.WACC)
}

func TestValuationResult_TerminalShare(t *testing.T) {
	res, err := Valuate(referenceSnapshot(), referenceMarket(), referenceAssumptions())
	require.NoError(t, err)
	assert.InDelta(t, 5965.491608720993/8645.23238521105, res.TerminalShare(), 1e-9)

	assert.Equal(t, 0.0, ValuationResult{}.TerminalShare())
}
