package valuation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCapitalStructure_UsesMarketCap(t *testing.T) {
	s := referenceSnapshot()
	m := referenceMarket()
	m.MarketCap = 1500

	cs, err := NewCapitalStructure(s, m)
	require.NoError(t, err)

	assert.Equal(t, 1500.0, cs.EquityValue)
	assert.Equal(t, 500.0, cs.DebtValue)
	assert.InDelta(t, 0.75, cs.EquityWeight, 1e-12)
	assert.InDelta(t, 0.25, cs.DebtWeight, 1e-12)
	assert.Equal(t, 0.25, cs.TaxRate)
}

func TestNewCapitalStructure_FallsBackToPriceTimesShares(t *testing.T) {
	cs, err := NewCapitalStructure(referenceSnapshot(), referenceMarket())
	require.NoError(t, err)
	assert.Equal(t, 9500.0, cs.EquityValue)
	assert.InDelta(t, 0.95, cs.EquityWeight, 1e-12)
}

func TestNewCapitalStructure_DebtFree(t *testing.T) {
	s := referenceSnapshot()
	s.TotalDebt = 0

	cs, err := NewCapitalStructure(s, referenceMarket())
	require.NoError(t, err)
	assert.Equal(t, 1.0, cs.EquityWeight)
	assert.Equal(t, 0.0, cs.DebtWeight)
}

func TestNewCapitalStructure_Rejects(t *testing.T) {
	s := referenceSnapshot()
	s.TotalDebt = -1
	_, err := NewCapitalStructure(s, referenceMarket())
	assert.ErrorIs(t, err, ErrInvalidInput)
	var ie *InvalidInputError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "total_debt", ie.Field)

	m := referenceMarket()
	m.MarketCap = -100
	_, err = NewCapitalStructure(referenceSnapshot(), m)
	assert.ErrorIs(t, err, ErrInvalidInput)

	s = referenceSnapshot()
	s.TaxRate = -0.1
	_, err = NewCapitalStructure(s, referenceMarket())
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestEstimateWACC(t *testing.T) {
	m := MarketData{
		RiskFreeRate:      0.0425,
		EquityRiskPremium: 0.05,
		Beta:              1.1,
		CostOfDebt:        0.045,
	}
	cs := CapitalStructure{EquityValue: 800, DebtValue: 200, TaxRate: 0.21, EquityWeight: 0.8, DebtWeight: 0.2}

	res, err := EstimateWACC(m, cs)
	require.NoError(t, err)

	ke := 0.0425 + 1.1*0.05
	kd := 0.045 * (1 - 0.21)
	assert.InDelta(t, ke, res.CostOfEquity, 1e-12)
	assert.InDelta(t, kd, res.CostOfDebt, 1e-12)
	assert.InDelta(t, 0.8*ke+0.2*kd, res.WACC, 1e-12)
	assert.Equal(t, 0.8, res.WeightEquity)
	assert.Equal(t, 0.2, res.WeightDebt)
}

func TestEstimateWACC_Rejects(t *testing.T) {
	good := CapitalStructure{EquityValue: 800, DebtValue: 200, TaxRate: 0.21, EquityWeight: 0.8, DebtWeight: 0.2}
	m := referenceMarket()

	tests := []struct {
		name   string
		market MarketData
		cs     CapitalStructure
		field  string
	}{
		{"infinite beta", MarketData{Beta: math.Inf(-1)}, good, "beta"},
		{"negative weight", m, CapitalStructure{EquityValue: 800, TaxRate: 0.2, EquityWeight: 1.2, DebtWeight: -0.2}, "equity_weight"},
		{"weights off by more than tolerance", m, CapitalStructure{EquityValue: 800, TaxRate: 0.2, EquityWeight: 0.8, DebtWeight: 0.1}, "weights"},
		{"insolvent equity", m, CapitalStructure{EquityValue: 0, TaxRate: 0.2, EquityWeight: 0, DebtWeight: 1}, "market_value_of_equity"},
		{"tax rate one", m, CapitalStructure{EquityValue: 800, TaxRate: 1, EquityWeight: 1}, "tax_rate"},
		{"NaN risk free", MarketData{Beta: 1, RiskFreeRate: math.NaN()}, good, "risk_free_rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EstimateWACC(tt.market, tt.cs)
			var ie *InvalidInputError
			require.ErrorAs(t, err, &ie)
			assert.Equal(t, tt.field, ie.Field)
		})
	}
}

func TestEstimateWACC_WeightToleranceAccepted(t *testing.T) {
	cs := CapitalStructure{EquityValue: 1, TaxRate: 0.2, EquityWeight: 0.6 + 5e-7, DebtWeight: 0.4}
	_, err := EstimateWACC(referenceMarket(), cs)
	assert.NoError(t, err)
}

func TestReleverBeta(t *testing.T) {
	// BetaL = 0.8 * (1 + 0.79 * 0.5)
	assert.InDelta(t, 1.116, ReleverBeta(0.8, 0.21, 0.5), 1e-12)
	assert.Equal(t, 0.8, ReleverBeta(0.8, 0.21, 0))
}
