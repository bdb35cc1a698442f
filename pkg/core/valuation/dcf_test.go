package valuation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateDCF_SingleYear(t *testing.T) {
	input := DCFInput{
		Projection: CashFlowProjection{
			BaseFreeCashFlow: 100,
			Years:            []ProjectedYear{{Year: 1, GrowthRate: 0.1, FreeCashFlow: 110}},
		},
		WACC:              0.10,
		TerminalGrowth:    0.0,
		TotalDebt:         50,
		Cash:              25,
		SharesOutstanding: 10,
	}

	res, err := CalculateDCF(input)
	require.NoError(t, err)

	// PV = 110/1.1 = 100; TV = 110/0.1 = 1100; PV(TV) = 1000
	assert.InDelta(t, 100.0, res.PVFCF, 1e-9)
	assert.InDelta(t, 1100.0, res.TerminalValue, 1e-9)
	assert.InDelta(t, 1000.0, res.PVTerminal, 1e-9)
	assert.InDelta(t, 1100.0, res.EnterpriseValue, 1e-9)
	assert.InDelta(t, 1075.0, res.EquityValue, 1e-9)
	assert.InDelta(t, 107.5, res.SharePrice, 1e-9)
	assert.InDelta(t, 1/1.1, res.Years[0].DiscountFactor, 1e-12)
	assert.InDelta(t, 100.0, res.Years[0].PresentValue, 1e-9)

	// The input projection keeps its undiscounted form.
	assert.Zero(t, input.Projection.Years[0].DiscountFactor)
}

func TestCalculateDCF_MidYear(t *testing.T) {
	res, err := CalculateDCF(DCFInput{
		Projection:        CashFlowProjection{Years: []ProjectedYear{{Year: 1, FreeCashFlow: 100}, {Year: 2, FreeCashFlow: 100}}},
		WACC:              0.08,
		TerminalGrowth:    0.02,
		MidYear:           true,
		SharesOutstanding: 1,
	})
	require.NoError(t, err)
	assert.InDelta(t, math.Pow(1.08, -0.5), res.Years[0].DiscountFactor, 1e-12)
	assert.InDelta(t, math.Pow(1.08, -1.5), res.Years[1].DiscountFactor, 1e-12)
	assert.InDelta(t, res.TerminalValue*math.Pow(1.08, -1.5), res.PVTerminal, 1e-9)
}

func TestCalculateDCF_StrictTerminalInequality(t *testing.T) {
	base := DCFInput{
		Projection:        CashFlowProjection{Years: []ProjectedYear{{Year: 1, FreeCashFlow: 100}}},
		WACC:              0.05,
		TerminalGrowth:    0.05,
		SharesOutstanding: 1,
	}
	_, err := CalculateDCF(base)
	assert.ErrorIs(t, err, ErrInvalidInput)

	base.TerminalGrowth = 0.0499999
	_, err = CalculateDCF(base)
	assert.NoError(t, err)
}

func TestCalculateDCF_Rejects(t *testing.T) {
	valid := DCFInput{
		Projection:        CashFlowProjection{Years: []ProjectedYear{{Year: 1, FreeCashFlow: 100}}},
		WACC:              0.09,
		TerminalGrowth:    0.02,
		SharesOutstanding: 1,
	}

	empty := valid
	empty.Projection = CashFlowProjection{}
	_, err := CalculateDCF(empty)
	assert.ErrorIs(t, err, ErrInvalidInput)

	noShares := valid
	noShares.SharesOutstanding = 0
	_, err = CalculateDCF(noShares)
	assert.ErrorIs(t, err, ErrInvalidInput)

	nanCash := valid
	nanCash.Cash = math.NaN()
	_, err = CalculateDCF(nanCash)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
