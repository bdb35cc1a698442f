package valuation

import (
	"math"
)

// DCFInput encapsulates all inputs required for a Discounted Cash Flow valuation
type DCFInput struct {
	Projection        CashFlowProjection
	WACC              float64
	TerminalGrowth    float64 // e.g. 0.025
	MidYear           bool
	TotalDebt         float64
	Cash              float64
	SharesOutstanding float64
}

// DCFResult holds the valuation outputs
type DCFResult struct {
	Years           []ProjectedYear // Projection with discount factors filled in
	PVFCF           float64
	TerminalValue   float64
	PVTerminal      float64
	EnterpriseValue float64
	EquityValue     float64
	SharePrice      float64
}

// CalculateDCF discounts the projection and adds a Gordon growth terminal
// value. WACC must strictly exceed the terminal growth rate.
func CalculateDCF(input DCFInput) (DCFResult, error) {
	if err := requireAllFinite(
		namedValue{"wacc", input.WACC},
		namedValue{"terminal_growth_rate", input.TerminalGrowth},
		namedValue{"total_debt", input.TotalDebt},
		namedValue{"cash_and_equivalents", input.Cash},
		namedValue{"shares_outstanding", input.SharesOutstanding},
	); err != nil {
		return DCFResult{}, err
	}
	if len(input.Projection.Years) == 0 {
		return DCFResult{}, invalid("horizon_years", 0, "projection is empty")
	}
	if input.WACC <= -1 {
		return DCFResult{}, invalid("wacc", input.WACC, "must be greater than -100%")
	}
	if input.WACC <= input.TerminalGrowth {
		return DCFResult{}, invalid("terminal_growth_rate", input.TerminalGrowth,
			"must be strictly below the discount rate")
	}
	if input.SharesOutstanding <= 0 {
		return DCFResult{}, invalid("shares_outstanding", input.SharesOutstanding, "must be positive")
	}

	years := make([]ProjectedYear, len(input.Projection.Years))
	var pvFCF float64
	for i, y := range input.Projection.Years {
		exponent := float64(y.Year)
		if input.MidYear {
			exponent -= 0.5
		}
		y.DiscountFactor = math.Pow(1+input.WACC, -exponent)
		y.PresentValue = y.FreeCashFlow * y.DiscountFactor
		pvFCF += y.PresentValue
		years[i] = y
	}

	// TV = FCF_N * (1+g) / (WACC - g), discounted with the final year's factor
	final := years[len(years)-1]
	tv := final.FreeCashFlow * (1 + input.TerminalGrowth) / (input.WACC - input.TerminalGrowth)
	pvTerminal := tv * final.DiscountFactor

	ev := pvFCF + pvTerminal
	eqVal := ev - input.TotalDebt + input.Cash

	return DCFResult{
		Years:           years,
		PVFCF:           pvFCF,
		TerminalValue:   tv,
		PVTerminal:      pvTerminal,
		EnterpriseValue: ev,
		EquityValue:     eqVal,
		SharePrice:      eqVal / input.SharesOutstanding,
	}, nil
}
