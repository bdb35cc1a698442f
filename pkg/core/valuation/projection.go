package valuation

// BaseFreeCashFlow computes unlevered free cash flow for the snapshot period:
// FCF = EBIT*(1-t) + D&A - CapEx - ΔWC
func BaseFreeCashFlow(s FinancialSnapshot) float64 {
	nopat := s.OperatingIncome * (1 - s.TaxRate)
	return nopat + s.DepreciationAmortization - s.CapitalExpenditures - s.ChangeInWorkingCapital
}

// GrowthSchedule returns the growth rate applied in each projection year.
// With fade enabled the rate moves linearly from GrowthRate in year 1 to
// TerminalGrowthRate in the final year.
func GrowthSchedule(a Assumptions) []float64 {
	rates := make([]float64, a.HorizonYears)
	for i := range rates {
		rates[i] = a.GrowthRate
		if a.GrowthFadeToTerminal && a.HorizonYears > 1 {
			step := float64(i) / float64(a.HorizonYears-1)
			rates[i] = a.GrowthRate + (a.TerminalGrowthRate-a.GrowthRate)*step
		}
	}
	return rates
}

// ProjectCashFlows grows the base free cash flow over the horizon.
// A non-positive base is projected as-is; the engine flags it.
func ProjectCashFlows(s FinancialSnapshot, a Assumptions) (CashFlowProjection, error) {
	if err := requireAllFinite(
		namedValue{"operating_income", s.OperatingIncome},
		namedValue{"tax_rate", s.TaxRate},
		namedValue{"depreciation_amortization", s.DepreciationAmortization},
		namedValue{"capital_expenditures", s.CapitalExpenditures},
		namedValue{"change_in_working_capital", s.ChangeInWorkingCapital},
	); err != nil {
		return CashFlowProjection{}, err
	}
	if s.TaxRate < 0 || s.TaxRate >= 1 {
		return CashFlowProjection{}, invalid("tax_rate", s.TaxRate, "must be in [0, 1)")
	}
	if a.HorizonYears <= 0 {
		return CashFlowProjection{}, invalid("horizon_years", float64(a.HorizonYears), "must be at least 1")
	}

	base := BaseFreeCashFlow(s)
	years := make([]ProjectedYear, 0, a.HorizonYears)
	fcf := base
	for i, g := range GrowthSchedule(a) {
		if err := requireFinite("growth_rate", g); err != nil {
			return CashFlowProjection{}, err
		}
		if g <= -1 {
			return CashFlowProjection{}, invalid("growth_rate", g, "must be greater than -100%")
		}
		fcf *= 1 + g
		years = append(years, ProjectedYear{
			Year:         i + 1,
			GrowthRate:   g,
			FreeCashFlow: fcf,
		})
	}

	return CashFlowProjection{BaseFreeCashFlow: base, Years: years}, nil
}
