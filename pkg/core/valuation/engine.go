package valuation

// Valuate runs a full DCF valuation: capital structure, WACC, cash flow
// projection, discounting and the per-share bridge. It is a pure function of
// its inputs; the first failing step's error is returned and no partial
// result is produced.
func Valuate(snapshot FinancialSnapshot, market MarketData, assumptions Assumptions) (ValuationResult, error) {
	assumptions = assumptions.WithDefaults()
	if err := assumptions.Validate(); err != nil {
		return ValuationResult{}, err
	}

	if assumptions.DiscountRate != nil {
		r := *assumptions.DiscountRate
		assumptions.DiscountRate = &r
	}
	result := ValuationResult{Assumptions: assumptions}

	if assumptions.DiscountRate != nil {
		result.WACC = *assumptions.DiscountRate
		result.RateSource = RateOverride
	} else {
		cs, err := NewCapitalStructure(snapshot, market)
		if err != nil {
			return ValuationResult{}, err
		}
		w, err := EstimateWACC(market, cs)
		if err != nil {
			return ValuationResult{}, err
		}
		result.WACC = w.WACC
		result.RateSource = RateEstimated
		result.CostOfEquity = w.CostOfEquity
		result.AfterTaxCostOfDebt = w.CostOfDebt
		result.EquityWeight = w.WeightEquity
		result.DebtWeight = w.WeightDebt
	}

	projection, err := ProjectCashFlows(snapshot, assumptions)
	if err != nil {
		return ValuationResult{}, err
	}

	dcf, err := CalculateDCF(DCFInput{
		Projection:        projection,
		WACC:              result.WACC,
		TerminalGrowth:    assumptions.TerminalGrowthRate,
		MidYear:           assumptions.MidYear,
		TotalDebt:         snapshot.TotalDebt,
		Cash:              snapshot.CashAndEquivalents,
		SharesOutstanding: snapshot.SharesOutstanding,
	})
	if err != nil {
		return ValuationResult{}, err
	}

	result.BaseFreeCashFlow = projection.BaseFreeCashFlow
	result.Projection = dcf.Years
	result.SumPVCashFlows = dcf.PVFCF
	result.TerminalValue = dcf.TerminalValue
	result.PVTerminalValue = dcf.PVTerminal
	result.EnterpriseValue = dcf.EnterpriseValue
	result.EquityValue = dcf.EquityValue
	result.ValuePerShare = dcf.SharePrice
	result.LowConfidence = projection.BaseFreeCashFlow <= 0

	if market.SharePrice > 0 {
		result.UpsidePercent = (dcf.SharePrice - market.SharePrice) / market.SharePrice * 100
	}

	return result, nil
}
