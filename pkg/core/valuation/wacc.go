package valuation

import (
	"math"
)

// WeightTolerance bounds |EquityWeight + DebtWeight - 1|.
const WeightTolerance = 1e-6

// WACCResult holds the calculated rates
type WACCResult struct {
	CostOfEquity float64
	CostOfDebt   float64 // After-tax
	WACC         float64
	WeightDebt   float64
	WeightEquity float64
}

// NewCapitalStructure derives market-value weights from the snapshot and the
// market observation. Market cap is the equity value; when it is missing the
// price × shares product stands in for it.
func NewCapitalStructure(snapshot FinancialSnapshot, market MarketData) (CapitalStructure, error) {
	if err := requireAllFinite(
		namedValue{"market_cap", market.MarketCap},
		namedValue{"share_price", market.SharePrice},
		namedValue{"shares_outstanding", snapshot.SharesOutstanding},
		namedValue{"total_debt", snapshot.TotalDebt},
		namedValue{"tax_rate", snapshot.TaxRate},
	); err != nil {
		return CapitalStructure{}, err
	}
	if snapshot.TaxRate < 0 || snapshot.TaxRate >= 1 {
		return CapitalStructure{}, invalid("tax_rate", snapshot.TaxRate, "must be in [0, 1)")
	}

	equity := market.MarketCap
	if equity == 0 {
		equity = market.SharePrice * snapshot.SharesOutstanding
	}
	if equity <= 0 {
		return CapitalStructure{}, invalid("market_value_of_equity", equity, "must be positive")
	}
	debt := snapshot.TotalDebt
	if debt < 0 {
		return CapitalStructure{}, invalid("total_debt", debt, "debt cannot be negative")
	}

	// V = E + D
	total := equity + debt
	return CapitalStructure{
		EquityValue:  equity,
		DebtValue:    debt,
		TaxRate:      snapshot.TaxRate,
		EquityWeight: equity / total,
		DebtWeight:   debt / total,
	}, nil
}

// EstimateWACC computes the Weighted Average Cost of Capital using CAPM for
// the equity leg and the after-tax cost of debt for the debt leg.
func EstimateWACC(market MarketData, cs CapitalStructure) (WACCResult, error) {
	if err := requireFinite("beta", market.Beta); err != nil {
		return WACCResult{}, err
	}
	if err := requireAllFinite(
		namedValue{"risk_free_rate", market.RiskFreeRate},
		namedValue{"equity_risk_premium", market.EquityRiskPremium},
		namedValue{"cost_of_debt", market.CostOfDebt},
		namedValue{"equity_weight", cs.EquityWeight},
		namedValue{"debt_weight", cs.DebtWeight},
	); err != nil {
		return WACCResult{}, err
	}
	if cs.TaxRate < 0 || cs.TaxRate >= 1 {
		return WACCResult{}, invalid("tax_rate", cs.TaxRate, "must be in [0, 1)")
	}
	if cs.EquityValue <= 0 {
		return WACCResult{}, invalid("market_value_of_equity", cs.EquityValue, "must be positive")
	}
	if cs.EquityWeight < 0 || cs.EquityWeight > 1 {
		return WACCResult{}, invalid("equity_weight", cs.EquityWeight, "must be in [0, 1]")
	}
	if cs.DebtWeight < 0 || cs.DebtWeight > 1 {
		return WACCResult{}, invalid("debt_weight", cs.DebtWeight, "must be in [0, 1]")
	}
	if sum := cs.EquityWeight + cs.DebtWeight; math.Abs(sum-1) > WeightTolerance {
		return WACCResult{}, invalid("weights", sum, "equity and debt weights must sum to 1")
	}

	// Ke = Rf + Beta * ERP
	ke := market.RiskFreeRate + market.Beta*market.EquityRiskPremium

	// Kd = PreTaxKd * (1 - t)
	kd := market.CostOfDebt * (1 - cs.TaxRate)

	wacc := (ke * cs.EquityWeight) + (kd * cs.DebtWeight)

	return WACCResult{
		CostOfEquity: ke,
		CostOfDebt:   kd,
		WACC:         wacc,
		WeightDebt:   cs.DebtWeight,
		WeightEquity: cs.EquityWeight,
	}, nil
}

// ReleverBeta converts an unlevered (asset) beta into the equity beta of a
// firm with the given leverage, using the Hamada equation:
// BetaL = BetaU * (1 + (1-t)*(D/E))
func ReleverBeta(unleveredBeta, taxRate, debtToEquity float64) float64 {
	return unleveredBeta * (1 + (1-taxRate)*debtToEquity)
}
